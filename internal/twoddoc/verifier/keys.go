package verifier

import (
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
)

// ErrKeyNotFound is returned when no trust anchor matches a certificate
var ErrKeyNotFound = errors.New("trust anchor not found")

// ErrInvalidKey is returned for bytes that are not an uncompressed P-256 point
var ErrInvalidKey = errors.New("invalid public key")

// KeyResolver finds the issuer key for a certificate authority and certificate
type KeyResolver interface {
	ResolveKey(ctx context.Context, caID, certID string) (*ecdsa.PublicKey, error)
}

// fr05Key is the ANTS "FR05" certificate, the default trust anchor
const fr05KeyHex = "04567ce7a1edf11397f9b4174be7b6d21895af16ae21cec73720d910242cbb862e12f481cf87f06e58333ec59e92bb6c7e7c0e637b403919b408b742711077cb80"

var defaultKey = sync.OnceValue(func() *ecdsa.PublicKey {
	key, err := ParsePublicKeyHex(fr05KeyHex)
	if err != nil {
		panic(fmt.Sprintf("embedded trust anchor: %v", err))
	}
	return key
})

// DefaultKey returns the embedded FR05 issuer key
func DefaultKey() *ecdsa.PublicKey {
	return defaultKey()
}

// ParsePublicKey imports a 65-byte uncompressed point. The point is checked
// against the curve through crypto/ecdh before use.
func ParsePublicKey(raw []byte) (*ecdsa.PublicKey, error) {
	if len(raw) != 65 || raw[0] != 0x04 {
		return nil, fmt.Errorf("%w: want 65-byte uncompressed point, got %d bytes", ErrInvalidKey, len(raw))
	}
	if _, err := ecdh.P256().NewPublicKey(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(raw[1:33]),
		Y:     new(big.Int).SetBytes(raw[33:65]),
	}, nil
}

// ParsePublicKeyHex is ParsePublicKey for hex input
func ParsePublicKeyHex(s string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return ParsePublicKey(raw)
}

// MarshalPublicKey returns the uncompressed point of key
func MarshalPublicKey(key *ecdsa.PublicKey) ([]byte, error) {
	pub, err := key.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub.Bytes(), nil
}

// TrustAnchor binds an issuer key to a certificate authority and certificate
type TrustAnchor struct {
	CAID   string
	CertID string
	Key    *ecdsa.PublicKey
}

// StaticKeyStore resolves keys from a fixed in-memory set. A fallback key,
// when set, answers for every certificate without an explicit anchor.
type StaticKeyStore struct {
	anchors  map[string]*ecdsa.PublicKey
	fallback *ecdsa.PublicKey
}

// NewStaticKeyStore creates a store from explicit anchors and an optional fallback
func NewStaticKeyStore(fallback *ecdsa.PublicKey, anchors ...TrustAnchor) *StaticKeyStore {
	s := &StaticKeyStore{
		anchors:  make(map[string]*ecdsa.PublicKey, len(anchors)),
		fallback: fallback,
	}
	for _, a := range anchors {
		s.anchors[anchorKey(a.CAID, a.CertID)] = a.Key
	}
	return s
}

// NewDefaultKeyStore trusts only the embedded FR05 key, for every certificate
func NewDefaultKeyStore() *StaticKeyStore {
	return NewStaticKeyStore(DefaultKey())
}

// ResolveKey implements KeyResolver
func (s *StaticKeyStore) ResolveKey(_ context.Context, caID, certID string) (*ecdsa.PublicKey, error) {
	if key, ok := s.anchors[anchorKey(caID, certID)]; ok {
		return key, nil
	}
	if s.fallback != nil {
		return s.fallback, nil
	}
	return nil, fmt.Errorf("%w: ca %q cert %q", ErrKeyNotFound, caID, certID)
}

func anchorKey(caID, certID string) string {
	return caID + "/" + certID
}
