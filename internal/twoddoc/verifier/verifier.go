// Package verifier checks the issuer signature of a 2D-DOC.
// Keys come from a KeyResolver so several issuers can be trusted at once.
package verifier

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/codec"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
	"github.com/tddproof/tddproof-backend/pkg/logger"
)

// SignatureSize is the length of a raw r||s P-256 signature
const SignatureSize = 64

var (
	ErrMalformedSignature = errors.New("malformed signature")
	ErrSignatureMismatch  = errors.New("signature does not match")
)

// Verifier validates ECDSA P-256 / SHA-256 signatures
type Verifier struct {
	resolver KeyResolver
	log      *logger.Logger
}

// New creates a verifier backed by resolver
func New(resolver KeyResolver, log *logger.Logger) *Verifier {
	return &Verifier{
		resolver: resolver,
		log:      log.WithComponent("verifier"),
	}
}

// Verify reports whether signature is a valid issuer signature over signed.
// signed must be the header bytes followed by the message bytes, exactly as
// they appear in the payload. Failures of any kind yield false.
func (v *Verifier) Verify(ctx context.Context, header *domain.Header, signed []byte, signature string) bool {
	if err := v.Check(ctx, header, signed, signature); err != nil {
		v.log.Debug().
			Err(err).
			Str("ca_id", header.CAID).
			Str("cert_id", header.CertID).
			Msg("signature verification failed")
		return false
	}
	return true
}

// Check is Verify with the failure reason
func (v *Verifier) Check(ctx context.Context, header *domain.Header, signed []byte, signature string) error {
	certID := header.CertID
	if certID == "" {
		certID = header.PerimeterID
	}

	key, err := v.resolver.ResolveKey(ctx, header.CAID, certID)
	if err != nil {
		return fmt.Errorf("resolve key: %w", err)
	}

	sig := codec.DecodeBase32(signature)
	if len(sig) != SignatureSize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrMalformedSignature, len(sig), SignatureSize)
	}

	digest := sha256.Sum256(signed)
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	if !ecdsa.Verify(key, digest[:], r, s) {
		return ErrSignatureMismatch
	}
	return nil
}
