package verifier

import (
	"fmt"

	"github.com/tddproof/tddproof-backend/pkg/config"
	"github.com/tddproof/tddproof-backend/pkg/database"
)

// AnchorsFromConfig decodes the statically configured trust anchors
func AnchorsFromConfig(cfgs []config.TrustAnchorConfig) ([]TrustAnchor, error) {
	anchors := make([]TrustAnchor, 0, len(cfgs))
	for i, c := range cfgs {
		key, err := ParsePublicKeyHex(c.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("trust anchor %d (%s/%s): %w", i, c.CAID, c.CertID, err)
		}
		anchors = append(anchors, TrustAnchor{CAID: c.CAID, CertID: c.CertID, Key: key})
	}
	return anchors, nil
}

// ResolverFromConfig builds the key resolver selected by twoddoc.trust_store.
// The static store falls back to the embedded FR05 key for unknown
// certificates; the postgres store sits behind a cache and needs db.
func ResolverFromConfig(cfg config.TwoDDocConfig, db *database.DB) (KeyResolver, error) {
	switch cfg.TrustStore {
	case config.TrustStorePostgres:
		if db == nil {
			return nil, fmt.Errorf("trust store %q needs a database connection", cfg.TrustStore)
		}
		return NewCachingResolver(NewPostgresKeyStore(db), cfg.KeyCacheTTL), nil
	case config.TrustStoreStatic, "":
		anchors, err := AnchorsFromConfig(cfg.TrustAnchors)
		if err != nil {
			return nil, err
		}
		return NewStaticKeyStore(DefaultKey(), anchors...), nil
	default:
		return nil, fmt.Errorf("unknown trust store %q", cfg.TrustStore)
	}
}
