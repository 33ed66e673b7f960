package verifier

import (
	"context"
	"crypto/ecdsa"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tddproof/tddproof-backend/pkg/database"
	"github.com/tddproof/tddproof-backend/pkg/errors"
)

// Schema creates the trust anchor table. At most one row per certificate
// may be active; rotation revokes the previous row.
const Schema = `
CREATE TABLE IF NOT EXISTS trust_anchors (
	id          UUID PRIMARY KEY,
	ca_id       VARCHAR(4) NOT NULL CONSTRAINT trust_anchors_ca_id_format CHECK (ca_id ~ '^[A-Z0-9]{1,4}$'),
	cert_id     VARCHAR(4) NOT NULL,
	public_key  BYTEA NOT NULL CONSTRAINT trust_anchors_public_key_length CHECK (octet_length(public_key) = 65),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	revoked_at  TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS trust_anchors_active_idx
	ON trust_anchors (ca_id, cert_id) WHERE revoked_at IS NULL;
`

// AnchorRecord is a row of the trust anchor table
type AnchorRecord struct {
	ID        string     `db:"id" json:"id"`
	CAID      string     `db:"ca_id" json:"ca_id"`
	CertID    string     `db:"cert_id" json:"cert_id"`
	PublicKey []byte     `db:"public_key" json:"-"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// Active reports whether the anchor has not been revoked
func (r *AnchorRecord) Active() bool {
	return r.RevokedAt == nil
}

// PostgresKeyStore resolves issuer keys from the trust_anchors table.
// The service never writes documents here; the table is managed by operators.
type PostgresKeyStore struct {
	db *database.DB
}

// NewPostgresKeyStore creates a new Postgres-backed key store
func NewPostgresKeyStore(db *database.DB) *PostgresKeyStore {
	return &PostgresKeyStore{db: db}
}

// Migrate creates the table if it does not exist
func (s *PostgresKeyStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create trust anchor schema: %w", err)
	}
	return nil
}

// ResolveKey implements KeyResolver
func (s *PostgresKeyStore) ResolveKey(ctx context.Context, caID, certID string) (*ecdsa.PublicKey, error) {
	var raw []byte
	query := `
		SELECT public_key FROM trust_anchors
		WHERE ca_id = $1 AND cert_id = $2 AND revoked_at IS NULL
	`
	if err := s.db.GetContext(ctx, &raw, query, caID, certID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: ca %q cert %q", ErrKeyNotFound, caID, certID)
		}
		return nil, fmt.Errorf("failed to load trust anchor: %w", err)
	}

	return ParsePublicKey(raw)
}

// List returns every anchor, revoked ones included, newest first
func (s *PostgresKeyStore) List(ctx context.Context) ([]AnchorRecord, error) {
	var records []AnchorRecord
	query := `
		SELECT id, ca_id, cert_id, public_key, created_at, revoked_at
		FROM trust_anchors
		ORDER BY created_at DESC
	`
	err := s.db.ReadOnly(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &records, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list trust anchors: %w", err)
	}
	return records, nil
}

// Rotate installs key as the active anchor for a certificate, revoking the
// previous one in the same transaction
func (s *PostgresKeyStore) Rotate(ctx context.Context, caID, certID string, key *ecdsa.PublicKey) (*AnchorRecord, error) {
	raw, err := MarshalPublicKey(key)
	if err != nil {
		return nil, errors.BadRequest(err.Error())
	}

	record := &AnchorRecord{
		ID:        uuid.New().String(),
		CAID:      caID,
		CertID:    certID,
		PublicKey: raw,
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		revoke := `
			UPDATE trust_anchors SET revoked_at = NOW()
			WHERE ca_id = $1 AND cert_id = $2 AND revoked_at IS NULL
		`
		if _, err := tx.ExecContext(ctx, revoke, caID, certID); err != nil {
			return err
		}

		insert := `
			INSERT INTO trust_anchors (id, ca_id, cert_id, public_key)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`
		return tx.QueryRowxContext(ctx, insert, record.ID, caID, certID, raw).Scan(&record.CreatedAt)
	})
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, fmt.Errorf("failed to rotate trust anchor: %w", err)
	}

	return record, nil
}

// Revoke deactivates the active anchor of a certificate
func (s *PostgresKeyStore) Revoke(ctx context.Context, caID, certID string) error {
	query := `
		UPDATE trust_anchors SET revoked_at = NOW()
		WHERE ca_id = $1 AND cert_id = $2 AND revoked_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, caID, certID)
	if err != nil {
		return fmt.Errorf("failed to revoke trust anchor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke trust anchor: %w", err)
	}
	if rows == 0 {
		return errors.NotFound("trust anchor")
	}
	return nil
}
