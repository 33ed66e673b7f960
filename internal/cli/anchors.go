package cli

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/verifier"
	"github.com/tddproof/tddproof-backend/pkg/config"
	"github.com/tddproof/tddproof-backend/pkg/database"
	"github.com/tddproof/tddproof-backend/pkg/logger"
)

type anchorStore interface {
	Migrate(ctx context.Context) error
	List(ctx context.Context) ([]verifier.AnchorRecord, error)
	Rotate(ctx context.Context, caID, certID string, key *ecdsa.PublicKey) (*verifier.AnchorRecord, error)
	Revoke(ctx context.Context, caID, certID string) error
}

func openPostgresAnchors(cmd *cobra.Command, o *options) (anchorStore, func(), error) {
	cfg, err := config.Load(o.service)
	if err != nil {
		return nil, nil, err
	}
	if cfg.TwoDDoc.TrustStore != config.TrustStorePostgres {
		return nil, nil, fmt.Errorf("trust anchors are managed in postgres, but twoddoc.trust_store is %q", cfg.TwoDDoc.TrustStore)
	}

	log := logger.Nop()
	if o.verbose {
		log = logger.NewWithWriter(cmd.ErrOrStderr(), "tddctl")
	}
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	return verifier.NewPostgresKeyStore(db), func() { db.Close() }, nil
}

func newAnchorsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anchors",
		Short: "Manage the trust anchors of the postgres trust store",
	}

	var caID, certID, keyHex string

	list := &cobra.Command{
		Use:   "list",
		Short: "List trust anchors, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAnchors(cmd, opts, func(store anchorStore) error {
				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "CA\tCERT\tCREATED\tSTATUS\tID")
				for _, r := range records {
					status := successColor.Sprint("active")
					if !r.Active() {
						status = errorColor.Sprintf("revoked %s", r.RevokedAt.Format("2006-01-02"))
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.CAID, r.CertID, r.CreatedAt.Format("2006-01-02 15:04"), status, r.ID)
				}
				return w.Flush()
			})
		},
	}

	rotate := &cobra.Command{
		Use:   "rotate",
		Short: "Install a new public key for a certificate, revoking the previous one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := verifier.ParsePublicKeyHex(keyHex)
			if err != nil {
				return err
			}
			return withAnchors(cmd, opts, func(store anchorStore) error {
				if err := store.Migrate(cmd.Context()); err != nil {
					return err
				}
				record, err := store.Rotate(cmd.Context(), caID, certID, key)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), record)
			})
		},
	}
	rotate.Flags().StringVar(&keyHex, "key", "", "Uncompressed P-256 public key, hex encoded")
	_ = rotate.MarkFlagRequired("key")

	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke the active key of a certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAnchors(cmd, opts, func(store anchorStore) error {
				if err := store.Revoke(cmd.Context(), caID, certID); err != nil {
					return err
				}
				labelColor.Fprintf(cmd.ErrOrStderr(), "revoked %s/%s\n", caID, certID)
				return nil
			})
		},
	}

	for _, c := range []*cobra.Command{rotate, revoke} {
		c.Flags().StringVar(&caID, "ca", "", "Certificate authority ID")
		c.Flags().StringVar(&certID, "cert", "", "Certificate ID")
		_ = c.MarkFlagRequired("ca")
		_ = c.MarkFlagRequired("cert")
	}

	cmd.AddCommand(list, rotate, revoke)
	return cmd
}

func withAnchors(cmd *cobra.Command, opts *options, fn func(anchorStore) error) error {
	store, closeFn, err := opts.openAnchors(cmd, opts)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(store)
}
