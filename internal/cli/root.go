// Package cli implements tddctl, the operator tool for decoding 2D-DOC
// payloads and preparing circuit inputs outside the service.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/parser"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/verifier"
	"github.com/tddproof/tddproof-backend/pkg/config"
	"github.com/tddproof/tddproof-backend/pkg/database"
	"github.com/tddproof/tddproof-backend/pkg/logger"
)

type options struct {
	service string
	noColor bool
	verbose bool

	// openAnchors connects to the trust-anchor table; replaced in tests
	openAnchors func(cmd *cobra.Command, o *options) (anchorStore, func(), error)
}

// NewRootCommand builds the tddctl command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{openAnchors: openPostgresAnchors})
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "tddctl",
		Short: "Decode 2D-DOC payloads and build circuit inputs",
		Long:  "tddctl decodes 2D-DOC payloads, checks their signatures against the configured trust store, assembles zero-knowledge circuit inputs and mints service tokens.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.service, "service", config.GetEnv("TDDPROOF_SERVICE", "tdd-service"), "Service whose configuration is loaded (env TDDPROOF_SERVICE)")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline stages to stderr")

	root.AddCommand(
		newParseCommand(opts),
		newCircuitCommand(opts),
		newCanonicalizeCommand(),
		newTokenCommand(opts),
		newAnchorsCommand(opts),
	)
	return root
}

// Execute runs tddctl with os.Args
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

// env is the configured pipeline a command runs against
type env struct {
	cfg    *config.Config
	parser *parser.Parser
	close  func()
}

func (o *options) load(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(o.service)
	if err != nil {
		return nil, err
	}
	if err := cfg.TwoDDoc.Validate(); err != nil {
		return nil, err
	}

	log := logger.Nop()
	if o.verbose {
		log = logger.NewWithWriter(cmd.ErrOrStderr(), "tddctl")
	}

	e := &env{cfg: cfg, close: func() {}}

	var db *database.DB
	if cfg.TwoDDoc.TrustStore == config.TrustStorePostgres {
		db, err = database.New(&cfg.Database, log)
		if err != nil {
			return nil, err
		}
		e.close = func() { db.Close() }
	}

	resolver, err := verifier.ResolverFromConfig(cfg.TwoDDoc, db)
	if err != nil {
		e.close()
		return nil, err
	}
	e.parser = parser.New(verifier.New(resolver, log), log)
	return e, nil
}
