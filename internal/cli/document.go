package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/circuit"
)

func newParseCommand(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "parse [payload]",
		Short: "Decode a 2D-DOC payload and verify its signature",
		Long:  "Decodes a 2D-DOC payload given as an argument, read from --file, or piped via stdin, and prints the document as JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(cmd, file, args)
			if err != nil {
				return err
			}

			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			doc, err := e.parser.Parse(cmd.Context(), raw)
			if err != nil {
				return err
			}

			if err := printJSON(cmd.OutOrStdout(), doc); err != nil {
				return err
			}
			printSignature(cmd.ErrOrStderr(), "document", doc)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the payload from a file")
	return cmd
}

func newCircuitCommand(opts *options) *cobra.Command {
	var idFile, taxesFile, profile string

	cmd := &cobra.Command{
		Use:   "circuit",
		Short: "Build the circuit input from an identity document and a tax notice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idRaw, err := readFile(idFile)
			if err != nil {
				return err
			}
			taxesRaw, err := readFile(taxesFile)
			if err != nil {
				return err
			}

			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			cfg := circuit.ConfigFrom(e.cfg.TwoDDoc)
			if profile != "" {
				cfg.Profile = circuit.Profile(profile)
				if !cfg.Profile.Valid() {
					return fmt.Errorf("unknown profile %q", profile)
				}
			}

			input, err := circuit.NewBuilder(e.parser, cfg).Build(cmd.Context(), idRaw, taxesRaw)
			if err != nil {
				return err
			}

			if err := printJSON(cmd.OutOrStdout(), input); err != nil {
				return err
			}
			printSignature(cmd.ErrOrStderr(), "id", input.IDDocument)
			printSignature(cmd.ErrOrStderr(), "taxes", input.TaxesDocument)
			return nil
		},
	}

	cmd.Flags().StringVar(&idFile, "id", "", "File holding the identity document payload")
	cmd.Flags().StringVar(&taxesFile, "taxes", "", "File holding the tax notice payload")
	cmd.Flags().StringVar(&profile, "profile", "", "Matcher profile (multiple or tenant)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("taxes")
	return cmd
}

// readPayload picks the payload from --file, the argument or stdin, in that order
func readPayload(cmd *cobra.Command, file string, args []string) (string, error) {
	switch {
	case file != "":
		return readFile(file)
	case len(args) > 0:
		return args[0], nil
	}

	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	raw := strings.TrimRight(string(b), "\r\n")
	if raw == "" {
		return "", fmt.Errorf("no payload given")
	}
	return raw, nil
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
