package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/circuit"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/codec"
)

func newCanonicalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "canonicalize <base32-signature>",
		Short: "Print the low-S form of a signature zone as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := circuit.CanonicalizeSignature(codec.DecodeBase32(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(sig))
			return nil
		},
	}
}
