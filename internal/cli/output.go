package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
)

var (
	labelColor   = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSignature writes a one-line signature verdict followed by any parse warnings
func printSignature(w io.Writer, label string, doc *domain.Document) {
	labelColor.Fprintf(w, "%s: ", label)
	if doc.SignatureValid {
		successColor.Fprintf(w, "signature valid")
	} else {
		errorColor.Fprintf(w, "signature INVALID")
	}
	fmt.Fprintf(w, " (%s/%s, %s)\n", doc.Header.CAID, doc.Header.CertID, doc.DocumentType.Category)

	for _, warning := range doc.Warnings {
		warnColor.Fprintf(w, "  warning: %s\n", warning)
	}
}
