// Package catalog holds the static 2D-DOC tables: field definitions with their
// cleaning rules, and the registry of supported document types.
// Both tables are built once at init and never modified, so they are safe to
// share between any number of concurrent parses.
package catalog

import (
	"sort"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
)

// RuleKind selects the character filter applied to a raw value
type RuleKind int

const (
	// RuleTrim only trims surrounding whitespace
	RuleTrim RuleKind = iota
	// RuleAddressLine uppercases, keeps [A-Z0-9 /], spaces slashes as " / " and collapses whitespace
	RuleAddressLine
	// RuleUpperText keeps [A-Z0-9 /] without changing case, then trims
	RuleUpperText
	// RuleAlnum keeps [A-Z0-9]
	RuleAlnum
	// RuleAlnumSpace keeps [A-Z0-9 ] and trims
	RuleAlnumSpace
	// RuleDigits keeps [0-9]
	RuleDigits
	// RuleAmount keeps [0-9,-]
	RuleAmount
	// RuleCountry keeps the first two characters, uppercased
	RuleCountry
)

// CleanRule is the cleaning step for one field. Limit truncates the filtered
// value when positive.
type CleanRule struct {
	Kind  RuleKind
	Limit int
}

// Entry couples a field definition with its cleaning rule
type Entry struct {
	Definition domain.FieldDefinition
	Rule       CleanRule
}

func variable(id, name string, t domain.FieldType, maxLength int, rule CleanRule) Entry {
	return Entry{
		Definition: domain.FieldDefinition{ID: id, Name: name, Type: t, LengthType: domain.LengthVariable, MaxLength: maxLength},
		Rule:       rule,
	}
}

func fixed(id, name string, t domain.FieldType, length int, rule CleanRule) Entry {
	return Entry{
		Definition: domain.FieldDefinition{ID: id, Name: name, Type: t, LengthType: domain.LengthFixed, Length: length},
		Rule:       rule,
	}
}

var (
	trim        = CleanRule{Kind: RuleTrim}
	upperText   = CleanRule{Kind: RuleUpperText}
	alnumSpace  = CleanRule{Kind: RuleAlnumSpace}
	amount      = CleanRule{Kind: RuleAmount}
	country     = CleanRule{Kind: RuleCountry}
	digits      = CleanRule{Kind: RuleDigits}
	digitsUpTo  = func(n int) CleanRule { return CleanRule{Kind: RuleDigits, Limit: n} }
	alnumUpTo   = func(n int) CleanRule { return CleanRule{Kind: RuleAlnum, Limit: n} }
	addressLine = CleanRule{Kind: RuleAddressLine}
)

var entries = map[string]Entry{}

func init() {
	for _, e := range []Entry{
		// Proof of address (type 01), mandatory
		variable("10", "Ligne 1 adresse postale bénéficiaire", domain.FieldTypeString, 38, addressLine),
		variable("11", "Qualité/titre du bénéficiaire", domain.FieldTypeString, 38, upperText),
		variable("12", "Prénom du bénéficiaire", domain.FieldTypeString, 38, upperText),
		variable("13", "Nom du bénéficiaire", domain.FieldTypeString, 38, upperText),
		variable("20", "Ligne 2 adresse point de service", domain.FieldTypeString, 38, upperText),
		variable("22", "Numéro et nom de voie bénéficiaire", domain.FieldTypeString, 38, upperText),
		fixed("24", "Code postal point de service", domain.FieldTypeString, 5, digitsUpTo(5)),
		fixed("26", "Pays point de service", domain.FieldTypeString, 2, country),

		// Proof of address (type 01), optional
		variable("15", "Qualité/titre destinataire facture", domain.FieldTypeString, 38, upperText),
		variable("16", "Prénom destinataire facture", domain.FieldTypeString, 38, upperText),
		variable("17", "Nom destinataire facture", domain.FieldTypeString, 38, upperText),
		variable("18", "Numéro de facture", domain.FieldTypeString, 0, trim),
		variable("1A", "Numéro de contrat", domain.FieldTypeString, 50, CleanRule{Kind: RuleAlnum}),
		variable("1B", "Identifiant souscripteur", domain.FieldTypeString, 50, CleanRule{Kind: RuleAlnum}),
		fixed("1C", "Date d'effet du contrat", domain.FieldTypeFormattedDate, 8, digitsUpTo(8)),
		variable("1D", "Montant TTC", domain.FieldTypeAmount, 16, amount),
		variable("1F", "Téléphone destinataire", domain.FieldTypePhone, 30, digits),
		variable("25", "Localité point de service", domain.FieldTypeString, 32, upperText),
		variable("27", "Ligne 2 adresse destinataire", domain.FieldTypeString, 38, upperText),
		variable("28", "Ligne 3 adresse destinataire", domain.FieldTypeString, 38, upperText),
		variable("29", "Ligne 4 adresse destinataire", domain.FieldTypeString, 38, upperText),
		variable("2A", "Ligne 5 adresse destinataire", domain.FieldTypeString, 38, upperText),
		fixed("2B", "Code postal destinataire", domain.FieldTypeString, 5, digitsUpTo(5)),
		variable("2C", "Localité destinataire", domain.FieldTypeString, 32, upperText),
		fixed("2D", "Pays destinataire", domain.FieldTypeString, 2, country),

		// Tax notice (type 04)
		variable("43", "Nombre de parts", domain.FieldTypeInteger, 5, digitsUpTo(5)),
		fixed("44", "Référence de l'avis d'impôt", domain.FieldTypeString, 13, alnumUpTo(13)),
		fixed("45", "Année fiscale", domain.FieldTypeYear, 4, digitsUpTo(4)),
		variable("46", "Nom du Déclarant 1", domain.FieldTypeString, 38, alnumSpace),
		fixed("4A", "Date limite de paiement", domain.FieldTypeFormattedDate, 8, digitsUpTo(8)),
		fixed("47", "Numéro fiscal du Déclarant 1", domain.FieldTypeString, 13, digitsUpTo(13)),
		variable("41", "Revenu fiscal de référence", domain.FieldTypeAmount, 12, amount),
		variable("48", "Nom du Déclarant 2", domain.FieldTypeString, 38, alnumSpace),
		fixed("49", "Numéro fiscal du Déclarant 2", domain.FieldTypeString, 13, digitsUpTo(13)),
		variable("4W", "Montant restant à payer", domain.FieldTypeAmount, 10, amount),
		variable("4X", "Montant prélevé à la source", domain.FieldTypeAmount, 10, amount),

		// Identity
		variable("60", "Prénoms", domain.FieldTypeString, 20, trim),
		variable("62", "Nom", domain.FieldTypeString, 20, trim),
		fixed("65", "Type of ID", domain.FieldTypeString, 2, trim),
		variable("66", "ID number", domain.FieldTypeString, 20, trim),
		fixed("67", "ID country", domain.FieldTypeString, 2, trim),
		fixed("68", "ID gender", domain.FieldTypeString, 1, trim),
		fixed("69", "ID birth date", domain.FieldTypeFormattedDate, 8, trim),
		fixed("6C", "ID birth country", domain.FieldTypeString, 2, trim),
	} {
		entries[e.Definition.ID] = e
	}
}

// Lookup returns the catalog entry for a field ID
func Lookup(id string) (Entry, bool) {
	e, ok := entries[id]
	return e, ok
}

// Field returns the definition for a field ID
func Field(id string) (domain.FieldDefinition, bool) {
	e, ok := entries[id]
	return e.Definition, ok
}

// Fields returns every definition sorted by ID
func Fields() []domain.FieldDefinition {
	out := make([]domain.FieldDefinition, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Definition)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
