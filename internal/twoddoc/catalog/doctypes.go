package catalog

import (
	"fmt"
	"sort"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
)

type docTypeInfo struct {
	name     string
	category domain.Category
}

// documentTypes is keyed by perimeter, then by document type
var documentTypes = map[string]map[string]docTypeInfo{
	// ANTS perimeter
	"01": {
		"01": {"Justificatif de Domicile", domain.CategoryProofOfAddress},
		"04": {"Avis d'impôt sur les Revenus", domain.CategoryTaxes},
		"07": {"Carte d'identité", domain.CategoryIdentity},
	},
	"JD": {
		"01": {"Facture d'électricité", domain.CategoryResidence},
		"02": {"Facture de gaz", domain.CategoryResidence},
		"03": {"Facture d'eau", domain.CategoryResidence},
		"04": {"Facture de téléphonie", domain.CategoryResidence},
		"05": {"Facture d'internet", domain.CategoryResidence},
		"06": {"Quittance de loyer", domain.CategoryResidence},
		"07": {"Avis d'imposition", domain.CategoryResidence},
		"08": {"Attestation d'assurance logement", domain.CategoryResidence},
	},
	"ID": {
		"01": {"Carte Nationale d'Identité", domain.CategoryIdentity},
		"02": {"Passeport", domain.CategoryIdentity},
		"03": {"Titre de séjour", domain.CategoryIdentity},
		"04": {"Permis de conduire", domain.CategoryIdentity},
	},
	"SN": {
		"L1": {"Attestation vaccinale", domain.CategoryHealth},
		"L2": {"Certificat de test", domain.CategoryHealth},
		"L3": {"Certificat de rétablissement", domain.CategoryHealth},
	},
	"FI": {
		"01": {"Avis d'impôt sur le revenu", domain.CategoryTaxes},
		"02": {"Avis de taxe d'habitation", domain.CategoryTaxes},
		"03": {"Avis de taxe foncière", domain.CategoryTaxes},
		"04": {"Déclaration de revenus", domain.CategoryTaxes},
	},
}

// LookupDocumentType resolves a perimeter and document type. Unknown pairs
// come back with CategoryUnknown rather than an error.
func LookupDocumentType(perimeterID, docTypeID string) domain.DocumentType {
	if types, ok := documentTypes[perimeterID]; ok {
		if info, ok := types[docTypeID]; ok {
			return domain.DocumentType{
				PerimeterID: perimeterID,
				DocTypeID:   docTypeID,
				Name:        info.name,
				Category:    info.category,
			}
		}
	}

	return domain.DocumentType{
		PerimeterID: perimeterID,
		DocTypeID:   docTypeID,
		Name:        fmt.Sprintf("Type inconnu (Périmètre: %s, Type: %s)", perimeterID, docTypeID),
		Category:    domain.CategoryUnknown,
	}
}

// DocumentTypes lists the registry ordered by perimeter then type
func DocumentTypes() []domain.DocumentType {
	var out []domain.DocumentType
	for perimeter, types := range documentTypes {
		for docType := range types {
			out = append(out, LookupDocumentType(perimeter, docType))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PerimeterID != out[j].PerimeterID {
			return out[i].PerimeterID < out[j].PerimeterID
		}
		return out[i].DocTypeID < out[j].DocTypeID
	})
	return out
}
