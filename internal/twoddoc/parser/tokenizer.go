package parser

import (
	"github.com/tddproof/tddproof-backend/internal/twoddoc/catalog"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
)

// TokenizeResult holds the kept fields in message order and the IDs of
// repeated fields that were skipped
type TokenizeResult struct {
	Fields     []domain.RawField
	Duplicates []string
}

// Tokenize walks a message zone and cuts out every catalog field.
// A field whose cleaned value is empty is dropped and does not count as seen.
func Tokenize(message []byte) TokenizeResult {
	var res TokenizeResult
	seen := make(map[string]bool)

	pos := 0
	for pos < len(message)-1 {
		id := string(message[pos : pos+2])
		if id == domain.EndOfMessage {
			break
		}

		entry, ok := catalog.Lookup(id)
		if !ok {
			pos++
			continue
		}

		start := pos + 2
		end := valueEnd(message, start, entry.Definition)
		value := string(message[start:end])
		pos = end

		separator := ""
		if pos < len(message) && message[pos] == domain.GS {
			separator = string(domain.GS)
			pos++
		}

		// the repeated field is consumed so scanning resumes after it
		if seen[id] {
			res.Duplicates = append(res.Duplicates, id)
			continue
		}

		cleaned := Clean(id, value)
		if cleaned == "" {
			continue
		}
		seen[id] = true

		res.Fields = append(res.Fields, domain.RawField{
			FieldID:   id,
			Value:     value,
			Cleaned:   cleaned,
			Separator: separator,
		})
	}

	return res
}

func valueEnd(message []byte, start int, def domain.FieldDefinition) int {
	if start > len(message) {
		return len(message)
	}

	if def.LengthType == domain.LengthFixed {
		return min(start+def.Length, len(message))
	}

	end := start
	for end < len(message) && message[end] != domain.GS && message[end] != domain.RS {
		if def.MaxLength > 0 && end-start >= def.MaxLength {
			break
		}
		end++
	}
	return end
}
