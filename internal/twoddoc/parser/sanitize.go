package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/catalog"
)

var (
	slashSpacing = regexp.MustCompile(`\s*/\s*`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Clean applies the control-byte strip, the field's character filter and
// the catalog bound to a raw value. Unknown IDs are only trimmed.
func Clean(fieldID, raw string) string {
	v := stripControl(raw)

	entry, ok := catalog.Lookup(fieldID)
	if !ok {
		return strings.TrimSpace(v)
	}

	v = applyRule(entry.Rule, v)
	return truncate(v, entry.Definition.Bound())
}

func applyRule(rule catalog.CleanRule, v string) string {
	switch rule.Kind {
	case catalog.RuleAddressLine:
		v = keep(strings.ToUpper(v), isUpperAlnum, ' ', '/')
		v = slashSpacing.ReplaceAllString(v, " / ")
		v = whitespace.ReplaceAllString(v, " ")
		v = strings.TrimSpace(v)
	case catalog.RuleUpperText:
		v = strings.TrimSpace(keep(v, isUpperAlnum, ' ', '/'))
	case catalog.RuleAlnum:
		v = keep(v, isUpperAlnum)
	case catalog.RuleAlnumSpace:
		v = strings.TrimSpace(keep(v, isUpperAlnum, ' '))
	case catalog.RuleDigits:
		v = keep(v, isDigit)
	case catalog.RuleAmount:
		v = keep(v, isDigit, ',', '-')
	case catalog.RuleCountry:
		v = strings.ToUpper(truncate(v, 2))
	default:
		v = strings.TrimSpace(v)
	}

	if rule.Limit > 0 {
		v = truncate(v, rule.Limit)
	}
	return v
}

// stripControl removes C0 control bytes. It works on bytes so that binary
// content above 0x7F survives untouched.
func stripControl(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x20 {
			b = append(b, s[i])
		}
	}
	return string(b)
}

func keep(s string, class func(rune) bool, extra ...rune) string {
	return strings.Map(func(r rune) rune {
		if class(r) {
			return r
		}
		for _, e := range extra {
			if r == e {
				return r
			}
		}
		return -1
	}, s)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isUpperAlnum(r rune) bool { return isDigit(r) || (r >= 'A' && r <= 'Z') }

// truncate cuts s to at most n bytes without splitting a rune.
// n <= 0 means no bound.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
