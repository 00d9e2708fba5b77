// Package textnorm normalizes free text typed into spreadsheets so names and
// column headers can be matched regardless of case, accents and spacing.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents removes combining marks: "Conciliação" becomes "Conciliacao"
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Key returns the comparison key of a name: accents stripped, lower case, single spaces
func Key(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(StripAccents(s))), " ")
}

// Header returns the canonical form of a column header: "Valor Pago" becomes "valor_pago"
func Header(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.Join(strings.Fields(strings.ToLower(StripAccents(s))), "_")
}
