package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePercentages parses a commission schedule typed as "1.5, 1.0, 1.0" or "1.5 1 1".
// Commas, semicolons and whitespace all separate entries.
func ParsePercentages(raw string) ([]decimal.Decimal, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	out := make([]decimal.Decimal, 0, len(fields))
	for _, f := range fields {
		d, err := decimal.NewFromString(strings.TrimSuffix(f, "%"))
		if err != nil {
			return nil, fmt.Errorf("invalid percentage %q: %w", f, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// ParseContemplationModes parses the comma separated list stored with the rule
func ParseContemplationModes(raw string) []ContemplationMode {
	var modes []ContemplationMode
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		modes = append(modes, ContemplationMode(part))
	}
	return modes
}
