// Package normalize implements the Name Normalizer (C2): a deterministic,
// side-effect-free pipeline collapsing orthographic variation in free-form
// exercise names without losing their identity.
package normalize

import (
	"regexp"
	"strings"
)

var (
	setLabelPrefix  = regexp.MustCompile(`^[a-z]\d+[;:\s]+`)
	parenWeightSpec = regexp.MustCompile(`\([^)]*\)`)
	repMarkerSuffix = regexp.MustCompile(`\s*x\d+.*$`)
	perSideSuffix   = regexp.MustCompile(`\s*(each|per)\s+(side|arm|leg)\b.*$`)
	leadingDistance = regexp.MustCompile(`^\d+(\.\d+)?\s*(m|km|mi)\b\s*`)
	trailingDistance = regexp.MustCompile(`\s+\d+(\.\d+)?\s*(m|km|mi)\b$`)
	whitespaceRun   = regexp.MustCompile(`\s+`)

	// strayTrailingToken catches a bare set/rep count (or other numeric
	// noise) left dangling after the earlier steps strip its unit or
	// marker, e.g. "bench press 3" -> "bench press". Scoped to purely
	// numeric tokens rather than "any single word" so it never eats a
	// one-word movement name like "deadlift" or "burpees".
	strayTrailingToken = regexp.MustCompile(`\s+\d+$`)
)

// equipmentPrefixes are stripped when they appear as a leading token,
// e.g. "db bench press" -> "bench press".
var equipmentPrefixes = []string{"db", "kb", "bb", "sb", "mb", "trx", "cable", "band"}

// Name runs the full seven-step pipeline from spec.md §4.2 against a
// free-form exercise name and returns a lower-case, punctuation-light,
// order-preserving normalized form.
//
// Name is idempotent: Name(Name(x)) == Name(x), which is exercised directly
// in normalize_test.go since it is a universal invariant (spec.md §8.6).
func Name(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(strings.TrimSpace(s), "|")
	s = strings.TrimSpace(s)

	s = setLabelPrefix.ReplaceAllString(s, "")

	s = parenWeightSpec.ReplaceAllString(s, "")

	s = stripEquipmentPrefix(s)

	s = repMarkerSuffix.ReplaceAllString(s, "")
	s = perSideSuffix.ReplaceAllString(s, "")

	s = leadingDistance.ReplaceAllString(s, "")
	s = trailingDistance.ReplaceAllString(s, "")

	s = strayTrailingToken.ReplaceAllString(s, "")

	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	return s
}

func stripEquipmentPrefix(s string) string {
	for _, prefix := range equipmentPrefixes {
		if s == prefix {
			return s
		}
		if strings.HasPrefix(s, prefix+" ") {
			return strings.TrimSpace(strings.TrimPrefix(s, prefix+" "))
		}
	}
	return s
}
