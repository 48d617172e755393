// Package suggest implements the Exercise Suggestion Service: finding
// alternatives when a mapping fails or needs review. A supplement to the
// distilled spec (see SPEC_FULL.md §4.14), grounded in
// original_source/backend/core/exercise_suggestions.py's
// find_similar_exercises and find_exercises_by_type.
package suggest

import (
	"strings"

	"github.com/supergeri/workoutcanonicalmapper/internal/catalog"
	"github.com/supergeri/workoutcanonicalmapper/internal/fuzzy"
	"github.com/supergeri/workoutcanonicalmapper/internal/normalize"
)

// Suggestion is one ranked alternative.
type Suggestion struct {
	Name  string
	Score float64
}

// DefaultLimit and DefaultMinScore mirror the original's limit=10,
// min_score=50 (rescaled here to the package's 0..1 score range).
const (
	DefaultLimit    = 10
	DefaultMinScore = 0.50
)

// FindSimilar ranks catalog exercises against name using the same fuzzy
// token-set similarity C3 uses, capped to limit results scoring at least
// minScore.
func FindSimilar(name string, cat *catalog.Store, limit int, minScore float64) []Suggestion {
	if limit <= 0 {
		limit = DefaultLimit
	}
	matches := fuzzy.TopMatches(name, cat.DisplayNames(), limit, minScore)
	out := make([]Suggestion, len(matches))
	for i, m := range matches {
		out[i] = Suggestion{Name: m.Candidate, Score: m.Score}
	}
	return out
}

// movementKeywords are the coarse movement-family tokens used to find
// "exercises of the same type" (all squats, all push-ups, ...), taken
// verbatim from exercise_suggestions.py's movement_keywords list.
var movementKeywords = []string{
	"squat", "press", "push", "pull", "row", "curl", "flye", "extension",
	"deadlift", "lunge", "plank", "crunch", "situp", "burpee", "jump",
	"swing", "carry", "drag", "pullup", "chinup", "dip", "raise", "shrug",
}

// FindByType returns catalog exercises sharing a movement-family keyword
// with name (e.g. querying "Goblet Squat" also surfaces "Barbell Back
// Squat"). If no keyword matches, it falls back to treating the whole
// normalized name as the keyword, matching the original's fallback.
func FindByType(name string, cat *catalog.Store, limit int) []Suggestion {
	if limit <= 0 {
		limit = 20
	}
	normName := normalize.Name(name)

	var keywords []string
	for _, kw := range movementKeywords {
		if strings.Contains(normName, kw) {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) == 0 {
		keywords = []string{normName}
	}

	var out []Suggestion
	seen := map[string]bool{}
	for _, display := range cat.DisplayNames() {
		if len(out) >= limit {
			break
		}
		if seen[display] {
			continue
		}
		normDisplay := normalize.Name(display)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(normDisplay, kw) {
				out = append(out, Suggestion{Name: display, Score: 1.0})
				seen[display] = true
				break
			}
		}
	}
	return out
}
