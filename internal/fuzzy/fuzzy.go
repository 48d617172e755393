// Package fuzzy implements the Fuzzy Matcher (C3): token-set similarity
// ranking with a length penalty and a curated alias short-circuit, grounded
// in original_source/backend/mapping/exercise_name_matcher.go and
// original_source/backend/core/garmin_matcher.py.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/supergeri/workoutcanonicalmapper/internal/normalize"
)

// DefaultThresholdShort is applied to single-word queries <= 5 characters.
const DefaultThresholdShort = 0.85

// DefaultThresholdLong is applied to every other query.
const DefaultThresholdLong = 0.70

// AliasMap is a curated substitution table applied before similarity
// scoring. If the alias target is itself present among the candidates, it
// short-circuits the match with score 1.0. Grounded in
// exercise_name_matcher.py's ALIAS_MAP, trimmed to entries that matter once
// Name normalization has already run equipment/rep-marker stripping.
var AliasMap = map[string]string{
	"pushup":              "push up",
	"pushups":             "push up",
	"press up":            "push up",
	"pressup":             "push up",
	"bench":               "barbell bench press",
	"flat bench":          "barbell bench press",
	"incline bench":       "incline barbell bench press",
	"decline bench":       "decline barbell bench press",
	"squat":               "barbell back squat",
	"back squat":          "barbell back squat",
	"front squat":         "barbell front squat",
	"air squat":           "air squat",
	"bodyweight squat":    "air squat",
	"deadlift":            "barbell deadlift",
	"rdl":                 "romanian deadlift",
	"romanian dl":         "romanian deadlift",
	"sldl":                "romanian deadlift",
	"shoulder press":      "barbell overhead press",
	"military press":      "barbell overhead press",
	"strict press":        "barbell overhead press",
	"row":                 "barbell row",
	"bent over row":       "barbell row",
	"pendlay row":         "barbell row",
	"seated row":          "cable row",
	"pullup":              "pull up",
	"chinup":              "chin up",
	"pulldown":            "lat pulldown",
	"hip thrusts":         "hip thrust",
	"bridge":              "glute bridge",
	"curl":                "bicep curl",
	"hammer curls":        "hammer curl",
	"skull crushers":      "skull crusher",
	"pushdown":            "tricep pushdown",
	"dips":                "dip",
	"lunges":              "lunge",
	"walking lunges":      "walking lunge",
	"bss":                 "bulgarian split squat",
	"situp":               "sit up",
	"russian twists":      "russian twist",
	"ab rollout":          "ab wheel rollout",
	"wall balls":          "wall ball",
	"burpees":             "burpee",
	"box jumps":           "box jump",
	"kettlebell swings":   "kettlebell swing",
	"thrusters":           "thruster",
	"muscle ups":          "muscle up",
	"t2b":                 "toes to bar",
	"ttb":                 "toes to bar",
	"k2e":                 "knees to elbow",
	"du":                  "double under",
	"dus":                 "double under",
	"run":                 "running",
	"jog":                 "running",
	"sprint":              "running",
	"bike":                "cycling",
	"airdyne":             "assault bike",
	"skierg":              "ski erg",
	"skipping":            "jump rope",
	"stretch":             "stretching",
	"foam roll":           "foam rolling",
}

// Match is one scored candidate.
type Match struct {
	Candidate string
	Score     float64 // 0..1
}

// BestMatch returns the best-scoring candidate for query among choices, or
// found=false if choices is empty or nothing scores above 0. Candidates are
// matched on their own normalized form; the returned Candidate is the
// original (un-normalized) string from choices.
func BestMatch(query string, choices []string) (m Match, found bool) {
	top := TopMatches(query, choices, 1, 0)
	if len(top) == 0 || top[0].Score <= 0 {
		return Match{}, false
	}
	return top[0], true
}

// TopMatches returns up to limit candidates scoring >= cutoff, sorted by
// score descending, then by shorter display name (generic terms prefer
// shorter entries), matching garmin_matcher.py's tie-break.
func TopMatches(query string, choices []string, limit int, cutoff float64) []Match {
	normQuery := normalize.Name(query)
	if normQuery == "" || len(choices) == 0 {
		return nil
	}

	if alias, ok := AliasMap[normQuery]; ok {
		for _, c := range choices {
			if normalize.Name(c) == alias {
				return []Match{{Candidate: c, Score: 1.0}}
			}
		}
	}

	scored := make([]Match, 0, len(choices))
	for _, c := range choices {
		normCand := normalize.Name(c)
		if normCand == "" {
			continue
		}
		raw := tokenSetRatio(normQuery, normCand)
		adjusted := applyLengthPenalty(raw, normQuery, normCand)
		if adjusted >= cutoff {
			scored = append(scored, Match{Candidate: c, Score: adjusted})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return len(scored[i].Candidate) < len(scored[j].Candidate)
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// DefaultThreshold picks 0.85 for a single-word query of 5 characters or
// fewer, 0.70 otherwise, per spec.md §4.3.
func DefaultThreshold(query string) float64 {
	q := normalize.Name(query)
	if !strings.Contains(q, " ") && len(q) <= 5 {
		return DefaultThresholdShort
	}
	return DefaultThresholdLong
}

// applyLengthPenalty implements spec.md §4.3's
// adjusted = raw * (1 - 0.2*|len(cand)-len(query)|/max(len)).
func applyLengthPenalty(raw float64, query, candidate string) float64 {
	lq, lc := len(query), len(candidate)
	maxLen := lq
	if lc > maxLen {
		maxLen = lc
	}
	if maxLen == 0 {
		return raw
	}
	diff := lc - lq
	if diff < 0 {
		diff = -diff
	}
	penalty := 0.2 * float64(diff) / float64(maxLen)
	return raw * (1 - penalty)
}

// tokenSetRatio is a token-set similarity measure in [0,1]: order
// insensitive and duplicate tolerant, modeled on rapidfuzz's
// token_set_ratio. Both strings are split into a set of unique tokens; the
// ratio is the size of the intersection over the size of the union
// (Jaccard), which gives the same order/duplicate-insensitivity property
// the original library provides without pulling in a C-extension-backed
// dependency.
func tokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	tokens := strings.Fields(s)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
