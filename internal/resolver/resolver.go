// Package resolver implements the Mapping Resolver (C4): the layered
// resolution cascade user override -> crowd popularity -> curated rules ->
// catalog fuzzy -> canonical classifier -> fallback, grounded in
// original_source/backend/adapters/blocks_to_hyrox_yaml.go's
// map_exercise_to_garmin.
package resolver

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/supergeri/workoutcanonicalmapper/internal/catalog"
	"github.com/supergeri/workoutcanonicalmapper/internal/category"
	"github.com/supergeri/workoutcanonicalmapper/internal/fuzzy"
	"github.com/supergeri/workoutcanonicalmapper/internal/normalize"
)

// Provenance is the origin of a mapping decision.
type Provenance string

const (
	ProvenanceUser      Provenance = "user"
	ProvenancePopular   Provenance = "popular"
	ProvenanceCurated   Provenance = "curated"
	ProvenanceFuzzy     Provenance = "fuzzy"
	ProvenanceCanonical Provenance = "canonical"
	ProvenanceFallback  Provenance = "fallback"
)

// Resolution is the ephemeral record produced per lookup (spec.md §3). It
// is created by Resolve, consumed by the Category Engine and Step Compiler,
// and never persisted.
type Resolution struct {
	OriginalName    string      `json:"originalName"`
	NormalizedName  string      `json:"normalizedName"`
	DisplayName     string      `json:"displayName"`
	CategoryID      category.ID `json:"categoryId"`
	Confidence      float64     `json:"confidence"`
	Provenance      Provenance  `json:"provenance"`
	PopularityCount int         `json:"popularityCount,omitempty"`
	Reason          string      `json:"reason,omitempty"`

	// CatalogFitExerciseID is the catalog's pre-assigned FIT SDK exercise
	// name id for DisplayName, when the catalog has one on file (e.g. 37
	// for Goblet Squat). nil means the caller must assign a sequential id.
	CatalogFitExerciseID *int `json:"catalogFitExerciseId,omitempty"`
}

// UserMappingStore looks up a per-user override: normalized original name
// -> catalog display name.
type UserMappingStore interface {
	Get(userID, normalizedName string) (displayName string, ok bool)
}

// PopularityStore looks up the crowd's most popular mapping choice for a
// normalized name, and its vote count.
type PopularityStore interface {
	MostPopular(normalizedName string) (displayName string, count int, ok bool)
}

// CuratedRule is one (substring -> display name) entry, with the lookup
// performed longest-substring-first. Grounded in blocks_to_hyrox_yaml.go's
// hardcoded `mappings` dict.
type CuratedRule struct {
	Key     string
	Display string
}

// DefaultCuratedRules is a small curated table of common shorthand ->
// canonical display-name substitutions; New copies it and sorts the copy
// longest-key-first.
var DefaultCuratedRules = []CuratedRule{
	{"bulgarian split squat", "Bulgarian Split Squat"},
	{"romanian deadlift", "Romanian Deadlift"},
	{"barbell back squat", "Barbell Back Squat"},
	{"goblet squat", "Goblet Squat"},
	{"push up", "Push Up"},
	{"pull up", "Pull Up"},
	{"bench press", "Barbell Bench Press"},
	{"deadlift", "Barbell Deadlift"},
	{"squat", "Barbell Back Squat"},
}

// Resolver ties the catalog, a curated rule table, and optional user/
// popularity stores together into the layered cascade of spec.md §4.4.
type Resolver struct {
	Catalog     *catalog.Store
	Curated     []CuratedRule
	UserStore   UserMappingStore
	Popularity  PopularityStore
	// FuzzyThreshold is the score floor for the catalog-fuzzy layer.
	// spec.md §4.4 fixes this at 0.40.
	FuzzyThreshold float64
}

// New builds a Resolver with the default curated rule table and a 0.40
// fuzzy floor. UserStore/Popularity may be left nil to skip those layers
// (e.g. for a stateless CLI invocation).
func New(cat *catalog.Store, userStore UserMappingStore, popularity PopularityStore) *Resolver {
	curated := make([]CuratedRule, len(DefaultCuratedRules))
	copy(curated, DefaultCuratedRules)
	sortCuratedLongestFirst(curated)

	return &Resolver{
		Catalog:        cat,
		Curated:        curated,
		UserStore:      userStore,
		Popularity:     popularity,
		FuzzyThreshold: 0.40,
	}
}

func sortCuratedLongestFirst(rules []CuratedRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].Key) > len(rules[j].Key)
	})
}

// Resolve runs the full cascade for one exercise name. userID may be empty
// if no user-mapping layer applies (e.g. anonymous/bulk contexts without a
// caller-scoped override store).
func (r *Resolver) Resolve(userID, rawName string) Resolution {
	normName := normalize.Name(rawName)

	if r.UserStore != nil && userID != "" {
		if display, ok := r.UserStore.Get(userID, normName); ok {
			return r.finish(rawName, normName, display, 1.0, ProvenanceUser,
				0, "chosen from your saved preferences")
		}
	}

	if r.Popularity != nil {
		if display, count, ok := r.Popularity.MostPopular(normName); ok {
			// Rounded to two decimals so 0.70+0.05*4 reads 0.90, not 0.8999...
			confidence := math.Round((0.70+0.05*float64(count))*100) / 100
			if confidence > 0.95 {
				confidence = 0.95
			}
			reason := fmt.Sprintf("chosen as popular choice by %d users", count)
			return r.finish(rawName, normName, display, confidence, ProvenancePopular, count, reason)
		}
	}

	if display, confidence, ok := r.matchCurated(normName); ok {
		return r.finish(rawName, normName, display, confidence, ProvenanceCurated,
			0, "chosen as a commonly used mapping")
	}

	if r.Catalog != nil {
		if m, found := fuzzy.BestMatch(normName, r.Catalog.DisplayNames()); found && m.Score >= r.FuzzyThreshold {
			return r.finish(rawName, normName, m.Candidate, m.Score, ProvenanceFuzzy,
				0, "chosen as closest match")
		}
	}

	if canon, ok := canonicalClassify(normName); ok {
		return r.finish(rawName, normName, canon, 0.50, ProvenanceCanonical,
			0, "chosen from a canonical exercise family")
	}

	fallback := titleCase(normName)
	return r.finish(rawName, normName, fallback, 0.0, ProvenanceFallback,
		0, "used name as-is (no match found)")
}

func (r *Resolver) finish(raw, norm, display string, confidence float64, prov Provenance, count int, reason string) Resolution {
	catID := category.Core
	var fitID *int
	if r.Catalog != nil {
		m := r.Catalog.Lookup(display)
		catID = m.CategoryID
		if entry, ok := r.Catalog.Get(display); ok {
			fitID = entry.FitExerciseID
		}
	} else {
		catID = category.Classify(norm, nil)
	}

	return Resolution{
		OriginalName:         raw,
		NormalizedName:       norm,
		DisplayName:          display,
		CategoryID:           category.Remap(catID),
		Confidence:           clamp01(confidence),
		Provenance:           prov,
		PopularityCount:      count,
		Reason:               reason,
		CatalogFitExerciseID: fitID,
	}
}

func (r *Resolver) matchCurated(normName string) (display string, confidence float64, ok bool) {
	for _, rule := range r.Curated {
		if normName == rule.Key {
			return rule.Display, 1.0, true
		}
	}
	for _, rule := range r.Curated {
		if strings.Contains(normName, rule.Key) {
			return rule.Display, 0.95, true
		}
	}
	return "", 0, false
}

// canonicalClassify returns a canonical movement-family token when the
// normalized name clearly belongs to one, independent of the catalog
// contents. This is the "independent classifier" of spec.md §4.4 step 5.
func canonicalClassify(normName string) (string, bool) {
	canonical := map[string]string{
		"squat":    "Goblet Squat",
		"push up":  "Push Up",
		"pull up":  "Pull Up",
		"deadlift": "Barbell Deadlift",
		"row":      "Barbell Row",
		"lunge":    "Lunge",
		"plank":    "Plank",
		"burpee":   "Burpee",
	}
	// Iterate keys longest-first (ties broken alphabetically) so two
	// families both matching normName (e.g. "squat" and "row" in "squat
	// row hybrid") resolve to the same family every run.
	keys := make([]string, 0, len(canonical))
	for key := range canonical {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		if strings.Contains(normName, key) {
			return canonical[key], true
		}
	}
	return "", false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
