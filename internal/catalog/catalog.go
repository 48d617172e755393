// Package catalog implements the Catalog Store (C1): the Garmin exercise
// catalog (name -> category/display/fit id), keyword rules, and the
// builtin cardio-override synonyms, grounded in
// original_source/backend/adapters/garmin_lookup.py's GarminExerciseLookup.
package catalog

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/supergeri/workoutcanonicalmapper/internal/category"
	"github.com/supergeri/workoutcanonicalmapper/internal/fuzzy"
	"github.com/supergeri/workoutcanonicalmapper/internal/normalize"
)

// Entry is one immutable row of the catalog, loaded once at process start
// and never mutated thereafter.
type Entry struct {
	DisplayName      string
	NormalizedKey    string
	CategoryID       category.ID
	FitExerciseID    *int
	Aliases          []string
}

// MatchType classifies how Lookup resolved a name, mirroring
// garmin_lookup.py's match_type values.
type MatchType string

const (
	MatchExact                MatchType = "exact"
	MatchExactCategoryOverride MatchType = "exact_with_category_override"
	MatchBuiltinKeyword        MatchType = "builtin_keyword"
	MatchKeyword               MatchType = "keyword"
	MatchFuzzy                 MatchType = "fuzzy"
	MatchDefault               MatchType = "default"
)

// Match is the result of Lookup.
type Match struct {
	CategoryID   category.ID
	CategoryName string
	ExerciseKey  string
	DisplayName  string
	MatchType    MatchType
}

// keywordRule is one (substring, target) entry in the configured keyword
// table, checked after builtin keywords and before fuzzy.
type keywordRule struct {
	Substring string
	Category  category.ID
	Display   string
}

// builtinSynonym is a cardio-machine/activity keyword that overrides a
// category-32 (Run) classification to category-2 (Cardio), so a workout
// mixing outdoor running with erg/bike work doesn't get misclassified as
// pure running. See garmin_lookup.py's builtin_keywords table.
type builtinSynonym struct {
	Keyword  string
	Category category.ID
	Display  string
}

var defaultBuiltinSynonyms = []builtinSynonym{
	{"running", category.Run, "Running"},
	{"run", category.Run, "Running"},
	{"jog", category.Run, "Running"},
	{"sprint", category.Run, "Running"},
	{"ski erg", category.Cardio, "Ski Erg"},
	{"ski mogul", category.Cardio, "Ski Mogul"},
	{"ski", category.Cardio, "Skiing"},
	{"row erg", category.Cardio, "Indoor Rower"},
	{"rower", category.Cardio, "Indoor Rower"},
	{"indoor row", category.Cardio, "Indoor Rower"},
	{"assault bike", category.Cardio, "Assault Bike"},
	{"echo bike", category.Cardio, "Echo Bike"},
	{"air bike", category.Cardio, "Air Bike"},
	{"bike erg", category.Cardio, "Bike Erg"},
}

// Store is the process-wide, read-only catalog snapshot. Loaded once at
// startup; safe for concurrent reads with no locking, per spec.md §5.
type Store struct {
	exercises map[string]Entry // keyed by normalized name
	keywords  []keywordRule
	synonyms  []builtinSynonym
	keys      []string // all normalized keys, cached for fuzzy scans
	displays  []string // all display names, cached for fuzzy scans
}

// dictEntry is the on-disk JSON shape for one catalog row.
type dictEntry struct {
	Display       string   `json:"display_name"`
	Category      int      `json:"category_id"`
	FitExerciseID *int     `json:"fit_exercise_name_id,omitempty"`
	Aliases       []string `json:"aliases,omitempty"`
}

// dictFile is the on-disk JSON shape for a full catalog dictionary.
type dictFile struct {
	Exercises map[string]dictEntry `json:"exercises"`
	Keywords  []struct {
		Substring string `json:"substring"`
		Category  int    `json:"category_id"`
		Display   string `json:"display_name"`
	} `json:"keywords"`
}

// New builds an empty store; use Load or LoadJSON to populate it.
func New() *Store {
	return &Store{
		exercises: make(map[string]Entry),
		synonyms:  defaultBuiltinSynonyms,
	}
}

// LoadJSON parses raw catalog JSON (see dictFile) into the store, replacing
// any previously loaded exercises/keywords. It does not touch the builtin
// synonym table, which is fixed by this package.
func (s *Store) LoadJSON(raw []byte) error {
	var df dictFile
	if err := json.Unmarshal(raw, &df); err != nil {
		return err
	}

	s.exercises = make(map[string]Entry, len(df.Exercises))
	for key, e := range df.Exercises {
		normKey := normalize.Name(key)
		s.exercises[normKey] = Entry{
			DisplayName:   e.Display,
			NormalizedKey: normKey,
			CategoryID:    category.ID(e.Category),
			FitExerciseID: e.FitExerciseID,
			Aliases:       e.Aliases,
		}
	}

	s.keywords = s.keywords[:0]
	for _, k := range df.Keywords {
		s.keywords = append(s.keywords, keywordRule{
			Substring: k.Substring,
			Category:  category.ID(k.Category),
			Display:   k.Display,
		})
	}

	s.rebuildCaches()
	return nil
}

// Add inserts or overwrites a single catalog row, keyed by its normalized
// display name. Useful for tests and for seeding a store without a JSON
// dictionary file.
func (s *Store) Add(displayName string, catID category.ID, fitID *int) {
	normKey := normalize.Name(displayName)
	s.exercises[normKey] = Entry{
		DisplayName:   displayName,
		NormalizedKey: normKey,
		CategoryID:    catID,
		FitExerciseID: fitID,
	}
	s.rebuildCaches()
}

// AddKeywordRule appends one (substring, category, display) rule to the
// keyword table. Rules are tried in insertion order, so callers should add
// more specific substrings first.
func (s *Store) AddKeywordRule(substring string, catID category.ID, display string) {
	s.keywords = append(s.keywords, keywordRule{Substring: substring, Category: catID, Display: display})
}

func (s *Store) rebuildCaches() {
	s.keys = s.keys[:0]
	for k := range s.exercises {
		s.keys = append(s.keys, k)
	}
	// Sort by normalized key so two fuzzy candidates tying on score and
	// length compare their catalog position the same way across runs and
	// restarts, rather than however Go's map iteration happened to land.
	sort.Strings(s.keys)

	s.displays = s.displays[:0]
	for _, k := range s.keys {
		s.displays = append(s.displays, s.exercises[k].DisplayName)
	}
}

// Lookup resolves a raw exercise name against the catalog, following the
// fixed attempt order from spec.md §4.1: exact normalized match (with a
// category-32 cardio override check) -> builtin keyword substring scan ->
// configured keyword substring scan -> fuzzy (threshold 0.60) -> default to
// Core (category 5).
//
// Lookup is pure given the catalog snapshot: the same raw name always
// produces the same Match.
func (s *Store) Lookup(rawName string) Match {
	normName := normalize.Name(rawName)
	lower := strings.ToLower(normName)

	if entry, ok := s.exercises[normName]; ok {
		if entry.CategoryID == category.Run {
			if syn, found := s.matchSynonym(lower); found && syn.Category != category.Run {
				return Match{
					CategoryID:   syn.Category,
					CategoryName: category.Name(syn.Category),
					ExerciseKey:  normName,
					DisplayName:  entry.DisplayName,
					MatchType:    MatchExactCategoryOverride,
				}
			}
		}
		return Match{
			CategoryID:   entry.CategoryID,
			CategoryName: category.Name(entry.CategoryID),
			ExerciseKey:  normName,
			DisplayName:  entry.DisplayName,
			MatchType:    MatchExact,
		}
	}

	if syn, found := s.matchSynonym(lower); found {
		return Match{
			CategoryID:   syn.Category,
			CategoryName: category.Name(syn.Category),
			DisplayName:  syn.Display,
			MatchType:    MatchBuiltinKeyword,
		}
	}

	for _, kw := range s.keywords {
		if strings.Contains(lower, kw.Substring) {
			return Match{
				CategoryID:   kw.Category,
				CategoryName: category.Name(kw.Category),
				DisplayName:  kw.Display,
				MatchType:    MatchKeyword,
			}
		}
	}

	if len(s.displays) > 0 {
		if m, found := fuzzy.BestMatch(normName, s.displays); found && m.Score >= 0.60 {
			if entry, ok := s.exercises[normalize.Name(m.Candidate)]; ok {
				return Match{
					CategoryID:   entry.CategoryID,
					CategoryName: category.Name(entry.CategoryID),
					ExerciseKey:  entry.NormalizedKey,
					DisplayName:  entry.DisplayName,
					MatchType:    MatchFuzzy,
				}
			}
		}
	}

	return Match{
		CategoryID:   category.Core,
		CategoryName: category.Name(category.Core),
		MatchType:    MatchDefault,
	}
}

func (s *Store) matchSynonym(lowerNormName string) (builtinSynonym, bool) {
	for _, syn := range s.synonyms {
		if strings.Contains(lowerNormName, syn.Keyword) {
			return syn, true
		}
	}
	return builtinSynonym{}, false
}

// DisplayNames returns every catalog display name, for callers (resolver,
// suggestion service) that need the full candidate set for fuzzy scoring.
func (s *Store) DisplayNames() []string {
	out := make([]string, len(s.displays))
	copy(out, s.displays)
	return out
}

// Get returns the catalog entry for a raw name's normalized form, if an
// exact entry exists.
func (s *Store) Get(rawName string) (Entry, bool) {
	e, ok := s.exercises[normalize.Name(rawName)]
	return e, ok
}

// EntriesInCategory returns the display names of every catalog entry in
// catID other than exclude, for the Validation Workflow's same-category
// alternative suggestions (spec.md §4.12).
func (s *Store) EntriesInCategory(catID category.ID, exclude string) []string {
	var out []string
	for _, e := range s.exercises {
		if e.CategoryID == catID && e.DisplayName != exclude {
			out = append(out, e.DisplayName)
		}
	}
	return out
}
