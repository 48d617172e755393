// Package validation implements the Validation Workflow (C12): a read-only
// walk of a Blocks Model that classifies every exercise as valid,
// needs_review, or unmapped before the caller commits to compiling and
// exporting it. Grounded in original_source/backend/core/workflow.py's
// validate_workout.
package validation

import (
	"fmt"

	"github.com/supergeri/workoutcanonicalmapper/internal/blocks"
	"github.com/supergeri/workoutcanonicalmapper/internal/catalog"
	"github.com/supergeri/workoutcanonicalmapper/internal/fuzzy"
	"github.com/supergeri/workoutcanonicalmapper/internal/normalize"
	"github.com/supergeri/workoutcanonicalmapper/internal/resolver"
)

// Status classifies one exercise's resolution, per spec.md §4.12.
type Status string

const (
	StatusValid       Status = "valid"
	StatusNeedsReview Status = "needs_review"
	StatusUnmapped    Status = "unmapped"
)

// DefaultThreshold is the confidence floor below which a match is demoted
// to needs_review even if the resolver found one.
const DefaultThreshold = 0.85

// genericTerms are bare movement-family words that are never accepted as a
// confident match on their own, regardless of resolver confidence: "Push",
// "Carry", "Squat" and similar are too ambiguous to export without a human
// glance.
var genericTerms = map[string]bool{
	"push": true, "pull": true, "press": true, "carry": true, "squat": true,
	"row": true, "lunge": true, "curl": true, "raise": true, "extension": true,
}

// Suggestion is one alternative display name offered for a needs_review or
// unmapped exercise.
type Suggestion struct {
	DisplayName string  `json:"displayName"`
	Score       float64 `json:"score"`
}

// ExerciseReport is one walked exercise's location, resolution, and status.
type ExerciseReport struct {
	OriginalName string              `json:"originalName"`
	BlockLabel   string              `json:"blockLabel"`
	Path         string              `json:"path"` // e.g. "Block 2 > Superset 1 > Exercise 3"
	Resolution   resolver.Resolution `json:"resolution"`
	Status       Status              `json:"status"`
	Suggestions  []Suggestion        `json:"suggestions,omitempty"`
}

// Report is the full walk result, per spec.md §4.12.
type Report struct {
	Exercises  []ExerciseReport `json:"exercises"`
	CanProceed bool             `json:"canProceed"`
}

// Options customizes validation.
type Options struct {
	// Threshold overrides DefaultThreshold.
	Threshold float64
	// AutoProceed forces CanProceed=true even with unmapped exercises,
	// so a downstream driver can force encoding using fallback names.
	AutoProceed bool
	// UserID is passed through to the resolver's user-override layer.
	UserID string
}

// Validate walks w, resolves every exercise via r, and classifies each.
func Validate(w blocks.Workout, r *resolver.Resolver, opts Options) Report {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var reports []ExerciseReport
	anyUnmapped := false

	for bi, b := range w.Blocks {
		label := b.Label
		if label == "" {
			label = fmt.Sprintf("Block %d", bi+1)
		}
		for ei, ex := range b.Exercises {
			path := fmt.Sprintf("%s > Exercise %d", label, ei+1)
			rep := classify(ex, path, label, r, opts.UserID, threshold)
			if rep.Status == StatusUnmapped {
				anyUnmapped = true
			}
			reports = append(reports, rep)
		}
		for si, ss := range b.Supersets {
			for ei, ex := range ss.Exercises {
				path := fmt.Sprintf("%s > Superset %d > Exercise %d", label, si+1, ei+1)
				rep := classify(ex, path, label, r, opts.UserID, threshold)
				if rep.Status == StatusUnmapped {
					anyUnmapped = true
				}
				reports = append(reports, rep)
			}
		}
	}

	return Report{
		Exercises:  reports,
		CanProceed: !anyUnmapped || opts.AutoProceed,
	}
}

// Classify applies spec.md §4.12's two-part rule to an already-resolved
// Resolution, independent of where it was walked from. The Bulk Import
// Orchestrator's match phase (C13) reuses this to classify distinct
// exercise names without re-walking a Blocks Model.
func Classify(res resolver.Resolution, threshold float64) Status {
	switch {
	case res.Provenance == resolver.ProvenanceFallback:
		return StatusUnmapped
	case res.Confidence >= threshold && !isGeneric(res.NormalizedName):
		return StatusValid
	default:
		return StatusNeedsReview
	}
}

// IsGenericTerm reports whether a normalized name is one of the bare
// movement-family words spec.md §4.12 never accepts as a confident match.
func IsGenericTerm(normalizedName string) bool {
	return isGeneric(normalizedName)
}

func classify(ex blocks.Exercise, path, blockLabel string, r *resolver.Resolver, userID string, threshold float64) ExerciseReport {
	res := r.Resolve(userID, ex.Name)
	status := Classify(res, threshold)

	rep := ExerciseReport{
		OriginalName: ex.Name,
		BlockLabel:   blockLabel,
		Path:         path,
		Resolution:   res,
		Status:       status,
	}
	if status != StatusValid && r.Catalog != nil {
		rep.Suggestions = Suggestions(ex.Name, res, r.Catalog)
	}
	return rep
}

func isGeneric(normalizedName string) bool {
	return genericTerms[normalizedName]
}

// Suggestions assembles spec.md §4.12's "top-N similar; same-category
// alternatives" suggestion list for one exercise: up to 3 catalog fuzzy
// matches, then other entries sharing the resolved category until the list
// holds 5. Shared
// with the Bulk Import Orchestrator's match phase (C13).
func Suggestions(name string, res resolver.Resolution, cat *catalog.Store) []Suggestion {
	var out []Suggestion
	seen := map[string]bool{res.DisplayName: true}

	for _, m := range fuzzy.TopMatches(normalize.Name(name), cat.DisplayNames(), 3, 0.30) {
		if seen[m.Candidate] {
			continue
		}
		seen[m.Candidate] = true
		out = append(out, Suggestion{DisplayName: m.Candidate, Score: m.Score})
	}

	for _, alt := range cat.EntriesInCategory(res.CategoryID, res.DisplayName) {
		if len(out) >= 5 {
			break
		}
		if seen[alt] {
			continue
		}
		seen[alt] = true
		out = append(out, Suggestion{DisplayName: alt, Score: 0})
	}

	return out
}
