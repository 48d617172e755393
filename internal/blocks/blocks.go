// Package blocks implements the Blocks Model (C7): the canonical,
// immutable workout representation that parsers and the manual editor
// produce and the Step Compiler consumes. Grounded in
// original_source/backend/core/models.py's Workout/Block/Exercise dataclasses.
package blocks

import (
	"fmt"
	"strings"
)

// RestType distinguishes a timed rest from one the athlete advances past
// with the watch's lap button.
type RestType string

const (
	RestTimed  RestType = "timed"
	RestButton RestType = "button"
)

// EndCondition is a sum type over an Exercise's primary stopping condition.
// Exactly one field group is populated; Kind says which. This replaces the
// original's "whichever field is non-nil wins" convention with an explicit
// discriminant, per the redesign note in spec.md.
type EndConditionKind int

const (
	EndOpen EndConditionKind = iota
	EndReps
	EndRepsRange
	EndDuration
	EndDistance
)

// EndCondition carries exactly the fields relevant to its Kind.
type EndCondition struct {
	Kind EndConditionKind `json:"kind"`

	Reps int `json:"reps,omitempty"` // EndReps

	RepsLow  int `json:"repsLow,omitempty"`  // EndRepsRange
	RepsHigh int `json:"repsHigh,omitempty"` // EndRepsRange

	DurationSec int `json:"durationSec,omitempty"` // EndDuration

	DistanceM float64 `json:"distanceM,omitempty"` // EndDistance
}

func Open() EndCondition                { return EndCondition{Kind: EndOpen} }
func Reps(n int) EndCondition           { return EndCondition{Kind: EndReps, Reps: n} }
func RepsRange(lo, hi int) EndCondition { return EndCondition{Kind: EndRepsRange, RepsLow: lo, RepsHigh: hi} }
func Duration(sec int) EndCondition     { return EndCondition{Kind: EndDuration, DurationSec: sec} }
func Distance(meters float64) EndCondition {
	return EndCondition{Kind: EndDistance, DistanceM: meters}
}

// WarmUp is a block-level or exercise-level warm-up spec: either an
// activity with a duration, or a bare lap-button instruction.
type WarmUp struct {
	LapButton   bool   `json:"lapButton"`
	Activity    string `json:"activity,omitempty"` // ignored when LapButton is true
	DurationSec int    `json:"durationSec,omitempty"`
}

// IntensityKind selects which physiological channel a Target scales.
type IntensityKind int

const (
	IntensityNone IntensityKind = iota
	IntensityPower
	IntensityPace
	IntensityHR
	IntensityRPE
)

// Target is an optional intensity target on an Exercise (power %FTP, pace
// scalar, HR%, or RPE), consumed by the ZWO Encoder (C10) per spec.md
// §4.10. Min==Max encodes a single value; Min<Max encodes a range.
type Target struct {
	Kind IntensityKind `json:"kind"`
	Min  float64       `json:"min,omitempty"`
	Max  float64       `json:"max,omitempty"`
}

// Exercise is one movement within a Block or Superset.
type Exercise struct {
	Name string       `json:"name"`
	End  EndCondition `json:"end"`

	Sets int `json:"sets,omitempty"` // >= 1; 0 means unspecified (compiled as 1)

	RestSec  int      `json:"restSec,omitempty"`
	RestType RestType `json:"restType,omitempty"`

	WarmupSets int `json:"warmupSets,omitempty"`
	WarmupReps int `json:"warmupReps,omitempty"`

	// MappedName is a pre-resolved catalog display name supplied by the
	// caller (e.g. a manual editor that already ran C4). When set, the
	// Step Compiler resolves it through C4 in place of Name.
	MappedName string `json:"mappedName,omitempty"`

	// Target is an optional intensity target (power/pace/hr/rpe), relevant
	// only to run/ride exercises consumed by the ZWO Encoder.
	Target Target `json:"target,omitempty"`

	Notes string `json:"notes,omitempty"`
}

// Superset is an ordered group of exercises performed back-to-back before
// resting.
type Superset struct {
	Exercises []Exercise `json:"exercises"`
	RestSec   int        `json:"restSec,omitempty"`
	RestType  RestType   `json:"restType,omitempty"`
}

// Block is one section of the workout: a round-structure of exercises
// and/or supersets, with its own rest policy.
type Block struct {
	Label string `json:"label"`

	// Rounds is the number of times this block repeats. 0 means
	// "unspecified"; the Step Compiler treats that as 1.
	Rounds int `json:"rounds,omitempty"`

	RestBetweenRoundsSec int      `json:"restBetweenRoundsSec,omitempty"`
	RestBetweenSetsSec   int      `json:"restBetweenSetsSec,omitempty"`
	RestType             RestType `json:"restType,omitempty"`

	WarmUp *WarmUp `json:"warmUp,omitempty"`

	Exercises []Exercise `json:"exercises,omitempty"`
	Supersets []Superset `json:"supersets,omitempty"`
}

// WorkoutStyle names a structural workout format that changes how format
// encoders render it. It is a workout-level flag the Step Compiler (C8)
// threads through to the encoders that need to pick a different rendering
// branch for it, e.g. the YAML Encoder's HIIT-aware form (spec.md §4.11).
type WorkoutStyle string

const (
	StyleStandard WorkoutStyle = ""
	StyleTabata   WorkoutStyle = "tabata"
	StyleAMRAP    WorkoutStyle = "amrap"
	StyleEMOM     WorkoutStyle = "emom"
)

// IsHIIT reports whether s names one of the HIIT formats rather than the
// standard round/superset structure.
func (s WorkoutStyle) IsHIIT() bool {
	return s == StyleTabata || s == StyleAMRAP || s == StyleEMOM
}

// Workout is the root Blocks Model record.
type Workout struct {
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`

	// Style is set by a parser or manual editor that already knows the
	// workout is structured as tabata/AMRAP/EMOM; empty means standard.
	// When unset, DetectStyle infers it from the title and block labels.
	Style WorkoutStyle `json:"style,omitempty"`
}

// DetectStyle returns w.Style when set, otherwise infers a HIIT style
// from keywords in the title and block labels - the same signal the
// original's is_hiit_workout scan used over the raw blocks JSON.
func DetectStyle(w Workout) WorkoutStyle {
	if w.Style != "" {
		return w.Style
	}
	text := strings.ToLower(w.Title)
	for _, b := range w.Blocks {
		text += " " + strings.ToLower(b.Label)
	}
	switch {
	case strings.Contains(text, "tabata"):
		return StyleTabata
	case strings.Contains(text, "amrap"):
		return StyleAMRAP
	case strings.Contains(text, "emom"):
		return StyleEMOM
	default:
		return StyleStandard
	}
}

// New validates and returns a Workout. It rejects an empty title, an
// exercise with an empty name or sets < 0 (0 means unspecified and is
// compiled as 1), a reps range whose low end exceeds its high end, and a
// block with rounds < 0. Exactly one end condition kind is guaranteed by
// the EndCondition constructors, not checked here.
func New(title string, bl []Block) (Workout, error) {
	if title == "" {
		return Workout{}, fmt.Errorf("blocks: workout title must not be empty")
	}
	w := Workout{Title: title, Blocks: bl}
	if err := w.Validate(); err != nil {
		return Workout{}, err
	}
	return w, nil
}

// Validate re-checks every invariant this model promises callers further
// down the pipeline will not have to re-verify.
func (w Workout) Validate() error {
	for bi, b := range w.Blocks {
		if b.Rounds < 0 {
			return fmt.Errorf("blocks: block %d (%q): rounds must be >= 0, got %d", bi, b.Label, b.Rounds)
		}
		for _, ex := range b.Exercises {
			if err := ex.validate(); err != nil {
				return fmt.Errorf("blocks: block %d (%q): %w", bi, b.Label, err)
			}
		}
		for si, ss := range b.Supersets {
			for _, ex := range ss.Exercises {
				if err := ex.validate(); err != nil {
					return fmt.Errorf("blocks: block %d (%q) superset %d: %w", bi, b.Label, si, err)
				}
			}
		}
	}
	return nil
}

func (ex Exercise) validate() error {
	if ex.Name == "" {
		return fmt.Errorf("exercise name must not be empty")
	}
	if ex.Sets < 0 {
		return fmt.Errorf("exercise %q: sets must be >= 0 (0 means unspecified, treated as 1)", ex.Name)
	}
	if ex.End.Kind == EndRepsRange && ex.End.RepsLow > ex.End.RepsHigh {
		return fmt.Errorf("exercise %q: reps range low (%d) exceeds high (%d)", ex.Name, ex.End.RepsLow, ex.End.RepsHigh)
	}
	return nil
}

// EffectiveSets returns the exercise's set count, defaulting unspecified
// (0) to 1.
func (ex Exercise) EffectiveSets() int {
	if ex.Sets <= 0 {
		return 1
	}
	return ex.Sets
}

// EffectiveRounds returns the block's round count, defaulting unspecified
// (0) to 1.
func (b Block) EffectiveRounds() int {
	if b.Rounds <= 0 {
		return 1
	}
	return b.Rounds
}
