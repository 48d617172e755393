// Package compiler implements the Step Compiler (C8): it flattens a Blocks
// Model into an ordered step list with resolved durations, intensities,
// and repeat back-references. Grounded in
// original_source/backend/adapters/blocks_to_fit.py's compile_steps, the
// single most involved function in the original system.
package compiler

import (
	"fmt"

	"github.com/supergeri/workoutcanonicalmapper/internal/blocks"
	"github.com/supergeri/workoutcanonicalmapper/internal/category"
	"github.com/supergeri/workoutcanonicalmapper/internal/resolver"
)

// Kind is the executable unit a Step represents.
type Kind int

const (
	KindExercise Kind = iota
	KindRest
	KindRepeat
	KindWarmup
)

// Intensity is the watch-facing intensity label for a step.
type Intensity int

const (
	IntensityActive Intensity = iota
	IntensityRest
	IntensityWarmup
)

// DurationType selects how DurationValue is interpreted.
type DurationType int

const (
	DurationOpen       DurationType = iota // value ignored, always 0
	DurationTimeMS                          // value = milliseconds
	DurationDistanceCM                      // value = centimeters
	DurationReps                            // value = rep count
)

// Step is one compiled, executable unit of the workout.
type Step struct {
	Kind         Kind
	DisplayName  string
	Intensity    Intensity
	DurationType DurationType
	DurationValue int

	// CategoryID and FitExerciseNameID are set only for KindExercise and
	// KindWarmup steps; rest/repeat steps must not carry a category.
	CategoryID        category.ID
	HasCategory       bool
	FitExerciseNameID int
	HasFitExerciseID  bool

	// RepeatTargetIndex and RepeatCount are set only for KindRepeat steps.
	// RepeatTargetIndex is the index, within the returned slice, of the
	// first step of the repeating run; RepeatCount is the total number of
	// iterations (not "additional" iterations).
	RepeatTargetIndex int
	RepeatCount       int

	// Target carries the source exercise's optional intensity target
	// (power/pace/hr/rpe) through to the ZWO Encoder. Zero value means
	// none was supplied.
	Target blocks.Target

	Reason       string // mapping provenance reason, for YAML note embedding
	OriginalName string // the raw, unresolved exercise name, for YAML note embedding
}

// Options customizes compilation.
type Options struct {
	// LapButtonMode forces every exercise step to duration_type=open,
	// value=0, regardless of any reps/duration/distance the source data
	// declares (spec.md §4.8 step 3).
	LapButtonMode bool

	// DefaultInterSetRestSec is used between sets when the block gives no
	// rest-between-sets; an exercise's own RestSec is not consulted for
	// inter-set rest. spec.md §4.8 fixes this at 30s.
	DefaultInterSetRestSec int

	// UserID is passed through to the resolver for the user-override
	// layer; may be empty.
	UserID string

	// HIITStyle carries the Blocks Model's workout-level style flag
	// through to format encoders that render HIIT structures (tabata,
	// AMRAP, EMOM) differently from the general round/superset form.
	// Compile itself does not branch on it - step semantics are the same
	// either way - it only forwards it for callers to pass on to the
	// encoder (spec.md §4.11).
	HIITStyle blocks.WorkoutStyle
}

// DefaultOptions returns the spec-mandated defaults.
func DefaultOptions() Options {
	return Options{DefaultInterSetRestSec: 30}
}

// resolveFunc is the subset of *resolver.Resolver the compiler needs,
// narrowed to ease testing without a live catalog.
type resolveFunc func(userID, name string) resolver.Resolution

// Compile flattens w into an ordered Step list. r resolves exercise names
// to categories/display names (via C4); when an Exercise already carries
// a MappedName, that name is resolved instead of the raw Name, matching
// the original's "skip re-resolution for manual-editor input" shortcut.
func Compile(w blocks.Workout, r *resolver.Resolver, opts Options) ([]Step, error) {
	return compile(w, func(userID, name string) resolver.Resolution {
		return r.Resolve(userID, name)
	}, opts)
}

func compile(w blocks.Workout, resolve resolveFunc, opts Options) ([]Step, error) {
	c := &compileCtx{
		opts:       opts,
		resolve:    resolve,
		fitIDBySeq: make(map[fitIDKey]int),
	}

	for bi, b := range w.Blocks {
		c.compileBlock(bi, b, bi == len(w.Blocks)-1)
	}

	if len(c.steps) == 0 {
		return nil, fmt.Errorf("compiler: workout %q compiled to zero steps", w.Title)
	}
	return c.steps, nil
}

type fitIDKey struct {
	category category.ID
	display  string
}

type compileCtx struct {
	opts       Options
	resolve    resolveFunc
	steps      []Step
	nextFitID  map[category.ID]int
	fitIDBySeq map[fitIDKey]int
}

func (c *compileCtx) compileBlock(blockIndex int, b blocks.Block, isLastBlock bool) {
	if b.WarmUp != nil {
		c.emitWarmup(*b.WarmUp)
	} else if blockIndex == 0 {
		c.emitDefaultWarmup()
	}

	interSetRest := b.RestBetweenSetsSec
	if interSetRest == 0 {
		interSetRest = c.opts.DefaultInterSetRestSec
	}

	type unit struct {
		exercises []blocks.Exercise
		restSec   int
		restType  blocks.RestType
		isSuperset bool
	}
	var units []unit
	for _, ss := range b.Supersets {
		units = append(units, unit{exercises: ss.Exercises, restSec: ss.RestSec, restType: ss.RestType, isSuperset: true})
	}
	for _, ex := range b.Exercises {
		units = append(units, unit{exercises: []blocks.Exercise{ex}, restSec: ex.RestSec, restType: ex.RestType})
	}

	// Block-level rounds (spec.md §4.8 step 2, boundary behavior in §8):
	// when the block structure itself declares N>1 rounds, the whole run of
	// units compiles once and is wrapped in a single outer repeat, distinct
	// from any individual exercise's own Sets repeat.
	rounds := b.EffectiveRounds()
	outerStart := len(c.steps)

	for ui, u := range units {
		isLastUnit := isLastBlock && ui == len(units)-1
		for ei, ex := range u.exercises {
			isLastExerciseOverall := rounds <= 1 && isLastUnit && ei == len(u.exercises)-1
			c.compileExercise(ex, interSetRest)
			if !isLastExerciseOverall {
				c.emitRestFor(ex.RestSec, ex.RestType)
			}
		}
		if u.isSuperset && !isLastUnit {
			c.emitRestFor(u.restSec, u.restType)
		}
	}

	if rounds > 1 && len(units) > 0 {
		c.steps = append(c.steps, Step{
			Kind:              KindRepeat,
			RepeatTargetIndex: outerStart,
			RepeatCount:       rounds,
		})
	}

	if b.RestBetweenRoundsSec > 0 && !isLastBlock {
		c.emitRest(b.RestBetweenRoundsSec)
	}
}

// emitRestFor emits a rest step appropriate to restType, unless restSec is
// 0 and restType isn't explicitly Button (nothing to emit).
func (c *compileCtx) emitRestFor(restSec int, restType blocks.RestType) {
	if restType == blocks.RestButton {
		c.emitButtonRest()
		return
	}
	if restSec > 0 {
		c.emitRest(restSec)
	}
}

func (c *compileCtx) emitDefaultWarmup() {
	c.steps = append(c.steps, Step{
		Kind:          KindWarmup,
		DisplayName:   "Warm Up",
		Intensity:     IntensityWarmup,
		DurationType:  DurationOpen,
		CategoryID:    category.Cardio,
		HasCategory:   true,
	})
}

func (c *compileCtx) emitWarmup(w blocks.WarmUp) {
	if w.LapButton {
		c.steps = append(c.steps, Step{
			Kind:         KindWarmup,
			DisplayName:  "Warm Up",
			Intensity:    IntensityWarmup,
			DurationType: DurationOpen,
			CategoryID:   category.Cardio,
			HasCategory:  true,
		})
		return
	}
	name := w.Activity
	if name == "" {
		name = "Warm Up"
	}
	c.steps = append(c.steps, Step{
		Kind:          KindWarmup,
		DisplayName:   name,
		Intensity:     IntensityWarmup,
		DurationType:  DurationTimeMS,
		DurationValue: w.DurationSec * 1000,
		CategoryID:    category.Cardio,
		HasCategory:   true,
	})
}

func (c *compileCtx) emitRest(sec int) {
	c.steps = append(c.steps, Step{
		Kind:         KindRest,
		DisplayName:  "Rest",
		Intensity:    IntensityRest,
		DurationType: DurationTimeMS,
		DurationValue: sec * 1000,
	})
}

func (c *compileCtx) emitButtonRest() {
	c.steps = append(c.steps, Step{
		Kind:         KindRest,
		DisplayName:  "Rest",
		Intensity:    IntensityRest,
		DurationType: DurationOpen,
	})
}

// compileExercise emits the warm-up-set run (if any), the working step,
// and the sets repeat, per spec.md §4.8 step 3.
func (c *compileCtx) compileExercise(ex blocks.Exercise, interSetRest int) {
	res := c.resolveExercise(ex)

	if ex.WarmupSets >= 1 {
		warmupFitID, _ := c.resolveFitID(res)
		warmupStart := len(c.steps)
		c.steps = append(c.steps, Step{
			Kind:              KindExercise,
			DisplayName:       res.DisplayName,
			Intensity:         IntensityWarmup,
			DurationType:      DurationReps,
			DurationValue:     ex.WarmupReps,
			CategoryID:        res.CategoryID,
			HasCategory:       true,
			FitExerciseNameID: warmupFitID,
			HasFitExerciseID:  true,
			Reason:            res.Reason,
			OriginalName:      res.OriginalName,
		})
		if ex.WarmupSets > 1 {
			c.emitRest(interSetRest)
			c.steps = append(c.steps, Step{
				Kind:              KindRepeat,
				RepeatTargetIndex: warmupStart,
				RepeatCount:       ex.WarmupSets,
			})
		}
		c.emitRest(interSetRest)
	}

	durType, durValue := c.resolveEndCondition(ex)

	fitID, hasFitID := c.resolveFitID(res)

	workingStart := len(c.steps)
	c.steps = append(c.steps, Step{
		Kind:              KindExercise,
		DisplayName:       res.DisplayName,
		Intensity:         IntensityActive,
		DurationType:      durType,
		DurationValue:     durValue,
		CategoryID:        res.CategoryID,
		HasCategory:       true,
		FitExerciseNameID: fitID,
		HasFitExerciseID:  hasFitID,
		Target:            ex.Target,
		Reason:            res.Reason,
		OriginalName:      res.OriginalName,
	})

	sets := ex.EffectiveSets()
	if sets > 1 {
		c.emitRest(interSetRest)
		c.steps = append(c.steps, Step{
			Kind:              KindRepeat,
			RepeatTargetIndex: workingStart,
			RepeatCount:       sets,
		})
	}
}

func (c *compileCtx) resolveExercise(ex blocks.Exercise) resolver.Resolution {
	name := ex.Name
	if ex.MappedName != "" {
		name = ex.MappedName
	}
	res := c.resolve(c.opts.UserID, name)
	res.OriginalName = ex.Name
	return res
}

// resolveEndCondition implements spec.md §4.8's duration-type priority
// order. LapButtonMode overrides everything to open/0.
func (c *compileCtx) resolveEndCondition(ex blocks.Exercise) (DurationType, int) {
	if c.opts.LapButtonMode {
		return DurationOpen, 0
	}

	switch ex.End.Kind {
	case blocks.EndDistance:
		return DurationDistanceCM, int(ex.End.DistanceM * 100)
	case blocks.EndDuration:
		return DurationTimeMS, ex.End.DurationSec * 1000
	case blocks.EndReps:
		return DurationReps, ex.End.Reps
	case blocks.EndRepsRange:
		return DurationReps, ex.End.RepsHigh
	default:
		return DurationOpen, 0
	}
}

// resolveFitID prefers the catalog's own fit_exercise_name_id (spec.md
// §4.9: "prefer the catalog's fit_exercise_name_id when present, e.g. 37
// for GOBLET_SQUAT"). Otherwise it assigns a sequential per-category id
// starting at 0, reusing the same id for the same (category, display)
// pair within one compile call.
func (c *compileCtx) resolveFitID(res resolver.Resolution) (int, bool) {
	if res.CatalogFitExerciseID != nil {
		return *res.CatalogFitExerciseID, true
	}
	return c.lookupFitID(res.CategoryID, res.DisplayName)
}

func (c *compileCtx) lookupFitID(catID category.ID, display string) (int, bool) {
	key := fitIDKey{category: catID, display: display}
	if id, ok := c.fitIDBySeq[key]; ok {
		return id, true
	}
	if c.nextFitID == nil {
		c.nextFitID = make(map[category.ID]int)
	}
	id := c.nextFitID[catID]
	c.nextFitID[catID] = id + 1
	c.fitIDBySeq[key] = id
	return id, true
}

// Node is one entry of a Fold tree: either a leaf Step or a Repeat group
// wrapping a nested run of Nodes. Downstream encoders that need nested
// structure (YAML's repeat(N): [...], WorkoutKit's repeat group) fold the
// flat Step list back into this shape rather than re-deriving it from the
// source Blocks Model.
type Node struct {
	IsRepeat bool
	Step     Step   // valid when !IsRepeat
	Count    int    // valid when IsRepeat
	Body     []Node // valid when IsRepeat
}

// Fold reconstructs the nested repeat structure that Compile flattened,
// by matching each KindRepeat step back to the run of steps between its
// RepeatTargetIndex and its own index. When a target index has more than
// one repeat pointing at it (a block-level round wrapping an exercise that
// also has its own per-set repeat), the outermost one - the one with the
// larger index within the current bound - is resolved first, and its body
// is folded recursively, which naturally recovers the inner one.
func Fold(steps []Step) []Node {
	repeatsByTarget := make(map[int][]int) // target index -> repeat step indices, ascending
	for i, s := range steps {
		if s.Kind == KindRepeat {
			repeatsByTarget[s.RepeatTargetIndex] = append(repeatsByTarget[s.RepeatTargetIndex], i)
		}
	}
	return fold(steps, 0, len(steps), repeatsByTarget)
}

func fold(steps []Step, lo, hi int, repeatsByTarget map[int][]int) []Node {
	var out []Node
	i := lo
	for i < hi {
		if repeatIdx, ok := outermostRepeatAt(i, hi, repeatsByTarget); ok {
			body := fold(steps, i, repeatIdx, repeatsByTarget)
			out = append(out, Node{IsRepeat: true, Count: steps[repeatIdx].RepeatCount, Body: body})
			i = repeatIdx + 1
			continue
		}
		if steps[i].Kind == KindRepeat {
			// A repeat step whose target precedes lo (shouldn't happen for
			// well-formed input, but skip defensively rather than re-emit it
			// as a leaf).
			i++
			continue
		}
		out = append(out, Node{Step: steps[i]})
		i++
	}
	return out
}

// outermostRepeatAt returns the largest repeat-step index pointing at
// target, among those strictly less than hi.
func outermostRepeatAt(target, hi int, repeatsByTarget map[int][]int) (int, bool) {
	best := -1
	for _, idx := range repeatsByTarget[target] {
		if idx < hi && idx > best {
			best = idx
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// CategoryIDs returns the distinct category ids used across compiled
// exercise/warmup steps, for feeding into sport inference (C6).
func CategoryIDs(steps []Step) []category.ID {
	seen := make(map[category.ID]bool)
	var out []category.ID
	for _, s := range steps {
		if !s.HasCategory {
			continue
		}
		if !seen[s.CategoryID] {
			seen[s.CategoryID] = true
			out = append(out, s.CategoryID)
		}
	}
	return out
}
