package compiler

import (
	"testing"

	"github.com/supergeri/workoutcanonicalmapper/internal/blocks"
	"github.com/supergeri/workoutcanonicalmapper/internal/category"
	"github.com/supergeri/workoutcanonicalmapper/internal/resolver"
)

// fakeResolve maps raw names straight to a category without touching the
// real catalog/fuzzy stack, keeping these tests focused on compiler
// structure rather than name-resolution behavior (covered separately in
// internal/resolver).
func fakeResolve(nameToCategory map[string]category.ID) resolveFunc {
	return func(userID, name string) resolver.Resolution {
		cat, ok := nameToCategory[name]
		if !ok {
			cat = category.TotalBody
		}
		return resolver.Resolution{
			OriginalName: name,
			DisplayName:  name,
			CategoryID:   cat,
			Confidence:   1.0,
			Provenance:   resolver.ProvenanceCurated,
		}
	}
}

func TestCompileRejectsEmptyWorkout(t *testing.T) {
	w := blocks.Workout{Title: "Empty"}
	_, err := compile(w, fakeResolve(nil), DefaultOptions())
	if err == nil {
		t.Fatal("expected error for zero compiled steps")
	}
}

func TestCompilePrependsDefaultWarmupOnFirstBlock(t *testing.T) {
	w := blocks.Workout{
		Title: "Push Day",
		Blocks: []blocks.Block{
			{Exercises: []blocks.Exercise{{Name: "Bench Press", End: blocks.Reps(8), Sets: 1}}},
		},
	}
	steps, err := compile(w, fakeResolve(map[string]category.ID{"Bench Press": category.BenchPress}), DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if steps[0].Kind != KindWarmup {
		t.Fatalf("got first step kind %v, want KindWarmup", steps[0].Kind)
	}
	if steps[0].DurationType != DurationOpen {
		t.Errorf("default warmup duration type = %v, want open", steps[0].DurationType)
	}
}

func TestCompileDurationPriorityDistanceWins(t *testing.T) {
	ex := blocks.Exercise{Name: "Row", End: blocks.Distance(500), Sets: 1}
	w := blocks.Workout{Title: "Erg", Blocks: []blocks.Block{{WarmUp: &blocks.WarmUp{LapButton: true}, Exercises: []blocks.Exercise{ex}}}}
	steps, err := compile(w, fakeResolve(map[string]category.ID{"Row": category.Cardio}), DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var working *Step
	for i := range steps {
		if steps[i].Kind == KindExercise && steps[i].Intensity == IntensityActive {
			working = &steps[i]
		}
	}
	if working == nil {
		t.Fatal("no working exercise step found")
	}
	if working.DurationType != DurationDistanceCM || working.DurationValue != 50000 {
		t.Errorf("got type=%v value=%d, want distance_cm=50000", working.DurationType, working.DurationValue)
	}
}

func TestCompileRepsRangeUsesUpperBound(t *testing.T) {
	ex := blocks.Exercise{Name: "Squat", End: blocks.RepsRange(6, 8), Sets: 1}
	w := blocks.Workout{Title: "Legs", Blocks: []blocks.Block{{WarmUp: &blocks.WarmUp{LapButton: true}, Exercises: []blocks.Exercise{ex}}}}
	steps, err := compile(w, fakeResolve(map[string]category.ID{"Squat": category.Squat}), DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	found := false
	for _, s := range steps {
		if s.Kind == KindExercise && s.Intensity == IntensityActive {
			found = true
			if s.DurationType != DurationReps || s.DurationValue != 8 {
				t.Errorf("got type=%v value=%d, want reps=8", s.DurationType, s.DurationValue)
			}
		}
	}
	if !found {
		t.Fatal("no working step found")
	}
}

func TestCompileLapButtonModeForcesOpen(t *testing.T) {
	ex := blocks.Exercise{Name: "Squat", End: blocks.Reps(10), Sets: 1}
	w := blocks.Workout{Title: "Legs", Blocks: []blocks.Block{{WarmUp: &blocks.WarmUp{LapButton: true}, Exercises: []blocks.Exercise{ex}}}}
	opts := DefaultOptions()
	opts.LapButtonMode = true
	steps, err := compile(w, fakeResolve(map[string]category.ID{"Squat": category.Squat}), opts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, s := range steps {
		if s.Kind == KindExercise && s.Intensity == IntensityActive {
			if s.DurationType != DurationOpen || s.DurationValue != 0 {
				t.Errorf("lap button mode: got type=%v value=%d, want open/0", s.DurationType, s.DurationValue)
			}
		}
	}
}

func TestCompileSetsRepeatCountIsTotalNotAdditional(t *testing.T) {
	ex := blocks.Exercise{Name: "Squat", End: blocks.Reps(10), Sets: 4}
	w := blocks.Workout{Title: "Legs", Blocks: []blocks.Block{{WarmUp: &blocks.WarmUp{LapButton: true}, Exercises: []blocks.Exercise{ex}}}}
	steps, err := compile(w, fakeResolve(map[string]category.ID{"Squat": category.Squat}), DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var repeat *Step
	for i := range steps {
		if steps[i].Kind == KindRepeat {
			repeat = &steps[i]
		}
	}
	if repeat == nil {
		t.Fatal("expected a repeat step for sets > 1")
	}
	if repeat.RepeatCount != 4 {
		t.Errorf("got repeat count %d, want 4 (total sets, not sets-1)", repeat.RepeatCount)
	}
}

func TestCompileRepeatTargetIsStrictlyEarlier(t *testing.T) {
	ex := blocks.Exercise{Name: "Squat", End: blocks.Reps(10), Sets: 3}
	w := blocks.Workout{Title: "Legs", Blocks: []blocks.Block{{WarmUp: &blocks.WarmUp{LapButton: true}, Exercises: []blocks.Exercise{ex}}}}
	steps, err := compile(w, fakeResolve(map[string]category.ID{"Squat": category.Squat}), DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for i, s := range steps {
		if s.Kind != KindRepeat {
			continue
		}
		if s.RepeatTargetIndex >= i {
			t.Errorf("repeat step at %d targets %d, want strictly earlier index", i, s.RepeatTargetIndex)
		}
		if steps[s.RepeatTargetIndex].Kind != KindExercise {
			t.Errorf("repeat target at %d is kind %v, want KindExercise", s.RepeatTargetIndex, steps[s.RepeatTargetIndex].Kind)
		}
	}
}

func TestCompileRestStepsNeverCarryCategory(t *testing.T) {
	ex1 := blocks.Exercise{Name: "Squat", End: blocks.Reps(10), Sets: 1, RestSec: 60}
	ex2 := blocks.Exercise{Name: "Bench Press", End: blocks.Reps(8), Sets: 1}
	w := blocks.Workout{Title: "Full", Blocks: []blocks.Block{{
		WarmUp:    &blocks.WarmUp{LapButton: true},
		Exercises: []blocks.Exercise{ex1, ex2},
	}}}
	steps, err := compile(w, fakeResolve(map[string]category.ID{
		"Squat": category.Squat, "Bench Press": category.BenchPress,
	}), DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, s := range steps {
		if s.Kind == KindRest && s.HasCategory {
			t.Errorf("rest step %+v must not carry a category", s)
		}
	}
}

func TestCompileLastExerciseOfLastBlockSkipsTrailingRest(t *testing.T) {
	ex := blocks.Exercise{Name: "Squat", End: blocks.Reps(10), Sets: 1, RestSec: 60}
	w := blocks.Workout{Title: "Legs", Blocks: []blocks.Block{{WarmUp: &blocks.WarmUp{LapButton: true}, Exercises: []blocks.Exercise{ex}}}}
	steps, err := compile(w, fakeResolve(map[string]category.ID{"Squat": category.Squat}), DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	last := steps[len(steps)-1]
	if last.Kind == KindRest {
		t.Error("last step of last block must not be a trailing post-exercise rest")
	}
}

func TestCompileWarmupSetsEmitRepeatWhenMultiple(t *testing.T) {
	ex := blocks.Exercise{
		Name: "Bench Press", End: blocks.Reps(5), Sets: 1,
		WarmupSets: 2, WarmupReps: 10,
	}
	w := blocks.Workout{Title: "Push", Blocks: []blocks.Block{{WarmUp: &blocks.WarmUp{LapButton: true}, Exercises: []blocks.Exercise{ex}}}}
	steps, err := compile(w, fakeResolve(map[string]category.ID{"Bench Press": category.BenchPress}), DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	foundWarmupExercise := false
	foundWarmupRepeat := false
	for i, s := range steps {
		if s.Kind == KindExercise && s.Intensity == IntensityWarmup {
			foundWarmupExercise = true
		}
		if s.Kind == KindRepeat && s.RepeatCount == 2 {
			foundWarmupRepeat = true
			if steps[s.RepeatTargetIndex].Intensity != IntensityWarmup {
				t.Errorf("warmup repeat at %d targets non-warmup step", i)
			}
		}
	}
	if !foundWarmupExercise {
		t.Error("expected a warmup-intensity exercise step")
	}
	if !foundWarmupRepeat {
		t.Error("expected a repeat step with count=2 for warmup sets")
	}
}

func TestCompileAssignsSequentialFitIDsWithinCategory(t *testing.T) {
	ex1 := blocks.Exercise{Name: "Bench Press", End: blocks.Reps(5), Sets: 1}
	ex2 := blocks.Exercise{Name: "Incline Bench Press", End: blocks.Reps(5), Sets: 1}
	ex3 := blocks.Exercise{Name: "Bench Press", End: blocks.Reps(5), Sets: 1}
	w := blocks.Workout{Title: "Push", Blocks: []blocks.Block{{
		WarmUp:    &blocks.WarmUp{LapButton: true},
		Exercises: []blocks.Exercise{ex1, ex2, ex3},
	}}}
	steps, err := compile(w, fakeResolve(map[string]category.ID{
		"Bench Press": category.BenchPress, "Incline Bench Press": category.BenchPress,
	}), DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	ids := map[string]int{}
	for _, s := range steps {
		if s.Kind == KindExercise && s.Intensity == IntensityActive {
			ids[s.DisplayName] = s.FitExerciseNameID
		}
	}
	if ids["Bench Press"] != 0 {
		t.Errorf("first distinct display in category got id %d, want 0", ids["Bench Press"])
	}
	if ids["Incline Bench Press"] != 1 {
		t.Errorf("second distinct display in category got id %d, want 1", ids["Incline Bench Press"])
	}

	// Same (category, display) pair reused across ex1/ex3 must get the same id.
	var seen []int
	count := 0
	for _, s := range steps {
		if s.Kind == KindExercise && s.Intensity == IntensityActive && s.DisplayName == "Bench Press" {
			count++
			seen = append(seen, s.FitExerciseNameID)
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 Bench Press working steps, got %d", count)
	}
	if seen[0] != seen[1] {
		t.Errorf("Bench Press steps got ids %d and %d, want the same id", seen[0], seen[1])
	}
}

func TestCompileBlockRoundsWrapsSupersetInOuterRepeat(t *testing.T) {
	b := blocks.Block{
		Rounds: 3,
		Supersets: []blocks.Superset{{
			Exercises: []blocks.Exercise{
				{Name: "Push Ups", End: blocks.Reps(10), Sets: 1},
				{Name: "Squats", End: blocks.Reps(15), Sets: 1},
			},
		}},
	}
	w := blocks.Workout{Title: "Push Day", Blocks: []blocks.Block{b}}
	steps, err := compile(w, fakeResolve(map[string]category.ID{
		"Push Ups": category.PushUp,
		"Squats":   category.Squat,
	}), DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var repeats []Step
	for _, s := range steps {
		if s.Kind == KindRepeat {
			repeats = append(repeats, s)
		}
	}
	if len(repeats) != 1 {
		t.Fatalf("expected exactly one outer repeat for the 3-round superset, got %d", len(repeats))
	}
	if repeats[0].RepeatCount != 3 {
		t.Errorf("got repeat count %d, want 3", repeats[0].RepeatCount)
	}

	last := steps[len(steps)-1]
	if last.Kind != KindRepeat {
		t.Fatalf("last emitted step should be the repeat closing the round, got %v", last.Kind)
	}
}

func TestFoldRecoversSetsRepeatAsNestedGroup(t *testing.T) {
	ex := blocks.Exercise{Name: "Squat", End: blocks.Reps(10), Sets: 3}
	w := blocks.Workout{Title: "Legs", Blocks: []blocks.Block{{WarmUp: &blocks.WarmUp{LapButton: true}, Exercises: []blocks.Exercise{ex}}}}
	steps, err := compile(w, fakeResolve(map[string]category.ID{"Squat": category.Squat}), DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	nodes := Fold(steps)

	var foundRepeat bool
	for _, n := range nodes {
		if n.IsRepeat {
			foundRepeat = true
			if n.Count != 3 {
				t.Errorf("got repeat count %d, want 3", n.Count)
			}
			if len(n.Body) != 2 || n.Body[0].Step.DisplayName != "Squat" || n.Body[1].Step.Kind != KindRest {
				t.Errorf("expected repeat body to be the Squat step and its inter-set rest, got %+v", n.Body)
			}
		}
	}
	if !foundRepeat {
		t.Fatal("expected a folded repeat node")
	}
}

func TestCategoryIDsDeduplicates(t *testing.T) {
	steps := []Step{
		{Kind: KindExercise, HasCategory: true, CategoryID: category.Squat},
		{Kind: KindExercise, HasCategory: true, CategoryID: category.Squat},
		{Kind: KindExercise, HasCategory: true, CategoryID: category.BenchPress},
		{Kind: KindRest},
	}
	ids := CategoryIDs(steps)
	if len(ids) != 2 {
		t.Fatalf("got %d distinct categories, want 2", len(ids))
	}
}
