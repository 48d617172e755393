package yamlenc

import (
	"strings"
	"testing"

	"github.com/supergeri/workoutcanonicalmapper/internal/blocks"
	"github.com/supergeri/workoutcanonicalmapper/internal/category"
	"github.com/supergeri/workoutcanonicalmapper/internal/compiler"
)

func TestEncodeRejectsZeroSteps(t *testing.T) {
	if _, err := Encode(nil, Options{}); err == nil {
		t.Fatal("expected error for zero steps")
	}
}

// TestEncodeRepsExerciseDefaultsToLapWithNote matches spec.md's documented
// note format for a popularity-resolved mapping.
func TestEncodeRepsExerciseDefaultsToLapWithNote(t *testing.T) {
	steps := []compiler.Step{
		{
			Kind:          compiler.KindExercise,
			DisplayName:   "Goblet Squat",
			OriginalName:  "KB RDL Into Goblet Squat",
			CategoryID:    category.Squat,
			HasCategory:   true,
			DurationType:  compiler.DurationReps,
			DurationValue: 8,
			Reason:        "chosen as popular choice by 3 users",
		},
	}

	out, err := Encode(steps, Options{WorkoutName: "Leg Day"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := "lap | KB RDL Into Goblet Squat x8 (chosen as popular choice by 3 users)"
	if !strings.Contains(out, want) {
		t.Errorf("got:\n%s\nwant substring %q", out, want)
	}
	if !strings.Contains(out, "Goblet Squat [category: SQUAT]") {
		t.Errorf("got:\n%s\nwant a category-annotated key", out)
	}
}

// TestEncodeTimeBasedStepOmitsNote verifies time-based exercises emit a
// bare duration string without the lap prefix or a mapping note.
func TestEncodeTimeBasedStepOmitsNote(t *testing.T) {
	steps := []compiler.Step{
		{
			Kind:          compiler.KindExercise,
			DisplayName:   "Plank",
			OriginalName:  "Plank",
			CategoryID:    category.Core,
			HasCategory:   true,
			DurationType:  compiler.DurationTimeMS,
			DurationValue: 45000,
			Reason:        "exact catalog match",
		},
	}

	out, err := Encode(steps, Options{WorkoutName: "Core"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(out, "lap |") || strings.Contains(out, "exact catalog match") {
		t.Errorf("got:\n%s\nwant no lap prefix or note for a time-based step", out)
	}
	if !strings.Contains(out, "45s") {
		t.Errorf("got:\n%s\nwant the bare duration 45s", out)
	}
}

func TestEncodeRepeatGroupRendersRepeatKey(t *testing.T) {
	steps := []compiler.Step{
		{Kind: compiler.KindExercise, DisplayName: "Squat", CategoryID: category.Squat, HasCategory: true,
			DurationType: compiler.DurationReps, DurationValue: 10},
		{Kind: compiler.KindRest, DurationType: compiler.DurationTimeMS, DurationValue: 30000},
		{Kind: compiler.KindRepeat, RepeatTargetIndex: 0, RepeatCount: 3},
	}

	out, err := Encode(steps, Options{WorkoutName: "Legs"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(out, "repeat(3)") {
		t.Errorf("got:\n%s\nwant a repeat(3) key", out)
	}
	if !strings.Contains(out, "rest: 30s") {
		t.Errorf("got:\n%s\nwant a 30s rest entry", out)
	}
}

func TestEncodeSettingsAndSchedulePlan(t *testing.T) {
	steps := []compiler.Step{
		{Kind: compiler.KindExercise, DisplayName: "Burpees", CategoryID: category.TotalBody, HasCategory: true,
			DurationType: compiler.DurationReps, DurationValue: 10},
	}
	out, err := Encode(steps, Options{WorkoutName: "Metcon", StartFrom: "2026-08-01"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(out, "deleteSameNameWorkout: true") {
		t.Errorf("got:\n%s\nwant deleteSameNameWorkout: true", out)
	}
	// yaml.v3 quotes a date-like string so it is not read back as a timestamp.
	if !strings.Contains(out, `start_from: "2026-08-01"`) {
		t.Errorf("got:\n%s\nwant start_from: \"2026-08-01\"", out)
	}
	if !strings.Contains(out, "Metcon") {
		t.Errorf("got:\n%s\nwant the workout name in the workouts list", out)
	}
}

// TestEncodeHIITStyleUsesRoundsKeyNotRepeat verifies the HIIT branch
// renders a distinct "rounds(N)" key and tags exercises with the style,
// rather than falling through to the general "repeat(N)" form.
func TestEncodeHIITStyleUsesRoundsKeyNotRepeat(t *testing.T) {
	steps := []compiler.Step{
		{Kind: compiler.KindExercise, DisplayName: "Burpees", CategoryID: category.TotalBody, HasCategory: true,
			DurationType: compiler.DurationTimeMS, DurationValue: 20000},
		{Kind: compiler.KindRest, DurationType: compiler.DurationTimeMS, DurationValue: 10000},
		{Kind: compiler.KindRepeat, RepeatTargetIndex: 0, RepeatCount: 8},
	}
	out, err := Encode(steps, Options{WorkoutName: "Tabata Burpees", HIITStyle: blocks.StyleTabata})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(out, "repeat(8)") {
		t.Errorf("got:\n%s\nwant no general-form repeat(8) key in the HIIT branch", out)
	}
	if !strings.Contains(out, "rounds(8)") {
		t.Errorf("got:\n%s\nwant a rounds(8) key", out)
	}
	if !strings.Contains(out, "(tabata)") {
		t.Errorf("got:\n%s\nwant the tabata style tag on the exercise key", out)
	}
}

func TestDetectStyleInfersFromTitleAndBlockLabels(t *testing.T) {
	w := blocks.Workout{Title: "Friday AMRAP", Blocks: []blocks.Block{{Label: "Round 1"}}}
	if got := blocks.DetectStyle(w); got != blocks.StyleAMRAP {
		t.Errorf("got style %q, want amrap", got)
	}

	w2 := blocks.Workout{Title: "Push Day", Style: blocks.StyleEMOM}
	if got := blocks.DetectStyle(w2); got != blocks.StyleEMOM {
		t.Errorf("got style %q, want explicit emom to win over inference", got)
	}

	w3 := blocks.Workout{Title: "Push Day"}
	if got := blocks.DetectStyle(w3); got != blocks.StyleStandard {
		t.Errorf("got style %q, want standard for a non-HIIT title", got)
	}
}
