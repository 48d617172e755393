package blocks

import "testing"

func TestNewRejectsEmptyTitle(t *testing.T) {
	if _, err := New("", nil); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestNewRejectsNegativeRounds(t *testing.T) {
	_, err := New("Leg Day", []Block{{Rounds: -1}})
	if err == nil {
		t.Fatal("expected error for negative rounds")
	}
}

func TestNewRejectsEmptyExerciseName(t *testing.T) {
	_, err := New("Leg Day", []Block{{
		Exercises: []Exercise{{Name: "", End: Open(), Sets: 1}},
	}})
	if err == nil {
		t.Fatal("expected error for empty exercise name")
	}
}

func TestNewRejectsInvertedRepsRange(t *testing.T) {
	_, err := New("Leg Day", []Block{{
		Exercises: []Exercise{{Name: "Squat", End: RepsRange(10, 5), Sets: 1}},
	}})
	if err == nil {
		t.Fatal("expected error for inverted reps range")
	}
}

func TestNewAcceptsValidWorkout(t *testing.T) {
	w, err := New("Leg Day", []Block{
		{
			Label:  "Main",
			Rounds: 3,
			Exercises: []Exercise{
				{Name: "Back Squat", End: Reps(5), Sets: 3, RestSec: 90},
			},
			Supersets: []Superset{
				{
					Exercises: []Exercise{
						{Name: "Lunge", End: Reps(10), Sets: 1},
						{Name: "Calf Raise", End: Reps(15), Sets: 1},
					},
					RestSec: 30,
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Title != "Leg Day" {
		t.Errorf("got title %q", w.Title)
	}
	if len(w.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(w.Blocks))
	}
}

func TestEffectiveSetsDefaultsToOne(t *testing.T) {
	ex := Exercise{Name: "Squat", End: Open()}
	if ex.EffectiveSets() != 1 {
		t.Errorf("got %d, want 1", ex.EffectiveSets())
	}
	ex.Sets = 4
	if ex.EffectiveSets() != 4 {
		t.Errorf("got %d, want 4", ex.EffectiveSets())
	}
}

func TestEffectiveRoundsDefaultsToOne(t *testing.T) {
	b := Block{}
	if b.EffectiveRounds() != 1 {
		t.Errorf("got %d, want 1", b.EffectiveRounds())
	}
	b.Rounds = 5
	if b.EffectiveRounds() != 5 {
		t.Errorf("got %d, want 5", b.EffectiveRounds())
	}
}

func TestEndConditionConstructors(t *testing.T) {
	if Open().Kind != EndOpen {
		t.Error("Open() kind mismatch")
	}
	if Reps(8).Kind != EndReps || Reps(8).Reps != 8 {
		t.Error("Reps() mismatch")
	}
	rr := RepsRange(6, 8)
	if rr.Kind != EndRepsRange || rr.RepsLow != 6 || rr.RepsHigh != 8 {
		t.Error("RepsRange() mismatch")
	}
	if Duration(45).Kind != EndDuration || Duration(45).DurationSec != 45 {
		t.Error("Duration() mismatch")
	}
	if Distance(500).Kind != EndDistance || Distance(500).DistanceM != 500 {
		t.Error("Distance() mismatch")
	}
}
