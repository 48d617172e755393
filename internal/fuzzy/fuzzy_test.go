package fuzzy

import "testing"

func TestBestMatchAliasShortCircuit(t *testing.T) {
	choices := []string{"Barbell Bench Press", "Incline Barbell Bench Press", "Push Up"}
	m, found := BestMatch("bench", choices)
	if !found {
		t.Fatal("expected a match")
	}
	if m.Candidate != "Barbell Bench Press" || m.Score != 1.0 {
		t.Errorf("got %+v, want Barbell Bench Press @ 1.0", m)
	}
}

func TestBestMatchFuzzy(t *testing.T) {
	choices := []string{"Barbell Back Squat", "Barbell Deadlift", "Push Up"}
	m, found := BestMatch("back squat with barbell", choices)
	if !found {
		t.Fatal("expected a match")
	}
	if m.Candidate != "Barbell Back Squat" {
		t.Errorf("got %q, want Barbell Back Squat", m.Candidate)
	}
}

func TestTopMatchesSortedAndCutoff(t *testing.T) {
	choices := []string{"Barbell Back Squat", "Goblet Squat", "Front Squat", "Push Up"}
	top := TopMatches("squat", choices, 5, 0.2)
	if len(top) == 0 {
		t.Fatal("expected at least one match")
	}
	for i := 1; i < len(top); i++ {
		if top[i].Score > top[i-1].Score {
			t.Errorf("results not sorted descending: %+v", top)
		}
	}
	for _, m := range top {
		if m.Candidate == "Push Up" {
			t.Errorf("did not expect Push Up among squat matches: %+v", top)
		}
	}
}

func TestTopMatchesEmptyQuery(t *testing.T) {
	if got := TopMatches("", []string{"Squat"}, 5, 0); got != nil {
		t.Errorf("expected nil for empty query, got %v", got)
	}
}

func TestDefaultThreshold(t *testing.T) {
	if got := DefaultThreshold("row"); got != DefaultThresholdShort {
		t.Errorf("DefaultThreshold(row) = %v, want %v", got, DefaultThresholdShort)
	}
	if got := DefaultThreshold("barbell back squat"); got != DefaultThresholdLong {
		t.Errorf("DefaultThreshold(long) = %v, want %v", got, DefaultThresholdLong)
	}
}
