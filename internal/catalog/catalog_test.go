package catalog

import (
	"testing"

	"github.com/supergeri/workoutcanonicalmapper/internal/category"
)

func TestLookupExact(t *testing.T) {
	s, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	m := s.Lookup("Barbell Bench Press")
	if m.MatchType != MatchExact {
		t.Fatalf("expected exact match, got %v", m.MatchType)
	}
	if m.CategoryID != category.BenchPress {
		t.Errorf("got category %v, want BenchPress", m.CategoryID)
	}
}

func TestLookupCardioOverrideOnRunCategory(t *testing.T) {
	s := New()
	s.Add("Indoor Rower Session", category.Run, nil)

	m := s.Lookup("Indoor Rower Session")
	if m.MatchType != MatchExactCategoryOverride {
		t.Fatalf("expected override match, got %v", m.MatchType)
	}
	if m.CategoryID != category.Cardio {
		t.Errorf("got %v, want Cardio override", m.CategoryID)
	}
}

func TestLookupBuiltinKeyword(t *testing.T) {
	s, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	m := s.Lookup("easy ski erg session")
	if m.MatchType != MatchExact && m.MatchType != MatchBuiltinKeyword {
		t.Fatalf("expected exact/builtin keyword match, got %v (%s)", m.MatchType, m.DisplayName)
	}
	if m.CategoryID != category.Cardio {
		t.Errorf("got %v, want Cardio", m.CategoryID)
	}
}

func TestLookupDefaultFallback(t *testing.T) {
	s := New()
	m := s.Lookup("completely unknown exercise zzz")
	if m.MatchType != MatchDefault {
		t.Fatalf("expected default match, got %v", m.MatchType)
	}
	if m.CategoryID != category.Core {
		t.Errorf("got %v, want Core", m.CategoryID)
	}
}

func TestLookupFuzzy(t *testing.T) {
	s, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	m := s.Lookup("bench")
	if m.MatchType == MatchDefault {
		t.Errorf("expected a non-default match via alias+fuzzy, got default")
	}
	if m.CategoryID != category.BenchPress {
		t.Errorf("got category %v, want BenchPress", m.CategoryID)
	}
}

// TestRebuildCachesOrdersKeysDeterministically guards against the fuzzy
// candidate list depending on Go's randomized map iteration order: two
// entries inserted in different orders must produce the same sorted key
// slice, so a tied fuzzy score always resolves to the same candidate.
func TestRebuildCachesOrdersKeysDeterministically(t *testing.T) {
	a := New()
	a.Add("Goblet Squat", category.Squat, nil)
	a.Add("Barbell Deadlift", category.Deadlift, nil)
	a.Add("Push Up", category.PushUp, nil)

	b := New()
	b.Add("Push Up", category.PushUp, nil)
	b.Add("Goblet Squat", category.Squat, nil)
	b.Add("Barbell Deadlift", category.Deadlift, nil)

	if len(a.keys) != len(b.keys) {
		t.Fatalf("got %d vs %d keys", len(a.keys), len(b.keys))
	}
	for i := range a.keys {
		if a.keys[i] != b.keys[i] {
			t.Errorf("key order diverged at %d: %q vs %q", i, a.keys[i], b.keys[i])
		}
		if a.displays[i] != b.displays[i] {
			t.Errorf("display order diverged at %d: %q vs %q", i, a.displays[i], b.displays[i])
		}
	}
}
