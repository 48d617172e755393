package resolver

import (
	"testing"

	"github.com/supergeri/workoutcanonicalmapper/internal/catalog"
	"github.com/supergeri/workoutcanonicalmapper/internal/category"
)

type fakeUserStore struct {
	table map[string]string // "userID|normalizedName" -> display
}

func (f *fakeUserStore) Get(userID, normalizedName string) (string, bool) {
	d, ok := f.table[userID+"|"+normalizedName]
	return d, ok
}

type fakePopularityStore struct {
	table map[string]struct {
		display string
		count   int
	}
}

func (f *fakePopularityStore) MostPopular(normalizedName string) (string, int, bool) {
	v, ok := f.table[normalizedName]
	return v.display, v.count, ok
}

func mustCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.LoadDefault()
	if err != nil {
		t.Fatalf("catalog.LoadDefault: %v", err)
	}
	return s
}

func TestResolveUserOverrideWins(t *testing.T) {
	cat := mustCatalog(t)
	users := &fakeUserStore{table: map[string]string{
		"u1|bench": "Incline Barbell Bench Press",
	}}
	r := New(cat, users, nil)

	res := r.Resolve("u1", "bench")
	if res.Provenance != ProvenanceUser {
		t.Fatalf("got provenance %v, want user", res.Provenance)
	}
	if res.Confidence != 1.0 {
		t.Errorf("got confidence %v, want 1.0", res.Confidence)
	}
	if res.DisplayName != "Incline Barbell Bench Press" {
		t.Errorf("got display %q", res.DisplayName)
	}
}

// Literal scenario (spec.md §8): popularity {"bench": [("Barbell Bench
// Press", 4)]} resolving "bench" yields confidence 0.90.
func TestResolvePopularityScenario(t *testing.T) {
	cat := mustCatalog(t)
	pop := &fakePopularityStore{table: map[string]struct {
		display string
		count   int
	}{
		"bench": {"Barbell Bench Press", 4},
	}}
	r := New(cat, nil, pop)

	res := r.Resolve("", "bench")
	if res.Provenance != ProvenancePopular {
		t.Fatalf("got provenance %v, want popular", res.Provenance)
	}
	if res.Confidence != 0.90 {
		t.Errorf("got confidence %v, want 0.90", res.Confidence)
	}
	if res.DisplayName != "Barbell Bench Press" {
		t.Errorf("got display %q", res.DisplayName)
	}
	if res.CategoryID != category.BenchPress {
		t.Errorf("got category %v, want BenchPress", res.CategoryID)
	}
}

func TestResolvePopularityConfidenceCapsAt095(t *testing.T) {
	cat := mustCatalog(t)
	pop := &fakePopularityStore{table: map[string]struct {
		display string
		count   int
	}{
		"bench": {"Barbell Bench Press", 20},
	}}
	r := New(cat, nil, pop)

	res := r.Resolve("", "bench")
	if res.Confidence != 0.95 {
		t.Errorf("got confidence %v, want capped 0.95", res.Confidence)
	}
}

func TestResolveCuratedRuleExactBeatsSubstring(t *testing.T) {
	cat := mustCatalog(t)
	r := New(cat, nil, nil)

	res := r.Resolve("", "squat")
	if res.Provenance != ProvenanceCurated {
		t.Fatalf("got provenance %v, want curated", res.Provenance)
	}
	if res.DisplayName != "Barbell Back Squat" {
		t.Errorf("got display %q", res.DisplayName)
	}
	if res.Confidence != 1.0 {
		t.Errorf("got confidence %v, want 1.0 for exact curated key", res.Confidence)
	}
}

func TestResolveCuratedRuleLongestSubstringFirst(t *testing.T) {
	cat := mustCatalog(t)
	r := New(cat, nil, nil)

	res := r.Resolve("", "my bulgarian split squat variation")
	if res.DisplayName != "Bulgarian Split Squat" {
		t.Errorf("got display %q, want longest substring match to win", res.DisplayName)
	}
}

func TestResolveFallsThroughToFuzzy(t *testing.T) {
	cat := mustCatalog(t)
	r := New(cat, nil, nil)

	res := r.Resolve("", "bicep curl db")
	if res.Provenance != ProvenanceFuzzy {
		t.Fatalf("got provenance %v, want fuzzy", res.Provenance)
	}
	if res.DisplayName != "Bicep Curl" {
		t.Errorf("got display %q, want Bicep Curl", res.DisplayName)
	}
}

func TestResolveFallback(t *testing.T) {
	r := New(catalog.New(), nil, nil)

	res := r.Resolve("", "zzz totally unknown thing qqq")
	if res.Provenance != ProvenanceFallback {
		t.Fatalf("got provenance %v, want fallback", res.Provenance)
	}
	if res.Confidence != 0.0 {
		t.Errorf("got confidence %v, want 0.0", res.Confidence)
	}
	if res.DisplayName == "" {
		t.Error("fallback display name should not be empty")
	}
}

func TestResolveCascadeOrderUserBeatsPopularity(t *testing.T) {
	cat := mustCatalog(t)
	users := &fakeUserStore{table: map[string]string{"u1|bench": "Dumbbell Bench Press"}}
	pop := &fakePopularityStore{table: map[string]struct {
		display string
		count   int
	}{"bench": {"Barbell Bench Press", 10}}}
	r := New(cat, users, pop)

	res := r.Resolve("u1", "bench")
	if res.Provenance != ProvenanceUser {
		t.Fatalf("user override should win over popularity, got %v", res.Provenance)
	}
}

// TestCanonicalClassifyIsDeterministicAcrossCalls guards against the
// family lookup depending on Go's randomized map iteration order: a name
// with no curated/fuzzy match but matching a canonical family substring
// must resolve to the same family on every call.
func TestCanonicalClassifyIsDeterministicAcrossCalls(t *testing.T) {
	display, ok := canonicalClassify("some squat row hybrid movement")
	if !ok {
		t.Fatal("expected a canonical classification")
	}
	for i := 0; i < 50; i++ {
		got, gotOK := canonicalClassify("some squat row hybrid movement")
		if !gotOK || got != display {
			t.Fatalf("run %d: got (%q, %v), want (%q, true)", i, got, gotOK, display)
		}
	}
}
