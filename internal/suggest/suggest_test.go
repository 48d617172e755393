package suggest

import (
	"testing"

	"github.com/supergeri/workoutcanonicalmapper/internal/catalog"
	"github.com/supergeri/workoutcanonicalmapper/internal/category"
)

func newTestCatalog() *catalog.Store {
	cat := catalog.New()
	cat.Add("Goblet Squat", category.Squat, nil)
	cat.Add("Barbell Back Squat", category.Squat, nil)
	cat.Add("Front Squat", category.Squat, nil)
	cat.Add("Push Up", category.PushUp, nil)
	return cat
}

func TestFindSimilarRanksCloseMatchesFirst(t *testing.T) {
	out := FindSimilar("goblet squat", newTestCatalog(), 5, 0.30)
	if len(out) == 0 {
		t.Fatal("expected at least one suggestion")
	}
	if out[0].Name != "Goblet Squat" {
		t.Errorf("got top suggestion %q, want \"Goblet Squat\"", out[0].Name)
	}
}

func TestFindByTypeGroupsByMovementKeyword(t *testing.T) {
	out := FindByType("Goblet Squat", newTestCatalog(), 10)
	names := map[string]bool{}
	for _, s := range out {
		names[s.Name] = true
	}
	if !names["Barbell Back Squat"] || !names["Front Squat"] {
		t.Errorf("got %+v, want every squat variant surfaced", out)
	}
	if names["Push Up"] {
		t.Error("did not expect Push Up to match the squat keyword")
	}
}

func TestFindByTypeFallsBackToWholeNameWhenNoKeywordMatches(t *testing.T) {
	cat := catalog.New()
	cat.Add("Banana Stretch", category.Flexibility, nil)
	out := FindByType("Banana Stretch", cat, 10)
	if len(out) != 1 || out[0].Name != "Banana Stretch" {
		t.Errorf("got %+v, want the exact fallback match", out)
	}
}
