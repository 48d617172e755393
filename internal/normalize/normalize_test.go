package normalize

import "testing"

func TestName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"DB Bench Press", "bench press"},
		{"A1: Goblet Squat", "goblet squat"},
		{"B2; KB RDL (32/24kg)", "rdl"},
		{"Push Ups x10", "push ups"},
		{"Lunges each leg", "lunges"},
		{"1km Run", "run"},
		{"Row 500m", "row"},
		{"  Deadlift |", "deadlift"},
		{"cable row", "row"},
		{"bench press 3", "bench press"},
		{"", ""},
	}

	for _, c := range cases {
		if got := Name(c.in); got != c.want {
			t.Errorf("Name(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNameIsIdempotent(t *testing.T) {
	inputs := []string{
		"A1: DB Bench Press x10 (32kg)",
		"B2; KB Swing each arm",
		"  1.5km Run  ",
		"Barbell Back Squat",
		"",
		"trx row x8 each side",
		"bench press 3",
	}
	for _, in := range inputs {
		once := Name(in)
		twice := Name(once)
		if once != twice {
			t.Errorf("Name not idempotent for %q: Name(x)=%q, Name(Name(x))=%q", in, once, twice)
		}
	}
}
