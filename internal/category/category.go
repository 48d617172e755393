// Package category implements the Category Engine (C5): inferring a Garmin
// exercise category from a resolved exercise name and remapping extended
// category ids into the 0-32 range current watches accept.
//
// Category ids follow the FIT SDK exercise_category enum, the same
// numbering github.com/muktihari/fit/profile/typedef uses for the
// equivalent field elsewhere in this codebase's teacher lineage.
package category

import "strings"

// ID is a Garmin exercise category id. 0-32 are device-safe; 33-43 are
// "extended" values that must be remapped before they reach an encoder.
type ID int

const (
	BenchPress        ID = 0
	CalfRaise         ID = 1
	Cardio            ID = 2
	Carry             ID = 3
	Chop              ID = 4
	Core              ID = 5
	Crunch            ID = 6
	Curl              ID = 7
	Deadlift          ID = 8
	Flexibility       ID = 9
	HipRaise          ID = 10
	HipStability      ID = 11
	HipSwing          ID = 12
	Hyperextension    ID = 13
	LateralRaise      ID = 14
	LegCurl           ID = 15
	LegRaise          ID = 16
	Lunge             ID = 17
	OlympicLift       ID = 18
	PlankCat          ID = 19
	Plyo              ID = 20
	PullUp            ID = 21
	PushUp            ID = 22
	Row               ID = 23
	ShoulderPress     ID = 24
	Shrug             ID = 25
	SitUp             ID = 26
	Sled              ID = 27
	Squat             ID = 28
	TotalBody         ID = 29
	TricepsExtension  ID = 30
	WarmUp            ID = 31
	Run               ID = 32
)

// MaxValidID is the highest device-safe category id. Values above this are
// "extended" categories some watches reject outright and must be remapped.
const MaxValidID = 32

// extendedFallback maps known extended category ids (33-43) to the closest
// device-safe category. Grounded in the original source's
// INVALID_CATEGORY_FALLBACK table: 33-37 and 38 (indoor rower) fold to
// Cardio because Row (23) assumes free weights/rowing machines with a
// stroke rate the erg variants don't expose the same way; 39-43 fold to
// TotalBody as a generic catch-all.
var extendedFallback = map[ID]ID{
	33: Cardio,
	34: Cardio,
	35: Cardio,
	36: Cardio,
	37: Cardio,
	38: Cardio, // indoor rower
	39: TotalBody,
	40: TotalBody,
	41: TotalBody,
	42: TotalBody,
	43: TotalBody,
}

// Remap validates id against the device-safe range, returning a value that
// is always <= MaxValidID. Any id > MaxValidID that isn't one of the known
// extended categories folds to TotalBody, matching the original's
// "default fallback for any unknown invalid category" behavior. The
// original (possibly out-of-range) id is never preserved on the wire.
func Remap(id ID) ID {
	if id <= MaxValidID {
		return id
	}
	if mapped, ok := extendedFallback[id]; ok {
		return mapped
	}
	return TotalBody
}

// rule is one entry in the ordered, most-to-least-specific classification
// list. Rules are evaluated top to bottom; the first substring match wins,
// so more specific phrases (e.g. "bulgarian split squat") must precede
// their more generic parents (e.g. "squat").
type rule struct {
	substr string
	id     ID
}

// rules is grounded on
// _examples/FitGlue-server/.../file_generators/exercise_mapping.go's
// substring cascade, reordered so multi-word specific phrases are checked
// before the generic single-word terms they'd otherwise be swallowed by.
var rules = []rule{
	{"bulgarian split squat", Lunge},
	{"chest press", BenchPress},
	{"push up", PushUp},
	{"pushup", PushUp},
	{"bench press", BenchPress},
	{"bench", BenchPress},
	{"reverse fly", LateralRaise},
	{"flye", Core},
	{"fly", Core},
	{"deadlift", Deadlift},
	{"row", Row},
	{"pull up", PullUp},
	{"pullup", PullUp},
	{"chin up", PullUp},
	{"chinup", PullUp},
	{"lat pulldown", PullUp},
	{"pulldown", PullUp},
	{"squat", Squat},
	{"lunge", Lunge},
	{"leg press", Squat},
	{"leg curl", LegCurl},
	{"leg extension", LegCurl},
	{"calf raise", CalfRaise},
	{"shoulder press", ShoulderPress},
	{"overhead press", ShoulderPress},
	{"military press", ShoulderPress},
	{"lateral raise", LateralRaise},
	{"side raise", LateralRaise},
	{"front raise", LateralRaise},
	{"rear delt", LateralRaise},
	{"shrug", Shrug},
	{"bicep curl", Curl},
	{"curl", Curl},
	{"tricep extension", TricepsExtension},
	{"tricep dip", TricepsExtension},
	{"dip", TricepsExtension},
	{"crunch", Crunch},
	{"sit up", SitUp},
	{"situp", SitUp},
	{"plank", PlankCat},
	{"clean", OlympicLift},
	{"snatch", OlympicLift},
	{"hip thrust", HipRaise},
	{"glute bridge", HipRaise},
	{"bridge", HipRaise},
	{"burpee", Plyo},
	{"box jump", Plyo},
	{"jump rope", Cardio},
	{"kettlebell swing", HipSwing},
	{"swing", HipSwing},
	{"wall ball", Chop},
	{"thruster", Squat},
	{"carry", Carry},
	{"farmers carry", Carry},
	{"stretch", Flexibility},
	{"foam roll", Flexibility},
}

// cardioKeywords overrides a would-be Run (32) classification to Cardio (2)
// for machines/activities that are cardio but not outdoor/track running —
// the same override C1's builtin synonyms apply when category 32 is hit.
var cardioKeywords = []string{
	"ski erg", "ski mogul", "ski", "row erg", "rower", "indoor row",
	"assault bike", "echo bike", "air bike", "bike erg", "cycling", "bike",
}

// Classify assigns a category for a normalized exercise name. A manual
// override, if non-nil, wins unconditionally. Otherwise a word starting
// with run/jog/sprint gives Run (or Cardio when a cardioKeywords entry is
// also present), a cardioKeywords entry alone gives Cardio, and only then
// is the ordered rule list scanned; no match defaults to TotalBody. The
// result is always passed through Remap before being returned, so callers
// never see an extended id.
func Classify(normalizedName string, manualOverride *ID) ID {
	if manualOverride != nil {
		return Remap(*manualOverride)
	}

	lower := strings.ToLower(normalizedName)

	// Matched per word prefix so "crunch" is not taken for "run".
	isRun := false
	for _, word := range strings.Fields(lower) {
		for _, kw := range []string{"run", "jog", "sprint"} {
			if strings.HasPrefix(word, kw) {
				isRun = true
			}
		}
	}
	if isRun {
		for _, ck := range cardioKeywords {
			if strings.Contains(lower, ck) {
				return Cardio
			}
		}
		return Run
	}
	for _, ck := range cardioKeywords {
		if strings.Contains(lower, ck) {
			return Cardio
		}
	}

	for _, r := range rules {
		if strings.Contains(lower, r.substr) {
			return Remap(r.id)
		}
	}

	return TotalBody
}

// Name returns a human display label for a category id, used in validation
// reports and YAML notes.
func Name(id ID) string {
	switch id {
	case BenchPress:
		return "Bench Press"
	case CalfRaise:
		return "Calf Raise"
	case Cardio:
		return "Cardio"
	case Carry:
		return "Carry"
	case Chop:
		return "Chop"
	case Core:
		return "Core"
	case Crunch:
		return "Crunch"
	case Curl:
		return "Curl"
	case Deadlift:
		return "Deadlift"
	case Flexibility:
		return "Flexibility"
	case HipRaise:
		return "Hip Raise"
	case HipStability:
		return "Hip Stability"
	case HipSwing:
		return "Hip Swing"
	case Hyperextension:
		return "Hyperextension"
	case LateralRaise:
		return "Lateral Raise"
	case LegCurl:
		return "Leg Curl"
	case LegRaise:
		return "Leg Raise"
	case Lunge:
		return "Lunge"
	case OlympicLift:
		return "Olympic Lift"
	case PlankCat:
		return "Plank"
	case Plyo:
		return "Plyometrics"
	case PullUp:
		return "Pull Up"
	case PushUp:
		return "Push Up"
	case Row:
		return "Row"
	case ShoulderPress:
		return "Shoulder Press"
	case Shrug:
		return "Shrug"
	case SitUp:
		return "Sit Up"
	case Sled:
		return "Sled"
	case Squat:
		return "Squat"
	case TotalBody:
		return "Total Body"
	case TricepsExtension:
		return "Triceps Extension"
	case WarmUp:
		return "Warm Up"
	case Run:
		return "Run"
	default:
		return "Total Body"
	}
}
