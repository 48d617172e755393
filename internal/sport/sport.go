// Package sport implements Sport Inference (C6): computing a Garmin
// (sport, sub_sport) pair from the set of exercise categories a compiled
// workout uses. Grounded in
// original_source/backend/adapters/blocks_to_fit.py's sport selection,
// corrected per spec.md §4.6 to never emit sport_id=4 (fitness_equipment).
package sport

import "github.com/supergeri/workoutcanonicalmapper/internal/category"

// ID is a Garmin sport enum value.
type ID int

// SubID is a Garmin sub_sport enum value.
type SubID int

const (
	SportRunning  ID = 1
	SportTraining ID = 10
)

const (
	SubGeneric         SubID = 0
	SubStrengthTraining SubID = 20
	SubCardioTraining   SubID = 26
)

// Inference is the resolved (sport, sub_sport) pair.
type Inference struct {
	Sport    ID
	SubSport SubID
}

// Infer computes the sport/sub_sport pair from the distinct category ids
// used across a compiled step list, following spec.md §4.6:
//   - running only, no strength, no cardio machine -> (running, generic)
//   - any cardio (2) or running (32) present         -> (training, cardio_training)
//   - otherwise                                       -> (training, strength_training)
//
// categoryIDs should already be post-remap (see category.Remap); Infer
// does not remap them itself.
func Infer(categoryIDs []category.ID) Inference {
	hasRunning := false
	hasCardio := false
	hasStrength := false

	for _, id := range categoryIDs {
		switch id {
		case category.Run:
			hasRunning = true
		case category.Cardio:
			hasCardio = true
		default:
			hasStrength = true
		}
	}

	if hasRunning && !hasStrength && !hasCardio {
		return Inference{Sport: SportRunning, SubSport: SubGeneric}
	}
	if hasCardio || hasRunning {
		return Inference{Sport: SportTraining, SubSport: SubCardioTraining}
	}
	return Inference{Sport: SportTraining, SubSport: SubStrengthTraining}
}

// Forced builds an Inference from a caller-supplied sport/sub-sport pair,
// bypassing category-based inference entirely (spec.md §4.6: "callers may
// force a sport type").
func Forced(s ID, sub SubID) Inference {
	return Inference{Sport: s, SubSport: sub}
}
