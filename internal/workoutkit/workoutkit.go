// Package workoutkit implements the Apple WorkoutKit DTO encoder: the JSON
// shape consumed by the mobile app to create a structured workout on Apple
// Watch. Not present in the retrieved original_source dump (its Python
// sibling, backend/adapters/blocks_to_workoutkit.py, is referenced from
// app.py but wasn't part of the retrieval), so this is grounded on
// spec.md §6's documented schema and on the compiled Step/Node shape the
// sibling ZWO and YAML encoders already walk.
package workoutkit

import (
	"encoding/json"
	"fmt"

	"github.com/supergeri/workoutcanonicalmapper/internal/blocks"
	"github.com/supergeri/workoutcanonicalmapper/internal/compiler"
)

// Sport selects the WorkoutKit activity type.
type Sport string

const (
	SportRunning                     Sport = "running"
	SportCycling                     Sport = "cycling"
	SportTraditionalStrengthTraining Sport = "traditionalStrengthTraining"
	SportOther                       Sport = "other"
)

// Options customizes the encode.
type Options struct {
	WorkoutName string
	Sport       Sport // if empty, DetectSport chooses one
}

// document is the root WorkoutKit DTO, per spec.md §6: sport, total
// duration in seconds, and an ordered interval list.
type document struct {
	Name            string     `json:"name"`
	Sport           Sport      `json:"sport"`
	TotalDurationSec int       `json:"totalDurationSec"`
	Intervals       []interval `json:"intervals"`
}

// interval is a tagged union over the three interval kinds spec.md §6
// documents. Apart from Name, which non-rest "time" intervals also carry,
// one kind-specific field group is populated, mirroring interval's Kind
// discriminant.
type interval struct {
	Kind string `json:"kind"` // "time", "reps", or "repeat"

	// kind == "time"
	Seconds int     `json:"seconds,omitempty"`
	Target  *target `json:"target,omitempty"`

	// kind == "reps"
	Reps    int    `json:"reps,omitempty"`
	Name    string `json:"name,omitempty"`
	Load    string `json:"load,omitempty"`
	RestSec int    `json:"restSec,omitempty"`

	// kind == "repeat"
	RepeatReps int        `json:"repeatReps,omitempty"`
	Intervals  []interval `json:"intervals,omitempty"`
}

// target is the intensity target attached to a "time" interval, when the
// source exercise carried one.
type target struct {
	Kind string  `json:"kind"` // "power", "pace", "heartRate", or "rpe"
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// DetectSport returns traditionalStrengthTraining when any exercise step is
// rep-counted and other otherwise. Display names are not inspected, so
// running and cycling come only from an explicit Options.Sport.
func DetectSport(steps []compiler.Step) Sport {
	sawReps := false
	for _, s := range steps {
		if s.Kind != compiler.KindExercise {
			continue
		}
		switch s.DurationType {
		case compiler.DurationReps:
			sawReps = true
		}
	}
	if sawReps {
		return SportTraditionalStrengthTraining
	}
	return SportOther
}

// Encode folds steps into the WorkoutKit JSON document.
func Encode(steps []compiler.Step, opts Options) (string, error) {
	if len(steps) == 0 {
		return "", fmt.Errorf("workoutkit: cannot encode a workout with zero steps")
	}

	sport := opts.Sport
	if sport == "" {
		sport = DetectSport(steps)
	}
	name := opts.WorkoutName
	if name == "" {
		name = "Workout"
	}

	nodes := compiler.Fold(steps)
	intervals := encodeNodes(nodes)

	doc := document{
		Name:             name,
		Sport:            sport,
		TotalDurationSec: totalSeconds(intervals),
		Intervals:        intervals,
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("workoutkit: marshal: %w", err)
	}
	return string(out), nil
}

func encodeNodes(nodes []compiler.Node) []interval {
	var out []interval
	for _, n := range nodes {
		if n.IsRepeat {
			out = append(out, interval{
				Kind:       "repeat",
				RepeatReps: n.Count,
				Intervals:  encodeNodes(n.Body),
			})
			continue
		}
		out = append(out, encodeLeaf(n.Step))
	}
	return out
}

// encodeLeaf classifies a compiled step into a "reps" interval (the
// DurationReps case) or a "time" interval (everything else: rest, warmup,
// open-ended, and distance-based steps, the last via the same
// distance-to-time heuristic the ZWO encoder uses).
func encodeLeaf(s compiler.Step) interval {
	if s.DurationType == compiler.DurationReps {
		iv := interval{Kind: "reps", Reps: s.DurationValue, Name: s.DisplayName}
		if s.Kind == compiler.KindRest {
			iv.Name = "Rest"
		}
		return iv
	}

	iv := interval{Kind: "time", Seconds: stepSeconds(s)}
	if s.Kind != compiler.KindRest {
		iv.Name = s.DisplayName
	}
	if t := encodeTarget(s); t != nil {
		iv.Target = t
	}
	return iv
}

func stepSeconds(s compiler.Step) int {
	switch s.DurationType {
	case compiler.DurationTimeMS:
		return s.DurationValue / 1000
	case compiler.DurationDistanceCM:
		meters := float64(s.DurationValue) / 100.0
		sec := int(meters * 0.30)
		if sec < 30 {
			sec = 30
		}
		return sec
	default:
		return 60
	}
}

func encodeTarget(s compiler.Step) *target {
	switch s.Target.Kind {
	case blocks.IntensityPower:
		return &target{Kind: "power", Min: s.Target.Min, Max: s.Target.Max}
	case blocks.IntensityPace:
		return &target{Kind: "pace", Min: s.Target.Min, Max: s.Target.Max}
	case blocks.IntensityHR:
		return &target{Kind: "heartRate", Min: s.Target.Min, Max: s.Target.Max}
	case blocks.IntensityRPE:
		return &target{Kind: "rpe", Min: s.Target.Min, Max: s.Target.Max}
	default:
		return nil
	}
}

func totalSeconds(intervals []interval) int {
	total := 0
	for _, iv := range intervals {
		switch iv.Kind {
		case "time":
			total += iv.Seconds
		case "reps":
			total += 3 // rough per-rep estimate; the watch re-times live anyway
		case "repeat":
			total += iv.RepeatReps * totalSeconds(iv.Intervals)
		}
	}
	return total
}
