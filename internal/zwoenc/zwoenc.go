// Package zwoenc implements the ZWO Encoder (C10): Zwift run/ride training
// XML, folding a compiled step list back into SteadyState/IntervalsT
// elements and mapping power/pace/HR/RPE targets to scalar intensities.
// Grounded in original_source/backend/adapters/blocks_to_zwo.py's
// export_zwo, adapted to walk internal/compiler's Step/Node output instead
// of re-parsing the source blocks JSON.
package zwoenc

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/supergeri/workoutcanonicalmapper/internal/blocks"
	"github.com/supergeri/workoutcanonicalmapper/internal/compiler"
)

// Sport selects the ZWO sportType and governs whether intensity scalars are
// expressed as Power (bike) or Pace (run).
type Sport string

const (
	SportRun  Sport = "run"
	SportRide Sport = "bike"
)

// Options customizes the encode.
type Options struct {
	WorkoutName string
	Sport       Sport // if empty, DetectSport chooses one
	Description string
}

// DetectSport auto-detects run vs ride from step display names, per
// spec.md §4.10: "bike/watt/FTP" keywords select ride, else run.
func DetectSport(steps []compiler.Step) Sport {
	for _, s := range steps {
		lower := strings.ToLower(s.DisplayName)
		if strings.Contains(lower, "bike") || strings.Contains(lower, "ride") ||
			strings.Contains(lower, "cycle") || strings.Contains(lower, "watt") ||
			strings.Contains(lower, "ftp") {
			return SportRide
		}
	}
	return SportRun
}

// Encode folds steps into nested ZWO XML and returns the full document,
// XML declaration included.
func Encode(steps []compiler.Step, opts Options) (string, error) {
	if len(steps) == 0 {
		return "", fmt.Errorf("zwoenc: cannot encode a workout with zero steps")
	}

	sport := opts.Sport
	if sport == "" {
		sport = DetectSport(steps)
	}

	desc := opts.Description
	if desc == "" {
		desc = "Auto-generated from canonical workout model"
	}

	nodes := compiler.Fold(steps)
	elements := encodeNodes(nodes, sport)

	doc := workoutFile{
		Name:        opts.WorkoutName,
		SportType:   string(sport),
		Description: desc,
		Body:        workoutBody{Elements: elements},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("zwoenc: marshal: %w", err)
	}

	return xml.Header + string(out) + "\n", nil
}

// encodeNodes walks a folded Node list, collapsing a [exercise, rest]
// repeat body into a single IntervalsT and everything else into ordered
// SteadyState elements (spec.md §4.10's steady/interval/rest/fallback
// cases).
func encodeNodes(nodes []compiler.Node, sport Sport) []any {
	var out []any
	for _, n := range nodes {
		if n.IsRepeat {
			if el, ok := asIntervals(n, sport); ok {
				out = append(out, el)
				continue
			}
			// Not a simple work/rest pair: flatten the repeated body N times.
			for i := 0; i < n.Count; i++ {
				out = append(out, encodeNodes(n.Body, sport)...)
			}
			continue
		}
		out = append(out, encodeLeaf(n.Step, sport))
	}
	return out
}

// asIntervals recognizes the compiler's standard "[active exercise][rest]"
// repeat body and folds it into one <IntervalsT Repeat=N OnDuration=...
// OffDuration=... />, matching the literal scenario in spec.md §8.5.
func asIntervals(n compiler.Node, sport Sport) (intervalsT, bool) {
	if len(n.Body) != 2 || n.Body[0].IsRepeat || n.Body[1].IsRepeat {
		return intervalsT{}, false
	}
	work := n.Body[0].Step
	rest := n.Body[1].Step
	if work.Intensity != compiler.IntensityActive || rest.Kind != compiler.KindRest {
		return intervalsT{}, false
	}

	el := intervalsT{
		Repeat:      n.Count,
		OnDuration:  stepSeconds(work),
		OffDuration: stepSeconds(rest),
	}
	applyTarget(&el, work.Target, sport)
	return el, true
}

func encodeLeaf(s compiler.Step, sport Sport) steadyState {
	dur := stepSeconds(s)

	switch s.Kind {
	case compiler.KindRest:
		el := steadyState{Duration: dur}
		setOffIntensity(&el, 0.40, sport)
		return el
	case compiler.KindExercise, compiler.KindWarmup:
		el := steadyState{Duration: dur}
		applySteadyTarget(&el, s.Target, sport)
		return el
	default:
		el := steadyState{Duration: dur}
		setOnIntensity(&el, 0.60, sport)
		return el
	}
}

// stepSeconds normalizes a compiled step's duration to seconds for ZWO,
// including the distance-to-time placeholder heuristic of spec.md §4.10:
// max(30s, 0.30*meters).
func stepSeconds(s compiler.Step) int {
	switch s.DurationType {
	case compiler.DurationTimeMS:
		return s.DurationValue / 1000
	case compiler.DurationDistanceCM:
		meters := float64(s.DurationValue) / 100.0
		return int(math.Max(30, math.Round(meters*0.30)))
	default:
		return 60
	}
}

// avgScalar averages a Target's min/max, clamped to [0.10, 1.50], or the
// 0.70 endurance default when no target is set.
func avgScalar(t blocks.Target) float64 {
	if t.Kind == blocks.IntensityNone {
		return 0.70
	}
	v := (t.Min + t.Max) / 2.0
	if v < 0.10 {
		return 0.10
	}
	if v > 1.50 {
		return 1.50
	}
	return v
}

func hrToProxy(scalar float64) float64 {
	return clamp(0.5, 1.1, 0.8*scalar)
}

func rpeToProxy(scalar float64) float64 {
	return clamp(0.5, 1.1, scalar)
}

func clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// applySteadyTarget sets a single-sided intensity attribute (Power, Pace,
// or HR/RPE proxied to Power/Pace), per spec.md §4.10.
func applySteadyTarget(el *steadyState, t blocks.Target, sport Sport) {
	val := avgScalar(t)
	switch t.Kind {
	case blocks.IntensityPower:
		el.Power = percent(val)
	case blocks.IntensityPace:
		if sport == SportRun {
			el.Pace = decimal(val)
		} else {
			el.Power = percent(val)
		}
	case blocks.IntensityHR:
		proxy := hrToProxy(val)
		if sport == SportRun {
			el.Pace = decimal(proxy)
		} else {
			el.Power = percent(proxy)
		}
	case blocks.IntensityRPE:
		proxy := rpeToProxy(val)
		if sport == SportRun {
			el.Pace = decimal(proxy)
		} else {
			el.Power = percent(proxy)
		}
	default:
		if sport == SportRun {
			el.Pace = "0.70"
		} else {
			el.Power = "70"
		}
	}
}

func applyTarget(el *intervalsT, t blocks.Target, sport Sport) {
	val := avgScalar(t)
	switch t.Kind {
	case blocks.IntensityPower:
		el.OnPower = percent(val)
		el.OffPower = "40"
	case blocks.IntensityPace:
		if sport == SportRun {
			el.OnPace = decimal(val)
			el.OffPace = "0.90"
		} else {
			el.OnPower = percent(val)
			el.OffPower = "40"
		}
	case blocks.IntensityHR:
		proxy := hrToProxy(val)
		setIntervalProxy(el, proxy, sport)
	case blocks.IntensityRPE:
		proxy := rpeToProxy(val)
		setIntervalProxy(el, proxy, sport)
	default:
		if sport == SportRun {
			el.OnPace = "0.80"
			el.OffPace = "0.90"
		} else {
			el.OnPower = "80"
			el.OffPower = "50"
		}
	}
}

func setIntervalProxy(el *intervalsT, proxy float64, sport Sport) {
	if sport == SportRun {
		el.OnPace = decimal(proxy)
		el.OffPace = "0.90"
	} else {
		el.OnPower = percent(proxy)
		el.OffPower = "40"
	}
}

func setOnIntensity(el *steadyState, val float64, sport Sport) {
	if sport == SportRun {
		el.Pace = decimal(val)
	} else {
		el.Power = percent(val)
	}
}

func setOffIntensity(el *steadyState, val float64, sport Sport) {
	if sport == SportRun {
		el.Pace = decimal(val)
	} else {
		el.Power = percent(val)
	}
}

// percent renders a 0-1 scalar as a ZWO Power attribute: an integer
// 0-100, never "0.70" (a historical defect named in spec.md §4.10).
func percent(scalar float64) string {
	return strconv.Itoa(int(math.Round(scalar * 100)))
}

func decimal(scalar float64) string {
	return fmt.Sprintf("%.2f", scalar)
}

// --- XML element shapes ---

type steadyState struct {
	XMLName  xml.Name `xml:"SteadyState"`
	Duration int      `xml:"Duration,attr"`
	Power    string   `xml:"Power,attr,omitempty"`
	Pace     string   `xml:"Pace,attr,omitempty"`
}

type intervalsT struct {
	XMLName     xml.Name `xml:"IntervalsT"`
	Repeat      int      `xml:"Repeat,attr"`
	OnDuration  int      `xml:"OnDuration,attr"`
	OffDuration int      `xml:"OffDuration,attr"`
	OnPower     string   `xml:"OnPower,attr,omitempty"`
	OffPower    string   `xml:"OffPower,attr,omitempty"`
	OnPace      string   `xml:"OnPace,attr,omitempty"`
	OffPace     string   `xml:"OffPace,attr,omitempty"`
}

// workoutBody marshals a heterogeneous element list (SteadyState and
// IntervalsT interleaved) under one <workout> wrapper, which encoding/xml
// cannot express through struct tags alone since the child element name
// varies per entry.
type workoutBody struct {
	Elements []any
}

func (w workoutBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "workout"}
	start.Attr = nil
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, el := range w.Elements {
		if err := e.Encode(el); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

type workoutFile struct {
	XMLName     xml.Name    `xml:"workout_file"`
	Name        string      `xml:"name"`
	SportType   string      `xml:"sportType"`
	Description string      `xml:"description"`
	Body        workoutBody `xml:"workout"`
}
