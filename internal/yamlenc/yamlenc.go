// Package yamlenc implements the YAML Encoder (C11): the Hyrox-style
// schedule-plan document consumed by the mobile app's bulk importer. It
// is HIIT-aware: when the workout carries a tabata/AMRAP/EMOM style flag,
// it delegates to a HIIT rendering branch instead of the general
// round/superset form, per spec.md §4.11. Grounded in
// original_source/backend/adapters/blocks_to_hyrox_yaml.py's
// to_hyrox_yaml, adapted to walk internal/compiler's Step/Node output
// instead of re-parsing the source blocks JSON, and to accumulate mapping
// notes through an explicit return value rather than the original's
// to_hyrox_yaml._mapping_notes function-attribute. The HIIT branch mirrors
// the original's separate blocks_to_hiit_garmin_yaml.to_hiit_garmin_yaml
// entry point, which the retrieved example pack did not include.
package yamlenc

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/supergeri/workoutcanonicalmapper/internal/blocks"
	"github.com/supergeri/workoutcanonicalmapper/internal/category"
	"github.com/supergeri/workoutcanonicalmapper/internal/compiler"
)

// Options customizes the encode.
type Options struct {
	WorkoutName string
	StartFrom   string // YYYY-MM-DD; defaults to "today" when empty

	// HIITStyle selects the HIIT rendering branch when set (tabata,
	// AMRAP, EMOM); empty renders the general round/superset form.
	HIITStyle blocks.WorkoutStyle
}

// document is the root of the Hyrox YAML schedule plan, field order
// matching the original's emitted key order.
type document struct {
	Settings     settings               `yaml:"settings"`
	Workouts     map[string][]yaml.Node `yaml:"workouts"`
	SchedulePlan schedulePlan           `yaml:"schedulePlan"`
}

type settings struct {
	DeleteSameNameWorkout bool `yaml:"deleteSameNameWorkout"`
}

type schedulePlan struct {
	StartFrom string   `yaml:"start_from"`
	Workouts  []string `yaml:"workouts"`
}

// Encode folds steps into the Hyrox YAML document and returns it marshaled.
func Encode(steps []compiler.Step, opts Options) (string, error) {
	if len(steps) == 0 {
		return "", fmt.Errorf("yamlenc: cannot encode a workout with zero steps")
	}

	name := opts.WorkoutName
	if name == "" {
		name = "Workout"
	}
	startFrom := opts.StartFrom
	if startFrom == "" {
		startFrom = "today"
	}

	nodes := compiler.Fold(steps)
	var body []yaml.Node
	var err error
	if opts.HIITStyle.IsHIIT() {
		body, err = encodeHIITNodes(nodes, opts.HIITStyle)
	} else {
		body, err = encodeNodes(nodes)
	}
	if err != nil {
		return "", err
	}

	doc := document{
		Settings: settings{DeleteSameNameWorkout: true},
		Workouts: map[string][]yaml.Node{name: body},
		SchedulePlan: schedulePlan{
			StartFrom: startFrom,
			Workouts:  []string{name},
		},
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("yamlenc: marshal: %w", err)
	}
	return string(out), nil
}

// encodeNodes renders a folded Node list into the YAML sequence of
// single-key mapping entries the original emits: one entry per exercise,
// rest or repeat(N) group.
func encodeNodes(nodes []compiler.Node) ([]yaml.Node, error) {
	var out []yaml.Node
	for _, n := range nodes {
		entry, err := encodeNode(n)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func encodeNode(n compiler.Node) (yaml.Node, error) {
	if n.IsRepeat {
		body, err := encodeNodes(n.Body)
		if err != nil {
			return yaml.Node{}, err
		}
		key := fmt.Sprintf("repeat(%d)", n.Count)
		return singleKeyMapping(key, sequenceNode(body)), nil
	}
	return encodeLeaf(n.Step), nil
}

// encodeLeaf renders one exercise/warmup/rest step, per spec.md §4.11's
// value formula: time-based steps emit a bare duration string with no
// mapping note; everything else (reps, open, distance) defaults to "lap"
// and carries the original name plus the resolver's reason as a note.
func encodeLeaf(s compiler.Step) yaml.Node {
	if s.Kind == compiler.KindRest {
		return singleKeyMapping("rest", scalarNode(restValue(s)))
	}

	key := fmt.Sprintf("%s [category: %s]", s.DisplayName, categoryToken(s.CategoryID))
	return singleKeyMapping(key, scalarNode(exerciseValue(s)))
}

// encodeHIITNodes renders the HIIT branch: repeat groups become
// "rounds(N)" rather than "repeat(N)", and each working step's key is
// tagged with the style name, matching the distinct key shape the
// original's to_hiit_garmin_yaml used for tabata/AMRAP/EMOM workouts.
func encodeHIITNodes(nodes []compiler.Node, style blocks.WorkoutStyle) ([]yaml.Node, error) {
	var out []yaml.Node
	for _, n := range nodes {
		if n.IsRepeat {
			body, err := encodeHIITNodes(n.Body, style)
			if err != nil {
				return nil, err
			}
			key := fmt.Sprintf("rounds(%d)", n.Count)
			out = append(out, singleKeyMapping(key, sequenceNode(body)))
			continue
		}
		out = append(out, encodeHIITLeaf(n.Step, style))
	}
	return out, nil
}

func encodeHIITLeaf(s compiler.Step, style blocks.WorkoutStyle) yaml.Node {
	if s.Kind == compiler.KindRest {
		return singleKeyMapping("rest", scalarNode(restValue(s)))
	}
	key := fmt.Sprintf("%s [category: %s] (%s)", s.DisplayName, categoryToken(s.CategoryID), style)
	return singleKeyMapping(key, scalarNode(exerciseValue(s)))
}

func restValue(s compiler.Step) string {
	if s.DurationType == compiler.DurationTimeMS {
		return fmt.Sprintf("%ds", s.DurationValue/1000)
	}
	return "lap"
}

func exerciseValue(s compiler.Step) string {
	if s.DurationType == compiler.DurationTimeMS {
		return fmt.Sprintf("%ds", s.DurationValue/1000)
	}
	return "lap | " + note(s)
}

// note reconstructs the original exercise description (name plus any
// rep/distance detail the compiled duration dropped) and appends the
// resolver's mapping reason in parentheses, when one was recorded.
func note(s compiler.Step) string {
	base := s.OriginalName
	if base == "" {
		base = s.DisplayName
	}
	switch s.DurationType {
	case compiler.DurationReps:
		base = fmt.Sprintf("%s x%d", base, s.DurationValue)
	case compiler.DurationDistanceCM:
		base = fmt.Sprintf("%s %dm", base, s.DurationValue/100)
	}
	if s.Reason == "" {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, s.Reason)
}

// categoryToken renders a category id as the upper-snake symbol used
// throughout the catalog and FIT SDK (e.g. "BENCH_PRESS").
func categoryToken(id category.ID) string {
	return strings.ToUpper(strings.ReplaceAll(category.Name(id), " ", "_"))
}

// singleKeyMapping builds a one-entry !!map node, the shape every list
// item in the Hyrox document takes.
func singleKeyMapping(key string, value yaml.Node) yaml.Node {
	return yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&value,
		},
	}
}

func scalarNode(v string) yaml.Node {
	return yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func sequenceNode(items []yaml.Node) yaml.Node {
	n := yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for i := range items {
		n.Content = append(n.Content, &items[i])
	}
	return n
}
