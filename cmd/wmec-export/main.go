// Command wmec-export compiles a Blocks Model JSON file to a single
// export format, grounded on the teacher's cmd/fit-gen: read an input
// JSON file, run the domain pipeline, write an output file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/supergeri/workoutcanonicalmapper/internal/blocks"
	"github.com/supergeri/workoutcanonicalmapper/internal/catalog"
	"github.com/supergeri/workoutcanonicalmapper/internal/compiler"
	"github.com/supergeri/workoutcanonicalmapper/internal/fitenc"
	"github.com/supergeri/workoutcanonicalmapper/internal/resolver"
	"github.com/supergeri/workoutcanonicalmapper/internal/sport"
	"github.com/supergeri/workoutcanonicalmapper/internal/workoutkit"
	"github.com/supergeri/workoutcanonicalmapper/internal/yamlenc"
	"github.com/supergeri/workoutcanonicalmapper/internal/zwoenc"
)

func main() {
	inputFile := flag.String("input", "", "Path to input Blocks Model JSON file")
	outputFile := flag.String("output", "", "Path to output file (default: stdout)")
	format := flag.String("format", "fit", "Export format: fit, zwo, yaml, workoutkit")
	catalogPath := flag.String("catalog", "", "Optional path to a catalog JSON file")
	zwoSport := flag.String("sport", "", "ZWO sport override: run or bike (auto-detected if empty)")
	flag.Parse()

	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*inputFile)
	if err != nil {
		log.Fatalf("read input file: %v", err)
	}

	var workout blocks.Workout
	if err := json.Unmarshal(data, &workout); err != nil {
		log.Fatalf("parse blocks json: %v", err)
	}

	cat := catalog.New()
	if *catalogPath != "" {
		raw, err := os.ReadFile(*catalogPath)
		if err != nil {
			log.Fatalf("read catalog file: %v", err)
		}
		if err := cat.LoadJSON(raw); err != nil {
			log.Fatalf("load catalog: %v", err)
		}
	}
	res := resolver.New(cat, nil, nil)

	style := blocks.DetectStyle(workout)
	opts := compiler.DefaultOptions()
	opts.HIITStyle = style
	steps, err := compiler.Compile(workout, res, opts)
	if err != nil {
		log.Fatalf("compile: %v", err)
	}

	var out []byte
	switch *format {
	case "fit":
		inferred := sport.Infer(compiler.CategoryIDs(steps))
		out, err = fitenc.Encode(steps, fitenc.Options{WorkoutName: workout.Title, Sport: inferred})
	case "zwo":
		s, encErr := zwoenc.Encode(steps, zwoenc.Options{WorkoutName: workout.Title, Sport: zwoenc.Sport(*zwoSport)})
		out, err = []byte(s), encErr
	case "yaml":
		s, encErr := yamlenc.Encode(steps, yamlenc.Options{WorkoutName: workout.Title, HIITStyle: style})
		out, err = []byte(s), encErr
	case "workoutkit":
		s, encErr := workoutkit.Encode(steps, workoutkit.Options{WorkoutName: workout.Title})
		out, err = []byte(s), encErr
	default:
		log.Fatalf("unknown format %q: want fit, zwo, yaml, or workoutkit", *format)
	}
	if err != nil {
		log.Fatalf("encode %s: %v", *format, err)
	}

	if *outputFile == "" {
		os.Stdout.Write(out)
		return
	}
	if err := os.WriteFile(*outputFile, out, 0644); err != nil {
		log.Fatalf("write output file: %v", err)
	}
	fmt.Printf("wrote %s (%d bytes) to %s\n", *format, len(out), *outputFile)
}
