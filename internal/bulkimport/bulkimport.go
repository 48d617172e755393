// Package bulkimport implements the Bulk Import Orchestrator (C13): the
// five-phase batched driver (detect, map, match, preview, execute) wrapping
// the same C4/C8 resolution-and-compile path a single-workout request uses.
// Grounded in original_source/backend/bulk_import.py's phase outline and in
// spec.md §4.13 for the concurrency bounds and idempotence requirements.
package bulkimport

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/supergeri/workoutcanonicalmapper/internal/blocks"
	"github.com/supergeri/workoutcanonicalmapper/internal/compiler"
	"github.com/supergeri/workoutcanonicalmapper/internal/normalize"
	"github.com/supergeri/workoutcanonicalmapper/internal/resolver"
	"github.com/supergeri/workoutcanonicalmapper/internal/validation"
	"github.com/supergeri/workoutcanonicalmapper/internal/wmecerr"
)

// SourceKind distinguishes the three input shapes Detect accepts.
type SourceKind int

const (
	SourceFile SourceKind = iota
	SourceURL
	SourceImage
)

// urlDetectConcurrency and imageDetectConcurrency fix spec.md §5's bounded fan-out: 5 concurrent URL
// fetches, 3 concurrent image detections (higher per-call cost).
const (
	urlDetectConcurrency   = 5
	imageDetectConcurrency = 3
)

// Source is one bulk-import input. For SourceFile, Blocks is already
// parsed by an upstream file parser (out of this package's scope, per
// spec.md's framing of parsers as a collaborator, not part of C1-C13); for
// SourceURL and SourceImage, Detect fetches metadata through the injected
// collaborators below.
type Source struct {
	Kind   SourceKind      `json:"kind"`
	Blocks *blocks.Workout `json:"blocks,omitempty"` // SourceFile
	URL    string          `json:"url,omitempty"`    // SourceURL
	Image  []byte          `json:"image,omitempty"`  // SourceImage
}

// URLFetcher fetches lightweight metadata (title, estimated exercise
// count) for a social/video URL. Implementations carry their own 15s
// timeout per spec.md §5.
type URLFetcher interface {
	FetchMetadata(ctx context.Context, url string) (title string, exerciseCount int, confidence float64, err error)
}

// ImageDetector extracts a workout description from a screenshot.
// Implementations carry their own 120s timeout per spec.md §5.
type ImageDetector interface {
	Detect(ctx context.Context, image []byte) (title string, exerciseCount int, confidence float64, err error)
}

// DetectedItem is one source's detect-phase result.
type DetectedItem struct {
	ID            string          `json:"id"`
	SourceKind    SourceKind      `json:"sourceKind"`
	Title         string          `json:"title"`
	ExerciseCount int             `json:"exerciseCount"`
	Confidence    float64         `json:"confidence"`
	Blocks        *blocks.Workout `json:"blocks,omitempty"` // set for SourceFile; nil for URL/image stubs
}

// Detect runs the detect phase over every source, fanning URL and image
// sources out with their respective bounded concurrency while file sources
// (already parsed, no I/O) are wrapped sequentially.
func Detect(ctx context.Context, sources []Source, urlFetcher URLFetcher, imgDetector ImageDetector) ([]DetectedItem, error) {
	items := make([]DetectedItem, len(sources))

	urlGroup, urlCtx := errgroup.WithContext(ctx)
	urlGroup.SetLimit(urlDetectConcurrency)
	imgGroup, imgCtx := errgroup.WithContext(ctx)
	imgGroup.SetLimit(imageDetectConcurrency)

	for i, src := range sources {
		i, src := i, src
		switch src.Kind {
		case SourceFile:
			items[i] = detectFile(i, src)
		case SourceURL:
			urlGroup.Go(func() error {
				item, err := detectURL(urlCtx, i, src, urlFetcher)
				if err != nil {
					return err
				}
				items[i] = item
				return nil
			})
		case SourceImage:
			imgGroup.Go(func() error {
				item, err := detectImage(imgCtx, i, src, imgDetector)
				if err != nil {
					return err
				}
				items[i] = item
				return nil
			})
		}
	}

	if err := urlGroup.Wait(); err != nil {
		return nil, err
	}
	if err := imgGroup.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func detectFile(i int, src Source) DetectedItem {
	count := 0
	if src.Blocks != nil {
		for _, b := range src.Blocks.Blocks {
			count += len(b.Exercises)
			for _, ss := range b.Supersets {
				count += len(ss.Exercises)
			}
		}
	}
	title := ""
	if src.Blocks != nil {
		title = src.Blocks.Title
	}
	return DetectedItem{
		ID:            fmt.Sprintf("item-%d", i),
		SourceKind:    SourceFile,
		Title:         title,
		ExerciseCount: count,
		Confidence:    1.0,
		Blocks:        src.Blocks,
	}
}

func detectURL(ctx context.Context, i int, src Source, fetcher URLFetcher) (DetectedItem, error) {
	title, count, confidence, err := fetcher.FetchMetadata(ctx, src.URL)
	if err != nil {
		return DetectedItem{}, wmecerr.Wrap(wmecerr.ExternalFetchFailed, "fetch url metadata", err)
	}
	return DetectedItem{
		ID: fmt.Sprintf("item-%d", i), SourceKind: SourceURL,
		Title: title, ExerciseCount: count, Confidence: confidence,
	}, nil
}

func detectImage(ctx context.Context, i int, src Source, detector ImageDetector) (DetectedItem, error) {
	title, count, confidence, err := detector.Detect(ctx, src.Image)
	if err != nil {
		return DetectedItem{}, wmecerr.Wrap(wmecerr.ExternalFetchFailed, "detect image", err)
	}
	return DetectedItem{
		ID: fmt.Sprintf("item-%d", i), SourceKind: SourceImage,
		Title: title, ExerciseCount: count, Confidence: confidence,
	}, nil
}

// RawRow is one parsed spreadsheet row, column name -> cell text.
type RawRow map[string]string

// ColumnMapping maps a spreadsheet column name to the Blocks Model field it
// supplies: "name", "sets", "reps", "duration_sec", or "rest_sec".
type ColumnMapping map[string]string

// ApplyColumnMapping implements the map phase (files only): user-supplied
// column mappings turn raw rows into a single-block Blocks Workout. Rows
// missing a mapped "name" cell are skipped.
func ApplyColumnMapping(title string, rows []RawRow, mapping ColumnMapping) (blocks.Workout, error) {
	nameCol := mapping["name"]
	if nameCol == "" {
		return blocks.Workout{}, wmecerr.New(wmecerr.InvalidInput, "column mapping requires a \"name\" column")
	}

	var exercises []blocks.Exercise
	for _, row := range rows {
		name := strings.TrimSpace(row[nameCol])
		if name == "" {
			continue
		}
		ex := blocks.Exercise{Name: name, End: blocks.Open()}
		if repsCol := mapping["reps"]; repsCol != "" {
			if n, ok := parseInt(row[repsCol]); ok {
				ex.End = blocks.Reps(n)
			}
		}
		if durCol := mapping["duration_sec"]; durCol != "" {
			if n, ok := parseInt(row[durCol]); ok {
				ex.End = blocks.Duration(n)
			}
		}
		if setsCol := mapping["sets"]; setsCol != "" {
			if n, ok := parseInt(row[setsCol]); ok {
				ex.Sets = n
			}
		}
		if restCol := mapping["rest_sec"]; restCol != "" {
			if n, ok := parseInt(row[restCol]); ok {
				ex.RestSec = n
			}
		}
		exercises = append(exercises, ex)
	}

	return blocks.New(title, []blocks.Block{{Label: "Main", Exercises: exercises}})
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// MatchResult is one distinct exercise name's match-phase outcome, counted
// across every selected item.
type MatchResult struct {
	Name        string                  `json:"name"`
	Occurrences int                     `json:"occurrences"`
	Resolution  resolver.Resolution     `json:"resolution"`
	Status      validation.Status       `json:"status"`
	Suggestions []validation.Suggestion `json:"suggestions,omitempty"`
}

// Match implements the match phase: collects every distinct exercise name
// across items, resolves each once (honoring userID's override layer), and
// reports per-name status, suggestions, and occurrence counts.
func Match(items []DetectedItem, r *resolver.Resolver, userID string) []MatchResult {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, item := range items {
		if item.Blocks == nil {
			continue
		}
		for _, name := range distinctExerciseNames(*item.Blocks) {
			key := normalize.Name(name)
			if counts[key] == 0 {
				order = append(order, name)
			}
			counts[key]++
		}
	}

	sort.Strings(order)

	results := make([]MatchResult, 0, len(order))
	for _, name := range order {
		res := r.Resolve(userID, name)
		status := validation.Classify(res, validation.DefaultThreshold)
		var suggestions []validation.Suggestion
		if status != validation.StatusValid && r.Catalog != nil {
			suggestions = validation.Suggestions(name, res, r.Catalog)
		}
		results = append(results, MatchResult{
			Name:        name,
			Occurrences: counts[normalize.Name(name)],
			Resolution:  res,
			Status:      status,
			Suggestions: suggestions,
		})
	}
	return results
}

func distinctExerciseNames(w blocks.Workout) []string {
	var names []string
	for _, b := range w.Blocks {
		for _, ex := range b.Exercises {
			names = append(names, ex.Name)
		}
		for _, ss := range b.Supersets {
			for _, ex := range ss.Exercises {
				names = append(names, ex.Name)
			}
		}
	}
	return names
}

// PreviewWorkout is the assembled preview-phase record for one item.
type PreviewWorkout struct {
	Item      DetectedItem `json:"item"`
	Issues    []string     `json:"issues,omitempty"`
	StepCount int          `json:"stepCount"`
	Duplicate bool         `json:"duplicate"`
}

// Preview implements the preview phase: runs validation over each item
// that has parsed Blocks, computes basic stats, and flags items whose
// normalized title repeats an earlier one in the same batch.
func Preview(items []DetectedItem, r *resolver.Resolver, userID string) []PreviewWorkout {
	seenTitles := make(map[string]bool)
	out := make([]PreviewWorkout, 0, len(items))

	for _, item := range items {
		pw := PreviewWorkout{Item: item}

		normTitle := normalize.Name(item.Title)
		if normTitle != "" {
			if seenTitles[normTitle] {
				pw.Duplicate = true
			}
			seenTitles[normTitle] = true
		}

		if item.Blocks != nil {
			report := validation.Validate(*item.Blocks, r, validation.Options{UserID: userID})
			for _, ex := range report.Exercises {
				if ex.Status == validation.StatusUnmapped {
					pw.Issues = append(pw.Issues, fmt.Sprintf("%s: unmapped exercise %q", ex.Path, ex.OriginalName))
				}
			}
			if steps, err := compiler.Compile(*item.Blocks, r, compiler.DefaultOptions()); err == nil {
				pw.StepCount = len(steps)
			}
		} else {
			pw.Issues = append(pw.Issues, "metadata-only item: not yet parsed into a Blocks Model")
		}

		out = append(out, pw)
	}
	return out
}

// JobStatus is the bulk-import job's lifecycle state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job is the persistent bulk-import job record.
type Job struct {
	ID       string    `json:"id"`
	Status   JobStatus `json:"status"`
	Total    int       `json:"total"`
	Progress int       `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

// JobStore persists Job records across the five phases; implementations
// back onto the memory or Firestore stores in internal/store.
type JobStore interface {
	Get(ctx context.Context, id string) (Job, error)
	Update(ctx context.Context, job Job) error
}

// Encoder produces one exported artifact's bytes for a compiled step list.
// Execute calls exactly one Encoder per item (the caller picks
// fitenc/zwoenc/yamlenc/workoutkit ahead of time).
type Encoder func(steps []compiler.Step) ([]byte, error)

// ArtifactWriter persists one item's encoded artifact bytes, keyed by job
// and item id.
type ArtifactWriter interface {
	Write(ctx context.Context, jobID, itemID string, data []byte) error
}

// Execute implements the execute phase: iterates selected items
// sequentially (spec.md §5: "inside Execute, items are processed
// sequentially and the progress counter is the linearization point that
// readers poll"), compiling and persisting each, updating Progress after
// every item, and checking for a cancelled status between items.
func Execute(ctx context.Context, job Job, items []DetectedItem, r *resolver.Resolver, userID string, encode Encoder, writer ArtifactWriter, store JobStore) error {
	if current, err := store.Get(ctx, job.ID); err == nil && current.Status == JobCancelled {
		return wmecerr.New(wmecerr.CancelledJob, "job cancelled before execute started")
	}

	job.Status = JobRunning
	job.Total = len(items)
	job.Progress = 0
	if err := store.Update(ctx, job); err != nil {
		return wmecerr.Wrap(wmecerr.PersistenceFailed, "mark job running", err)
	}

	for _, item := range items {
		current, err := store.Get(ctx, job.ID)
		if err != nil {
			return wmecerr.Wrap(wmecerr.PersistenceFailed, "poll job status", err)
		}
		if current.Status == JobCancelled {
			return wmecerr.New(wmecerr.CancelledJob, "job cancelled before item "+item.ID)
		}

		if item.Blocks == nil {
			job.Progress++
			_ = store.Update(ctx, job)
			continue
		}

		steps, err := compiler.Compile(*item.Blocks, r, compiler.DefaultOptions())
		if err != nil {
			job.Status = JobFailed
			job.Error = err.Error()
			_ = store.Update(ctx, job)
			return wmecerr.Wrap(wmecerr.Internal, "compile item "+item.ID, err)
		}

		data, err := encode(steps)
		if err != nil {
			job.Status = JobFailed
			job.Error = err.Error()
			_ = store.Update(ctx, job)
			return wmecerr.Wrap(wmecerr.Internal, "encode item "+item.ID, err)
		}

		if err := writer.Write(ctx, job.ID, item.ID, data); err != nil {
			job.Status = JobFailed
			job.Error = err.Error()
			_ = store.Update(ctx, job)
			return wmecerr.Wrap(wmecerr.PersistenceFailed, "write artifact for item "+item.ID, err)
		}

		job.Progress++
		if err := store.Update(ctx, job); err != nil {
			return wmecerr.Wrap(wmecerr.PersistenceFailed, "update job progress", err)
		}
	}

	job.Status = JobCompleted
	return store.Update(ctx, job)
}
