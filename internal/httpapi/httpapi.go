// Package httpapi exposes WMEC over HTTP with github.com/go-chi/chi/v5,
// the ambient transport surface spec.md names "for context" since
// transport itself is an external collaborator. Handlers are thin: decode
// request, call the relevant internal package, encode response or
// artifact bytes. Authentication is a Firebase ID-token pass-through
// middleware (bootstrap.Service.Auth), matching the teacher's own
// auth wiring; WMEC does not implement user management itself.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/supergeri/workoutcanonicalmapper/internal/blocks"
	"github.com/supergeri/workoutcanonicalmapper/internal/bootstrap"
	"github.com/supergeri/workoutcanonicalmapper/internal/bulkimport"
	"github.com/supergeri/workoutcanonicalmapper/internal/compiler"
	"github.com/supergeri/workoutcanonicalmapper/internal/fitenc"
	"github.com/supergeri/workoutcanonicalmapper/internal/resolver"
	"github.com/supergeri/workoutcanonicalmapper/internal/sport"
	"github.com/supergeri/workoutcanonicalmapper/internal/suggest"
	"github.com/supergeri/workoutcanonicalmapper/internal/validation"
	"github.com/supergeri/workoutcanonicalmapper/internal/workoutkit"
	"github.com/supergeri/workoutcanonicalmapper/internal/yamlenc"
	"github.com/supergeri/workoutcanonicalmapper/internal/zwoenc"
)

type userIDKey struct{}

// NewRouter builds the full WMEC HTTP surface: auto-map (YAML), to-fit,
// to-zwo, to-workoutkit, workflow/validate, the two exercise-match
// endpoints spec.md §6 names, and the three bulk-import endpoints
// (detect, match, execute).
func NewRouter(svc *bootstrap.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(svc.Logger))

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(svc))

		r.Post("/map/auto-map", handleAutoMap(svc))
		r.Post("/map/to-fit", handleToFit(svc))
		r.Post("/map/to-zwo", handleToZwo(svc))
		r.Post("/map/to-workoutkit", handleToWorkoutKit(svc))
		r.Post("/workflow/validate", handleValidate(svc))
		r.Post("/exercises/match", handleMatch(svc))
		r.Post("/exercises/match/batch", handleMatchBatch(svc))

		r.Post("/bulk-import/detect", handleBulkDetect(svc))
		r.Post("/bulk-import/match", handleBulkMatch(svc))
		r.Post("/bulk-import/execute", handleBulkExecute(svc))
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Info("request", "method", req.Method, "path", req.URL.Path)
			next.ServeHTTP(w, req)
		})
	}
}

// authMiddleware verifies a Firebase ID token from the Authorization
// header when svc.Auth is configured, attaching the verified UID to the
// request context; it is a pass-through otherwise (e.g. local dev without
// a Firebase project configured).
func authMiddleware(svc *bootstrap.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if svc.Auth == nil {
				next.ServeHTTP(w, req)
				return
			}
			authz := req.Header.Get("Authorization")
			tokenStr := strings.TrimPrefix(authz, "Bearer ")
			if tokenStr == "" || tokenStr == authz {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			token, err := svc.Auth.VerifyIDToken(req.Context(), tokenStr)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := context.WithValue(req.Context(), userIDKey{}, token.UID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func userIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(userIDKey{}).(string)
	return uid
}

type mapRequest struct {
	Blocks      blocks.Workout `json:"blocks"`
	WorkoutName string         `json:"workoutName,omitempty"`
}

func decodeMapRequest(w http.ResponseWriter, r *http.Request) (mapRequest, bool) {
	var req mapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return mapRequest{}, false
	}
	if req.WorkoutName == "" {
		req.WorkoutName = req.Blocks.Title
	}
	return req, true
}

func compileOrError(w http.ResponseWriter, workout blocks.Workout, res *resolver.Resolver, opts compiler.Options) ([]compiler.Step, bool) {
	steps, err := compiler.Compile(workout, res, opts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "compile: "+err.Error())
		return nil, false
	}
	return steps, true
}

// handleAutoMap: POST /map/auto-map {blocks_json} -> {yaml}.
func handleAutoMap(svc *bootstrap.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeMapRequest(w, r)
		if !ok {
			return
		}
		style := blocks.DetectStyle(req.Blocks)
		opts := compiler.DefaultOptions()
		opts.HIITStyle = style
		steps, ok := compileOrError(w, req.Blocks, svc.Resolver, opts)
		if !ok {
			return
		}
		out, err := yamlenc.Encode(steps, yamlenc.Options{WorkoutName: req.WorkoutName, HIITStyle: style})
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "encode yaml: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(out))
	}
}

// handleToFit: POST /map/to-fit {blocks_json}?use_lap_button -> FIT bytes.
// use_lap_button=true compiles every exercise as an open lap-button step.
// A sport_type parameter is not read: the FIT sport is always inferred
// from the compiled categories.
func handleToFit(svc *bootstrap.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeMapRequest(w, r)
		if !ok {
			return
		}
		opts := compiler.DefaultOptions()
		opts.LapButtonMode = r.URL.Query().Get("use_lap_button") == "true"
		steps, ok := compileOrError(w, req.Blocks, svc.Resolver, opts)
		if !ok {
			return
		}
		inferred := sport.Infer(compiler.CategoryIDs(steps))
		data, err := fitenc.Encode(steps, fitenc.Options{WorkoutName: req.WorkoutName, Sport: inferred})
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "encode fit: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
	}
}

// handleToZwo: POST /map/to-zwo {blocks_json}?sport -> XML. A format
// parameter is not read.
func handleToZwo(svc *bootstrap.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeMapRequest(w, r)
		if !ok {
			return
		}
		steps, ok := compileOrError(w, req.Blocks, svc.Resolver, compiler.DefaultOptions())
		if !ok {
			return
		}
		zwoSport := zwoenc.Sport(r.URL.Query().Get("sport"))
		out, err := zwoenc.Encode(steps, zwoenc.Options{WorkoutName: req.WorkoutName, Sport: zwoSport})
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "encode zwo: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(out))
	}
}

// handleToWorkoutKit: POST /map/to-workoutkit {blocks_json} -> JSON.
func handleToWorkoutKit(svc *bootstrap.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeMapRequest(w, r)
		if !ok {
			return
		}
		steps, ok := compileOrError(w, req.Blocks, svc.Resolver, compiler.DefaultOptions())
		if !ok {
			return
		}
		out, err := workoutkit.Encode(steps, workoutkit.Options{WorkoutName: req.WorkoutName})
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "encode workoutkit: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(out))
	}
}

// handleValidate: POST /workflow/validate {blocks_json} -> validation report.
func handleValidate(svc *bootstrap.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeMapRequest(w, r)
		if !ok {
			return
		}
		report := validation.Validate(req.Blocks, svc.Resolver, validation.Options{
			UserID: userIDFromContext(r.Context()),
		})
		writeJSON(w, http.StatusOK, report)
	}
}

type matchRequest struct {
	Name  string `json:"name"`
	Limit int    `json:"limit"`
}

type matchResponse struct {
	MatchedName string               `json:"matchedName"`
	Confidence  float64              `json:"confidence"`
	Status      validation.Status    `json:"status"`
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

// handleMatch: POST /exercises/match {name, limit} -> {matched_name,
// confidence, suggestions, status}.
func handleMatch(svc *bootstrap.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		resp := matchOne(svc, userIDFromContext(r.Context()), req.Name, req.Limit)
		writeJSON(w, http.StatusOK, resp)
	}
}

func matchOne(svc *bootstrap.Service, userID, name string, limit int) matchResponse {
	res := svc.Resolver.Resolve(userID, name)
	status := validation.Classify(res, validation.DefaultThreshold)

	var suggestions []suggest.Suggestion
	if status != validation.StatusValid {
		if limit <= 0 {
			limit = suggest.DefaultLimit
		}
		suggestions = suggest.FindSimilar(name, svc.Catalog, limit, suggest.DefaultMinScore)
	}

	return matchResponse{
		MatchedName: res.DisplayName,
		Confidence:  res.Confidence,
		Status:      status,
		Suggestions: suggestions,
	}
}

type matchBatchRequest struct {
	Names []string `json:"names"`
	Limit int      `json:"limit"`
}

type matchBatchResponse struct {
	Results    []matchResponse `json:"results"`
	ValidCount int             `json:"validCount"`
	TotalCount int             `json:"totalCount"`
}

// handleMatchBatch: POST /exercises/match/batch {names, limit} -> batch
// result with counters.
func handleMatchBatch(svc *bootstrap.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matchBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		userID := userIDFromContext(r.Context())
		resp := matchBatchResponse{Results: make([]matchResponse, len(req.Names))}
		for i, name := range req.Names {
			m := matchOne(svc, userID, name, req.Limit)
			resp.Results[i] = m
			if m.Status == validation.StatusValid {
				resp.ValidCount++
			}
		}
		resp.TotalCount = len(req.Names)
		writeJSON(w, http.StatusOK, resp)
	}
}

type bulkDetectRequest struct {
	Sources []bulkimport.Source `json:"sources"`
}

// handleBulkDetect: POST /bulk-import/detect {sources} -> detected items,
// the first phase of the Bulk Import Orchestrator (C13). URL and image
// sources route through svc.Fetcher; a missing Fetcher degrades those two
// source kinds to an error per item rather than failing the whole batch.
func handleBulkDetect(svc *bootstrap.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkDetectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		items, err := bulkimport.Detect(r.Context(), req.Sources, svc.Fetcher, svc.Fetcher)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "detect: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

type bulkMatchRequest struct {
	Items []bulkimport.DetectedItem `json:"items"`
}

// handleBulkMatch: POST /bulk-import/match {items} -> per-name match
// results across the whole batch (the match phase).
func handleBulkMatch(svc *bootstrap.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		results := bulkimport.Match(req.Items, svc.Resolver, userIDFromContext(r.Context()))
		writeJSON(w, http.StatusOK, results)
	}
}

type bulkExecuteRequest struct {
	JobID  string                    `json:"jobId"`
	Items  []bulkimport.DetectedItem `json:"items"`
	Format string                    `json:"format"` // fit, zwo, yaml, workoutkit
}

// handleBulkExecute: POST /bulk-import/execute {jobId, items, format} ->
// runs the execute phase synchronously, creating the job record in
// svc.MemJobs and writing one artifact per item through
// svc.ArtifactWriter(). When svc.MemJobs is nil (as it is with
// Firestore configured) the request fails with 503.
func handleBulkExecute(svc *bootstrap.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkExecuteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if svc.MemJobs == nil {
			writeError(w, http.StatusServiceUnavailable, "no job store configured")
			return
		}
		writer := svc.ArtifactWriter()
		if writer == nil {
			writeError(w, http.StatusServiceUnavailable, "no artifact bucket configured")
			return
		}
		encode, ok := bulkEncoder(req.Format)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown format: "+req.Format)
			return
		}
		if req.JobID == "" {
			req.JobID = uuid.NewString()
		}

		job := bulkimport.Job{ID: req.JobID, Status: bulkimport.JobPending}
		if err := svc.MemJobs.Create(job); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		if err := bulkimport.Execute(r.Context(), job, req.Items, svc.Resolver, userIDFromContext(r.Context()), encode, writer, svc.MemJobs); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "execute: "+err.Error())
			return
		}
		result, err := svc.MemJobs.Get(r.Context(), req.JobID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func bulkEncoder(format string) (bulkimport.Encoder, bool) {
	switch format {
	case "fit":
		return func(steps []compiler.Step) ([]byte, error) {
			inferred := sport.Infer(compiler.CategoryIDs(steps))
			return fitenc.Encode(steps, fitenc.Options{Sport: inferred})
		}, true
	case "zwo":
		return func(steps []compiler.Step) ([]byte, error) {
			out, err := zwoenc.Encode(steps, zwoenc.Options{})
			return []byte(out), err
		}, true
	case "yaml":
		return func(steps []compiler.Step) ([]byte, error) {
			out, err := yamlenc.Encode(steps, yamlenc.Options{})
			return []byte(out), err
		}, true
	case "workoutkit":
		return func(steps []compiler.Step) ([]byte, error) {
			out, err := workoutkit.Encode(steps, workoutkit.Options{})
			return []byte(out), err
		}, true
	default:
		return nil, false
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
