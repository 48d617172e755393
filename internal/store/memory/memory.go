// Package memory implements the process-local store used by unit tests and
// the CLI tools: process-local maps (MappingStore guarded by sync.RWMutex,
// JobStore by sync.Mutex), in place of
// the teacher's Firestore-backed adapter (see internal/store/firestore for
// the production counterpart). Satisfies resolver.UserMappingStore,
// resolver.PopularityStore, and bulkimport.JobStore without a network round
// trip.
package memory

import (
	"context"
	"sync"

	"github.com/supergeri/workoutcanonicalmapper/internal/bulkimport"
	"github.com/supergeri/workoutcanonicalmapper/internal/wmecerr"
)

// MappingStore holds per-user exercise-name overrides and crowd popularity
// votes, the two inputs the Mapping Resolver (C4) consults ahead of its
// curated and fuzzy layers.
type MappingStore struct {
	mu         sync.RWMutex
	userMaps   map[string]map[string]string // userID -> normalizedName -> displayName
	popularity map[string]map[string]int    // normalizedName -> displayName -> votes
}

// NewMappingStore returns an empty MappingStore.
func NewMappingStore() *MappingStore {
	return &MappingStore{
		userMaps:   make(map[string]map[string]string),
		popularity: make(map[string]map[string]int),
	}
}

// Get implements resolver.UserMappingStore.
func (s *MappingStore) Get(userID, normalizedName string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byName, ok := s.userMaps[userID]
	if !ok {
		return "", false
	}
	display, ok := byName[normalizedName]
	return display, ok
}

// SetUserMapping records userID's override for normalizedName, replacing
// any prior override.
func (s *MappingStore) SetUserMapping(userID, normalizedName, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userMaps[userID] == nil {
		s.userMaps[userID] = make(map[string]string)
	}
	s.userMaps[userID][normalizedName] = displayName
}

// MostPopular implements resolver.PopularityStore.
func (s *MappingStore) MostPopular(normalizedName string) (string, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	votes, ok := s.popularity[normalizedName]
	if !ok || len(votes) == 0 {
		return "", 0, false
	}
	var bestDisplay string
	bestCount := -1
	for display, count := range votes {
		if count > bestCount {
			bestDisplay, bestCount = display, count
		}
	}
	return bestDisplay, bestCount, true
}

// Vote atomically increments normalizedName's vote count for displayName,
// the popularity-tracking counterpart of the teacher's IncrementSyncCount.
func (s *MappingStore) Vote(normalizedName, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.popularity[normalizedName] == nil {
		s.popularity[normalizedName] = make(map[string]int)
	}
	s.popularity[normalizedName][displayName]++
}

// JobStore holds bulk-import Job records in process memory, guarded by a
// mutex since Execute polls Get between every item.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]bulkimport.Job
}

// NewJobStore returns an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]bulkimport.Job)}
}

// Create seeds a new job record, returning an error if id is already taken.
func (s *JobStore) Create(job bulkimport.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return wmecerr.New(wmecerr.InvalidInput, "job "+job.ID+" already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// Get implements bulkimport.JobStore.
func (s *JobStore) Get(ctx context.Context, id string) (bulkimport.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return bulkimport.Job{}, wmecerr.New(wmecerr.InvalidInput, "job "+id+" not found")
	}
	return job, nil
}

// Update implements bulkimport.JobStore.
func (s *JobStore) Update(ctx context.Context, job bulkimport.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

// Cancel marks a job cancelled from outside the Execute loop, the
// operation a DELETE /jobs/{id} handler calls; Execute observes it on its
// next poll between items.
func (s *JobStore) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return wmecerr.New(wmecerr.InvalidInput, "job "+id+" not found")
	}
	job.Status = bulkimport.JobCancelled
	s.jobs[id] = job
	return nil
}
