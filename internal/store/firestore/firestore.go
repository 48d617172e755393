// Package firestore adapts the Mapping Resolver's user-mapping and
// popularity lookups, and the Bulk Import Orchestrator's job persistence,
// onto Cloud Firestore. Adapted from the teacher's
// pkg/infrastructure/database/firestore.go typed sub-collection wrapper
// pattern, re-keyed to WMEC's own collections (user_mappings, popularity,
// bulk_import_jobs) instead of the teacher's activity-sync collections.
package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/supergeri/workoutcanonicalmapper/internal/bulkimport"
	"github.com/supergeri/workoutcanonicalmapper/internal/wmecerr"
)

// MappingStore implements resolver.UserMappingStore and
// resolver.PopularityStore against Firestore. Both interfaces are
// context-free and error-free by design (a resolution layer that can't
// answer just falls through to the next one), so lookup failures here
// collapse to ok=false rather than surfacing the underlying error. Get and
// MostPopular use context.Background() since the resolver cascade itself
// has no request context to thread through; Vote and SetUserMapping, which
// do return errors, take the caller's ctx.
type MappingStore struct {
	Client *firestore.Client
}

// NewMappingStore adapts an existing Firestore client.
func NewMappingStore(client *firestore.Client) *MappingStore {
	return &MappingStore{Client: client}
}

func (s *MappingStore) userMappingsColl() *firestore.CollectionRef {
	return s.Client.Collection("user_mappings")
}

func (s *MappingStore) popularityColl() *firestore.CollectionRef {
	return s.Client.Collection("popularity")
}

// Get implements resolver.UserMappingStore: each user's overrides live in
// a single document keyed by userID, with normalizedName as a field path,
// mirroring the teacher's "users/{id}/..." sub-collection convention but
// flattened since overrides are small key/value maps, not growing lists.
func (s *MappingStore) Get(userID, normalizedName string) (string, bool) {
	ctx := context.Background()
	doc, err := s.userMappingsColl().Doc(userID).Get(ctx)
	if err != nil {
		return "", false
	}
	data := doc.Data()
	display, ok := data[normalizedName].(string)
	if !ok || display == "" {
		return "", false
	}
	return display, true
}

// SetUserMapping persists userID's override for normalizedName.
func (s *MappingStore) SetUserMapping(ctx context.Context, userID, normalizedName, displayName string) error {
	_, err := s.userMappingsColl().Doc(userID).Set(ctx, map[string]interface{}{
		normalizedName: displayName,
	}, firestore.MergeAll)
	if err != nil {
		return wmecerr.Wrap(wmecerr.PersistenceFailed, "set user mapping", err)
	}
	return nil
}

// popularityDoc is the shape stored per normalized exercise name: a map of
// display name -> vote count.
type popularityDoc struct {
	Votes map[string]int64 `firestore:"votes"`
}

// MostPopular implements resolver.PopularityStore.
func (s *MappingStore) MostPopular(normalizedName string) (string, int, bool) {
	ctx := context.Background()
	doc, err := s.popularityColl().Doc(normalizedName).Get(ctx)
	if err != nil {
		return "", 0, false
	}
	var rec popularityDoc
	if err := doc.DataTo(&rec); err != nil || len(rec.Votes) == 0 {
		return "", 0, false
	}
	var bestDisplay string
	var bestCount int64 = -1
	for display, count := range rec.Votes {
		if count > bestCount {
			bestDisplay, bestCount = display, count
		}
	}
	return bestDisplay, int(bestCount), true
}

// Vote atomically increments normalizedName's vote count for displayName,
// using firestore.Increment exactly as the teacher's IncrementSyncCount
// does for its monthly sync counter.
func (s *MappingStore) Vote(ctx context.Context, normalizedName, displayName string) error {
	_, err := s.popularityColl().Doc(normalizedName).Set(ctx, map[string]interface{}{
		"votes": map[string]interface{}{
			displayName: firestore.Increment(1),
		},
	}, firestore.MergeAll)
	if err != nil {
		return wmecerr.Wrap(wmecerr.PersistenceFailed, "record popularity vote", err)
	}
	return nil
}

// JobStore implements bulkimport.JobStore against Firestore.
type JobStore struct {
	Client *firestore.Client
}

// NewJobStore adapts an existing Firestore client.
func NewJobStore(client *firestore.Client) *JobStore {
	return &JobStore{Client: client}
}

func (s *JobStore) coll() *firestore.CollectionRef {
	return s.Client.Collection("bulk_import_jobs")
}

// jobDoc mirrors bulkimport.Job for Firestore round-tripping.
type jobDoc struct {
	Status   string `firestore:"status"`
	Total    int    `firestore:"total"`
	Progress int    `firestore:"progress"`
	Error    string `firestore:"error"`
}

// Create seeds a new job document.
func (s *JobStore) Create(ctx context.Context, job bulkimport.Job) error {
	_, err := s.coll().Doc(job.ID).Set(ctx, jobDoc{
		Status:   string(job.Status),
		Total:    job.Total,
		Progress: job.Progress,
		Error:    job.Error,
	})
	if err != nil {
		return wmecerr.Wrap(wmecerr.PersistenceFailed, "create job", err)
	}
	return nil
}

// Get implements bulkimport.JobStore.
func (s *JobStore) Get(ctx context.Context, id string) (bulkimport.Job, error) {
	doc, err := s.coll().Doc(id).Get(ctx)
	if err != nil {
		return bulkimport.Job{}, wmecerr.Wrap(wmecerr.PersistenceFailed, "get job "+id, err)
	}
	var rec jobDoc
	if err := doc.DataTo(&rec); err != nil {
		return bulkimport.Job{}, wmecerr.Wrap(wmecerr.PersistenceFailed, "decode job "+id, err)
	}
	return bulkimport.Job{
		ID:       id,
		Status:   bulkimport.JobStatus(rec.Status),
		Total:    rec.Total,
		Progress: rec.Progress,
		Error:    rec.Error,
	}, nil
}

// Update implements bulkimport.JobStore.
func (s *JobStore) Update(ctx context.Context, job bulkimport.Job) error {
	_, err := s.coll().Doc(job.ID).Set(ctx, jobDoc{
		Status:   string(job.Status),
		Total:    job.Total,
		Progress: job.Progress,
		Error:    job.Error,
	})
	if err != nil {
		return wmecerr.Wrap(wmecerr.PersistenceFailed, "update job "+job.ID, err)
	}
	return nil
}

// Cancel marks a job cancelled, the operation an HTTP DELETE handler calls;
// Execute observes it on its next poll between items.
func (s *JobStore) Cancel(ctx context.Context, id string) error {
	_, err := s.coll().Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(bulkimport.JobCancelled)},
	})
	if err != nil {
		return wmecerr.Wrap(wmecerr.PersistenceFailed, "cancel job "+id, err)
	}
	return nil
}
