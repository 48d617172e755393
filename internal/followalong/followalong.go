// Package followalong implements the Follow-along session record: a
// lightweight record of a user currently stepping through a compiled
// workout in real time, so a companion display can show progress. A
// supplement to the distilled spec (SPEC_FULL.md's Follow-along session
// record), grounded in
// original_source/backend/follow_along_database.py's
// save_follow_along_workout/get_follow_along_workout/
// get_follow_along_workouts and its two sync-status update functions.
//
// This package does not execute workouts or gate encoding; it is additive
// telemetry over an already-compiled step list (internal/compiler.Step),
// consistent with spec.md's Non-goal that the core does not run workouts
// on a device.
package followalong

import (
	"time"

	"github.com/supergeri/workoutcanonicalmapper/internal/wmecerr"
)

// Step is the subset of a compiled step the companion display needs,
// mirroring follow_along_steps' order/label/canonical_exercise_id/
// start_time_sec/end_time_sec/target_reps/target_duration_sec/
// intensity_hint/notes columns.
type Step struct {
	Order                int
	Label                string
	CanonicalExerciseID  *int
	StartTimeSec         int
	EndTimeSec           int
	TargetReps           *int
	TargetDurationSec    *int
	IntensityHint        string
	Notes                string
}

// Session is a follow_along_workouts row plus its ordered steps: a record
// of a user mid-workout, which compiled step they're on, and the two
// optional device-sync identifiers the original tracks.
type Session struct {
	ID          string
	UserID      string
	Source      string // e.g. "bulk_import", "manual"
	SourceURL   string
	Title       string
	Description string

	VideoDurationSec int
	ThumbnailURL     string
	VideoProxyURL    string

	Steps []Step

	CurrentStepIndex int
	StartedAt        time.Time

	GarminWorkoutID      string
	GarminLastSyncAt     *time.Time
	AppleWatchWorkoutID  string
	AppleWatchLastSyncAt *time.Time
}

// New builds a Session for userID at the start of a follow-along, mirroring
// save_follow_along_workout's insert shape. steps must be non-empty and
// already ordered; Order fields are assigned 0..len(steps)-1 to match the
// original's explicit "order" column rather than relying on slice position.
func New(id, userID, source, title string, steps []Step, startedAt time.Time) (Session, error) {
	if userID == "" {
		return Session{}, wmecerr.New(wmecerr.InvalidInput, "followalong: userID must not be empty")
	}
	if len(steps) == 0 {
		return Session{}, wmecerr.New(wmecerr.InvalidInput, "followalong: steps must not be empty")
	}
	ordered := make([]Step, len(steps))
	for i, s := range steps {
		s.Order = i
		if s.EndTimeSec > s.StartTimeSec && s.TargetDurationSec == nil {
			dur := s.EndTimeSec - s.StartTimeSec
			s.TargetDurationSec = &dur
		}
		ordered[i] = s
	}
	return Session{
		ID:        id,
		UserID:    userID,
		Source:    source,
		Title:     title,
		Steps:     ordered,
		StartedAt: startedAt,
	}, nil
}

// Advance moves the session to the next step, clamped to the last step
// index; it never advances past the end of the compiled step list.
func (s *Session) Advance() {
	if s.CurrentStepIndex < len(s.Steps)-1 {
		s.CurrentStepIndex++
	}
}

// Reset returns the session to its first step, for a user restarting the
// same follow-along without issuing a new session record.
func (s *Session) Reset() {
	s.CurrentStepIndex = 0
}

// AtStep reports the Step the session currently points at.
func (s *Session) AtStep() (Step, bool) {
	if s.CurrentStepIndex < 0 || s.CurrentStepIndex >= len(s.Steps) {
		return Step{}, false
	}
	return s.Steps[s.CurrentStepIndex], true
}

// SyncGarmin records a completed Garmin watch sync, mirroring
// update_follow_along_garmin_sync.
func (s *Session) SyncGarmin(workoutID string, at time.Time) {
	s.GarminWorkoutID = workoutID
	s.GarminLastSyncAt = &at
}

// SyncAppleWatch records a completed Apple Watch sync, mirroring
// update_follow_along_apple_watch_sync.
func (s *Session) SyncAppleWatch(workoutID string, at time.Time) {
	s.AppleWatchWorkoutID = workoutID
	s.AppleWatchLastSyncAt = &at
}

// Store persists and retrieves follow-along sessions, matching the
// original's Supabase-backed get_follow_along_workout(s) access pattern:
// every read is scoped to the owning user.
type Store interface {
	Save(session Session) error
	Get(id, userID string) (Session, bool, error)
	List(userID string, limit int) ([]Session, error)
}
