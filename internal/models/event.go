package models

import (
	"time"
)

// Event represents a calendar event independent of the backing provider
type Event struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	TimeZone    string    `json:"time_zone,omitempty"`
}

// SyncReport summarizes one run of the synchronizer.
// It is logged at the end of every run and published to NATS when configured.
type SyncReport struct {
	CalendarID string    `json:"calendar_id"`
	Scraped    int       `json:"scraped"`
	Matches    int       `json:"matches"`
	Deleted    int       `json:"deleted"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated,omitempty"`
	DryRun     bool      `json:"dry_run,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Elapsed returns how long the run took
func (r *SyncReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
