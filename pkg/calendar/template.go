package calendar

import (
	"fmt"
	"time"

	"github.com/venkytv/atlutd-calendar/internal/models"
)

// EventTemplate renders matches as calendar events
type EventTemplate struct {
	Team      string
	HomeVenue string
	TimeZone  string
	Duration  time.Duration
}

// Preposition returns "vs" for home matches and "at" for away matches
func (t *EventTemplate) Preposition(m models.Match) string {
	if m.Venue == t.HomeVenue {
		return "vs"
	}
	return "at"
}

// Summary returns the event title, e.g. "Atlanta United vs Orlando City SC (MLS)"
func (t *EventTemplate) Summary(m models.Match) string {
	return fmt.Sprintf("%s %s %s (%s)", t.Team, t.Preposition(m), m.Opponent, m.Competition)
}

// Description returns the broadcast line followed by the title
func (t *EventTemplate) Description(m models.Match) string {
	return fmt.Sprintf("TV: %s\n%s", m.Broadcast, t.Summary(m))
}

// Build returns the event to insert for m
func (t *EventTemplate) Build(m models.Match) *models.Event {
	return &models.Event{
		Summary:     t.Summary(m),
		Location:    m.Venue,
		Description: t.Description(m),
		Start:       m.Kickoff,
		End:         m.Kickoff.Add(t.Duration),
		TimeZone:    t.TimeZone,
	}
}

// Diff lists the fields of existing that differ from desired.
// Start times are compared as instants.
func Diff(existing, desired *models.Event) []string {
	var fields []string

	if !existing.Start.Equal(desired.Start) {
		fields = append(fields, "start")
	}
	if existing.Summary != desired.Summary {
		fields = append(fields, "summary")
	}
	if existing.Location != desired.Location {
		fields = append(fields, "location")
	}
	if existing.Description != desired.Description {
		fields = append(fields, "description")
	}

	return fields
}
