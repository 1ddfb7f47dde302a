// Package ical renders scraped matches as an iCalendar feed.
package ical

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/venkytv/atlutd-calendar/internal/models"
	"github.com/venkytv/atlutd-calendar/pkg/calendar"
)

const productID = "-//atlutd-calendar//Match Schedule//EN"

// Exporter writes matches as VEVENTs using the same template as the
// Google Calendar sync, so both outputs agree
type Exporter struct {
	template *calendar.EventTemplate
	name     string
	now      func() time.Time
	logger   *slog.Logger
}

// NewExporter creates an exporter. name becomes X-WR-CALNAME.
func NewExporter(template *calendar.EventTemplate, name string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		template: template,
		name:     name,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the clock used for DTSTAMP
func (e *Exporter) SetClock(now func() time.Time) {
	e.now = now
}

// Calendar builds the feed. Event UIDs come from Match.UID, so exporting
// the same schedule twice produces the same UIDs.
func (e *Exporter) Calendar(matches []models.Match) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if e.name != "" {
		cal.SetXWRCalName(e.name)
	}
	if e.template.TimeZone != "" {
		cal.SetXWRTimezone(e.template.TimeZone)
	}

	stamp := e.now()
	for _, match := range matches {
		event := e.template.Build(match)

		vevent := cal.AddEvent(match.UID() + "@atlutd-calendar")
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(event.Start)
		vevent.SetEndAt(event.End)
		vevent.SetSummary(event.Summary)
		vevent.SetLocation(event.Location)
		vevent.SetDescription(event.Description)
		vevent.SetStatus(ics.ObjectStatusConfirmed)
	}

	return cal
}

// Write serializes the feed for matches to w
func (e *Exporter) Write(w io.Writer, matches []models.Match) error {
	if err := e.Calendar(matches).SerializeTo(w); err != nil {
		return fmt.Errorf("failed to serialize calendar: %w", err)
	}
	return nil
}

// WriteFile writes the feed to path, replacing any existing file
func (e *Exporter) WriteFile(path string, matches []models.Match) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := e.Write(f, matches); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}

	e.logger.Info("Exported matches", "path", path, "matches", len(matches))
	return nil
}
