package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/venkytv/atlutd-calendar/internal/models"
)

// Options controls a Synchronizer
type Options struct {
	CalendarID string
	MaxResults int64
	// Verbose logs every deleted, inserted and updated event at Info level
	// instead of Debug
	Verbose bool
	DryRun  bool
}

// Synchronizer replaces the upcoming events of one calendar with the
// current match list
type Synchronizer struct {
	service  EventService
	template *EventTemplate
	options  Options
	now      func() time.Time
	logger   *slog.Logger
}

// NewSynchronizer creates a new synchronizer
func NewSynchronizer(service EventService, template *EventTemplate, options Options, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	if options.MaxResults == 0 {
		options.MaxResults = 1000
	}

	return &Synchronizer{
		service:  service,
		template: template,
		options:  options,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock overrides the time source used as the lower bound for listing
func (s *Synchronizer) SetClock(now func() time.Time) {
	s.now = now
}

// Sync deletes every upcoming event and inserts one event per match.
// It stops at the first failed call; work already done is not rolled back
// and the returned report counts it.
func (s *Synchronizer) Sync(ctx context.Context, matches []models.Match) (*models.SyncReport, error) {
	report := s.newReport(matches)

	events, err := s.listUpcoming(ctx)
	if err != nil {
		return s.finish(report), err
	}

	for _, event := range events {
		if err := s.service.DeleteEvent(ctx, s.options.CalendarID, event.ID); err != nil {
			return s.finish(report), fmt.Errorf("failed to delete event %s: %w", event.ID, err)
		}
		report.Deleted++
		s.logEvent("Deleted event", "event_id", event.ID, "summary", event.Summary)
	}

	for _, match := range matches {
		if err := s.insert(ctx, match); err != nil {
			return s.finish(report), err
		}
		report.Inserted++
	}

	s.finish(report)
	s.logger.Debug("Calendar synchronized",
		"calendar_id", report.CalendarID,
		"deleted", report.Deleted,
		"inserted", report.Inserted,
		"elapsed", report.Elapsed())

	return report, nil
}

// Reconcile patches upcoming events in place instead of recreating them.
// Events and matches are paired by position; an event is updated only when
// one of its fields differs from the rendered match. Surplus matches are
// inserted and surplus events deleted.
func (s *Synchronizer) Reconcile(ctx context.Context, matches []models.Match) (*models.SyncReport, error) {
	report := s.newReport(matches)

	events, err := s.listUpcoming(ctx)
	if err != nil {
		return s.finish(report), err
	}

	for i, event := range events {
		if i >= len(matches) {
			if err := s.service.DeleteEvent(ctx, s.options.CalendarID, event.ID); err != nil {
				return s.finish(report), fmt.Errorf("failed to delete event %s: %w", event.ID, err)
			}
			report.Deleted++
			s.logEvent("Deleted surplus event", "event_id", event.ID, "summary", event.Summary)
			continue
		}

		existing, err := s.service.GetEvent(ctx, s.options.CalendarID, event.ID)
		if err != nil {
			return s.finish(report), fmt.Errorf("failed to get event %s: %w", event.ID, err)
		}

		desired := s.template.Build(matches[i])
		changed := Diff(existing, desired)
		if len(changed) == 0 {
			continue
		}

		desired.ID = existing.ID
		if _, err := s.service.UpdateEvent(ctx, s.options.CalendarID, desired); err != nil {
			return s.finish(report), fmt.Errorf("failed to update event %s: %w", event.ID, err)
		}
		report.Updated++
		s.logEvent("Updated event", "event_id", existing.ID, "summary", desired.Summary, "fields", changed)
	}

	for i := len(events); i < len(matches); i++ {
		if err := s.insert(ctx, matches[i]); err != nil {
			return s.finish(report), err
		}
		report.Inserted++
	}

	s.finish(report)
	s.logger.Debug("Calendar reconciled",
		"calendar_id", report.CalendarID,
		"updated", report.Updated,
		"deleted", report.Deleted,
		"inserted", report.Inserted,
		"elapsed", report.Elapsed())

	return report, nil
}

func (s *Synchronizer) listUpcoming(ctx context.Context) ([]*models.Event, error) {
	from := s.now().UTC()

	events, err := s.service.ListUpcoming(ctx, s.options.CalendarID, from, s.options.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming events: %w", err)
	}

	s.logger.Debug("Listed upcoming events",
		"calendar_id", s.options.CalendarID,
		"from", from.Format(time.RFC3339),
		"count", len(events))

	return events, nil
}

func (s *Synchronizer) insert(ctx context.Context, match models.Match) error {
	event := s.template.Build(match)

	created, err := s.service.InsertEvent(ctx, s.options.CalendarID, event)
	if err != nil {
		return fmt.Errorf("failed to insert event %q: %w", event.Summary, err)
	}

	s.logEvent("Inserted event",
		"event_id", created.ID,
		"summary", event.Summary,
		"start", event.Start.Format(time.RFC3339))
	return nil
}

func (s *Synchronizer) newReport(matches []models.Match) *models.SyncReport {
	return &models.SyncReport{
		CalendarID: s.options.CalendarID,
		Matches:    len(matches),
		DryRun:     s.options.DryRun,
		StartedAt:  s.now().UTC(),
	}
}

func (s *Synchronizer) finish(report *models.SyncReport) *models.SyncReport {
	report.FinishedAt = s.now().UTC()
	return report
}

func (s *Synchronizer) logEvent(msg string, args ...any) {
	if s.options.Verbose {
		s.logger.Info(msg, args...)
		return
	}
	s.logger.Debug(msg, args...)
}
