package calendar

import (
	"context"
	"log/slog"
	"time"

	"github.com/venkytv/atlutd-calendar/internal/models"
)

// DryRunService reads through to a real service but only logs writes
type DryRunService struct {
	EventService
	logger *slog.Logger
}

// NewDryRunService wraps service so that no event is created, changed or deleted
func NewDryRunService(service EventService, logger *slog.Logger) *DryRunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunService{EventService: service, logger: logger}
}

// InsertEvent logs the event instead of creating it
func (d *DryRunService) InsertEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error) {
	d.logger.Info("[DRY RUN] Would insert event",
		"calendar_id", calendarID,
		"summary", event.Summary,
		"location", event.Location,
		"start", event.Start.Format(time.RFC3339),
		"end", event.End.Format(time.RFC3339))
	return event, nil
}

// UpdateEvent logs the event instead of updating it
func (d *DryRunService) UpdateEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error) {
	d.logger.Info("[DRY RUN] Would update event",
		"calendar_id", calendarID,
		"event_id", event.ID,
		"summary", event.Summary)
	return event, nil
}

// DeleteEvent logs the deletion instead of performing it
func (d *DryRunService) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	d.logger.Info("[DRY RUN] Would delete event",
		"calendar_id", calendarID,
		"event_id", eventID)
	return nil
}
