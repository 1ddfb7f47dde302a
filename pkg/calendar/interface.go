package calendar

import (
	"context"
	"time"

	"github.com/venkytv/atlutd-calendar/internal/models"
)

// EventService defines the calendar operations the synchronizer needs
type EventService interface {
	// ListUpcoming returns events starting at or after from, expanded to
	// single instances and ordered by start time
	ListUpcoming(ctx context.Context, calendarID string, from time.Time, maxResults int64) ([]*models.Event, error)

	// GetEvent retrieves a single event
	GetEvent(ctx context.Context, calendarID, eventID string) (*models.Event, error)

	// InsertEvent creates an event and returns it with its assigned ID
	InsertEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error)

	// UpdateEvent overwrites the fields of the event identified by event.ID
	UpdateEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error)

	// DeleteEvent removes an event
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
