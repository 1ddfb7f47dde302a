package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/venkytv/atlutd-calendar/internal/models"
	calendarPkg "github.com/venkytv/atlutd-calendar/pkg/calendar"
)

// Provider implements calendar.EventService for Google Calendar
type Provider struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewProvider creates a Google Calendar provider authorized by ts.
// Extra client options are appended, which lets tests point the client at
// a local server.
func NewProvider(ctx context.Context, ts oauth2.TokenSource, logger *slog.Logger, opts ...option.ClientOption) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if ts != nil {
		opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	}

	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}

	return &Provider{
		service: service,
		logger:  logger,
	}, nil
}

// ListUpcoming retrieves a single page of events starting at or after from
func (p *Provider) ListUpcoming(ctx context.Context, calendarID string, from time.Time, maxResults int64) ([]*models.Event, error) {
	result, err := p.service.Events.List(calendarID).
		Context(ctx).
		TimeMin(from.Format(time.RFC3339)).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events for calendar %s: %w", calendarID, err)
	}

	events := make([]*models.Event, 0, len(result.Items))
	for _, item := range result.Items {
		event, err := fromGoogleEvent(item)
		if err != nil {
			// Only the ID is needed for deletion, keep the event anyway
			p.logger.Warn("Failed to convert event",
				"event_id", item.Id,
				"error", err)
			event = &models.Event{ID: item.Id, Summary: item.Summary}
		}
		events = append(events, event)
	}

	return events, nil
}

// GetEvent retrieves a single event
func (p *Provider) GetEvent(ctx context.Context, calendarID, eventID string) (*models.Event, error) {
	item, err := p.service.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve event %s: %w", eventID, err)
	}
	return fromGoogleEvent(item)
}

// InsertEvent creates an event
func (p *Provider) InsertEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error) {
	created, err := p.service.Events.Insert(calendarID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to insert event: %w", err)
	}
	return fromGoogleEvent(created)
}

// UpdateEvent fetches the stored event, overwrites the fields this program
// manages and writes it back, leaving every other field untouched
func (p *Provider) UpdateEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error) {
	existing, err := p.service.Events.Get(calendarID, event.ID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve event %s: %w", event.ID, err)
	}

	applyEvent(existing, event)

	updated, err := p.service.Events.Update(calendarID, event.ID, existing).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to update event %s: %w", event.ID, err)
	}
	return fromGoogleEvent(updated)
}

// DeleteEvent removes an event
func (p *Provider) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := p.service.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to delete event %s: %w", eventID, err)
	}
	return nil
}

// GetCalendar returns metadata about a calendar, confirming it is reachable
func (p *Provider) GetCalendar(ctx context.Context, calendarID string) (*calendarPkg.Calendar, error) {
	item, err := p.service.Calendars.Get(calendarID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendar %s: %w", calendarID, err)
	}

	return &calendarPkg.Calendar{
		ID:          item.Id,
		Name:        item.Summary,
		Description: item.Description,
		TimeZone:    item.TimeZone,
	}, nil
}

var _ calendarPkg.EventService = (*Provider)(nil)
