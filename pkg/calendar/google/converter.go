package google

import (
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/venkytv/atlutd-calendar/internal/models"
)

// localDateTime is an RFC3339 date-time without offset. The API interprets
// it in the accompanying timeZone field.
const localDateTime = "2006-01-02T15:04:05"

// toGoogleEvent converts an internal event into an API payload.
// Recurrence, attendees and reminders are left empty.
func toGoogleEvent(event *models.Event) *calendar.Event {
	return &calendar.Event{
		Id:          event.ID,
		Summary:     event.Summary,
		Location:    event.Location,
		Description: event.Description,
		Start:       toEventDateTime(event.Start, event.TimeZone),
		End:         toEventDateTime(event.End, event.TimeZone),
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

// applyEvent copies the fields owned by this program onto an existing payload
func applyEvent(dst *calendar.Event, event *models.Event) {
	dst.Summary = event.Summary
	dst.Location = event.Location
	dst.Description = event.Description
	dst.Start = toEventDateTime(event.Start, event.TimeZone)
	dst.End = toEventDateTime(event.End, event.TimeZone)
}

func toEventDateTime(t time.Time, timeZone string) *calendar.EventDateTime {
	if timeZone == "" {
		return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
	}

	if loc, err := time.LoadLocation(timeZone); err == nil {
		t = t.In(loc)
	}

	return &calendar.EventDateTime{
		DateTime: t.Format(localDateTime),
		TimeZone: timeZone,
	}
}

// fromGoogleEvent converts an API event into the internal model
func fromGoogleEvent(item *calendar.Event) (*models.Event, error) {
	start, err := parseEventTime(item.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start time: %w", err)
	}

	end, err := parseEventTime(item.End)
	if err != nil {
		return nil, fmt.Errorf("failed to parse end time: %w", err)
	}

	event := &models.Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Location:    item.Location,
		Description: item.Description,
		Start:       start,
		End:         end,
	}
	if item.Start != nil {
		event.TimeZone = item.Start.TimeZone
	}

	return event, nil
}

// parseEventTime parses Google Calendar event time (handles both dateTime and date fields)
func parseEventTime(eventTime *calendar.EventDateTime) (time.Time, error) {
	if eventTime == nil {
		return time.Time{}, fmt.Errorf("event time is nil")
	}

	loc := time.UTC
	if eventTime.TimeZone != "" {
		if l, err := time.LoadLocation(eventTime.TimeZone); err == nil {
			loc = l
		}
	}

	// Try DateTime first (for events with specific times)
	if eventTime.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, eventTime.DateTime); err == nil {
			return t, nil
		}

		// No offset: the wall clock is in TimeZone
		t, err := time.ParseInLocation(localDateTime, eventTime.DateTime, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse datetime: %w", err)
		}
		return t, nil
	}

	// Fall back to Date (for all-day events)
	if eventTime.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", eventTime.Date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("no datetime or date field found")
}
