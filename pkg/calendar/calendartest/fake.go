// Package calendartest provides an in-memory EventService for tests.
package calendartest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/venkytv/atlutd-calendar/internal/models"
)

// Call records one method invocation on a FakeService
type Call struct {
	Method     string
	CalendarID string
	EventID    string
	Event      *models.Event
}

// FakeService stores events in memory and records every call
type FakeService struct {
	Events []*models.Event
	Calls  []Call

	// Fail, when set, is consulted before every call with the method name
	// and the 1-based count of calls to that method. A non-nil result is
	// returned as the call's error.
	Fail func(method string, n int) error

	counts map[string]int
	nextID int
}

// NewFakeService returns a service preloaded with events
func NewFakeService(events ...*models.Event) *FakeService {
	return &FakeService{Events: events, counts: make(map[string]int)}
}

// CallsTo returns the recorded calls to method
func (f *FakeService) CallsTo(method string) []Call {
	var calls []Call
	for _, c := range f.Calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

func (f *FakeService) record(c Call) error {
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[c.Method]++
	f.Calls = append(f.Calls, c)
	if f.Fail != nil {
		return f.Fail(c.Method, f.counts[c.Method])
	}
	return nil
}

func (f *FakeService) ListUpcoming(ctx context.Context, calendarID string, from time.Time, maxResults int64) ([]*models.Event, error) {
	if err := f.record(Call{Method: "ListUpcoming", CalendarID: calendarID}); err != nil {
		return nil, err
	}

	var events []*models.Event
	for _, e := range f.Events {
		if !e.Start.Before(from) {
			copied := *e
			events = append(events, &copied)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })

	if maxResults > 0 && int64(len(events)) > maxResults {
		events = events[:maxResults]
	}
	return events, nil
}

func (f *FakeService) GetEvent(ctx context.Context, calendarID, eventID string) (*models.Event, error) {
	if err := f.record(Call{Method: "GetEvent", CalendarID: calendarID, EventID: eventID}); err != nil {
		return nil, err
	}

	i := f.index(eventID)
	if i < 0 {
		return nil, fmt.Errorf("event %s not found", eventID)
	}
	copied := *f.Events[i]
	return &copied, nil
}

func (f *FakeService) InsertEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error) {
	if err := f.record(Call{Method: "InsertEvent", CalendarID: calendarID, Event: event}); err != nil {
		return nil, err
	}

	f.nextID++
	created := *event
	created.ID = fmt.Sprintf("event-%d", f.nextID)
	f.Events = append(f.Events, &created)

	result := created
	return &result, nil
}

func (f *FakeService) UpdateEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error) {
	if err := f.record(Call{Method: "UpdateEvent", CalendarID: calendarID, EventID: event.ID, Event: event}); err != nil {
		return nil, err
	}

	i := f.index(event.ID)
	if i < 0 {
		return nil, fmt.Errorf("event %s not found", event.ID)
	}
	updated := *event
	f.Events[i] = &updated

	result := updated
	return &result, nil
}

func (f *FakeService) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := f.record(Call{Method: "DeleteEvent", CalendarID: calendarID, EventID: eventID}); err != nil {
		return err
	}

	i := f.index(eventID)
	if i < 0 {
		return fmt.Errorf("event %s not found", eventID)
	}
	f.Events = append(f.Events[:i], f.Events[i+1:]...)
	return nil
}

func (f *FakeService) index(eventID string) int {
	for i, e := range f.Events {
		if e.ID == eventID {
			return i
		}
	}
	return -1
}
