package calendar

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/venkytv/atlutd-calendar/internal/models"
	"github.com/venkytv/atlutd-calendar/pkg/calendar/calendartest"
)

var syncNow = time.Date(2018, time.March, 5, 17, 0, 0, 0, time.UTC)

func newTestSynchronizer(service EventService, options Options) *Synchronizer {
	if options.CalendarID == "" {
		options.CalendarID = "test-calendar"
	}
	s := NewSynchronizer(service, testTemplate(), options, nil)
	s.SetClock(func() time.Time { return syncNow })
	return s
}

func testMatches() []models.Match {
	return []models.Match{
		{
			Opponent:    "D.C. United",
			Venue:       "MERCEDES-BENZ STADIUM",
			Kickoff:     syncNow.Add(6 * 24 * time.Hour),
			Broadcast:   "ESPN",
			Competition: "MLS",
		},
		{
			Opponent:    "Minnesota United FC",
			Venue:       "TCF BANK STADIUM",
			Kickoff:     syncNow.Add(12 * 24 * time.Hour),
			Broadcast:   "FS South",
			Competition: "MLS",
		},
	}
}

func TestSync(t *testing.T) {
	past := &models.Event{ID: "past", Summary: "old match", Start: syncNow.Add(-24 * time.Hour)}
	future1 := &models.Event{ID: "future-1", Summary: "stale 1", Start: syncNow.Add(time.Hour)}
	future2 := &models.Event{ID: "future-2", Summary: "stale 2", Start: syncNow.Add(48 * time.Hour)}

	service := calendartest.NewFakeService(past, future1, future2)
	s := newTestSynchronizer(service, Options{})

	report, err := s.Sync(context.Background(), testMatches())
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}

	if report.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", report.Deleted)
	}
	if report.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", report.Inserted)
	}
	if report.Matches != 2 {
		t.Errorf("Matches = %d, want 2", report.Matches)
	}
	if report.CalendarID != "test-calendar" {
		t.Errorf("CalendarID = %q, want test-calendar", report.CalendarID)
	}

	deletes := service.CallsTo("DeleteEvent")
	if len(deletes) != 2 || deletes[0].EventID != "future-1" || deletes[1].EventID != "future-2" {
		t.Errorf("DeleteEvent calls = %+v, want future-1 then future-2", deletes)
	}

	// Past events are left alone
	if len(service.Events) != 3 || service.Events[0].ID != "past" {
		t.Errorf("Events after sync = %d, want past event plus two inserts", len(service.Events))
	}

	inserts := service.CallsTo("InsertEvent")
	if len(inserts) != 2 {
		t.Fatalf("InsertEvent calls = %d, want 2", len(inserts))
	}
	if inserts[0].Event.Summary != "Atlanta United vs D.C. United (MLS)" {
		t.Errorf("first insert summary = %q", inserts[0].Event.Summary)
	}
	if inserts[1].Event.Summary != "Atlanta United at Minnesota United FC (MLS)" {
		t.Errorf("second insert summary = %q", inserts[1].Event.Summary)
	}

	// Deletions happen before any insert
	for i, c := range service.Calls {
		if c.Method == "InsertEvent" {
			for _, later := range service.Calls[i:] {
				if later.Method == "DeleteEvent" {
					t.Fatal("DeleteEvent called after InsertEvent")
				}
			}
			break
		}
	}
}

func TestSync_RespectsMaxResults(t *testing.T) {
	var events []*models.Event
	for i := 0; i < 5; i++ {
		events = append(events, &models.Event{ID: string(rune('a' + i)), Start: syncNow.Add(time.Duration(i+1) * time.Hour)})
	}

	service := calendartest.NewFakeService(events...)
	s := newTestSynchronizer(service, Options{MaxResults: 3})

	report, err := s.Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if report.Deleted != 3 {
		t.Errorf("Deleted = %d, want 3", report.Deleted)
	}
}

func TestSync_Failures(t *testing.T) {
	boom := errors.New("backend error")

	tests := []struct {
		name         string
		fail         func(method string, n int) error
		wantDeleted  int
		wantInserted int
	}{
		{
			name: "list fails",
			fail: func(method string, n int) error {
				if method == "ListUpcoming" {
					return boom
				}
				return nil
			},
		},
		{
			name: "second delete fails",
			fail: func(method string, n int) error {
				if method == "DeleteEvent" && n == 2 {
					return boom
				}
				return nil
			},
			wantDeleted: 1,
		},
		{
			name: "second insert fails",
			fail: func(method string, n int) error {
				if method == "InsertEvent" && n == 2 {
					return boom
				}
				return nil
			},
			wantDeleted:  2,
			wantInserted: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := calendartest.NewFakeService(
				&models.Event{ID: "one", Start: syncNow.Add(time.Hour)},
				&models.Event{ID: "two", Start: syncNow.Add(2 * time.Hour)},
			)
			service.Fail = tt.fail

			s := newTestSynchronizer(service, Options{})
			report, err := s.Sync(context.Background(), testMatches())

			if !errors.Is(err, boom) {
				t.Fatalf("Sync() error = %v, want %v", err, boom)
			}
			if report.Deleted != tt.wantDeleted {
				t.Errorf("Deleted = %d, want %d", report.Deleted, tt.wantDeleted)
			}
			if report.Inserted != tt.wantInserted {
				t.Errorf("Inserted = %d, want %d", report.Inserted, tt.wantInserted)
			}
			if report.FinishedAt.IsZero() {
				t.Error("FinishedAt not set on failed report")
			}
		})
	}
}

func TestReconcile(t *testing.T) {
	tmpl := testTemplate()
	matches := testMatches()

	unchanged := tmpl.Build(matches[0])
	unchanged.ID = "keep"

	stale := tmpl.Build(matches[1])
	stale.ID = "patch"
	stale.Description = "TV: TBD\n" + stale.Summary

	surplus := &models.Event{ID: "surplus", Summary: "cancelled", Start: syncNow.Add(30 * 24 * time.Hour)}

	service := calendartest.NewFakeService(unchanged, stale, surplus)
	s := newTestSynchronizer(service, Options{})

	report, err := s.Reconcile(context.Background(), matches)
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}

	if report.Updated != 1 {
		t.Errorf("Updated = %d, want 1", report.Updated)
	}
	if report.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", report.Deleted)
	}
	if report.Inserted != 0 {
		t.Errorf("Inserted = %d, want 0", report.Inserted)
	}

	updates := service.CallsTo("UpdateEvent")
	if len(updates) != 1 || updates[0].EventID != "patch" {
		t.Fatalf("UpdateEvent calls = %+v, want one for 'patch'", updates)
	}
	if updates[0].Event.Description != "TV: FS South\nAtlanta United at Minnesota United FC (MLS)" {
		t.Errorf("updated description = %q", updates[0].Event.Description)
	}
}

func TestReconcile_InsertsMissing(t *testing.T) {
	service := calendartest.NewFakeService()
	s := newTestSynchronizer(service, Options{})

	report, err := s.Reconcile(context.Background(), testMatches())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}

	if report.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", report.Inserted)
	}
	if len(service.CallsTo("GetEvent")) != 0 {
		t.Error("GetEvent called with no existing events")
	}
}

func TestDryRunService(t *testing.T) {
	service := calendartest.NewFakeService(
		&models.Event{ID: "future", Summary: "stale", Start: syncNow.Add(time.Hour)},
	)
	dry := NewDryRunService(service, nil)
	s := newTestSynchronizer(dry, Options{DryRun: true})

	report, err := s.Sync(context.Background(), testMatches())
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}

	if !report.DryRun {
		t.Error("DryRun not set on report")
	}
	if report.Deleted != 1 || report.Inserted != 2 {
		t.Errorf("report = %+v, want 1 deleted and 2 inserted", report)
	}

	// Reads reached the real service, writes did not
	if len(service.CallsTo("ListUpcoming")) != 1 {
		t.Error("ListUpcoming was not passed through")
	}
	if len(service.CallsTo("DeleteEvent")) != 0 || len(service.CallsTo("InsertEvent")) != 0 {
		t.Error("dry run reached the real service for writes")
	}
	if len(service.Events) != 1 {
		t.Errorf("Events = %d, want 1 untouched", len(service.Events))
	}
}

func TestSync_SummaryLoggedAtDebug(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*Synchronizer) error
		message string
	}{
		{
			name: "sync",
			run: func(s *Synchronizer) error {
				_, err := s.Sync(context.Background(), testMatches())
				return err
			},
			message: "Calendar synchronized",
		},
		{
			name: "reconcile",
			run: func(s *Synchronizer) error {
				_, err := s.Reconcile(context.Background(), testMatches())
				return err
			},
			message: "Calendar reconciled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

			s := NewSynchronizer(calendartest.NewFakeService(), testTemplate(), Options{CalendarID: "test-calendar"}, logger)
			s.SetClock(func() time.Time { return syncNow })

			if err := tt.run(s); err != nil {
				t.Fatalf("run error: %v", err)
			}
			if strings.Contains(buf.String(), tt.message) {
				t.Errorf("%q logged at Info; the run summary belongs to the caller:\n%s", tt.message, buf.String())
			}
		})
	}
}
