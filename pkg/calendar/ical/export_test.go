package ical

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/venkytv/atlutd-calendar/internal/models"
	"github.com/venkytv/atlutd-calendar/pkg/calendar"
)

func testTemplate() *calendar.EventTemplate {
	return &calendar.EventTemplate{
		Team:      "Atlanta United",
		HomeVenue: "MERCEDES-BENZ STADIUM",
		TimeZone:  "America/New_York",
		Duration:  2 * time.Hour,
	}
}

func testMatches(t *testing.T) []models.Match {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("Failed to load location: %v", err)
	}

	return []models.Match{
		{
			Opponent:    "New York City FC",
			Venue:       "YANKEE STADIUM",
			Kickoff:     time.Date(2018, time.March, 3, 16, 0, 0, 0, loc),
			Broadcast:   "FOX",
			Competition: "MLS",
		},
		{
			Opponent:    "D.C. United",
			Venue:       "MERCEDES-BENZ STADIUM",
			Kickoff:     time.Date(2018, time.March, 11, 13, 0, 0, 0, loc),
			Broadcast:   models.NoTVInfo,
			Competition: "MLS",
		},
	}
}

func newTestExporter() *Exporter {
	e := NewExporter(testTemplate(), "Atlanta United", nil)
	e.SetClock(func() time.Time { return time.Date(2018, time.March, 1, 0, 0, 0, 0, time.UTC) })
	return e
}

func TestExporter_Write(t *testing.T) {
	matches := testMatches(t)

	var buf bytes.Buffer
	if err := newTestExporter().Write(&buf, matches); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	raw := buf.String()
	for _, want := range []string{
		"METHOD:PUBLISH",
		"PRODID:" + productID,
		"X-WR-CALNAME:Atlanta United",
		"X-WR-TIMEZONE:America/New_York",
		"DTSTAMP:20180301T000000Z",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("output missing %q", want)
		}
	}

	cal, err := ics.ParseCalendar(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseCalendar() error: %v", err)
	}

	events := cal.Events()
	if len(events) != len(matches) {
		t.Fatalf("parsed %d events, want %d", len(events), len(matches))
	}

	tests := []struct {
		summary  string
		location string
		start    time.Time
	}{
		{
			summary:  "Atlanta United at New York City FC (MLS)",
			location: "YANKEE STADIUM",
			start:    matches[0].Kickoff,
		},
		{
			summary:  "Atlanta United vs D.C. United (MLS)",
			location: "MERCEDES-BENZ STADIUM",
			start:    matches[1].Kickoff,
		},
	}

	for i, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			event := events[i]

			if got := event.GetProperty(ics.ComponentPropertySummary).Value; got != tt.summary {
				t.Errorf("SUMMARY = %q, want %q", got, tt.summary)
			}
			if got := event.GetProperty(ics.ComponentPropertyLocation).Value; got != tt.location {
				t.Errorf("LOCATION = %q, want %q", got, tt.location)
			}

			start, err := event.GetStartAt()
			if err != nil {
				t.Fatalf("GetStartAt() error: %v", err)
			}
			if !start.Equal(tt.start) {
				t.Errorf("DTSTART = %v, want %v", start, tt.start)
			}

			end, err := event.GetEndAt()
			if err != nil {
				t.Fatalf("GetEndAt() error: %v", err)
			}
			if got := end.Sub(start); got != 2*time.Hour {
				t.Errorf("duration = %v, want 2h", got)
			}

			if event.Id() != matches[i].UID()+"@atlutd-calendar" {
				t.Errorf("UID = %q", event.Id())
			}
		})
	}
}

func TestExporter_StableUIDs(t *testing.T) {
	matches := testMatches(t)

	var first, second bytes.Buffer
	if err := newTestExporter().Write(&first, matches); err != nil {
		t.Fatal(err)
	}
	if err := newTestExporter().Write(&second, matches); err != nil {
		t.Fatal(err)
	}

	if first.String() != second.String() {
		t.Error("exporting the same matches twice produced different output")
	}
}

func TestExporter_Empty(t *testing.T) {
	cal := newTestExporter().Calendar(nil)
	if len(cal.Events()) != 0 {
		t.Errorf("Calendar(nil) has %d events, want 0", len(cal.Events()))
	}
}

func TestExporter_WriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "atlutd.ics")

	if err := newTestExporter().WriteFile(path, testMatches(t)); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.HasPrefix(string(data), "BEGIN:VCALENDAR") {
		t.Errorf("file does not start with BEGIN:VCALENDAR: %q", string(data[:20]))
	}
	if got := strings.Count(string(data), "BEGIN:VEVENT"); got != 2 {
		t.Errorf("file has %d events, want 2", got)
	}
}
