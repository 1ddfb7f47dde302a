// Package normalize cleans up scraped match fields and drops matches that
// have already kicked off.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode"
	"unicode/utf8"

	"github.com/venkytv/atlutd-calendar/internal/models"
)

const (
	// layoutET matches "Saturday, February 10, 2018 4:00PM ET"
	layoutET = "Monday, January 2, 2006 3:04PM ET"
	// layoutTBD matches "Saturday, February 10, 2018 TBD"
	layoutTBD = "Monday, January 2, 2006 TBD"

	placeholder = "TBD"
)

// ErrUnrecognizedDate is returned for date text in neither known format
var ErrUnrecognizedDate = errors.New("unrecognized date format")

// Normalizer converts RawMatch values into Match values
type Normalizer struct {
	// Location is the civil time zone the schedule is published in
	Location *time.Location
	// DefaultKickoff replaces a TBD time, e.g. "1:00PM". Empty disables the substitution.
	DefaultKickoff string
	// Now returns the reference time for the upcoming filter
	Now func() time.Time
}

// New creates a Normalizer using the wall clock
func New(loc *time.Location, defaultKickoff string) *Normalizer {
	return &Normalizer{
		Location:       loc,
		DefaultKickoff: defaultKickoff,
		Now:            time.Now,
	}
}

// Opponent fixes the capitalization of a scraped opponent name.
//
// Each word is title-cased, a leading "At " is dropped, and the league
// suffixes SC or FC and the D.C. abbreviation are restored. The replacements
// are plain substring swaps, so "Sc" inside a longer word is upper-cased too.
func Opponent(s string) string {
	capitalized := titleCase(s)
	capitalized = strings.TrimPrefix(capitalized, "At ")

	if strings.Contains(capitalized, "Sc") {
		capitalized = strings.ReplaceAll(capitalized, "Sc", "SC")
	} else if strings.Contains(capitalized, "Fc") {
		capitalized = strings.ReplaceAll(capitalized, "Fc", "FC")
	}

	return strings.ReplaceAll(capitalized, "D.c.", "D.C.")
}

// titleCase title-cases the first rune of every whitespace-separated word,
// lower-cases the rest and joins the words with single spaces
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// SubstituteKickoff replaces a TBD placeholder with the default kickoff time
func (n *Normalizer) SubstituteKickoff(s string) string {
	if n.DefaultKickoff == "" || !strings.Contains(s, placeholder) {
		return s
	}
	return strings.ReplaceAll(s, placeholder, n.DefaultKickoff+" ET")
}

// ParseKickoff parses schedule date text in the normalizer's location
func (n *Normalizer) ParseKickoff(s string) (time.Time, error) {
	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}

	var layout string
	switch {
	case strings.Contains(s, "ET"):
		layout = layoutET
	case strings.Contains(s, placeholder):
		layout = layoutTBD
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognizedDate, s)
	}

	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse kickoff %q: %w", s, err)
	}
	return t, nil
}

// Normalize builds a Match from raw. The boolean is false when the match
// does not kick off strictly after Now.
func (n *Normalizer) Normalize(raw models.RawMatch) (models.Match, bool, error) {
	kickoff, err := n.ParseKickoff(n.SubstituteKickoff(raw.Date))
	if err != nil {
		return models.Match{}, false, err
	}

	match := models.Match{
		Opponent:    Opponent(raw.Matchup),
		Venue:       raw.Location,
		Kickoff:     kickoff,
		Broadcast:   raw.TV,
		Competition: raw.Competition,
	}

	return match, match.IsUpcoming(n.now()), nil
}

// NormalizeAll normalizes every raw match, keeping only upcoming ones in
// input order. The first error aborts.
func (n *Normalizer) NormalizeAll(raws []models.RawMatch) ([]models.Match, error) {
	matches := make([]models.Match, 0, len(raws))
	for i, raw := range raws {
		match, upcoming, err := n.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("match %d: %w", i, err)
		}
		if upcoming {
			matches = append(matches, match)
		}
	}
	return matches, nil
}

func (n *Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}
