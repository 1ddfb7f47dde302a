package models

import (
	"crypto/sha1"
	"fmt"
	"time"
)

// NoTVInfo is substituted when a match lists no broadcast information
const NoTVInfo = "No TV info available"

// RawMatch holds the text scraped for a single match, before any cleanup
type RawMatch struct {
	Matchup     string `json:"matchup"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	TV          string `json:"tv"`
	Competition string `json:"competition"`
}

// Match is a normalized, upcoming match
type Match struct {
	Opponent    string    `json:"opponent"`
	Venue       string    `json:"venue"`
	Kickoff     time.Time `json:"kickoff"`
	Broadcast   string    `json:"broadcast"`
	Competition string    `json:"competition"`
}

// UID returns a deterministic identifier derived from the match fields.
// Two scrapes of the same match produce the same UID.
func (m Match) UID() string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", m.Opponent, m.Venue, m.Kickoff.UTC().Format(time.RFC3339), m.Competition)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// IsUpcoming returns true if the match kicks off strictly after now
func (m Match) IsUpcoming(now time.Time) bool {
	return m.Kickoff.After(now)
}
