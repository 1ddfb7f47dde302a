package schedule

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/venkytv/atlutd-calendar/internal/models"
)

// Extractor turns schedule markup into raw match fields
type Extractor interface {
	Extract(r io.Reader) ([]models.RawMatch, error)
}

// Selectors names the CSS selectors used to locate each match field
type Selectors struct {
	List        string
	Match       string
	Matchup     string
	Location    string
	Date        string
	Category    string
	Competition string
}

// DefaultSelectors matches the markup of the atlutd.com schedule page
func DefaultSelectors() Selectors {
	return Selectors{
		List:        "ul.schedule_list.list-reset",
		Match:       "article",
		Matchup:     "div.match_matchup",
		Location:    "div.match_info.match_location_short",
		Date:        "div.match_date",
		Category:    "span.match_category",
		Competition: "span.match_competition",
	}
}

// MissingElementError reports a required element that is absent from the markup
type MissingElementError struct {
	Selector string
	Index    int // match index, -1 for the list container
}

func (e *MissingElementError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("schedule markup has no element matching %q", e.Selector)
	}
	return fmt.Sprintf("match %d has no element matching %q", e.Index, e.Selector)
}

// HTMLExtractor extracts matches with goquery
type HTMLExtractor struct {
	selectors     Selectors
	tvPlaceholder string
}

// NewHTMLExtractor creates an extractor. An empty placeholder falls back to
// models.NoTVInfo.
func NewHTMLExtractor(selectors Selectors, tvPlaceholder string) *HTMLExtractor {
	if tvPlaceholder == "" {
		tvPlaceholder = models.NoTVInfo
	}
	return &HTMLExtractor{
		selectors:     selectors,
		tvPlaceholder: tvPlaceholder,
	}
}

// Extract parses r and returns one RawMatch per match element, in page order
func (e *HTMLExtractor) Extract(r io.Reader) ([]models.RawMatch, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	list := doc.Find(e.selectors.List).First()
	if list.Length() == 0 {
		return nil, &MissingElementError{Selector: e.selectors.List, Index: -1}
	}

	var (
		matches []models.RawMatch
		extErr  error
	)

	list.Find(e.selectors.Match).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		raw, err := e.extractMatch(i, sel)
		if err != nil {
			extErr = err
			return false
		}
		matches = append(matches, raw)
		return true
	})
	if extErr != nil {
		return nil, extErr
	}

	return matches, nil
}

func (e *HTMLExtractor) extractMatch(i int, sel *goquery.Selection) (models.RawMatch, error) {
	var raw models.RawMatch

	fields := []struct {
		selector string
		dest     *string
	}{
		{e.selectors.Matchup, &raw.Matchup},
		{e.selectors.Location, &raw.Location},
		{e.selectors.Date, &raw.Date},
	}

	for _, f := range fields {
		text, ok := requiredText(sel, f.selector)
		if !ok {
			return raw, &MissingElementError{Selector: f.selector, Index: i}
		}
		*f.dest = text
	}

	raw.TV = e.tvInfo(sel)

	competition, ok := requiredText(sel, e.selectors.Competition)
	if !ok {
		return raw, &MissingElementError{Selector: e.selectors.Competition, Index: i}
	}
	raw.Competition = competition

	return raw, nil
}

// tvInfo reads the text node that follows the category label.
// The broadcast info is the only optional field.
func (e *HTMLExtractor) tvInfo(sel *goquery.Selection) string {
	category := sel.Find(e.selectors.Category).First()
	if category.Length() == 0 {
		return e.tvPlaceholder
	}

	next := category.Get(0).NextSibling
	if next == nil || next.Type != html.TextNode {
		return e.tvPlaceholder
	}

	return strings.TrimSpace(next.Data)
}

func requiredText(sel *goquery.Selection, selector string) (string, bool) {
	found := sel.Find(selector).First()
	if found.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(found.Text()), true
}
