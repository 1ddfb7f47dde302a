// Package pipeline runs the fetch, extract, normalize and sync stages in order.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/venkytv/atlutd-calendar/internal/models"
	"github.com/venkytv/atlutd-calendar/pkg/normalize"
	"github.com/venkytv/atlutd-calendar/pkg/schedule"
)

// Fetcher retrieves the raw schedule page
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Synchronizer writes matches to the calendar
type Synchronizer interface {
	Sync(ctx context.Context, matches []models.Match) (*models.SyncReport, error)
	Reconcile(ctx context.Context, matches []models.Match) (*models.SyncReport, error)
}

// Reporter receives the report of every successful run
type Reporter interface {
	PublishReport(ctx context.Context, report *models.SyncReport) error
}

// Pipeline wires the stages together. Reporter is optional.
type Pipeline struct {
	Fetcher      Fetcher
	Extractor    schedule.Extractor
	Normalizer   *normalize.Normalizer
	Synchronizer Synchronizer
	Reporter     Reporter
	Logger       *slog.Logger
}

// Matches fetches the schedule at url and returns the upcoming matches,
// along with the number of raw matches found on the page
func (p *Pipeline) Matches(ctx context.Context, url string) ([]models.Match, int, error) {
	logger := p.logger()

	start := time.Now()
	body, err := p.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch schedule: %w", err)
	}

	raws, err := p.Extractor.Extract(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to extract matches: %w", err)
	}

	matches, err := p.Normalizer.NormalizeAll(raws)
	if err != nil {
		return nil, len(raws), fmt.Errorf("failed to normalize matches: %w", err)
	}

	logger.Info("Scraped schedule",
		"url", url,
		"found", len(raws),
		"upcoming", len(matches),
		"duration", time.Since(start))

	return matches, len(raws), nil
}

// Run scrapes url and replaces the calendar's upcoming events
func (p *Pipeline) Run(ctx context.Context, url string) (*models.SyncReport, error) {
	return p.run(ctx, url, p.Synchronizer.Sync)
}

// Reconcile scrapes url and patches the calendar's upcoming events in place
func (p *Pipeline) Reconcile(ctx context.Context, url string) (*models.SyncReport, error) {
	return p.run(ctx, url, p.Synchronizer.Reconcile)
}

func (p *Pipeline) run(ctx context.Context, url string, apply func(context.Context, []models.Match) (*models.SyncReport, error)) (*models.SyncReport, error) {
	matches, scraped, err := p.Matches(ctx, url)
	if err != nil {
		return nil, err
	}

	report, err := apply(ctx, matches)
	if report != nil {
		report.Scraped = scraped
	}
	if err != nil {
		return report, fmt.Errorf("failed to synchronize calendar: %w", err)
	}

	p.publish(ctx, report)
	return report, nil
}

// publish sends report to the reporter. Failures are logged only; the
// calendar is already up to date at this point.
func (p *Pipeline) publish(ctx context.Context, report *models.SyncReport) {
	if p.Reporter == nil {
		return
	}

	if err := p.Reporter.PublishReport(ctx, report); err != nil {
		p.logger().Warn("Failed to publish sync report", "error", err)
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
