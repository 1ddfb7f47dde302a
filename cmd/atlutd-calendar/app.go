package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/venkytv/atlutd-calendar/internal/models"
	"github.com/venkytv/atlutd-calendar/pkg/calendar"
	gcal "github.com/venkytv/atlutd-calendar/pkg/calendar/google"
	"github.com/venkytv/atlutd-calendar/pkg/calendar/ical"
	"github.com/venkytv/atlutd-calendar/pkg/config"
	natspub "github.com/venkytv/atlutd-calendar/pkg/nats"
	"github.com/venkytv/atlutd-calendar/pkg/normalize"
	"github.com/venkytv/atlutd-calendar/pkg/pipeline"
	"github.com/venkytv/atlutd-calendar/pkg/schedule"
)

const defaultExportPath = "atlutd.ics"

// App holds the configuration and logger shared by every command
type App struct {
	config    *config.Config
	logger    *slog.Logger
	opts      *options
	publisher *natspub.Publisher
}

// NewApp loads configuration and sets up logging
func NewApp(opts *options) (*App, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Logging, opts.debug)
	slog.SetDefault(logger)

	logger.Debug("Starting atlutd-calendar",
		"version", Version,
		"commit", GitCommit,
		"build_time", BuildTime,
		"config_path", opts.configPath,
		"calendar_id", cfg.Calendar.ID,
		"dry_run", opts.dryRun)

	return &App{
		config: cfg,
		logger: logger,
		opts:   opts,
	}, nil
}

// Sync runs the full delete-and-recreate pipeline
func (a *App) Sync(ctx context.Context, cmd *cobra.Command) error {
	p, err := a.newPipeline(ctx, cmd)
	if err != nil {
		return err
	}

	report, err := p.Run(ctx, a.config.Schedule.URL)
	a.logReport(report)
	return err
}

// Reconcile runs the pipeline with the update-in-place strategy
func (a *App) Reconcile(ctx context.Context, cmd *cobra.Command) error {
	p, err := a.newPipeline(ctx, cmd)
	if err != nil {
		return err
	}

	report, err := p.Reconcile(ctx, a.config.Schedule.URL)
	a.logReport(report)
	return err
}

// Export writes the upcoming matches to an iCalendar file
func (a *App) Export(ctx context.Context, output string) error {
	if output == "" {
		output = a.config.Export.Path
	}
	if output == "" {
		output = defaultExportPath
	}

	p, err := a.scraper()
	if err != nil {
		return err
	}

	matches, _, err := p.Matches(ctx, a.config.Schedule.URL)
	if err != nil {
		return err
	}

	exporter := ical.NewExporter(a.template(), a.config.Calendar.Team, a.logger)
	return exporter.WriteFile(output, matches)
}

// Authorize runs the consent flow unconditionally and checks that the
// calendar is reachable with the new token
func (a *App) Authorize(ctx context.Context, cmd *cobra.Command) error {
	tm, err := a.tokenManager()
	if err != nil {
		return err
	}

	if tm.IsTokenValid() {
		a.logger.Info("Replacing cached token", "token_file", tm.TokenFile())
	}

	if _, err := tm.Authorize(ctx, a.authFlow(cmd)); err != nil {
		return err
	}

	ts, err := tm.TokenSource(ctx, nil)
	if err != nil {
		return err
	}

	provider, err := gcal.NewProvider(ctx, ts, a.logger)
	if err != nil {
		return err
	}

	cal, err := provider.GetCalendar(ctx, a.config.Calendar.ID)
	if err != nil {
		return err
	}

	// Read back from the cache to confirm the token was persisted
	expiry, err := tm.GetTokenExpiry()
	if err != nil {
		return err
	}

	a.logger.Info("Authorization complete",
		"calendar", cal.Name,
		"calendar_id", cal.ID,
		"token_file", tm.TokenFile(),
		"expiry", expiry)
	return nil
}

// Close releases the NATS connection if one was opened
func (a *App) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
}

func (a *App) tokenManager() (*gcal.TokenManager, error) {
	return gcal.NewTokenManager(a.config.Calendar.Credentials, a.config.Calendar.TokenFile, a.logger)
}

func (a *App) authFlow(cmd *cobra.Command) gcal.AuthFlow {
	if a.opts.noAuthLocalWebserver {
		return &gcal.ConsoleFlow{Port: a.opts.authPort, In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	}
	return &gcal.LocalServerFlow{Port: a.opts.authPort, Out: cmd.OutOrStdout()}
}

func (a *App) template() *calendar.EventTemplate {
	return &calendar.EventTemplate{
		Team:      a.config.Calendar.Team,
		HomeVenue: a.config.Calendar.HomeVenue,
		TimeZone:  a.config.Calendar.TimeZone,
		Duration:  a.config.Calendar.EventDuration,
	}
}

// scraper builds a pipeline with only the scraping stages
func (a *App) scraper() (*pipeline.Pipeline, error) {
	loc, err := a.config.Location()
	if err != nil {
		return nil, err
	}

	return &pipeline.Pipeline{
		Fetcher:    schedule.NewFetcher(a.config.Schedule.UserAgent, a.config.Schedule.Timeout, a.logger),
		Extractor:  schedule.NewHTMLExtractor(schedule.DefaultSelectors(), a.config.Defaults.TVPlaceholder),
		Normalizer: normalize.New(loc, a.config.Defaults.KickoffTime),
		Logger:     a.logger,
	}, nil
}

func (a *App) newPipeline(ctx context.Context, cmd *cobra.Command) (*pipeline.Pipeline, error) {
	p, err := a.scraper()
	if err != nil {
		return nil, err
	}

	service, err := a.eventService(ctx, cmd)
	if err != nil {
		return nil, err
	}

	p.Synchronizer = calendar.NewSynchronizer(service, a.template(), calendar.Options{
		CalendarID: a.config.Calendar.ID,
		MaxResults: a.config.Calendar.MaxResults,
		Verbose:    a.opts.debug,
		DryRun:     a.opts.dryRun,
	}, a.logger)

	if reporter := a.reporter(); reporter != nil {
		p.Reporter = reporter
	}

	return p, nil
}

// eventService authenticates and returns the Google provider, wrapped so
// that writes are only logged in dry-run mode
func (a *App) eventService(ctx context.Context, cmd *cobra.Command) (calendar.EventService, error) {
	tm, err := a.tokenManager()
	if err != nil {
		return nil, err
	}

	ts, err := tm.TokenSource(ctx, a.authFlow(cmd))
	if err != nil {
		return nil, err
	}

	provider, err := gcal.NewProvider(ctx, ts, a.logger)
	if err != nil {
		return nil, err
	}

	if a.opts.dryRun {
		a.logger.Info("Running in dry-run mode - calendar will not be modified")
		return calendar.NewDryRunService(provider, a.logger), nil
	}
	return provider, nil
}

// reporter connects to NATS when configured. A failed connection only
// disables reporting.
func (a *App) reporter() *natspub.Publisher {
	if a.config.NATS.URL == "" {
		return nil
	}

	natsConfig := natspub.DefaultConfig()
	natsConfig.URL = a.config.NATS.URL
	natsConfig.Subject = a.config.NATS.Subject

	publisher, err := natspub.NewPublisher(natsConfig, a.logger)
	if err != nil {
		a.logger.Warn("Sync reports will not be published", "error", err)
		return nil
	}

	a.publisher = publisher
	return publisher
}

func (a *App) logReport(report *models.SyncReport) {
	if report == nil {
		return
	}

	a.logger.Info("Run finished",
		"calendar_id", report.CalendarID,
		"scraped", report.Scraped,
		"matches", report.Matches,
		"deleted", report.Deleted,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"dry_run", report.DryRun,
		"elapsed", report.Elapsed())
}

// setupLogger configures the application logger
func setupLogger(cfg config.LoggingConfig, debugMode bool) *slog.Logger {
	var level slog.Level

	// Override config level if debug mode is enabled
	if debugMode {
		level = slog.LevelDebug
	} else {
		switch cfg.Level {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
