package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/venkytv/atlutd-calendar/internal/models"
)

// Headers set on published reports
const (
	HeaderCalendarID = "Atlutd-Calendar-Id"
	HeaderDryRun     = "Atlutd-Dry-Run"
)

// Publisher publishes sync reports to NATS
type Publisher struct {
	conn         *nats.Conn
	subject      string
	flushTimeout time.Duration
	logger       *slog.Logger
}

// Config holds NATS publisher configuration
type Config struct {
	URL            string        `yaml:"url"`
	Subject        string        `yaml:"subject"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	FlushTimeout   time.Duration `yaml:"flush_timeout"`
}

// DefaultConfig returns a default NATS configuration
func DefaultConfig() *Config {
	return &Config{
		URL:            "nats://localhost:4222",
		Subject:        "atlutd.calendar.sync",
		ConnectTimeout: 5 * time.Second,
		FlushTimeout:   5 * time.Second,
	}
}

// NewPublisher connects to NATS. A run is short-lived, so there is no
// reconnect handling beyond the client defaults.
func NewPublisher(config *Config, logger *slog.Logger) (*Publisher, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if logger == nil {
		logger = slog.Default()
	}

	flushTimeout := config.FlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = 5 * time.Second
	}

	options := []nats.Option{
		nats.Name("atlutd-calendar"),
		nats.Timeout(config.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(config.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", config.URL, err)
	}

	logger.Info("NATS publisher initialized",
		"url", config.URL,
		"subject", config.Subject,
		"connected_url", conn.ConnectedUrl())

	return &Publisher{
		conn:         conn,
		subject:      config.Subject,
		flushTimeout: flushTimeout,
		logger:       logger,
	}, nil
}

// reportMessage builds the message for report without sending it
func reportMessage(subject string, report *models.SyncReport) (*nats.Msg, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set(HeaderCalendarID, report.CalendarID)
	if report.DryRun {
		msg.Header.Set(HeaderDryRun, "true")
	}
	return msg, nil
}

// PublishReport publishes a sync report and waits for the server to
// acknowledge it, bounded by ctx
func (p *Publisher) PublishReport(ctx context.Context, report *models.SyncReport) error {
	if err := p.IsHealthy(); err != nil {
		return err
	}

	msg, err := reportMessage(p.subject, report)
	if err != nil {
		return err
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}

	// FlushWithContext requires a deadline
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.flushTimeout)
		defer cancel()
	}

	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush NATS messages: %w", err)
	}

	p.logger.Debug("Published report",
		"subject", p.subject,
		"calendar_id", report.CalendarID,
		"inserted", report.Inserted,
		"deleted", report.Deleted)

	return nil
}

// IsHealthy checks if the NATS connection is usable
func (p *Publisher) IsHealthy() error {
	if p.conn == nil {
		return fmt.Errorf("NATS connection is nil")
	}

	if p.conn.IsClosed() {
		return fmt.Errorf("NATS connection is closed")
	}

	if !p.conn.IsConnected() {
		return fmt.Errorf("NATS is not connected")
	}

	return nil
}

// Close drains pending messages and closes the connection
func (p *Publisher) Close() error {
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.FlushTimeout(p.flushTimeout); err != nil {
			p.logger.Warn("Failed to flush messages on close", "error", err)
		}

		p.conn.Close()
		p.logger.Debug("NATS publisher closed")
	}
	return nil
}
