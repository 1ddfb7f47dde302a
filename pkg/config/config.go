package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultScheduleURL = "https://www.atlutd.com/schedule"
	DefaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/39.0.2171.95"
	DefaultCalendarID  = "3cdkhu8tso8o1i3vlv3fqa4oqk@group.calendar.google.com"
	DefaultTimeZone    = "America/New_York"
	DefaultHomeVenue   = "MERCEDES-BENZ STADIUM"
	DefaultTeam        = "Atlanta United"
	DefaultKickoffTime = "1:00PM"
	DefaultMaxResults  = 1000
)

type Config struct {
	Schedule ScheduleConfig `yaml:"schedule"`
	Calendar CalendarConfig `yaml:"calendar"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Logging  LoggingConfig  `yaml:"logging"`
	NATS     NATSConfig     `yaml:"nats"`
	Export   ExportConfig   `yaml:"export"`
}

type ScheduleConfig struct {
	URL       string        `yaml:"url" env:"ATLUTD_SCHEDULE_URL"`
	UserAgent string        `yaml:"user_agent" env:"ATLUTD_USER_AGENT"`
	Timeout   time.Duration `yaml:"timeout" env:"ATLUTD_SCHEDULE_TIMEOUT"`
}

type CalendarConfig struct {
	ID            string        `yaml:"id" env:"ATLUTD_CALENDAR_ID"`
	Credentials   string        `yaml:"credentials" env:"ATLUTD_CREDENTIALS"`
	TokenFile     string        `yaml:"token_file" env:"ATLUTD_TOKEN_FILE"`
	TimeZone      string        `yaml:"timezone" env:"ATLUTD_TIMEZONE"`
	HomeVenue     string        `yaml:"home_venue" env:"ATLUTD_HOME_VENUE"`
	Team          string        `yaml:"team" env:"ATLUTD_TEAM"`
	EventDuration time.Duration `yaml:"event_duration" env:"ATLUTD_EVENT_DURATION"`
	MaxResults    int64         `yaml:"max_results" env:"ATLUTD_MAX_RESULTS"`
}

type DefaultsConfig struct {
	KickoffTime   string `yaml:"kickoff_time" env:"ATLUTD_KICKOFF_TIME"`
	TVPlaceholder string `yaml:"tv_placeholder"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"ATLUTD_LOG_LEVEL"`
	Format string `yaml:"format" env:"ATLUTD_LOG_FORMAT"`
}

type NATSConfig struct {
	URL     string `yaml:"url" env:"ATLUTD_NATS_URL"`
	Subject string `yaml:"subject" env:"ATLUTD_NATS_SUBJECT"`
}

type ExportConfig struct {
	Path string `yaml:"path" env:"ATLUTD_EXPORT_PATH"`
}

// Load reads the YAML file at configPath, applies ATLUTD_* environment
// overrides and fills in defaults. An empty path skips the file.
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Location loads the configured IANA time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Calendar.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", c.Calendar.TimeZone, err)
	}
	return loc, nil
}

func (c *Config) validate() error {
	if c.Schedule.URL == "" {
		c.Schedule.URL = DefaultScheduleURL
	}
	if c.Schedule.UserAgent == "" {
		c.Schedule.UserAgent = DefaultUserAgent
	}
	if c.Schedule.Timeout < 0 {
		return fmt.Errorf("schedule timeout must not be negative")
	}

	if c.Calendar.ID == "" {
		c.Calendar.ID = DefaultCalendarID
	}
	if c.Calendar.Credentials == "" {
		c.Calendar.Credentials = "client_secret.json"
	}
	if c.Calendar.TokenFile == "" {
		c.Calendar.TokenFile = defaultTokenFile()
	}
	if c.Calendar.TimeZone == "" {
		c.Calendar.TimeZone = DefaultTimeZone
	}
	if _, err := time.LoadLocation(c.Calendar.TimeZone); err != nil {
		return fmt.Errorf("unknown time zone %q: %w", c.Calendar.TimeZone, err)
	}
	if c.Calendar.HomeVenue == "" {
		c.Calendar.HomeVenue = DefaultHomeVenue
	}
	if c.Calendar.Team == "" {
		c.Calendar.Team = DefaultTeam
	}
	if c.Calendar.EventDuration == 0 {
		c.Calendar.EventDuration = 2 * time.Hour
	}
	if c.Calendar.EventDuration < 0 {
		return fmt.Errorf("event duration must be positive")
	}
	if c.Calendar.MaxResults == 0 {
		c.Calendar.MaxResults = DefaultMaxResults
	}
	if c.Calendar.MaxResults < 0 || c.Calendar.MaxResults > 2500 {
		return fmt.Errorf("max_results must be between 1 and 2500")
	}

	if c.Defaults.KickoffTime == "" {
		c.Defaults.KickoffTime = DefaultKickoffTime
	}
	if _, err := time.Parse("3:04PM", c.Defaults.KickoffTime); err != nil {
		return fmt.Errorf("kickoff_time %q must look like 1:00PM", c.Defaults.KickoffTime)
	}
	if c.Defaults.TVPlaceholder == "" {
		c.Defaults.TVPlaceholder = "No TV info available"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.NATS.URL != "" && c.NATS.Subject == "" {
		c.NATS.Subject = "atlutd.calendar.sync"
	}

	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".credentials", "atlutd-calendar.json")
	}
	return filepath.Join(home, ".credentials", "atlutd-calendar.json")
}
