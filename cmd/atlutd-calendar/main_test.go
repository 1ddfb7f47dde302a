package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/venkytv/atlutd-calendar/pkg/config"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LoggingConfig
		debug     bool
		wantLevel slog.Level
	}{
		{name: "default is info", cfg: config.LoggingConfig{}, wantLevel: slog.LevelInfo},
		{name: "warn", cfg: config.LoggingConfig{Level: "warn"}, wantLevel: slog.LevelWarn},
		{name: "error text", cfg: config.LoggingConfig{Level: "error", Format: "text"}, wantLevel: slog.LevelError},
		{name: "debug flag overrides config", cfg: config.LoggingConfig{Level: "error"}, debug: true, wantLevel: slog.LevelDebug},
		{name: "unknown level", cfg: config.LoggingConfig{Level: "loud"}, wantLevel: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := setupLogger(tt.cfg, tt.debug)
			ctx := context.Background()

			if !logger.Enabled(ctx, tt.wantLevel) {
				t.Errorf("level %v not enabled", tt.wantLevel)
			}
			if tt.wantLevel > slog.LevelDebug && logger.Enabled(ctx, tt.wantLevel-1) {
				t.Errorf("level below %v is enabled", tt.wantLevel)
			}
		})
	}
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"auth", "export", "reconcile", "version"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	for _, flag := range []string{"config", "debug", "dry-run", "noauth-local-webserver", "auth-port"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "atlutd-calendar "+Version) {
		t.Errorf("unexpected version output: %q", out.String())
	}
}

// restoreDefaultLogger undoes the slog.SetDefault done by NewApp
func restoreDefaultLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

const futureSchedule = `<html><body>
<ul class="schedule_list list-reset">
  <li><article>
    <div class="match_matchup">ORLANDO CITY SC</div>
    <div class="match_info match_location_short">MERCEDES-BENZ STADIUM</div>
    <div class="match_date">Saturday, March 7, 2099 7:30PM ET</div>
    <span class="match_category">TV:</span> ESPN
    <span class="match_competition">MLS</span>
  </article></li>
</ul>
</body></html>`

func TestExportCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(futureSchedule))
	}))
	defer server.Close()

	t.Setenv("ATLUTD_SCHEDULE_URL", server.URL)
	t.Setenv("ATLUTD_TOKEN_FILE", filepath.Join(t.TempDir(), "token.json"))
	restoreDefaultLogger(t)

	path := filepath.Join(t.TempDir(), "atlutd.ics")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"export", "--output", path})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	if !strings.Contains(string(data), "SUMMARY:Atlanta United vs Orlando City SC (MLS)") {
		t.Errorf("export missing match:\n%s", data)
	}
}

func TestSyncCommandWithoutCredentials(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ATLUTD_CREDENTIALS", filepath.Join(dir, "missing_client_secret.json"))
	t.Setenv("ATLUTD_TOKEN_FILE", filepath.Join(dir, "token.json"))
	restoreDefaultLogger(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--noauth-local-webserver"})
	cmd.SetIn(strings.NewReader(""))

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("sync without a client secret should fail")
	}
}
