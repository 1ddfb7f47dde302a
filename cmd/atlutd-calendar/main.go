package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "time/tzdata"
)

// Version information - can be set at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// options holds the flags shared by every command
type options struct {
	configPath           string
	debug                bool
	dryRun               bool
	noAuthLocalWebserver bool
	authPort             int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("atlutd-calendar failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "atlutd-calendar",
		Short: "Sync the Atlanta United schedule to Google Calendar",
		Long: `Scrapes the Atlanta United schedule page and replaces every upcoming
event in the configured Google Calendar with the current list of matches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), cmd, opts, false)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration file (defaults and ATLUTD_* environment when empty)")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging and log every calendar change")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "List the calendar but log changes instead of making them")
	flags.BoolVar(&opts.noAuthLocalWebserver, "noauth-local-webserver", false, "Paste the authorization code instead of running a local web server")
	flags.IntVar(&opts.authPort, "auth-port", 8080, "Port for the local authorization web server")

	cmd.AddCommand(
		newAuthCmd(opts),
		newExportCmd(opts),
		newReconcileCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

func newAuthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Run the OAuth consent flow and cache the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(opts)
			if err != nil {
				return err
			}
			return app.Authorize(cmd.Context(), cmd)
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Scrape the schedule and write it as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(opts)
			if err != nil {
				return err
			}
			return app.Export(cmd.Context(), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write (defaults to export.path, then atlutd.ics)")
	return cmd
}

func newReconcileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Update upcoming events in place instead of recreating them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), cmd, opts, true)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd)
		},
	}
}

func runSync(ctx context.Context, cmd *cobra.Command, opts *options, reconcile bool) error {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if reconcile {
		return app.Reconcile(ctx, cmd)
	}
	return app.Sync(ctx, cmd)
}

// printVersion prints version information
func printVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "atlutd-calendar %s\n", Version)
	fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
	fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
}
