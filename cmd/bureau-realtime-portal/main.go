// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/realtime-portal/lib/appinfo"
	"github.com/bureau-foundation/realtime-portal/lib/config"
	"github.com/bureau-foundation/realtime-portal/lib/process"
	"github.com/bureau-foundation/realtime-portal/lib/rtkit"
	"github.com/bureau-foundation/realtime-portal/lib/version"
	"github.com/bureau-foundation/realtime-portal/portal"
	"github.com/bureau-foundation/realtime-portal/realtime"
)

const binaryName = "bureau-realtime-portal"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		process.Fatal(err)
	}
}

// options holds the parsed command line.
type options struct {
	configPath string
	verbose    bool
	logFormat  string
	sessionBus string
	systemBus  string
	busName    string
	replace    bool
	query      string
	version    bool
	help       bool
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(binaryName, pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to config file (default: $"+config.EnvironmentVariable+", else built-in defaults)")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flagSet.StringVar(&opts.logFormat, "log-format", "", "log format: text or json (overrides config)")
	flagSet.StringVar(&opts.sessionBus, "session-bus", "", "session bus address (overrides config and DBUS_SESSION_BUS_ADDRESS)")
	flagSet.StringVar(&opts.systemBus, "system-bus", "", "system bus address for RealtimeKit (overrides config)")
	flagSet.StringVar(&opts.busName, "bus-name", "", "well-known name to own on the session bus (overrides config)")
	flagSet.BoolVar(&opts.replace, "replace", false, "replace a running portal that owns the bus name")
	flagSet.StringVar(&opts.query, "query", "", "print one RealtimeKit property and exit")
	flagSet.BoolVar(&opts.version, "version", false, "print version information and exit")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show help")
	return flagSet
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options
	flagSet := newFlagSet(&opts)
	flagSet.SetOutput(stderr)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stdout, flagSet)
			return nil
		}
		return err
	}
	if opts.help {
		printHelp(stdout, flagSet)
		return nil
	}
	if opts.version {
		version.Fprint(stdout, binaryName)
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(stderr, opts.verbose)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	realtimeKit, systemConnection, err := rtkit.Dial(cfg.RealtimeKit.SystemBusAddress,
		cfg.RealtimeKit.BusName, dbus.ObjectPath(cfg.RealtimeKit.ObjectPath))
	if err != nil {
		logger.Warn("failed to connect to system bus for RealtimeKit", "error", err)
		return err
	}
	defer systemConnection.Close()

	bridge, err := realtime.NewBridge(realtime.Config{Service: realtimeKit, Logger: logger})
	if err != nil {
		return err
	}

	if opts.query != "" {
		return queryProperty(ctx, bridge, opts.query, stdout)
	}

	return serve(ctx, cfg, bridge, logger)
}

// exitConfig is the exit status for an unreadable or invalid config
// (EX_CONFIG from sysexits.h).
const exitConfig = 78

// configError marks a failure to load or validate the configuration.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }
func (e *configError) ExitCode() int { return exitConfig }

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(opts options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &configError{err: fmt.Errorf("failed to load config: %w", err)}
	}

	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.sessionBus != "" {
		cfg.Portal.SessionBusAddress = opts.sessionBus
	}
	if opts.systemBus != "" {
		cfg.RealtimeKit.SystemBusAddress = opts.systemBus
	}
	if opts.busName != "" {
		cfg.Portal.BusName = opts.busName
	}
	if opts.replace {
		cfg.Portal.Replace = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, &configError{err: fmt.Errorf("invalid config: %w", err)}
	}
	return cfg, nil
}

// queryProperty reads one RealtimeKit property through the bridge.
func queryProperty(ctx context.Context, bridge *realtime.Bridge, property string, stdout io.Writer) error {
	completion, results := realtime.NewChannelCompletion[int64]()
	bridge.GetProperty(ctx, property, completion)
	result := <-results
	if result.Err != nil {
		return fmt.Errorf("reading %s: %w", property, result.Err)
	}
	fmt.Fprintf(stdout, "%s=%d\n", property, result.Value)
	return nil
}

// serve exports the portal on the session bus until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, bridge *realtime.Bridge, logger *slog.Logger) error {
	var sessionConnection *dbus.Conn
	var err error
	if cfg.Portal.SessionBusAddress != "" {
		sessionConnection, err = dbus.Connect(cfg.Portal.SessionBusAddress)
	} else {
		sessionConnection, err = dbus.ConnectSessionBus()
	}
	if err != nil {
		return fmt.Errorf("connecting to session bus: %w", err)
	}
	defer sessionConnection.Close()

	resolver, err := appinfo.NewResolver(appinfo.ResolverConfig{
		ProcRoot: cfg.AppInfo.ProcRoot,
		Bus:      appinfo.NewBusLookup(sessionConnection),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	realtimePortal, err := portal.New(portal.Config{
		Connection: sessionConnection,
		Scheduler:  bridge,
		Identify: func(ctx context.Context, sender string) (realtime.CallerIdentity, error) {
			info, err := resolver.Lookup(ctx, sender)
			if err != nil {
				return nil, err
			}
			return info, nil
		},
		BusName:         cfg.Portal.BusName,
		ReplaceExisting: cfg.Portal.Replace,
		ObjectPath:      dbus.ObjectPath(cfg.Portal.ObjectPath),
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting "+binaryName, "version", version.Info())
	if err := realtimePortal.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("received shutdown signal")
	realtimePortal.Stop()
	logger.Info("shutdown complete")
	return nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `%s - realtime scheduling portal for sandboxed applications

USAGE
    %s [flags]
    %s --query <property>

FLAGS
%s
EXAMPLES
    # Run on the session bus with defaults
    %s

    # Run beside an existing xdg-desktop-portal under another name
    %s --bus-name org.example.RealtimePortal

    # Ask RealtimeKit for its limits
    %s --query MaxRealtimePriority
    %s --query RTTimeUSecMax
`, binaryName, binaryName, binaryName, flagSet.FlagUsages(), binaryName, binaryName, binaryName, binaryName)
}
