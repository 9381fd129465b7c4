// Package main provides the entry point for dockbar-go, a status bar for
// minimalist X11 window managers. The bar docks along the top or bottom
// edge of an output, reserves its space with a strut and repaints as its
// widgets update.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/go-dockbar/internal/config"
	"github.com/opd-ai/go-dockbar/internal/profiling"
	"github.com/opd-ai/go-dockbar/pkg/dockbar"
)

// Version is the current version of dockbar-go.
// This default value can be overridden at build time using:
//
//	go build -ldflags "-X main.Version=x.y.z"
var Version = "0.1.0-dev"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	configPath  string
	version     bool
	preview     bool
	headless    bool
	debug       bool
	logJSON     bool
	metricsAddr string
	watch       bool
	check       bool
	cpuProfile  string
	memProfile  string
	snapshot    string
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("dockbar-go", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "c", "", "Path to configuration file (Lua or YAML)")
	fs.BoolVar(&f.version, "v", false, "Print version and exit")
	fs.BoolVar(&f.preview, "preview", false, "Show the bar in an ordinary window instead of docking it")
	fs.BoolVar(&f.headless, "headless", false, "Run without a display, painting into memory only")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.logJSON, "log-json", false, "Log in JSON format")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9273)")
	fs.BoolVar(&f.watch, "watch", false, "Reload the bar when the configuration file changes")
	fs.BoolVar(&f.check, "check", false, "Parse and validate the configuration, then exit")
	fs.StringVar(&f.cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	fs.StringVar(&f.memProfile, "memprofile", "", "Write memory profile to file")
	fs.StringVar(&f.snapshot, "snapshot", "", "Write the last painted frame to this PNG file on exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return f, nil
}

func newLogger(w io.Writer, debug, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	if f.version {
		fmt.Fprintf(stdout, "dockbar-go version %s\n", Version)
		return 0
	}

	if f.configPath == "" {
		fmt.Fprintln(stderr, "No configuration file specified. Use -c to specify a config file.")
		fmt.Fprintln(stderr, "Usage: dockbar-go -c <config-file>")
		return 1
	}

	// Verify config file exists and is accessible
	if _, err := os.Stat(f.configPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(stderr, "Configuration file not found: %s\n", f.configPath)
		} else {
			fmt.Fprintf(stderr, "Error accessing configuration file %s: %v\n", f.configPath, err)
		}
		return 1
	}

	if f.check {
		return runCheck(f.configPath, stdout, stderr)
	}

	logger := newLogger(stderr, f.debug, f.logJSON)

	profConfig := profiling.Config{
		CPUProfilePath: f.cpuProfile,
		MemProfilePath: f.memProfile,
	}
	if profConfig.Enabled() {
		prof, err := profiling.Start(profConfig)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to start profiling: %v\n", err)
			return 1
		}
		defer func() {
			if err := prof.Stop(); err != nil {
				logger.Warn("failed to stop profiling", "error", err)
			}
		}()
	}

	if err := runBar(ctx, f, logger); err != nil {
		logger.Error("dockbar-go stopped", "error", err)
		return 1
	}
	return 0
}

// runBar runs the bar until ctx is done, a termination signal arrives or the
// bar's window goes away. SIGHUP reloads the configuration.
func runBar(ctx context.Context, f *flags, logger *slog.Logger) error {
	opts := dockbar.DefaultOptions()
	opts.Preview = f.preview
	opts.Headless = f.headless
	opts.Logger = dockbar.NewSlogAdapter(logger)
	opts.WatchConfig = f.watch
	opts.Metrics = dockbar.NewMetrics()

	b, err := dockbar.New(f.configPath, &opts)
	if err != nil {
		return err
	}
	b.SetErrorHandler(func(err error) {
		logger.Warn("bar error", "error", err)
	})
	b.SetEventHandler(func(e dockbar.Event) {
		logger.Debug(e.Message, "event", e.Type.String())
	})

	logger.Info("dockbar-go starting", "version", Version, "config", f.configPath)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The bar ending on its own ends the other goroutines too.
		defer cancel()
		return b.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				logger.Info("received SIGHUP, reloading configuration")
				if err := b.ReloadConfig(); err != nil {
					logger.Error("reload failed, keeping the running bar", "error", err)
				}
			}
		}
	})
	if f.metricsAddr != "" {
		g.Go(func() error {
			return opts.Metrics.Serve(gctx, f.metricsAddr, logger)
		})
	}
	err = g.Wait()

	if f.snapshot != "" {
		if serr := writeSnapshot(b, f.snapshot); serr != nil {
			logger.Warn("failed to write snapshot", "path", f.snapshot, "error", serr)
		} else {
			logger.Info("snapshot written", "path", f.snapshot)
		}
	}
	return err
}

// writeSnapshot saves the bar's last frame as a PNG image.
func writeSnapshot(b dockbar.Dockbar, path string) error {
	img, err := b.Snapshot()
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		_ = out.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return out.Close()
}

// runCheck parses and validates the configuration at path and reports the
// result without touching the display.
func runCheck(path string, stdout, stderr io.Writer) int {
	p, err := config.NewParser()
	if err != nil {
		fmt.Fprintf(stderr, "Error creating parser: %v\n", err)
		return 1
	}
	defer p.Close()

	cfg, err := p.ParseFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing configuration: %v\n", err)
		return 1
	}

	result := config.NewValidator().Validate(cfg)
	for _, w := range result.Warnings {
		fmt.Fprintf(stderr, "warning: %v\n", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(stderr, "error: %v\n", e)
	}
	if !result.IsValid() {
		return 1
	}
	fmt.Fprintf(stdout, "%s: OK (%d widgets)\n", path, len(cfg.Widgets))
	return 0
}
