package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/prepbrief/config"
	"github.com/otherjamesbrown/prepbrief/pkg/buildinfo"
	"github.com/otherjamesbrown/prepbrief/pkg/calendar"
	"github.com/otherjamesbrown/prepbrief/pkg/logging"
	"github.com/otherjamesbrown/prepbrief/pkg/prep"
)

// WatchCommandDeps holds the dependencies for the watch command.
type WatchCommandDeps struct {
	LoadConfig   func() (*config.CLIConfig, error)
	BuildRuntime RuntimeBuilder
	NewWatcher   func() (*fsnotify.Watcher, error)

	// Ready, when set, is called once the directory is being watched.
	Ready func()
}

// DefaultWatchDeps returns the default dependencies for production use.
func DefaultWatchDeps() *WatchCommandDeps {
	return &WatchCommandDeps{
		LoadConfig:   config.LoadConfig,
		BuildRuntime: BuildRuntime,
		NewWatcher:   fsnotify.NewWatcher,
	}
}

type watchOptions struct {
	prepOptions
	existing    bool
	metricsAddr string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(deps *WatchCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultWatchDeps()
	}
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Prepare events as they are dropped into a directory",
		Long: `Watch a directory for calendar event files (*.json) and prepare each one
as it appears, exactly like 'prepbrief prep'. Runs until interrupted.

Files that are still being written are retried on their next write.
Events already in the processed-event ledger are not reported again.

With --metrics-addr, Prometheus metrics are served on /metrics and build
information on /version.

Examples:
  prepbrief watch ./inbox
  prepbrief watch --existing --draft ./inbox
  prepbrief watch --metrics-addr :9102 -o json ./inbox`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd.OutOrStdout(), deps, opts, args[0])
		},
	}
	opts.register(cmd, true)
	cmd.Flags().BoolVar(&opts.existing, "existing", false, "Also prepare event files already in the directory")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /version on this address")

	return cmd
}

func runWatch(ctx context.Context, w io.Writer, deps *WatchCommandDeps, opts *watchOptions, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	cfg, err := loadConfigWith(deps.LoadConfig)
	if err != nil {
		return err
	}
	format, err := resolveOutputFormat(opts.output, cfg)
	if err != nil {
		return err
	}

	rt, err := deps.BuildRuntime(ctx, cfg, opts.runtimeOptions())
	if err != nil {
		return err
	}
	defer rt.Close()

	svc, err := rt.PrepService(rt.Policy(opts.brand), PrepSettings{DryRun: opts.dryRun})
	if err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		stop := serveMetrics(opts.metricsAddr, rt.Registry, rt.Logger)
		defer stop()
	}

	newWatcher := deps.NewWatcher
	if newWatcher == nil {
		newWatcher = fsnotify.NewWatcher
	}
	watcher, err := newWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	d := &dropFolder{svc: svc, w: w, format: format, log: rt.Logger.With(logging.F("dir", dir))}
	if opts.existing {
		paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return err
		}
		sort.Strings(paths)
		for _, p := range paths {
			if err := d.process(ctx, p); err != nil {
				return err
			}
		}
	}

	d.log.Info("Watching for event files")
	if deps.Ready != nil {
		deps.Ready()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".json") {
				continue
			}
			if err := d.process(ctx, ev.Name); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.log.Warn("Watcher error", logging.Err(err))
		}
	}
}

// dropFolder prepares the events of files appearing in a watched directory.
type dropFolder struct {
	svc    *prep.Service
	w      io.Writer
	format config.OutputFormat
	log    logging.Logger

	mu sync.Mutex
}

// process prepares every event in path. Unreadable files are logged and
// left for the next write event; only hard preparation errors are returned.
func (d *dropFolder) process(ctx context.Context, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	events, err := calendar.LoadEventFile(path)
	if err != nil {
		d.log.Debug("Event file not ready", logging.F("path", path), logging.Err(err))
		return nil
	}

	for _, ev := range events {
		out, err := d.svc.Prepare(ctx, ev)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("preparing %s from %s: %w", ev.ID, path, err)
		}
		if out.Status == prep.StatusAlreadyProcessed {
			continue
		}
		if err := d.write(out); err != nil {
			return err
		}
	}
	return nil
}

func (d *dropFolder) write(out prep.Outcome) error {
	if d.format == config.OutputFormatText {
		writeOutcomeText(d.w, out)
		fmt.Fprintln(d.w)
		return nil
	}
	_, err := writeStructured(d.w, d.format, out)
	return err
}

// serveMetrics serves the registry and build info until the returned func
// is called.
func serveMetrics(addr string, reg *prometheus.Registry, log logging.Logger) func() {
	srv := &http.Server{Addr: addr, Handler: metricsMux(reg), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server stopped", logging.F("addr", addr), logging.Err(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/version", buildinfo.Handler("prepbrief"))
	return mux
}
