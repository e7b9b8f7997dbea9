package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/otherjamesbrown/prepbrief/config"
	"github.com/otherjamesbrown/prepbrief/credentials"
	"github.com/otherjamesbrown/prepbrief/pkg/brand"
	"github.com/otherjamesbrown/prepbrief/pkg/brief"
	"github.com/otherjamesbrown/prepbrief/pkg/calendar"
	"github.com/otherjamesbrown/prepbrief/pkg/continuity"
	"github.com/otherjamesbrown/prepbrief/pkg/db"
	"github.com/otherjamesbrown/prepbrief/pkg/history"
	"github.com/otherjamesbrown/prepbrief/pkg/ledger"
	"github.com/otherjamesbrown/prepbrief/pkg/logging"
	"github.com/otherjamesbrown/prepbrief/pkg/observability"
	"github.com/otherjamesbrown/prepbrief/pkg/prep"
)

// RuntimeOptions selects which collaborators a command needs.
type RuntimeOptions struct {
	// HistoryPath overrides the configured CSV export.
	HistoryPath string

	// Ledger opens the processed-event ledger.
	Ledger bool

	// Draft creates the LLM drafter.
	Draft bool
}

// Runtime holds the collaborators built from configuration.
type Runtime struct {
	Config      *config.CLIConfig
	Logger      logging.Logger
	History     history.Source
	HistoryName string
	Classifier  *continuity.Classifier
	Ledger      ledger.Ledger
	Drafter     brief.Drafter
	DraftName   string
	Registry    *prometheus.Registry
	Metrics     *observability.Metrics
	Tracer      *observability.Tracer

	closers []func()
}

// RuntimeBuilder builds a Runtime; commands take one so tests can inject fakes.
type RuntimeBuilder func(ctx context.Context, cfg *config.CLIConfig, opts RuntimeOptions) (*Runtime, error)

// NewLogger creates the CLI logger. Logs go to stderr so structured output
// on stdout stays parseable.
func NewLogger(cfg *config.CLIConfig) logging.Logger {
	lc := logging.DefaultConfig()
	lc.ServiceName = "prepbrief"
	lc.Level = logging.LevelWarn
	if cfg != nil {
		if cfg.Debug {
			lc.Level = logging.LevelDebug
		}
		lc.JSONFormat = cfg.LogJSON
	}
	return logging.NewLogger(lc)
}

// BuildRuntime wires the history source, classifier, ledger and drafter
// described by cfg.
func BuildRuntime(ctx context.Context, cfg *config.CLIConfig, opts RuntimeOptions) (*Runtime, error) {
	rt := &Runtime{
		Config:   cfg,
		Logger:   NewLogger(cfg),
		Registry: prometheus.NewRegistry(),
		Tracer:   observability.NewTracer(),
	}
	rt.Metrics = observability.NewMetrics(rt.Registry)
	rt.Classifier = continuity.NewClassifier(
		brand.NewMatcher(cfg.MinBrandLength),
		cfg.People(),
		cfg.HistoryWindow,
		cfg.DateFormats,
		rt.Logger,
	)

	if err := rt.openHistory(ctx, opts.HistoryPath); err != nil {
		rt.Close()
		return nil, err
	}
	if opts.Ledger {
		if err := rt.openLedger(ctx); err != nil {
			rt.Close()
			return nil, err
		}
	}
	if opts.Draft {
		if err := rt.openDrafter(); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *Runtime) openHistory(ctx context.Context, pathOverride string) error {
	cfg := rt.Config
	source := cfg.History.Source
	if pathOverride != "" {
		source = config.HistorySourceCSV
	}

	switch source {
	case config.HistorySourcePostgres:
		dbCfg := cfg.Postgres.DBConfig()
		if dbCfg.Password == "" {
			if pw, _, err := credentials.NewStore().Resolve(credentials.SecretDBPassword); err == nil {
				dbCfg.Password = pw
			}
		}
		pool, err := db.Connect(ctx, dbCfg)
		if err != nil {
			return fmt.Errorf("connecting to history database: %w", err)
		}
		rt.closers = append(rt.closers, func() { db.Close(pool) })
		if _, err := db.RegisterPoolStats(rt.Registry, pool, observability.Namespace); err != nil {
			rt.Logger.Warn("Pool stats not registered", logging.Err(err))
		}

		src, err := history.NewPostgresSource(pool, cfg.History.Table)
		if err != nil {
			return err
		}
		src.Columns = cfg.HistoryColumns()
		rt.History = src
		rt.HistoryName = "postgres"

	default:
		path := pathOverride
		if path == "" {
			path = cfg.History.CSVPath
		}
		if path == "" {
			return fmt.Errorf("no history export configured (set history.csv_path or pass --history)")
		}
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return err
		}
		src := history.NewCSVSource(expanded, cfg.History.CSVEncoding)
		if pathOverride == "" || cfg.History.Source == config.HistorySourceCSV {
			src.Columns = cfg.HistoryColumns()
		}
		rt.History = src
		rt.HistoryName = "csv"
	}
	return nil
}

func (rt *Runtime) openLedger(ctx context.Context) error {
	l, closeFn, err := OpenLedger(ctx, rt.Config)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, closeFn)
	rt.Ledger = l
	return nil
}

// OpenLedger opens the configured processed-event ledger. The returned
// func releases it.
func OpenLedger(ctx context.Context, cfg *config.CLIConfig) (ledger.Ledger, func(), error) {
	switch cfg.Ledger.Backend {
	case config.LedgerBackendRedis:
		password := cfg.Redis.Password()
		if password == "" {
			if pw, _, err := credentials.NewStore().Resolve(credentials.SecretRedisPassword); err == nil {
				password = pw
			}
		}
		client, err := ledger.ConnectRedis(ctx, cfg.Redis.Addr, password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to ledger: %w", err)
		}
		return ledger.NewRedisLedger(client, cfg.Redis.KeyPrefix), func() { _ = client.Close() }, nil
	default:
		path, err := cfg.LedgerPath()
		if err != nil {
			return nil, nil, err
		}
		return ledger.NewFileLedger(path), func() {}, nil
	}
}

func (rt *Runtime) openDrafter() error {
	key, _, err := credentials.NewStore().Resolve(credentials.SecretOpenAIKey)
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			return fmt.Errorf("no LLM API key: run 'prepbrief auth set-key' or set OPENAI_API_KEY")
		}
		return err
	}
	d, err := brief.NewOpenAIDrafter(key, brief.OpenAIConfig{
		Model:             rt.Config.LLM.Model,
		RequestsPerMinute: rt.Config.LLM.RequestsPerMinute,
		MaxOutputTokens:   rt.Config.LLM.MaxOutputTokens,
	}, rt.Logger)
	if err != nil {
		return err
	}
	rt.Drafter = d
	rt.DraftName = "openai"
	return nil
}

// Policy returns the screening policy from configuration.
func (rt *Runtime) Policy(brandOverride string) calendar.Policy {
	return calendar.Policy{
		AgentEmail: rt.Config.AgentEmail,
		People:     rt.Config.People(),
		Brand:      brandOverride,
	}
}

// PrepSettings are the per-command switches and optional calendar and
// mail side effects of a run.
type PrepSettings struct {
	Tagger    prep.Tagger
	Reminder  prep.Reminder
	Notifier  prep.Notifier
	DryRun    bool
	Reprocess bool
}

// PrepService creates the preparation service over this runtime.
func (rt *Runtime) PrepService(policy calendar.Policy, set PrepSettings) (*prep.Service, error) {
	l := rt.Ledger
	if l == nil {
		l = ledger.NewMemoryLedger()
	}
	return prep.NewService(prep.Deps{
		History:     rt.History,
		HistoryName: rt.HistoryName,
		Classifier:  rt.Classifier,
		Policy:      policy,
		Ledger:      l,
		Drafter:     rt.Drafter,
		DraftName:   rt.DraftName,
		Tagger:      set.Tagger,
		Reminder:    set.Reminder,
		Notifier:    set.Notifier,
		DryRun:      set.DryRun,
		Reprocess:   set.Reprocess,
		Metrics:     rt.Metrics,
		Tracer:      rt.Tracer,
		Logger:      rt.Logger,
	})
}

// Close releases connections in reverse order of opening.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// loadConfigWith loads configuration, reporting the error the way every
// command does.
func loadConfigWith(load func() (*config.CLIConfig, error)) (*config.CLIConfig, error) {
	if load == nil {
		load = config.LoadConfig
	}
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

