package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/otherjamesbrown/prepbrief/config"
	"github.com/otherjamesbrown/prepbrief/pkg/brand"
	"github.com/otherjamesbrown/prepbrief/pkg/brief"
	"github.com/otherjamesbrown/prepbrief/pkg/calendar"
	"github.com/otherjamesbrown/prepbrief/pkg/continuity"
	"github.com/otherjamesbrown/prepbrief/pkg/history"
	"github.com/otherjamesbrown/prepbrief/pkg/ledger"
	"github.com/otherjamesbrown/prepbrief/pkg/logging"
	"github.com/otherjamesbrown/prepbrief/pkg/observability"
)

const privateNotes = "Ravi's team discussed a confidential rebate"

func testConfig() *config.CLIConfig {
	cfg := config.DefaultConfig()
	cfg.OutputFormat = config.OutputFormatText
	return cfg
}

func loadTestConfig() (*config.CLIConfig, error) {
	return testConfig(), nil
}

func acmeHistory() []continuity.Record {
	return []continuity.Record{
		{Row: 2, BrandName: "Acme", MeetingDate: "2024-05-01", Discussion: "Pilot pricing", ActionItems: "Share pilot proposal", InternalAttendees: "Shubham Dakhane"},
		{Row: 3, BrandName: "Acme Foods", MeetingDate: "2024-05-15", Discussion: privateNotes, InternalAttendees: "Ravi Kumar"},
		{Row: 4, BrandName: "Acme", MeetingDate: "sometime", InternalAttendees: "Ravi Kumar"},
		{Row: 5, BrandName: "Globex", MeetingDate: "2024-05-20", Discussion: "Unrelated", InternalAttendees: "Shubham Dakhane"},
	}
}

func acmeEvent(id string) calendar.Event {
	return calendar.Event{
		ID:    id,
		Title: "Acme x NBH review",
		Start: time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC),
		Attendees: []calendar.Attendee{
			{Email: "brand.vmeet@nobroker.in", Self: true},
			{Email: "shubham.dakhane@nobroker.in", DisplayName: "Shubham Dakhane"},
			{Email: "meera@acme.com", DisplayName: "Meera Iyer"},
		},
	}
}

// internalOnlyEvent has no client attendee and is skipped by screening.
func internalOnlyEvent(id string) calendar.Event {
	ev := acmeEvent(id)
	ev.Title = "Team sync"
	ev.Attendees = ev.Attendees[:2]
	return ev
}

func writeEvents(t *testing.T, dir, name string, events ...calendar.Event) string {
	t.Helper()
	var v any = events
	if len(events) == 1 {
		v = events[0]
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

type failingDrafter struct{ err error }

func (d failingDrafter) Draft(ctx context.Context, req brief.Request) (brief.Brief, error) {
	return brief.Brief{}, d.err
}

type stubDrafter struct{}

func (stubDrafter) Draft(ctx context.Context, req brief.Request) (brief.Brief, error) {
	return brief.Brief{Headline: "Brief for " + req.Brand, FollowUps: []string{"Send the pilot proposal"}}, nil
}

// fakeRuntime builds runtimes over in-memory collaborators and records the
// options each command asked for.
type fakeRuntime struct {
	records []continuity.Record
	ledger  *ledger.MemoryLedger
	drafter brief.Drafter
	err     error

	opts    []RuntimeOptions
	windows []int
	closed  int
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{records: acmeHistory(), ledger: ledger.NewMemoryLedger()}
}

func (f *fakeRuntime) Build(ctx context.Context, cfg *config.CLIConfig, opts RuntimeOptions) (*Runtime, error) {
	f.opts = append(f.opts, opts)
	f.windows = append(f.windows, cfg.HistoryWindow)
	if f.err != nil {
		return nil, f.err
	}

	log := logging.NewNopLogger()
	reg := prometheus.NewRegistry()
	rt := &Runtime{
		Config:      cfg,
		Logger:      log,
		History:     history.StaticSource(f.records),
		HistoryName: "csv",
		Classifier:  continuity.NewClassifier(brand.NewMatcher(cfg.MinBrandLength), cfg.People(), cfg.HistoryWindow, cfg.DateFormats, log),
		Registry:    reg,
		Metrics:     observability.NewMetrics(reg),
		Tracer:      observability.NewTracerWithProvider(noop.NewTracerProvider()),
		closers:     []func(){func() { f.closed++ }},
	}
	if opts.Ledger {
		rt.Ledger = f.ledger
	}
	if opts.Draft {
		rt.Drafter = f.drafter
		if rt.Drafter == nil {
			rt.Drafter = stubDrafter{}
		}
		rt.DraftName = "stub"
	}
	return rt, nil
}

// run executes c with args and returns stdout.
func run(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&errOut)
	c.SetArgs(args)
	err := c.ExecuteContext(context.Background())
	return out.String(), err
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
