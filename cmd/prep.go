package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/prepbrief/config"
	"github.com/otherjamesbrown/prepbrief/pkg/brief"
	"github.com/otherjamesbrown/prepbrief/pkg/calendar"
	"github.com/otherjamesbrown/prepbrief/pkg/prep"
)

// PrepCommandDeps holds the dependencies for the prep command.
type PrepCommandDeps struct {
	LoadConfig   func() (*config.CLIConfig, error)
	BuildRuntime RuntimeBuilder
}

// DefaultPrepDeps returns the default dependencies for production use.
func DefaultPrepDeps() *PrepCommandDeps {
	return &PrepCommandDeps{
		LoadConfig:   config.LoadConfig,
		BuildRuntime: BuildRuntime,
	}
}

// prepOptions are shared by prep, watch and upcoming.
type prepOptions struct {
	brand   string
	draft   bool
	dryRun  bool
	history string
	output  string
}

func (o *prepOptions) register(cmd *cobra.Command, withBrand bool) {
	if withBrand {
		cmd.Flags().StringVar(&o.brand, "brand", "", "Brand override for every event")
	}
	cmd.Flags().BoolVar(&o.draft, "draft", false, "Draft a brief with the configured LLM")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Resolve without recording events as processed")
	cmd.Flags().StringVar(&o.history, "history", "", "History CSV export (overrides config)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Output format: text, json, yaml")
}

func (o *prepOptions) runtimeOptions() RuntimeOptions {
	return RuntimeOptions{
		HistoryPath: o.history,
		Ledger:      true,
		Draft:       o.draft,
	}
}

// NewPrepCommand creates the prep command.
func NewPrepCommand(deps *PrepCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultPrepDeps()
	}
	opts := &prepOptions{}

	cmd := &cobra.Command{
		Use:   "prep <event.json>...",
		Short: "Prepare briefs for calendar events",
		Long: `Screen calendar events, resolve each brand's meeting history and print the
continuity context (and, with --draft, an LLM-written brief).

Each file holds one event object or an array of events. Events are
recorded in the processed-event ledger once prepared or definitively
skipped, so running prep twice does not repeat work. Events whose draft
fails stay unprocessed and are retried on the next run.

--brand also bypasses the ledger, so an event skipped earlier (for
example because its brand was ambiguous) can be prepared by hand.

Examples:
  prepbrief prep event.json
  prepbrief prep --brand "Acme Foods" --draft event.json
  prepbrief prep --dry-run -o json events/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrep(cmd.Context(), cmd.OutOrStdout(), deps, opts, args)
		},
	}
	opts.register(cmd, true)

	return cmd
}

func runPrep(ctx context.Context, w io.Writer, deps *PrepCommandDeps, opts *prepOptions, paths []string) error {
	cfg, err := loadConfigWith(deps.LoadConfig)
	if err != nil {
		return err
	}
	format, err := resolveOutputFormat(opts.output, cfg)
	if err != nil {
		return err
	}

	var events []calendar.Event
	for _, path := range paths {
		evs, err := calendar.LoadEventFile(path)
		if err != nil {
			return err
		}
		events = append(events, evs...)
	}

	rt, err := deps.BuildRuntime(ctx, cfg, opts.runtimeOptions())
	if err != nil {
		return err
	}
	defer rt.Close()

	svc, err := rt.PrepService(rt.Policy(opts.brand), PrepSettings{
		DryRun:    opts.dryRun,
		Reprocess: opts.brand != "",
	})
	if err != nil {
		return err
	}

	outcomes, err := prepareAll(ctx, svc, events)
	if err != nil {
		return err
	}
	if err := writeOutcomes(w, format, outcomes); err != nil {
		return err
	}
	return draftFailures(outcomes)
}

// prepareAll prepares events in order, stopping at the first hard error.
func prepareAll(ctx context.Context, svc *prep.Service, events []calendar.Event) ([]prep.Outcome, error) {
	outcomes := make([]prep.Outcome, 0, len(events))
	for _, ev := range events {
		out, err := svc.Prepare(ctx, ev)
		if err != nil {
			return outcomes, fmt.Errorf("preparing %s: %w", ev.ID, err)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// draftFailures turns failed drafts into a non-zero exit.
func draftFailures(outcomes []prep.Outcome) error {
	failed := 0
	for _, out := range outcomes {
		if out.Status == prep.StatusDraftFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d event(s) failed to draft and were left unprocessed", failed)
	}
	return nil
}

func writeOutcomes(w io.Writer, format config.OutputFormat, outcomes []prep.Outcome) error {
	if done, err := writeStructured(w, format, outcomes); done {
		return err
	}
	for i, out := range outcomes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeOutcomeText(w, out)
	}
	return nil
}

func sideEffects(out prep.Outcome) []string {
	var sent []string
	if out.Delivered {
		sent = append(sent, "brief emailed")
	}
	if out.Notified {
		sent = append(sent, "admin notified")
	}
	if out.Reminded {
		sent = append(sent, "reminder set")
	}
	return sent
}

func writeOutcomeText(w io.Writer, out prep.Outcome) {
	fmt.Fprintf(w, "%s  %s  [%s]\n", out.EventID, out.Title, out.Status)

	if out.Skip != nil {
		if out.Skip.Detail != "" {
			fmt.Fprintf(w, "  skipped: %s (%s)\n", out.Skip.Reason, out.Skip.Detail)
		} else {
			fmt.Fprintf(w, "  skipped: %s\n", out.Skip.Reason)
		}
	}
	if m := out.Meeting; m != nil {
		fmt.Fprintf(w, "  brand:    %s (%s)\n", m.Brand, m.BrandSource)
		fmt.Fprintf(w, "  ours:     %s\n", joinOrDash(m.Attendees.InternalRaw()))
		fmt.Fprintf(w, "  client:   %s\n", joinOrDash(m.Attendees.ExternalRaw()))
	}
	if f := out.SourceError; f != nil {
		writeFailure(w, "history unavailable", f)
	}
	if f := out.DraftError; f != nil {
		writeFailure(w, "draft failed", f)
	}
	if n := len(out.SkippedRows); n > 0 {
		fmt.Fprintf(w, "  %d history row(s) skipped\n", n)
	}
	if sent := sideEffects(out); len(sent) > 0 {
		fmt.Fprintf(w, "  sent:     %s\n", strings.Join(sent, ", "))
	}

	switch {
	case out.Brief != nil && out.Context != nil:
		fmt.Fprintf(w, "\n%s", brief.RenderMarkdown(*out.Brief, *out.Context))
	case out.Context != nil:
		fmt.Fprintf(w, "\n%s\n", out.Context.Narrative)
	}
}

func writeFailure(w io.Writer, label string, f *prep.SourceFailure) {
	fmt.Fprintf(w, "  %s (%s, %s): %s\n", label, f.Source, f.Code, f.Message)
	if f.Suggestion != "" {
		fmt.Fprintf(w, "    %s\n", f.Suggestion)
	}
}
