package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/prepbrief/config"
	"github.com/otherjamesbrown/prepbrief/pkg/continuity"
	"github.com/otherjamesbrown/prepbrief/pkg/observability"
)

// ResolveCommandDeps holds the dependencies for the resolve command.
type ResolveCommandDeps struct {
	LoadConfig   func() (*config.CLIConfig, error)
	BuildRuntime RuntimeBuilder
	Now          func() time.Time
}

// DefaultResolveDeps returns the default dependencies for production use.
func DefaultResolveDeps() *ResolveCommandDeps {
	return &ResolveCommandDeps{
		LoadConfig:   config.LoadConfig,
		BuildRuntime: BuildRuntime,
		Now:          time.Now,
	}
}

type resolveOptions struct {
	brand    string
	date     string
	internal []string
	external []string
	history  string
	window   int
	output   string
}

// ResolveReport is the structured output of the resolve command.
type ResolveReport struct {
	Brand       string             `json:"brand" yaml:"brand"`
	MeetingDate time.Time          `json:"meeting_date" yaml:"meeting_date"`
	Verdict     string             `json:"verdict" yaml:"verdict"`
	Result      continuity.Result  `json:"result" yaml:"result"`
	Context     continuity.Context `json:"context" yaml:"context"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(deps *ResolveCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultResolveDeps()
	}
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Classify a brand's meeting history against an upcoming meeting",
		Long: `Classify the history export for one brand against the people attending an
upcoming meeting, and print the continuity context a brief would receive.

A past meeting is continuity when at least one of our attendees was also
there. Other meetings with the brand are reported only by date and team.

Examples:
  prepbrief resolve --brand "Acme Foods" --internal "Shubham Dakhane" \
      --external "Meera Iyer" --history meetings.csv

  # Resolve as of a specific day, as JSON
  prepbrief resolve --brand Acme --date 2025-03-14 --internal "S Dakhane" -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), cmd.OutOrStdout(), deps, opts)
		},
	}

	cmd.Flags().StringVar(&opts.brand, "brand", "", "Brand the meeting is with (required)")
	cmd.Flags().StringVar(&opts.date, "date", "", "Meeting date (default: today)")
	cmd.Flags().StringArrayVar(&opts.internal, "internal", nil, "Our attendee name (repeatable)")
	cmd.Flags().StringArrayVar(&opts.external, "external", nil, "Client attendee name (repeatable)")
	cmd.Flags().StringVar(&opts.history, "history", "", "History CSV export (overrides config)")
	cmd.Flags().IntVar(&opts.window, "window", 0, "Number of recent brand meetings to consider (overrides config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output format: text, json, yaml")
	_ = cmd.MarkFlagRequired("brand")

	return cmd
}

func runResolve(ctx context.Context, w io.Writer, deps *ResolveCommandDeps, opts *resolveOptions) error {
	if strings.TrimSpace(opts.brand) == "" {
		return fmt.Errorf("--brand must not be empty")
	}
	if opts.window < 0 {
		return fmt.Errorf("--window must not be negative")
	}

	cfg, err := loadConfigWith(deps.LoadConfig)
	if err != nil {
		return err
	}
	format, err := resolveOutputFormat(opts.output, cfg)
	if err != nil {
		return err
	}

	meetingDate := deps.Now()
	if opts.date != "" {
		if meetingDate, err = continuity.ParseDate(opts.date, cfg.DateFormats); err != nil {
			return err
		}
	}
	if opts.window > 0 {
		cfg.HistoryWindow = opts.window
	}

	rt, err := deps.BuildRuntime(ctx, cfg, RuntimeOptions{HistoryPath: opts.history})
	if err != nil {
		return err
	}
	defer rt.Close()

	records, err := rt.History.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}

	attendees := cfg.People().BuildFromCells(strings.Join(opts.internal, "; "), strings.Join(opts.external, "; "))
	res := rt.Classifier.Classify(opts.brand, continuity.Meeting{Date: meetingDate, Attendees: attendees}, records)
	report := ResolveReport{
		Brand:       opts.brand,
		MeetingDate: meetingDate,
		Verdict:     observability.Verdict(res.IsDirectFollowUp, res.HasOtherThreads),
		Result:      res,
		Context:     continuity.Assemble(opts.brand, res),
	}

	if done, err := writeStructured(w, format, report); done {
		return err
	}
	writeResolveText(w, report)
	return nil
}

func writeResolveText(w io.Writer, r ResolveReport) {
	fmt.Fprintf(w, "Brand:     %s\n", r.Brand)
	fmt.Fprintf(w, "Meeting:   %s\n", r.MeetingDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Verdict:   %s\n", r.Verdict)
	fmt.Fprintf(w, "Considered %d past meeting(s); %d continuity, %d other thread(s)\n",
		r.Result.Considered, len(r.Result.Continuity), len(r.Result.Alerts))
	for _, e := range r.Result.Continuity {
		fmt.Fprintf(w, "  %s  row %d  shared: %s\n", e.Date.Format("2006-01-02"), e.Record.Row, joinOrDash(e.CommonInternal))
	}
	for _, a := range r.Result.Alerts {
		fmt.Fprintf(w, "  %s  other team: %s\n", a.Date.Format("2006-01-02"), joinOrDash(a.InternalTeam))
	}
	if n := len(r.Result.Skipped); n > 0 {
		fmt.Fprintf(w, "Skipped %d row(s):\n", n)
		for _, s := range r.Result.Skipped {
			fmt.Fprintf(w, "  row %d: %s %s\n", s.Row, s.Reason, truncate(s.Value, 40))
		}
	}
	fmt.Fprintf(w, "\n%s\n", r.Context.Narrative)
}
