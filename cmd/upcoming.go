package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/prepbrief/config"
	"github.com/otherjamesbrown/prepbrief/pkg/calendar"
	"github.com/otherjamesbrown/prepbrief/pkg/mail"
	"github.com/otherjamesbrown/prepbrief/pkg/prep"
)

// EventSource lists upcoming events, tags processed ones and sets their
// reminders.
type EventSource interface {
	Upcoming(ctx context.Context, now time.Time) ([]calendar.Event, error)
	Tag(ctx context.Context, ev calendar.Event) error
	Remind(ctx context.Context, ev calendar.Event) error
}

// UpcomingCommandDeps holds the dependencies for the upcoming command.
type UpcomingCommandDeps struct {
	LoadConfig   func() (*config.CLIConfig, error)
	BuildRuntime RuntimeBuilder
	OpenCalendar func(ctx context.Context, cfg *config.CLIConfig) (EventSource, error)

	// OpenMailer returns nil when no email is configured.
	OpenMailer func(ctx context.Context, cfg *config.CLIConfig) (prep.Notifier, error)

	Now func() time.Time
}

// DefaultUpcomingDeps returns the default dependencies for production use.
func DefaultUpcomingDeps() *UpcomingCommandDeps {
	return &UpcomingCommandDeps{
		LoadConfig:   config.LoadConfig,
		BuildRuntime: BuildRuntime,
		OpenCalendar: openGoogleCalendar,
		OpenMailer:   openGmail,
		Now:          time.Now,
	}
}

func openGoogleCalendar(ctx context.Context, cfg *config.CLIConfig) (EventSource, error) {
	path, err := config.ExpandPath(cfg.Calendar.CredentialsFile)
	if err != nil {
		return nil, err
	}
	svc, err := calendar.NewGoogleService(ctx, path)
	if err != nil {
		return nil, err
	}
	return calendar.NewGoogleSource(svc, cfg.Calendar.CalendarID, cfg.Calendar.Lookahead), nil
}

func openGmail(ctx context.Context, cfg *config.CLIConfig) (prep.Notifier, error) {
	if !cfg.Mail.Enabled() {
		return nil, nil
	}
	path, err := config.ExpandPath(cfg.Calendar.CredentialsFile)
	if err != nil {
		return nil, err
	}
	svc, err := mail.NewGmailService(ctx, path)
	if err != nil {
		return nil, err
	}
	return &mail.GmailSender{
		Service: svc,
		From:    cfg.AgentEmail,
		Admin:   cfg.Mail.AdminEmail,
		Briefs:  cfg.Mail.DeliverBriefs,
	}, nil
}

type upcomingOptions struct {
	prepOptions
	list       bool
	noTag      bool
	noReminder bool
	noMail     bool
}

// NewUpcomingCommand creates the upcoming command.
func NewUpcomingCommand(deps *UpcomingCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultUpcomingDeps()
	}
	opts := &upcomingOptions{}

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Prepare briefs for upcoming Google Calendar events",
		Long: `Fetch the events starting within the configured lookahead from Google
Calendar and prepare each one. Processed events are tagged in their
description so other runs and colleagues can see they were handled, and
prepared events get an email reminder an hour before they start.

With mail configured (mail.deliver_briefs, mail.admin_email), drafted
briefs are emailed to the internal attendees and the admin is told about
ambiguous brands and failed drafts.

Requires calendar.credentials_file (a service-account key) in the config
or PREPBRIEF_CALENDAR_CREDENTIALS.

Examples:
  prepbrief upcoming --list
  prepbrief upcoming --draft
  prepbrief upcoming --dry-run -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpcoming(cmd.Context(), cmd.OutOrStdout(), deps, opts)
		},
	}
	opts.register(cmd, false)
	cmd.Flags().BoolVar(&opts.list, "list", false, "Only list the upcoming events")
	cmd.Flags().BoolVar(&opts.noTag, "no-tag", false, "Do not tag processed events in the calendar")
	cmd.Flags().BoolVar(&opts.noReminder, "no-reminder", false, "Do not add email reminders to prepared events")
	cmd.Flags().BoolVar(&opts.noMail, "no-mail", false, "Do not send briefs or admin notices")

	return cmd
}

// UpcomingEvent is one row of 'upcoming --list'.
type UpcomingEvent struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Start     time.Time `json:"start" yaml:"start"`
	Attendees int       `json:"attendees" yaml:"attendees"`
	Tagged    bool      `json:"tagged" yaml:"tagged"`
}

func runUpcoming(ctx context.Context, w io.Writer, deps *UpcomingCommandDeps, opts *upcomingOptions) error {
	cfg, err := loadConfigWith(deps.LoadConfig)
	if err != nil {
		return err
	}
	format, err := resolveOutputFormat(opts.output, cfg)
	if err != nil {
		return err
	}

	src, err := deps.OpenCalendar(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening calendar: %w", err)
	}
	events, err := src.Upcoming(ctx, deps.Now())
	if err != nil {
		return err
	}

	if opts.list {
		return writeUpcomingList(w, format, events)
	}

	rt, err := deps.BuildRuntime(ctx, cfg, opts.runtimeOptions())
	if err != nil {
		return err
	}
	defer rt.Close()

	set := PrepSettings{DryRun: opts.dryRun}
	if !opts.noTag {
		set.Tagger = src
	}
	if !opts.noReminder {
		set.Reminder = src
	}
	if !opts.noMail && deps.OpenMailer != nil {
		notifier, err := deps.OpenMailer(ctx, cfg)
		if err != nil {
			return fmt.Errorf("opening mail: %w", err)
		}
		set.Notifier = notifier
	}
	svc, err := rt.PrepService(rt.Policy(""), set)
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

func writeUpcomingList(w io.Writer, format config.OutputFormat, events []calendar.Event) error {
	rows := make([]UpcomingEvent, 0, len(events))
	for _, ev := range events {
		rows = append(rows, UpcomingEvent{
			ID:        ev.ID,
			Title:     ev.Title,
			Start:     ev.Start,
			Attendees: len(ev.Attendees),
			Tagged:    calendar.IsTagged(ev.Description),
		})
	}
	if done, err := writeStructured(w, format, rows); done {
		return err
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No upcoming events.")
		return nil
	}
	fmt.Fprintf(w, "%-17s %-9s %-6s %s\n", "START", "ATTENDEES", "TAGGED", "TITLE")
	for _, r := range rows {
		tagged := "no"
		if r.Tagged {
			tagged = "yes"
		}
		fmt.Fprintf(w, "%-17s %-9d %-6s %s\n", r.Start.Format("2006-01-02 15:04"), r.Attendees, tagged, truncate(r.Title, 60))
	}
	return nil
}
