// Package prep runs brief preparation for one calendar event: screening,
// history resolution, context assembly and the optional brief draft.
package prep

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/otherjamesbrown/prepbrief/pkg/brief"
	"github.com/otherjamesbrown/prepbrief/pkg/calendar"
	"github.com/otherjamesbrown/prepbrief/pkg/continuity"
	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
	"github.com/otherjamesbrown/prepbrief/pkg/history"
	"github.com/otherjamesbrown/prepbrief/pkg/ledger"
	"github.com/otherjamesbrown/prepbrief/pkg/logging"
	"github.com/otherjamesbrown/prepbrief/pkg/mail"
	"github.com/otherjamesbrown/prepbrief/pkg/observability"
)

// Status is the result of preparing one event.
type Status string

const (
	StatusPrepared         Status = "prepared"
	StatusSkipped          Status = "skipped"
	StatusAlreadyProcessed Status = "already_processed"
	StatusDraftFailed      Status = "draft_failed"
)

// SourceFailure describes a history or drafter failure that the run
// degraded around.
type SourceFailure struct {
	Source     string             `json:"source" yaml:"source"`
	Code       pberrors.ErrorCode `json:"code" yaml:"code"`
	Message    string             `json:"message" yaml:"message"`
	Retryable  bool               `json:"retryable" yaml:"retryable"`
	Suggestion string             `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

func newSourceFailure(se *pberrors.SourceError) *SourceFailure {
	return &SourceFailure{
		Source:     se.Source,
		Code:       se.Code,
		Message:    se.Message,
		Retryable:  pberrors.IsRetryable(se.Code),
		Suggestion: pberrors.GetSuggestedAction(se.Code),
	}
}

// Outcome is everything a run produced for one event.
type Outcome struct {
	RunID       string                    `json:"run_id" yaml:"run_id"`
	EventID     string                    `json:"event_id" yaml:"event_id"`
	Title       string                    `json:"title,omitempty" yaml:"title,omitempty"`
	Status      Status                    `json:"status" yaml:"status"`
	Skip        *calendar.Skip            `json:"skip,omitempty" yaml:"skip,omitempty"`
	Meeting     *calendar.ScreenedMeeting `json:"meeting,omitempty" yaml:"meeting,omitempty"`
	Context     *continuity.Context       `json:"context,omitempty" yaml:"context,omitempty"`
	SkippedRows []continuity.Skip         `json:"skipped_rows,omitempty" yaml:"skipped_rows,omitempty"`
	Brief       *brief.Brief              `json:"brief,omitempty" yaml:"brief,omitempty"`
	SourceError *SourceFailure            `json:"source_error,omitempty" yaml:"source_error,omitempty"`
	DraftError  *SourceFailure            `json:"draft_error,omitempty" yaml:"draft_error,omitempty"`
	Marked      bool                      `json:"marked" yaml:"marked"`
	Delivered   bool                      `json:"delivered,omitempty" yaml:"delivered,omitempty"`
	Notified    bool                      `json:"notified,omitempty" yaml:"notified,omitempty"`
	Reminded    bool                      `json:"reminded,omitempty" yaml:"reminded,omitempty"`
}

// Tagger marks an event as processed in its calendar.
type Tagger interface {
	Tag(ctx context.Context, ev calendar.Event) error
}

// Reminder adds an email reminder to a prepared event.
type Reminder interface {
	Remind(ctx context.Context, ev calendar.Event) error
}

// Notifier emails drafted briefs to the internal team and notices to an
// administrator. mail.ErrDisabled means the message kind is switched off.
type Notifier interface {
	DeliverBrief(ctx context.Context, b mail.Brief) error
	Notify(ctx context.Context, n mail.Notice) error
}

// Deps are the collaborators of a Service. History, Classifier and Ledger
// are required.
type Deps struct {
	History     history.Source
	HistoryName string
	Classifier  *continuity.Classifier
	Policy      calendar.Policy
	Ledger      ledger.Ledger

	// Drafter is optional; without it no brief is drafted.
	Drafter   brief.Drafter
	DraftName string

	// Tagger is optional; with it processed events are tagged in the calendar.
	Tagger Tagger

	// Reminder is optional; with it prepared events get an email reminder.
	Reminder Reminder

	// Notifier is optional; with it drafted briefs are emailed and
	// ambiguous brands and draft failures are reported.
	Notifier Notifier

	// DryRun resolves without marking, tagging or sending anything.
	DryRun bool

	// Reprocess skips the ledger check, for preparing a previously skipped
	// event by hand.
	Reprocess bool

	Metrics *observability.Metrics
	Tracer  *observability.Tracer
	Logger  logging.Logger
}

// Service prepares calendar events.
type Service struct {
	deps   Deps
	tracer *observability.Tracer
	logger logging.Logger
	newID  func() string
}

// NewService validates deps and creates a Service.
func NewService(deps Deps) (*Service, error) {
	if deps.History == nil {
		return nil, fmt.Errorf("%w: history source is required", pberrors.ErrValidation)
	}
	if deps.Classifier == nil {
		return nil, fmt.Errorf("%w: classifier is required", pberrors.ErrValidation)
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("%w: ledger is required", pberrors.ErrValidation)
	}
	if deps.HistoryName == "" {
		deps.HistoryName = "history"
	}
	if deps.DraftName == "" {
		deps.DraftName = "drafter"
	}

	s := &Service{
		deps:   deps,
		tracer: deps.Tracer,
		logger: deps.Logger,
		newID:  uuid.NewString,
	}
	if s.tracer == nil {
		s.tracer = observability.NewTracer()
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	return s, nil
}

// Prepare runs the pipeline for ev. Errors are returned only for invalid
// events, ledger failures and cancellation; source failures degrade and
// are reported in the Outcome.
func (s *Service) Prepare(ctx context.Context, ev calendar.Event) (Outcome, error) {
	if err := ev.Validate(); err != nil {
		return Outcome{}, err
	}

	runID := s.newID()
	ctx = context.WithValue(ctx, logging.TraceIDKey, runID)
	log := s.logger.WithContext(ctx).With(logging.F("event_id", ev.ID))
	out := Outcome{RunID: runID, EventID: ev.ID, Title: ev.Title}

	ctx, span := s.tracer.StartPrepareSpan(ctx, ev.ID, runID)
	defer span.End()
	spanHelper := observability.NewSpanHelper(span)

	if s.deps.Reprocess {
		log.Debug("Reprocessing, ledger check bypassed")
	} else {
		seen, err := s.deps.Ledger.Seen(ctx, ev.ID)
		if err != nil {
			spanHelper.SetError(err, string(pberrors.ErrCodeSourceUnavailable), true)
			return out, fmt.Errorf("checking ledger for %s: %w", ev.ID, err)
		}
		if seen {
			out.Status = StatusAlreadyProcessed
			spanHelper.SetScreenDecision(string(StatusAlreadyProcessed))
			log.Debug("Event already processed")
			return out, nil
		}
	}

	var meeting calendar.ScreenedMeeting
	switch d := calendar.Screen(ev, s.deps.Policy).(type) {
	case calendar.Skip:
		out.Status = StatusSkipped
		out.Skip = &d
		spanHelper.SetScreenDecision(string(d.Reason))
		s.recordSkip(d.Reason)
		log.Info("Skipping event", logging.F("reason", string(d.Reason)), logging.F("detail", d.Detail))
		if d.Reason == calendar.SkipAmbiguousBrand {
			s.notify(ctx, mail.Notice{
				Kind:    mail.NoticeAmbiguousBrand,
				EventID: ev.ID,
				Title:   ev.Title,
				Start:   ev.Start,
				Detail:  d.Detail,
			}, &out, log)
		}
		if d.Reason != calendar.SkipAlreadyTagged {
			if err := s.finish(ctx, ev, &out, log); err != nil {
				return out, err
			}
		}
		return out, nil
	case calendar.Proceed:
		meeting = d.Meeting
		out.Meeting = &meeting
		spanHelper.SetScreenDecision("proceed")
	}
	log = log.With(logging.F("brand", meeting.Brand))

	records := s.snapshot(ctx, &out, log)
	if err := ctx.Err(); err != nil {
		return out, err
	}

	assembled := s.resolve(ctx, meeting, records, &out)
	out.Context = &assembled

	if s.deps.Drafter != nil {
		if err := s.draft(ctx, meeting, assembled, &out, log); err != nil {
			out.Status = StatusDraftFailed
			spanHelper.SetError(err, string(out.DraftError.Code), out.DraftError.Retryable)
			s.notify(ctx, mail.Notice{
				Kind:    mail.NoticeDraftFailed,
				EventID: ev.ID,
				Title:   meeting.Title,
				Brand:   meeting.Brand,
				Start:   meeting.Start,
				Detail:  out.DraftError.Message,
			}, &out, log)
			return out, nil
		}
		s.deliver(ctx, ev, meeting, assembled, &out, log)
	}

	out.Status = StatusPrepared
	if err := s.finish(ctx, ev, &out, log); err != nil {
		return out, err
	}
	s.remind(ctx, ev, &out, log)
	spanHelper.SetSuccess()
	return out, nil
}

// snapshot loads the history, degrading to an empty snapshot on failure.
func (s *Service) snapshot(ctx context.Context, out *Outcome, log logging.Logger) []continuity.Record {
	ctx, span := s.tracer.StartSnapshotSpan(ctx, s.deps.HistoryName)
	defer span.End()
	h := observability.NewSpanHelper(span)

	records, err := s.deps.History.Snapshot(ctx)
	if err != nil {
		se := pberrors.ClassifySourceError(err, s.deps.HistoryName)
		out.SourceError = newSourceFailure(se)
		h.SetError(err, string(se.Code), out.SourceError.Retryable)
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordSourceError(s.deps.HistoryName, string(se.Code))
		}
		log.Warn("History unavailable, treating meeting as having no history",
			logging.F("source", s.deps.HistoryName),
			logging.F("code", string(se.Code)),
			logging.Err(err))
		return nil
	}

	h.SetRows(len(records))
	h.SetSuccess()
	return records
}

func (s *Service) resolve(ctx context.Context, meeting calendar.ScreenedMeeting, records []continuity.Record, out *Outcome) continuity.Context {
	_, span := s.tracer.StartResolveSpan(ctx, meeting.Brand)
	defer span.End()

	start := time.Now()
	res := s.deps.Classifier.Classify(meeting.Brand, continuity.Meeting{
		Date:      meeting.Start,
		Attendees: meeting.Attendees,
	}, records)
	assembled := continuity.Assemble(meeting.Brand, res)
	elapsed := time.Since(start).Seconds()

	out.SkippedRows = res.Skipped
	verdict := observability.Verdict(res.IsDirectFollowUp, res.HasOtherThreads)
	observability.NewSpanHelper(span).SetResolution(verdict, len(res.Continuity), len(res.Alerts), len(res.Skipped))

	if m := s.deps.Metrics; m != nil {
		m.RecordResolution(verdict, elapsed)
		for _, sk := range res.Skipped {
			m.RecordRowSkipped(string(sk.Reason))
		}
	}
	return assembled
}

func (s *Service) draft(ctx context.Context, meeting calendar.ScreenedMeeting, assembled continuity.Context, out *Outcome, log logging.Logger) error {
	ctx, span := s.tracer.StartDraftSpan(ctx, s.deps.DraftName)
	defer span.End()

	start := time.Now()
	b, err := s.deps.Drafter.Draft(ctx, brief.Request{
		Brand:        meeting.Brand,
		Title:        meeting.Title,
		Start:        meeting.Start,
		InternalTeam: meeting.Attendees.InternalRaw(),
		ExternalTeam: meeting.Attendees.ExternalRaw(),
		Context:      assembled,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		se := pberrors.ClassifySourceError(err, s.deps.DraftName)
		out.DraftError = newSourceFailure(se)
		observability.NewSpanHelper(span).SetError(err, string(se.Code), out.DraftError.Retryable)
		if m := s.deps.Metrics; m != nil {
			m.RecordDraft("error", elapsed)
			m.RecordSourceError(s.deps.DraftName, string(se.Code))
		}
		log.Error("Brief draft failed; event left unprocessed", logging.F("code", string(se.Code)), logging.Err(err))
		return err
	}

	out.Brief = &b
	if m := s.deps.Metrics; m != nil {
		m.RecordDraft("ok", elapsed)
	}
	return nil
}

// finish records ev as processed unless this is a dry run.
func (s *Service) finish(ctx context.Context, ev calendar.Event, out *Outcome, log logging.Logger) error {
	if s.deps.DryRun {
		return nil
	}
	if err := s.deps.Ledger.Mark(ctx, ev.ID); err != nil {
		return fmt.Errorf("marking %s processed: %w", ev.ID, err)
	}
	out.Marked = true

	if s.deps.Tagger != nil {
		if err := s.deps.Tagger.Tag(ctx, ev); err != nil {
			log.Warn("Failed to tag event as processed", logging.Err(err))
		}
	}
	return nil
}

// deliver emails the drafted brief to the event's internal attendees.
func (s *Service) deliver(ctx context.Context, ev calendar.Event, meeting calendar.ScreenedMeeting, assembled continuity.Context, out *Outcome, log logging.Logger) {
	if s.deps.Notifier == nil || s.deps.DryRun || out.Brief == nil {
		return
	}
	recipients := s.recipients(ev)
	if len(recipients) == 0 {
		log.Info("No internal recipients, brief not emailed")
		return
	}

	err := s.deps.Notifier.DeliverBrief(ctx, mail.Brief{
		EventID:    ev.ID,
		Title:      meeting.Title,
		Brand:      meeting.Brand,
		Start:      meeting.Start,
		Recipients: recipients,
		Markdown:   brief.RenderMarkdown(*out.Brief, assembled),
	})
	if s.messageSent("brief", err, log) {
		out.Delivered = true
	}
}

// notify sends n to the administrator. Failures are logged only.
func (s *Service) notify(ctx context.Context, n mail.Notice, out *Outcome, log logging.Logger) {
	if s.deps.Notifier == nil || s.deps.DryRun {
		return
	}
	if s.messageSent(string(n.Kind), s.deps.Notifier.Notify(ctx, n), log) {
		out.Notified = true
	}
}

func (s *Service) messageSent(kind string, err error, log logging.Logger) bool {
	if errors.Is(err, mail.ErrDisabled) {
		log.Debug("Mail disabled", logging.F("kind", kind))
		return false
	}
	status := "sent"
	if err != nil {
		status = "error"
		log.Warn("Failed to send email", logging.F("kind", kind), logging.Err(err))
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordMessage(kind, status)
	}
	return err == nil
}

// remind adds the calendar email reminder to a prepared event.
func (s *Service) remind(ctx context.Context, ev calendar.Event, out *Outcome, log logging.Logger) {
	if s.deps.Reminder == nil || s.deps.DryRun {
		return
	}
	if err := s.deps.Reminder.Remind(ctx, ev); err != nil {
		log.Warn("Failed to set event reminder", logging.Err(err))
		return
	}
	out.Reminded = true
}

// recipients lists the internal, non-excluded attendee emails of ev.
func (s *Service) recipients(ev calendar.Event) []string {
	people := s.deps.Policy.People
	if people == nil || people.IsInternal == nil {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	for _, p := range ev.Participants() {
		email := strings.ToLower(strings.TrimSpace(p.Email))
		if email == "" || !people.IsInternal(email) || people.Excludes(p) {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

func (s *Service) recordSkip(reason calendar.SkipReason) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordSkip(string(reason))
	}
}
