// Package mail composes the emails sent around brief preparation: the
// brief itself for the internal team, and notices for an administrator when
// an event needs a person's attention.
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"
)

// ErrDisabled is returned by senders asked to send a kind of message they
// are not configured for.
var ErrDisabled = errors.New("mail disabled")

// Brief is a drafted brief addressed to a meeting's internal attendees.
type Brief struct {
	EventID    string
	Title      string
	Brand      string
	Start      time.Time
	Recipients []string
	Markdown   string
}

// NoticeKind says why an administrator is notified.
type NoticeKind string

const (
	NoticeAmbiguousBrand NoticeKind = "ambiguous_brand"
	NoticeDraftFailed    NoticeKind = "draft_failed"
)

// Notice asks an administrator to look at an event.
type Notice struct {
	Kind    NoticeKind
	EventID string
	Title   string
	Brand   string
	Start   time.Time
	Detail  string
}

// Message is a composed plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

const startLayout = "Mon 2 Jan 2006 15:04 MST"

// BriefMessage composes the email carrying b.
func BriefMessage(from string, b Brief) Message {
	var body strings.Builder
	body.WriteString("Hello team,\n\nHere is the brief for your upcoming meeting.\n\n")
	fmt.Fprintf(&body, "Event:     %s\n", b.Title)
	fmt.Fprintf(&body, "Brand:     %s\n", b.Brand)
	fmt.Fprintf(&body, "Scheduled: %s\n\n", b.Start.Format(startLayout))
	body.WriteString(strings.TrimSpace(b.Markdown))
	body.WriteString("\n\n-- \nprepbrief\n")

	return Message{
		From:    from,
		To:      b.Recipients,
		Subject: fmt.Sprintf("Pre-meeting brief: %s with %s", b.Title, b.Brand),
		Body:    body.String(),
	}
}

// NoticeMessage composes the email carrying n. The sender gets a copy.
func NoticeMessage(from, admin string, n Notice) Message {
	var subject, intro, next string
	switch n.Kind {
	case NoticeAmbiguousBrand:
		subject = "Action required: brand unclear for " + n.Title
		intro = "The brand for this meeting could not be determined, so no brief was prepared."
		next = "Invite a brand-specific attendee, or prepare it by hand with 'prepbrief prep --brand'."
	case NoticeDraftFailed:
		subject = "Brief draft failed: " + n.Title
		intro = "Drafting the brief for this meeting failed."
		next = "The event was left unprocessed and is retried on the next run."
	default:
		subject = "prepbrief notice: " + n.Title
	}

	var body strings.Builder
	if intro != "" {
		body.WriteString(intro + "\n\n")
	}
	fmt.Fprintf(&body, "Event:     %s (%s)\n", n.Title, n.EventID)
	if n.Brand != "" {
		fmt.Fprintf(&body, "Brand:     %s\n", n.Brand)
	}
	fmt.Fprintf(&body, "Scheduled: %s\n", n.Start.Format(startLayout))
	if n.Detail != "" {
		fmt.Fprintf(&body, "Detail:    %s\n", n.Detail)
	}
	if next != "" {
		body.WriteString("\n" + next + "\n")
	}

	to := []string{admin}
	if from != "" && !strings.EqualFold(from, admin) {
		to = append(to, from)
	}
	return Message{From: from, To: to, Subject: subject, Body: body.String()}
}

// RFC822 renders m as an RFC 822 message with CRLF line endings.
func (m Message) RFC822() []byte {
	var buf bytes.Buffer
	header := func(k, v string) {
		buf.WriteString(k + ": " + v + "\r\n")
	}
	if m.From != "" {
		header("From", m.From)
	}
	header("To", strings.Join(m.To, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")

	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return buf.Bytes()
}
