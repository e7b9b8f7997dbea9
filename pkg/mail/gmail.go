package mail

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// NewGmailService creates a Gmail API client allowed to send mail from a
// service account or authorized-user credentials file.
func NewGmailService(ctx context.Context, credentialsFile string) (*gmail.Service, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("mail credentials file is required")
	}
	svc, err := gmail.NewService(ctx, option.WithCredentialsFile(credentialsFile), option.WithScopes(gmail.GmailSendScope))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

// GmailSender sends briefs and notices as the authenticated user.
type GmailSender struct {
	Service *gmail.Service

	// From is the sending address, normally the agent account.
	From string

	// Admin receives notices. Empty disables them.
	Admin string

	// Briefs enables brief delivery.
	Briefs bool
}

// DeliverBrief emails b to its recipients.
func (s *GmailSender) DeliverBrief(ctx context.Context, b Brief) error {
	if !s.Briefs || len(b.Recipients) == 0 {
		return ErrDisabled
	}
	if err := s.send(ctx, BriefMessage(s.From, b)); err != nil {
		return fmt.Errorf("send brief for %s: %w", b.EventID, err)
	}
	return nil
}

// Notify emails n to the administrator.
func (s *GmailSender) Notify(ctx context.Context, n Notice) error {
	if s.Admin == "" {
		return ErrDisabled
	}
	if err := s.send(ctx, NoticeMessage(s.From, s.Admin, n)); err != nil {
		return fmt.Errorf("send %s notice for %s: %w", n.Kind, n.EventID, err)
	}
	return nil
}

func (s *GmailSender) send(ctx context.Context, m Message) error {
	raw := base64.URLEncoding.EncodeToString(m.RFC822())
	_, err := s.Service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	return err
}
