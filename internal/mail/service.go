package mail

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/chronocap/chronocap-backend/config"
)

// LogStore is the slice of the mail repo the service needs.
type LogStore interface {
	Create(ctx context.Context, userID, typ, token string) (*Log, error)
	GetByToken(ctx context.Context, token string) (*Log, error)
	MarkSent(ctx context.Context, id string, providerMessageID *string) error
	MarkFailed(ctx context.Context, id, lastError string) error
	MarkConfirmed(ctx context.Context, id string) error
}

// UserVerifier flips the account's verified flag once a token is used.
type UserVerifier interface {
	MarkEmailVerified(ctx context.Context, id string) error
}

// Service sends transactional mail through Resend and tracks every send
// in mail_log. Without an API key it runs in simulated mode: the send is
// logged and recorded as SENT, which keeps development flows working.
type Service struct {
	store   LogStore
	users   UserVerifier
	client  *resend.Client
	logger  *slog.Logger
	from    string
	appName string
	baseURL string
}

func NewService(store LogStore, users UserVerifier, logger *slog.Logger, cfg config.MailConfig, baseURL string) *Service {
	s := &Service{
		store:   store,
		users:   users,
		logger:  logger,
		from:    cfg.From,
		appName: cfg.AppName,
		baseURL: baseURL,
	}
	if cfg.ResendAPIKey != "" {
		s.client = resend.NewClient(cfg.ResendAPIKey)
	} else {
		logger.Warn("RESEND_API_KEY not configured; emails will be logged only")
	}
	return s
}

// SendEmailVerification records a PENDING mail_log row, then sends (or
// simulates) the verification mail. The caller treats failures as
// non-fatal; the row keeps the error for inspection.
func (s *Service) SendEmailVerification(ctx context.Context, userID, email string, name *string) error {
	token := newMailToken()
	entry, err := s.store.Create(ctx, userID, TypeEmailVerification, token)
	if err != nil {
		return fmt.Errorf("record mail log: %w", err)
	}

	verifyURL := fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s", s.baseURL, token)
	msg := buildVerificationEmail(s.appName, verifyURL, name)

	if s.client == nil {
		s.logger.Info("simulated verification mail", "to", email, "subject", msg.Subject, "url", verifyURL)
		return s.store.MarkSent(ctx, entry.ID, nil)
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{email},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		s.logger.Error("verification mail send failed", "to", email, "error", err)
		if mkErr := s.store.MarkFailed(ctx, entry.ID, err.Error()); mkErr != nil {
			s.logger.Error("mail log update failed", "mail_log_id", entry.ID, "error", mkErr)
		}
		return err
	}

	s.logger.Info("verification mail sent", "to", email, "provider_message_id", sent.Id)
	return s.store.MarkSent(ctx, entry.ID, &sent.Id)
}

// ConfirmVerification redeems a verification token: marks the account
// verified and the mail_log row CONFIRMED. Unknown tokens surface as
// not-found.
func (s *Service) ConfirmVerification(ctx context.Context, token string) error {
	entry, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return err
	}

	if err := s.users.MarkEmailVerified(ctx, entry.UserID); err != nil {
		return err
	}
	if err := s.store.MarkConfirmed(ctx, entry.ID); err != nil {
		return err
	}
	s.logger.Info("email verified", "user_id", entry.UserID)
	return nil
}

func newMailToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
