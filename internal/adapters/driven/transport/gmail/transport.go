// Package gmail provides a mail transport adapter backed by the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/custodia-labs/mailpilot/internal/adapters/driven/transport/mime"
	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// Ensure Transport implements the interface.
var _ driven.MailTransport = (*Transport)(nil)

// gmailUser is the special "authenticated user" id the API expects.
const gmailUser = "me"

// unreadQuery selects the messages a poll cycle considers.
const unreadQuery = "is:unread in:inbox"

// Transport is a Gmail API implementation of driven.MailTransport. All
// requests go through a shared rate limiter.
type Transport struct {
	service *gmail.Service
	limiter *RateLimiter
	from    string
}

// NewTransport creates a Gmail transport using the provided token source.
// The sender address is resolved from the authenticated profile on first use
// when from is empty.
func NewTransport(ctx context.Context, ts oauth2.TokenSource, from string) (*Transport, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Transport{
		service: service,
		limiter: NewRateLimiter(DefaultRateLimit),
		from:    from,
	}, nil
}

// FetchUnread returns unread inbox messages, oldest first.
func (t *Transport) FetchUnread(ctx context.Context) ([]domain.Email, error) {
	return t.fetchByQuery(ctx, unreadQuery, 0)
}

// FetchRecent returns up to limit most-recent inbox messages, newest first.
func (t *Transport) FetchRecent(ctx context.Context, limit int) ([]domain.Email, error) {
	return t.fetchByQuery(ctx, "in:inbox", int64(limit))
}

func (t *Transport) fetchByQuery(ctx context.Context, query string, limit int64) ([]domain.Email, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	call := t.service.Users.Messages.List(gmailUser).Q(query).Context(ctx)
	if limit > 0 {
		call = call.MaxResults(limit)
	}
	listed, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	emails := make([]domain.Email, 0, len(listed.Messages))
	for _, ref := range listed.Messages {
		email, err := t.FetchByID(ctx, ref.Id)
		if err != nil {
			logger.Warn("Fetching message %s failed: %v", ref.Id, err)
			continue
		}
		emails = append(emails, *email)
	}

	// The API lists newest first; unread processing wants oldest first.
	if query == unreadQuery {
		for i, j := 0, len(emails)-1; i < j; i, j = i+1, j-1 {
			emails[i], emails[j] = emails[j], emails[i]
		}
	}
	return emails, nil
}

// FetchByID returns the full message including body and attachment data.
func (t *Transport) FetchByID(ctx context.Context, id string) (*domain.Email, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	msg, err := t.service.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	email, refs := messageToEmail(msg)
	for _, ref := range refs {
		data, err := t.fetchAttachment(ctx, id, ref.attachmentID)
		if err != nil {
			logger.Warn("Fetching attachment %s of %s failed: %v", ref.filename, id, err)
			continue
		}
		email.Attachments = append(email.Attachments, domain.Attachment{
			Filename:  ref.filename,
			MIMEType:  ref.mimeType,
			Data:      data,
			ContentID: ref.contentID,
			Inline:    ref.inline,
		})
	}
	return &email, nil
}

func (t *Transport) fetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	att, err := t.service.Users.Messages.Attachments.Get(gmailUser, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return base64.URLEncoding.DecodeString(att.Data)
}

// MarkRead clears the UNREAD label.
func (t *Transport) MarkRead(ctx context.Context, id string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := t.service.Users.Messages.Modify(gmailUser, id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("remove UNREAD label from %s: %w", id, err)
	}
	return nil
}

// Send dispatches an outgoing message via the Gmail API.
func (t *Transport) Send(ctx context.Context, msg domain.OutgoingMessage) error {
	from, err := t.senderAddress(ctx)
	if err != nil {
		return err
	}

	raw, err := mime.Build(from, msg)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = t.service.Users.Messages.Send(gmailUser, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Ping verifies connectivity with a profile request.
func (t *Transport) Ping(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := t.service.Users.GetProfile(gmailUser).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransportUnavailable, err)
	}
	return nil
}

// Close releases resources.
func (t *Transport) Close() error {
	return nil
}

// senderAddress resolves the configured or profile From address.
func (t *Transport) senderAddress(ctx context.Context) (string, error) {
	if t.from != "" {
		if addr, err := mail.ParseAddress(t.from); err == nil {
			return addr.Address, nil
		}
		return t.from, nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	profile, err := t.service.Users.GetProfile(gmailUser).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("resolve sender address: %w", err)
	}
	t.from = profile.EmailAddress
	return t.from, nil
}
