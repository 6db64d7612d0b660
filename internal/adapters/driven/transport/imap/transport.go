// Package imap provides a mail transport adapter for IMAP mailboxes with
// SMTP submission.
package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"sort"
	"strconv"
	"sync"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/custodia-labs/mailpilot/internal/adapters/driven/transport/mime"
	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// Ensure Transport implements the interface.
var _ driven.MailTransport = (*Transport)(nil)

// Config holds the IMAP and SMTP endpoints for one account.
type Config struct {
	IMAPHost string
	IMAPPort int
	SMTPHost string
	SMTPPort int
	Username string
	Password string

	// From is the sender address for outgoing mail. Defaults to Username.
	From string

	// Mailbox is the folder to monitor. Defaults to INBOX.
	Mailbox string

	// InsecureNoTLS disables TLS on the IMAP connection. Test use only.
	InsecureNoTLS bool
}

// Transport is an IMAP/SMTP implementation of driven.MailTransport. One
// IMAP session is kept open and re-established on demand.
type Transport struct {
	cfg Config

	mu     sync.Mutex
	client *imapclient.Client
}

// NewTransport creates an IMAP transport. The connection is established
// lazily on first use.
func NewTransport(cfg Config) *Transport {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.IMAPPort == 0 {
		cfg.IMAPPort = 993
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 465
	}
	return &Transport{cfg: cfg}
}

// ensureClient returns a connected, selected IMAP client, reconnecting if
// the previous session died. Caller must hold t.mu.
func (t *Transport) ensureClient() (*imapclient.Client, error) {
	if t.client != nil && t.client.State() == imap.ConnStateSelected {
		return t.client, nil
	}
	if t.client != nil {
		_ = t.client.Close()
		t.client = nil
	}

	address := net.JoinHostPort(t.cfg.IMAPHost, strconv.Itoa(t.cfg.IMAPPort))

	var (
		client *imapclient.Client
		err    error
	)
	if t.cfg.InsecureNoTLS {
		client, err = imapclient.DialInsecure(address, nil)
	} else {
		client, err = imapclient.DialTLS(address, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: imap dial: %v", domain.ErrTransportUnavailable, err)
	}

	if err := client.Login(t.cfg.Username, t.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := client.Select(t.cfg.Mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("imap select %s: %w", t.cfg.Mailbox, err)
	}

	t.client = client
	return client, nil
}

// FetchUnread returns unseen messages, oldest first.
func (t *Transport) FetchUnread(ctx context.Context) ([]domain.Email, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	client, err := t.ensureClient()
	if err != nil {
		return nil, err
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	uids := searchData.AllUIDs()
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return t.fetchUIDs(ctx, client, uids)
}

// FetchRecent returns up to limit most-recent messages, newest first.
func (t *Transport) FetchRecent(ctx context.Context, limit int) ([]domain.Email, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	client, err := t.ensureClient()
	if err != nil {
		return nil, err
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	uids := searchData.AllUIDs()
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}
	return t.fetchUIDs(ctx, client, uids)
}

// FetchByID returns the full message for a UID.
func (t *Transport) FetchByID(ctx context.Context, id string) (*domain.Email, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: bad message id %q", domain.ErrInvalidInput, id)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	client, cerr := t.ensureClient()
	if cerr != nil {
		return nil, cerr
	}

	emails, err := t.fetchUIDs(ctx, client, []imap.UID{imap.UID(uid)})
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, domain.ErrNotFound
	}
	return &emails[0], nil
}

// fetchUIDs fetches the given messages with a Peek body section so the
// unread state survives the fetch. Caller must hold t.mu.
func (t *Transport) fetchUIDs(ctx context.Context, client *imapclient.Client, uids []imap.UID) ([]domain.Email, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		Flags:       true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var emails []domain.Email
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		email, err := collectMessage(msg)
		if err != nil {
			logger.Warn("Parsing message failed: %v", err)
			continue
		}
		emails = append(emails, email)
	}
	return emails, nil
}

// MarkRead adds the \Seen flag to a message.
func (t *Transport) MarkRead(_ context.Context, id string) error {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return fmt.Errorf("%w: bad message id %q", domain.ErrInvalidInput, id)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	client, cerr := t.ensureClient()
	if cerr != nil {
		return cerr
	}

	storeCmd := client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Flags:  []imap.Flag{imap.FlagSeen},
		Silent: true,
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("imap store \\Seen on %s: %w", id, err)
	}
	return nil
}

// Send submits an outgoing message over SMTP with implicit TLS.
func (t *Transport) Send(_ context.Context, msg domain.OutgoingMessage) error {
	raw, err := mime.Build(t.cfg.From, msg)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	host := t.cfg.SMTPHost
	addr := net.JoinHostPort(host, strconv.Itoa(t.cfg.SMTPPort))

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("%w: smtp dial: %v", domain.ErrTransportUnavailable, err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(t.cfg.From); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}

// Ping verifies the IMAP session is alive.
func (t *Transport) Ping(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	client, err := t.ensureClient()
	if err != nil {
		return err
	}
	if err := client.Noop().Wait(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransportUnavailable, err)
	}
	return nil
}

// Close logs out of the IMAP session.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil
	}
	err := t.client.Logout().Wait()
	t.client = nil
	return err
}
