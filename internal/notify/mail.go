package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	netmail "net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

// Recipient is a user who opted into notification mail.
type Recipient struct {
	Name  string
	Email string
}

// RecipientSource lists the users to notify.
type RecipientSource interface {
	ListNotificationRecipients(ctx context.Context) ([]Recipient, error)
}

// Sender delivers one rendered message to one recipient.
type Sender interface {
	Send(ctx context.Context, to Recipient, msg Message) error
}

// SMTPConfig describes the relay used for notification mail.
type SMTPConfig struct {
	Addr     string
	From     string
	FromName string
	Username string
	Password string
}

// SMTPSender sends base64 encoded UTF-8 plain-text mail through an SMTP relay.
type SMTPSender struct {
	cfg  SMTPConfig
	host string
	port int
	now  func() time.Time
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewSMTPSender validates cfg and returns a sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	host, rawPort, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp addr %q: %w", cfg.Addr, err)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp port %q: %w", rawPort, err)
	}
	if _, err := netmail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("notify: smtp from %q: %w", cfg.From, err)
	}
	if cfg.FromName == "" {
		cfg.FromName = "会議室予約システム"
	}
	var d net.Dialer
	return &SMTPSender{cfg: cfg, host: host, port: port, now: time.Now, dial: d.DialContext}, nil
}

// Send writes msg to to.Email. The SMTP conversation is abandoned once ctx
// is done.
func (s *SMTPSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.compose(to, msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(smtpTimeout),
		mail.WithDialContextFunc(s.dialFor(ctx)),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("notify: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("notify: smtp send to %s: %w", to.Email, errors.Join(ctxErr, err))
		}
		return fmt.Errorf("notify: smtp send to %s: %w", to.Email, err)
	}
	return nil
}

const smtpTimeout = 30 * time.Second

// dialFor bounds every connection by ctx.
func (s *SMTPSender) dialFor(ctx context.Context) mail.DialContextFunc {
	return func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		conn, err := s.dial(dialCtx, network, addr)
		if err != nil {
			return nil, err
		}
		context.AfterFunc(ctx, func() { _ = conn.Close() })
		return conn, nil
	}
}

func (s *SMTPSender) compose(to Recipient, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg(mail.WithCharset(mail.CharsetUTF8), mail.WithEncoding(mail.EncodingB64))
	if err := m.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return nil, fmt.Errorf("notify: from address: %w", err)
	}
	if err := m.AddToFormat(to.Name, to.Email); err != nil {
		return nil, fmt.Errorf("notify: recipient %q: %w", to.Email, err)
	}
	if err := m.ReplyTo(s.cfg.From); err != nil {
		return nil, fmt.Errorf("notify: reply-to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(s.now())
	m.SetMessageIDWithValue(uuid.NewString() + "@" + domainOf(s.cfg.From))
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

func domainOf(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 {
		return address[at+1:]
	}
	return "localhost"
}

// MailTransport renders an event and mails every recipient.
type MailTransport struct {
	recipients RecipientSource
	sender     Sender
	appURL     string
	logger     *slog.Logger
}

// NewMailTransport builds a transport. appURL is appended to each body.
func NewMailTransport(recipients RecipientSource, sender Sender, appURL string, logger *slog.Logger) *MailTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailTransport{
		recipients: recipients,
		sender:     sender,
		appURL:     appURL,
		logger:     logger.With("component", "notify", "transport", "smtp"),
	}
}

// Name implements Transport.
func (m *MailTransport) Name() string { return "smtp" }

// Deliver mails e to every recipient. It fails only when no recipient could
// be reached.
func (m *MailTransport) Deliver(ctx context.Context, e Event) error {
	recipients, err := m.recipients.ListNotificationRecipients(ctx)
	if err != nil {
		return fmt.Errorf("notify: list recipients: %w", err)
	}
	if len(recipients) == 0 {
		m.logger.DebugContext(ctx, "no notification recipients", "event_id", e.ID)
		return nil
	}

	msg, err := Render(e, m.appURL)
	if err != nil {
		return err
	}

	var failures []error
	for _, r := range recipients {
		if err := m.sender.Send(ctx, r, msg); err != nil {
			failures = append(failures, err)
		}
	}

	sent := len(recipients) - len(failures)
	logger := m.logger.With("event_id", e.ID, "action", e.Action, "sent", sent, "failed", len(failures))
	if sent == 0 {
		return fmt.Errorf("notify: all %d deliveries failed: %w", len(failures), errors.Join(failures...))
	}
	if len(failures) > 0 {
		logger.WarnContext(ctx, "notification partially delivered", "error", errors.Join(failures...))
		return nil
	}
	logger.InfoContext(ctx, "notification mailed")
	return nil
}
