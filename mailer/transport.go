package mailer

import (
	"context"

	"github.com/goliatone/go-blog"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	gomail "github.com/wneessen/go-mail"
)

// Envelope is a fully rendered message ready for delivery
type Envelope struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

// Transport delivers rendered messages. Deliver may block on network IO.
type Transport interface {
	Deliver(ctx context.Context, env Envelope) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, env Envelope) error

// Deliver implements Transport.
func (f TransportFunc) Deliver(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}

// SMTPConfig holds the SMTP server settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseSSL   bool
}

// SMTPTransport sends messages through an SMTP relay using go-mail
type SMTPTransport struct {
	cfg SMTPConfig
}

var _ Transport = (*SMTPTransport)(nil)

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

func (t *SMTPTransport) Deliver(ctx context.Context, env Envelope) error {
	msg := gomail.NewMsg()
	if err := msg.From(env.From); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sender address")
	}
	if err := msg.To(env.To); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid recipient address")
	}
	msg.Subject(env.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, env.Text)
	if env.HTML != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, env.HTML)
	}

	client, err := gomail.NewClient(t.cfg.Host, t.options()...)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create smtp client")
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to deliver email")
	}
	return nil
}

func (t *SMTPTransport) options() []gomail.Option {
	opts := []gomail.Option{}
	if t.cfg.Port > 0 {
		opts = append(opts, gomail.WithPort(t.cfg.Port))
	}
	if t.cfg.UseSSL {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(t.cfg.Username),
			gomail.WithPassword(t.cfg.Password),
		)
	}
	return opts
}

// LogTransport writes messages to a logger instead of delivering them.
// It is used when no mail server is configured.
type LogTransport struct {
	logger blog.Logger
}

var _ Transport = (*LogTransport)(nil)

func NewLogTransport(logger blog.Logger) *LogTransport {
	if logger == nil {
		logger = blog.NopLogger{}
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Deliver(_ context.Context, env Envelope) error {
	t.logger.Info("mail to=%s subject=%q", env.To, env.Subject)
	t.logger.Debug("mail payload: %s", print.MaybePrettyJSON(env))
	return nil
}
