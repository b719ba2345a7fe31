package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-blog"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultTimeout bounds a single delivery
const DefaultTimeout = time.Second * 30

// AsyncMailer renders messages on the caller's goroutine and delivers
// them on a background goroutine. Delivery failures are logged and never
// reach the caller. There are no retries.
type AsyncMailer struct {
	transport Transport
	renderer  *Renderer
	sender    string
	prefix    string
	timeout   time.Duration
	logger    blog.Logger
	inflight  sync.WaitGroup
}

var _ blog.Mailer = (*AsyncMailer)(nil)

type Option func(*AsyncMailer)

// WithSender sets the From address
func WithSender(sender string) Option {
	return func(m *AsyncMailer) {
		m.sender = sender
	}
}

// WithSubjectPrefix is prepended to every subject, e.g. "[Blog] "
func WithSubjectPrefix(prefix string) Option {
	return func(m *AsyncMailer) {
		m.prefix = prefix
	}
}

func WithTimeout(d time.Duration) Option {
	return func(m *AsyncMailer) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithRenderer(r *Renderer) Option {
	return func(m *AsyncMailer) {
		if r != nil {
			m.renderer = r
		}
	}
}

func WithLogger(l blog.Logger) Option {
	return func(m *AsyncMailer) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates an AsyncMailer delivering through transport. Without
// WithRenderer the embedded templates are used.
func New(transport Transport, opts ...Option) (*AsyncMailer, error) {
	if transport == nil {
		return nil, goerrors.New("mail transport is required", goerrors.CategoryInternal)
	}

	m := &AsyncMailer{
		transport: transport,
		timeout:   DefaultTimeout,
		logger:    blog.NopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.renderer == nil {
		r, err := NewRenderer(nil)
		if err != nil {
			return nil, err
		}
		m.renderer = r
	}
	return m, nil
}

// Send renders msg and queues it for delivery. Only rendering problems
// are returned.
func (m *AsyncMailer) Send(_ context.Context, msg blog.MailMessage) error {
	env, err := m.compose(msg)
	if err != nil {
		return err
	}

	m.inflight.Add(1)
	go m.deliver(env)
	return nil
}

func (m *AsyncMailer) compose(msg blog.MailMessage) (Envelope, error) {
	if msg.To == "" {
		return Envelope{}, goerrors.New("mail recipient is required", goerrors.CategoryValidation)
	}

	text, html, err := m.renderer.Render(msg.Template, msg.Params)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		From:    m.sender,
		To:      msg.To,
		Subject: m.prefix + msg.Subject,
		Text:    text,
		HTML:    html,
	}, nil
}

// deliver runs detached from the request, on its own context.
func (m *AsyncMailer) deliver(env Envelope) {
	defer m.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	if err := m.transport.Deliver(ctx, env); err != nil {
		m.logger.Error("failed to deliver email to %s subject=%q: %v", env.To, env.Subject, err)
		return
	}
	m.logger.Debug("delivered email to %s subject=%q", env.To, env.Subject)
}

// Wait blocks until queued deliveries finish or ctx is done.
func (m *AsyncMailer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
