package blog

import (
	"context"
	"fmt"
	"time"
)

// Logger is the logging contract used across the package
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the options the domain core needs
type Config interface {
	GetSecretKey() string
	GetTokenExpiration() time.Duration
	GetAdminEmail() string
	GetBaseURL() string
	GetPostsPerPage() int
	GetFollowersPerPage() int
	GetCommentsPerPage() int
}

// MailMessage describes a templated email. Template names a template
// pair under the mailer templates directory, e.g. "auth/email/confirm".
type MailMessage struct {
	To       string
	Subject  string
	Template string
	Params   map[string]any
}

// Mailer hands a message off for delivery. Implementations must not
// block the caller on network IO.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, msg MailMessage) error

// Send implements Mailer.
func (f MailerFunc) Send(ctx context.Context, msg MailMessage) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, MailMessage) error {
	return nil
}

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] BLOG "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] BLOG "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] BLOG "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] BLOG "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// NopLogger discards everything, handy in tests.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
