package blog

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// commandTimeout bounds every command's unit of work
const commandTimeout = time.Second * 10

// Services bundles the collaborators shared by the command handlers
type Services struct {
	Repo     RepositoryManager
	Tokens   *TokenService
	Mailer   Mailer
	Config   Config
	Activity ActivitySink
	Logger   Logger
	Clock    func() time.Time
}

func (s Services) logger() Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return defLogger{}
}

func (s Services) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s Services) tokenTTL() time.Duration {
	if s.Config != nil && s.Config.GetTokenExpiration() > 0 {
		return s.Config.GetTokenExpiration()
	}
	return DefaultTokenTTL
}

func (s Services) adminEmail() string {
	if s.Config == nil {
		return ""
	}
	return NormalizeEmail(s.Config.GetAdminEmail())
}

func (s Services) link(path string) string {
	if s.Config == nil {
		return path
	}
	return strings.TrimRight(s.Config.GetBaseURL(), "/") + path
}

func (s Services) record(ctx context.Context, event ActivityEvent) {
	if err := normalizeActivitySink(s.Activity).Record(ctx, event); err != nil {
		s.logger().Warn("activity sink error for %s: %v", event.EventType, err)
	}
}

// mail hands msg to the mailer. Delivery problems never fail the command.
func (s Services) mail(ctx context.Context, msg MailMessage) {
	if err := normalizeMailer(s.Mailer).Send(ctx, msg); err != nil {
		s.logger().Error("failed to queue %s email to %s: %v", msg.Template, msg.To, err)
	}
}

// inTx runs f in a transaction bounded by commandTimeout and normalizes
// the returned error.
func (s Services) inTx(ctx context.Context, message string, f func(ctx context.Context, tx bun.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var opts *sql.TxOptions
	if err := s.Repo.RunInTx(ctx, opts, f); err != nil {
		return asRichError(err, message)
	}
	return nil
}

func cancelled(ctx context.Context, operation string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during "+operation,
		)
	default:
		return nil
	}
}

// RequirePermission fails with ErrInsufficientPermissions unless identity
// holds p
func RequirePermission(identity Identity, p Permission) error {
	if identity == nil || !identity.Can(p) {
		return ErrInsufficientPermissions
	}
	return nil
}
