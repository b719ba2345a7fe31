package blog

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Roles() Roles
	Follows() Follows
	Posts() Posts
	Comments() Comments
}

type mngr struct {
	db       *bun.DB
	users    Users
	roles    Roles
	follows  Follows
	posts    Posts
	comments Comments
}

// NewRepositoryManager builds every repository on top of db
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		users:    NewUsersRepository(db),
		roles:    NewRolesRepository(db),
		follows:  NewFollowsRepository(db),
		posts:    NewPostsRepository(db),
		comments: NewCommentsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository database should be initialized")
	}
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}
	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}
	if m.follows == nil {
		return errors.New("repository follows should be initialized")
	}
	if m.posts == nil {
		return errors.New("repository posts should be initialized")
	}
	if m.comments == nil {
		return errors.New("repository comments should be initialized")
	}
	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Roles() Roles {
	return m.roles
}

func (m mngr) Follows() Follows {
	return m.follows
}

func (m mngr) Posts() Posts {
	return m.posts
}

func (m mngr) Comments() Comments {
	return m.comments
}

// notFoundOr maps a missing record to a not found error for resource and
// wraps anything else as internal.
func notFoundOr(err error, resource string) error {
	if err == nil {
		return nil
	}
	if repository.IsRecordNotFound(err) {
		return NotFound(resource)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query "+resource)
}

// isUniqueViolation recognizes unique and primary key violations from
// sqlite and postgres drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
