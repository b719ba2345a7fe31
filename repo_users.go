package blog

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the account store
type Users interface {
	repository.Repository[*User]

	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)

	EmailExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error)
	UsernameExistsTx(ctx context.Context, tx bun.IDB, username string) (bool, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	Ping(ctx context.Context, id uuid.UUID, at time.Time) error
	PingTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error

	IDs(ctx context.Context) ([]uuid.UUID, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository returns the bun backed Users store
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})
	return &users{Repository: repo, db: db}
}

// FindByID loads the user with its role
func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByID(ctx, id.String())
}

func (a *users) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id, criteria...)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (*User, error) {
	criteria = append([]repository.SelectCriteria{repository.SelectRelation("Role")}, criteria...)
	user, err := a.Repository.GetByIDTx(ctx, tx, id, criteria...)
	if err != nil {
		return nil, userError(err, "failed to query user")
	}
	return user, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.getBy(ctx, tx, "email", NormalizeEmail(email))
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.GetByUsernameTx(ctx, a.db, username)
}

func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	return a.getBy(ctx, tx, "username", strings.TrimSpace(username))
}

func (a *users) getBy(ctx context.Context, tx bun.IDB, column, value string) (*User, error) {
	user, err := a.GetTx(ctx, tx,
		repository.SelectBy(column, "=", value),
		repository.SelectRelation("Role"),
	)
	if err != nil {
		return nil, userError(err, "failed to query user")
	}
	return user, nil
}

func (a *users) EmailExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	return a.exists(ctx, tx, "email", NormalizeEmail(email))
}

func (a *users) UsernameExistsTx(ctx context.Context, tx bun.IDB, username string) (bool, error) {
	return a.exists(ctx, tx, "username", strings.TrimSpace(username))
}

func (a *users) exists(ctx context.Context, tx bun.IDB, column, value string) (bool, error) {
	n, err := a.CountTx(ctx, tx, repository.SelectBy(column, "=", value))
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check "+column)
	}
	return n > 0, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	var out *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		out, err = a.RegisterTx(ctx, tx, user)
		return err
	})
	return out, err
}

// RegisterTx inserts user together with its reflexive follow edge. Call
// it inside a transaction so both rows land or neither does.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user.MemberSince.IsZero() {
		user.MemberSince = time.Now().UTC()
	}
	if user.LastSeen.IsZero() {
		user.LastSeen = user.MemberSince
	}
	if user.AvatarHash == "" {
		user.AvatarHash = AvatarHash(user.Email)
	}

	user, err := a.CreateTx(ctx, tx, user)
	if err != nil {
		return nil, userError(err, "failed to insert user")
	}

	edge := &Follow{
		FollowerID: user.ID,
		FollowedID: user.ID,
		Timestamp:  user.MemberSince,
	}
	if _, err := tx.NewInsert().Model(edge).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert self follow")
	}

	return user, nil
}

func (a *users) Update(ctx context.Context, user *User, criteria ...repository.UpdateCriteria) (*User, error) {
	return a.UpdateTx(ctx, a.db, user, criteria...)
}

// UpdateTx writes user, restricted to the columns named by a
// repository.UpdateColumns criteria when one is given
func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, user *User, criteria ...repository.UpdateCriteria) (*User, error) {
	out, err := a.Repository.UpdateTx(ctx, tx, user, criteria...)
	if err != nil {
		return nil, userError(err, "failed to update user")
	}
	return out, nil
}

func (a *users) Ping(ctx context.Context, id uuid.UUID, at time.Time) error {
	return a.PingTx(ctx, a.db, id, at)
}

// PingTx refreshes last_seen
func (a *users) PingTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("last_seen = ?", at.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update last seen")
	}
	return nil
}

func (a *users) Delete(ctx context.Context, user *User) error {
	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return a.DeleteTx(ctx, tx, user)
	})
}

// DeleteTx removes the user and every row that references it: follow
// edges in both directions, comments on and by the user, and posts.
func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, user *User) error {
	id := user.ID
	if _, err := a.GetByIDTx(ctx, tx, id.String()); err != nil {
		return err
	}

	_, err := tx.NewDelete().
		Model((*Follow)(nil)).
		Where("follower_id = ?", id).
		WhereOr("followed_id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete follow edges")
	}

	postIDs := tx.NewSelect().Model((*Post)(nil)).Column("id").Where("author_id = ?", id)
	_, err = tx.NewDelete().
		Model((*Comment)(nil)).
		Where("author_id = ?", id).
		WhereOr("post_id IN (?)", postIDs).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete comments")
	}

	if _, err = tx.NewDelete().Model((*Post)(nil)).Where("author_id = ?", id).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete posts")
	}

	if err := a.Repository.DeleteTx(ctx, tx, user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
	}
	return nil
}

func (a *users) IDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := a.db.NewSelect().Model((*User)(nil)).Column("id").Scan(ctx, &ids); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list user ids")
	}
	return ids, nil
}

// userError maps repository failures onto the blog error categories
func userError(err error, message string) error {
	switch {
	case repository.IsRecordNotFound(err),
		goerrors.IsCategory(err, repository.CategoryDatabaseExpectedCount):
		return NotFound("user")
	case repository.IsDuplicatedKey(err), isUniqueViolation(err):
		return userConflict(err)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}

func userConflict(err error) error {
	if strings.Contains(err.Error(), "username") {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}
