package blog

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Roles is the role store
type Roles interface {
	GetByName(ctx context.Context, name string) (*Role, error)
	GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)
	Default(ctx context.Context) (*Role, error)
	DefaultTx(ctx context.Context, tx bun.IDB) (*Role, error)
	ByPermissionsTx(ctx context.Context, tx bun.IDB, perms Permission) (*Role, error)
	UpsertTx(ctx context.Context, tx bun.IDB, role *Role) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
}

type roles struct {
	db *bun.DB
}

var _ Roles = (*roles)(nil)

// NewRolesRepository returns the bun backed Roles store
func NewRolesRepository(db *bun.DB) Roles {
	return &roles{db: db}
}

func (r *roles) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.GetByNameTx(ctx, r.db, name)
}

func (r *roles) GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	role := &Role{}
	if err := tx.NewSelect().Model(role).Where("name = ?", name).Limit(1).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "role")
	}
	return role, nil
}

func (r *roles) Default(ctx context.Context) (*Role, error) {
	return r.DefaultTx(ctx, r.db)
}

func (r *roles) DefaultTx(ctx context.Context, tx bun.IDB) (*Role, error) {
	role := &Role{}
	if err := tx.NewSelect().Model(role).Where("is_default = ?", true).OrderExpr("id ASC").Limit(1).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "default role")
	}
	return role, nil
}

func (r *roles) ByPermissionsTx(ctx context.Context, tx bun.IDB, perms Permission) (*Role, error) {
	role := &Role{}
	if err := tx.NewSelect().Model(role).Where("permissions = ?", perms).OrderExpr("id ASC").Limit(1).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "role")
	}
	return role, nil
}

// UpsertTx creates role or updates the row with the same name
func (r *roles) UpsertTx(ctx context.Context, tx bun.IDB, role *Role) (*Role, error) {
	existing, err := r.GetByNameTx(ctx, tx, role.Name)
	if err != nil && !goerrors.IsNotFound(err) {
		return nil, err
	}

	if existing == nil {
		if _, err := tx.NewInsert().Model(role).Exec(ctx); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert role")
		}
		return role, nil
	}

	existing.Permissions = role.Permissions
	existing.Default = role.Default
	_, err = tx.NewUpdate().
		Model(existing).
		Column("permissions", "is_default").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update role")
	}
	return existing, nil
}

func (r *roles) List(ctx context.Context) ([]*Role, error) {
	var records []*Role
	if err := r.db.NewSelect().Model(&records).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list roles")
	}
	return records, nil
}
