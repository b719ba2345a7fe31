package blog

import (
	"context"

	"github.com/uptrace/bun"
)

type DeployMessage struct {
	// CreateSchema creates missing tables and indexes first
	CreateSchema bool
	OnResponse   func(*DeployResponse)
}

func (e DeployMessage) Type() string { return "blog.deploy" }

type DeployResponse struct {
	Roles       []*Role
	SelfFollows int
}

// DeployHandler brings a database to a runnable state: roles exist with
// their canonical permissions and every user follows itself. Running it
// again changes nothing.
type DeployHandler struct {
	svc   Services
	db    bun.IDB
	roles []RoleDefinition
}

// NewDeployHandler uses db only for schema creation, everything else goes
// through the repositories.
func NewDeployHandler(svc Services, db bun.IDB) *DeployHandler {
	return &DeployHandler{svc: svc, db: db, roles: DefaultRoles}
}

// WithRoles overrides the role table
func (h *DeployHandler) WithRoles(roles []RoleDefinition) *DeployHandler {
	if len(roles) > 0 {
		h.roles = roles
	}
	return h
}

func (h *DeployHandler) Execute(ctx context.Context, event DeployMessage) error {
	if err := cancelled(ctx, "deploy"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *DeployHandler) execute(ctx context.Context, event DeployMessage) error {
	if event.CreateSchema && h.db != nil {
		if err := CreateSchema(ctx, h.db); err != nil {
			return err
		}
	}

	resp := &DeployResponse{}
	err := h.svc.inTx(ctx, "deploy failed", func(ctx context.Context, tx bun.Tx) error {
		var err error
		resp.Roles, err = InsertRolesTx(ctx, tx, h.svc.Repo.Roles(), h.roles)
		if err != nil {
			return err
		}

		resp.SelfFollows, err = h.svc.Repo.Follows().AddSelfFollowsTx(ctx, tx)
		return err
	})
	if err != nil {
		return err
	}

	h.svc.logger().Info("deploy complete: %d roles, %d self follows added", len(resp.Roles), resp.SelfFollows)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}
	return nil
}

// InsertRolesTx upserts every definition by name
func InsertRolesTx(ctx context.Context, tx bun.IDB, repo Roles, defs []RoleDefinition) ([]*Role, error) {
	out := make([]*Role, 0, len(defs))
	for _, def := range defs {
		role, err := repo.UpsertTx(ctx, tx, &Role{
			Name:        def.Name,
			Permissions: def.Permissions,
			Default:     def.Default,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, nil
}
