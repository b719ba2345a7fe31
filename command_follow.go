package blog

import (
	"context"

	"github.com/uptrace/bun"
)

type FollowUserMessage struct {
	Actor      Identity
	Username   string
	OnResponse func(*FollowUserResponse)
}

func (e FollowUserMessage) Type() string { return "graph.follow" }

type FollowUserResponse struct {
	Target *User
	// Changed is false when the requested state already held
	Changed bool
}

// FollowUserHandler adds an edge from the actor to Username
type FollowUserHandler struct {
	svc Services
}

func NewFollowUserHandler(svc Services) *FollowUserHandler {
	return &FollowUserHandler{svc: svc}
}

func (h *FollowUserHandler) Execute(ctx context.Context, event FollowUserMessage) error {
	if err := cancelled(ctx, "follow"); err != nil {
		return err
	}
	return changeFollow(ctx, h.svc, event, true)
}

// UnfollowUserHandler removes the edge from the actor to Username
type UnfollowUserHandler struct {
	svc Services
}

func NewUnfollowUserHandler(svc Services) *UnfollowUserHandler {
	return &UnfollowUserHandler{svc: svc}
}

func (h *UnfollowUserHandler) Execute(ctx context.Context, event FollowUserMessage) error {
	if err := cancelled(ctx, "unfollow"); err != nil {
		return err
	}
	return changeFollow(ctx, h.svc, event, false)
}

func changeFollow(ctx context.Context, svc Services, event FollowUserMessage, follow bool) error {
	if err := RequirePermission(event.Actor, PermissionFollow); err != nil {
		return err
	}
	actor := event.Actor.User()

	resp := &FollowUserResponse{}
	err := svc.inTx(ctx, "failed to update follow graph", func(ctx context.Context, tx bun.Tx) error {
		target, err := svc.Repo.Users().GetByUsernameTx(ctx, tx, event.Username)
		if err != nil {
			return err
		}
		resp.Target = target

		following, err := svc.Repo.Follows().IsFollowingTx(ctx, tx, actor.ID, target.ID)
		if err != nil {
			return err
		}

		switch {
		case follow && !following:
			resp.Changed = true
			return svc.Repo.Follows().FollowTx(ctx, tx, actor.ID, target.ID)
		case !follow && following && actor.ID != target.ID:
			resp.Changed = true
			return svc.Repo.Follows().UnfollowTx(ctx, tx, actor.ID, target.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if resp.Changed {
		kind := ActivityEventFollowed
		if !follow {
			kind = ActivityEventUnfollowed
		}
		svc.record(ctx, userActivity(kind, actor, map[string]any{"target": resp.Target.ID.String()}))
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}
	return nil
}
