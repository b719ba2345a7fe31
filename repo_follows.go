package blog

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Follows is the follow graph store. Edges are directed, follower
// follows followed. Every user holds a reflexive edge.
type Follows interface {
	Follow(ctx context.Context, followerID, followedID uuid.UUID) error
	FollowTx(ctx context.Context, tx bun.IDB, followerID, followedID uuid.UUID) error
	Unfollow(ctx context.Context, followerID, followedID uuid.UUID) error
	UnfollowTx(ctx context.Context, tx bun.IDB, followerID, followedID uuid.UUID) error

	IsFollowing(ctx context.Context, followerID, followedID uuid.UUID) (bool, error)
	IsFollowingTx(ctx context.Context, tx bun.IDB, followerID, followedID uuid.UUID) (bool, error)
	IsFollowedBy(ctx context.Context, userID, followerID uuid.UUID) (bool, error)

	Followers(ctx context.Context, userID uuid.UUID, page Page) (PageResult[*Follow], error)
	Followed(ctx context.Context, userID uuid.UUID, page Page) (PageResult[*Follow], error)
	CountFollowers(ctx context.Context, userID uuid.UUID) (int, error)
	CountFollowed(ctx context.Context, userID uuid.UUID) (int, error)

	AddSelfFollowsTx(ctx context.Context, tx bun.IDB) (int, error)
}

type follows struct {
	db    *bun.DB
	clock func() time.Time
}

var _ Follows = (*follows)(nil)

// NewFollowsRepository returns the bun backed follow graph
func NewFollowsRepository(db *bun.DB) Follows {
	return &follows{db: db, clock: time.Now}
}

func (f *follows) Follow(ctx context.Context, followerID, followedID uuid.UUID) error {
	return f.FollowTx(ctx, f.db, followerID, followedID)
}

// FollowTx adds the edge unless it exists. A concurrent insert of the
// same edge is reported as success.
func (f *follows) FollowTx(ctx context.Context, tx bun.IDB, followerID, followedID uuid.UUID) error {
	exists, err := f.IsFollowingTx(ctx, tx, followerID, followedID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	edge := &Follow{
		FollowerID: followerID,
		FollowedID: followedID,
		Timestamp:  f.clock().UTC(),
	}
	if _, err := tx.NewInsert().Model(edge).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert follow edge")
	}
	return nil
}

func (f *follows) Unfollow(ctx context.Context, followerID, followedID uuid.UUID) error {
	return f.UnfollowTx(ctx, f.db, followerID, followedID)
}

// UnfollowTx removes the edge. The reflexive edge is never removed.
func (f *follows) UnfollowTx(ctx context.Context, tx bun.IDB, followerID, followedID uuid.UUID) error {
	if followerID == followedID {
		return nil
	}
	_, err := tx.NewDelete().
		Model((*Follow)(nil)).
		Where("follower_id = ?", followerID).
		Where("followed_id = ?", followedID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete follow edge")
	}
	return nil
}

func (f *follows) IsFollowing(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	return f.IsFollowingTx(ctx, f.db, followerID, followedID)
}

func (f *follows) IsFollowingTx(ctx context.Context, tx bun.IDB, followerID, followedID uuid.UUID) (bool, error) {
	ok, err := tx.NewSelect().
		Model((*Follow)(nil)).
		Where("follower_id = ?", followerID).
		Where("followed_id = ?", followedID).
		Exists(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check follow edge")
	}
	return ok, nil
}

// IsFollowedBy reports whether followerID follows userID
func (f *follows) IsFollowedBy(ctx context.Context, userID, followerID uuid.UUID) (bool, error) {
	return f.IsFollowingTx(ctx, f.db, followerID, userID)
}

// Followers lists the edges pointing at userID, newest first, with the
// follower loaded.
func (f *follows) Followers(ctx context.Context, userID uuid.UUID, page Page) (PageResult[*Follow], error) {
	var edges []*Follow
	total, err := f.db.NewSelect().
		Model(&edges).
		Relation("Follower").
		Where("fl.followed_id = ?", userID).
		Order("fl.timestamp DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return PageResult[*Follow]{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list followers")
	}
	return newPageResult(edges, page, total), nil
}

// Followed lists the edges leaving userID, newest first, with the
// followed user loaded.
func (f *follows) Followed(ctx context.Context, userID uuid.UUID, page Page) (PageResult[*Follow], error) {
	var edges []*Follow
	total, err := f.db.NewSelect().
		Model(&edges).
		Relation("Followed").
		Where("fl.follower_id = ?", userID).
		Order("fl.timestamp DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return PageResult[*Follow]{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list followed users")
	}
	return newPageResult(edges, page, total), nil
}

func (f *follows) CountFollowers(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := f.db.NewSelect().Model((*Follow)(nil)).Where("followed_id = ?", userID).Count(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count followers")
	}
	return n, nil
}

func (f *follows) CountFollowed(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := f.db.NewSelect().Model((*Follow)(nil)).Where("follower_id = ?", userID).Count(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count followed users")
	}
	return n, nil
}

// AddSelfFollowsTx inserts the reflexive edge for every user missing it
// and returns how many were added.
func (f *follows) AddSelfFollowsTx(ctx context.Context, tx bun.IDB) (int, error) {
	var missing []uuid.UUID
	err := tx.NewSelect().
		Model((*User)(nil)).
		Column("usr.id").
		Where("NOT EXISTS (SELECT 1 FROM follows AS fl WHERE fl.follower_id = usr.id AND fl.followed_id = usr.id)").
		Scan(ctx, &missing)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to find users without self follow")
	}

	for _, id := range missing {
		if err := f.FollowTx(ctx, tx, id, id); err != nil {
			return 0, err
		}
	}
	return len(missing), nil
}
