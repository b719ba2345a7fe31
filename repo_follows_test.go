package blog_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-blog"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestRegisteredUserFollowsItself(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "john@example.com", "john")

	ok, err := env.repo.Follows().IsFollowing(env.ctx, user.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	followers, err := env.repo.Follows().CountFollowers(env.ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, followers)
}

func TestFollowIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	john := env.register(t, "john@example.com", "john")
	susan := env.register(t, "susan@example.com", "susan")

	follows := env.repo.Follows()
	require.NoError(t, follows.Follow(env.ctx, john.ID, susan.ID))
	require.NoError(t, follows.Follow(env.ctx, john.ID, susan.ID))

	ok, err := follows.IsFollowing(env.ctx, john.ID, susan.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = follows.IsFollowedBy(env.ctx, susan.ID, john.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = follows.IsFollowing(env.ctx, susan.ID, john.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := follows.CountFollowers(env.ctx, susan.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	page, err := follows.Followers(env.ctx, susan.ID, blog.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	for _, edge := range page.Items {
		require.NotNil(t, edge.Follower)
	}

	followed, err := follows.Followed(env.ctx, john.ID, blog.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, followed.Total)
}

func TestUnfollow(t *testing.T) {
	env := newTestEnv(t)
	john := env.register(t, "john@example.com", "john")
	susan := env.register(t, "susan@example.com", "susan")
	follows := env.repo.Follows()

	require.NoError(t, follows.Unfollow(env.ctx, john.ID, susan.ID), "missing edge is a no-op")

	require.NoError(t, follows.Follow(env.ctx, john.ID, susan.ID))
	require.NoError(t, follows.Unfollow(env.ctx, john.ID, susan.ID))

	ok, err := follows.IsFollowing(env.ctx, john.ID, susan.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, follows.Unfollow(env.ctx, john.ID, john.ID))
	ok, err = follows.IsFollowing(env.ctx, john.ID, john.ID)
	require.NoError(t, err)
	assert.True(t, ok, "reflexive edge survives unfollow")
}

func TestDeleteUserRemovesEdgesBothWays(t *testing.T) {
	env := newTestEnv(t)
	john := env.confirmed(t, "john@example.com", "john")
	susan := env.confirmed(t, "susan@example.com", "susan")
	follows := env.repo.Follows()

	require.NoError(t, follows.Follow(env.ctx, john.ID, susan.ID))
	require.NoError(t, follows.Follow(env.ctx, susan.ID, john.ID))
	post := env.post(t, john, "hello")

	require.NoError(t, env.repo.Users().Delete(env.ctx, john))

	count, err := env.db.NewSelect().Model((*blog.Follow)(nil)).Count(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only susan's reflexive edge remains")

	followers, err := follows.CountFollowers(env.ctx, susan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, followers)

	_, err = env.repo.Posts().GetByID(env.ctx, post.ID)
	assert.Error(t, err)

	_, err = env.repo.Users().FindByID(env.ctx, john.ID)
	assert.True(t, goerrors.IsNotFound(err))

	err = env.repo.Users().Delete(env.ctx, john)
	assert.True(t, goerrors.IsNotFound(err), "deleting twice reports the missing user")
}

func TestForeignKeysCascadeFollowEdges(t *testing.T) {
	env := newTestEnv(t)
	john := env.register(t, "john@example.com", "john")
	susan := env.register(t, "susan@example.com", "susan")
	require.NoError(t, env.repo.Follows().Follow(env.ctx, susan.ID, john.ID))

	_, err := env.db.NewDelete().Model((*blog.User)(nil)).Where("id = ?", john.ID).Exec(env.ctx)
	require.NoError(t, err)

	count, err := env.db.NewSelect().Model((*blog.Follow)(nil)).Count(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddSelfFollowsRepairsGraph(t *testing.T) {
	env := newTestEnv(t)
	john := env.register(t, "john@example.com", "john")
	env.register(t, "susan@example.com", "susan")

	_, err := env.db.NewDelete().
		Model((*blog.Follow)(nil)).
		Where("follower_id = ?", john.ID).
		Where("followed_id = ?", john.ID).
		Exec(env.ctx)
	require.NoError(t, err)

	var added int
	err = env.db.RunInTx(env.ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		added, err = env.repo.Follows().AddSelfFollowsTx(ctx, tx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	ok, err := env.repo.Follows().IsFollowing(env.ctx, john.ID, john.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFollowedPosts(t *testing.T) {
	env := newTestEnv(t)
	john := env.confirmed(t, "john@example.com", "john")
	susan := env.confirmed(t, "susan@example.com", "susan")
	david := env.confirmed(t, "david@example.com", "david")

	require.NoError(t, env.repo.Follows().Follow(env.ctx, john.ID, susan.ID))

	env.post(t, john, "john one")
	env.post(t, susan, "susan one")
	env.post(t, david, "david one")
	env.post(t, susan, "susan two")

	var bodies []string
	for post, err := range env.repo.Posts().FollowedPosts(env.ctx, john.ID, 2) {
		require.NoError(t, err)
		bodies = append(bodies, post.Body)
	}
	assert.ElementsMatch(t, []string{"john one", "susan one", "susan two"}, bodies)
	assert.NotContains(t, bodies, "david one")

	var first []string
	for post, err := range env.repo.Posts().FollowedPosts(env.ctx, john.ID, 2) {
		require.NoError(t, err)
		first = append(first, post.Body)
		if len(first) == 1 {
			break
		}
	}
	assert.Len(t, first, 1)

	page, err := env.repo.Posts().FollowedPostsPage(env.ctx, john.ID, blog.NewPage(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasNext())
	assert.False(t, page.HasPrev())
	for _, post := range page.Items {
		require.NotNil(t, post.Author)
	}

	david2, err := env.repo.Posts().FollowedPostsPage(env.ctx, david.ID, blog.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, david2.Total)
}
