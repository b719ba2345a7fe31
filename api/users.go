package api

import (
	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-router"
)

func (a *API) GetUser(c router.Context) error {
	id, err := userID(c)
	if err != nil {
		return a.sendError(c, err)
	}

	user, err := a.svc.Repo.Users().FindByID(c.Context(), id)
	if err != nil {
		return a.sendError(c, err)
	}

	out, err := a.userResource(c.Context(), linksFor(c), user)
	if err != nil {
		return a.sendError(c, err)
	}
	return c.JSON(router.StatusOK, out)
}

func (a *API) GetUserPosts(c router.Context) error {
	id, err := userID(c)
	if err != nil {
		return a.sendError(c, err)
	}

	if _, err := a.svc.Repo.Users().FindByID(c.Context(), id); err != nil {
		return a.sendError(c, err)
	}

	page, err := a.svc.Repo.Posts().ByAuthor(c.Context(), id, pageFrom(c, a.perPage(postsPerPage)))
	if err != nil {
		return a.sendError(c, err)
	}
	return a.sendPosts(c, page, linksFor(c).to("/users/%s/posts", id))
}

// GetUserTimeline lists the posts of everyone the user follows,
// including the user's own posts
func (a *API) GetUserTimeline(c router.Context) error {
	id, err := userID(c)
	if err != nil {
		return a.sendError(c, err)
	}

	if _, err := a.svc.Repo.Users().FindByID(c.Context(), id); err != nil {
		return a.sendError(c, err)
	}

	page, err := a.svc.Repo.Posts().FollowedPostsPage(c.Context(), id, pageFrom(c, a.perPage(postsPerPage)))
	if err != nil {
		return a.sendError(c, err)
	}
	return a.sendPosts(c, page, linksFor(c).to("/users/%s/timeline", id))
}

func (a *API) sendPosts(c router.Context, page blog.PageResult[*blog.Post], url string) error {
	l := linksFor(c)
	posts, err := convertAll(page.Items, func(p *blog.Post) (PostResource, error) {
		return a.postResource(c.Context(), l, p)
	})
	if err != nil {
		return a.sendError(c, err)
	}
	return c.JSON(router.StatusOK, PostList{
		Posts:     posts,
		PageLinks: pageLinks(page, url),
	})
}
