package api

import (
	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-router"
)

// BodyPayload carries the markdown source of a post or comment
type BodyPayload struct {
	Body string `json:"body" form:"body"`
}

func (a *API) ListPosts(c router.Context) error {
	page, err := a.svc.Repo.Posts().List(c.Context(), pageFrom(c, a.perPage(postsPerPage)))
	if err != nil {
		return a.sendError(c, err)
	}
	return a.sendPosts(c, page, linksFor(c).to("/posts"))
}

func (a *API) GetPost(c router.Context) error {
	id, err := intID(c, "post")
	if err != nil {
		return a.sendError(c, err)
	}

	post, err := a.svc.Repo.Posts().GetByID(c.Context(), id)
	if err != nil {
		return a.sendError(c, err)
	}
	return a.sendPost(c, router.StatusOK, post)
}

func (a *API) CreatePost(c router.Context) error {
	payload := new(BodyPayload)
	if err := bindBody(c, payload); err != nil {
		return a.sendError(c, err)
	}

	var post *blog.Post
	err := blog.NewCreatePostHandler(a.svc).Execute(c.Context(), blog.CreatePostMessage{
		Author:     blog.RequestIdentity(c),
		Body:       payload.Body,
		OnResponse: func(p *blog.Post) { post = p },
	})
	if err != nil {
		return a.sendError(c, err)
	}

	c.SetHeader("Location", linksFor(c).post(post.ID))
	return a.sendPost(c, router.StatusCreated, post)
}

// EditPost rewrites a post. Only the author or an administrator may.
func (a *API) EditPost(c router.Context) error {
	id, err := intID(c, "post")
	if err != nil {
		return a.sendError(c, err)
	}

	payload := new(BodyPayload)
	if err := bindBody(c, payload); err != nil {
		return a.sendError(c, err)
	}

	var post *blog.Post
	err = blog.NewEditPostHandler(a.svc).Execute(c.Context(), blog.EditPostMessage{
		Actor:      blog.RequestIdentity(c),
		PostID:     id,
		Body:       payload.Body,
		OnResponse: func(p *blog.Post) { post = p },
	})
	if err != nil {
		return a.sendError(c, err)
	}
	return a.sendPost(c, router.StatusOK, post)
}

func (a *API) sendPost(c router.Context, status int, post *blog.Post) error {
	out, err := a.postResource(c.Context(), linksFor(c), post)
	if err != nil {
		return a.sendError(c, err)
	}
	return c.JSON(status, out)
}
