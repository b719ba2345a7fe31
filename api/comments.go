package api

import (
	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-router"
)

// ModerationPayload toggles the visibility of a comment
type ModerationPayload struct {
	Disabled bool `json:"disabled" form:"disabled"`
}

func (a *API) ListComments(c router.Context) error {
	page, err := a.svc.Repo.Comments().List(c.Context(), pageFrom(c, a.perPage(commentsPerPage)))
	if err != nil {
		return a.sendError(c, err)
	}
	return a.sendComments(c, page, linksFor(c).to("/comments"))
}

func (a *API) GetComment(c router.Context) error {
	id, err := intID(c, "comment")
	if err != nil {
		return a.sendError(c, err)
	}

	comment, err := a.svc.Repo.Comments().GetByID(c.Context(), id)
	if err != nil {
		return a.sendError(c, err)
	}
	return c.JSON(router.StatusOK, commentResource(linksFor(c), comment))
}

func (a *API) ListPostComments(c router.Context) error {
	id, err := intID(c, "post")
	if err != nil {
		return a.sendError(c, err)
	}

	if _, err := a.svc.Repo.Posts().GetByID(c.Context(), id); err != nil {
		return a.sendError(c, err)
	}

	page, err := a.svc.Repo.Comments().ByPost(c.Context(), id, pageFrom(c, a.perPage(commentsPerPage)))
	if err != nil {
		return a.sendError(c, err)
	}
	return a.sendComments(c, page, linksFor(c).to("/posts/%d/comments", id))
}

func (a *API) CreateComment(c router.Context) error {
	id, err := intID(c, "post")
	if err != nil {
		return a.sendError(c, err)
	}

	payload := new(BodyPayload)
	if err := bindBody(c, payload); err != nil {
		return a.sendError(c, err)
	}

	var comment *blog.Comment
	err = blog.NewCreateCommentHandler(a.svc).Execute(c.Context(), blog.CreateCommentMessage{
		Author:     blog.RequestIdentity(c),
		PostID:     id,
		Body:       payload.Body,
		OnResponse: func(cm *blog.Comment) { comment = cm },
	})
	if err != nil {
		return a.sendError(c, err)
	}

	l := linksFor(c)
	c.SetHeader("Location", l.to("/comments/%d", comment.ID))
	return c.JSON(router.StatusCreated, commentResource(l, comment))
}

func (a *API) ModerateComment(c router.Context) error {
	id, err := intID(c, "comment")
	if err != nil {
		return a.sendError(c, err)
	}

	payload := new(ModerationPayload)
	if err := bindBody(c, payload); err != nil {
		return a.sendError(c, err)
	}

	err = blog.NewModerateCommentHandler(a.svc).Execute(c.Context(), blog.ModerateCommentMessage{
		Actor:     blog.RequestIdentity(c),
		CommentID: id,
		Disabled:  payload.Disabled,
	})
	if err != nil {
		return a.sendError(c, err)
	}

	comment, err := a.svc.Repo.Comments().GetByID(c.Context(), id)
	if err != nil {
		return a.sendError(c, err)
	}
	return c.JSON(router.StatusOK, commentResource(linksFor(c), comment))
}

func (a *API) sendComments(c router.Context, page blog.PageResult[*blog.Comment], url string) error {
	l := linksFor(c)
	comments, err := convertAll(page.Items, func(cm *blog.Comment) (CommentResource, error) {
		return commentResource(l, cm), nil
	})
	if err != nil {
		return a.sendError(c, err)
	}
	return c.JSON(router.StatusOK, CommentList{
		Comments:  comments,
		PageLinks: pageLinks(page, url),
	})
}
