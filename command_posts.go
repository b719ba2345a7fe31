package blog

import (
	"context"

	"github.com/uptrace/bun"
)

type CreatePostMessage struct {
	Author     Identity
	Body       string `json:"body" form:"body"`
	OnResponse func(*Post)
}

func (e CreatePostMessage) Type() string { return "post.create" }

// CreatePostHandler publishes a post for an author holding
// PermissionWriteArticles
type CreatePostHandler struct {
	svc Services
}

func NewCreatePostHandler(svc Services) *CreatePostHandler {
	return &CreatePostHandler{svc: svc}
}

func (h *CreatePostHandler) Execute(ctx context.Context, event CreatePostMessage) error {
	if err := cancelled(ctx, "post creation"); err != nil {
		return err
	}

	if err := RequirePermission(event.Author, PermissionWriteArticles); err != nil {
		return err
	}
	author := event.Author.User()

	post, err := NewPost(author.ID, event.Body, h.svc.now())
	if err != nil {
		return err
	}

	err = h.svc.inTx(ctx, "failed to create post", func(ctx context.Context, tx bun.Tx) error {
		_, err := h.svc.Repo.Posts().CreateTx(ctx, tx, post)
		return err
	})
	if err != nil {
		return err
	}
	post.Author = author

	if event.OnResponse != nil {
		event.OnResponse(post)
	}
	return nil
}

type EditPostMessage struct {
	Actor      Identity
	PostID     int64
	Body       string `json:"body" form:"body"`
	OnResponse func(*Post)
}

func (e EditPostMessage) Type() string { return "post.edit" }

// EditPostHandler lets the author or an administrator rewrite a post
type EditPostHandler struct {
	svc Services
}

func NewEditPostHandler(svc Services) *EditPostHandler {
	return &EditPostHandler{svc: svc}
}

func (h *EditPostHandler) Execute(ctx context.Context, event EditPostMessage) error {
	if err := cancelled(ctx, "post edit"); err != nil {
		return err
	}
	if event.Actor == nil || event.Actor.IsAnonymous() {
		return ErrInsufficientPermissions
	}

	var post *Post
	err := h.svc.inTx(ctx, "failed to edit post", func(ctx context.Context, tx bun.Tx) error {
		var err error
		post, err = h.svc.Repo.Posts().GetByIDTx(ctx, tx, event.PostID)
		if err != nil {
			return err
		}

		if post.AuthorID.String() != event.Actor.ID() && !event.Actor.Can(PermissionAdminister) {
			return ErrInsufficientPermissions
		}

		if err := post.SetBody(event.Body); err != nil {
			return err
		}
		_, err = h.svc.Repo.Posts().UpdateBodyTx(ctx, tx, post)
		return err
	})
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(post)
	}
	return nil
}

type CreateCommentMessage struct {
	Author     Identity
	PostID     int64
	Body       string `json:"body" form:"body"`
	OnResponse func(*Comment)
}

func (e CreateCommentMessage) Type() string { return "comment.create" }

// CreateCommentHandler adds a comment to an existing post
type CreateCommentHandler struct {
	svc Services
}

func NewCreateCommentHandler(svc Services) *CreateCommentHandler {
	return &CreateCommentHandler{svc: svc}
}

func (h *CreateCommentHandler) Execute(ctx context.Context, event CreateCommentMessage) error {
	if err := cancelled(ctx, "comment creation"); err != nil {
		return err
	}

	if err := RequirePermission(event.Author, PermissionComment); err != nil {
		return err
	}
	author := event.Author.User()

	comment, err := NewComment(author.ID, event.PostID, event.Body, h.svc.now())
	if err != nil {
		return err
	}

	err = h.svc.inTx(ctx, "failed to create comment", func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.svc.Repo.Posts().GetByIDTx(ctx, tx, event.PostID); err != nil {
			return err
		}
		_, err := h.svc.Repo.Comments().CreateTx(ctx, tx, comment)
		return err
	})
	if err != nil {
		return err
	}
	comment.Author = author

	if event.OnResponse != nil {
		event.OnResponse(comment)
	}
	return nil
}

type ModerateCommentMessage struct {
	Actor     Identity
	CommentID int64
	Disabled  bool
}

func (e ModerateCommentMessage) Type() string { return "comment.moderate" }

// ModerateCommentHandler enables or disables a comment
type ModerateCommentHandler struct {
	svc Services
}

func NewModerateCommentHandler(svc Services) *ModerateCommentHandler {
	return &ModerateCommentHandler{svc: svc}
}

func (h *ModerateCommentHandler) Execute(ctx context.Context, event ModerateCommentMessage) error {
	if err := cancelled(ctx, "comment moderation"); err != nil {
		return err
	}

	if err := RequirePermission(event.Actor, PermissionModerateComments); err != nil {
		return err
	}

	err := h.svc.inTx(ctx, "failed to moderate comment", func(ctx context.Context, tx bun.Tx) error {
		return h.svc.Repo.Comments().SetDisabledTx(ctx, tx, event.CommentID, event.Disabled)
	})
	if err != nil {
		return err
	}

	h.svc.record(ctx, userActivity(ActivityEventCommentModerated, event.Actor.User(), map[string]any{
		"comment_id": event.CommentID,
		"disabled":   event.Disabled,
	}))
	return nil
}
