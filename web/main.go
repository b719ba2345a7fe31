package web

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

const showFollowedMaxAge = 30 * 24 * time.Hour

// Index lists every post, or the followed timeline when the viewer
// picked it
func (w *Web) Index(c router.Context) error {
	identity := blog.RequestIdentity(c)
	page := blog.NewPage(c.QueryInt("page", 1), w.perPage(postsPerPage))
	showFollowed := !identity.IsAnonymous() && c.Cookies(showFollowedCookie) != ""

	var (
		result blog.PageResult[*blog.Post]
		err    error
	)
	if showFollowed {
		result, err = w.svc.Repo.Posts().FollowedPostsPage(c.Context(), identity.User().ID, page)
	} else {
		result, err = w.svc.Repo.Posts().List(c.Context(), page)
	}
	if err != nil {
		return w.abort(c, err)
	}

	posts, err := w.postViews(c.Context(), identity, result.Items)
	if err != nil {
		return w.abort(c, err)
	}

	return w.render(c, IndexView{
		Posts:        posts,
		Pagination:   paginationOf(result),
		ShowFollowed: showFollowed,
		CanWrite:     identity.Can(blog.PermissionWriteArticles),
	})
}

// PostPayload carries the markdown body of posts and comments
type PostPayload struct {
	Body string `form:"body" json:"body"`
}

func (w *Web) CreatePost(c router.Context) error {
	payload := new(PostPayload)
	if err := w.bind(c, payload); err != nil {
		return w.fail(c, err, w.Routes.Index, "")
	}

	err := blog.NewCreatePostHandler(w.svc).Execute(c.Context(), blog.CreatePostMessage{
		Author: blog.RequestIdentity(c),
		Body:   payload.Body,
	})
	if err != nil {
		return w.fail(c, err, w.Routes.Index, "")
	}
	return w.redirect(c, w.Routes.Index)
}

func (w *Web) ShowAll(c router.Context) error {
	blog.SetCookie(c, w.cookie, showFollowedCookie, "", showFollowedMaxAge)
	return w.redirect(c, w.Routes.Index)
}

func (w *Web) ShowFollowed(c router.Context) error {
	blog.SetCookie(c, w.cookie, showFollowedCookie, "1", showFollowedMaxAge)
	return w.redirect(c, w.Routes.Index)
}

func (w *Web) Profile(c router.Context) error {
	ctx := c.Context()
	identity := blog.RequestIdentity(c)

	user, err := w.svc.Repo.Users().GetByUsername(ctx, c.Param("username"))
	if err != nil {
		return w.abort(c, err)
	}

	result, err := w.svc.Repo.Posts().ByAuthor(ctx, user.ID, blog.NewPage(c.QueryInt("page", 1), w.perPage(postsPerPage)))
	if err != nil {
		return w.abort(c, err)
	}

	posts, err := w.postViews(ctx, identity, result.Items)
	if err != nil {
		return w.abort(c, err)
	}

	followers, err := w.svc.Repo.Follows().CountFollowers(ctx, user.ID)
	if err != nil {
		return w.abort(c, err)
	}

	following, err := w.svc.Repo.Follows().CountFollowed(ctx, user.ID)
	if err != nil {
		return w.abort(c, err)
	}

	view := ProfileView{
		User:       userView(user, identity),
		Posts:      posts,
		Pagination: paginationOf(result),
		// the self follow is not shown
		Followers: max(followers-1, 0),
		Following: max(following-1, 0),
	}

	if viewer := identity.User(); viewer != nil && viewer.ID != user.ID {
		if view.IsFollowing, err = w.svc.Repo.Follows().IsFollowing(ctx, viewer.ID, user.ID); err != nil {
			return w.abort(c, err)
		}
		if view.FollowsYou, err = w.svc.Repo.Follows().IsFollowedBy(ctx, viewer.ID, user.ID); err != nil {
			return w.abort(c, err)
		}
	}
	return w.render(c, view)
}

// ProfilePayload is the profile form
type ProfilePayload struct {
	Name     string `form:"name" json:"name"`
	Location string `form:"location" json:"location"`
	AboutMe  string `form:"about_me" json:"about_me"`
}

func (w *Web) EditProfile(c router.Context) error {
	user := blog.RequestIdentity(c).User()
	target := profilePath(user.Username)

	payload := new(ProfilePayload)
	if err := w.bind(c, payload); err != nil {
		return w.fail(c, err, target, "")
	}

	err := blog.NewEditProfileHandler(w.svc).Execute(c.Context(), blog.EditProfileMessage{
		UserID:   user.ID,
		Name:     payload.Name,
		Location: payload.Location,
		AboutMe:  payload.AboutMe,
	})
	if err != nil {
		return w.fail(c, err, target, "")
	}

	return w.success(c, target, "Your profile has been updated.")
}

// AdminProfilePayload is the administrator profile form
type AdminProfilePayload struct {
	Email     string `form:"email" json:"email"`
	Username  string `form:"username" json:"username"`
	Confirmed bool   `form:"confirmed" json:"confirmed"`
	Role      string `form:"role" json:"role"`
	Name      string `form:"name" json:"name"`
	Location  string `form:"location" json:"location"`
	AboutMe   string `form:"about_me" json:"about_me"`
}

func (w *Web) AdminEditProfile(c router.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return w.abort(c, blog.NotFound("user"))
	}

	payload := new(AdminProfilePayload)
	if err := w.bind(c, payload); err != nil {
		return w.fail(c, err, w.Routes.Index, "")
	}

	err = blog.NewAdminEditProfileHandler(w.svc).Execute(c.Context(), blog.AdminEditProfileMessage{
		Actor:     blog.RequestIdentity(c),
		UserID:    id,
		Email:     payload.Email,
		Username:  payload.Username,
		Confirmed: payload.Confirmed,
		RoleName:  payload.Role,
		Name:      payload.Name,
		Location:  payload.Location,
		AboutMe:   payload.AboutMe,
	})
	if err != nil {
		return w.fail(c, err, w.Routes.Index, "")
	}

	return w.success(c, profilePath(payload.Username), "The profile has been updated.")
}

// Post shows a post with a page of its comments. page=-1 selects the
// last page.
func (w *Web) Post(c router.Context) error {
	ctx := c.Context()
	identity := blog.RequestIdentity(c)

	id, err := postID(c)
	if err != nil {
		return w.abort(c, err)
	}

	post, err := w.svc.Repo.Posts().GetByID(ctx, id)
	if err != nil {
		return w.abort(c, err)
	}

	size := w.perPage(commentsPerPage)
	number := c.QueryInt("page", 1)
	if number == -1 {
		count, err := w.svc.Repo.Comments().CountByPost(ctx, id)
		if err != nil {
			return w.abort(c, err)
		}
		number = (count-1)/size + 1
	}

	result, err := w.svc.Repo.Comments().ByPost(ctx, id, blog.NewPage(number, size))
	if err != nil {
		return w.abort(c, err)
	}

	view, err := w.postView(ctx, identity, post)
	if err != nil {
		return w.abort(c, err)
	}

	return w.render(c, PostPageView{
		Post:       view,
		Comments:   commentViews(identity, result.Items),
		Pagination: paginationOf(result),
		CanComment: identity.Can(blog.PermissionComment),
	})
}

func (w *Web) CreateComment(c router.Context) error {
	id, err := postID(c)
	if err != nil {
		return w.abort(c, err)
	}
	target := postPath(id)

	payload := new(PostPayload)
	if err := w.bind(c, payload); err != nil {
		return w.fail(c, err, target, "")
	}

	err = blog.NewCreateCommentHandler(w.svc).Execute(c.Context(), blog.CreateCommentMessage{
		Author: blog.RequestIdentity(c),
		PostID: id,
		Body:   payload.Body,
	})
	if err != nil {
		return w.fail(c, err, target, "")
	}

	return w.success(c, target+"?page=-1", "Your comment has been published.")
}

// EditPost rewrites a post. Only the author or an administrator may.
func (w *Web) EditPost(c router.Context) error {
	id, err := postID(c)
	if err != nil {
		return w.abort(c, err)
	}
	target := postPath(id)

	payload := new(PostPayload)
	if err := w.bind(c, payload); err != nil {
		return w.fail(c, err, target, "")
	}

	err = blog.NewEditPostHandler(w.svc).Execute(c.Context(), blog.EditPostMessage{
		Actor:  blog.RequestIdentity(c),
		PostID: id,
		Body:   payload.Body,
	})
	if err != nil {
		return w.fail(c, err, target, "")
	}

	return w.success(c, target, "The post has been updated.")
}

func (w *Web) Follow(c router.Context) error {
	return w.changeFollow(c, true)
}

func (w *Web) Unfollow(c router.Context) error {
	return w.changeFollow(c, false)
}

func (w *Web) changeFollow(c router.Context, follow bool) error {
	username := c.Param("username")
	handler := blog.NewUnfollowUserHandler(w.svc).Execute
	if follow {
		handler = blog.NewFollowUserHandler(w.svc).Execute
	}

	var resp *blog.FollowUserResponse
	err := handler(c.Context(), blog.FollowUserMessage{
		Actor:      blog.RequestIdentity(c),
		Username:   username,
		OnResponse: func(r *blog.FollowUserResponse) { resp = r },
	})
	if err != nil {
		if blog.StatusCode(err) == router.StatusNotFound {
			return flash.WithError(c, router.ViewContext{
				"error_message": "Invalid user.",
			}).Redirect(w.Routes.Index, router.StatusSeeOther)
		}
		return w.abort(c, err)
	}

	var message string
	switch {
	case follow && resp.Changed:
		message = fmt.Sprintf("You are now following %s.", username)
	case follow:
		message = "You are already following this user."
	case resp.Changed:
		message = fmt.Sprintf("You are not following %s anymore.", username)
	default:
		message = "You are not following this user."
	}
	return w.success(c, profilePath(username), message)
}

type followList func(ctx context.Context, userID uuid.UUID, page blog.Page) (blog.PageResult[*blog.Follow], error)

func (w *Web) Followers(c router.Context) error {
	return w.follows(c, "Followers of", w.svc.Repo.Follows().Followers,
		func(f *blog.Follow) *blog.User { return f.Follower })
}

func (w *Web) FollowedBy(c router.Context) error {
	return w.follows(c, "Followed by", w.svc.Repo.Follows().Followed,
		func(f *blog.Follow) *blog.User { return f.Followed })
}

func (w *Web) follows(c router.Context, title string, list followList, pick func(*blog.Follow) *blog.User) error {
	ctx := c.Context()

	user, err := w.svc.Repo.Users().GetByUsername(ctx, c.Param("username"))
	if err != nil {
		if blog.StatusCode(err) == router.StatusNotFound {
			return flash.WithError(c, router.ViewContext{
				"error_message": "Invalid user.",
			}).Redirect(w.Routes.Index, router.StatusSeeOther)
		}
		return w.abort(c, err)
	}

	page := blog.NewPage(c.QueryInt("page", 1), w.perPage(followersPerPage))
	result, err := list(ctx, user.ID, page)
	if err != nil {
		return w.abort(c, err)
	}

	return w.render(c, FollowsView{
		User:       *authorView(user),
		Title:      title,
		Follows:    followViews(result.Items, pick),
		Pagination: paginationOf(result),
	})
}

func (w *Web) Moderate(c router.Context) error {
	page := blog.NewPage(c.QueryInt("page", 1), w.perPage(commentsPerPage))
	result, err := w.svc.Repo.Comments().List(c.Context(), page)
	if err != nil {
		return w.abort(c, err)
	}

	return w.render(c, ModerationView{
		Comments:   commentViews(blog.RequestIdentity(c), result.Items),
		Pagination: paginationOf(result),
	})
}

func (w *Web) ModerateEnable(c router.Context) error {
	return w.moderate(c, false)
}

func (w *Web) ModerateDisable(c router.Context) error {
	return w.moderate(c, true)
}

func (w *Web) moderate(c router.Context, disabled bool) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return w.abort(c, blog.NotFound("comment"))
	}

	err = blog.NewModerateCommentHandler(w.svc).Execute(c.Context(), blog.ModerateCommentMessage{
		Actor:     blog.RequestIdentity(c),
		CommentID: id,
		Disabled:  disabled,
	})
	if err != nil {
		return w.abort(c, err)
	}
	return w.redirect(c, fmt.Sprintf("%s?page=%d", w.Routes.Moderate, c.QueryInt("page", 1)))
}

func postID(c router.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, blog.NotFound("post")
	}
	return id, nil
}

func postPath(id int64) string {
	return fmt.Sprintf("/post/%d", id)
}

func profilePath(username string) string {
	return "/user/" + url.PathEscape(username)
}
