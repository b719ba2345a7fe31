package web

import (
	"context"
	"time"

	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-router"
)

const avatarSize = 256

// PageResponse wraps every page rendered by the web routes
type PageResponse struct {
	Flash       router.ViewContext `json:"flash,omitempty"`
	CSRFToken   string             `json:"csrf_token,omitempty"`
	CurrentUser *UserView          `json:"current_user,omitempty"`
	Content     any                `json:"content"`
}

type UserView struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	Location    string    `json:"location,omitempty"`
	AboutMe     string    `json:"about_me,omitempty"`
	Avatar      string    `json:"avatar"`
	Confirmed   bool      `json:"confirmed"`
	Role        string    `json:"role,omitempty"`
	MemberSince time.Time `json:"member_since"`
	LastSeen    time.Time `json:"last_seen"`
}

type AuthorView struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type PostView struct {
	ID        int64       `json:"id"`
	Body      string      `json:"body"`
	BodyHTML  string      `json:"body_html"`
	Timestamp time.Time   `json:"timestamp"`
	Author    *AuthorView `json:"author,omitempty"`
	Comments  int         `json:"comments"`
	CanEdit   bool        `json:"can_edit"`
}

type CommentView struct {
	ID        int64       `json:"id"`
	PostID    int64       `json:"post_id"`
	Body      string      `json:"body,omitempty"`
	BodyHTML  string      `json:"body_html,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Author    *AuthorView `json:"author,omitempty"`
	Disabled  bool        `json:"disabled"`
}

type FollowView struct {
	User      AuthorView `json:"user"`
	Timestamp time.Time  `json:"timestamp"`
}

type Pagination struct {
	Page  int  `json:"page"`
	Pages int  `json:"pages"`
	Total int  `json:"total"`
	Prev  *int `json:"prev"`
	Next  *int `json:"next"`
}

func paginationOf[T any](page blog.PageResult[T]) Pagination {
	p := Pagination{Page: page.Page, Pages: page.Pages(), Total: page.Total}
	if page.HasPrev() {
		prev := page.Page - 1
		p.Prev = &prev
	}
	if page.HasNext() {
		next := page.Page + 1
		p.Next = &next
	}
	return p
}

type IndexView struct {
	Posts        []PostView `json:"posts"`
	Pagination   Pagination `json:"pagination"`
	ShowFollowed bool       `json:"show_followed"`
	CanWrite     bool       `json:"can_write"`
}

type ProfileView struct {
	User       UserView   `json:"user"`
	Posts      []PostView `json:"posts"`
	Pagination Pagination `json:"pagination"`
	Followers  int        `json:"followers"`
	Following  int        `json:"following"`
	// IsFollowing reports whether the viewer follows this user
	IsFollowing bool `json:"is_following"`
	FollowsYou  bool `json:"follows_you"`
}

type PostPageView struct {
	Post       PostView      `json:"post"`
	Comments   []CommentView `json:"comments"`
	Pagination Pagination    `json:"pagination"`
	CanComment bool          `json:"can_comment"`
}

type FollowsView struct {
	User       AuthorView   `json:"user"`
	Title      string       `json:"title"`
	Follows    []FollowView `json:"follows"`
	Pagination Pagination   `json:"pagination"`
}

type ModerationView struct {
	Comments   []CommentView `json:"comments"`
	Pagination Pagination    `json:"pagination"`
}

// FormView describes an empty form page
type FormView struct {
	Form string `json:"form"`
}

func userView(user *blog.User, viewer blog.Identity) UserView {
	v := UserView{
		ID:          user.ID.String(),
		Username:    user.Username,
		Name:        user.Name,
		Location:    user.Location,
		AboutMe:     user.AboutMe,
		Avatar:      user.GravatarURL(avatarSize, ""),
		Confirmed:   user.Confirmed,
		MemberSince: user.MemberSince,
		LastSeen:    user.LastSeen,
	}
	if viewer.IsAdministrator() || viewer.ID() == v.ID {
		v.Email = user.Email
		if user.Role != nil {
			v.Role = user.Role.Name
		}
	}
	return v
}

func authorView(user *blog.User) *AuthorView {
	if user == nil {
		return nil
	}
	return &AuthorView{Username: user.Username, Avatar: user.GravatarURL(40, "")}
}

func (w *Web) postViews(ctx context.Context, viewer blog.Identity, posts []*blog.Post) ([]PostView, error) {
	out := make([]PostView, 0, len(posts))
	for _, post := range posts {
		v, err := w.postView(ctx, viewer, post)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (w *Web) postView(ctx context.Context, viewer blog.Identity, post *blog.Post) (PostView, error) {
	count, err := w.svc.Repo.Comments().CountByPost(ctx, post.ID)
	if err != nil {
		return PostView{}, err
	}
	return PostView{
		ID:        post.ID,
		Body:      post.Body,
		BodyHTML:  post.BodyHTML,
		Timestamp: post.Timestamp,
		Author:    authorView(post.Author),
		Comments:  count,
		CanEdit:   viewer.ID() == post.AuthorID.String() || viewer.Can(blog.PermissionAdminister),
	}, nil
}

// commentViews hides the body of disabled comments from viewers that
// cannot moderate
func commentViews(viewer blog.Identity, comments []*blog.Comment) []CommentView {
	moderator := viewer.Can(blog.PermissionModerateComments)
	out := make([]CommentView, 0, len(comments))
	for _, cm := range comments {
		v := CommentView{
			ID:        cm.ID,
			PostID:    cm.PostID,
			Timestamp: cm.Timestamp,
			Author:    authorView(cm.Author),
			Disabled:  cm.Disabled,
		}
		if !cm.Disabled || moderator {
			v.Body = cm.Body
			v.BodyHTML = cm.BodyHTML
		}
		out = append(out, v)
	}
	return out
}

func followViews(edges []*blog.Follow, pick func(*blog.Follow) *blog.User) []FollowView {
	out := make([]FollowView, 0, len(edges))
	for _, edge := range edges {
		if author := authorView(pick(edge)); author != nil {
			out = append(out, FollowView{User: *author, Timestamp: edge.Timestamp})
		}
	}
	return out
}
