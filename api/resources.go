package api

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-blog"
)

// UserResource is the public view of an account
type UserResource struct {
	URL              string    `json:"url"`
	Username         string    `json:"username"`
	MemberSince      time.Time `json:"member_since"`
	LastSeen         time.Time `json:"last_seen"`
	PostsURL         string    `json:"posts_url"`
	FollowedPostsURL string    `json:"followed_posts_url"`
	PostCount        int       `json:"post_count"`
}

type PostResource struct {
	URL          string    `json:"url"`
	Body         string    `json:"body"`
	BodyHTML     string    `json:"body_html"`
	Timestamp    time.Time `json:"timestamp"`
	AuthorURL    string    `json:"author_url"`
	CommentsURL  string    `json:"comments_url"`
	CommentCount int       `json:"comment_count"`
}

type CommentResource struct {
	URL       string    `json:"url"`
	PostURL   string    `json:"post_url"`
	Body      string    `json:"body"`
	BodyHTML  string    `json:"body_html"`
	Timestamp time.Time `json:"timestamp"`
	AuthorURL string    `json:"author_url"`
	Disabled  bool      `json:"disabled"`
}

// PageLinks locates a page within its collection. Prev and Next are
// null at the edges.
type PageLinks struct {
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
	Count int     `json:"count"`
}

// PostList is one page of posts
type PostList struct {
	Posts []PostResource `json:"posts"`
	PageLinks
}

// CommentList is one page of comments
type CommentList struct {
	Comments []CommentResource `json:"comments"`
	PageLinks
}

func pageLinks[S any](page blog.PageResult[S], url string) PageLinks {
	links := PageLinks{Count: page.Total}
	if page.HasPrev() {
		prev := fmt.Sprintf("%s?page=%d", url, page.Page-1)
		links.Prev = &prev
	}
	if page.HasNext() {
		next := fmt.Sprintf("%s?page=%d", url, page.Page+1)
		links.Next = &next
	}
	return links
}

func convertAll[S, T any](items []S, convert func(S) (T, error)) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		converted, err := convert(item)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func (a *API) userResource(ctx context.Context, l links, user *blog.User) (UserResource, error) {
	count, err := a.svc.Repo.Posts().CountByAuthor(ctx, user.ID)
	if err != nil {
		return UserResource{}, err
	}
	return UserResource{
		URL:              l.user(user.ID),
		Username:         user.Username,
		MemberSince:      user.MemberSince,
		LastSeen:         user.LastSeen,
		PostsURL:         l.to("/users/%s/posts", user.ID),
		FollowedPostsURL: l.to("/users/%s/timeline", user.ID),
		PostCount:        count,
	}, nil
}

func (a *API) postResource(ctx context.Context, l links, post *blog.Post) (PostResource, error) {
	count, err := a.svc.Repo.Comments().CountByPost(ctx, post.ID)
	if err != nil {
		return PostResource{}, err
	}
	return PostResource{
		URL:          l.post(post.ID),
		Body:         post.Body,
		BodyHTML:     post.BodyHTML,
		Timestamp:    post.Timestamp,
		AuthorURL:    l.user(post.AuthorID),
		CommentsURL:  l.to("/posts/%d/comments", post.ID),
		CommentCount: count,
	}, nil
}

func commentResource(l links, comment *blog.Comment) CommentResource {
	return CommentResource{
		URL:       l.to("/comments/%d", comment.ID),
		PostURL:   l.post(comment.PostID),
		Body:      comment.Body,
		BodyHTML:  comment.BodyHTML,
		Timestamp: comment.Timestamp,
		AuthorURL: l.user(comment.AuthorID),
		Disabled:  comment.Disabled,
	}
}
