package blog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
	"mvdan.cc/xurls/v2"
)

// PostAllowedTags are the elements kept in rendered post bodies
var PostAllowedTags = []string{
	"a", "abbr", "acronym", "b", "blockquote", "code",
	"em", "i", "li", "ol", "pre", "strong", "ul",
	"h1", "h2", "h3", "h4", "h5", "p",
}

// CommentAllowedTags are the elements kept in rendered comment bodies
var CommentAllowedTags = []string{
	"a", "abbr", "acronym", "b", "code", "em", "i", "strong",
}

var (
	postPolicy    = newContentPolicy(PostAllowedTags)
	commentPolicy = newContentPolicy(CommentAllowedTags)
)

func newContentPolicy(tags []string) *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(tags...)
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("title").OnElements("a", "abbr", "acronym")
	p.RequireNoFollowOnLinks(true)
	return p
}

// Body is a raw markdown text and its sanitized HTML rendering. The two
// always travel together.
type Body struct {
	Raw  string
	HTML string
}

// RenderPost converts markdown to HTML restricted to PostAllowedTags
func RenderPost(raw string) Body {
	return render(raw, postPolicy)
}

// RenderComment converts markdown to HTML restricted to CommentAllowedTags
func RenderComment(raw string) Body {
	return render(raw, commentPolicy)
}

func render(raw string, policy *bluemonday.Policy) Body {
	unsafe := blackfriday.Run(
		[]byte(linkBareHosts(raw)),
		blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.Autolink),
	)
	return Body{
		Raw:  raw,
		HTML: strings.TrimSpace(policy.Sanitize(string(unsafe))),
	}
}

var relaxedURL = xurls.Relaxed()

// linkBareHosts turns schemeless www. hosts into markdown links, the
// markdown autolinker only knows URLs that carry a scheme. Hosts that
// already sit in a link, a code span or an address are left alone.
func linkBareHosts(raw string) string {
	var b strings.Builder
	last := 0
	for _, loc := range relaxedURL.FindAllStringIndex(raw, -1) {
		start, end := loc[0], loc[1]
		host := raw[start:end]
		if !strings.HasPrefix(strings.ToLower(host), "www.") {
			continue
		}
		if start > 0 && strings.IndexByte("([</@:`\"'=", raw[start-1]) >= 0 {
			continue
		}
		b.WriteString(raw[last:start])
		b.WriteString("[" + host + "](http://" + host + ")")
		last = end
	}
	if last == 0 {
		return raw
	}
	b.WriteString(raw[last:])
	return b.String()
}

// NewPost builds a post for author with a rendered body
func NewPost(authorID uuid.UUID, raw string, now time.Time) (*Post, error) {
	p := &Post{
		AuthorID:  authorID,
		Timestamp: now.UTC(),
	}
	if err := p.SetBody(raw); err != nil {
		return nil, err
	}
	return p, nil
}

// SetBody replaces the post body and its rendering
func (p *Post) SetBody(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrPostEmptyBody
	}
	b := RenderPost(raw)
	p.Body, p.BodyHTML = b.Raw, b.HTML
	return nil
}

// NewComment builds a comment on postID with a rendered body
func NewComment(authorID uuid.UUID, postID int64, raw string, now time.Time) (*Comment, error) {
	c := &Comment{
		AuthorID:  authorID,
		PostID:    postID,
		Timestamp: now.UTC(),
	}
	if err := c.SetBody(raw); err != nil {
		return nil, err
	}
	return c, nil
}

// SetBody replaces the comment body and its rendering
func (c *Comment) SetBody(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrCommentEmptyBody
	}
	b := RenderComment(raw)
	c.Body, c.BodyHTML = b.Raw, b.HTML
	return nil
}
