package blog

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Email         string    `bun:"email,notnull,unique" json:"email,omitempty"`
	Username      string    `bun:"username,notnull,unique" json:"username"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	Confirmed     bool      `bun:"confirmed,notnull" json:"confirmed"`
	RoleID        int64     `bun:"role_id,nullzero" json:"role_id,omitempty"`
	Role          *Role     `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	Name          string    `bun:"name" json:"name,omitempty"`
	Location      string    `bun:"location" json:"location,omitempty"`
	AboutMe       string    `bun:"about_me" json:"about_me,omitempty"`
	AvatarHash    string    `bun:"avatar_hash" json:"-"`
	MemberSince   time.Time `bun:"member_since,notnull" json:"member_since"`
	LastSeen      time.Time `bun:"last_seen,notnull" json:"last_seen"`
}

// NewUser builds an unconfirmed user with a fresh id. The password and
// role are assigned separately.
func NewUser(email, username string, now time.Time) *User {
	u := &User{
		ID:          uuid.New(),
		Username:    strings.TrimSpace(username),
		MemberSince: now.UTC(),
		LastSeen:    now.UTC(),
	}
	u.SetEmail(email)
	return u
}

// NormalizeEmail trims and lower cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetEmail stores the normalized address and recomputes the avatar hash
func (u *User) SetEmail(email string) {
	u.Email = NormalizeEmail(email)
	u.AvatarHash = AvatarHash(u.Email)
}

// SetPassword stores a one way hash of raw
func (u *User) SetPassword(raw string) error {
	hash, err := HashPassword(raw)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// Password always fails, the cleartext is never kept
func (u *User) Password() (string, error) {
	return "", ErrPasswordNotReadable
}

// VerifyPassword reports whether raw matches the stored hash
func (u *User) VerifyPassword(raw string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return ComparePasswordAndHash(raw, u.PasswordHash) == nil
}

// Can reports whether the user's role grants p
func (u *User) Can(p Permission) bool {
	return u != nil && u.Role != nil && u.Role.Can(p)
}

// IsAdministrator shorthand for Can(PermissionAdminister)
func (u *User) IsAdministrator() bool {
	return u.Can(PermissionAdminister)
}

// GravatarURL returns the avatar image url for size pixels
func (u *User) GravatarURL(size int, rating string) string {
	hash := u.AvatarHash
	if hash == "" {
		hash = AvatarHash(u.Email)
	}
	if size <= 0 {
		size = 100
	}
	if rating == "" {
		rating = "g"
	}
	return fmt.Sprintf("https://secure.gravatar.com/avatar/%s?s=%d&d=identicon&r=%s", hash, size, rating)
}

// AvatarHash is the md5 hex digest of the lower cased email
func AvatarHash(email string) string {
	sum := md5.Sum([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}

// Follow is an edge in the follow graph, follower follows followed
type Follow struct {
	bun.BaseModel `bun:"table:follows,alias:fl"`
	FollowerID    uuid.UUID `bun:"follower_id,pk,type:uuid" json:"follower_id"`
	FollowedID    uuid.UUID `bun:"followed_id,pk,type:uuid" json:"followed_id"`
	Timestamp     time.Time `bun:"timestamp,notnull" json:"timestamp"`
	Follower      *User     `bun:"rel:belongs-to,join:follower_id=id" json:"follower,omitempty"`
	Followed      *User     `bun:"rel:belongs-to,join:followed_id=id" json:"followed,omitempty"`
}

// Post is a blog article
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:pst"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Body          string    `bun:"body,notnull" json:"body"`
	BodyHTML      string    `bun:"body_html" json:"body_html"`
	Timestamp     time.Time `bun:"timestamp,notnull" json:"timestamp"`
	AuthorID      uuid.UUID `bun:"author_id,notnull,type:uuid" json:"author_id"`
	Author        *User     `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
}

// Comment belongs to a post and may be disabled by a moderator
type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:cmt"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Body          string    `bun:"body,notnull" json:"body"`
	BodyHTML      string    `bun:"body_html" json:"body_html"`
	Timestamp     time.Time `bun:"timestamp,notnull" json:"timestamp"`
	Disabled      bool      `bun:"disabled,notnull" json:"disabled"`
	AuthorID      uuid.UUID `bun:"author_id,notnull,type:uuid" json:"author_id"`
	PostID        int64     `bun:"post_id,notnull" json:"post_id"`
	Author        *User     `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	Post          *Post     `bun:"rel:belongs-to,join:post_id=id" json:"post,omitempty"`
}
