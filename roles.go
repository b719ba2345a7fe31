package blog

import (
	"strings"

	"github.com/uptrace/bun"
)

// Permission is a bit in a role's permission mask
type Permission int

const (
	// PermissionFollow follow other users
	PermissionFollow Permission = 0x01
	// PermissionComment comment on posts
	PermissionComment Permission = 0x02
	// PermissionWriteArticles write posts
	PermissionWriteArticles Permission = 0x04
	// PermissionModerateComments enable or disable comments
	PermissionModerateComments Permission = 0x08
	// PermissionAdminister full access
	PermissionAdminister Permission = 0x80
)

// PermissionAll is the mask granted to administrators
const PermissionAll Permission = 0xff

const (
	RoleNameUser          = "User"
	RoleNameModerator     = "Moderator"
	RoleNameAdministrator = "Administrator"
)

// String renders the set bits, e.g. "follow|comment"
func (p Permission) String() string {
	if p == 0 {
		return "none"
	}
	names := []struct {
		bit  Permission
		name string
	}{
		{PermissionFollow, "follow"},
		{PermissionComment, "comment"},
		{PermissionWriteArticles, "write_articles"},
		{PermissionModerateComments, "moderate_comments"},
		{PermissionAdminister, "administer"},
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if p&n.bit == n.bit {
			out = append(out, n.name)
		}
	}
	if len(out) == 0 {
		return "none"
	}
	return strings.Join(out, "|")
}

// Role is a named permission set. Exactly one role is the default.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rl"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	Name          string     `bun:"name,notnull,unique" json:"name"`
	Default       bool       `bun:"is_default,notnull,default:false" json:"default"`
	Permissions   Permission `bun:"permissions,notnull,default:0" json:"permissions"`
}

// Can reports whether every bit of p is granted by the role
func (r *Role) Can(p Permission) bool {
	if r == nil {
		return false
	}
	return r.Permissions&p == p
}

// RoleDefinition describes a role created by bootstrap
type RoleDefinition struct {
	Name        string
	Permissions Permission
	Default     bool
}

// DefaultRoles is the canonical role table
var DefaultRoles = []RoleDefinition{
	{
		Name:        RoleNameUser,
		Permissions: PermissionFollow | PermissionComment | PermissionWriteArticles,
		Default:     true,
	},
	{
		Name:        RoleNameModerator,
		Permissions: PermissionFollow | PermissionComment | PermissionWriteArticles | PermissionModerateComments,
	},
	{
		Name:        RoleNameAdministrator,
		Permissions: PermissionAll,
	},
}
