package blog_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-blog"
	"github.com/stretchr/testify/assert"
)

var allPermissions = []blog.Permission{
	blog.PermissionFollow,
	blog.PermissionComment,
	blog.PermissionWriteArticles,
	blog.PermissionModerateComments,
	blog.PermissionAdminister,
}

func roleFor(t *testing.T, name string) *blog.Role {
	t.Helper()
	for _, def := range blog.DefaultRoles {
		if def.Name == name {
			return &blog.Role{Name: def.Name, Permissions: def.Permissions, Default: def.Default}
		}
	}
	t.Fatalf("role %s not defined", name)
	return nil
}

func TestRolePermissions(t *testing.T) {
	tests := []struct {
		role  string
		grant []blog.Permission
	}{
		{
			role:  blog.RoleNameUser,
			grant: []blog.Permission{blog.PermissionFollow, blog.PermissionComment, blog.PermissionWriteArticles},
		},
		{
			role: blog.RoleNameModerator,
			grant: []blog.Permission{
				blog.PermissionFollow, blog.PermissionComment,
				blog.PermissionWriteArticles, blog.PermissionModerateComments,
			},
		},
		{
			role:  blog.RoleNameAdministrator,
			grant: allPermissions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			role := roleFor(t, tt.role)
			granted := map[blog.Permission]bool{}
			for _, p := range tt.grant {
				granted[p] = true
			}
			for _, p := range allPermissions {
				assert.Equal(t, granted[p], role.Can(p), "permission %s", p)
			}
		})
	}
}

func TestRoleCanRequiresEveryBit(t *testing.T) {
	role := roleFor(t, blog.RoleNameUser)

	assert.True(t, role.Can(blog.PermissionFollow|blog.PermissionComment))
	assert.False(t, role.Can(blog.PermissionFollow|blog.PermissionModerateComments))

	var missing *blog.Role
	assert.False(t, missing.Can(blog.PermissionFollow))
}

func TestRolesAreMonotonic(t *testing.T) {
	user := roleFor(t, blog.RoleNameUser)
	moderator := roleFor(t, blog.RoleNameModerator)
	admin := roleFor(t, blog.RoleNameAdministrator)

	for _, p := range allPermissions {
		if user.Can(p) {
			assert.True(t, moderator.Can(p), "moderator should have %s", p)
		}
		if moderator.Can(p) {
			assert.True(t, admin.Can(p), "administrator should have %s", p)
		}
	}
}

func TestExactlyOneDefaultRole(t *testing.T) {
	defaults := 0
	for _, def := range blog.DefaultRoles {
		if def.Default {
			defaults++
			assert.Equal(t, blog.RoleNameUser, def.Name)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestAnonymousIdentityHasNoPermissions(t *testing.T) {
	anon := blog.AnonymousIdentity{}

	assert.True(t, anon.IsAnonymous())
	assert.False(t, anon.IsConfirmed())
	assert.False(t, anon.IsAdministrator())
	assert.Nil(t, anon.User())
	for _, p := range allPermissions {
		assert.False(t, anon.Can(p))
	}
	assert.ErrorIs(t, blog.RequirePermission(anon, blog.PermissionFollow), blog.ErrInsufficientPermissions)
}

func TestUserIdentity(t *testing.T) {
	user := &blog.User{Confirmed: true, Role: roleFor(t, blog.RoleNameAdministrator)}
	identity := blog.NewUserIdentity(user, blog.AuthMethodToken)

	assert.False(t, identity.IsAnonymous())
	assert.True(t, identity.IsConfirmed())
	assert.True(t, identity.IsAdministrator())
	assert.Equal(t, blog.AuthMethodToken, identity.Method())
	assert.NoError(t, blog.RequirePermission(identity, blog.PermissionModerateComments))

	roleless := blog.NewUserIdentity(&blog.User{}, blog.AuthMethodPassword)
	assert.False(t, roleless.Can(blog.PermissionFollow))

	assert.True(t, blog.NewUserIdentity(nil, blog.AuthMethodPassword).IsAnonymous())
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.True(t, blog.IdentityFromContext(ctx).IsAnonymous())

	user := &blog.User{Role: roleFor(t, blog.RoleNameUser)}
	ctx = blog.WithIdentity(ctx, blog.NewUserIdentity(user, blog.AuthMethodSession))

	got, ok := blog.UserFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, user, got)
	assert.True(t, blog.Can(ctx, blog.PermissionWriteArticles))
	assert.False(t, blog.Can(ctx, blog.PermissionAdminister))
}

func TestPermissionString(t *testing.T) {
	assert.Equal(t, "none", blog.Permission(0).String())
	assert.Equal(t, "follow|comment", (blog.PermissionFollow | blog.PermissionComment).String())
}
