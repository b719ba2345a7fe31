package blog

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type EditProfileMessage struct {
	UserID   uuid.UUID `json:"-" form:"-"`
	Name     string    `json:"name" form:"name"`
	Location string    `json:"location" form:"location"`
	AboutMe  string    `json:"about_me" form:"about_me"`
}

func (e EditProfileMessage) Type() string { return "profile.edit" }

// Validate will validate the message
func (e EditProfileMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Length(0, 64)),
		validation.Field(&e.Location, validation.Length(0, 64)),
	)
}

// EditProfileHandler updates the descriptive fields of the own profile
type EditProfileHandler struct {
	svc Services
}

func NewEditProfileHandler(svc Services) *EditProfileHandler {
	return &EditProfileHandler{svc: svc}
}

func (h *EditProfileHandler) Execute(ctx context.Context, event EditProfileMessage) error {
	if err := cancelled(ctx, "profile edit"); err != nil {
		return err
	}
	if err := event.Validate(); err != nil {
		return ValidationError(err, "invalid profile")
	}

	return h.svc.inTx(ctx, "failed to edit profile", func(ctx context.Context, tx bun.Tx) error {
		user, err := h.svc.Repo.Users().GetByIDTx(ctx, tx, event.UserID.String())
		if err != nil {
			return err
		}
		user.Name = event.Name
		user.Location = event.Location
		user.AboutMe = event.AboutMe
		_, err = h.svc.Repo.Users().UpdateTx(ctx, tx, user, repository.UpdateColumns("name", "location", "about_me"))
		return err
	})
}

type AdminEditProfileMessage struct {
	Actor     Identity  `json:"-" form:"-"`
	UserID    uuid.UUID `json:"-" form:"-"`
	Email     string    `json:"email" form:"email"`
	Username  string    `json:"username" form:"username"`
	Confirmed bool      `json:"confirmed" form:"confirmed"`
	RoleName  string    `json:"role" form:"role"`
	Name      string    `json:"name" form:"name"`
	Location  string    `json:"location" form:"location"`
	AboutMe   string    `json:"about_me" form:"about_me"`
}

func (e AdminEditProfileMessage) Type() string { return "profile.admin_edit" }

// Validate will validate the message
func (e AdminEditProfileMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(1, 64), is.Email),
		validation.Field(&e.Username,
			validation.Required,
			validation.Length(1, 64),
			validation.Match(UsernamePattern),
		),
		validation.Field(&e.RoleName, validation.Required),
		validation.Field(&e.Name, validation.Length(0, 64)),
		validation.Field(&e.Location, validation.Length(0, 64)),
	)
}

// AdminEditProfileHandler lets an administrator edit any account
type AdminEditProfileHandler struct {
	svc Services
}

func NewAdminEditProfileHandler(svc Services) *AdminEditProfileHandler {
	return &AdminEditProfileHandler{svc: svc}
}

func (h *AdminEditProfileHandler) Execute(ctx context.Context, event AdminEditProfileMessage) error {
	if err := cancelled(ctx, "admin profile edit"); err != nil {
		return err
	}
	if err := RequirePermission(event.Actor, PermissionAdminister); err != nil {
		return err
	}
	if err := event.Validate(); err != nil {
		return ValidationError(err, "invalid profile")
	}

	return h.svc.inTx(ctx, "failed to edit profile", func(ctx context.Context, tx bun.Tx) error {
		user, err := h.svc.Repo.Users().GetByIDTx(ctx, tx, event.UserID.String())
		if err != nil {
			return err
		}

		email := NormalizeEmail(event.Email)
		if email != user.Email {
			taken, err := h.svc.Repo.Users().EmailExistsTx(ctx, tx, email)
			if err != nil {
				return err
			}
			if taken {
				return ErrEmailTaken
			}
		}

		if event.Username != user.Username {
			taken, err := h.svc.Repo.Users().UsernameExistsTx(ctx, tx, event.Username)
			if err != nil {
				return err
			}
			if taken {
				return ErrUsernameTaken
			}
		}

		role, err := h.svc.Repo.Roles().GetByNameTx(ctx, tx, event.RoleName)
		if err != nil {
			return err
		}

		user.SetEmail(email)
		user.Username = event.Username
		user.Confirmed = event.Confirmed
		user.RoleID = role.ID
		user.Role = role
		user.Name = event.Name
		user.Location = event.Location
		user.AboutMe = event.AboutMe

		_, err = h.svc.Repo.Users().UpdateTx(ctx, tx, user, repository.UpdateColumns(
			"email", "avatar_hash", "username", "confirmed", "role_id", "name", "location", "about_me",
		))
		return err
	})
}
