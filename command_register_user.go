package blog

import (
	"context"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// UsernamePattern usernames start with a letter and use letters, digits,
// dots or underscores
var UsernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)

type RegisterUserMessage struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	// UseHashid derives the user id from the email
	UseHashid  bool        `json:"-" form:"-"`
	OnResponse func(*User) `json:"-" form:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate will validate the message
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(1, 64), is.Email),
		validation.Field(&e.Username,
			validation.Required,
			validation.Length(1, 64),
			validation.Match(UsernamePattern).Error("must have only letters, numbers, dots or underscores"),
		),
		validation.Field(&e.Password, validation.Required),
	)
}

// RegisterUserHandler creates an unconfirmed account and emails the
// confirmation token
type RegisterUserHandler struct {
	svc Services
}

func NewRegisterUserHandler(svc Services) *RegisterUserHandler {
	return &RegisterUserHandler{svc: svc}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	if err := cancelled(ctx, "user registration"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := event.Validate(); err != nil {
		return ValidationError(err, "invalid registration")
	}

	user := NewUser(event.Email, event.Username, h.svc.now())
	if err := user.SetPassword(event.Password); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(user.Email); err == nil {
			user.ID = id
		}
	}

	var role *Role
	err := h.svc.inTx(ctx, "user registration transaction failed", func(ctx context.Context, tx bun.Tx) error {
		taken, err := h.svc.Repo.Users().EmailExistsTx(ctx, tx, user.Email)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		taken, err = h.svc.Repo.Users().UsernameExistsTx(ctx, tx, user.Username)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}

		role, err = h.assignRole(ctx, tx, user.Email)
		if err != nil {
			return err
		}
		if role != nil {
			user.RoleID = role.ID
		}

		_, err = h.svc.Repo.Users().RegisterTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return err
	}
	user.Role = role

	token, err := h.svc.Tokens.GenerateConfirmationToken(user.ID, h.svc.tokenTTL())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate confirmation token")
	}

	h.svc.mail(ctx, confirmationMail(h.svc, user, token))
	h.svc.record(ctx, userActivity(ActivityEventUserRegistered, user, map[string]any{
		"username": user.Username,
	}))

	if event.OnResponse != nil {
		event.OnResponse(user)
	}
	return nil
}

// assignRole picks the administrator role for the configured admin email
// and the default role for everyone else. A missing role table leaves the
// user without a role.
func (h *RegisterUserHandler) assignRole(ctx context.Context, tx bun.IDB, email string) (*Role, error) {
	var (
		role *Role
		err  error
	)
	if admin := h.svc.adminEmail(); admin != "" && admin == email {
		role, err = h.svc.Repo.Roles().ByPermissionsTx(ctx, tx, PermissionAll)
	} else {
		role, err = h.svc.Repo.Roles().DefaultTx(ctx, tx)
	}
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.svc.logger().Warn("no role available for %s, run deploy to insert roles", email)
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}

func confirmationMail(svc Services, user *User, token string) MailMessage {
	return MailMessage{
		To:       user.Email,
		Subject:  "Confirm Your Account",
		Template: "auth/email/confirm",
		Params: map[string]any{
			"username": user.Username,
			"token":    token,
			"url":      svc.link("/auth/confirm/" + token),
		},
	}
}
