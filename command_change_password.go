package blog

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	UserID          uuid.UUID `json:"-" form:"-"`
	OldPassword     string    `json:"old_password" form:"old_password"`
	Password        string    `json:"password" form:"password"`
	ConfirmPassword string    `json:"confirm_password" form:"confirm_password"`
}

func (e ChangePasswordMessage) Type() string { return "password.change" }

// Validate will validate the message
func (e ChangePasswordMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.OldPassword, validation.Required),
		validation.Field(&e.Password, validation.Required),
		validation.Field(
			&e.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(e.Password)),
		),
	)
}

// ChangePasswordHandler replaces the password after checking the old one
type ChangePasswordHandler struct {
	svc Services
}

func NewChangePasswordHandler(svc Services) *ChangePasswordHandler {
	return &ChangePasswordHandler{svc: svc}
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	if err := cancelled(ctx, "password change"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	if err := event.Validate(); err != nil {
		return ValidationError(err, "invalid password change")
	}

	var user *User
	err := h.svc.inTx(ctx, "failed to change password", func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.svc.Repo.Users().GetByIDTx(ctx, tx, event.UserID.String())
		if err != nil {
			return err
		}

		if !user.VerifyPassword(event.OldPassword) {
			return ErrInvalidCredentials
		}

		if err := user.SetPassword(event.Password); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		_, err = h.svc.Repo.Users().UpdateTx(ctx, tx, user, repository.UpdateColumns("password_hash"))
		return err
	})
	if err != nil {
		return err
	}

	h.svc.record(ctx, userActivity(ActivityEventPasswordChanged, user, nil))
	return nil
}

// ValidateStringEquals builds a rule requiring the value to equal str
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return goerrors.New("values do not match", goerrors.CategoryValidation)
		}
		return nil
	}
}
