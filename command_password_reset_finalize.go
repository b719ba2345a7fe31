package blog

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Token    string `json:"token" form:"token"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (e FinalizePasswordResetMessage) Type() string { return "password.reset.finalize" }

// Validate will validate the message
func (e FinalizePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Token, validation.Required),
		validation.Field(&e.Email, validation.Required, validation.Length(1, 64), is.Email),
		validation.Field(&e.Password, validation.Required),
	)
}

// FinalizePasswordResetHandler sets a new password when the reset token
// was minted for the account owning Email. Every mismatch is reported as
// ErrInvalidToken.
type FinalizePasswordResetHandler struct {
	svc Services
}

func NewFinalizePasswordResetHandler(svc Services) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{svc: svc}
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	if err := cancelled(ctx, "password reset finalization"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return ValidationError(err, "invalid password reset")
	}

	userID, err := h.svc.Tokens.VerifyResetToken(event.Token)
	if err != nil {
		return ErrInvalidToken
	}

	var user *User
	err = h.svc.inTx(ctx, "failed to finalize password reset", func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.svc.Repo.Users().GetByIDTx(ctx, tx, userID.String())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrInvalidToken
			}
			return err
		}

		if user.Email != NormalizeEmail(event.Email) {
			return ErrInvalidToken
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

	h.svc.record(ctx, userActivity(ActivityEventPasswordResetSuccess, user, nil))
	return nil
}
