package blog

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RequestEmailChangeMessage struct {
	UserID   uuid.UUID `json:"-" form:"-"`
	NewEmail string    `json:"email" form:"email"`
	Password string    `json:"password" form:"password"`
}

func (e RequestEmailChangeMessage) Type() string { return "email.change.request" }

// Validate will validate the message
func (e RequestEmailChangeMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.NewEmail, validation.Required, validation.Length(1, 64), is.Email),
		validation.Field(&e.Password, validation.Required),
	)
}

// RequestEmailChangeHandler re-authenticates the user and mails a token
// bound to the new address to that address
type RequestEmailChangeHandler struct {
	svc Services
}

func NewRequestEmailChangeHandler(svc Services) *RequestEmailChangeHandler {
	return &RequestEmailChangeHandler{svc: svc}
}

func (h *RequestEmailChangeHandler) Execute(ctx context.Context, event RequestEmailChangeMessage) error {
	if err := cancelled(ctx, "email change request"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *RequestEmailChangeHandler) execute(ctx context.Context, event RequestEmailChangeMessage) error {
	if err := event.Validate(); err != nil {
		return ValidationError(err, "invalid email change request")
	}

	newEmail := NormalizeEmail(event.NewEmail)

	var user *User
	err := h.svc.inTx(ctx, "failed to request email change", func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.svc.Repo.Users().GetByIDTx(ctx, tx, event.UserID.String())
		if err != nil {
			return err
		}

		if !user.VerifyPassword(event.Password) {
			return ErrInvalidCredentials
		}

		taken, err := h.svc.Repo.Users().EmailExistsTx(ctx, tx, newEmail)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
		return nil
	})
	if err != nil {
		return err
	}

	token, err := h.svc.Tokens.GenerateEmailChangeToken(user.ID, newEmail, h.svc.tokenTTL())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate email change token")
	}

	h.svc.mail(ctx, MailMessage{
		To:       newEmail,
		Subject:  "Confirm your email address",
		Template: "auth/email/change_email",
		Params: map[string]any{
			"username": user.Username,
			"token":    token,
			"url":      h.svc.link("/auth/change-email/" + token),
		},
	})
	h.svc.record(ctx, userActivity(ActivityEventEmailChangeRequest, user, map[string]any{
		"new_email": newEmail,
	}))
	return nil
}

type FinalizeEmailChangeMessage struct {
	UserID uuid.UUID
	Token  string
}

func (e FinalizeEmailChangeMessage) Type() string { return "email.change.finalize" }

// FinalizeEmailChangeHandler applies the address carried by the token.
// Availability is checked again because another account may have claimed
// the address after the request; the unique index settles any race.
type FinalizeEmailChangeHandler struct {
	svc Services
}

func NewFinalizeEmailChangeHandler(svc Services) *FinalizeEmailChangeHandler {
	return &FinalizeEmailChangeHandler{svc: svc}
}

func (h *FinalizeEmailChangeHandler) Execute(ctx context.Context, event FinalizeEmailChangeMessage) error {
	if err := cancelled(ctx, "email change finalization"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *FinalizeEmailChangeHandler) execute(ctx context.Context, event FinalizeEmailChangeMessage) error {
	newEmail, err := h.svc.Tokens.VerifyEmailChangeToken(event.Token, event.UserID)
	if err != nil {
		return ErrInvalidToken
	}

	var user *User
	var previous string
	err = h.svc.inTx(ctx, "failed to change email", func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.svc.Repo.Users().GetByIDTx(ctx, tx, event.UserID.String())
		if err != nil {
			return err
		}

		if user.Email == newEmail {
			return nil
		}

		taken, err := h.svc.Repo.Users().EmailExistsTx(ctx, tx, newEmail)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		previous = user.Email
		user.SetEmail(newEmail)
		_, err = h.svc.Repo.Users().UpdateTx(ctx, tx, user, repository.UpdateColumns("email", "avatar_hash"))
		return err
	})
	if err != nil {
		return err
	}

	if previous != "" {
		h.svc.record(ctx, userActivity(ActivityEventEmailChanged, user, map[string]any{
			"previous_email": previous,
			"new_email":      newEmail,
		}))
	}
	return nil
}
