package blog

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ConfirmAccountMessage struct {
	UserID     uuid.UUID
	Token      string
	OnResponse func(*ConfirmAccountResponse)
}

func (e ConfirmAccountMessage) Type() string { return "user.confirm" }

type ConfirmAccountResponse struct {
	Confirmed        bool
	AlreadyConfirmed bool
}

// ConfirmAccountHandler redeems a confirmation token for the logged in
// user. Confirming twice is a no-op.
type ConfirmAccountHandler struct {
	svc Services
}

func NewConfirmAccountHandler(svc Services) *ConfirmAccountHandler {
	return &ConfirmAccountHandler{svc: svc}
}

func (h *ConfirmAccountHandler) Execute(ctx context.Context, event ConfirmAccountMessage) error {
	if err := cancelled(ctx, "account confirmation"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *ConfirmAccountHandler) execute(ctx context.Context, event ConfirmAccountMessage) error {
	resp := &ConfirmAccountResponse{}
	var user *User

	err := h.svc.inTx(ctx, "account confirmation failed", func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.svc.Repo.Users().GetByIDTx(ctx, tx, event.UserID.String())
		if err != nil {
			return err
		}

		if user.Confirmed {
			resp.Confirmed = true
			resp.AlreadyConfirmed = true
			return nil
		}

		if err := h.svc.Tokens.VerifyConfirmationToken(event.Token, user.ID); err != nil {
			return err
		}

		user.Confirmed = true
		_, err = h.svc.Repo.Users().UpdateTx(ctx, tx, user, repository.UpdateColumns("confirmed"))
		resp.Confirmed = err == nil
		return err
	})
	if err != nil {
		return err
	}

	if !resp.AlreadyConfirmed {
		h.svc.record(ctx, userActivity(ActivityEventUserConfirmed, user, nil))
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}
	return nil
}

type ResendConfirmationMessage struct {
	UserID uuid.UUID
}

func (e ResendConfirmationMessage) Type() string { return "user.confirm.resend" }

// ResendConfirmationHandler emails a fresh confirmation token
type ResendConfirmationHandler struct {
	svc Services
}

func NewResendConfirmationHandler(svc Services) *ResendConfirmationHandler {
	return &ResendConfirmationHandler{svc: svc}
}

func (h *ResendConfirmationHandler) Execute(ctx context.Context, event ResendConfirmationMessage) error {
	if err := cancelled(ctx, "confirmation resend"); err != nil {
		return err
	}

	user, err := h.svc.Repo.Users().FindByID(ctx, event.UserID)
	if err != nil {
		return err
	}
	if user.Confirmed {
		return nil
	}

	token, err := h.svc.Tokens.GenerateConfirmationToken(user.ID, h.svc.tokenTTL())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate confirmation token")
	}

	h.svc.mail(ctx, confirmationMail(h.svc, user, token))
	return nil
}
