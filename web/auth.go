package web

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-blog"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// LoginPayload is the login form
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Remember bool   `form:"remember_me" json:"remember_me"`
}

// Validate will validate the payload
func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, validation.Length(1, 64), is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

func (w *Web) LoginPost(c router.Context) error {
	payload := new(LoginPayload)
	if err := w.bind(c, payload); err != nil {
		return w.fail(c, err, w.Routes.Login, "")
	}

	user, err := w.users.VerifyCredentials(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return w.fail(c, err, w.Routes.Login, "Invalid username or password.")
	}

	if err := w.sessions.Login(c, user, payload.Remember); err != nil {
		return w.abort(c, err)
	}
	return w.redirect(c, safeNext(c.Query("next"), w.Routes.Index))
}

func (w *Web) Logout(c router.Context) error {
	w.sessions.Logout(c)
	return w.success(c, w.Routes.Index, "You have been logged out.")
}

// RegistrationPayload is the registration form
type RegistrationPayload struct {
	Email           string `form:"email" json:"email"`
	Username        string `form:"username" json:"username"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (p RegistrationPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Password, validation.Required),
		validation.Field(
			&p.ConfirmPassword,
			validation.Required,
			validation.By(blog.ValidateStringEquals(p.Password)),
		),
	)
}

func (w *Web) RegisterPost(c router.Context) error {
	payload := new(RegistrationPayload)
	if err := w.bind(c, payload); err != nil {
		return w.fail(c, err, w.Routes.Register, "")
	}

	var user *blog.User
	err := blog.NewRegisterUserHandler(w.svc).Execute(c.Context(), blog.RegisterUserMessage{
		Email:      payload.Email,
		Username:   payload.Username,
		Password:   payload.Password,
		OnResponse: func(u *blog.User) { user = u },
	})
	if err != nil {
		return w.fail(c, err, w.Routes.Register, "")
	}

	if w.Debug {
		w.logger.Debug("registered user: %s", print.MaybePrettyJSON(user))
	}

	return w.success(c, w.Routes.Index, "A confirmation email has been sent to you by email.")
}

func (w *Web) Confirm(c router.Context) error {
	user := blog.RequestIdentity(c).User()

	var resp *blog.ConfirmAccountResponse
	err := blog.NewConfirmAccountHandler(w.svc).Execute(c.Context(), blog.ConfirmAccountMessage{
		UserID:     user.ID,
		Token:      c.Param("token"),
		OnResponse: func(r *blog.ConfirmAccountResponse) { resp = r },
	})
	if err != nil {
		return w.fail(c, err, w.Routes.Index, "The confirmation link is invalid or has expired.")
	}

	if resp.AlreadyConfirmed {
		return w.redirect(c, w.Routes.Index)
	}
	return w.success(c, w.Routes.Index, "You have confirmed your account. Thanks!")
}

func (w *Web) Unconfirmed(c router.Context) error {
	identity := blog.RequestIdentity(c)
	if identity.IsAnonymous() || identity.IsConfirmed() {
		return w.redirect(c, w.Routes.Index)
	}
	return w.render(c, FormView{Form: "unconfirmed"})
}

func (w *Web) ResendConfirmation(c router.Context) error {
	user := blog.RequestIdentity(c).User()
	err := blog.NewResendConfirmationHandler(w.svc).Execute(c.Context(), blog.ResendConfirmationMessage{
		UserID: user.ID,
	})
	if err != nil {
		return w.abort(c, err)
	}

	return w.success(c, w.Routes.Index, "A new confirmation email has been sent to you by email.")
}

// ChangePasswordPayload is the change password form
type ChangePasswordPayload struct {
	OldPassword     string `form:"old_password" json:"old_password"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// ChangePasswordPost logs the user out once the password changed
func (w *Web) ChangePasswordPost(c router.Context) error {
	payload := new(ChangePasswordPayload)
	if err := w.bind(c, payload); err != nil {
		return w.fail(c, err, w.Routes.ChangePassword, "")
	}

	err := blog.NewChangePasswordHandler(w.svc).Execute(c.Context(), blog.ChangePasswordMessage{
		UserID:          blog.RequestIdentity(c).User().ID,
		OldPassword:     payload.OldPassword,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
	})
	if err != nil {
		message := ""
		if isUnauthorized(err) {
			message = "Invalid password."
		}
		return w.fail(c, err, w.Routes.ChangePassword, message)
	}

	w.sessions.Logout(c)
	return w.success(c, w.Routes.Login, "Your password has been updated. Please log in again.")
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

func (w *Web) PasswordResetPost(c router.Context) error {
	payload := new(PasswordResetRequestPayload)
	if err := w.bind(c, payload); err != nil {
		return w.fail(c, err, w.Routes.PasswordReset, "")
	}

	var res *blog.InitializePasswordResetResponse
	err := blog.NewInitializePasswordResetHandler(w.svc).Execute(c.Context(), blog.InitializePasswordResetMessage{
		Email:      payload.Email,
		OnResponse: func(r *blog.InitializePasswordResetResponse) { res = r },
	})
	if err != nil {
		return w.fail(c, err, w.Routes.PasswordReset, "")
	}

	if w.Debug {
		w.logger.Debug("password reset: %s", print.MaybePrettyJSON(res))
	}

	return w.success(c, w.Routes.Login, res.Message)
}

// PasswordResetPayload holds values for the password reset form
type PasswordResetPayload struct {
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (p PasswordResetPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(
			&p.ConfirmPassword,
			validation.Required,
			validation.By(blog.ValidateStringEquals(p.Password)),
		),
	)
}

func (w *Web) PasswordResetExecute(c router.Context) error {
	token := c.Param("token")
	retry := fmt.Sprintf("%s/%s", w.Routes.PasswordReset, token)

	payload := new(PasswordResetPayload)
	if err := w.bind(c, payload); err != nil {
		return w.fail(c, err, retry, "")
	}

	err := blog.NewFinalizePasswordResetHandler(w.svc).Execute(c.Context(), blog.FinalizePasswordResetMessage{
		Token:    token,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		if isUnauthorized(err) {
			return w.fail(c, err, w.Routes.Index, "Invalid request.")
		}
		return w.fail(c, err, retry, "")
	}

	return w.success(c, w.Routes.Login, "Your password has been updated.")
}

// ChangeEmailPayload is the change email form
type ChangeEmailPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (w *Web) ChangeEmailPost(c router.Context) error {
	payload := new(ChangeEmailPayload)
	if err := w.bind(c, payload); err != nil {
		return w.fail(c, err, w.Routes.ChangeEmail, "")
	}

	err := blog.NewRequestEmailChangeHandler(w.svc).Execute(c.Context(), blog.RequestEmailChangeMessage{
		UserID:   blog.RequestIdentity(c).User().ID,
		NewEmail: payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		message := ""
		if isUnauthorized(err) {
			message = "Invalid email or password."
		}
		return w.fail(c, err, w.Routes.ChangeEmail, message)
	}

	return w.success(c, w.Routes.Index, "An email with instructions to confirm your new email address has been sent to you.")
}

func (w *Web) ChangeEmail(c router.Context) error {
	err := blog.NewFinalizeEmailChangeHandler(w.svc).Execute(c.Context(), blog.FinalizeEmailChangeMessage{
		UserID: blog.RequestIdentity(c).User().ID,
		Token:  c.Param("token"),
	})
	if err != nil {
		return w.fail(c, err, w.Routes.Index, "Invalid request.")
	}

	return w.success(c, w.Routes.Index, "Your email address has been updated.")
}

type validatable interface {
	Validate() error
}

// bind parses the request body into payload and validates it when the
// payload knows how
func (w *Web) bind(c router.Context, payload any) error {
	if err := c.Bind(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "Failed to parse form").
			WithCode(goerrors.CodeBadRequest)
	}
	if v, ok := payload.(validatable); ok {
		if err := v.Validate(); err != nil {
			return blog.ValidationError(err, "Please correct the errors in the form")
		}
	}
	return nil
}

func isUnauthorized(err error) bool {
	return blog.StatusCode(err) == router.StatusUnauthorized
}
