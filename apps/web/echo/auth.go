package echoweb

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
	oauthsvc "github.com/trezcool/campus/services/oauth"
)

const (
	msgSignedOut        = "You have been signed out."
	msgPasswordUpdated  = "Your password has been updated. Please sign in."
	resetPasswordUpdate = "/reset-password/update"
	signInMethodPwd     = "password"
)

// authForm backs every sign in, sign up and password reset page.
type authForm struct {
	ReturnTo  string
	Name      string
	Email     string
	UID       string
	Token     string
	Sent      bool
	Error     string
	Fields    map[string]string
	Providers []string
}

func registerAuthPages(s *Server, limiter echo.MiddlewareFunc) {
	s.app.GET("/login", s.loginPage)
	s.app.POST("/login", s.login, limiter)
	s.app.GET("/signup", s.signupPage)
	s.app.POST("/signup", s.signup, limiter)
	s.app.POST("/logout", s.logout)
	s.app.GET("/reset-password", s.resetPasswordPage)
	s.app.POST("/reset-password", s.requestPasswordReset, limiter)
	s.app.GET(resetPasswordUpdate, s.updatePasswordPage)
	s.app.POST(resetPasswordUpdate, s.updatePassword, limiter)

	s.app.GET(oauthsvc.Callback, s.oauthCallback)
	s.app.GET("/auth/:provider", s.oauthStart)
}

func (s *Server) newAuthForm(returnTo string) authForm {
	return authForm{ReturnTo: returnTo, Providers: s.deps.Providers.Names()}
}

// setFormErrors fills form with the errors of a failed validation.
// It returns false when err is not a validation failure.
func (s *Server) setFormErrors(form *authForm, err error) bool {
	vErr, ok := core.TranslateValidationErrors(err, s.deps.Translator).(*core.ValidationError)
	if !ok {
		return false
	}
	form.Fields = vErr.FieldMap()
	if len(vErr.Fields) == 0 {
		form.Error = vErr.Error()
	}
	return true
}

// Handlers

func (s *Server) loginPage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "login", s.newAuthForm(ctx.QueryParam("returnTo")))
}

func (s *Server) login(ctx echo.Context) error {
	var data user.SignIn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignIn")
	}
	form := s.newAuthForm(ctx.FormValue("returnTo"))
	form.Email = data.Email

	if err := data.Validate(s.deps.Validate); err != nil {
		if s.setFormErrors(&form, err) {
			return s.render(ctx, http.StatusBadRequest, "login", form)
		}
		return errors.Wrap(err, "validating SignIn")
	}

	usr, err := s.deps.UserSvc.SignInWithPassword(ctx.Request().Context(), data.Email, data.Password)
	switch errors.Cause(err) {
	case nil:
	case user.ErrInvalidCredentials, user.ErrAccountDeactivated:
		signIns.WithLabelValues(signInMethodPwd, outcomeFailure).Inc()
		form.Error = user.TranslateAuthError(err)
		return s.render(ctx, http.StatusBadRequest, "login", form)
	default:
		signIns.WithLabelValues(signInMethodPwd, outcomeFailure).Inc()
		s.deps.Logger.Error(fmt.Sprintf("signing in: %v", err), err)
		form.Error = MsgServerError
		return s.render(ctx, http.StatusServiceUnavailable, "login", form)
	}

	if err = s.sessions.signIn(ctx, usr); err != nil {
		return errors.Wrap(err, "starting session")
	}
	signIns.WithLabelValues(signInMethodPwd, outcomeSuccess).Inc()
	return ctx.Redirect(http.StatusSeeOther, SafeReturnTo(form.ReturnTo))
}

func (s *Server) signupPage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "signup", s.newAuthForm(ctx.QueryParam("returnTo")))
}

func (s *Server) signup(ctx echo.Context) error {
	var data user.SignUp
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignUp")
	}
	form := s.newAuthForm(ctx.FormValue("returnTo"))

	// the record store is never reached with an invalid form
	err := data.Validate(s.deps.Validate)
	form.Name, form.Email = data.Name, data.Email
	if err == nil {
		var usr user.User
		if usr, err = s.deps.UserSvc.SignUp(ctx.Request().Context(), data); err == nil {
			if err = s.sessions.signIn(ctx, usr); err != nil {
				return errors.Wrap(err, "starting session")
			}
			return ctx.Redirect(http.StatusSeeOther, SafeReturnTo(form.ReturnTo))
		}
	}

	if s.setFormErrors(&form, err) {
		return s.render(ctx, http.StatusBadRequest, "signup", form)
	}
	s.deps.Logger.Error(fmt.Sprintf("signing up: %v", err), err)
	form.Error = MsgServerError
	return s.render(ctx, http.StatusServiceUnavailable, "signup", form)
}

func (s *Server) logout(ctx echo.Context) error {
	s.sessions.signOut(ctx)
	setFlash(ctx, flashInfo, msgSignedOut)
	return ctx.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) resetPasswordPage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "reset_password", s.newAuthForm(""))
}

func (s *Server) requestPasswordReset(ctx echo.Context) error {
	var data user.RequestPasswordReset
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RequestPasswordReset")
	}
	form := s.newAuthForm("")
	form.Email = data.Email
	if err := data.Validate(s.deps.Validate); err != nil {
		if s.setFormErrors(&form, err) {
			return s.render(ctx, http.StatusBadRequest, "reset_password", form)
		}
		return errors.Wrap(err, "validating RequestPasswordReset")
	}

	redirectTo := s.deps.Conf.FrontendBaseURL + resetPasswordUpdate
	if err := s.deps.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email, redirectTo); err != nil {
		// do not tell attackers whether the email exists
		s.deps.Logger.Error(fmt.Sprintf("requesting password reset: %v", err), err)
	}
	form.Sent = true
	return s.render(ctx, http.StatusOK, "reset_password", form)
}

func (s *Server) updatePasswordPage(ctx echo.Context) error {
	form := s.newAuthForm("")
	form.UID, form.Token = ctx.QueryParam("uid"), ctx.QueryParam("token")
	if form.UID == "" || form.Token == "" {
		form.Error = user.ErrInvalidResetLink.Error()
	}
	return s.render(ctx, http.StatusOK, "reset_password_update", form)
}

func (s *Server) updatePassword(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	form := s.newAuthForm("")
	form.UID, form.Token = data.UID, data.Token

	err := data.Validate(s.deps.Validate)
	if err == nil {
		if _, err = s.deps.UserSvc.ResetPassword(ctx.Request().Context(), data); err == nil {
			setFlash(ctx, flashSuccess, msgPasswordUpdated)
			return ctx.Redirect(http.StatusSeeOther, "/login")
		}
	}

	if s.setFormErrors(&form, err) {
		return s.render(ctx, http.StatusBadRequest, "reset_password_update", form)
	}
	return errors.Wrap(err, "resetting password")
}

// oauthStart sends the person to the consent page of the provider.
func (s *Server) oauthStart(ctx echo.Context) error {
	p, err := s.deps.Providers.Get(ctx.Param("provider"))
	if err != nil {
		return errHttpNotFound
	}
	key, err := s.deps.States.Save(ctx.Request().Context(), oauthsvc.State{
		Provider: p.Name(),
		ReturnTo: SafeReturnTo(ctx.QueryParam("returnTo")),
	})
	if err != nil {
		return core.NewRemoteError(errors.Wrap(err, "saving oauth state"), oauthsvc.MsgSignInFailed)
	}
	return ctx.Redirect(http.StatusFound, p.AuthCodeURL(key))
}

// oauthCallback completes a social sign-in, then goes to returnTo.
// Failures go back to the login page with a notice, keeping returnTo.
func (s *Server) oauthCallback(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	code, returnTo := ctx.QueryParam("code"), ctx.QueryParam("returnTo")
	if code == "" {
		return ctx.Redirect(http.StatusFound, SafeReturnTo(returnTo))
	}

	method := "oauth"
	fail := func(msg string, err error) error {
		signIns.WithLabelValues(method, outcomeFailure).Inc()
		if err != nil {
			s.deps.Logger.Error(fmt.Sprintf("oauth callback: %v", err), err)
		}
		setFlash(ctx, flashError, msg)
		target := SafeReturnTo(returnTo)
		q := make(url.Values)
		q.Set("returnTo", target)
		return ctx.Redirect(http.StatusFound, "/login?"+q.Encode())
	}

	st, err := s.deps.States.Take(rctx, ctx.QueryParam("state"))
	if err != nil {
		if errors.Cause(err) == oauthsvc.ErrInvalidState {
			return fail(oauthsvc.ErrInvalidState.Error(), nil)
		}
		return fail(oauthsvc.MsgSignInFailed, err)
	}
	if returnTo == "" {
		returnTo = st.ReturnTo
	}

	p, err := s.deps.Providers.Get(st.Provider)
	if err != nil {
		return fail(oauthsvc.MsgSignInFailed, err)
	}
	method = p.Name()

	ext, err := p.Exchange(rctx, code)
	if err != nil {
		return fail(oauthsvc.MsgSignInFailed, err)
	}
	usr, err := s.deps.UserSvc.SignInWithExternal(rctx, ext)
	switch errors.Cause(err) {
	case nil:
	case user.ErrAccountDeactivated:
		return fail(user.TranslateAuthError(err), nil)
	default:
		return fail(oauthsvc.MsgSignInFailed, err)
	}

	if err = s.sessions.signIn(ctx, usr); err != nil {
		return errors.Wrap(err, "starting session")
	}
	signIns.WithLabelValues(method, outcomeSuccess).Inc()
	return ctx.Redirect(http.StatusFound, SafeReturnTo(returnTo))
}
