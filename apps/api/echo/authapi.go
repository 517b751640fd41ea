package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/session"
	"github.com/cadenza-app/cadenza/core/user"
)

type authApi struct {
	sessionMgr *session.Manager
	userSvc    *user.Service
}

func registerAuthAPI(g *echo.Group, auth echo.MiddlewareFunc, deps *Deps) {
	api := authApi{sessionMgr: deps.SessionMgr, userSvc: deps.UserSvc}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login`, `/token` & `/password-reset`
	ag.POST("/login", api.login)
	ag.POST("/token", api.token)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	sg := ag.Group("", auth)
	sg.GET("/session", api.session)
	sg.POST("/logout", api.logout)
	sg.POST("/logout-all", api.logoutAll)
	sg.POST("/token-refresh", api.refreshToken)
}

// Handlers

// login authenticates portal users and starts a cookie-backed session.
func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := authenticate(data.Username, data.Password, api.userSvc)
	if err != nil {
		return err
	}

	_, cookieVal, err := api.sessionMgr.Start(usr.ID, usr.Roles)
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	setSessionCookie(ctx, cookieVal)
	return ctx.JSON(http.StatusOK, usr)
}

// token authenticates API clients and returns a JWT instead of a session.
func (api *authApi) token(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := authenticate(data.Username, data.Password, api.userSvc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) session(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *authApi) logout(ctx echo.Context) error {
	auth, err := getContextAuth(ctx)
	if err != nil {
		return err
	}
	if auth.CookieVal != "" {
		if err := api.sessionMgr.Destroy(auth.CookieVal); err != nil {
			return errors.Wrap(err, "destroying session")
		}
	}
	expireSessionCookie(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

// logoutAll revokes every session of the calling user, on all their devices.
func (api *authApi) logoutAll(ctx echo.Context) error {
	auth, err := getContextAuth(ctx)
	if err != nil {
		return err
	}
	if err := api.sessionMgr.DestroyAll(auth.UserID); err != nil {
		return errors.Wrap(err, "destroying sessions")
	}
	expireSessionCookie(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.userSvc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.userSvc.RequestPasswordReset(data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.userSvc.ResetPassword(data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.Validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate() error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return core.Validate.Struct(pr)
}
