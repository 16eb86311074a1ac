package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core/user"
)

type (
	userResponse struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		Email       string `json:"email"`
		IsSuperuser bool   `json:"is_superuser"`
	}

	loginResponse struct {
		Message string       `json:"message"`
		User    userResponse `json:"user"`
	}

	messageResponse struct {
		Message string `json:"message"`
	}
)

func newUserResponse(usr user.User) userResponse {
	return userResponse{
		ID:          usr.ID,
		Username:    usr.Username,
		Email:       usr.Email,
		IsSuperuser: usr.IsSuperuser,
	}
}

type authApi struct {
	auth     *authenticator
	svc      *user.Service
	validate *validator.Validate
}

func registerAuthAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	auth *authenticator,
	svc *user.Service,
	validate *validator.Validate,
) {
	api := authApi{auth: auth, svc: svc, validate: validate}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
	ag.POST("/refresh", api.refresh)
	ag.GET("/me", api.me, authed...)
}

func (api *authApi) login(ctx echo.Context) error {
	var creds user.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return errMissingCredentials
	}
	if err := creds.Validate(api.validate); err != nil {
		return errMissingCredentials
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), creds)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials:
			return errInvalidCredentials
		case user.ErrNotAdmin:
			return errNotAdmin
		}
		return errors.Wrap(err, "authenticating")
	}

	if err = api.auth.issueToken(ctx, usr, tokenAccess); err != nil {
		return errors.Wrap(err, "issuing access token")
	}
	if err = api.auth.issueToken(ctx, usr, tokenRefresh); err != nil {
		return errors.Wrap(err, "issuing refresh token")
	}
	return ctx.JSON(http.StatusOK, loginResponse{Message: "Login successful", User: newUserResponse(usr)})
}

// logout revokes whichever valid tokens the client still holds, then clears the cookies.
func (api *authApi) logout(ctx echo.Context) error {
	for name, tokenType := range map[string]string{AccessTokenCookie: tokenAccess, RefreshTokenCookie: tokenRefresh} {
		cookie, err := ctx.Cookie(name)
		if err != nil || cookie.Value == "" {
			continue
		}
		claims, err := api.auth.parseToken(cookie.Value, tokenType)
		if err != nil {
			continue
		}
		if err = api.auth.revoke(ctx, claims); err != nil {
			return err
		}
	}

	api.auth.clearCookies(ctx)
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (api *authApi) refresh(ctx echo.Context) error {
	cookie, err := ctx.Cookie(RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return errRefreshNotFound
	}
	claims, err := api.auth.parseToken(cookie.Value, tokenRefresh)
	if err != nil {
		return errInvalidRefresh
	}
	revoked, err := api.auth.isRevoked(ctx, claims)
	if err != nil {
		return err
	}
	if revoked {
		return errInvalidRefresh
	}

	usr, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errInvalidRefresh
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if !(usr.IsActive && usr.IsSuperuser) {
		return errInvalidRefresh
	}

	if err = api.auth.issueToken(ctx, usr, tokenAccess); err != nil {
		return errors.Wrap(err, "issuing access token")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Token refreshed"})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newUserResponse(usr))
}
