package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core/user"
)

// accessTokenMiddleware rejects refresh tokens and revoked tokens. It runs after the JWT middleware.
func accessTokenMiddleware(auth *authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.TokenType != tokenAccess {
				return errInvalidToken
			}
			revoked, err := auth.isRevoked(ctx, claims)
			if err != nil {
				return err
			}
			if revoked {
				return errInvalidToken
			}
			return next(ctx)
		}
	}
}

// adminMiddleware only lets active superusers through.
func adminMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsActive {
				return errUnauthorized
			}
			if !usr.IsSuperuser {
				return errNotAdmin
			}
			return next(ctx)
		}
	}
}
