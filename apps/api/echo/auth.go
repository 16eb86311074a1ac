package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/user"
)

// Auth cookies
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// Token types
const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

var NowFunc = time.Now // mockable

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	TokenType string `json:"token_type"`
	Username  string `json:"username,omitempty"`
}

// authenticator issues, parses and revokes the auth tokens.
type authenticator struct {
	conf      *core.Config
	key       []byte
	blacklist core.TokenBlacklist
}

func newAuthenticator(conf *core.Config, blacklist core.TokenBlacklist) *authenticator {
	return &authenticator{conf: conf, key: []byte(conf.SecretKey), blacklist: blacklist}
}

// jwtConfig is the JWT auth middleware config, reading access tokens from their cookie.
func (a *authenticator) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    a.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
		TokenLookup:   "cookie:" + AccessTokenCookie,
	}
}

func (a *authenticator) lifetime(tokenType string) time.Duration {
	if tokenType == tokenRefresh {
		return a.conf.Server.JWTRefreshExpirationDelta
	}
	return a.conf.Server.JWTExpirationDelta
}

func (a *authenticator) newClaims(usr user.User, tokenType string) *Claims {
	now := NowFunc()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(a.lifetime(tokenType)).Unix(),
			IssuedAt:  now.Unix(),
		},
		TokenType: tokenType,
		Username:  usr.Username,
	}
}

// generateToken generates a signed JWT token string representing the user Claims.
func (a *authenticator) generateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString(a.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// parseToken validates a token string and returns its claims.
func (a *authenticator) parseToken(tokenStr, tokenType string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected jwt signing method=%v", token.Header["alg"])
		}
		return a.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.TokenType != tokenType {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (a *authenticator) isRevoked(ctx echo.Context, claims *Claims) (bool, error) {
	revoked, err := a.blacklist.IsRevoked(ctx.Request().Context(), claims.Id)
	return revoked, errors.Wrap(err, "checking token blacklist")
}

// revoke blacklists a token until it expires.
func (a *authenticator) revoke(ctx echo.Context, claims *Claims) error {
	ttl := time.Unix(claims.ExpiresAt, 0).Sub(NowFunc())
	return errors.Wrap(a.blacklist.Revoke(ctx.Request().Context(), claims.Id, ttl), "revoking token")
}

func (a *authenticator) setCookie(ctx echo.Context, name, value string, maxAge time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.conf.Server.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
		cookie.Expires = NowFunc().Add(maxAge)
	} else {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	}
	ctx.SetCookie(cookie)
}

// issueToken signs a new token of `tokenType` for usr and sets it as a cookie.
func (a *authenticator) issueToken(ctx echo.Context, usr user.User, tokenType string) error {
	token, err := a.generateToken(a.newClaims(usr, tokenType))
	if err != nil {
		return err
	}
	name := AccessTokenCookie
	if tokenType == tokenRefresh {
		name = RefreshTokenCookie
	}
	a.setCookie(ctx, name, token, a.lifetime(tokenType))
	return nil
}

func (a *authenticator) clearCookies(ctx echo.Context) {
	a.setCookie(ctx, AccessTokenCookie, "", 0)
	a.setCookie(ctx, RefreshTokenCookie, "", 0)
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return claims, nil
		}
	}
	return nil, errUnauthorized
}

func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}
