package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/schooloffice/apps/api/echo"
	"github.com/trezcool/schooloffice/tests"
)

func Test_authApi_login(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.env.UsrRepo, "clerk", "clerk@school.test", "Cl3rk!pass", false, true)
	testutil.CreateUser(t, app.env.UsrRepo, "retired", "retired@school.test", "R3tired!pass", true, false)

	creds := func(uname, pwd string) map[string]string {
		return map[string]string{"username": uname, "password": pwd}
	}
	missing := httpErr{Error: "Please provide both username and password"}
	invalid := httpErr{Error: "Invalid credentials"}

	tests := []httpTest{
		{name: "no body", wantCode: http.StatusBadRequest, wantData: missing},
		{name: "no password", body: creds("admin", ""), wantCode: http.StatusBadRequest, wantData: missing},
		{name: "no username", body: creds("", adminPassword), wantCode: http.StatusBadRequest, wantData: missing},
		{name: "unknown user", body: creds("nobody", adminPassword), wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "wrong password", body: creds("admin", "Wr0ng!pass"), wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "inactive admin", body: creds("retired", "R3tired!pass"), wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "not an admin", body: creds("clerk", "Cl3rk!pass"), wantCode: http.StatusForbidden, wantData: httpErr{Error: "Access denied. Admin only."}},
		{
			name: "login with username", body: creds("admin", adminPassword), wantCode: http.StatusOK,
			wantData: map[string]interface{}{
				"message": "Login successful",
				"user": map[string]interface{}{
					"id": app.admin.ID, "username": "admin", "email": "admin@school.test", "is_superuser": true,
				},
			},
		},
		{name: "login with email", body: creds("ADMIN@school.test", adminPassword), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/login"
		tt.anon = true

		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.body)
			checkCodeAndData(t, tt, rec)

			cookies := rec.Result().Cookies()
			if tt.wantCode == http.StatusOK {
				access := cookie(cookies, echoapi.AccessTokenCookie)
				refresh := cookie(cookies, echoapi.RefreshTokenCookie)
				require.NotNil(t, access)
				require.NotNil(t, refresh)
				assert.True(t, access.HttpOnly)
				assert.NotEmpty(t, access.Value)
				assert.NotEmpty(t, refresh.Value)
				assert.NotEqual(t, access.Value, refresh.Value)
			} else {
				assert.Empty(t, cookies)
			}
		})
	}
}

func Test_authApi_me(t *testing.T) {
	app := newTestApp(t)
	refresh := cookie(app.cookies, echoapi.RefreshTokenCookie)

	tests := []struct {
		name     string
		cookies  []*http.Cookie
		wantCode int
		wantData interface{}
	}{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: errMissingToken},
		{
			name:     "garbage token",
			cookies:  []*http.Cookie{{Name: echoapi.AccessTokenCookie, Value: "lol"}},
			wantCode: http.StatusUnauthorized,
			wantData: httpErr{Error: "invalid or expired jwt"},
		},
		{
			name:     "refresh token is not an access token",
			cookies:  []*http.Cookie{{Name: echoapi.AccessTokenCookie, Value: refresh.Value}},
			wantCode: http.StatusUnauthorized,
			wantData: httpErr{Error: "invalid or expired jwt"},
		},
		{
			name:     "current user",
			cookies:  app.cookies,
			wantCode: http.StatusOK,
			wantData: map[string]interface{}{
				"id": app.admin.ID, "username": "admin", "email": "admin@school.test", "is_superuser": true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodGet, "/api/auth/me", nil, tt.cookies...)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.JSONEq(t, marshal(t, tt.wantData), rec.Body.String())
		})
	}
}

func Test_authApi_refresh(t *testing.T) {
	app := newTestApp(t)
	access := cookie(app.cookies, echoapi.AccessTokenCookie)
	refresh := cookie(app.cookies, echoapi.RefreshTokenCookie)

	tests := []struct {
		name     string
		cookies  []*http.Cookie
		wantCode int
		wantData interface{}
	}{
		{name: "no refresh cookie", wantCode: http.StatusUnauthorized, wantData: httpErr{Error: "Refresh token not found"}},
		{
			name:     "garbage refresh token",
			cookies:  []*http.Cookie{{Name: echoapi.RefreshTokenCookie, Value: "lol"}},
			wantCode: http.StatusUnauthorized,
			wantData: httpErr{Error: "Invalid refresh token"},
		},
		{
			name:     "access token is not a refresh token",
			cookies:  []*http.Cookie{{Name: echoapi.RefreshTokenCookie, Value: access.Value}},
			wantCode: http.StatusUnauthorized,
			wantData: httpErr{Error: "Invalid refresh token"},
		},
		{
			name:     "token refreshed",
			cookies:  []*http.Cookie{refresh},
			wantCode: http.StatusOK,
			wantData: map[string]string{"message": "Token refreshed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/api/auth/refresh", nil, tt.cookies...)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.JSONEq(t, marshal(t, tt.wantData), rec.Body.String())

			if tt.wantCode == http.StatusOK {
				cookies := rec.Result().Cookies()
				newAccess := cookie(cookies, echoapi.AccessTokenCookie)
				require.NotNil(t, newAccess)
				assert.Nil(t, cookie(cookies, echoapi.RefreshTokenCookie))

				rec = app.do(t, http.MethodGet, "/api/auth/me", nil, newAccess)
				assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			}
		})
	}
}

func Test_authApi_logout(t *testing.T) {
	app := newTestApp(t)

	// anyone may log out
	rec := app.do(t, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.authed(t, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message": "Logged out successfully"}`, rec.Body.String())
	for _, name := range []string{echoapi.AccessTokenCookie, echoapi.RefreshTokenCookie} {
		c := cookie(rec.Result().Cookies(), name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.True(t, c.MaxAge < 0)
	}

	// both tokens are revoked
	rec = app.authed(t, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error": "invalid or expired jwt"}`, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/auth/refresh", nil, cookie(app.cookies, echoapi.RefreshTokenCookie))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error": "Invalid refresh token"}`, rec.Body.String())
}
