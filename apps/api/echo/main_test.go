package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/schooloffice/apps/api/echo"
	"github.com/trezcool/schooloffice/core/user"
	logsvc "github.com/trezcool/schooloffice/services/logger"
	"github.com/trezcool/schooloffice/services/tokenstore"
	"github.com/trezcool/schooloffice/tests"
)

const adminPassword = "Adm1n!pass"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type testApp struct {
	env     *testutil.Env
	srv     *echoapi.Server
	admin   user.User
	cookies []*http.Cookie // admin's
}

func newTestApp(t *testing.T) *testApp {
	env := testutil.NewEnv()
	validate, translator := testutil.NewValidator()

	app := &testApp{
		env: env,
		srv: echoapi.NewServer(echoapi.ServerDeps{
			Conf:           env.Conf,
			Logger:         logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), env.Conf),
			Validate:       validate,
			Translator:     translator,
			Blacklist:      tokenstore.NewMemoryBlacklist(),
			UserSvc:        env.Users,
			StudentSvc:     env.Students,
			PaymentSvc:     env.Payments,
			ResultSvc:      env.Results,
			ContactSvc:     env.Contacts,
			DashboardSvc:   env.Stats,
			DisableReqLogs: true,
		}),
	}
	app.admin = testutil.CreateUser(t, env.UsrRepo, "admin", "admin@school.test", adminPassword, true, true)
	app.cookies = app.login(t, "admin", adminPassword)
	return app
}

// do sends a JSON request; body may be nil, raw []byte or any value to marshal.
func (app *testApp) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}

// authed sends the request with the admin's cookies.
func (app *testApp) authed(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	return app.do(t, method, path, body, app.cookies...)
}

func (app *testApp) login(t *testing.T, uname, pwd string) []*http.Cookie {
	rec := app.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": uname, "password": pwd})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Result().Cookies()
}

func cookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func marshal(t *testing.T, obj interface{}) string {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return string(data)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data), rec.Body.String())
	return data
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	var data []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data), rec.Body.String())
	return data
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	anon     bool
	wantCode int
	wantData interface{} // compared as JSON when set
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if tt.anon {
				rec = app.do(t, tt.method, tt.path, tt.body)
			} else {
				rec = app.authed(t, tt.method, tt.path, tt.body)
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, marshal(t, tt.wantData), rec.Body.String())
	}
}
