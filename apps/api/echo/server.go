package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/contact"
	"github.com/trezcool/schooloffice/core/dashboard"
	"github.com/trezcool/schooloffice/core/payment"
	"github.com/trezcool/schooloffice/core/result"
	"github.com/trezcool/schooloffice/core/student"
	"github.com/trezcool/schooloffice/core/user"
)

type ServerDeps struct {
	Conf           *core.Config
	Logger         core.Logger
	Validate       *validator.Validate
	Translator     ut.Translator
	Blacklist      core.TokenBlacklist
	UserSvc        *user.Service
	StudentSvc     *student.Service
	PaymentSvc     *payment.Service
	ResultSvc      *result.Service
	ContactSvc     *contact.Service
	DashboardSvc   *dashboard.Service
	DisableReqLogs bool
}

type Server struct {
	deps     ServerDeps
	app      *echo.Echo
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
		vala.IsNotNil(deps.Blacklist, "Blacklist"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.StudentSvc, "StudentSvc"),
		vala.IsNotNil(deps.PaymentSvc, "PaymentSvc"),
		vala.IsNotNil(deps.ResultSvc, "ResultSvc"),
		vala.IsNotNil(deps.ContactSvc, "ContactSvc"),
		vala.IsNotNil(deps.DashboardSvc, "DashboardSvc"),
	).CheckAndPanic()

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.Server.AllowedOrigins,
		AllowCredentials: true,
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	auth := newAuthenticator(conf, s.deps.Blacklist)
	jwt := middleware.JWTWithConfig(auth.jwtConfig())
	authed := []echo.MiddlewareFunc{jwt, accessTokenMiddleware(auth), adminMiddleware(s.deps.UserSvc)}

	api := s.app.Group("/api")
	registerAuthAPI(api, authed, auth, s.deps.UserSvc, s.deps.Validate)
	registerStudentAPI(api.Group("/students", authed...), s.deps.StudentSvc, s.deps.Validate)
	registerPaymentAPI(api, authed, s.deps.PaymentSvc, s.deps.Validate)
	registerResultAPI(api.Group("/results", authed...), s.deps.ResultSvc, s.deps.Validate)
	registerContactAPI(api.Group("/contact-messages"), authed, s.deps.ContactSvc, s.deps.Validate)
	registerDashboardAPI(api.Group("/dashboard", authed...), s.deps.DashboardSvc)
}

// Start listens for OS signals and starts the server. Server errors are sent to Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
