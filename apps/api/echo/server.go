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

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/dashboard"
	"github.com/academia/sims/core/faculty"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
	"github.com/academia/sims/core/transcript"
	"github.com/academia/sims/core/user"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		Logins        core.LoginRecorder
		Validate      *validator.Validate
		Translator    ut.Translator
		UserSvc       *user.Service
		CatalogSvc    *catalog.Service
		StudentSvc    *student.Service
		FacultySvc    *faculty.Service
		LedgerSvc     *ledger.Service
		DashboardSvc  *dashboard.Service
		TranscriptSvc *transcript.Service
	}

	Server struct {
		app      *echo.Echo
		auth     *authenticator
		address  string
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Logins, "Logins"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.CatalogSvc, "CatalogSvc"),
		vala.IsNotNil(deps.StudentSvc, "StudentSvc"),
		vala.IsNotNil(deps.FacultySvc, "FacultySvc"),
		vala.IsNotNil(deps.LedgerSvc, "LedgerSvc"),
		vala.IsNotNil(deps.DashboardSvc, "DashboardSvc"),
		vala.IsNotNil(deps.TranscriptSvc, "TranscriptSvc"),
	).CheckAndPanic()

	s := &Server{
		app:      echo.New(),
		address:  deps.Conf.Server.Address,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(deps)
	return s
}

func (s *Server) setup(deps ServerDeps) {
	conf := deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	auth := newAuthenticator(conf, deps.UserSvc)
	s.auth = auth
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home(conf))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(auth.jwtConfig)

	registerUserAPI(v1, jwt, auth, deps.Logins, deps.Validate)
	registerCatalogAPI(v1, jwt, auth, deps.CatalogSvc, deps.FacultySvc, deps.LedgerSvc, deps.Validate)
	registerStudentAPI(v1, jwt, auth, deps.StudentSvc, deps.LedgerSvc, deps.TranscriptSvc, deps.Validate)
	registerFacultyAPI(v1, jwt, auth, deps.FacultySvc, deps.Validate)
	registerLedgerAPI(v1, jwt, auth, deps.LedgerSvc, deps.StudentSvc, deps.FacultySvc, deps.CatalogSvc, deps.Validate)
	registerDashboardAPI(v1, jwt, auth, deps.DashboardSvc)
}

// Start listens until the server is shut down. Listener failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
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

func home(conf *core.Config) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Welcome to "+conf.School.Name+" API!")
	}
}
