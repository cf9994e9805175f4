package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/academic"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/auth"
	"github.com/darien/gradebook/core/center"
	"github.com/darien/gradebook/core/grading"
)

// ServerDeps holds everything the API needs to serve requests.
type ServerDeps struct {
	Conf       *core.Config
	Logger     core.Logger
	Centers    *center.Service
	Accounts   *account.Service
	Auth       *auth.Service
	Academic   *academic.Service
	Grading    *grading.Service
	Validate   *validator.Validate
	Translator ut.Translator
}

type Server struct {
	deps     ServerDeps
	app      *echo.Echo
	jwtConf  middleware.JWTConfig
	errors   chan error
	shutdown chan os.Signal
}

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		jwtConf:  newJWTConfig(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	authed := []echo.MiddlewareFunc{middleware.JWTWithConfig(s.jwtConf), sessionMiddleware(s.deps.Auth)}

	registerSessionAPI(v1, authed, s.deps, s.jwtConf)
	registerCenterAPI(v1, authed, s.deps)
	registerAdminAPI(v1.Group("/admin", append(authed, requireRole(account.RoleAdmin))...), s.deps)
	registerTeacherAPI(v1.Group("/teacher", append(authed, requireIdentity(auth.Identity.IsTeacher))...), s.deps)
	registerStudentAPI(v1.Group("/student", append(authed, requireIdentity(auth.Identity.IsStudent))...), s.deps)
}

// Start blocks serving requests. A listener failure is sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Shutdown stops accepting requests and waits for the in-flight ones until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown asks the owner of the server to stop it gracefully.
func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signalled
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
