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
	"go.uber.org/dig"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/material"
	"github.com/trezcool/classboard/core/user"
	"github.com/trezcool/classboard/core/work"
)

type (
	ServerDeps struct {
		dig.In

		Conf        *core.Config
		Logger      core.Logger
		UserSvc     *user.Service
		MaterialSvc *material.Service
		WorkSvc     *work.Service
		Validate    *validator.Validate
		Translator  ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		srv      *http.Server
		auth     *tokenAuth
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newTokenAuth(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.Storage.MaxUploadSize != "" {
		s.app.Use(middleware.BodyLimit(conf.Storage.MaxUploadSize))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	g := s.app.Group("/api")
	jwt := s.auth.middleware()

	registerUserAPI(g, jwt, s.auth, s.deps.UserSvc, s.deps.Validate)
	registerMaterialAPI(g, s.deps.MaterialSvc)
	registerWorkAPI(g, s.deps.WorkSvc, s.deps.Validate)
}

// Start listens on the configured address. Failures are reported on Errors.
func (s *Server) Start() {
	conf := s.deps.Conf
	s.srv = &http.Server{
		Addr:         conf.Server.Address(),
		ReadTimeout:  conf.Server.ReadTimeout,
		WriteTimeout: conf.Server.WriteTimeout,
	}
	s.deps.Logger.Info("API listening on " + s.srv.Addr)
	if err := s.app.StartServer(s.srv); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal notifies on SIGINT, SIGTERM and on SignalShutdown calls.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	return s.shutdown
}

func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
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

func home(ctx echo.Context) error {
	return ok(ctx, nil, "Classboard API is running")
}
