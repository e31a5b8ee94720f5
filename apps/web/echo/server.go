// Package echoweb serves the campus pages: sign in, enrollment links, dashboard, lessons and announcements.
package echoweb

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/enrollment"
	"github.com/trezcool/campus/core/progress"
	"github.com/trezcool/campus/core/user"
	appfs "github.com/trezcool/campus/fs"
	oauthsvc "github.com/trezcool/campus/services/oauth"
)

type (
	// Deps are the services the pages are built on.
	Deps struct {
		Conf          *core.Config
		Logger        core.Logger
		UserSvc       user.Service
		Courses       *course.Service
		Resolver      *enrollment.Resolver
		Committer     *enrollment.Committer
		Guard         *enrollment.Guard
		EnrollmentSvc *enrollment.Service
		Aggregator    *progress.Aggregator
		ProgressSvc   *progress.Service
		Providers     oauthsvc.Registry
		States        oauthsvc.StateStore
		Validate      *validator.Validate
		Translator    ut.Translator
	}

	Options struct {
		DisableReqLogs bool
		DisableCSRF    bool
		// AuthRateLimit bounds form posts to the auth pages per client IP and second; 0 disables it.
		AuthRateLimit rate.Limit
		AuthBurst     int
	}

	Server struct {
		deps     Deps
		opts     Options
		app      *echo.Echo
		sessions *sessions
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

// DefaultOptions are the production options.
func DefaultOptions() Options {
	return Options{AuthRateLimit: 1, AuthBurst: 5}
}

func NewServer(deps Deps, opts Options) (*Server, error) {
	rdr, err := newRenderer(appfs.FS, templatesDir)
	if err != nil {
		return nil, errors.Wrap(err, "loading page templates")
	}
	if deps.Providers == nil {
		deps.Providers = make(oauthsvc.Registry)
	}

	s := &Server{
		deps:     deps,
		opts:     opts,
		app:      echo.New(),
		sessions: newSessions(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.app.Renderer = rdr
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(metricsMiddleware())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if !s.opts.DisableCSRF {
		s.app.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "form:_csrf",
			CookieName:     "campus_csrf",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   conf.Session.SecureCookie,
			CookieSameSite: http.SameSiteLaxMode,
		}))
	}
	s.app.Use(s.sessionBoundary())

	s.app.HTTPErrorHandler = s.newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.staticPage("home"))
	s.app.GET("/health", health)
	s.app.GET("/terms", s.staticPage("terms"))
	s.app.GET("/privacy", s.staticPage("privacy"))

	registerAuthPages(s, s.authLimiter())
	registerStartPages(s)
	registerLearnPages(s)
}

// authLimiter throttles auth form posts; it is a no-op when disabled.
func (s *Server) authLimiter() echo.MiddlewareFunc {
	if s.opts.AuthRateLimit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      s.opts.AuthRateLimit,
		Burst:     s.opts.AuthBurst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiter(store)
}

// Start blocks until the server stops; failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors receives the error that stopped the server.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives OS interrupts and internal shutdown requests.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// staticPage renders a page that only needs the layout (and the viewer, when signed in).
func (s *Server) staticPage(name string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if contextUserID(ctx) != "" {
			if _, err := s.currentViewer(ctx); err != nil {
				s.deps.Logger.Warn(fmt.Sprintf("loading %s page viewer", name), err)
			}
		}
		return s.render(ctx, http.StatusOK, name, nil)
	}
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
