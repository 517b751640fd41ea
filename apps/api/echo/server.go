package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/event"
	"github.com/cadenza-app/cadenza/core/lead"
	"github.com/cadenza-app/cadenza/core/order"
	"github.com/cadenza-app/cadenza/core/resource"
	"github.com/cadenza-app/cadenza/core/session"
	"github.com/cadenza-app/cadenza/core/task"
	"github.com/cadenza-app/cadenza/core/user"
)

type (
	// Deps carries everything the API server needs.
	Deps struct {
		Logger         core.Logger
		SessionMgr     *session.Manager
		UserSvc        *user.Service
		LeadSvc        *lead.Service
		EventSvc       *event.Service
		OrderSvc       *order.Service
		TaskSvc        *task.Service
		ResourceSvc    *resource.Service
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start() error
		Stop(ctx context.Context) error
		// ShutdownSignal is closed when a handler reports an unrecoverable error.
		ShutdownSignal() <-chan struct{}
	}

	server struct {
		addr     string
		deps     *Deps
		app      *echo.Echo
		shutdown chan struct{}
	}
)

var _ Server = (*server)(nil)

func NewServer(addr string, deps *Deps) Server {
	s := &server{
		addr:     addr,
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan struct{}),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	auth := authMiddleware(s.deps)

	registerAuthAPI(v1, auth, s.deps)
	registerUserAPI(v1, auth, s.deps)
	registerLeadAPI(v1, auth, s.deps)
	registerEventAPI(v1, auth, s.deps)
	registerOrderAPI(v1, auth, s.deps)
	registerTaskAPI(v1, auth, s.deps)
	registerResourceAPI(v1, auth, s.deps)
}

func (s *server) Start() error {
	return s.app.Start(s.addr)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ShutdownSignal() <-chan struct{} { return s.shutdown }

func (s *server) signalShutdown() {
	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Cadenza API!")
}
