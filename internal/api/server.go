package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"commentator/internal/artifacts"
	"commentator/internal/logging"
	"commentator/internal/session"
	"commentator/internal/timeline"
)

const (
	eventsPath = "/v1/events"
	finishPath = "/v1/finish"
	cancelPath = "/v1/cancel"
	statusPath = "/v1/status"
	streamPath = "/v1/stream"
)

// Session is the part of a session the server drives.
type Session interface {
	ID() string
	Handle(ctx context.Context, ev session.Event) (session.Outcome, error)
	Finish(ctx context.Context, output string) (timeline.Result, error)
	Cancel(ctx context.Context) (artifacts.Report, error)
	Status() session.Status
	Subscribe(buffer int) (<-chan session.Outcome, func())
	Close() error
}

// Factory starts a new session.
type Factory func(ctx context.Context) (Session, error)

// Options configure the server.
type Options struct {
	Bind  string
	Token string
}

// Server is the HTTP control surface.
type Server struct {
	opts    Options
	factory Factory
	logger  *slog.Logger
	engine  *gin.Engine
	hub     *hub
	started time.Time

	// base bounds event, finish and cancel work; it ends with the server,
	// not with the client connection.
	base       context.Context
	cancelBase context.CancelFunc

	mu      sync.Mutex
	current Session

	server   *http.Server
	listener net.Listener
}

// New builds the server and its routes.
func New(opts Options, factory Factory, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	logger = logging.NewComponentLogger(logger, "api")
	s := &Server{
		opts:    opts,
		factory: factory,
		logger:  logger,
		hub:     newHub(logger),
		started: time.Now(),
	}
	s.base, s.cancelBase = context.WithCancel(context.Background())

	engine := gin.New()
	engine.Use(gin.Recovery(), requestContext(logger))
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1 := engine.Group("/", requireToken(opts.Token))
	v1.POST(eventsPath, s.handleEvent)
	v1.POST(finishPath, s.handleFinish)
	v1.POST(cancelPath, s.handleCancel)
	v1.GET(statusPath, s.handleStatus)
	v1.GET(streamPath, s.handleStream)
	s.engine = engine

	s.server = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Events block for the pacing slack and exports run ffmpeg, so
		// responses are not bounded by a write timeout.
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, closes stream clients, and releases the
// current session's lock without touching its files.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.cancelBase()
	s.hub.closeAll()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()
	if current != nil {
		if err := current.Close(); err != nil {
			s.logger.Warn("failed to close session", logging.Error(err))
		}
	}
}

// flowContext derives the context session work runs under. It keeps the
// request's values but outlives a disconnected client, so an event whose
// caller gave up still finishes pacing and reaches the journal.
func (s *Server) flowContext(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	stop := context.AfterFunc(s.base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// session returns the active session, starting one when create is set.
func (s *Server) session(ctx context.Context, create bool) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil || !create {
		return s.current, nil
	}
	sess, err := s.factory(ctx)
	if err != nil {
		return nil, err
	}
	s.current = sess
	ch, _ := sess.Subscribe(64)
	go s.hub.pump(ch)
	return sess, nil
}

// retire drops sess as the current session if it still is.
func (s *Server) retire(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == sess {
		s.current = nil
	}
}
