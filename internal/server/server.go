package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"arlo/internal/agent/ports"
	"arlo/internal/logging"
	"arlo/internal/observability"
)

// QueryRunner is the coordinator surface the server needs.
type QueryRunner interface {
	ProcessQuery(ctx context.Context, sessionID, query string, sink ports.TokenSink) (*ports.Job, error)
}

// Config carries the server's collaborators.
type Config struct {
	Addr    string
	Runner  QueryRunner
	Broker  ports.PermissionBroker
	Store   ports.JobStore
	Hub     *Hub
	Metrics *observability.Metrics
	Logger  logging.Logger
}

// Server exposes the agent over HTTP: query submission, job history,
// permission resolution, a websocket event feed, and metrics.
type Server struct {
	cfg    Config
	logger logging.Logger
	engine *gin.Engine
	http   *http.Server
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is consumed by local tooling, not browsers with credentials.
	CheckOrigin: func(*http.Request) bool { return true },
}

// New builds a server. The hub, when present, should also be subscribed
// to the coordinator as an event listener by the caller.
func New(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("server address is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("query runner is required")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())

	s := &Server{
		cfg:    cfg,
		logger: logging.OrNop(cfg.Logger),
		engine: engine,
	}
	s.routes()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			s.cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := s.engine.Group("/api")
	api.POST("/query", s.handleQuery)
	if s.cfg.Store != nil {
		api.GET("/jobs", s.handleListJobs)
		api.GET("/jobs/:id", s.handleGetJob)
	}
	if s.cfg.Broker != nil {
		api.GET("/permissions", s.handleListPermissions)
		api.POST("/permissions/:id", s.handleResolvePermission)
	}
	if s.cfg.Hub != nil {
		api.GET("/events", s.handleEvents)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening on %s", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type queryRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query" binding:"required"`
}

// handleQuery runs one query to completion and returns the finished
// job. Incremental progress is observable on the event feed.
func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = "default"
	}

	job, err := s.cfg.Runner.ProcessQuery(c.Request.Context(), req.SessionID, req.Query, nil)
	if err != nil {
		status := http.StatusInternalServerError
		body := gin.H{"error": err.Error()}
		if job != nil {
			body["job"] = job
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (s *Server) handleListJobs(c *gin.Context) {
	jobs, err := s.cfg.Store.List(c.Request.Context(), c.Query("session"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []*ports.Job{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.cfg.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (s *Server) handleListPermissions(c *gin.Context) {
	pending := s.cfg.Broker.Pending()
	if pending == nil {
		pending = []ports.PermissionRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

type resolveRequest struct {
	Allow *bool `json:"allow" binding:"required"`
}

func (s *Server) handleResolvePermission(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "allow is required"})
		return
	}
	id := c.Param("id")
	s.cfg.Broker.Resolve(id, *req.Allow)
	c.JSON(http.StatusOK, gin.H{"id": id, "allow": *req.Allow})
}

// handleEvents upgrades to a websocket and streams agent events until
// the client disconnects.
func (s *Server) handleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed: %v", err)
		return
	}
	s.cfg.Hub.Add(conn)

	// Reader loop only detects disconnects; clients do not send data.
	go func() {
		defer s.cfg.Hub.Remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
