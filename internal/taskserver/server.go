// Package taskserver is a reference implementation of the remote task
// service. It backs local development and the HTTP client's integration tests.
package taskserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"todosync/internal/service"
)

const requestIDHeader = "X-Request-ID"

// Server provides the HTTP handlers for the task resource.
type Server struct {
	engine *gin.Engine
	repo   Repository
	logger *zap.Logger

	// lists coalesces concurrent list reads into one repository call.
	lists singleflight.Group
}

// New constructs the server with routes and middleware configured.
func New(repo Repository, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine: router,
		repo:   repo,
		logger: logger,
	}
	router.Use(srv.accessLog)
	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	tasks := s.engine.Group("/tasks")
	{
		tasks.GET("", s.handleList)
		tasks.POST("", s.handleCreate)
		tasks.PUT("/:id", s.handleUpdate)
		tasks.DELETE("/:id", s.handleDelete)
	}
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Info("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", c.GetHeader(requestIDHeader)),
	)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// taskRequest carries optional fields so PUT can merge over the stored task.
type taskRequest struct {
	Title *string `json:"title"`
	Done  *bool   `json:"done"`
}

func (s *Server) handleList(c *gin.Context) {
	v, err, _ := s.lists.Do("tasks", func() (any, error) {
		return s.repo.List(context.WithoutCancel(c.Request.Context()))
	})
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	tasks := v.([]service.Task)
	if tasks == nil {
		tasks = []service.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleCreate(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	title := normalizeTitle(req.Title)
	if title == "" {
		s.respondError(c, http.StatusBadRequest, errors.New("title is required"))
		return
	}

	task, err := s.repo.Create(c.Request.Context(), service.Draft{Title: title, Done: getBool(req.Done)})
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleUpdate(c *gin.Context) {
	id := c.Param("id")

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	patch := Patch{Done: req.Done}
	if req.Title != nil {
		title := normalizeTitle(req.Title)
		if title == "" {
			s.respondError(c, http.StatusBadRequest, errors.New("title must not be blank"))
			return
		}
		patch.Title = &title
	}

	task, err := s.repo.Update(c.Request.Context(), id, patch)
	if err != nil {
		s.respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondRepoError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) respondRepoError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		s.respondError(c, http.StatusNotFound, err)
		return
	}
	s.respondError(c, http.StatusInternalServerError, err)
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// normalizeTitle is the canonical form clients reconcile against.
func normalizeTitle(v *string) string {
	if v == nil {
		return ""
	}
	return strings.Join(strings.Fields(*v), " ")
}

func getBool(v *bool) bool {
	return v != nil && *v
}
