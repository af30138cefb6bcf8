// Package server exposes the conversation service as a JSON HTTP API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/hasiraza/LLM-Ethicallogix/internal/chat"
	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
	"github.com/hasiraza/LLM-Ethicallogix/internal/video"
)

// Conversations is the subset of chat.Service the API serves.
type Conversations interface {
	Send(ctx context.Context, text string) (chat.Reply, error)
	History() []session.Message
	Sessions() []session.Summary
	LoadSession(ctx context.Context, id int64) (chat.LoadResult, error)
	NewSession(ctx context.Context) (session.Summary, error)
	CloseSession(ctx context.Context) error
	Export() *session.Document
	Stats() session.Stats
	SearchVideos(ctx context.Context, query string) ([]video.Video, error)
}

// Server routes HTTP requests to a Conversations implementation.
type Server struct {
	echo   *echo.Echo
	svc    Conversations
	logger *slog.Logger
}

// New builds the router with request ids, request logging and panic recovery.
func New(svc Conversations, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{echo: echo.New(), svc: svc, logger: logger}
	s.echo.Use(requestID(), requestLogger(logger), recoverer(logger))
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, waiting up to grace for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", func(c *echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	g := s.echo.Group("/api")
	g.POST("/chat", s.handleChat)
	g.GET("/history", s.handleHistory)
	g.GET("/sessions", s.handleSessions)
	g.POST("/load-session", s.handleLoadSession)
	g.POST("/new-session", s.handleNewSession)
	g.POST("/close-session", s.handleCloseSession)
	g.GET("/all-conversations", s.handleExport)
	g.GET("/stats", s.handleStats)
	g.POST("/search-videos", s.handleSearchVideos)
}
