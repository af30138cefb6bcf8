package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/hasiraza/LLM-Ethicallogix/internal/chat"
)

// operationFailed is the only detail clients get about storage errors.
const operationFailed = "operation failed"

type errorResponse struct {
	Error string `json:"error"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type loadSessionRequest struct {
	SessionID *int64 `json:"session_id"`
}

type searchVideosRequest struct {
	Query string `json:"query"`
}

func (s *Server) fail(c *echo.Context, op string, err error) error {
	s.logger.Error("request failed", "op", op, "request_id", requestIDFrom(c), "err", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: operationFailed})
}

func (s *Server) handleChat(c *echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	reply, err := s.svc.Send(c.Request().Context(), req.Message)
	if errors.Is(err, chat.ErrEmptyMessage) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Please enter a message"})
	}
	if err != nil {
		return s.fail(c, "chat", err)
	}
	return c.JSON(http.StatusOK, reply)
}

func (s *Server) handleHistory(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"history": s.svc.History()})
}

func (s *Server) handleSessions(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"sessions": s.svc.Sessions()})
}

func (s *Server) handleLoadSession(c *echo.Context) error {
	var req loadSessionRequest
	if err := c.Bind(&req); err != nil || req.SessionID == nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "session_id is required",
		})
	}

	res, err := s.svc.LoadSession(c.Request().Context(), *req.SessionID)
	if err != nil {
		return s.fail(c, "load-session", err)
	}
	if !res.Success {
		return c.JSON(http.StatusNotFound, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleNewSession(c *echo.Context) error {
	sum, err := s.svc.NewSession(c.Request().Context())
	if err != nil {
		return s.fail(c, "new-session", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "New session started",
		"session": sum,
	})
}

func (s *Server) handleCloseSession(c *echo.Context) error {
	if err := s.svc.CloseSession(c.Request().Context()); err != nil {
		return s.fail(c, "close-session", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Session closed",
	})
}

func (s *Server) handleExport(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.Export())
}

func (s *Server) handleStats(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.Stats())
}

func (s *Server) handleSearchVideos(c *echo.Context) error {
	var req searchVideosRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	videos, err := s.svc.SearchVideos(c.Request().Context(), req.Query)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "query is required"})
	case errors.Is(err, chat.ErrVideosDisabled):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case err != nil:
		return s.fail(c, "search-videos", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"query":  req.Query,
		"videos": videos,
		"count":  len(videos),
	})
}
