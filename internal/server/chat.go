package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fridayhq/friday/internal/assistant"
	"github.com/fridayhq/friday/internal/convo"
	"github.com/fridayhq/friday/internal/store"
	"github.com/fridayhq/friday/models"
)

// Answerer is implemented by the assistant.
type Answerer interface {
	Answer(ctx context.Context, meeting *models.Meeting, query string) (string, error)
}

type ChatHandler struct {
	Store         *store.Store
	Assistant     Answerer
	Conversations *convo.Manager
}

func (h *ChatHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.POST("/:id/chat", h.chat)
	g.GET("/:id/chat", h.history)
	g.DELETE("/:id/chat", h.clear)
}

func (h *ChatHandler) chat(c echo.Context) error {
	m, err := h.Store.GetMeeting(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		if errors.Is(err, models.ErrMeetingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "meeting not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// First question after a restart: reload the prompt window from the
	// persisted history.
	if h.Conversations != nil && h.Conversations.Len(m.ID) == 0 {
		if turns, err := h.Store.LoadChat(c.Request().Context(), m.ID, 2*convo.MaxHistory); err == nil && len(turns) > 0 {
			h.Conversations.Rehydrate(m.ID, turns)
		}
	}

	reply, err := h.Assistant.Answer(c.Request().Context(), &m, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrEmptyQuery):
			return echo.NewHTTPError(http.StatusBadRequest, "query required")
		case errors.Is(err, assistant.ErrBusy):
			return echo.NewHTTPError(http.StatusConflict, "a question is already being processed for this meeting")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, ChatResponse{Reply: reply})
}

func (h *ChatHandler) history(c echo.Context) error {
	m, err := h.Store.GetMeeting(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		if errors.Is(err, models.ErrMeetingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "meeting not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	turns, err := h.Store.LoadChat(c.Request().Context(), m.ID, 2*convo.MaxHistory)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	return c.JSON(http.StatusOK, ChatHistoryResponse{Turns: turns})
}

func (h *ChatHandler) clear(c echo.Context) error {
	m, err := h.Store.GetMeeting(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		if errors.Is(err, models.ErrMeetingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "meeting not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Conversations.Clear(m.ID)
	return c.NoContent(http.StatusNoContent)
}
