package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fridayhq/friday/internal/store"
	"github.com/fridayhq/friday/internal/transcript"
	"github.com/fridayhq/friday/models"
)

type TranscriptsHandler struct {
	Store    *store.Store
	Sessions *SessionRegistry
}

func (h *TranscriptsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.POST("/:id/transcript/init", h.init)
	g.POST("/:id/transcript", h.update)
	g.POST("/:id/transcript/finalize", h.finalize)
	g.GET("/:id/transcript", h.get)
}

func (h *TranscriptsHandler) meeting(c echo.Context) (models.Meeting, error) {
	m, err := h.Store.GetMeeting(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		if errors.Is(err, models.ErrMeetingNotFound) {
			return models.Meeting{}, echo.NewHTTPError(http.StatusNotFound, "meeting not found")
		}
		return models.Meeting{}, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return m, nil
}

// init starts a live transcript session, rehydrating the index from any
// segments already persisted for this meeting.
func (h *TranscriptsHandler) init(c echo.Context) error {
	m, err := h.meeting(c)
	if err != nil {
		return err
	}
	ix, err := h.Sessions.Get(m.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if ix.Len() == 0 {
		stored, err := h.Store.LoadTranscript(c.Request().Context(), m.ID)
		if err == nil && stored != "" {
			ix.Add(transcript.Segment{ID: "restored", Text: stored})
		}
	}
	return c.NoContent(http.StatusOK)
}

func (h *TranscriptsHandler) update(c echo.Context) error {
	m, err := h.meeting(c)
	if err != nil {
		return err
	}
	var req TranscriptUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cleaned := transcript.Enhance(req.Text)
	inserted, err := h.Store.AppendTranscriptSegment(c.Request().Context(), m.ID, req.Speaker, cleaned)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// A retried or blank segment was not stored; keep the live index in step.
	if !inserted {
		return c.NoContent(http.StatusOK)
	}
	ix, err := h.Sessions.Get(m.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := ix.Add(transcript.Segment{ID: uuid.NewString(), Speaker: req.Speaker, Text: cleaned}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}

// finalize runs the cleanup pass over the accumulated transcript, stores the
// result on the meeting and ends the live session.
func (h *TranscriptsHandler) finalize(c echo.Context) error {
	m, err := h.meeting(c)
	if err != nil {
		return err
	}
	full, err := h.Store.LoadTranscript(c.Request().Context(), m.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	final := transcript.Finalize(full)
	if err := h.Store.FinalizeTranscript(c.Request().Context(), m.ID, final); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Sessions.Drop(m.ID)
	return c.JSON(http.StatusOK, map[string]string{"transcript": final})
}

func (h *TranscriptsHandler) get(c echo.Context) error {
	m, err := h.meeting(c)
	if err != nil {
		return err
	}
	final, err := h.Store.GetFinalTranscript(c.Request().Context(), m.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if final == "" {
		final, err = h.Store.LoadTranscript(c.Request().Context(), m.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"transcript": final})
}
