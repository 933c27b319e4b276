package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fridayhq/friday/internal/store"
	"github.com/fridayhq/friday/models"
)

type MeetingsHandler struct {
	Store    *store.Store
	Sessions *SessionRegistry
}

func (h *MeetingsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
}

func (h *MeetingsHandler) create(c echo.Context) error {
	var req CreateMeetingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "meeting_date required")
	}
	id, err := h.Store.CreateMeeting(c.Request().Context(), models.Meeting{
		OwnerID:         userID(c),
		Date:            req.Date,
		Time:            req.Time,
		MeetingLink:     req.MeetingLink,
		DriveFolderLink: req.DriveFolderLink,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, IDResponse{ID: id})
}

func (h *MeetingsHandler) list(c echo.Context) error {
	meetings, err := h.Store.ListMeetings(c.Request().Context(), userID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if meetings == nil {
		meetings = []models.Meeting{}
	}
	return c.JSON(http.StatusOK, meetings)
}

func (h *MeetingsHandler) get(c echo.Context) error {
	m, err := h.Store.GetMeeting(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		if errors.Is(err, models.ErrMeetingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "meeting not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MeetingsHandler) delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.Store.DeleteMeeting(c.Request().Context(), id, userID(c)); err != nil {
		if errors.Is(err, models.ErrMeetingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "meeting not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Sessions.Drop(id)
	return c.NoContent(http.StatusNoContent)
}
