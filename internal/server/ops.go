package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fridayhq/friday/internal/llm"
	"github.com/fridayhq/friday/internal/store"
	"github.com/fridayhq/friday/internal/vector"
)

// OpsHandler exposes operational state: storage counts, the vector-store
// size and providers currently in their failure cooldown.
type OpsHandler struct {
	Store     *store.Store
	Generator *llm.Generator
	Vectors   *vector.Client
}

func (h *OpsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.GET("/stats", h.stats)
}

func (h *OpsHandler) stats(c echo.Context) error {
	st, err := h.Store.GetStats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	vectorCount := -1
	if h.Vectors != nil {
		if n, err := h.Vectors.Stats(c.Request().Context()); err == nil {
			vectorCount = n
		}
	}
	failed := []string{}
	if h.Generator != nil {
		if f := h.Generator.FailedProviders(); f != nil {
			failed = f
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"storage":          st,
		"vector_count":     vectorCount,
		"failed_providers": failed,
	})
}
