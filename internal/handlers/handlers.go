package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/stitchdesk/stitchdesk/internal/events"
	"github.com/stitchdesk/stitchdesk/internal/logging"
	"github.com/stitchdesk/stitchdesk/internal/models"
	"github.com/stitchdesk/stitchdesk/internal/service/search"
)

const internalErrorMsg = "Internal server error"

func errorJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func parseID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// publish sends a domain event without failing the request; broker
// trouble is logged and swallowed.
func publish(c echo.Context, p *events.Producer, topic, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("event publish failed", "topic", topic, "error", err)
	}
}

// indexEmployee mirrors an employee into the search index, best effort.
func indexEmployee(c echo.Context, es *elasticsearch.Client, index string, e *models.Employee) {
	if es == nil {
		return
	}
	if err := search.Index(c.Request().Context(), es, index, e); err != nil {
		logging.FromContext(c.Request().Context()).Error("employee indexing failed", "id", e.ID, "error", err)
	}
}

func deindexEmployee(c echo.Context, es *elasticsearch.Client, index string, id uint) {
	if es == nil {
		return
	}
	if err := search.Delete(c.Request().Context(), es, index, id); err != nil {
		logging.FromContext(c.Request().Context()).Error("employee deindexing failed", "id", id, "error", err)
	}
}
