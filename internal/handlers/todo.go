package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stitchdesk/stitchdesk/internal/events"
	"github.com/stitchdesk/stitchdesk/internal/logging"
	"github.com/stitchdesk/stitchdesk/internal/models"
	"github.com/stitchdesk/stitchdesk/internal/util"
)

type TodoHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *TodoHandler) Create(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "todo_create")

	var req struct {
		Title       string `json:"title" validate:"required"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Title is required")
	}

	todo := models.Todo{
		Title:       req.Title,
		Description: req.Description,
	}
	if err := h.DB.Create(&todo).Error; err != nil {
		l.Error("create failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	publish(c, h.Producer, "todo_events", fmt.Sprint(todo.ID), map[string]any{
		"type": "todo_created",
		"id":   todo.ID,
	})

	return c.JSON(http.StatusCreated, todo)
}

func (h *TodoHandler) Index(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "todo_index")

	page := parseIntDefault(c.QueryParam("page"), 1)
	pageSize := parseIntDefault(c.QueryParam("pageSize"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, pageSize)

	var total int64
	if err := h.DB.Model(&models.Todo{}).Count(&total).Error; err != nil {
		l.Error("index failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	var items []models.Todo
	if err := h.DB.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		l.Error("index failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"page":     page,
		"pageSize": limit,
		"total":    total,
		"items":    items,
	})
}

func (h *TodoHandler) Show(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}

	var todo models.Todo
	if err := h.DB.First(&todo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Todo not found")
		}
		logging.FromContext(c.Request().Context()).Error("todo show failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	return c.JSON(http.StatusOK, todo)
}

// Update replaces the row, falling back to the stored value for each
// omitted field.
func (h *TodoHandler) Update(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "todo_update")

	id, ok := parseID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Completed   *bool   `json:"completed"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	var todo models.Todo
	if err := h.DB.First(&todo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Todo not found")
		}
		l.Error("update failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	if req.Title != nil {
		todo.Title = *req.Title
	}
	if req.Description != nil {
		todo.Description = *req.Description
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}

	if err := h.DB.Save(&todo).Error; err != nil {
		l.Error("update failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	publish(c, h.Producer, "todo_events", fmt.Sprint(todo.ID), map[string]any{
		"type": "todo_updated",
		"id":   todo.ID,
	})

	return c.JSON(http.StatusOK, todo)
}

// Patch only touches the allow-listed fields and rejects an empty
// update set.
func (h *TodoHandler) Patch(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "todo_patch")

	id, ok := parseID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Completed   *bool   `json:"completed"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	var todo models.Todo
	if err := h.DB.First(&todo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Todo not found")
		}
		l.Error("patch failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Completed != nil {
		updates["completed"] = *req.Completed
	}
	if len(updates) == 0 {
		return errorJSON(c, http.StatusBadRequest, "No valid fields to update")
	}

	if err := h.DB.Model(&todo).Updates(updates).Error; err != nil {
		l.Error("patch failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	publish(c, h.Producer, "todo_events", fmt.Sprint(todo.ID), map[string]any{
		"type": "todo_updated",
		"id":   todo.ID,
	})

	return c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) Destroy(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "todo_destroy")

	id, ok := parseID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}

	var todo models.Todo
	if err := h.DB.First(&todo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Todo not found")
		}
		l.Error("destroy failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	if err := h.DB.Delete(&todo).Error; err != nil {
		l.Error("destroy failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	publish(c, h.Producer, "todo_events", fmt.Sprint(id), map[string]any{
		"type": "todo_deleted",
		"id":   id,
	})

	return c.NoContent(http.StatusNoContent)
}
