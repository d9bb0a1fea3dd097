package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stitchdesk/stitchdesk/internal/events"
	"github.com/stitchdesk/stitchdesk/internal/hash"
	"github.com/stitchdesk/stitchdesk/internal/logging"
	"github.com/stitchdesk/stitchdesk/internal/middleware/upload"
	"github.com/stitchdesk/stitchdesk/internal/models"
	"github.com/stitchdesk/stitchdesk/internal/service/search"
	"github.com/stitchdesk/stitchdesk/internal/util"
)

type EmployeeHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
	ES       *elasticsearch.Client
	ESIndex  string
}

// employeePublic is the response projection: built field by field so the
// password hash can never leak through a marshalled record.
type employeePublic struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Designation string    `json:"designation"`
	Status      string    `json:"status"`
	Avatar      string    `json:"avatar,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func publicEmployee(e *models.Employee) employeePublic {
	return employeePublic{
		ID:          e.ID,
		Name:        e.Name,
		Email:       e.Email,
		Designation: e.Designation,
		Status:      e.Status,
		Avatar:      e.Avatar,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (h *EmployeeHandler) Create(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "employee_create")

	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Designation string `json:"designation"`
		Password    string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	switch {
	case req.Name == "":
		return errorJSON(c, http.StatusBadRequest, "Name is required")
	case req.Email == "":
		return errorJSON(c, http.StatusBadRequest, "Email is required")
	case req.Designation == "":
		return errorJSON(c, http.StatusBadRequest, "Designation is required")
	case req.Password == "":
		return errorJSON(c, http.StatusBadRequest, "Password is required")
	case len(req.Password) < 6:
		return errorJSON(c, http.StatusBadRequest, "Password must be at least 6 characters")
	}

	var existing models.Employee
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return errorJSON(c, http.StatusConflict, "Email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("create failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("create failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	employee := models.Employee{
		Name:        req.Name,
		Email:       req.Email,
		Designation: req.Designation,
		Password:    hashed,
	}
	if err := h.DB.Create(&employee).Error; err != nil {
		l.Error("create failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	indexEmployee(c, h.ES, h.ESIndex, &employee)
	publish(c, h.Producer, "employee_events", fmt.Sprint(employee.ID), map[string]any{
		"type": "employee_created",
		"id":   employee.ID,
	})

	return c.JSON(http.StatusCreated, publicEmployee(&employee))
}

func (h *EmployeeHandler) Index(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "employee_index")

	page := parseIntDefault(c.QueryParam("page"), 1)
	pageSize := parseIntDefault(c.QueryParam("pageSize"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, pageSize)

	var total int64
	if err := h.DB.Model(&models.Employee{}).Count(&total).Error; err != nil {
		l.Error("index failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	var rows []models.Employee
	if err := h.DB.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		l.Error("index failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	items := make([]employeePublic, len(rows))
	for i := range rows {
		items[i] = publicEmployee(&rows[i])
	}

	return c.JSON(http.StatusOK, echo.Map{
		"page":     page,
		"pageSize": limit,
		"total":    total,
		"items":    items,
	})
}

func (h *EmployeeHandler) Show(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}

	var employee models.Employee
	if err := h.DB.First(&employee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Employee not found")
		}
		logging.FromContext(c.Request().Context()).Error("employee show failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	return c.JSON(http.StatusOK, publicEmployee(&employee))
}

// Update serves both PUT and PATCH: any field omitted from the body
// keeps its stored value.
func (h *EmployeeHandler) Update(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "employee_update")

	id, ok := parseID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}

	var req struct {
		Name        *string `json:"name"`
		Email       *string `json:"email"`
		Designation *string `json:"designation"`
		Status      *string `json:"status"`
		Password    *string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	var employee models.Employee
	if err := h.DB.First(&employee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Employee not found")
		}
		l.Error("update failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
		password := strings.TrimSpace(*req.Password)
		if len(password) < 6 {
			return errorJSON(c, http.StatusBadRequest, "Password must be at least 6 characters")
		}
		hashed, err := hash.HashPassword(password)
		if err != nil {
			l.Error("update failed", "error", err)
			return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
		}
		employee.Password = hashed
	}

	if req.Name != nil {
		employee.Name = *req.Name
	}
	if req.Email != nil {
		employee.Email = *req.Email
	}
	if req.Designation != nil {
		employee.Designation = *req.Designation
	}
	if req.Status != nil {
		employee.Status = *req.Status
	}

	if err := h.DB.Save(&employee).Error; err != nil {
		l.Error("update failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	indexEmployee(c, h.ES, h.ESIndex, &employee)
	publish(c, h.Producer, "employee_events", fmt.Sprint(employee.ID), map[string]any{
		"type": "employee_updated",
		"id":   employee.ID,
	})

	return c.JSON(http.StatusOK, publicEmployee(&employee))
}

func (h *EmployeeHandler) UploadAvatar(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "employee_avatar")

	id, ok := parseID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}

	var employee models.Employee
	if err := h.DB.First(&employee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Employee not found")
		}
		l.Error("avatar upload failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	avatar, ok := upload.FromContext(c, "avatar")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "No file uploaded or invalid file type/size")
	}

	// only the filename is persisted; the URL is derived per request
	if err := h.DB.Model(&employee).Update("avatar", avatar.Name).Error; err != nil {
		upload.Remove(avatar)
		l.Error("avatar upload failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	avatarURL := fmt.Sprintf("%s://%s/uploads/%s", c.Scheme(), c.Request().Host, avatar.Name)

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Avatar uploaded",
		"fileName": avatar.Name,
		"filePath": avatarURL,
	})
}

func (h *EmployeeHandler) Destroy(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "employee_destroy")

	id, ok := parseID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid id")
	}

	var employee models.Employee
	if err := h.DB.First(&employee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Employee not found")
		}
		l.Error("destroy failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	if err := h.DB.Delete(&employee).Error; err != nil {
		l.Error("destroy failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	deindexEmployee(c, h.ES, h.ESIndex, id)
	publish(c, h.Producer, "employee_events", fmt.Sprint(id), map[string]any{
		"type": "employee_deleted",
		"id":   id,
	})

	return c.NoContent(http.StatusNoContent)
}

func (h *EmployeeHandler) Search(c echo.Context) error {
	if h.ES == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "Search is not available")
	}

	q := c.QueryParam("q")
	if q == "" {
		return errorJSON(c, http.StatusBadRequest, "Query parameter q is required")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	pageSize := parseIntDefault(c.QueryParam("pageSize"), util.DefaultPageSize)
	from, size := util.Calculate(page, pageSize)

	total, items, err := search.Search(c.Request().Context(), h.ES, h.ESIndex, q, from, size)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("employee search failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "items": items})
}
