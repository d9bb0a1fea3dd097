package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stitchdesk/stitchdesk/internal/events"
	"github.com/stitchdesk/stitchdesk/internal/hash"
	"github.com/stitchdesk/stitchdesk/internal/logging"
	"github.com/stitchdesk/stitchdesk/internal/models"
	"github.com/stitchdesk/stitchdesk/internal/tokens"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *tokens.Service
	Producer *events.Producer
	ES       *elasticsearch.Client
	ESIndex  string
}

func (h *AuthHandler) Register(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_register")

	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		Designation string `json:"designation"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Designation == "" {
		return errorJSON(c, http.StatusBadRequest, "All fields required")
	}
	if len(req.Password) < 6 {
		return errorJSON(c, http.StatusBadRequest, "Password must be at least 6 characters")
	}

	var existing models.Employee
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return errorJSON(c, http.StatusConflict, "Email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("register failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	employee := models.Employee{
		Name:        req.Name,
		Email:       req.Email,
		Password:    hashed,
		Designation: req.Designation,
	}
	if err := h.DB.Create(&employee).Error; err != nil {
		l.Error("register failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	indexEmployee(c, h.ES, h.ESIndex, &employee)
	publish(c, h.Producer, "employee_events", fmt.Sprint(employee.ID), map[string]any{
		"type":  "employee_registered",
		"id":    employee.ID,
		"email": employee.Email,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"id":          employee.ID,
		"name":        employee.Name,
		"email":       employee.Email,
		"designation": employee.Designation,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "Email and password required")
	}

	// unknown email and wrong password produce the same response, so
	// the endpoint cannot be used to probe for accounts
	var employee models.Employee
	if err := h.DB.Where("email = ?", req.Email).First(&employee).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
		}
		l.Error("login failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}
	if !hash.CheckPassword(employee.Password, req.Password) {
		return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
	}

	accessToken, _, err := h.Tokens.SignAccessToken(employee.ID, employee.Email)
	if err != nil {
		l.Error("login failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}
	refreshToken, refreshExp, err := h.Tokens.SignRefreshToken(employee.ID)
	if err != nil {
		l.Error("login failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	stored := models.RefreshToken{
		Token:      refreshToken,
		EmployeeID: employee.ID,
		ExpiresAt:  refreshExp,
	}
	if err := h.DB.Create(&stored).Error; err != nil {
		l.Error("login failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	publish(c, h.Producer, "employee_events", fmt.Sprint(employee.ID), map[string]any{
		"type":  "employee_logged_in",
		"id":    employee.ID,
		"email": employee.Email,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_refresh")

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		return errorJSON(c, http.StatusBadRequest, "Refresh token required")
	}

	// a token must be both stored (not revoked) and cryptographically valid
	var stored models.RefreshToken
	if err := h.DB.Where("token = ?", req.RefreshToken).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusUnauthorized, "Invalid refresh token")
		}
		l.Error("refresh failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	claims, err := h.Tokens.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		l.Warn("refresh token rejected", "error", err)
		return errorJSON(c, http.StatusUnauthorized, "Invalid refresh token")
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "Invalid refresh token")
	}

	// the account may have been deleted since the token was issued
	var employee models.Employee
	if err := h.DB.First(&employee, uint(userID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusUnauthorized, "User not found")
		}
		l.Error("refresh failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	accessToken, _, err := h.Tokens.SignAccessToken(employee.ID, employee.Email)
	if err != nil {
		l.Error("refresh failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	return c.JSON(http.StatusOK, echo.Map{"accessToken": accessToken})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_logout")

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return errorJSON(c, http.StatusBadRequest, "Refresh token required")
	}

	// idempotent: deleting an already-revoked token is a no-op
	if err := h.DB.Where("token = ?", req.RefreshToken).Delete(&models.RefreshToken{}).Error; err != nil {
		l.Error("logout failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out"})
}
