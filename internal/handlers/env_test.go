package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stitchdesk/stitchdesk/internal/events"
	"github.com/stitchdesk/stitchdesk/internal/models"
	"github.com/stitchdesk/stitchdesk/internal/tokens"
	"github.com/stitchdesk/stitchdesk/internal/validation"
)

type testEnv struct {
	T         *testing.T
	E         *echo.Echo
	DB        *gorm.DB
	Tokens    *tokens.Service
	Auth      *AuthHandler
	Employees *EmployeeHandler
	Todos     *TodoHandler
}

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.Employee{}, &models.RefreshToken{}, &models.Todo{}, &models.Print{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newTestEnv(t *testing.T) *testEnv {
	db := initTestDB(t)

	tokenSvc := &tokens.Service{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}

	e := echo.New()
	e.Validator = validation.New()

	producer := &events.Producer{}

	return &testEnv{
		T:         t,
		E:         e,
		DB:        db,
		Tokens:    tokenSvc,
		Auth:      &AuthHandler{DB: db, Tokens: tokenSvc, Producer: producer},
		Employees: &EmployeeHandler{DB: db, Producer: producer},
		Todos:     &TodoHandler{DB: db, Producer: producer},
	}
}

func (env *testEnv) doJSON(method, path string, body any, params ...string) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	return rec, c
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type formFile struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+f.Field+`"; filename="`+f.Filename+`"`)
		header.Set("Content-Type", f.ContentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(f.Data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func (env *testEnv) registerEmployee(email string) *models.Employee {
	rec, c := env.doJSON(http.MethodPost, "/register", map[string]string{
		"name":        "Test User",
		"email":       email,
		"password":    "password",
		"designation": "Engineer",
	})
	require.NoError(env.T, env.Auth.Register(c))
	require.Equal(env.T, http.StatusCreated, rec.Code)

	var employee models.Employee
	require.NoError(env.T, env.DB.Where("email = ?", email).First(&employee).Error)
	return &employee
}
