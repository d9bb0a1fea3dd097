package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stitchdesk/stitchdesk/internal/hash"
	"github.com/stitchdesk/stitchdesk/internal/models"
)

func TestEmployeeCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name    string
		payload map[string]string
		wantMsg string
	}{
		{"missing name", map[string]string{"email": "a@b.c", "designation": "Eng", "password": "secret1"}, "Name is required"},
		{"missing email", map[string]string{"name": "A", "designation": "Eng", "password": "secret1"}, "Email is required"},
		{"missing designation", map[string]string{"name": "A", "email": "a@b.c", "password": "secret1"}, "Designation is required"},
		{"missing password", map[string]string{"name": "A", "email": "a@b.c", "designation": "Eng"}, "Password is required"},
		{"short password", map[string]string{"name": "A", "email": "a@b.c", "designation": "Eng", "password": "abc"}, "Password must be at least 6 characters"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, c := env.doJSON(http.MethodPost, "/employees", tc.payload)
			require.NoError(t, env.Employees.Create(c))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tc.wantMsg, decodeJSON(t, rec)["error"])
		})
	}
}

func TestEmployeeCreate(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(http.MethodPost, "/employees", map[string]string{
		"name":        "Alice",
		"email":       "alice@example.com",
		"designation": "Designer",
		"password":    "secret123",
	})
	require.NoError(t, env.Employees.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "password")

	var stored models.Employee
	require.NoError(t, env.DB.Where("email = ?", "alice@example.com").First(&stored).Error)
	require.True(t, hash.CheckPassword(stored.Password, "secret123"))
}

func TestEmployeeIndexPagination(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 15; i++ {
		env.DB.Create(&models.Employee{
			Name:        fmt.Sprintf("Employee %02d", i),
			Email:       fmt.Sprintf("e%02d@example.com", i),
			Password:    "hash",
			Designation: "Engineer",
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Second),
		})
	}

	rec, c := env.doJSON(http.MethodGet, "/employees?page=2&pageSize=10", nil)
	require.NoError(t, env.Employees.Index(c))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON(t, rec)
	require.EqualValues(t, 15, resp["total"])
	require.EqualValues(t, 2, resp["page"])
	require.Len(t, resp["items"], 5)
	require.NotContains(t, rec.Body.String(), "password")
}

func TestEmployeeIndexOrder(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Employee{Name: "Old", Email: "old@example.com", Password: "h", Designation: "E", CreatedAt: time.Now().Add(-time.Hour)})
	env.DB.Create(&models.Employee{Name: "New", Email: "new@example.com", Password: "h", Designation: "E", CreatedAt: time.Now()})

	rec, c := env.doJSON(http.MethodGet, "/employees", nil)
	require.NoError(t, env.Employees.Index(c))

	items := decodeJSON(t, rec)["items"].([]any)
	require.Len(t, items, 2)
	require.Equal(t, "New", items[0].(map[string]any)["name"])
}

func TestEmployeeShow(t *testing.T) {
	env := newTestEnv(t)
	employee := env.registerEmployee("show@example.com")

	rec, c := env.doJSON(http.MethodGet, "/employees/:id", nil, "id", fmt.Sprint(employee.ID))
	require.NoError(t, env.Employees.Show(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "show@example.com", decodeJSON(t, rec)["email"])

	recMissing, cMissing := env.doJSON(http.MethodGet, "/employees/:id", nil, "id", "9999")
	require.NoError(t, env.Employees.Show(cMissing))
	require.Equal(t, http.StatusNotFound, recMissing.Code)
}

// Omitted fields keep their stored values; only what the body names changes.
func TestEmployeeUpdateMerge(t *testing.T) {
	env := newTestEnv(t)
	employee := env.registerEmployee("merge@example.com")

	rec, c := env.doJSON(http.MethodPatch, "/employees/:id", map[string]string{
		"designation": "Lead Engineer",
	}, "id", fmt.Sprint(employee.ID))
	require.NoError(t, env.Employees.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Employee
	require.NoError(t, env.DB.First(&stored, employee.ID).Error)
	require.Equal(t, "Lead Engineer", stored.Designation)
	require.Equal(t, employee.Name, stored.Name)
	require.Equal(t, employee.Email, stored.Email)
	require.Equal(t, employee.Password, stored.Password)
}

func TestEmployeeUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	employee := env.registerEmployee("pw@example.com")

	recShort, cShort := env.doJSON(http.MethodPut, "/employees/:id", map[string]string{
		"password": "abc",
	}, "id", fmt.Sprint(employee.ID))
	require.NoError(t, env.Employees.Update(cShort))
	require.Equal(t, http.StatusBadRequest, recShort.Code)

	rec, c := env.doJSON(http.MethodPut, "/employees/:id", map[string]string{
		"password": "  newsecret  ",
	}, "id", fmt.Sprint(employee.ID))
	require.NoError(t, env.Employees.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Employee
	require.NoError(t, env.DB.First(&stored, employee.ID).Error)
	require.True(t, hash.CheckPassword(stored.Password, "newsecret"))
}

func TestEmployeeDestroy(t *testing.T) {
	env := newTestEnv(t)
	employee := env.registerEmployee("gone@example.com")

	rec, c := env.doJSON(http.MethodDelete, "/employees/:id", nil, "id", fmt.Sprint(employee.ID))
	require.NoError(t, env.Employees.Destroy(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	recAgain, cAgain := env.doJSON(http.MethodDelete, "/employees/:id", nil, "id", fmt.Sprint(employee.ID))
	require.NoError(t, env.Employees.Destroy(cAgain))
	require.Equal(t, http.StatusNotFound, recAgain.Code)
}
