package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stitchdesk/stitchdesk/internal/hash"
	"github.com/stitchdesk/stitchdesk/internal/models"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(http.MethodPost, "/register", map[string]string{
		"name":        "Test User",
		"email":       "test@example.com",
		"password":    "password",
		"designation": "Engineer",
	})
	require.NoError(t, env.Auth.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeJSON(t, rec)
	require.Equal(t, "test@example.com", resp["email"])
	require.Equal(t, "Engineer", resp["designation"])
	require.NotContains(t, rec.Body.String(), "password")

	var stored models.Employee
	require.NoError(t, env.DB.Where("email = ?", "test@example.com").First(&stored).Error)
	require.NotEqual(t, "password", stored.Password)
	require.True(t, hash.CheckPassword(stored.Password, "password"))
}

func TestRegisterMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(http.MethodPost, "/register", map[string]string{
		"name":     "Test User",
		"email":    "test@example.com",
		"password": "password",
	})
	require.NoError(t, env.Auth.Register(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "All fields required", decodeJSON(t, rec)["error"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerEmployee("dup@example.com")

	rec, c := env.doJSON(http.MethodPost, "/register", map[string]string{
		"name":        "Other User",
		"email":       "dup@example.com",
		"password":    "password",
		"designation": "Manager",
	})
	require.NoError(t, env.Auth.Register(c))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "Email already registered", decodeJSON(t, rec)["error"])
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	employee := env.registerEmployee("login@example.com")

	rec, c := env.doJSON(http.MethodPost, "/login", map[string]string{
		"email":    "login@example.com",
		"password": "password",
	})
	require.NoError(t, env.Auth.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON(t, rec)
	require.NotEmpty(t, resp["accessToken"])
	require.NotEmpty(t, resp["refreshToken"])

	var stored models.RefreshToken
	require.NoError(t, env.DB.Where("token = ?", resp["refreshToken"]).First(&stored).Error)
	require.Equal(t, employee.ID, stored.EmployeeID)
}

// Wrong password and unknown email must be indistinguishable to the caller.
func TestLoginUniformFailure(t *testing.T) {
	env := newTestEnv(t)
	env.registerEmployee("known@example.com")

	recWrongPw, cWrongPw := env.doJSON(http.MethodPost, "/login", map[string]string{
		"email":    "known@example.com",
		"password": "not-the-password",
	})
	require.NoError(t, env.Auth.Login(cWrongPw))

	recUnknown, cUnknown := env.doJSON(http.MethodPost, "/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password",
	})
	require.NoError(t, env.Auth.Login(cUnknown))

	require.Equal(t, http.StatusUnauthorized, recWrongPw.Code)
	require.Equal(t, http.StatusUnauthorized, recUnknown.Code)
	require.Equal(t, recWrongPw.Body.String(), recUnknown.Body.String())
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.registerEmployee("refresh@example.com")

	recLogin, cLogin := env.doJSON(http.MethodPost, "/login", map[string]string{
		"email":    "refresh@example.com",
		"password": "password",
	})
	require.NoError(t, env.Auth.Login(cLogin))
	refreshToken := decodeJSON(t, recLogin)["refreshToken"].(string)

	rec, c := env.doJSON(http.MethodPost, "/refresh", map[string]string{
		"refreshToken": refreshToken,
	})
	require.NoError(t, env.Auth.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, decodeJSON(t, rec)["accessToken"])
}

func TestRefreshUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	// syntactically valid but never stored
	token, _, err := env.Tokens.SignRefreshToken(42)
	require.NoError(t, err)

	rec, c := env.doJSON(http.MethodPost, "/refresh", map[string]string{
		"refreshToken": token,
	})
	require.NoError(t, env.Auth.Refresh(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// A logged-out refresh token must stay rejected on every later attempt.
func TestRefreshAfterLogout(t *testing.T) {
	env := newTestEnv(t)
	env.registerEmployee("revoked@example.com")

	recLogin, cLogin := env.doJSON(http.MethodPost, "/login", map[string]string{
		"email":    "revoked@example.com",
		"password": "password",
	})
	require.NoError(t, env.Auth.Login(cLogin))
	refreshToken := decodeJSON(t, recLogin)["refreshToken"].(string)

	recLogout, cLogout := env.doJSON(http.MethodPost, "/logout", map[string]string{
		"refreshToken": refreshToken,
	})
	require.NoError(t, env.Auth.Logout(cLogout))
	require.Equal(t, http.StatusOK, recLogout.Code)

	rec, c := env.doJSON(http.MethodPost, "/refresh", map[string]string{
		"refreshToken": refreshToken,
	})
	require.NoError(t, env.Auth.Refresh(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid refresh token", decodeJSON(t, rec)["error"])
}

func TestLogoutIdempotent(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		rec, c := env.doJSON(http.MethodPost, "/logout", map[string]string{
			"refreshToken": "never-issued",
		})
		require.NoError(t, env.Auth.Logout(c))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Logged out", decodeJSON(t, rec)["message"])
	}
}

func TestLoginResponseNeverLeaksHash(t *testing.T) {
	env := newTestEnv(t)
	env.registerEmployee("leak@example.com")

	rec, c := env.doJSON(http.MethodPost, "/login", map[string]string{
		"email":    "leak@example.com",
		"password": "password",
	})
	require.NoError(t, env.Auth.Login(c))
	require.False(t, strings.Contains(rec.Body.String(), "$2a$"))
}
