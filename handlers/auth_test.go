package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboardhq/taskboard/database"
	"github.com/taskboardhq/taskboard/models"
)

func TestLoginSuccess(t *testing.T) {
	router := setupTest(t)
	user := createTestUser(t, "Alice", "alice@example.com", "secret123", models.RoleUser)

	w := doJSON(router, "POST", "/api/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.NotContains(t, w.Body.String(), "secret123")
	assert.NotContains(t, w.Body.String(), "password")

	userID, ok := ParseToken(resp.Token)
	assert.True(t, ok)
	assert.Equal(t, user.ID, userID)
}

func TestLoginWrongPassword(t *testing.T) {
	router := setupTest(t)
	createTestUser(t, "Alice", "alice@example.com", "secret123", models.RoleUser)

	w := doJSON(router, "POST", "/api/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
}

func TestLoginUnknownEmail(t *testing.T) {
	router := setupTest(t)

	w := doJSON(router, "POST", "/api/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginFieldErrors(t *testing.T) {
	router := setupTest(t)

	tests := []struct {
		name    string
		payload map[string]string
		want    map[string]string
	}{
		{
			"both missing",
			map[string]string{},
			map[string]string{"email": "email is required", "password": "password is required"},
		},
		{
			"only password missing",
			map[string]string{"email": "alice@example.com"},
			map[string]string{"password": "password is required"},
		},
		{
			"only email missing",
			map[string]string{"password": "secret123"},
			map[string]string{"email": "email is required"},
		},
		{
			"malformed email",
			map[string]string{"email": "not-an-address", "password": "secret123"},
			map[string]string{"email": "email is not a valid address"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(router, "POST", "/api/login", "", tc.payload)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, tc.want, fieldErrors(t, w), "messages must name only the fields that failed")
		})
	}
}

func TestAuthMiddlewareRejections(t *testing.T) {
	router := setupTest(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doRaw(router, "GET", "/api/tasks", tc.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddlewareDeletedUser(t *testing.T) {
	router := setupTest(t)
	user := createTestUser(t, "Alice", "alice@example.com", "secret123", models.RoleUser)
	token := tokenFor(t, user)

	require.NoError(t, database.DB.Unscoped().Delete(&models.User{}, user.ID).Error)

	w := doJSON(router, "GET", "/api/tasks", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCurrentUser(t *testing.T) {
	router := setupTest(t)
	user := createTestUser(t, "Alice", "alice@example.com", "secret123", models.RoleUser)
	token := tokenFor(t, user)

	w := doJSON(router, "GET", "/api/user", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Alice", got.Name)
	assert.Empty(t, got.Password)
}

func TestSeedAdminUser(t *testing.T) {
	setupTest(t)

	SeedAdminUser()

	var admin models.User
	require.NoError(t, database.DB.Where("email = ?", "admin@taskboard.local").First(&admin).Error)
	assert.True(t, admin.IsAdmin())

	// a second run must not duplicate the admin
	SeedAdminUser()
	var count int64
	database.DB.Model(&models.User{}).Where("LOWER(role) = ?", models.RoleAdmin).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSeedAdminSkipsWhenAdminExists(t *testing.T) {
	setupTest(t)
	createTestUser(t, "Boss", "boss@example.com", "secret123", "Admin")

	SeedAdminUser()

	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count, "mixed-case admin role should satisfy the seed check")
}
