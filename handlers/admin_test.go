package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboardhq/taskboard/database"
	"github.com/taskboardhq/taskboard/models"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminRoutesForbiddenForRegularUser(t *testing.T) {
	router := setupTest(t)
	alice := createTestUser(t, "Alice", "alice@example.com", "secret123", models.RoleUser)
	token := tokenFor(t, alice)

	w := doJSON(router, "GET", "/api/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, "POST", "/api/admin/create-user", token, map[string]string{
		"name": "X", "email": "x@example.com", "password": "longenough", "role": "user",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGetUsersExcludesAdmins(t *testing.T) {
	router := setupTest(t)
	admin := createTestUser(t, "Root", "root@example.com", "secret123", models.RoleAdmin)
	createTestUser(t, "Boss", "boss@example.com", "secret123", "Admin")
	createTestUser(t, "Alice", "alice@example.com", "secret123", models.RoleUser)
	createTestUser(t, "Bob", "bob@example.com", "secret123", "User")

	w := doJSON(router, "GET", "/api/admin/users", tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var users []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 2, "role matching must ignore case both ways")
	for _, u := range users {
		assert.False(t, u.IsAdmin())
	}
	assert.NotContains(t, w.Body.String(), "password")
}

func TestGetUsersAllowsMixedCaseAdminRole(t *testing.T) {
	router := setupTest(t)
	boss := createTestUser(t, "Boss", "boss@example.com", "secret123", "Admin")

	w := doJSON(router, "GET", "/api/admin/users", tokenFor(t, boss), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateUserSuccess(t *testing.T) {
	router := setupTest(t)
	admin := createTestUser(t, "Root", "root@example.com", "secret123", models.RoleAdmin)

	w := doJSON(router, "POST", "/api/admin/create-user", tokenFor(t, admin), map[string]string{
		"name":     "Carol",
		"email":    "carol@example.com",
		"password": "longenough",
		"role":     "user",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "User created successfully")

	var created models.User
	require.NoError(t, database.DB.Where("email = ?", "carol@example.com").First(&created).Error)
	assert.Equal(t, "Carol", created.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("longenough")),
		"stored password must be a bcrypt hash of the submitted one")

	// the new account can log in right away
	w = doJSON(router, "POST", "/api/login", "", map[string]string{
		"email":    "carol@example.com",
		"password": "longenough",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateUserValidation(t *testing.T) {
	router := setupTest(t)
	admin := createTestUser(t, "Root", "root@example.com", "secret123", models.RoleAdmin)
	createTestUser(t, "Alice", "alice@example.com", "secret123", models.RoleUser)
	token := tokenFor(t, admin)

	valid := map[string]string{
		"name":     "Carol",
		"email":    "carol@example.com",
		"password": "longenough",
		"role":     "user",
	}
	tests := []struct {
		name     string
		override map[string]string
		field    string
	}{
		{"missing name", map[string]string{"name": ""}, "name"},
		{"missing email", map[string]string{"email": ""}, "email"},
		{"invalid email", map[string]string{"email": "not-an-email"}, "email"},
		{"duplicate email", map[string]string{"email": "alice@example.com"}, "email"},
		{"short password", map[string]string{"password": "short"}, "password"},
		{"missing role", map[string]string{"role": ""}, "role"},
		{"unknown role", map[string]string{"role": "superuser"}, "role"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload := map[string]string{}
			for k, v := range valid {
				payload[k] = v
			}
			for k, v := range tc.override {
				payload[k] = v
			}
			w := doJSON(router, "POST", "/api/admin/create-user", token, payload)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, fieldErrors(t, w), tc.field)
		})
	}

	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(2), count, "no rejected request may create an account")
}

func TestCreateUserAcceptsMixedCaseRole(t *testing.T) {
	router := setupTest(t)
	admin := createTestUser(t, "Root", "root@example.com", "secret123", models.RoleAdmin)

	w := doJSON(router, "POST", "/api/admin/create-user", tokenFor(t, admin), map[string]string{
		"name":     "Dora",
		"email":    "dora@example.com",
		"password": "longenough",
		"role":     "Admin",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.User
	require.NoError(t, database.DB.Where("email = ?", "dora@example.com").First(&created).Error)
	assert.True(t, created.IsAdmin())
}
