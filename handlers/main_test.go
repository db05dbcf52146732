package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/taskboardhq/taskboard/database"
	"github.com/taskboardhq/taskboard/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTest wires an isolated in-memory database and a router with the same
// route layout as main.go (minus the event bus).
func setupTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	database.DB = db

	t.Setenv("UPLOADS_DIR", t.TempDir())

	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/login", Login)

		authorized := api.Group("")
		authorized.Use(AuthMiddleware())
		{
			authorized.GET("/user", CurrentUser)

			tasks := authorized.Group("/tasks")
			{
				tasks.GET("", GetTasks)
				tasks.POST("", CreateTask)
				tasks.PUT("/:id", UpdateTask)
				tasks.PATCH("/:id", UpdateTask)
				tasks.DELETE("/:id", DeleteTask)
			}

			admin := authorized.Group("/admin")
			admin.Use(RequireAdmin())
			{
				admin.GET("/users", GetUsers)
				admin.POST("/create-user", CreateUser)
			}
		}
	}
	return router
}

func createTestUser(t *testing.T, name, email, password, role string) models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     role,
	}
	require.NoError(t, database.DB.Create(&user).Error)
	return user
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := IssueToken(user.ID)
	require.NoError(t, err)
	return token
}

func doJSON(router *gin.Engine, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// doRaw sends a request with a verbatim Authorization header value
func doRaw(router *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// doMultipart posts form fields plus an optional file part named "image"
func doMultipart(router *gin.Engine, method, path, token string, fields map[string]string, filename string, fileData []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	if filename != "" {
		part, _ := writer.CreateFormFile("image", filename)
		part.Write(fileData)
	}
	writer.Close()

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeTask(t *testing.T, w *httptest.ResponseRecorder) models.Task {
	t.Helper()
	var task models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	return task
}

func decodeTasks(t *testing.T, w *httptest.ResponseRecorder) []models.Task {
	t.Helper()
	var tasks []models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	return tasks
}

func fieldErrors(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload.Errors
}

// pngBytes returns data carrying the PNG signature, padded to the given size
func pngBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte("\x89PNG\r\n\x1a\n"))
	return data
}

func taskPath(id uint) string {
	return fmt.Sprintf("/api/tasks/%d", id)
}
