// Package api implements the REST client used by the terminal board client.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Sentinel errors mapped from response status codes
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// ValidationError carries the server's per-field messages for a 422 response
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Client talks to the taskboard API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates an API client for the given server base URL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken sets the bearer token sent on protected calls
func (c *Client) SetToken(token string) {
	c.token = token
}

// BaseURL returns the server base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login authenticates and returns the issued token with the user identity
func (c *Client) Login(email, password string) (string, User, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", User{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", User{}, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", User{}, responseError(resp)
	}

	var authResp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", User{}, fmt.Errorf("failed to decode response: %w", err)
	}

	c.token = authResp.Token
	return authResp.Token, authResp.User, nil
}

// CurrentUser fetches the session identity
func (c *Client) CurrentUser() (User, error) {
	var user User
	err := c.doJSON("GET", "/api/user", nil, &user)
	return user, err
}

// ListTasks fetches the current user's tasks, newest first
func (c *Client) ListTasks() ([]Task, error) {
	var tasks []Task
	if err := c.doJSON("GET", "/api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTaskInput holds the create form fields. ImageFile, when set, is a
// local path attached as the multipart image part.
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     string
	Priority    string
	ImageFile   string
}

// CreateTask creates a task via a multipart request
func (c *Client) CreateTask(in CreateTaskInput) (Task, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"title":       in.Title,
		"description": in.Description,
		"due_date":    in.DueDate,
	}
	if in.Priority != "" {
		fields["priority"] = in.Priority
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return Task{}, err
		}
	}

	if in.ImageFile != "" {
		file, err := os.Open(in.ImageFile)
		if err != nil {
			return Task{}, fmt.Errorf("failed to open image: %w", err)
		}
		defer file.Close()

		part, err := writer.CreateFormFile("image", filepath.Base(in.ImageFile))
		if err != nil {
			return Task{}, err
		}
		if _, err := io.Copy(part, file); err != nil {
			return Task{}, fmt.Errorf("failed to read image: %w", err)
		}
	}

	writer.Close()

	req, err := http.NewRequest("POST", c.baseURL+"/api/tasks", &body)
	if err != nil {
		return Task{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var task Task
	if err := c.do(req, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// UpdateTaskInput is the partial-update field subset. Nil fields are omitted
// and keep their server-side value.
type UpdateTaskInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
	IsPinned    *bool   `json:"is_pinned,omitempty"`
}

// UpdateTask applies a partial update to one task
func (c *Client) UpdateTask(id uint, in UpdateTaskInput) (Task, error) {
	var task Task
	err := c.doJSON("PATCH", fmt.Sprintf("/api/tasks/%d", id), in, &task)
	return task, err
}

// DeleteTask deletes one task
func (c *Client) DeleteTask(id uint) error {
	return c.doJSON("DELETE", fmt.Sprintf("/api/tasks/%d", id), nil, nil)
}

// ListUsers fetches non-admin accounts (admin only)
func (c *Client) ListUsers() ([]User, error) {
	var users []User
	if err := c.doJSON("GET", "/api/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUserInput holds the admin provisioning form
type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUser provisions a new account (admin only)
func (c *Client) CreateUser(in CreateUserInput) error {
	return c.doJSON("POST", "/api/admin/create-user", in, nil)
}

// doJSON issues a JSON request and decodes the response into out when non-nil
func (c *Client) doJSON(method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return responseError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// responseError maps an error response onto the client error taxonomy
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnprocessableEntity:
		var payload struct {
			Errors map[string]string `json:"errors"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
			return &ValidationError{Fields: payload.Errors}
		}
		return &ValidationError{}
	}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("server error: %s", payload.Error)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
