// Package session persists client-side session state between runs: the
// server URL, the bearer token, the signed-in user, and the in-progress
// new-task draft.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/taskboardhq/taskboard/client/api"
)

// Draft holds the not-yet-submitted create-form fields. The image is never
// part of the draft: binary attachments cannot be mirrored to disk sensibly.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Priority    string `json:"priority"`
}

// State is the full persisted session
type State struct {
	ServerURL string    `json:"serverUrl"`
	Token     string    `json:"token,omitempty"`
	User      *api.User `json:"user,omitempty"`

	// Draft of a new (not an edit of an existing) task
	Draft    *Draft `json:"draft,omitempty"`
	HasDraft bool   `json:"hasDraft"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Manager handles session persistence and access
type Manager struct {
	path  string
	state *State
	mu    sync.RWMutex
}

// DefaultPath returns the session file location under the user's home
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskboard/session.json"
	}
	return filepath.Join(home, ".taskboard", "session.json")
}

// NewManager loads the session file, creating an empty session when absent
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	if err := m.load(); err != nil {
		m.state = &State{UpdatedAt: time.Now()}
		if err := m.save(); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}

	return m, nil
}

// Get returns a copy of the current session state
func (m *Manager) Get() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.state
}

// Token returns the stored bearer token, empty when signed out
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Token
}

// SetServerURL records the server the session belongs to
func (m *Manager) SetServerURL(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.ServerURL = url
	m.state.UpdatedAt = time.Now()
	return m.saveUnsafe()
}

// SetLogin records a fresh login
func (m *Manager) SetLogin(token string, user api.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Token = token
	m.state.User = &user
	m.state.UpdatedAt = time.Now()
	return m.saveUnsafe()
}

// Clear drops the authenticated session. Called at logout and on a 401.
// The draft survives: an expired session should not eat a half-typed task.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Token = ""
	m.state.User = nil
	m.state.UpdatedAt = time.Now()
	return m.saveUnsafe()
}

// SetDraft mirrors the create form's current values to disk
func (m *Manager) SetDraft(d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Draft = &d
	m.state.HasDraft = true
	m.state.UpdatedAt = time.Now()
	return m.saveUnsafe()
}

// Draft returns the saved draft, if one exists
func (m *Manager) Draft() (Draft, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.state.HasDraft || m.state.Draft == nil {
		return Draft{}, false
	}
	return *m.state.Draft, true
}

// ClearDraft drops the draft after a successful create or an explicit cancel
func (m *Manager) ClearDraft() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Draft = nil
	m.state.HasDraft = false
	m.state.UpdatedAt = time.Now()
	return m.saveUnsafe()
}

// load reads the session from file
func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}

	m.state = &state
	return nil
}

// save writes the session to file
func (m *Manager) save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnsafe()
}

// saveUnsafe writes the session to file (caller must hold lock)
func (m *Manager) saveUnsafe() error {
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0600)
}
