package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboardhq/taskboard/client/api"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	m, err := NewManager(path)
	require.NoError(t, err)
	return m, path
}

func TestNewManagerCreatesFile(t *testing.T) {
	_, path := newTestManager(t)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSessionRoundTrip(t *testing.T) {
	m, path := newTestManager(t)

	require.NoError(t, m.SetServerURL("http://localhost:8000"))
	require.NoError(t, m.SetLogin("token-abc", api.User{ID: 7, Name: "Alice", Role: "user"}))
	require.NoError(t, m.SetDraft(Draft{Title: "Half typed", Priority: "High"}))

	// a fresh manager sees everything the first one persisted
	reloaded, err := NewManager(path)
	require.NoError(t, err)

	state := reloaded.Get()
	assert.Equal(t, "http://localhost:8000", state.ServerURL)
	assert.Equal(t, "token-abc", reloaded.Token())
	require.NotNil(t, state.User)
	assert.Equal(t, uint(7), state.User.ID)

	draft, ok := reloaded.Draft()
	require.True(t, ok)
	assert.Equal(t, "Half typed", draft.Title)
	assert.Equal(t, "High", draft.Priority)
}

func TestClearKeepsDraft(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.SetLogin("token-abc", api.User{ID: 7}))
	require.NoError(t, m.SetDraft(Draft{Title: "Survivor"}))

	require.NoError(t, m.Clear())

	assert.Empty(t, m.Token())
	assert.Nil(t, m.Get().User)
	draft, ok := m.Draft()
	require.True(t, ok, "an expired session must not discard a half-typed task")
	assert.Equal(t, "Survivor", draft.Title)
}

func TestClearDraft(t *testing.T) {
	m, path := newTestManager(t)

	require.NoError(t, m.SetDraft(Draft{Title: "Gone soon"}))
	require.NoError(t, m.ClearDraft())

	_, ok := m.Draft()
	assert.False(t, ok)

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	_, ok = reloaded.Draft()
	assert.False(t, ok)
}

func TestDraftOverwrite(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.SetDraft(Draft{Title: "v1"}))
	require.NoError(t, m.SetDraft(Draft{Title: "v2", Description: "more"}))

	draft, ok := m.Draft()
	require.True(t, ok)
	assert.Equal(t, "v2", draft.Title)
	assert.Equal(t, "more", draft.Description)
}

func TestCorruptSessionFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Empty(t, m.Token())
	_, ok := m.Draft()
	assert.False(t, ok)
}
