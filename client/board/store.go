// Package board holds the client-side task state: one canonical in-memory
// collection synced with the server, optimistic mutations that fall back to a
// refetch when a call fails, and pure projections for the views.
package board

import (
	"errors"
	"sort"
	"sync"

	"github.com/taskboardhq/taskboard/client/api"
	"github.com/taskboardhq/taskboard/client/session"
)

// State of the task-list view
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateError   State = "error"
)

// ErrSessionExpired is reported when the server answers 401; the session has
// already been cleared and the user must log in again.
var ErrSessionExpired = errors.New("session expired, please log in again")

// Store mediates between server state and the UI
type Store struct {
	api     *api.Client
	session *session.Manager

	mu      sync.RWMutex
	state   State
	tasks   []api.Task
	lastErr error

	onChange func()
	wg       sync.WaitGroup
}

// NewStore creates a store in the idle state
func NewStore(client *api.Client, sess *session.Manager) *Store {
	return &Store{
		api:     client,
		session: sess,
		state:   StateIdle,
	}
}

// OnChange registers a callback run after every state or collection change
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// State returns the current view state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the last failure, nil while loaded
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Tasks returns a copy of the canonical collection
func (s *Store) Tasks() []api.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Refresh fetches the authoritative list from the server. On an auth failure
// the session is cleared; on any other failure the prior list is kept.
func (s *Store) Refresh() error {
	s.setState(StateLoading, nil)

	tasks, err := s.api.ListTasks()
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			s.session.Clear()
			s.setState(StateError, ErrSessionExpired)
			return ErrSessionExpired
		}
		s.setState(StateError, err)
		return err
	}

	s.mu.Lock()
	s.tasks = tasks
	s.state = StateLoaded
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// TogglePin flips a task's pin flag optimistically
func (s *Store) TogglePin(id uint) {
	var pinned bool
	ok := s.mutate(id, func(t *api.Task) {
		t.IsPinned = !t.IsPinned
		pinned = bool(t.IsPinned)
	})
	if !ok {
		return
	}

	s.background(func() error {
		_, err := s.api.UpdateTask(id, api.UpdateTaskInput{IsPinned: &pinned})
		return err
	})
}

// MoveTask changes a task's status column optimistically
func (s *Store) MoveTask(id uint, status string) {
	if !s.mutate(id, func(t *api.Task) { t.Status = status }) {
		return
	}

	s.background(func() error {
		_, err := s.api.UpdateTask(id, api.UpdateTaskInput{Status: &status})
		return err
	})
}

// EditTask applies a partial update optimistically
func (s *Store) EditTask(id uint, in api.UpdateTaskInput) {
	ok := s.mutate(id, func(t *api.Task) {
		if in.Title != nil {
			t.Title = *in.Title
		}
		if in.Description != nil {
			t.Description = *in.Description
		}
		if in.Priority != nil {
			t.Priority = *in.Priority
		}
		if in.Status != nil {
			t.Status = *in.Status
		}
		if in.IsPinned != nil {
			t.IsPinned = api.Flag(*in.IsPinned)
		}
	})
	if !ok {
		return
	}

	s.background(func() error {
		_, err := s.api.UpdateTask(id, in)
		return err
	})
}

// DeleteTask removes a task optimistically
func (s *Store) DeleteTask(id uint) {
	s.mu.Lock()
	found := false
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	s.mu.Unlock()

	if !found {
		return
	}
	s.notify()

	s.background(func() error {
		return s.api.DeleteTask(id)
	})
}

// CreateTask submits the create form. Unlike the other mutations this waits
// for the server: later edits need the assigned identifier, and the form
// surfaces validation errors inline. The draft is cleared on success.
func (s *Store) CreateTask(in api.CreateTaskInput) (api.Task, error) {
	task, err := s.api.CreateTask(in)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			s.session.Clear()
			s.setState(StateError, ErrSessionExpired)
			return api.Task{}, ErrSessionExpired
		}
		return api.Task{}, err
	}

	s.mu.Lock()
	s.tasks = append([]api.Task{task}, s.tasks...)
	s.mu.Unlock()
	s.notify()

	s.session.ClearDraft()
	return task, nil
}

// SaveDraft mirrors the create form's fields to the durable session
func (s *Store) SaveDraft(d session.Draft) {
	s.session.SetDraft(d)
}

// RestoreDraft returns the saved new-task draft, if any
func (s *Store) RestoreDraft() (session.Draft, bool) {
	return s.session.Draft()
}

// CancelDraft drops the draft when the form is explicitly cancelled
func (s *Store) CancelDraft() {
	s.session.ClearDraft()
}

// ByStatus projects the tasks of one status column, preserving order
func (s *Store) ByStatus(status string) []api.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []api.Task
	for _, t := range s.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Pinned projects the pinned subset
func (s *Store) Pinned() []api.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []api.Task
	for _, t := range s.tasks {
		if t.IsPinned {
			out = append(out, t)
		}
	}
	return out
}

// DueDays returns the calendar grouping: tasks keyed by due day plus the
// sorted day keys
func (s *Store) DueDays() (map[string][]api.Task, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[string][]api.Task)
	for _, t := range s.tasks {
		day := t.DueDate.Format("2006-01-02")
		byDay[day] = append(byDay[day], t)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	return byDay, days
}

// Wait blocks until all background sync calls have settled
func (s *Store) Wait() {
	s.wg.Wait()
}

// mutate applies fn to the task with the given id and notifies on success
func (s *Store) mutate(id uint, fn func(*api.Task)) bool {
	s.mu.Lock()
	found := false
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			fn(&s.tasks[i])
			found = true
			break
		}
	}
	s.mu.Unlock()

	if found {
		s.notify()
	}
	return found
}

// background runs a server call after an optimistic local update. A failure
// discards the optimistic guess by refetching the canonical list instead of
// attempting a fine-grained undo.
func (s *Store) background(fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				s.session.Clear()
				s.setState(StateError, ErrSessionExpired)
				return
			}
			s.Refresh()
		}
	}()
}

func (s *Store) setState(state State, err error) {
	s.mu.Lock()
	s.state = state
	s.lastErr = err
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
