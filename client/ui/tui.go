// Package ui provides the terminal interface for the task board.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskboardhq/taskboard/client/api"
	"github.com/taskboardhq/taskboard/client/board"
	"github.com/taskboardhq/taskboard/client/session"
)

type view int

const (
	viewLogin view = iota
	viewBoard
	viewCalendar
	viewAdmin
	viewCreate
)

var priorities = []string{"Low", "Medium", "High"}

var statusOrder = []string{"todo", "in-progress", "completed"}

// Run starts the TUI
func Run(ctx context.Context, client *api.Client, sess *session.Manager, store *board.Store) error {
	model := newModel(client, sess, store)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// Repaint on every store change, including ones no keypress caused
	watchStore(store, program.Send)

	// Live board events from other sessions of the same user
	if sess.Token() != "" {
		go store.ListenEvents(ctx)
	}

	_, err := program.Run()
	return err
}

// watchStore forwards store changes into the program's event loop. Background
// refetches and live events mutate the store outside of Update, and the
// screen must follow.
func watchStore(store *board.Store, send func(tea.Msg)) {
	store.OnChange(func() { send(refreshedMsg{}) })
}

type model struct {
	client *api.Client
	sess   *session.Manager
	store  *board.Store

	view   view
	width  int
	height int
	status string

	// board selection
	cursor int

	// login form
	login loginForm

	// create-task form
	form createForm

	// admin view
	users     []api.User
	adminForm adminForm
	adminOpen bool
}

type loginForm struct {
	email    string
	password string
	focus    int
}

type createForm struct {
	title       string
	description string
	dueDate     string
	priority    int
	image       string
	focus       int
}

type adminForm struct {
	name     string
	email    string
	password string
	role     string
	focus    int
}

type refreshedMsg struct{}

type loggedInMsg struct {
	user api.User
}

type usersMsg struct {
	users []api.User
}

type errMsg struct {
	err error
}

type createdMsg struct{}

type userCreatedMsg struct{}

func newModel(client *api.Client, sess *session.Manager, store *board.Store) *model {
	m := &model{
		client: client,
		sess:   sess,
		store:  store,
	}

	state := sess.Get()
	if state.Token != "" {
		client.SetToken(state.Token)
		m.view = viewBoard
	} else {
		m.view = viewLogin
	}
	m.adminForm.role = "user"
	return m
}

func (m *model) Init() tea.Cmd {
	if m.view == viewBoard {
		return m.refreshCmd()
	}
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshedMsg:
		if err := m.store.Err(); err != nil {
			if errors.Is(err, board.ErrSessionExpired) {
				// 401: session already cleared, back to login
				m.view = viewLogin
				m.status = err.Error()
				return m, nil
			}
			m.status = err.Error()
			return m, nil
		}
		m.status = ""
		m.clampCursor()
		return m, nil

	case loggedInMsg:
		m.view = viewBoard
		m.status = fmt.Sprintf("Signed in as %s", msg.user.Name)
		return m, m.refreshCmd()

	case usersMsg:
		m.users = msg.users
		return m, nil

	case createdMsg:
		m.form = createForm{}
		m.view = viewBoard
		m.status = "Task added!"
		return m, nil

	case userCreatedMsg:
		m.adminOpen = false
		m.adminForm = adminForm{role: "user"}
		m.status = "User created"
		return m, m.loadUsersCmd()

	case errMsg:
		if errors.Is(msg.err, board.ErrSessionExpired) || errors.Is(msg.err, api.ErrUnauthorized) {
			m.sess.Clear()
			m.view = viewLogin
			m.status = board.ErrSessionExpired.Error()
			return m, nil
		}
		m.status = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.view {
	case viewLogin:
		return m.updateLogin(msg)
	case viewCreate:
		return m.updateCreate(msg)
	case viewAdmin:
		if m.adminOpen {
			return m.updateAdminForm(msg)
		}
		return m.updateLists(msg)
	default:
		return m.updateLists(msg)
	}
}

// updateLists handles keys on the board, calendar and admin list views
func (m *model) updateLists(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "tab":
		switch m.view {
		case viewBoard:
			m.view = viewCalendar
		case viewCalendar:
			if m.isAdmin() {
				m.view = viewAdmin
				return m, m.loadUsersCmd()
			}
			m.view = viewBoard
		case viewAdmin:
			m.view = viewBoard
		}
		return m, nil

	case "r", "f5":
		return m, m.refreshCmd()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		m.cursor++
		m.clampCursor()
		return m, nil

	case "n":
		if m.view == viewBoard {
			m.openCreateForm()
			return m, nil
		}

	case "a":
		if m.view == viewAdmin {
			m.adminOpen = true
			m.adminForm = adminForm{role: "user"}
			return m, nil
		}

	case "p":
		if t, ok := m.selectedTask(); ok {
			m.store.TogglePin(t.ID)
		}
		return m, nil

	case "]":
		if t, ok := m.selectedTask(); ok {
			if next, ok := nextStatus(t.Status, 1); ok {
				m.store.MoveTask(t.ID, next)
			}
		}
		return m, nil

	case "[":
		if t, ok := m.selectedTask(); ok {
			if prev, ok := nextStatus(t.Status, -1); ok {
				m.store.MoveTask(t.ID, prev)
			}
		}
		return m, nil

	case "d":
		if t, ok := m.selectedTask(); ok {
			m.store.DeleteTask(t.ID)
			m.clampCursor()
		}
		return m, nil
	}

	return m, nil
}

func (m *model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	field := &m.login.email
	if m.login.focus == 1 {
		field = &m.login.password
	}

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "down":
		m.login.focus = (m.login.focus + 1) % 2
	case "up":
		m.login.focus = (m.login.focus + 1) % 2
	case "enter":
		if m.login.focus == 0 {
			m.login.focus = 1
			return m, nil
		}
		return m, m.loginCmd()
	case "backspace":
		*field = trimLast(*field)
	default:
		if msg.Type == tea.KeyRunes {
			*field += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			*field += " "
		}
	}
	return m, nil
}

// openCreateForm opens the new-task form, restoring a saved draft when one
// exists
func (m *model) openCreateForm() {
	m.form = createForm{}
	if draft, ok := m.store.RestoreDraft(); ok {
		m.form.title = draft.Title
		m.form.description = draft.Description
		m.form.dueDate = draft.DueDate
		for i, p := range priorities {
			if p == draft.Priority {
				m.form.priority = i
			}
		}
	}
	m.view = viewCreate
}

func (m *model) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fields := []*string{&m.form.title, &m.form.description, &m.form.dueDate, nil, &m.form.image}

	switch msg.String() {
	case "esc":
		// Explicit cancel drops the draft
		m.store.CancelDraft()
		m.form = createForm{}
		m.view = viewBoard
		return m, nil

	case "tab", "down":
		m.form.focus = (m.form.focus + 1) % len(fields)
		return m, nil

	case "shift+tab", "up":
		m.form.focus = (m.form.focus + len(fields) - 1) % len(fields)
		return m, nil

	case "left", "right":
		if m.form.focus == 3 {
			delta := 1
			if msg.String() == "left" {
				delta = len(priorities) - 1
			}
			m.form.priority = (m.form.priority + delta) % len(priorities)
			m.mirrorDraft()
		}
		return m, nil

	case "enter":
		if m.form.focus < len(fields)-1 {
			m.form.focus++
			return m, nil
		}
		return m, m.createCmd()

	case "backspace":
		if field := fields[m.form.focus]; field != nil {
			*field = trimLast(*field)
			m.mirrorDraft()
		}
		return m, nil
	}

	if field := fields[m.form.focus]; field != nil {
		if msg.Type == tea.KeyRunes {
			*field += string(msg.Runes)
			m.mirrorDraft()
		} else if msg.Type == tea.KeySpace {
			*field += " "
			m.mirrorDraft()
		}
	}
	return m, nil
}

func (m *model) updateAdminForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fields := []*string{&m.adminForm.name, &m.adminForm.email, &m.adminForm.password, &m.adminForm.role}
	field := fields[m.adminForm.focus]

	switch msg.String() {
	case "esc":
		m.adminOpen = false
		return m, nil
	case "tab", "down":
		m.adminForm.focus = (m.adminForm.focus + 1) % len(fields)
		return m, nil
	case "shift+tab", "up":
		m.adminForm.focus = (m.adminForm.focus + len(fields) - 1) % len(fields)
		return m, nil
	case "enter":
		if m.adminForm.focus < len(fields)-1 {
			m.adminForm.focus++
			return m, nil
		}
		return m, m.createUserCmd()
	case "backspace":
		*field = trimLast(*field)
		return m, nil
	}

	if msg.Type == tea.KeyRunes {
		*field += string(msg.Runes)
	} else if msg.Type == tea.KeySpace {
		*field += " "
	}
	return m, nil
}

// mirrorDraft persists the form's current values on every change
func (m *model) mirrorDraft() {
	m.store.SaveDraft(session.Draft{
		Title:       m.form.title,
		Description: m.form.description,
		DueDate:     m.form.dueDate,
		Priority:    priorities[m.form.priority],
	})
}

func (m *model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		m.store.Refresh()
		return refreshedMsg{}
	}
}

func (m *model) loginCmd() tea.Cmd {
	email, password := m.login.email, m.login.password
	return func() tea.Msg {
		token, user, err := m.client.Login(email, password)
		if err != nil {
			return errMsg{err: err}
		}
		if err := m.sess.SetLogin(token, user); err != nil {
			return errMsg{err: err}
		}
		return loggedInMsg{user: user}
	}
}

func (m *model) createCmd() tea.Cmd {
	in := api.CreateTaskInput{
		Title:       m.form.title,
		Description: m.form.description,
		DueDate:     m.form.dueDate,
		Priority:    priorities[m.form.priority],
		ImageFile:   m.form.image,
	}
	return func() tea.Msg {
		if _, err := m.store.CreateTask(in); err != nil {
			return errMsg{err: err}
		}
		return createdMsg{}
	}
}

func (m *model) loadUsersCmd() tea.Cmd {
	return func() tea.Msg {
		users, err := m.client.ListUsers()
		if err != nil {
			return errMsg{err: err}
		}
		return usersMsg{users: users}
	}
}

func (m *model) createUserCmd() tea.Cmd {
	in := api.CreateUserInput{
		Name:     m.adminForm.name,
		Email:    m.adminForm.email,
		Password: m.adminForm.password,
		Role:     m.adminForm.role,
	}
	return func() tea.Msg {
		if err := m.client.CreateUser(in); err != nil {
			return errMsg{err: err}
		}
		return userCreatedMsg{}
	}
}

// selectedTask resolves the cursor against the board's flattened order
func (m *model) selectedTask() (api.Task, bool) {
	tasks := m.boardOrder()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return api.Task{}, false
	}
	return tasks[m.cursor], true
}

// boardOrder flattens the columns left to right, the order the board renders
func (m *model) boardOrder() []api.Task {
	var out []api.Task
	for _, status := range statusOrder {
		out = append(out, m.store.ByStatus(status)...)
	}
	return out
}

func (m *model) clampCursor() {
	n := len(m.boardOrder())
	if n == 0 {
		m.cursor = 0
	} else if m.cursor >= n {
		m.cursor = n - 1
	}
}

func (m *model) isAdmin() bool {
	state := m.sess.Get()
	return state.User != nil && strings.EqualFold(state.User.Role, "admin")
}

func nextStatus(current string, delta int) (string, bool) {
	for i, s := range statusOrder {
		if s == current {
			next := i + delta
			if next < 0 || next >= len(statusOrder) {
				return "", false
			}
			return statusOrder[next], true
		}
	}
	return "", false
}

func trimLast(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return string(runes[:len(runes)-1])
}

