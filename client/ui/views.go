package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/taskboardhq/taskboard/client/api"
	"github.com/taskboardhq/taskboard/client/board"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(30)

	columnTitleStyle = lipgloss.NewStyle().Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	pinStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	priorityColors = map[string]lipgloss.Style{
		"Low":    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"Medium": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"High":   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

var columnLabels = map[string]string{
	"todo":        "To Do",
	"in-progress": "In Progress",
	"completed":   "Completed",
}

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" Taskboard "))
	b.WriteString("\n\n")

	switch m.view {
	case viewLogin:
		m.viewLoginForm(&b)
	case viewBoard:
		m.viewBoardColumns(&b)
	case viewCalendar:
		m.viewCalendarDays(&b)
	case viewAdmin:
		m.viewAdminUsers(&b)
	case viewCreate:
		m.viewCreateForm(&b)
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.footer()))
	b.WriteString("\n")
	return b.String()
}

func (m *model) footer() string {
	switch m.view {
	case viewLogin:
		return "enter: sign in • esc: quit"
	case viewCreate:
		return "tab: next field • ←/→: priority • enter: save • esc: cancel"
	case viewAdmin:
		if m.adminOpen {
			return "tab: next field • enter: create • esc: back"
		}
		return "a: add user • tab: board • r: refresh • q: quit"
	case viewCalendar:
		return "tab: next view • r: refresh • q: quit"
	default:
		return "j/k: select • p: pin • [/]: move • n: new • d: delete • tab: next view • r: refresh • q: quit"
	}
}

func (m *model) viewLoginForm(b *strings.Builder) {
	b.WriteString("Sign in\n\n")
	b.WriteString(renderField("Email", m.login.email, m.login.focus == 0, false))
	b.WriteString(renderField("Password", strings.Repeat("•", len(m.login.password)), m.login.focus == 1, false))
}

func (m *model) viewBoardColumns(b *strings.Builder) {
	if m.store.State() == board.StateLoading && len(m.store.Tasks()) == 0 {
		b.WriteString("Syncing with server...\n")
		return
	}

	selected, _ := m.selectedTask()

	columns := make([]string, 0, len(statusOrder))
	for _, status := range statusOrder {
		tasks := m.store.ByStatus(status)

		var col strings.Builder
		col.WriteString(columnTitleStyle.Render(fmt.Sprintf("%s (%d)", columnLabels[status], len(tasks))))
		col.WriteString("\n")

		for _, t := range tasks {
			col.WriteString("\n")
			col.WriteString(renderCard(t, t.ID == selected.ID))
		}

		columns = append(columns, columnStyle.Render(col.String()))
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	b.WriteString("\n")
}

func renderCard(t api.Task, selected bool) string {
	title := t.Title
	if t.IsPinned {
		title = pinStyle.Render("★ ") + title
	}
	if selected {
		title = selectedStyle.Render("> " + title)
	}

	lines := []string{title}
	if t.Description != "" {
		lines = append(lines, dimStyle.Render(truncate(t.Description, 26)))
	}
	meta := fmt.Sprintf("%s  %s",
		priorityColors[t.Priority].Render(t.Priority),
		t.DueDate.Format("Jan 2 15:04"))
	lines = append(lines, meta)
	if t.ImagePath != nil && *t.ImagePath != "" {
		lines = append(lines, dimStyle.Render("🖼 "+*t.ImagePath))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *model) viewCalendarDays(b *strings.Builder) {
	byDay, days := m.store.DueDays()
	if len(days) == 0 {
		b.WriteString("No tasks scheduled.\n")
		return
	}

	for _, day := range days {
		b.WriteString(columnTitleStyle.Render(day))
		b.WriteString("\n")
		for _, t := range byDay[day] {
			marker := " "
			if t.Status == "completed" {
				marker = "✓"
			}
			b.WriteString(fmt.Sprintf("  %s %s %s\n",
				marker, t.DueDate.Format("15:04"), t.Title))
		}
		b.WriteString("\n")
	}
}

func (m *model) viewAdminUsers(b *strings.Builder) {
	if m.adminOpen {
		b.WriteString("New user\n\n")
		b.WriteString(renderField("Name", m.adminForm.name, m.adminForm.focus == 0, false))
		b.WriteString(renderField("Email", m.adminForm.email, m.adminForm.focus == 1, false))
		b.WriteString(renderField("Password", strings.Repeat("•", len(m.adminForm.password)), m.adminForm.focus == 2, false))
		b.WriteString(renderField("Role", m.adminForm.role, m.adminForm.focus == 3, false))
		return
	}

	b.WriteString(columnTitleStyle.Render(fmt.Sprintf("Users (%d)", len(m.users))))
	b.WriteString("\n\n")
	if len(m.users) == 0 {
		b.WriteString(dimStyle.Render("No users yet.\n"))
		return
	}
	for _, u := range m.users {
		b.WriteString(fmt.Sprintf("  %-20s %-30s %s\n", u.Name, u.Email, dimStyle.Render(u.Role)))
	}
}

func (m *model) viewCreateForm(b *strings.Builder) {
	b.WriteString("New task\n\n")
	b.WriteString(renderField("Title", m.form.title, m.form.focus == 0, false))
	b.WriteString(renderField("Description", m.form.description, m.form.focus == 1, false))
	b.WriteString(renderField("Due date", m.form.dueDate, m.form.focus == 2, false))
	b.WriteString(renderField("Priority", priorities[m.form.priority], m.form.focus == 3, true))
	b.WriteString(renderField("Image file", m.form.image, m.form.focus == 4, false))
}

func renderField(label, value string, focused, choice bool) string {
	cursor := " "
	if focused {
		cursor = ">"
	}
	display := value
	if choice {
		display = "◂ " + value + " ▸"
	} else if focused {
		display += "▏"
	}
	line := fmt.Sprintf("%s %-12s %s\n", cursor, label+":", display)
	if focused {
		return selectedStyle.Render(line)
	}
	return line
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
