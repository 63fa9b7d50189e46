package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lachiem1/habitflow/internal/daylog"
	"github.com/lachiem1/habitflow/internal/syncer"
)

func (m model) renderJournalScreen(layoutWidth int) string {
	title := titleStyle.Render("journal · " + m.journalDate)
	title = lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, title)

	if strings.TrimSpace(m.logsErr) != "" {
		return strings.Join([]string{title, "", errStyle.Render("error: " + m.logsErr)}, "\n")
	}
	if m.logsLoading {
		return strings.Join([]string{title, "", dimStyle.Render("loading journal...")}, "\n")
	}

	editor := make([]string, 0, len(m.journalInputs)+2)
	for i := range m.journalInputs {
		editor = append(editor, m.journalInputs[i].View())
	}
	editor = append(editor, "", m.renderSaveState())

	editorBox := cardStyle.Width(min(max(48, layoutWidth-12), 72)).Render(strings.Join(editor, "\n"))

	return strings.Join([]string{
		title,
		"",
		editorBox,
		"",
		m.renderWeekList(),
	}, "\n")
}

func (m model) renderSaveState() string {
	state := m.stack.LogSaves.Status(m.journalDate)
	label := saveStateLabel(state)
	style := dimStyle
	switch state {
	case syncer.StateDirty, syncer.StateSaving:
		style = statusStyle
	case syncer.StateOffline:
		style = errStyle
	}
	return style.Render(label)
}

func (m model) renderWeekList() string {
	if len(m.logs) == 0 {
		return dimStyle.Render("no entries this week")
	}

	rows := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		marker := "  "
		if l.Date == m.journalDate {
			marker = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD54A")).Render("> ")
		}
		summary := daylog.FirstLine(l.WorkSummary)
		hours := ""
		if l.HoursWorked > 0 {
			hours = dimStyle.Render(fmt.Sprintf("  %.1fh", l.HoursWorked))
		}
		rows = append(rows, fmt.Sprintf("%s%s  %s%s", marker, l.Date, summary, hours))
	}
	return strings.Join(rows, "\n")
}
