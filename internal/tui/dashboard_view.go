package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lachiem1/habitflow/internal/habit"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F15B5B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)

	selectedCardStyle = cardStyle.
				BorderForeground(lipgloss.Color("#FFD54A"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B9B4D0"))

	// intensityColors maps the five intensity levels to heat colors, level
	// 0 (no completion) first.
	intensityColors = [5]string{"#3A3A3A", "#9BE9A8", "#40C463", "#30A14E", "#216E39"}
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	layoutWidth := m.width
	if layoutWidth <= 0 {
		layoutWidth = 80
	}

	var body string
	switch {
	case m.creating:
		body = m.renderCreateDialog(layoutWidth)
	case m.screen == screenJournal:
		body = m.renderJournalScreen(layoutWidth)
	default:
		body = m.renderDashboard(layoutWidth)
	}

	lines := []string{body}
	if m.confirmDelete {
		if h, ok := m.selectedHabit(); ok {
			lines = append(lines, errStyle.Render(fmt.Sprintf("delete %q? y/n", h.Name)))
		}
	}
	if strings.TrimSpace(m.statusLine) != "" {
		lines = append(lines, statusStyle.Render(m.statusLine))
	}
	lines = append(lines, dimStyle.Render(m.helpLine()))
	return strings.Join(lines, "\n")
}

func (m model) helpLine() string {
	if m.screen == screenJournal {
		return "tab dashboard · ←/→ day · ctrl+s save · esc blur · ctrl+c quit"
	}
	return "space toggle · g grid · n new · D delete · r refresh · tab journal · q quit"
}

func (m model) renderDashboard(layoutWidth int) string {
	title := titleStyle.Render("habitflow")
	title = lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, title)

	if strings.TrimSpace(m.habitsErr) != "" {
		body := errStyle.Render("error: " + m.habitsErr)
		return strings.Join([]string{title, "", body}, "\n")
	}
	if m.habitsLoading {
		return strings.Join([]string{title, "", dimStyle.Render("loading habits...")}, "\n")
	}
	if len(m.habits) == 0 {
		return strings.Join([]string{title, "", dimStyle.Render("no habits yet; press n to create one")}, "\n")
	}

	cardWidth := max(44, min(layoutWidth-8, 64))
	cards := make([]string, 0, len(m.habits))
	for i, h := range m.habits {
		style := cardStyle
		if i == m.cursor {
			style = selectedCardStyle
		}
		cards = append(cards, style.Width(cardWidth).Render(m.renderHabitCard(h, cardWidth-4)))
	}

	sections := []string{title, "", strings.Join(cards, "\n")}
	if m.gridOpen {
		if h, ok := m.selectedHabit(); ok {
			sections = append(sections, "", m.renderMonthGrid(h))
		}
	}
	return strings.Join(sections, "\n")
}

func (m model) renderHabitCard(h habit.Habit, innerWidth int) string {
	metrics, ok := m.metrics[h.ID]
	if !ok {
		metrics = habit.Analyze(h, time.Now())
	}

	name := lipgloss.NewStyle().Bold(true).Render(h.Name)
	streaks := dimStyle.Render(fmt.Sprintf("streak %d · best %d", metrics.CurrentStreak, metrics.LongestStreak))
	header := name + "  " + streaks

	pcts := fmt.Sprintf("today %d%%   week %d%%   month %d%%", metrics.TodayPct, metrics.WeeklyPct, metrics.MonthlyPct)

	return strings.Join([]string{
		header,
		renderHeatStrip(metrics.Recent, h.Target()),
		statusStyle.Render(pcts),
		renderMiniBars(h, time.Now()),
	}, "\n")
}

// renderHeatStrip draws the 28-day window oldest to newest so it reads
// left to right like a calendar.
func renderHeatStrip(window []int, target int) string {
	var b strings.Builder
	for i := len(window) - 1; i >= 0; i-- {
		level := habit.IntensityLevel(habit.ProgressRatio(window[i], target))
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(intensityColors[level])).
			Render("■"))
	}
	return b.String()
}

// renderMiniBars draws four week buckets for the current month, each the
// percentage of days at or above target.
func renderMiniBars(h habit.Habit, now time.Time) string {
	cells := habit.BuildMonth(h.Completions, h.CreatedAt, now, h.Target(), now.Year(), now.Month())
	buckets := habit.WeekBuckets(cells)

	parts := make([]string, 0, len(buckets))
	for i, pct := range buckets {
		filled := pct / 20
		bar := strings.Repeat("▰", filled) + strings.Repeat("▱", 5-filled)
		parts = append(parts, fmt.Sprintf("w%d %s", i+1, bar))
	}
	return dimStyle.Render(strings.Join(parts, "  "))
}

func (m model) renderMonthGrid(h habit.Habit) string {
	now := time.Now()
	cells := habit.BuildMonth(h.Completions, h.CreatedAt, now, h.Target(), now.Year(), now.Month())

	header := titleStyle.Render(now.Format("January 2006") + " · " + h.Name)

	var rows []string
	var row strings.Builder
	for i, cell := range cells {
		if !cell.Active {
			row.WriteString(dimStyle.Render(" ·"))
		} else {
			level := habit.IntensityLevel(cell.Ratio)
			row.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(intensityColors[level])).
				Render(" ■"))
		}
		if (i+1)%7 == 0 {
			rows = append(rows, row.String())
			row.Reset()
		}
	}
	if row.Len() > 0 {
		rows = append(rows, row.String())
	}

	return strings.Join(append([]string{header}, rows...), "\n")
}

func (m model) renderCreateDialog(layoutWidth int) string {
	title := titleStyle.Render("new habit")
	lines := []string{
		title,
		"",
		m.nameInput.View(),
		m.targetInput.View(),
	}
	if m.createErr != "" {
		lines = append(lines, errStyle.Render(m.createErr))
	}
	lines = append(lines, dimStyle.Render("enter create · tab switch field · esc cancel"))
	body := strings.Join(lines, "\n")
	return lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Left, body)
}
