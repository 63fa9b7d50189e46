package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lachiem1/habitflow/internal/calendar"
	"github.com/lachiem1/habitflow/internal/daylog"
	"github.com/lachiem1/habitflow/internal/habit"
	"github.com/lachiem1/habitflow/internal/hubapi"
	"github.com/lachiem1/habitflow/internal/syncer"
)

type screenMode int

const (
	screenDashboard screenMode = iota
	screenJournal
)

type loadHabitsMsg struct {
	habits []habit.Habit
	source syncer.Source
	err    error
}

type toggleHabitMsg struct {
	habit   habit.Habit
	offline bool
	err     error
}

type createHabitMsg struct {
	habit   habit.Habit
	offline bool
	err     error
}

type deleteHabitMsg struct {
	id      string
	offline bool
	err     error
}

type loadLogsMsg struct {
	logs   []daylog.DailyLog
	source syncer.Source
	err    error
}

type logSavedMsg struct {
	date string
	err  error
}

type EngineEventMsg syncer.Event

type SaveEventMsg syncer.SaveEvent

const (
	createFocusName = iota
	createFocusTarget
)

const (
	journalFocusSummary = iota
	journalFocusLearnings
	journalFocusIssues
	journalFocusHours
	journalFocusCount
)

type model struct {
	stack  *syncer.Stack
	events <-chan tea.Msg
	mode   habit.MarkMode

	width  int
	height int
	screen screenMode

	habits        []habit.Habit
	metrics       map[string]habit.Metrics
	habitsErr     string
	habitsLoading bool
	source        syncer.Source
	cursor        int
	offset        int
	gridOpen      bool

	creating    bool
	createFocus int
	createErr   string
	nameInput   textinput.Model
	targetInput textinput.Model

	confirmDelete bool

	logs          []daylog.DailyLog
	logsErr       string
	logsLoading   bool
	journalDate   string
	journalFocus  int
	journalInputs [journalFocusCount]textinput.Model

	statusLine string
	quitting   bool
}

// New builds the root model. events carries engine and save notifications
// from the sync layer's callbacks into the update loop.
func New(stack *syncer.Stack, mode habit.MarkMode, events <-chan tea.Msg) tea.Model {
	nameInput := textinput.New()
	nameInput.Prompt = "name: "
	nameInput.Placeholder = "e.g. morning run"
	nameInput.Width = 36

	targetInput := textinput.New()
	targetInput.Prompt = "times/day: "
	targetInput.Placeholder = "1"
	targetInput.Width = 6

	var journalInputs [journalFocusCount]textinput.Model
	prompts := [journalFocusCount]string{"worked on: ", "learned:   ", "issues:    ", "hours:     "}
	for i := range journalInputs {
		in := textinput.New()
		in.Prompt = prompts[i]
		in.Width = 56
		journalInputs[i] = in
	}

	return model{
		stack:         stack,
		events:        events,
		mode:          mode,
		screen:        screenDashboard,
		metrics:       make(map[string]habit.Metrics),
		habitsLoading: true,
		nameInput:     nameInput,
		targetInput:   targetInput,
		journalDate:   calendar.FormatISO(time.Now()),
		journalInputs: journalInputs,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.loadHabitsCmd(),
		m.enterHabitsViewCmd(),
		m.listenEventsCmd(),
	)
}

func (m model) listenEventsCmd() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg { return <-events }
}

func (m model) loadHabitsCmd() tea.Cmd {
	stack := m.stack
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		habits, source, err := stack.HabitSaves.Load(ctx)
		return loadHabitsMsg{habits: habits, source: source, err: err}
	}
}

func (m model) enterHabitsViewCmd() tea.Cmd {
	stack := m.stack
	return func() tea.Msg {
		_ = stack.Service.EnterHabitsView(context.Background())
		return nil
	}
}

func (m model) enterJournalViewCmd() tea.Cmd {
	stack := m.stack
	return func() tea.Msg {
		_ = stack.Service.EnterJournalView(context.Background())
		return nil
	}
}

func (m model) toggleHabitCmd(id string) tea.Cmd {
	stack := m.stack
	mode := m.mode
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		h, offline, err := stack.Habits.ToggleCompletion(ctx, id, mode)
		return toggleHabitMsg{habit: h, offline: offline, err: err}
	}
}

func (m model) createHabitCmd(params hubapi.CreateHabitParams) tea.Cmd {
	stack := m.stack
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		h, offline, err := stack.Habits.Create(ctx, params)
		return createHabitMsg{habit: h, offline: offline, err: err}
	}
}

func (m model) deleteHabitCmd(id string) tea.Cmd {
	stack := m.stack
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		offline, err := stack.Habits.Delete(ctx, id)
		return deleteHabitMsg{id: id, offline: offline, err: err}
	}
}

func (m model) loadLogsCmd() tea.Cmd {
	stack := m.stack
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		logs, source, err := stack.LogSaves.Load(ctx)
		return loadLogsMsg{logs: logs, source: source, err: err}
	}
}

func (m model) saveLogCmd(date string) tea.Cmd {
	stack := m.stack
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := stack.LogSaves.Save(ctx, date)
		return logSavedMsg{date: date, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadHabitsMsg:
		m.habitsLoading = false
		if msg.err != nil {
			m.habitsErr = msg.err.Error()
			return m, nil
		}
		m.habitsErr = ""
		m.habits = msg.habits
		m.source = msg.source
		m.recomputeMetrics()
		if m.cursor >= len(m.habits) {
			m.cursor = max(0, len(m.habits)-1)
		}
		if msg.source != syncer.SourceRemote {
			m.statusLine = "offline: showing " + string(msg.source) + " data"
		}
		return m, nil

	case toggleHabitMsg:
		if msg.err != nil {
			m.statusLine = "toggle failed: " + msg.err.Error()
			return m, nil
		}
		m.replaceHabit(msg.habit)
		m.recomputeMetrics()
		if msg.offline {
			m.statusLine = "saved locally; hub unreachable"
		} else {
			m.statusLine = ""
		}
		return m, nil

	case createHabitMsg:
		if msg.err != nil {
			m.createErr = msg.err.Error()
			return m, nil
		}
		m.creating = false
		m.createErr = ""
		m.nameInput.SetValue("")
		m.targetInput.SetValue("")
		m.habits = append(m.habits, msg.habit)
		m.cursor = len(m.habits) - 1
		m.recomputeMetrics()
		if msg.offline {
			m.statusLine = "created locally; hub unreachable"
		}
		return m, nil

	case deleteHabitMsg:
		if msg.err != nil {
			m.statusLine = "delete failed: " + msg.err.Error()
			return m, nil
		}
		m.removeHabit(msg.id)
		if m.cursor >= len(m.habits) {
			m.cursor = max(0, len(m.habits)-1)
		}
		if msg.offline {
			m.statusLine = "deleted locally; hub unreachable"
		}
		return m, nil

	case loadLogsMsg:
		m.logsLoading = false
		if msg.err != nil {
			m.logsErr = msg.err.Error()
			return m, nil
		}
		m.logsErr = ""
		m.logs = msg.logs
		m.loadJournalFields()
		return m, nil

	case logSavedMsg:
		if msg.err != nil {
			m.statusLine = "save failed: " + msg.err.Error()
		}
		return m, nil

	case EngineEventMsg:
		evt := syncer.Event(msg)
		switch evt.Type {
		case syncer.EventSyncOK:
			m.statusLine = ""
			return m, tea.Batch(m.reloadActiveCollection(), m.listenEventsCmd())
		case syncer.EventSyncFailed:
			if evt.RetryIn > 0 {
				m.statusLine = "sync failed; retrying in " + evt.RetryIn.String()
			} else {
				m.statusLine = "sync failed"
			}
		}
		return m, m.listenEventsCmd()

	case SaveEventMsg:
		evt := syncer.SaveEvent(msg)
		if m.screen == screenJournal && evt.Key == m.journalDate {
			m.statusLine = saveStateLabel(evt.State)
		}
		return m, m.listenEventsCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) reloadActiveCollection() tea.Cmd {
	if m.screen == screenJournal {
		return m.loadLogsCmd()
	}
	return m.loadHabitsCmd()
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.creating {
		return m.handleCreateKey(msg)
	}
	if m.confirmDelete {
		return m.handleConfirmDeleteKey(msg)
	}
	if m.screen == screenJournal {
		return m.handleJournalKey(msg)
	}
	return m.handleDashboardKey(msg)
}

func (m model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.screen = screenJournal
		m.logsLoading = true
		return m, tea.Batch(m.loadLogsCmd(), m.enterJournalViewCmd())
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.habits)-1 {
			m.cursor++
		}
		return m, nil
	case " ":
		if h, ok := m.selectedHabit(); ok {
			return m, m.toggleHabitCmd(h.ID)
		}
		return m, nil
	case "g":
		m.gridOpen = !m.gridOpen
		return m, nil
	case "n":
		m.creating = true
		m.createFocus = createFocusName
		m.createErr = ""
		m.nameInput.Focus()
		m.targetInput.Blur()
		return m, nil
	case "D":
		if _, ok := m.selectedHabit(); ok {
			m.confirmDelete = true
		}
		return m, nil
	case "r":
		m.statusLine = "refreshing"
		return m, func() tea.Msg {
			_ = m.stack.Service.RefreshHabits()
			return nil
		}
	}
	return m, nil
}

func (m model) handleCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.creating = false
		m.createErr = ""
		m.nameInput.Blur()
		m.targetInput.Blur()
		return m, nil
	case "tab":
		if m.createFocus == createFocusName {
			m.createFocus = createFocusTarget
			m.nameInput.Blur()
			m.targetInput.Focus()
		} else {
			m.createFocus = createFocusName
			m.targetInput.Blur()
			m.nameInput.Focus()
		}
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.nameInput.Value())
		if name == "" {
			m.createErr = "name is required"
			return m, nil
		}
		target := 1
		if raw := strings.TrimSpace(m.targetInput.Value()); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				m.createErr = "times/day must be a positive number"
				return m, nil
			}
			target = parsed
		}
		return m, m.createHabitCmd(hubapi.CreateHabitParams{
			Name:        name,
			TimesPerDay: target,
			Frequency:   string(habit.Daily),
		})
	}

	var cmd tea.Cmd
	if m.createFocus == createFocusName {
		m.nameInput, cmd = m.nameInput.Update(msg)
	} else {
		m.targetInput, cmd = m.targetInput.Update(msg)
	}
	return m, cmd
}

func (m model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.confirmDelete = false
		if h, ok := m.selectedHabit(); ok {
			return m, m.deleteHabitCmd(h.ID)
		}
		return m, nil
	default:
		m.confirmDelete = false
		return m, nil
	}
}

func (m model) handleJournalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.screen = screenDashboard
		return m, tea.Batch(m.saveLogCmd(m.journalDate), m.loadHabitsCmd(), m.enterHabitsViewCmd())
	case "esc":
		m.blurJournalInputs()
		return m, nil
	case "ctrl+s":
		return m, m.saveLogCmd(m.journalDate)
	case "up":
		if m.journalFocus > 0 {
			m.journalInputs[m.journalFocus].Blur()
			m.journalFocus--
			m.journalInputs[m.journalFocus].Focus()
		}
		return m, nil
	case "down", "enter":
		if m.journalFocus < journalFocusCount-1 {
			m.journalInputs[m.journalFocus].Blur()
			m.journalFocus++
			m.journalInputs[m.journalFocus].Focus()
		}
		return m, nil
	case "left", "right":
		if !m.journalInputs[m.journalFocus].Focused() {
			m.shiftJournalDay(msg.String() == "right")
			return m, nil
		}
	}

	if !m.journalInputs[m.journalFocus].Focused() {
		m.journalInputs[m.journalFocus].Focus()
	}

	var cmd tea.Cmd
	m.journalInputs[m.journalFocus], cmd = m.journalInputs[m.journalFocus].Update(msg)
	m.stack.LogSaves.ScheduleAutosave(m.currentLogSnapshot())
	return m, cmd
}

func (m *model) shiftJournalDay(forward bool) {
	day, err := calendar.ParseISO(m.journalDate)
	if err != nil {
		day = calendar.Normalize(time.Now())
	}
	if forward {
		day = day.AddDate(0, 0, 1)
	} else {
		day = day.AddDate(0, 0, -1)
	}
	m.journalDate = calendar.FormatISO(day)
	m.loadJournalFields()
}

func (m *model) loadJournalFields() {
	var current daylog.DailyLog
	for _, l := range m.logs {
		if l.Date == m.journalDate {
			current = l
			break
		}
	}
	m.journalInputs[journalFocusSummary].SetValue(current.WorkSummary)
	m.journalInputs[journalFocusLearnings].SetValue(daylog.JoinLearnings(current.KeyLearnings))
	m.journalInputs[journalFocusIssues].SetValue(current.IssuesFaced)
	if current.HoursWorked > 0 {
		m.journalInputs[journalFocusHours].SetValue(strconv.FormatFloat(current.HoursWorked, 'f', -1, 64))
	} else {
		m.journalInputs[journalFocusHours].SetValue("")
	}
}

func (m model) currentLogSnapshot() daylog.DailyLog {
	hours, _ := strconv.ParseFloat(strings.TrimSpace(m.journalInputs[journalFocusHours].Value()), 64)
	return daylog.DailyLog{
		Date:         m.journalDate,
		WorkSummary:  m.journalInputs[journalFocusSummary].Value(),
		KeyLearnings: daylog.SplitLearnings(m.journalInputs[journalFocusLearnings].Value()),
		IssuesFaced:  m.journalInputs[journalFocusIssues].Value(),
		HoursWorked:  hours,
	}.Normalized()
}

func (m *model) blurJournalInputs() {
	for i := range m.journalInputs {
		m.journalInputs[i].Blur()
	}
}

func (m model) selectedHabit() (habit.Habit, bool) {
	if m.cursor < 0 || m.cursor >= len(m.habits) {
		return habit.Habit{}, false
	}
	return m.habits[m.cursor], true
}

func (m *model) replaceHabit(h habit.Habit) {
	for i := range m.habits {
		if m.habits[i].ID == h.ID {
			m.habits[i] = h
			return
		}
	}
	m.habits = append(m.habits, h)
}

func (m *model) removeHabit(id string) {
	for i := range m.habits {
		if m.habits[i].ID == id {
			m.habits = append(m.habits[:i], m.habits[i+1:]...)
			delete(m.metrics, id)
			return
		}
	}
}

func (m *model) recomputeMetrics() {
	now := time.Now()
	for _, h := range m.habits {
		m.metrics[h.ID] = habit.Analyze(h, now)
	}
}

func saveStateLabel(state syncer.SaveState) string {
	switch state {
	case syncer.StateDirty:
		return "unsaved changes"
	case syncer.StateSaving:
		return "saving..."
	case syncer.StateOffline:
		return "saved locally; hub unreachable"
	default:
		return "saved"
	}
}
