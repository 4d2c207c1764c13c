package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/shared"
	"github.com/desertthunder/alchemy/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	EngineListView ViewState = iota
	DetailView
	CheckView
	ReportView
)

// EngineSource lists the engines of a manager.
type EngineSource interface {
	List() ([]*models.Engine, error)
}

// EngineChecker probes registered engines.
type EngineChecker interface {
	Check(ctx context.Context, name string) tasks.CheckResult
	CheckAll(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.CheckReport, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	source       EngineSource
	checker      EngineChecker
	title        string
	width        int
	height       int
	engineList   list.Model
	engines      []models.EngineView
	selected     *models.EngineView
	checking     bool
	lastCheck    *tasks.CheckResult
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	report       *tasks.CheckReport
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, title string, source EngineSource, checker EngineChecker) *Model {
	if title == "" {
		title = "SQL engines"
	}
	return &Model{
		ctx:        ctx,
		view:       EngineListView,
		source:     source,
		checker:    checker,
		title:      title,
		engineList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init initializes the TUI by listing the engines.
func (m *Model) Init() tea.Cmd {
	return m.fetchEngines()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.engineList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case EngineListView:
			return m.handleListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case CheckView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ReportView:
			return m.handleReportKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgEnginesFetched:
		data := msg.data.(enginesFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.engines = data.engines
		items := make([]list.Item, len(data.engines))
		for i, e := range data.engines {
			items[i] = engineItem{engine: e}
		}
		cmd := m.engineList.SetItems(items)
		m.engineList.Title = m.title
		return m, cmd

	case MsgEngineChecked:
		result := msg.data.(tasks.CheckResult)
		m.checking = false
		m.lastCheck = &result
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgCheckComplete:
		data := msg.data.(checkComplete)
		m.report = data.report
		m.err = data.err
		m.view = ReportView
		m.progressChan = nil
		m.doneChan = nil
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ReportView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}

	switch m.view {
	case EngineListView:
		return m.renderList()
	case DetailView:
		return m.renderDetail()
	case CheckView:
		return m.renderCheck()
	case ReportView:
		return m.renderReport()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.engineList.FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.err = nil
		return m, m.fetchEngines()
	case key.Matches(msg, m.keys.checkAll):
		if m.checker == nil {
			return m, nil
		}
		m.view = CheckView
		return m, m.startCheckAll()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.engineList.SelectedItem().(engineItem); ok {
			engine := item.engine
			m.selected = &engine
			m.lastCheck = nil
			m.view = DetailView
			return m, nil
		}
	}

	return m.updateList(msg)
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = EngineListView
		m.selected = nil
		return m, nil
	case key.Matches(msg, m.keys.check):
		if m.checker == nil || m.checking || m.selected == nil {
			return m, nil
		}
		m.checking = true
		return m, m.checkEngine(m.selected.Name)
	}
	return m, nil
}

func (m *Model) handleReportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.refresh):
		m.view = EngineListView
		m.report = nil
		m.err = nil
		return m, m.fetchEngines()
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != EngineListView {
		return m, nil
	}
	var cmd tea.Cmd
	m.engineList, cmd = m.engineList.Update(msg)
	return m, cmd
}

func (m *Model) fetchEngines() tea.Cmd {
	return func() tea.Msg {
		engines, err := m.source.List()
		if err != nil {
			return enginesFetchedMsg(nil, err)
		}
		views := make([]models.EngineView, len(engines))
		for i, e := range engines {
			views[i] = e.View()
		}
		return enginesFetchedMsg(views, nil)
	}
}

func (m *Model) checkEngine(name string) tea.Cmd {
	return func() tea.Msg {
		return engineCheckedMsg(m.checker.Check(m.ctx, name))
	}
}

func (m *Model) startCheckAll() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.doneChan = done
	m.progress = tasks.ProgressUpdate{}

	go func() {
		report, err := m.checker.CheckAll(m.ctx, progress)
		close(progress)
		done <- checkCompleteMsg(report, err)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progress == nil {
			return checkCompleteMsg(nil, nil)
		}

		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.checkAll, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.engineList.View(), helpView)
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return ""
	}
	e := m.selected

	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("SQL engine: %s", e.Name)))
	b.WriteString("\n")

	rows := [][2]string{
		{"ID", e.ID},
		{"DSN", e.DSN},
		{"Driver", e.Driver},
		{"Echo", shared.BoolString(e.Echo)},
		{"Use pool", shared.BoolString(e.UsePool)},
		{"Pool size", strconv.Itoa(e.PoolSize)},
		{"Pool recycle", strconv.Itoa(e.PoolRecycle)},
		{"Pool timeout", strconv.Itoa(e.PoolTimeout)},
		{"Echo pool", shared.BoolString(e.EchoPool)},
		{"Static", shared.BoolString(e.Static)},
	}
	for _, r := range rows {
		b.WriteString(styles.label.Render(r[0]))
		b.WriteString(r[1])
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.checking:
		b.WriteString(styles.warn.Render("Checking connection..."))
	case m.lastCheck != nil && m.lastCheck.OK:
		b.WriteString(styles.ok.Render(fmt.Sprintf("✓ Connected in %s (%d attempts)", m.lastCheck.Latency, m.lastCheck.Attempts)))
	case m.lastCheck != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ %v", m.lastCheck.Error)))
	}

	helpKeys := []key.Binding{m.keys.check, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", b.String(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderCheck() string {
	title := styles.title.Render("Checking Engines")

	var phase string
	switch m.progress.Phase {
	case tasks.CheckStart:
		phase = fmt.Sprintf("Starting checks on %d engines...", m.progress.Total)
	case tasks.CheckEngine:
		phase = fmt.Sprintf("Checking engines (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.CheckDone:
		phase = "Finishing..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderReport() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Check failed: %v", m.err)) + "\n\n" + helpView
	}
	if m.report == nil {
		return styles.err.Render("No report available") + "\n\n" + helpView
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Engine Health"))
	fmt.Fprintf(&b, "\nHealthy: %d/%d\n", m.report.Healthy, len(m.report.Results))

	for _, r := range m.report.Results {
		if r.OK {
			b.WriteString(styles.ok.Render(fmt.Sprintf("\n  ✓ %s", r.Engine)))
			fmt.Fprintf(&b, " %s", r.Latency)
			continue
		}
		b.WriteString(styles.err.Render(fmt.Sprintf("\n  ✗ %s", r.Engine)))
		b.WriteString(styles.warn.Render(fmt.Sprintf(" %v", r.Error)))
	}

	return fmt.Sprintf("%s\n\n%s", b.String(), helpView)
}
