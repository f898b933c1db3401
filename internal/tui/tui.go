// Package tui provides a Bubble Tea terminal user interface for xivextract.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/xivextract/internal/config"
	"github.com/handiism/xivextract/internal/extract"
	xhttp "github.com/handiism/xivextract/internal/http"
	ioutils "github.com/handiism/xivextract/internal/io"
	"github.com/handiism/xivextract/internal/manifest"
	"github.com/handiism/xivextract/internal/sqpack"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateFetching
	StateExtracting
	StateComplete
	StateError
)

const (
	inputInstall = iota
	inputOutput
	inputThreads
)

// maxLogs is the number of log lines kept on screen.
const maxLogs = 10

var errCancelled = errors.New("cancelled by user")

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   extract.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	inputs   []textinput.Model
	focus    int
	inputErr error
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	logs     []LogEntry
	err      error

	// Run context. run numbers the current run; replies carrying another
	// number belong to an abandoned run and are dropped.
	ctx    context.Context
	cancel context.CancelFunc
	run    int

	// Coordinator of the current run, set once the manifest is fetched
	coordinator *extract.Coordinator
	events      chan extract.ProgressEvent

	// Extraction progress
	files     int
	completed int64
	total     int64
	workers   []extract.WorkerState
	summary   extract.Summary

	verbose bool

	width  int
	height int
}

// request is a validated set of inputs.
type request struct {
	install string
	output  string
	workers int
}

// NewModel creates a new TUI model.
func NewModel(settings *config.Settings) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	inputs := make([]textinput.Model, 3)
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 500
		ti.Width = 60
		inputs[i] = ti
	}
	inputs[inputInstall].Placeholder = "C:/Program Files (x86)/SquareEnix/FINAL FANTASY XIV - A Realm Reborn"
	inputs[inputOutput].Placeholder = "./export"
	inputs[inputThreads].Placeholder = strconv.Itoa(settings.Workers)
	inputs[inputThreads].CharLimit = 4
	inputs[inputThreads].Width = 6
	inputs[inputInstall].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:    StateInput,
		inputs:   inputs,
		spinner:  sp,
		progress: prog,
		settings: settings,
		logs:     make([]LogEntry, 0),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan extract.ProgressEvent, 256),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

// Message types
type (
	// ProgressMsg carries an event emitted by the coordinator.
	ProgressMsg struct {
		Event extract.ProgressEvent
	}

	// FetchDoneMsg is sent when the manifest has been fetched.
	FetchDoneMsg struct {
		Run         int
		Coordinator *extract.Coordinator
		Files       int
		Err         error
	}

	// ExtractDoneMsg is sent when every worker has finished.
	ExtractDoneMsg struct {
		Run     int
		Summary extract.Summary
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct {
		Run int
	}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateExtracting || m.state == StateFetching {
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "ctrl+l":
			m.verbose = !m.verbose

		case "tab", "down":
			if m.state == StateInput {
				m.setFocus((m.focus + 1) % len(m.inputs))
				return m, nil
			}

		case "shift+tab", "up":
			if m.state == StateInput {
				m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
				return m, nil
			}

		case "enter":
			if m.state == StateInput {
				req, err := m.request()
				if err != nil {
					m.inputErr = err
					return m, nil
				}
				m.inputErr = nil
				m.run++
				m.state = StateFetching
				return m, tea.Batch(m.fetch(req), m.spinner.Tick)
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for a new run, keeping the entered paths
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.files = 0
				m.completed = 0
				m.total = 0
				m.workers = nil
				m.summary = extract.Summary{}
				m.coordinator = nil
				m.cancel()
				m.run++
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.setFocus(inputInstall)
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, waitForEvent(m.events))
		// Filter verbose messages if not in verbose mode
		if msg.Event.Level == extract.LevelVerbose && !m.verbose {
			return m, tea.Batch(cmds...)
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case FetchDoneMsg:
		if msg.Run != m.run || m.state != StateFetching {
			// Stale, or cancelled while fetching.
			return m, nil
		}
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.coordinator = msg.Coordinator
			m.files = msg.Files
			m.total = int64(msg.Files)
			m.state = StateExtracting
			cmds = append(cmds, m.extract(), m.tickProgress())
		}

	case ExtractDoneMsg:
		if msg.Run != m.run {
			return m, nil
		}
		m.summary = msg.Summary
		if m.coordinator != nil {
			m.completed, m.total = m.coordinator.GetProgress()
			m.workers = m.coordinator.WorkerStates()
		}
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		// Update progress from the coordinator
		if msg.Run == m.run && m.coordinator != nil && m.state == StateExtracting {
			m.completed, m.total = m.coordinator.GetProgress()
			m.workers = m.coordinator.WorkerStates()

			var percent float64
			if m.total > 0 {
				percent = float64(m.completed) / float64(m.total)
			}
			progressCmd := m.progress.SetPercent(percent)
			cmds = append(cmds, progressCmd, m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text inputs
	if m.state == StateInput {
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

// request validates the entered values.
func (m Model) request() (request, error) {
	req := request{
		install: strings.TrimSpace(m.inputs[inputInstall].Value()),
		output:  strings.TrimSpace(m.inputs[inputOutput].Value()),
		workers: m.settings.Workers,
	}
	if req.install == "" {
		return req, errors.New("install path is required")
	}
	if req.output == "" {
		return req, errors.New("output path is required")
	}
	if v := strings.TrimSpace(m.inputs[inputThreads].Value()); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, fmt.Errorf("threads must be a positive number, got %q", v)
		}
		req.workers = n
	}
	return req, nil
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	run := m.run
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{Run: run}
	})
}

// waitForEvent delivers the next coordinator event.
func waitForEvent(events <-chan extract.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("📦 xivextract"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Extract game files listed in a manifest"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateFetching:
		b.WriteString(m.viewFetching())
	case StateExtracting:
		b.WriteString(m.viewExtracting())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	labels := [...]string{"Game install path:", "Output path:", "Threads:"}
	for i, label := range labels {
		b.WriteString(subtitleStyle.Render(label))
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n\n")
	}

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[×]"
	}
	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+l)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Manifest: %s (%s)", m.settings.ManifestURL, m.settings.ManifestFormat)))
	b.WriteString("\n")

	if m.inputErr != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.inputErr.Error()))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewFetching() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Fetching file list..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewExtracting() string {
	var b strings.Builder

	b.WriteString(successStyle.Render(fmt.Sprintf("Found %d files to export", m.files)))
	b.WriteString("\n\n")

	// Progress bar
	var percent float64
	if m.total > 0 {
		percent = float64(m.completed) / float64(m.total)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Extracted: %d/%d | Workers: %s",
		m.completed,
		m.total,
		workerSummary(m.workers),
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	box := boxStyle.Render(fmt.Sprintf(
		"✨ Extraction Complete!\n\n"+
			"Extracted: %d/%d\n"+
			"Missing: %d\n"+
			"Skipped: %d\n"+
			"Size: %.2f MB\n"+
			"Time: %s",
		m.summary.Extracted,
		m.summary.Total,
		m.summary.NotFound,
		m.summary.ReadFailed+m.summary.Rejected,
		float64(m.summary.Bytes)/1024/1024,
		m.summary.Duration.Round(time.Millisecond),
	))
	b.WriteString(box)

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case extract.LevelError:
			style = errorStyle
			prefix = "✗"
		case extract.LevelWarning:
			style = warningStyle
			prefix = "!"
		case extract.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case extract.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • tab: next field • ctrl+l: verbose • esc: quit"
	case StateFetching, StateExtracting:
		return "esc: cancel • ctrl+l: verbose"
	case StateComplete, StateError:
		return "r: new run • q: quit"
	}
	return ""
}

// workerSummary counts workers per state, e.g. "3 running, 1 done".
func workerSummary(states []extract.WorkerState) string {
	if len(states) == 0 {
		return "-"
	}
	counts := make(map[extract.WorkerState]int)
	for _, s := range states {
		counts[s]++
	}
	var parts []string
	for _, s := range []extract.WorkerState{extract.WorkerIdle, extract.WorkerRunning, extract.WorkerDone} {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	return strings.Join(parts, ", ")
}

// fetch checks the install, builds the coordinator and fetches the manifest.
func (m Model) fetch(req request) tea.Cmd {
	ctx, run, settings, events := m.ctx, m.run, m.settings, m.events
	return func() tea.Msg {
		probe, err := sqpack.Open(req.install)
		if err != nil {
			return FetchDoneMsg{Run: run, Err: err}
		}
		probe.Close()

		source, err := manifest.New(xhttp.NewClient(settings.UserAgent, settings.HTTPTimeout), settings.ToManifestOptions())
		if err != nil {
			return FetchDoneMsg{Run: run, Err: err}
		}

		coord := extract.NewCoordinator(
			source,
			extract.SQPackOpener(req.install),
			ioutils.NewWriter(req.output),
			extract.Options{Workers: req.workers, ProgressInterval: settings.ProgressInterval},
			func(event extract.ProgressEvent) {
				// The log is best effort; progress is polled.
				select {
				case events <- event:
				default:
				}
			},
		)

		paths, err := coord.Fetch(ctx)
		if err != nil {
			return FetchDoneMsg{Run: run, Err: err}
		}
		return FetchDoneMsg{Run: run, Coordinator: coord, Files: paths.Len()}
	}
}

// extract runs the fetched manifest in the background.
func (m Model) extract() tea.Cmd {
	coord, ctx, run := m.coordinator, m.ctx, m.run
	return func() tea.Msg {
		if coord == nil {
			return ExtractDoneMsg{Run: run, Err: errors.New("no coordinator")}
		}
		summary, err := coord.Extract(ctx)
		return ExtractDoneMsg{Run: run, Summary: summary, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
