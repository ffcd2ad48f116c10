// Package tui provides a Bubble Tea terminal user interface for soundcloud-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/download"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5500")).
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

	trackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

const (
	maxLogs       = 10
	maxTrackLines = 12
)

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logger    *zap.Logger
	logs      []LogEntry
	err       error

	// Tracks of the current run, in input order, and the pipeline state of each.
	tracks      []string
	trackStates map[string]download.State
	results     []download.Result

	ctx    context.Context
	cancel context.CancelFunc
	events chan download.ProgressEvent

	manager *download.Manager

	saved         int32
	failed        int32
	receivedBytes int64

	// Options
	playlist bool
	verbose  bool

	width  int
	height int
}

// NewModel creates a new TUI model. settings is copied per run so the
// toggles never leak back into the caller's settings.
func NewModel(settings *config.Settings, logger *zap.Logger) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ti := textinput.New()
	ti.Placeholder = "https://soundcloud.com/artist/track (separate several with spaces)"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5500"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:       StateInput,
		textInput:   ti,
		spinner:     sp,
		progress:    prog,
		settings:    settings,
		logger:      logger,
		trackStates: make(map[string]download.State),
		ctx:         ctx,
		cancel:      cancel,
		playlist:    settings.CreatePlaylist,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg carries a pipeline progress event.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// InitDoneMsg is sent once the session credential is known.
	InitDoneMsg struct {
		Manager *download.Manager
		Err     error
	}

	// DownloadDoneMsg is sent when every track has finished.
	DownloadDoneMsg struct {
		Results []download.Result
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
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
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "enter":
			if m.state == StateInput {
				tracks := parseLocators(m.textInput.Value())
				if len(tracks) == 0 {
					break
				}
				m.start(tracks)
				return m, tea.Batch(m.initializeDownload(), waitForEvent(m.events), m.spinner.Tick)
			}

		case "ctrl+p":
			if m.state == StateInput {
				m.playlist = !m.playlist
				return m, nil
			}

		case "ctrl+t":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.reset()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		m.applyEvent(msg.Event)
		cmds = append(cmds, waitForEvent(m.events))

	case InitDoneMsg:
		if m.state != StateInitializing {
			break
		}
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			break
		}
		m.manager = msg.Manager
		m.state = StateDownloading
		cmds = append(cmds, m.startDownload(), m.tickProgress())

	case DownloadDoneMsg:
		m.results = msg.Results
		if m.manager != nil {
			m.saved, m.failed = m.manager.Stats()
			m.receivedBytes = m.manager.ReceivedBytes()
		}
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil && m.saved == 0:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateDownloading {
			m.saved, m.failed = m.manager.Stats()
			m.receivedBytes = m.manager.ReceivedBytes()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) start(tracks []string) {
	m.state = StateInitializing
	m.tracks = tracks
	m.trackStates = make(map[string]download.State, len(tracks))
	for _, t := range tracks {
		m.trackStates[t] = download.StateIdle
	}
	m.events = make(chan download.ProgressEvent, 64)
}

func (m *Model) reset() {
	m.state = StateInput
	m.logs = nil
	m.err = nil
	m.tracks = nil
	m.trackStates = make(map[string]download.State)
	m.results = nil
	m.saved, m.failed = 0, 0
	m.receivedBytes = 0
	m.manager = nil
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
}

// applyEvent records the state of the event's track and appends its message
// to the log.
func (m *Model) applyEvent(event download.ProgressEvent) {
	if event.Locator != "" && event.Level != download.LevelWarning {
		if _, ok := m.trackStates[event.Locator]; ok {
			m.trackStates[event.Locator] = event.State
		}
	}

	if event.Level == download.LevelVerbose && !m.verbose {
		return
	}
	m.logs = append(m.logs, LogEntry{Message: event.Message, Level: event.Level})
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m Model) percent() float64 {
	if len(m.tracks) == 0 {
		return 0
	}
	return float64(m.saved+m.failed) / float64(len(m.tracks))
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("☁ SoundCloud Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Save SoundCloud tracks as tagged MP3 files"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter SoundCloud track URL(s):"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s Create playlist (ctrl+p)\n", checkbox(m.playlist))
	fmt.Fprintf(&b, "  %s Verbose output (ctrl+t)\n", checkbox(m.verbose))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output dir: %s", m.settings.OutputDir)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("File names: %s", config.Preview(m.settings.Naming()))))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Looking up client_id..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(m.renderTracks())
	b.WriteString("\n")

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Tracks: %d/%d | Saved: %d | Failed: %d | Downloaded: %.2f MB",
		m.saved+m.failed,
		len(m.tracks),
		m.saved,
		m.failed,
		megabytes(m.receivedBytes),
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	b.WriteString(boxStyle.Render(fmt.Sprintf(
		"✨ Done!\n\n"+
			"Saved: %d\n"+
			"Failed: %d\n"+
			"Size: %.2f MB\n"+
			"Output: %s",
		m.saved,
		m.failed,
		megabytes(m.receivedBytes),
		m.settings.OutputDir,
	)))
	b.WriteString("\n")

	for _, res := range m.results {
		if res.Err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", res.Locator, res.Err)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		fmt.Fprintf(&b, "  %s", m.err.Error())
	}

	return b.String()
}

func (m Model) renderTracks() string {
	var b strings.Builder

	tracks := m.tracks
	if len(tracks) > maxTrackLines {
		tracks = tracks[:maxTrackLines]
	}
	for _, t := range tracks {
		state := m.trackStates[t]
		style := trackStyle
		switch state {
		case download.StateSaved:
			style = successStyle
		case download.StateFailed:
			style = errorStyle
		case download.StateIdle:
			style = dimStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("  ♪ %-16s %s", state, t)))
		b.WriteString("\n")
	}
	if hidden := len(m.tracks) - len(tracks); hidden > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  … and %d more", hidden)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
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
		return "enter: start • ctrl+p: playlist • ctrl+t: verbose • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// initializeDownload creates the manager and resolves the session
// credential up front, so a missing client_id fails before any track starts.
func (m Model) initializeDownload() tea.Cmd {
	settings := *m.settings
	settings.CreatePlaylist = m.playlist
	ctx, events, logger := m.ctx, m.events, m.logger

	return func() tea.Msg {
		manager := download.NewManager(&settings, logger, nil, func(event download.ProgressEvent) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		})

		if _, err := manager.Session().Credential(ctx); err != nil {
			return InitDoneMsg{Err: err}
		}
		return InitDoneMsg{Manager: manager}
	}
}

// startDownload runs the batch in the background.
func (m Model) startDownload() tea.Cmd {
	ctx, manager, tracks := m.ctx, m.manager, m.tracks

	return func() tea.Msg {
		if manager == nil {
			return DownloadDoneMsg{Err: errors.New("no manager")}
		}
		results, err := manager.DownloadAll(ctx, tracks)
		return DownloadDoneMsg{Results: results, Err: err}
	}
}

// waitForEvent delivers the next progress event as a ProgressMsg.
func waitForEvent(events <-chan download.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

// parseLocators splits the input on whitespace and drops duplicates.
func parseLocators(input string) []string {
	seen := make(map[string]bool)
	var locators []string
	for _, field := range strings.Fields(input) {
		if seen[field] {
			continue
		}
		seen[field] = true
		locators = append(locators, field)
	}
	return locators
}

func megabytes(n int64) float64 {
	return float64(n) / 1024 / 1024
}

func checkbox(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

// Run starts the TUI application.
func Run(settings *config.Settings, logger *zap.Logger) error {
	p := tea.NewProgram(NewModel(settings, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
