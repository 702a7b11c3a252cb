// Package tui provides a Bubble Tea terminal user interface for memories-downloader.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/avelter/memories-downloader/internal/config"
	"github.com/avelter/memories-downloader/internal/download"
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
	logs      []LogEntry
	err       error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// Download manager reference
	manager *download.Manager

	// Progress events from the manager, drained by waitForEvent
	events chan download.ProgressEvent

	// Download progress
	stats     download.BatchStats
	remaining int

	// Options
	overlay  bool
	metadata bool
	jxl      bool
	strict   bool
	verbose  bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel() Model {
	settings := config.DefaultSettings()

	ti := textinput.New()
	ti.Placeholder = "mydata/json/memories_history.json"
	ti.SetValue(settings.ManifestPath)
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logs:      make([]LogEntry, 0),
		events:    make(chan download.ProgressEvent, 64),
		ctx:       ctx,
		cancel:    cancel,
		overlay:   settings.ApplyOverlay,
		metadata:  settings.WriteMetadata,
		jxl:       settings.ConvertToJXL,
		strict:    settings.StrictLocation,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent when download progress updates.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// DownloadDoneMsg is sent when the run finishes.
	DownloadDoneMsg struct {
		Remaining int
		Stats     download.BatchStats
		Err       error
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
			if m.state == StateDownloading {
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				m.state = StateDownloading
				return m, tea.Batch(m.startDownload(), m.tickProgress(), m.waitForEvent(), m.spinner.Tick)
			}

		case "o":
			if m.state == StateInput {
				m.overlay = !m.overlay
			}

		case "m":
			if m.state == StateInput {
				m.metadata = !m.metadata
			}

		case "x":
			if m.state == StateInput {
				m.jxl = !m.jxl
			}

		case "s":
			if m.state == StateInput {
				m.strict = !m.strict
			}

		case "v":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for another run
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.stats = download.BatchStats{}
				m.remaining = 0
				m.manager = nil
				// Fresh channel so a listener left over from the
				// previous run cannot swallow the new run's events
				m.events = make(chan download.ProgressEvent, 64)
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		// Keep listening for the next event
		cmds = append(cmds, m.waitForEvent())
		// Filter verbose messages if not in verbose mode
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			return m, tea.Batch(cmds...)
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		// Keep only last 10 logs
		if len(m.logs) > 10 {
			m.logs = m.logs[len(m.logs)-10:]
		}

	case DownloadDoneMsg:
		m.stats = msg.Stats
		m.remaining = msg.Remaining
		if msg.Err != nil && m.ctx.Err() == nil {
			m.state = StateError
			m.err = msg.Err
		} else if m.ctx.Err() != nil {
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		} else {
			m.state = StateComplete
		}

	case TickMsg:
		// Update progress from manager
		if m.manager != nil && m.state == StateDownloading {
			m.stats = m.manager.Stats()

			var percent float64
			if m.stats.Total > 0 {
				percent = float64(m.stats.Completed) / float64(m.stats.Total)
			}
			progressCmd := m.progress.SetPercent(percent)
			cmds = append(cmds, progressCmd, m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// waitForEvent returns a command that delivers the next manager
// progress event as a ProgressMsg. The ProgressMsg handler re-issues it
// so events keep flowing for the life of the run.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
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

	// Header
	b.WriteString(titleStyle.Render("📸 Memories Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download your personal media export"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
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

	b.WriteString(subtitleStyle.Render("Path to memories_history.json:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	check := func(on bool) string {
		if on {
			return "[×]"
		}
		return "[ ]"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Apply overlays (o)\n", check(m.overlay)))
	b.WriteString(fmt.Sprintf("  %s Write EXIF/GPS metadata (m)\n", check(m.metadata)))
	b.WriteString(fmt.Sprintf("  %s Convert JPEGs to JPEG XL (x)\n", check(m.jxl)))
	b.WriteString(fmt.Sprintf("  %s Require location metadata (s)\n", check(m.strict)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (v)\n", check(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output directory: %s", m.settings.OutputDir)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Downloading..."))
	b.WriteString("\n\n")

	// Progress bar
	var percent float64
	if m.stats.Total > 0 {
		percent = float64(m.stats.Completed) / float64(m.stats.Total)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Items: %d/%d | OK: %d | Failed: %d | Downloaded: %s",
		m.stats.Completed,
		m.stats.Total,
		m.stats.Succeeded,
		m.stats.Failed,
		humanize.Bytes(uint64(m.stats.TotalBytes)),
	)))
	b.WriteString("\n\n")

	// Logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	box := boxStyle.Render(fmt.Sprintf(
		"✨ Run Complete!\n\n"+
			"Downloaded: %d\n"+
			"Failed: %d\n"+
			"Size: %s",
		m.stats.Succeeded,
		m.remaining,
		humanize.Bytes(uint64(m.stats.TotalBytes)),
	))
	b.WriteString(box)
	b.WriteString("\n")

	if m.remaining > 0 {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(fmt.Sprintf(
			"%d items stay in the manifest and will be retried next run:", m.remaining)))
		b.WriteString("\n")
		b.WriteString(m.renderFailures())
	}

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderFailures() string {
	var b strings.Builder

	max := len(m.stats.Errors)
	if max > 10 {
		max = 10
	}
	for _, serr := range m.stats.Errors[:max] {
		name := serr.Filename
		if name == "" {
			name = serr.URL
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("  ✗ [%s] %s — %s", serr.Code, name, serr.Code.Description())))
		b.WriteString("\n")
	}
	if len(m.stats.Errors) > max {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  … and %d more", len(m.stats.Errors)-max)))
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
		return "enter: start • o/m/x/s: toggle options • v: verbose • esc: quit"
	case StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: run again • q: quit"
	}
	return ""
}

// startDownload builds the manager from the current options and runs
// it in the background.
func (m *Model) startDownload() tea.Cmd {
	settings := m.settings
	settings.ManifestPath = m.textInput.Value()
	settings.ApplyOverlay = m.overlay
	settings.WriteMetadata = m.metadata
	settings.ConvertToJXL = m.jxl
	settings.StrictLocation = m.strict

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	events := m.events
	manager := download.NewManager(settings, logger, func(event download.ProgressEvent) {
		// Non-blocking: a slow terminal must never stall a worker.
		select {
		case events <- event:
		default:
		}
	})
	m.manager = manager

	ctx := m.ctx
	return func() tea.Msg {
		remaining, err := manager.Run(ctx)
		return DownloadDoneMsg{
			Remaining: remaining,
			Stats:     manager.Stats(),
			Err:       err,
		}
	}
}

// Run starts the TUI application.
func Run() error {
	p := tea.NewProgram(NewModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
