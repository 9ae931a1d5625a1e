// Package tui is the interactive host loop: each frame tick advances the
// session once and renders its snapshot.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
	"git.home.luguber.info/inful/mapexporter/internal/session"
)

const maxLogLines = 12

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	logBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

type tickMsg time.Time

// Model is the bubbletea model of a session.
type Model struct {
	ctx      context.Context
	session  *session.Session
	interval time.Duration
	bar      progress.Model
	snap     session.Snapshot
	log      []string
	status   string
	width    int
	open     func(url string) error
}

// Option configures a Model.
type Option func(*Model)

// WithOpener replaces the browser launcher used by the o key.
func WithOpener(open func(url string) error) Option {
	return func(m *Model) {
		if open != nil {
			m.open = open
		}
	}
}

// New creates a model driving s at one tick per interval.
func New(ctx context.Context, s *session.Session, interval time.Duration, opts ...Option) *Model {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	m := &Model{
		ctx:      ctx,
		session:  s,
		interval: interval,
		bar:      progress.New(progress.WithDefaultGradient()),
		width:    80,
		open:     openBrowser,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, s *session.Session, interval time.Duration) error {
	_, err := tea.NewProgram(New(ctx, s, interval), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.advance()
		return m, m.tick()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, msg.Width-4)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) advance() {
	m.snap = m.session.Tick(m.ctx)
	for _, msg := range m.snap.Messages {
		m.appendLog(msg.Text)
	}
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		active, err := m.session.ToggleServer(m.ctx)
		switch {
		case err != nil:
			m.status = describe(err)
		case active:
			m.status = "Server running at " + m.session.Server().URL()
		default:
			m.status = "Server stopped"
		}
	case "o":
		url := m.session.Server().URL()
		switch {
		case url == "":
			m.status = "Server is not running"
		case m.open(url) != nil:
			m.status = "Open " + url
		default:
			m.status = "Opened " + url
		}
	case "e":
		if err := m.session.RequestExport(m.ctx); err != nil {
			m.status = describe(err)
		} else {
			m.status = "Export started"
		}
	case "n":
		if err := m.session.Restart(m.ctx); err != nil {
			m.status = describe(err)
		} else {
			m.status = "Regenerating"
		}
	}
	return m, nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, merrors.ErrNoRegions):
		return session.MsgNoRegions
	case errors.Is(err, merrors.ErrCooldownActive):
		return "Export cooling down"
	case errors.Is(err, merrors.ErrAddressInUse):
		return "Port already in use"
	default:
		return err.Error()
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("mapexporter"))
	b.WriteString("\n\n")

	snap := m.snap
	switch {
	case snap.Err != nil:
		b.WriteString(errStyle.Render("Generation failed: " + snap.Err.Error()))
	case snap.Finished:
		b.WriteString(okStyle.Render(fmt.Sprintf("Generation finished: %d regions", snap.Regions)))
	default:
		stage := snap.Stage
		if stage == "" {
			stage = "Starting"
		}
		b.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("Stage:"), stage))
	}
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(snap.Progress))
	b.WriteString("\n\n")

	server := mutedStyle.Render("stopped")
	if snap.ServerActive {
		server = okStyle.Render(snap.ServerURL)
	}
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Server:"), server))

	export := "ready"
	switch {
	case snap.ExportBusy:
		export = "exporting..."
	case snap.Cooldown > 0:
		export = fmt.Sprintf("cooling down (%s)", snap.Cooldown.Round(100*time.Millisecond))
	}
	if snap.LastExport != nil && snap.LastExport.Err == nil && export == "ready" {
		export = "ready, last export " + snap.LastExport.Destination
	}
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Export:"), export))

	if len(m.log) > 0 {
		b.WriteString(logBoxStyle.Width(max(20, m.width-2)).Render(strings.Join(m.log, "\n")))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}

	exportKey := keyStyle.Render("e")
	if !snap.ExportReady {
		exportKey = mutedStyle.Render("e")
	}
	b.WriteString(fmt.Sprintf("\n%s server  %s url  %s export  %s regenerate  %s quit",
		keyStyle.Render("r"), keyStyle.Render("o"), exportKey, keyStyle.Render("n"), keyStyle.Render("q")))
	return b.String()
}
