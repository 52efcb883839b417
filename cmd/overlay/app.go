package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"soundboard/internal/ws"
)

// --- Messages from the push-channel client ---

type bannerMsg struct {
	text    string
	isError bool
}

type configMsg struct {
	cfg ws.FrontEndConfig
}

type readyMsg struct{}

type playedMsg struct {
	path string
	size int
	at   time.Time
}

// --- Model ---

type model struct {
	httpBase string
	banner   string
	isError  bool
	ready    bool
	cfg      ws.FrontEndConfig
	played   []playedMsg
	width    int
}

func newModel(httpBase string) model {
	return model{
		httpBase: httpBase,
		banner:   "Starting soundboard...",
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case bannerMsg:
		m.banner = msg.text
		m.isError = msg.isError
		if msg.isError {
			m.ready = false
		}

	case configMsg:
		m.cfg = msg.cfg

	case readyMsg:
		m.ready = true
		m.banner = ""
		m.isError = false

	case playedMsg:
		m.played = append(m.played, msg)
		if len(m.played) > 8 {
			m.played = m.played[len(m.played)-8:]
		}
	}

	return m, nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	playedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

func (m model) View() string {
	s := titleStyle.Render("Soundboard overlay") + "\n\n"

	switch {
	case m.isError:
		s += errorStyle.Render("● "+m.banner) + "\n"
	case m.ready:
		s += okStyle.Render("● Ready") + "\n"
	default:
		s += dimStyle.Render("○ "+m.banner) + "\n"
	}

	if m.cfg.MIDIIn != "" {
		s += dimStyle.Render(fmt.Sprintf("MIDI in: %s", m.cfg.MIDIIn)) + "\n"
	}

	s += "\n" + dimStyle.Render(fmt.Sprintf("%d sounds configured", len(m.cfg.Sounds))) + "\n"
	for _, cue := range m.cfg.Sounds {
		line := "  "
		if cue.RewardID != "" {
			line += fmt.Sprintf("reward %s  ", cue.RewardID)
		}
		if cue.Note != nil {
			line += fmt.Sprintf("note %d", *cue.Note)
			if cue.Channel != nil {
				line += fmt.Sprintf(" ch %d", *cue.Channel)
			}
			line += "  "
		}
		line += "→ " + cue.AssetName()
		s += dimStyle.Render(line) + "\n"
	}

	if len(m.played) > 0 {
		s += "\n" + titleStyle.Render("Played") + "\n"
		for i := len(m.played) - 1; i >= 0; i-- {
			p := m.played[i]
			s += playedStyle.Render(fmt.Sprintf("  %s  %s (%d bytes)",
				p.at.Format("15:04:05"), p.path, p.size)) + "\n"
		}
	}

	s += "\n" + dimStyle.Render("q to quit")
	return s
}
