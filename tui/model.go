package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dangyogi/music-player/player"
	"github.com/dangyogi/music-player/seq"
	"github.com/dangyogi/music-player/theme"
	"github.com/dangyogi/music-player/timebase"
)

// Model is the conductor console: a status line for the player plus keys
// that inject transport commands into its event stream.
type Model struct {
	Player *player.Player
	Inject func(seq.Event)
	Theme  *theme.Theme

	tempoData uint8
	quitting  bool
}

type UpdateMsg struct{}

func NewModel(p *player.Player, inject func(seq.Event), th *theme.Theme) Model {
	return Model{
		Player:    p,
		Inject:    inject,
		Theme:     th,
		tempoData: timebase.BPMToData(120),
	}
}

func ListenForUpdates(p *player.Player) tea.Cmd {
	return func() tea.Msg {
		<-p.Updates
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Player)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			m.quitting = true
			m.Inject(seq.Stop())
			return m, tea.Quit

		case "p", " ":
			if m.Player.Status().State == player.Running {
				m.Inject(seq.Stop())
			} else {
				m.Inject(seq.Start())
			}

		case "c":
			m.Inject(seq.Continue())

		case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
			m.Inject(seq.SongSelect(uint16(key[0] - '0')))

		case "+", "=":
			if m.tempoData <= 122 {
				m.tempoData += 5
			} else {
				m.tempoData = 127
			}
			m.Inject(seq.Tempo(m.tempoData))

		case "-", "_":
			if m.tempoData >= 5 {
				m.tempoData -= 5
			} else {
				m.tempoData = 0
			}
			m.Inject(seq.Tempo(m.tempoData))

		case "[":
			spp := m.Player.Status().SPP
			if spp >= 4 {
				spp -= 4
			} else {
				spp = 0
			}
			m.Inject(seq.SongPos(spp))

		case "]":
			m.Inject(seq.SongPos(m.Player.Status().SPP + 4))
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Player)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Player.Status()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	var stateStyle lipgloss.Style
	var symbol rune
	switch st.State {
	case player.Running:
		stateStyle = lipgloss.NewStyle().Foreground(m.Theme.Success())
		symbol = m.Theme.Symbols.Playing
	case player.Paused:
		stateStyle = lipgloss.NewStyle().Foreground(m.Theme.Warning())
		symbol = m.Theme.Symbols.Paused
	case player.Ready:
		stateStyle = lipgloss.NewStyle().Foreground(m.Theme.FG())
		symbol = m.Theme.Symbols.Armed
	default:
		stateStyle = dimStyle
		symbol = m.Theme.Symbols.Stopped
	}

	header := headerStyle.Render("music-player")
	state := stateStyle.Render(fmt.Sprintf("%c %s", symbol, st.State))

	song := "no song"
	if st.Song >= 0 {
		song = fmt.Sprintf("song %d", st.Song)
	}
	detail := fmt.Sprintf("%s  %6.2fbpm  spp:%-5d tick:%d", song, st.BPM, st.SPP, st.Tick)

	help := dimStyle.Render("space:start/stop  c:continue  0-9:song  [/]:seek  +/-:tempo  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("  ")
	out.WriteString(state)
	out.WriteString("\n\n")
	out.WriteString(detail)
	out.WriteString("\n\n")
	out.WriteString(help)

	return out.String()
}
