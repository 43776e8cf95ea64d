package cmd

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/dangyogi/music-player/config"
	"github.com/dangyogi/music-player/player"
	"github.com/dangyogi/music-player/seq"
	"github.com/dangyogi/music-player/theme"
	"github.com/dangyogi/music-player/tui"
)

var headless bool

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().BoolVar(&headless, "headless", false,
		"run without the console, driven only by remote transport commands")
}

var playCmd = &cobra.Command{
	Use:   "play [score files...]",
	Short: "Run the playback engine",
	Long: `Plays scores against the shared beat clock. Scores given as
arguments (or in the config) are selectable by MIDI Song Select; transport
commands arrive from the clock master or from the console keys.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		songs := cfg.Player.Songs
		if len(args) > 0 {
			songs = args
		}

		conn, err := seq.OpenPort(cfg.Control.Input, cfg.Synth.Output, seq.Tag(cfg.Player.Tag))
		if err != nil {
			return err
		}

		p, err := player.New(conn, player.Config{
			PPQ:        cfg.Player.PPQ,
			Tag:        seq.Tag(cfg.Player.Tag),
			Latency:    time.Duration(cfg.Player.LatencyMs) * time.Millisecond,
			MaxAdvance: int64(cfg.Player.MaxAdvance),
			Velocity:   uint8(cfg.Player.Velocity),
			Songs:      songs,
		})
		if err != nil {
			conn.Close()
			return err
		}
		defer p.Close()

		if headless {
			return p.Run()
		}

		errs := make(chan error, 1)
		go func() { errs <- p.Run() }()

		m := tui.NewModel(p, conn.Inject, theme.New(theme.Default()))
		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			return err
		}
		select {
		case err := <-errs:
			return err
		default:
			return nil
		}
	},
}
