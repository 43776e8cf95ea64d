package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/dangyogi/music-player/clockmaster"
	"github.com/dangyogi/music-player/config"
	"github.com/dangyogi/music-player/seq"
)

func init() {
	rootCmd.AddCommand(clockMasterCmd)
}

var clockMasterCmd = &cobra.Command{
	Use:   "clock-master",
	Short: "Run the clock generator and transport relay",
	Long: `Generates the MIDI beat clock at a live-changeable tempo, relays
transport commands downstream, and keeps one tempo-locked queue per
registered consumer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		conn, err := seq.OpenPort(cfg.Control.Input, cfg.Control.Output, 0)
		if err != nil {
			return err
		}
		defer conn.Close()

		m, err := clockmaster.New(conn, clockmaster.Config{
			PPQ:     cfg.Clock.PPQ,
			Latency: time.Duration(cfg.Clock.LatencyMs) * time.Millisecond,
		})
		if err != nil {
			return err
		}
		fmt.Printf("clock-master: %q -> %q\n", cfg.Control.Input, cfg.Control.Output)
		return m.Run()
	},
}
