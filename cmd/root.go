package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dangyogi/music-player/debug"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "music-player",
	Short: "MIDI transport and clock playback engine",
	Long: `music-player drives musical playback over MIDI: a clock generator
keeps downstream consumers phase-locked to a shared tempo while the playback
engine triggers score notes against that clock under live transport control.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugFlag {
			if err := debug.Enable(); err != nil {
				fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
			}
		}
	},
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"write a debug log to ~/.config/music-player/debug.log")
}
