package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// PortConfig names the MIDI ports a process connects to. Names are matched
// by substring, so "Net Client" finds "Net Client 128:0".
type PortConfig struct {
	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`
}

// ClockConfig sizes the clock generator.
type ClockConfig struct {
	PPQ       int `json:"ppq,omitempty"`       // multiple of 24, default 480
	LatencyMs int `json:"latencyMs,omitempty"` // pulse look-ahead, default 5
}

// PlayerConfig sizes the playback engine.
type PlayerConfig struct {
	PPQ        int      `json:"ppq,omitempty"`        // multiple of 24, default 960
	Tag        int      `json:"tag,omitempty"`        // route tag, default 17
	LatencyMs  int      `json:"latencyMs,omitempty"`  // trigger look-ahead floor, default 5
	MaxAdvance int      `json:"maxAdvance,omitempty"` // initial look-ahead in clocks, default 24
	Velocity   int      `json:"velocity,omitempty"`   // default note-on velocity, default 43
	Songs      []string `json:"songs,omitempty"`      // score files, selectable by Song Select
}

// UIConfig stores UI preferences.
type UIConfig struct {
	LastTempo int `json:"lastTempo,omitempty"`
	LastSong  int `json:"lastSong,omitempty"`
}

// Config is the main configuration structure.
type Config struct {
	Control PortConfig   `json:"control,omitempty"` // transport conversation
	Synth   PortConfig   `json:"synth,omitempty"`   // musical output
	Clock   ClockConfig  `json:"clock,omitempty"`
	Player  PlayerConfig `json:"player,omitempty"`
	UI      UIConfig     `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Clock: ClockConfig{
			PPQ:       480,
			LatencyMs: 5,
		},
		Player: PlayerConfig{
			PPQ:        960,
			Tag:        17,
			LatencyMs:  5,
			MaxAdvance: 24,
			Velocity:   43,
		},
		UI: UIConfig{
			LastTempo: 120,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "music-player"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
