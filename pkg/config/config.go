// Package config implements the persisted user preferences `terminal` and
// `editor` read on startup: default terminal geometry/emulation, the
// address book location, and `editor host`'s default collaboration
// settings. Adapted from the teacher's dashboard-settings Config (same
// YAML-file-plus-pflag-merge shape), re-scoped from VibeTunnel's web
// dashboard knobs to this module's dial/render/collab knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk settings file, conventionally
// ~/.icy-term/config.yaml.
type Config struct {
	AddressBookPath string   `yaml:"address_book_path"`
	Terminal        Terminal `yaml:"terminal"`
	Host            Host     `yaml:"host"`
}

// Terminal holds `terminal`'s defaults for a dial target that doesn't
// name its own geometry/emulation/baud (an address book entry's own
// fields still win when set).
type Terminal struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Emulation string `yaml:"emulation"`
	BaudRate  int    `yaml:"baud_rate"`
	UseIEMSI  bool   `yaml:"use_iemsi"`
}

// Host holds `editor host`'s defaults, read when the corresponding flag
// is left unset.
type Host struct {
	Bind           string `yaml:"bind"`
	Port           int    `yaml:"port"`
	BackupFolder   string `yaml:"backup_folder"`
	BackupInterval int    `yaml:"backup_interval_minutes"`
	MaxUsers       int    `yaml:"max_users"`
	NgrokEnabled   bool   `yaml:"ngrok_enabled"`
	NgrokAuthToken string `yaml:"ngrok_auth_token"`
}

// DefaultConfig returns this module's built-in defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		AddressBookPath: filepath.Join(homeDir, ".icy-term", "addressbook.json"),
		Terminal: Terminal{
			Width:     80,
			Height:    25,
			Emulation: "ansi",
		},
		Host: Host{
			Bind:           "0.0.0.0",
			Port:           8000,
			BackupInterval: 5,
		},
	}
}

// LoadConfig loads configuration from filename, writing (and returning)
// DefaultConfig if it doesn't exist yet. An empty filename just returns
// the defaults without touching disk.
func LoadConfig(filename string) *Config {
	cfg := DefaultConfig()
	if filename == "" {
		return cfg
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		fmt.Printf("Warning: failed to create config directory: %v\n", err)
		return cfg
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Printf("Warning: failed to read config file: %v\n", err)
		}
		if err := cfg.Save(filename); err != nil {
			fmt.Printf("Warning: failed to save default config: %v\n", err)
		}
		return cfg
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		fmt.Printf("Warning: failed to parse config file: %v\n", err)
		return DefaultConfig()
	}
	return cfg
}

// Save writes c to filename as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

// MergeHostFlags overlays any pflag.FlagSet values the user explicitly
// set (per flags.Changed) onto c.Host, the same selective-merge pattern
// the teacher's Config.MergeFlags uses so an unset CLI flag never
// clobbers a saved preference.
func (c *Config) MergeHostFlags(flags *pflag.FlagSet) {
	if flags.Changed("bind") {
		if v, err := flags.GetString("bind"); err == nil {
			c.Host.Bind = v
		}
	}
	if flags.Changed("port") {
		if v, err := flags.GetInt("port"); err == nil {
			c.Host.Port = v
		}
	}
	if flags.Changed("backup-folder") {
		if v, err := flags.GetString("backup-folder"); err == nil {
			c.Host.BackupFolder = v
		}
	}
	if flags.Changed("interval") {
		if v, err := flags.GetInt("interval"); err == nil {
			c.Host.BackupInterval = v
		}
	}
	if flags.Changed("max-users") {
		if v, err := flags.GetInt("max-users"); err == nil {
			c.Host.MaxUsers = v
		}
	}
}

// Print writes a human-readable summary of c to stdout, for `editor
// config` / `terminal config` style inspection commands.
func (c *Config) Print() {
	fmt.Println("icy-term-go configuration:")
	fmt.Printf("  Address book: %s\n", c.AddressBookPath)
	fmt.Println("Terminal defaults:")
	fmt.Printf("  %dx%d %s, baud=%d, iemsi=%t\n", c.Terminal.Width, c.Terminal.Height, c.Terminal.Emulation, c.Terminal.BaudRate, c.Terminal.UseIEMSI)
	fmt.Println("Host defaults:")
	fmt.Printf("  %s:%d, backup=%q every %dm, max-users=%d, ngrok=%t\n",
		c.Host.Bind, c.Host.Port, c.Host.BackupFolder, c.Host.BackupInterval, c.Host.MaxUsers, c.Host.NgrokEnabled)
}
