// Package config holds the announcer configuration and user preferences.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/beatnet/serverbrowser/internal/util"
)

type Config struct {
	Bridge    Bridge      `json:"bridge"`
	Directory Directory   `json:"directory"`
	Announce  Preferences `json:"announce"`
	Client    Client      `json:"client"`
}

// Bridge configures the local endpoint the game client delivers lifecycle
// events to.
type Bridge struct {
	ListenAddr string `json:"listen_addr"`
}

// Directory configures the remote server-browser API.
type Directory struct {
	BaseURL    string `json:"base_url"`
	TimeoutSec int    `json:"timeout_seconds"`
}

// Preferences are the user-facing announce switches. The takeover path may
// flip AnnounceToggle on at runtime; everything else is read-only to the core.
type Preferences struct {
	AnnounceToggle      bool   `json:"lobby_announce_toggle"`
	ShareQuickPlayGames bool   `json:"share_quick_play_games"`
	CustomGameName      string `json:"custom_game_name"`
}

// Client identifies the announcing game client to the directory.
type Client struct {
	Platform   string `json:"platform"`
	ModVersion string `json:"mod_version"`
}

func Default() Config {
	return Config{
		Bridge: Bridge{
			ListenAddr: "127.0.0.1:2147",
		},
		Directory: Directory{
			BaseURL:    "https://bssb.app",
			TimeoutSec: 10,
		},
		Announce: Preferences{
			AnnounceToggle:      true,
			ShareQuickPlayGames: false,
		},
		Client: Client{
			Platform: "steam",
		},
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bridge.ListenAddr) == "" {
		return errors.New("bridge.listen_addr is required")
	}

	base := strings.TrimSpace(c.Directory.BaseURL)
	if base == "" {
		return errors.New("directory.base_url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("directory.base_url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("directory.base_url scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("directory.base_url is missing a host")
	}

	if c.Directory.TimeoutSec <= 0 || c.Directory.TimeoutSec > 120 {
		return errors.New("directory.timeout_seconds must be 1..120")
	}

	return nil
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return util.WriteJSONFile(path, cfg)
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err).
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("create default config: %w", err)
	}
	return cfg, true, nil
}
