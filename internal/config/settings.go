package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openmined/biovault-desktop/internal/bverrors"
)

// Settings is the desktop's persisted configuration (spec §1.3, §4.5).
type Settings struct {
	Version int `yaml:"version"`

	Bridge BridgeSettings `yaml:"bridge"`

	// ReconcileInterval is how often the flow-run reconciler sweeps for
	// orphaned runs.
	ReconcileInterval time.Duration `yaml:"reconcile_interval,omitempty"`
}

// BridgeSettings configures C5's command bridge.
type BridgeSettings struct {
	// Disabled turns off both the WS and HTTP listeners entirely.
	Disabled bool `yaml:"disabled"`

	WSPort   int `yaml:"ws_port,omitempty"`
	HTTPPort int `yaml:"http_port,omitempty"`

	// BlockedCommands lists RPC method names the bridge refuses to
	// dispatch regardless of caller (spec §4.5 "Authorization").
	BlockedCommands []string `yaml:"blocked_commands,omitempty"`
}

func defaultSettings() Settings {
	return Settings{
		Version: 1,
		Bridge: BridgeSettings{
			WSPort:   3333,
			HTTPPort: 3334,
		},
		ReconcileInterval: 30 * time.Second,
	}
}

// LoadSettings reads settings.yaml, returning defaults if it does not yet
// exist.
func LoadSettings() (Settings, error) {
	path, err := SettingsPath()
	if err != nil {
		return Settings{}, bverrors.Wrap(bverrors.KindIO, "config.LoadSettings", "resolve settings path", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSettings(), nil
		}
		return Settings{}, bverrors.Wrap(bverrors.KindIO, "config.LoadSettings", "read settings.yaml", err)
	}

	s := defaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, bverrors.Wrap(bverrors.KindIO, "config.LoadSettings", "parse settings.yaml", err)
	}
	return s, nil
}

// SaveSettings atomically writes settings.yaml.
func SaveSettings(s Settings) error {
	path, err := SettingsPath()
	if err != nil {
		return bverrors.Wrap(bverrors.KindIO, "config.SaveSettings", "resolve settings path", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return bverrors.Wrap(bverrors.KindIO, "config.SaveSettings", "marshal settings", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return bverrors.Wrap(bverrors.KindIO, "config.SaveSettings", "write settings.yaml", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return bverrors.Wrap(bverrors.KindIO, "config.SaveSettings", "rename settings.yaml into place", err)
	}
	return nil
}
