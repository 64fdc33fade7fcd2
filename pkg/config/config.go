// Package config loads the dreambatch configuration file and optional
// per-worker override sidecars. All settings are immutable after load;
// workers receive a copy at construction instead of reading process-wide
// mutable state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "dreambatch.toml"

// Ratios are the aspect ratios accepted by the generation service.
var Ratios = []string{"1:1", "4:3", "3:4", "16:9", "9:16", "3:2", "2:3", "21:9"}

// Config is the application configuration, loaded once at startup.
type Config struct {
	Endpoint   string `toml:"endpoint"`
	Model      string `toml:"model"`
	Resolution string `toml:"resolution"`
	Ratio      string `toml:"ratio"`

	PromptDir  string `toml:"prompt_dir"`
	SessionDir string `toml:"session_dir"`
	OutputDir  string `toml:"output_dir"`

	EventDBPath string `toml:"event_db_path"`

	GenerateTimeoutSec int `toml:"generate_timeout_sec"`
	DownloadTimeoutSec int `toml:"download_timeout_sec"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Endpoint:           "http://localhost:5100/v1/images/generations",
		Model:              "jimeng-4.0",
		Resolution:         "2k",
		Ratio:              "1:1",
		PromptDir:          "prompt",
		SessionDir:         "session",
		OutputDir:          "outputs",
		GenerateTimeoutSec: 120,
		DownloadTimeoutSec: 60,
	}
}

// Load reads the TOML config at path. A missing file yields the defaults;
// a present but malformed file is an error. Absent fields fall back to
// their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.Endpoint == "" {
		c.Endpoint = def.Endpoint
	}
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.Resolution == "" {
		c.Resolution = def.Resolution
	}
	if c.Ratio == "" {
		c.Ratio = def.Ratio
	}
	if c.PromptDir == "" {
		c.PromptDir = def.PromptDir
	}
	if c.SessionDir == "" {
		c.SessionDir = def.SessionDir
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.GenerateTimeoutSec == 0 {
		c.GenerateTimeoutSec = def.GenerateTimeoutSec
	}
	if c.DownloadTimeoutSec == 0 {
		c.DownloadTimeoutSec = def.DownloadTimeoutSec
	}
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if !ValidRatio(c.Ratio) {
		return fmt.Errorf("config: unknown ratio %q (valid: %s)", c.Ratio, strings.Join(Ratios, ", "))
	}
	if c.GenerateTimeoutSec < 0 || c.DownloadTimeoutSec < 0 {
		return fmt.Errorf("config: timeouts must be non-negative")
	}
	return nil
}

// ValidRatio reports whether r is an accepted aspect ratio.
func ValidRatio(r string) bool {
	for _, known := range Ratios {
		if r == known {
			return true
		}
	}
	return false
}

// GenerateTimeout returns the generation call timeout as a duration.
func (c Config) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSec) * time.Second
}

// DownloadTimeout returns the image download timeout as a duration.
func (c Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSec) * time.Second
}

// --- Per-worker overrides ---

// Overrides are optional per-worker settings read from a YAML sidecar
// placed next to a prompt file (<stem>.yaml). Empty fields inherit the
// app config.
type Overrides struct {
	Model    string `yaml:"model,omitempty"`
	Ratio    string `yaml:"ratio,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// LoadOverrides reads the sidecar for promptPath if one exists. A missing
// sidecar returns zero Overrides; a malformed one is an error so typos do
// not silently fall back.
func LoadOverrides(promptPath string) (Overrides, error) {
	stem := strings.TrimSuffix(promptPath, filepath.Ext(promptPath))
	sidecar := stem + ".yaml"

	data, err := os.ReadFile(sidecar)
	if os.IsNotExist(err) {
		return Overrides{}, nil
	}
	if err != nil {
		return Overrides{}, fmt.Errorf("read overrides %s: %w", sidecar, err)
	}

	var ov Overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return Overrides{}, fmt.Errorf("parse overrides %s: %w", sidecar, err)
	}
	if ov.Ratio != "" && !ValidRatio(ov.Ratio) {
		return Overrides{}, fmt.Errorf("overrides %s: unknown ratio %q", sidecar, ov.Ratio)
	}
	return ov, nil
}

// Apply returns a copy of cfg with non-empty override fields applied.
func (o Overrides) Apply(cfg Config) Config {
	if o.Model != "" {
		cfg.Model = o.Model
	}
	if o.Ratio != "" {
		cfg.Ratio = o.Ratio
	}
	if o.Endpoint != "" {
		cfg.Endpoint = o.Endpoint
	}
	return cfg
}

// WriteDefault writes a commented default config file at path, failing if
// one already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	def := Default()
	content := fmt.Sprintf(`# dreambatch configuration

# Generation API endpoint and request parameters.
endpoint = %q
model = %q
resolution = %q
# Default aspect ratio; per-worker YAML sidecars may override.
ratio = %q

# Input and output folders. The Nth prompt file pairs with the Nth
# session file when both folders are sorted by name.
prompt_dir = %q
session_dir = %q
output_dir = %q

# Upper bounds per call. Generation tolerates long server-side renders.
generate_timeout_sec = %d
download_timeout_sec = %d
`, def.Endpoint, def.Model, def.Resolution, def.Ratio,
		def.PromptDir, def.SessionDir, def.OutputDir,
		def.GenerateTimeoutSec, def.DownloadTimeoutSec)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
