// Package config loads the add-on's settings from an optional YAML file and
// DEVRECALL_-prefixed environment variables, with working defaults when
// neither is present.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Oracle configures the language-model endpoint used for extraction,
// semantic dedup, and merges. An empty BaseURL disables the oracle entirely;
// everything degrades to the rule-based paths.
type Oracle struct {
	BaseURL string        `mapstructure:"baseURL"`
	APIKey  string        `mapstructure:"apiKey"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Storage selects the persistence backend.
type Storage struct {
	Backend string `mapstructure:"backend"` // "file" or "sqlite"
	DataDir string `mapstructure:"dataDir"`
}

// Thresholds exposes the dedup engine's tuning knobs.
type Thresholds struct {
	Lexical            float64 `mapstructure:"lexical"`
	ExitLexical        float64 `mapstructure:"exitLexical"`
	Semantic           float64 `mapstructure:"semantic"`
	SemanticCandidates int     `mapstructure:"semanticCandidates"`
	Guide              float64 `mapstructure:"guide"`
	MaxTags            int     `mapstructure:"maxTags"`
}

// Config is the full runtime configuration.
type Config struct {
	AutoObserve          bool     `mapstructure:"autoObserve"`
	FullAuto             bool     `mapstructure:"fullAuto"`
	ObserveMinActions    int      `mapstructure:"observeMinActions"`
	RequireEditForRecord bool     `mapstructure:"requireEditForRecord"`
	ObserveIgnoreTools   []string `mapstructure:"observeIgnoreTools"`
	LogLevel             string   `mapstructure:"logLevel"`

	Storage    Storage    `mapstructure:"storage"`
	Oracle     Oracle     `mapstructure:"oracle"`
	Thresholds Thresholds `mapstructure:"thresholds"`
}

// Load reads configuration from path when given, otherwise from
// config.yaml under the user config dir (~/.config/devrecall) or
// ~/.devrecall. Environment variables with the DEVRECALL_ prefix override
// file values (DEVRECALL_ORACLE_APIKEY, ...). A missing config file is not
// an error; a malformed one is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DEVRECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "devrecall"))
		}
		v.AddConfigPath(defaultDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound)
		if path != "" {
			if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
				missing = true
			}
		}
		if !missing {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = defaultDir()
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("autoObserve", true)
	v.SetDefault("fullAuto", false)
	v.SetDefault("observeMinActions", 3)
	v.SetDefault("requireEditForRecord", false)
	v.SetDefault("observeIgnoreTools", []string{})
	v.SetDefault("logLevel", "info")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dataDir", "")

	v.SetDefault("oracle.baseURL", "")
	v.SetDefault("oracle.apiKey", "")
	v.SetDefault("oracle.model", "gpt-4o-mini")
	v.SetDefault("oracle.timeout", 30*time.Second)

	v.SetDefault("thresholds.lexical", 0.70)
	v.SetDefault("thresholds.exitLexical", 0.65)
	v.SetDefault("thresholds.semantic", 0.80)
	v.SetDefault("thresholds.semanticCandidates", 10)
	v.SetDefault("thresholds.guide", 0.50)
	v.SetDefault("thresholds.maxTags", 10)
}

// defaultDir is ~/.devrecall, falling back to the working directory when the
// home directory cannot be resolved.
func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devrecall"
	}
	return filepath.Join(home, ".devrecall")
}
