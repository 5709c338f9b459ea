package importer

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Server  bool `yaml:"server"`
	Client  bool `yaml:"client"`
	Verbose bool `yaml:"verbose"`
}

type PasswordGenConfig struct {
	Enabled bool   `yaml:"enabled"`
	Chars   string `yaml:"chars"`
	Length  int    `yaml:"len"`
}

type AdminTakeOwnershipConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
}

// RunConfig is the merged per-run configuration: defaults overlaid with
// caller overrides. It is owned by a single run and discarded with it.
type RunConfig struct {
	Log         LogConfig         `yaml:"log"`
	PasswordGen PasswordGenConfig `yaml:"passwordGen"`

	CategoriesTextColors []string `yaml:"categoriesTextColors"`
	CategoriesBgColors   []string `yaml:"categoriesBgColors"`
	CategoriesIcons      []string `yaml:"categoriesIcons"`

	AutoConfirmEmails        bool    `yaml:"autoConfirmEmails"`
	UserReputationMultiplier float64 `yaml:"userReputationMultiplier"`

	AdminTakeOwnership AdminTakeOwnershipConfig `yaml:"adminTakeOwnership"`

	// TmpConfig is the temporary forum configuration overlay applied for
	// the duration of the migration: relaxed posting and validation limits
	// so historical data is accepted verbatim.
	TmpConfig map[string]string `yaml:"tmpConfig"`

	BatchSize        int     `yaml:"batchSize"`
	ProgressInterval float64 `yaml:"progressInterval"`

	// Seed drives cosmetic roulette picks and password generation. Zero
	// means "derive from the clock"; tests set it for determinism.
	Seed int64 `yaml:"seed"`
}

// DefaultRunConfig mirrors the engine's built-in defaults; overrides are
// applied on top by LoadRunConfig or by the caller mutating the result.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Log: LogConfig{Server: true},
		PasswordGen: PasswordGenConfig{
			Enabled: false,
			Chars:   "{}.-_=+qwertyuiopasdfghjklzxcvbnmQWERTYUIOPASDFGHJKLZXCVBNM1234567890",
			Length:  13,
		},
		CategoriesTextColors: []string{"#FFFFFF"},
		CategoriesBgColors:   []string{"#ab1290", "#004c66", "#0059b2"},
		CategoriesIcons:      []string{"fa-comment"},

		AutoConfirmEmails:        true,
		UserReputationMultiplier: 1,

		AdminTakeOwnership: AdminTakeOwnershipConfig{
			Enabled:  false,
			Username: "admin",
		},

		TmpConfig: map[string]string{
			"postDelay":                "0",
			"minimumPostLength":        "1",
			"minimumPasswordLength":    "0",
			"minimumTitleLength":       "1",
			"maximumTitleLength":       "300",
			"maximumUsernameLength":    "100",
			"requireEmailConfirmation": "0",
			"allowGuestPosting":        "1",
		},

		BatchSize:        10,
		ProgressInterval: 2,
	}
}

// LoadRunConfig reads a YAML overrides file over the defaults. A missing
// path returns plain defaults.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "importer: read run config %q", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "importer: parse run config %q", path)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 2
	}
	return cfg, nil
}
