// Package config loads process settings from the environment and the
// optional game rules file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/magic-match/internal/engine"
)

type Config struct {
	Addr           string        `env:"MAGICMATCH_ADDR" envDefault:":8080"`
	LogLevel       string        `env:"MAGICMATCH_LOG_LEVEL" envDefault:"info"`
	Dev            bool          `env:"MAGICMATCH_DEV" envDefault:"false"`
	RulesFile      string        `env:"MAGICMATCH_RULES_FILE"`
	AllowedOrigins []string      `env:"MAGICMATCH_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ShutdownGrace  time.Duration `env:"MAGICMATCH_SHUTDOWN_GRACE" envDefault:"5s"`
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment win over the file.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// rulesFile mirrors engine.Rules in YAML. Omitted keys keep their defaults.
type rulesFile struct {
	Stages       []int    `yaml:"stages"`
	CountdownSec int      `yaml:"countdown_sec"`
	ShortDelay   string   `yaml:"short_delay"`
	LongDelay    string   `yaml:"long_delay"`
	Images       []string `yaml:"images"`
}

// LoadRules returns the default rules when path is empty, otherwise the
// defaults overridden by the YAML file at path. The result is validated.
func LoadRules(path string) (engine.Rules, error) {
	rules := engine.DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return engine.Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if rf.Stages != nil {
		rules.DeckSizes = rf.Stages
	}
	if rf.CountdownSec != 0 {
		rules.CountdownSec = rf.CountdownSec
	}
	if rf.ShortDelay != "" {
		if rules.ShortDelay, err = time.ParseDuration(rf.ShortDelay); err != nil {
			return engine.Rules{}, fmt.Errorf("short_delay: %w", err)
		}
	}
	if rf.LongDelay != "" {
		if rules.LongDelay, err = time.ParseDuration(rf.LongDelay); err != nil {
			return engine.Rules{}, fmt.Errorf("long_delay: %w", err)
		}
	}
	if rf.Images != nil {
		rules.Images = rf.Images
	}

	if err := rules.Validate(); err != nil {
		return engine.Rules{}, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}
