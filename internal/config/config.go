package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/pokebattle/internal/engine"
	"github.com/tatianab/pokebattle/internal/models"
	"github.com/tatianab/pokebattle/internal/narrator"
	"github.com/tatianab/pokebattle/internal/pokeapi"
	"github.com/tatianab/pokebattle/internal/storage"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "pokebattle.yaml"

// Config holds the application configuration.
type Config struct {
	APIURL      string        `yaml:"api_url"`
	SaveDir     string        `yaml:"save_dir"`
	TurnDelay   time.Duration `yaml:"turn_delay"`
	ZeroDamage  string        `yaml:"zero_damage"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	DefaultA    string        `yaml:"default_a"`
	DefaultB    string        `yaml:"default_b"`
	LogFile     string        `yaml:"log_file"`
	RosterDB    string        `yaml:"roster_db"`

	GeminiAPIKey string `yaml:"-"`
	GeminiModel  string `yaml:"gemini_model"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:      pokeapi.DefaultBaseURL,
		SaveDir:     storage.DefaultSaveDir,
		TurnDelay:   220 * time.Millisecond,
		ZeroDamage:  engine.ClampToOne.String(),
		DefaultA:    models.DefaultInputA,
		DefaultB:    models.DefaultInputB,
		GeminiModel: narrator.DefaultModel,
	}
}

// LoadConfig builds the configuration from defaults, the YAML file at path
// (or DefaultFile if it exists), and environment variables, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"POKEBATTLE_API_URL":      &c.APIURL,
		"POKEBATTLE_SAVE_DIR":     &c.SaveDir,
		"POKEBATTLE_ZERO_DAMAGE":  &c.ZeroDamage,
		"POKEBATTLE_GEMINI_MODEL": &c.GeminiModel,
		"GEMINI_API_KEY":          &c.GeminiAPIKey,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	dur := map[string]*time.Duration{
		"POKEBATTLE_TURN_DELAY":   &c.TurnDelay,
		"POKEBATTLE_HTTP_TIMEOUT": &c.HTTPTimeout,
	}
	for key, dst := range dur {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// fillPaths places the log file and roster under the save dir unless set.
func (c *Config) fillPaths() {
	if c.SaveDir == "" {
		c.SaveDir = storage.DefaultSaveDir
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.SaveDir, "pokebattle.log")
	}
	if c.RosterDB == "" {
		c.RosterDB = filepath.Join(c.SaveDir, "roster.db")
	}
}

// Validate rejects values the rest of the program cannot use.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url must not be empty")
	}
	if _, err := engine.ParseZeroDamagePolicy(c.ZeroDamage); err != nil {
		return err
	}
	if c.TurnDelay < 0 {
		return fmt.Errorf("turn_delay must not be negative, got %v", c.TurnDelay)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative, got %v", c.HTTPTimeout)
	}
	return nil
}

// Policy is the parsed zero-damage policy. Call after Validate.
func (c *Config) Policy() engine.ZeroDamagePolicy {
	p, _ := engine.ParseZeroDamagePolicy(c.ZeroDamage)
	return p
}

// NarrationEnabled reports whether a Gemini key is configured.
func (c *Config) NarrationEnabled() bool {
	return c.GeminiAPIKey != ""
}
