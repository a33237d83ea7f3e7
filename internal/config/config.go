// Package config aggregates the settings of every generation pass and loads
// them from YAML, a .env file and the environment.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dygy/sonigraph/internal/embellish"
	apperrors "github.com/dygy/sonigraph/internal/errors"
	"github.com/dygy/sonigraph/internal/mapping"
	"github.com/dygy/sonigraph/internal/panning"
	"github.com/dygy/sonigraph/internal/phrase"
	"github.com/dygy/sonigraph/internal/tension"
	"github.com/dygy/sonigraph/internal/turntaking"
	"github.com/dygy/sonigraph/internal/voicing"
)

// Pass names accepted in Config.Passes
const (
	PassTension    = "tension"
	PassTurnTaking = "turntaking"
	PassPanning    = "panning"
	PassVoicing    = "voicing"
)

// KnownPasses lists every post-processing pass
var KnownPasses = []string{PassTension, PassTurnTaking, PassPanning, PassVoicing}

// Config holds all runtime configuration
type Config struct {
	// Vault and server
	Vault       string `yaml:"vault" json:"-"`
	Port        int    `yaml:"port" json:"-"`
	CacheDir    string `yaml:"cache_dir" json:"-"`
	MaxNoteSize int64  `yaml:"max_note_size" json:"-"` // bytes

	// Randomness: Seed 0 derives structure from the prose. Reproducible
	// also pins the variation source (voicing density, pan side).
	Seed         uint64 `yaml:"seed" json:"seed"`
	Reproducible bool   `yaml:"reproducible" json:"reproducible"`

	RootFrequency float64  `yaml:"root_frequency" json:"root_frequency"`
	Passes        []string `yaml:"passes" json:"passes"`

	Phrase     phrase.Config     `yaml:"phrase" json:"phrase"`
	Embellish  embellish.Config  `yaml:"embellish" json:"embellish"`
	Voicing    voicing.Config    `yaml:"voicing" json:"voicing"`
	Tension    tension.Config    `yaml:"tension" json:"tension"`
	TurnTaking turntaking.Config `yaml:"turn_taking" json:"turn_taking"`
	Panning    panning.Config    `yaml:"panning" json:"panning"`
}

// Default returns the documented defaults
func Default() Config {
	return Config{
		Port:          8080,
		CacheDir:      ".cache/compositions",
		MaxNoteSize:   1024 * 1024,
		RootFrequency: mapping.DefaultRootFrequency,
		Passes:        []string{PassTension, PassTurnTaking, PassPanning, PassVoicing},
		Phrase:        phrase.DefaultConfig(),
		Embellish:     embellish.DefaultConfig(),
		Voicing:       voicing.DefaultConfig(),
		Tension:       tension.DefaultConfig(),
		TurnTaking:    turntaking.DefaultConfig(),
		Panning:       panning.DefaultConfig(),
	}
}

// Load decodes a YAML file over the defaults. Fields the file leaves out
// keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads envFile when it exists and then applies SONIGRAPH_*
// environment overrides.
func LoadEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg.Vault = envStr("SONIGRAPH_VAULT", cfg.Vault)
	cfg.Port = envInt("SONIGRAPH_PORT", cfg.Port)
	cfg.CacheDir = envStr("SONIGRAPH_CACHE_DIR", cfg.CacheDir)
	cfg.Seed = envUint("SONIGRAPH_SEED", cfg.Seed)
	cfg.Reproducible = envBool("SONIGRAPH_REPRODUCIBLE", cfg.Reproducible)
	cfg.RootFrequency = envFloat("SONIGRAPH_ROOT_FREQUENCY", cfg.RootFrequency)
	return nil
}

// Validate rejects unknown pattern, strategy, shape and pass names
func (c Config) Validate() error {
	if !slices.Contains(turntaking.Patterns, c.TurnTaking.Pattern) {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownPattern, c.TurnTaking.Pattern)
	}
	if !slices.Contains(voicing.Strategies, c.Voicing.Strategy) {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownStrategy, c.Voicing.Strategy)
	}
	if !slices.Contains(tension.Shapes, c.Tension.Shape) {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownShape, c.Tension.Shape)
	}
	for _, p := range c.Passes {
		if !slices.Contains(KnownPasses, p) {
			return fmt.Errorf("unknown pass %q", p)
		}
	}
	if !(c.RootFrequency > 0) {
		return fmt.Errorf("root frequency must be positive, got %v", c.RootFrequency)
	}
	return nil
}

// Fingerprint identifies the settings that affect generated output
func (c Config) Fingerprint() string {
	data, err := json.Marshal(c)
	if err != nil {
		return "unknown"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
