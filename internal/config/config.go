// Package config loads the credit pipeline configuration from YAML.
// Every knob has a default; a missing file is not an error, an
// unreadable or invalid one is.
package config

// #region imports
import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agentcredit/go-credit/internal/attribution"
	"github.com/agentcredit/go-credit/internal/dataset"
)

// #endregion

// #region types

// GroupingConfig controls training group construction.
type GroupingConfig struct {
	// GroupSize is how many samples form one GRPO group.
	GroupSize int `yaml:"group_size"`
	// MinScoreVariance gates groups whose scores are too uniform to
	// carry a learning signal.
	MinScoreVariance float64 `yaml:"min_score_variance"`
	// Stride between group starting offsets; 0 means groupSize/2.
	Stride int `yaml:"stride"`
}

// StoreConfig locates the trajectory database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// TrainerConfig points at the training service.
type TrainerConfig struct {
	Addr           string `yaml:"addr"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Config is the full pipeline configuration.
type Config struct {
	Store       StoreConfig           `yaml:"store"`
	Trainer     TrainerConfig         `yaml:"trainer"`
	Attribution attribution.Config    `yaml:"attribution"`
	Builder     dataset.BuilderConfig `yaml:"builder"`
	Grouping    GroupingConfig        `yaml:"grouping"`

	// ArchetypeConfigPath optionally points at a rubric/archetype YAML;
	// empty uses the built-in defaults.
	ArchetypeConfigPath string `yaml:"archetype_config_path"`
}

// #endregion types

// #region load

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Store:       StoreConfig{Path: "credit.db"},
		Trainer:     TrainerConfig{Addr: "localhost:50051", TimeoutSeconds: 30},
		Attribution: attribution.DefaultConfig(),
		Builder:     dataset.DefaultBuilderConfig(),
		Grouping:    GroupingConfig{GroupSize: 8, MinScoreVariance: 0.01},
	}
}

// Load reads a YAML config file, layering it over the defaults. A
// missing file returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that would silently misbehave.
func (c Config) Validate() error {
	if c.Grouping.GroupSize < 2 {
		return fmt.Errorf("grouping.group_size must be >= 2, got %d", c.Grouping.GroupSize)
	}
	if c.Grouping.MinScoreVariance < 0 {
		return fmt.Errorf("grouping.min_score_variance must be >= 0, got %f", c.Grouping.MinScoreVariance)
	}
	if c.Builder.MinResponseLen < 0 {
		return fmt.Errorf("builder.min_response_len must be >= 0, got %d", c.Builder.MinResponseLen)
	}
	if c.Builder.MaxSystemPromptLen <= 0 {
		return fmt.Errorf("builder.max_system_prompt_len must be > 0, got %d", c.Builder.MaxSystemPromptLen)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	w := c.Attribution
	for name, v := range map[string]float64{
		"reasoning":  w.Reasoning,
		"action":     w.Action,
		"response":   w.Response,
		"evaluation": w.Evaluation,
		"other":      w.Other,
	} {
		if v < 0 {
			return fmt.Errorf("attribution.%s must be >= 0, got %f", name, v)
		}
	}
	return nil
}

// #endregion load
