package financialdataanalyst

import (
	"fmt"
	"time"

	"financial-analyst/internal/common/config"
)

type Config struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxJobsActive  int           `mapstructure:"max_jobs_active"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Model          string        `mapstructure:"model"`
	Temperature    float64       `mapstructure:"temperature"`
	PromptMaxChars int           `mapstructure:"prompt_max_chars"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxJobsActive:  2,
		Timeout:        5 * time.Minute,
		Model:          config.DefaultModel,
		Temperature:    config.DefaultTemperature,
		PromptMaxChars: config.DefaultPromptMaxChars,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.PromptMaxChars <= 0 {
		return fmt.Errorf("prompt_max_chars must be positive")
	}
	return nil
}

// ModelConfig returns the deployment's model selection.
func (c *Config) ModelConfig() ModelConfig {
	return ModelConfig{Model: c.Model, Temperature: c.Temperature}
}

func (c *Config) registryDefaults() map[string]interface{} {
	return map[string]interface{}{
		"model":            c.Model,
		"temperature":      c.Temperature,
		"prompt_max_chars": c.PromptMaxChars,
		"max_jobs_active":  c.MaxJobsActive,
	}
}
