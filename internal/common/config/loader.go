// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultModel          = "gpt-4o"
	DefaultTemperature    = 0.2
	DefaultPromptMaxChars = 60000

	DefaultChartBaseURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultSummaryBaseURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"
	DefaultCookieURL      = "https://fc.yahoo.com"
	DefaultCrumbURL       = "https://query2.finance.yahoo.com/v1/test/getcrumb"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Load reads configs/config.yaml, merges config.<env>.yaml and applies env overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile reads a single config file without environment-specific merging.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	v.SetDefault("llm.temperature", DefaultTemperature)
	v.SetDefault("metrics.enabled", true)
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			v.Set(key, os.ExpandEnv(strVal))
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.LLM.OpenAI.APIKey == "" {
		cfg.LLM.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.OpenAI.BaseURL == "" {
		cfg.LLM.OpenAI.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if cfg.LLM.Gemini.APIKey == "" {
		if val := os.Getenv("GEMINI_API_KEY"); val != "" {
			cfg.LLM.Gemini.APIKey = val
		} else {
			cfg.LLM.Gemini.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	}
	if cfg.LLM.Anthropic.APIKey == "" {
		cfg.LLM.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		cfg.LLM.Model = val
	}
	if val := os.Getenv("LLM_TEMPERATURE"); val != "" {
		if t, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.LLM.Temperature = t
		}
	}
	if cfg.MarketData.Proxy == "" {
		cfg.MarketData.Proxy = os.Getenv("HTTPS_PROXY")
	}
	if cfg.Camunda.BrokerAddress == "" {
		cfg.Camunda.BrokerAddress = os.Getenv("ZEEBE_ADDRESS")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "financial-analyst"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// LLM defaults
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 120000
	}
	if cfg.LLM.Anthropic.MaxTokens == 0 {
		cfg.LLM.Anthropic.MaxTokens = 4096
	}

	// Market data defaults
	if cfg.MarketData.ChartBaseURL == "" {
		cfg.MarketData.ChartBaseURL = DefaultChartBaseURL
	}
	if cfg.MarketData.SummaryBaseURL == "" {
		cfg.MarketData.SummaryBaseURL = DefaultSummaryBaseURL
	}
	if cfg.MarketData.CookieURL == "" {
		cfg.MarketData.CookieURL = DefaultCookieURL
	}
	if cfg.MarketData.CrumbURL == "" {
		cfg.MarketData.CrumbURL = DefaultCrumbURL
	}
	if cfg.MarketData.Timeout == 0 {
		cfg.MarketData.Timeout = 30000
	}
	if cfg.MarketData.UserAgent == "" {
		cfg.MarketData.UserAgent = DefaultUserAgent
	}

	if cfg.Prompt.MaxChars == 0 {
		cfg.Prompt.MaxChars = DefaultPromptMaxChars
	}

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/activity-registry.json"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 300000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", cfg.LLM.Temperature)
	}
	if cfg.Prompt.MaxChars < 0 {
		return fmt.Errorf("prompt.max_chars must not be negative")
	}
	if cfg.MarketData.Timeout < 0 || cfg.LLM.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// ValidateForWorkers checks the settings the Zeebe worker process needs on top of the pipeline's.
func ValidateForWorkers(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       300000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}

// Default returns a configuration with every default applied and no file or env input.
func Default() *Config {
	cfg := &Config{}
	cfg.LLM.Temperature = DefaultTemperature
	cfg.Metrics.Enabled = true
	applyDefaults(cfg)
	return cfg
}
