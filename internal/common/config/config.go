// internal/common/config/config.go
package config

type Config struct {
	App        AppConfig               `mapstructure:"app"`
	Camunda    CamundaConfig           `mapstructure:"camunda"`
	Workers    map[string]WorkerConfig `mapstructure:"workers"`
	LLM        LLMConfig               `mapstructure:"llm"`
	MarketData MarketDataConfig        `mapstructure:"market_data"`
	Prompt     PromptConfig            `mapstructure:"prompt"`
	Registry   RegistryConfig          `mapstructure:"registry"`
	Logging    LoggingConfig           `mapstructure:"logging"`
	Metrics    MetricsConfig           `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LLMConfig selects the language model used for analysis.
type LLMConfig struct {
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds

	OpenAI struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"openai"`

	Gemini struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"gemini"`

	Anthropic struct {
		APIKey    string `mapstructure:"api_key"`
		MaxTokens int    `mapstructure:"max_tokens"`
	} `mapstructure:"anthropic"`
}

type MarketDataConfig struct {
	ChartBaseURL   string `mapstructure:"chart_base_url"`
	SummaryBaseURL string `mapstructure:"summary_base_url"`
	CrumbURL       string `mapstructure:"crumb_url"`
	CookieURL      string `mapstructure:"cookie_url"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
	Proxy          string `mapstructure:"proxy"`
	UserAgent      string `mapstructure:"user_agent"`
}

type PromptConfig struct {
	MaxChars int `mapstructure:"max_chars"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
