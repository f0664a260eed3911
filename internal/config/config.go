// Package config provides configuration loading and validation for the recruiter agent.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full service configuration. Every field can come from a config
// file, from environment variables (section.key -> SECTION_KEY) or from defaults.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Retry    RetryConfig    `mapstructure:"retry"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Apify    ApifyConfig    `mapstructure:"apify"`
	Exa      ExaConfig      `mapstructure:"exa"`
	Search   SearchConfig   `mapstructure:"search"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Database DatabaseConfig `mapstructure:"database"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Message  MessageConfig  `mapstructure:"message"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	// JWTSecret enables bearer-token auth on /process when set.
	JWTSecret string `mapstructure:"jwt_secret"`
	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	FileOnly   bool   `mapstructure:"file_only"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// PipelineConfig holds the orchestrator's policy constants.
type PipelineConfig struct {
	JobFloor          int           `mapstructure:"job_floor"`
	AlternateJobFloor int           `mapstructure:"alternate_job_floor"`
	CompanyFloor      int           `mapstructure:"company_floor"`
	MaxBackEdges      int           `mapstructure:"max_back_edges"`
	Deadline          time.Duration `mapstructure:"deadline"`
	TopCompanies      int           `mapstructure:"top_companies"`
	MaxCompanySize    int           `mapstructure:"max_company_size"`
	Workers           int           `mapstructure:"workers"`
	DefaultMaxItems   int           `mapstructure:"default_max_items"`
	MaxItemsCeiling   int           `mapstructure:"max_items_ceiling"`
	RoleSimilarity    float64       `mapstructure:"role_similarity"`
	// DiscoveryProvider picks the alternate source backend: exa or google.
	DiscoveryProvider string `mapstructure:"discovery_provider"`
}

// RetryConfig configures the retry policy and per-call timeouts.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	Multiplier     float64       `mapstructure:"multiplier"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	LLMTimeout     time.Duration `mapstructure:"llm_timeout"`
	ScraperTimeout time.Duration `mapstructure:"scraper_timeout"`
}

// LLMConfig selects and configures the LLM backend.
type LLMConfig struct {
	// Provider is gemini or openai.
	Provider     string `mapstructure:"provider"`
	Model        string `mapstructure:"model"`
	APIKey       string `mapstructure:"api_key"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	BaseURL      string `mapstructure:"base_url"`
}

// ApifyConfig configures the LinkedIn jobs scraper.
type ApifyConfig struct {
	Token   string `mapstructure:"token"`
	ActorID string `mapstructure:"actor_id"`
	BaseURL string `mapstructure:"base_url"`
}

// ExaConfig configures the Exa discovery service.
type ExaConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	NumResults int    `mapstructure:"num_results"`
}

// SearchConfig configures Google Custom Search.
type SearchConfig struct {
	APIKey string `mapstructure:"api_key"`
	CX     string `mapstructure:"cx"`
}

// FetchConfig configures website fetching.
type FetchConfig struct {
	UseBrowser       bool   `mapstructure:"use_browser"`
	UserAgent        string `mapstructure:"user_agent"`
	MinContentLength int    `mapstructure:"min_content_length"`
}

// DeliveryConfig configures result delivery.
type DeliveryConfig struct {
	WebhookURL    string `mapstructure:"webhook_url"`
	ArchiveBucket string `mapstructure:"archive_bucket"`
	ArchivePrefix string `mapstructure:"archive_prefix"`
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
}

// DatabaseConfig configures the audit log.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// PricingConfig holds unit costs for the ledger.
type PricingConfig struct {
	LLMPer1KTokens      float64 `mapstructure:"llm_per_1k_tokens"`
	ApifyPerRun         float64 `mapstructure:"apify_per_run"`
	ExaPerCredit        float64 `mapstructure:"exa_per_credit"`
	ExaCreditsPerSearch int     `mapstructure:"exa_credits_per_search"`
	GooglePerQuery      float64 `mapstructure:"google_per_query"`
}

// MessageConfig holds outreach defaults used when the request leaves them out.
type MessageConfig struct {
	SenderName  string `mapstructure:"sender_name"`
	SenderEmail string `mapstructure:"sender_email"`
	Timezone    string `mapstructure:"timezone"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 0.0)
	v.SetDefault("server.rate_burst", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("pipeline.job_floor", 10)
	v.SetDefault("pipeline.alternate_job_floor", 3)
	v.SetDefault("pipeline.company_floor", 1)
	v.SetDefault("pipeline.max_back_edges", 1)
	v.SetDefault("pipeline.deadline", "10m")
	v.SetDefault("pipeline.top_companies", 4)
	v.SetDefault("pipeline.max_company_size", 100)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.default_max_items", 100)
	v.SetDefault("pipeline.max_items_ceiling", 400)
	v.SetDefault("pipeline.role_similarity", 0.85)
	v.SetDefault("pipeline.discovery_provider", "exa")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "2s")
	v.SetDefault("retry.max_delay", "30s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.http_timeout", "30s")
	v.SetDefault("retry.llm_timeout", "60s")
	v.SetDefault("retry.scraper_timeout", "120s")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")

	v.SetDefault("apify.actor_id", "curious_coder~linkedin-jobs-scraper")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")

	v.SetDefault("exa.base_url", "https://api.exa.ai")
	v.SetDefault("exa.num_results", 25)

	v.SetDefault("fetch.use_browser", false)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; RecruiterAgent/1.0)")
	v.SetDefault("fetch.min_content_length", 500)

	v.SetDefault("delivery.archive_prefix", "runs/")
	v.SetDefault("delivery.region", "us-east-1")

	v.SetDefault("pricing.llm_per_1k_tokens", 0.00015)
	v.SetDefault("pricing.apify_per_run", 0.05)
	v.SetDefault("pricing.exa_per_credit", 0.005)
	v.SetDefault("pricing.exa_credits_per_search", 21)
	v.SetDefault("pricing.google_per_query", 0.005)

	v.SetDefault("message.sender_name", "Recruiter Agent")
	v.SetDefault("message.timezone", "GMT")
}

func bindSecrets(v *viper.Viper) {
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("llm.api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("llm.openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("apify.token", "APIFY_TOKEN", "APIFY_API_TOKEN")
	_ = v.BindEnv("exa.api_key", "EXA_API_KEY")
	_ = v.BindEnv("search.api_key", "GOOGLE_SEARCH_API_KEY")
	_ = v.BindEnv("search.cx", "GOOGLE_SEARCH_CX")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("delivery.webhook_url", "WEBHOOK_URL")
	_ = v.BindEnv("delivery.access_key", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("delivery.secret_key", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("message.sender_email", "SENDER_EMAIL")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "LOG_FORMAT")
}

// Load reads configuration. An empty path looks for config.yaml in ./configs and
// the working directory; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindSecrets(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has consistent values.
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.JobFloor < 0 || p.AlternateJobFloor < 0 || p.CompanyFloor < 0 {
		return fmt.Errorf("config error: pipeline floors must be non-negative")
	}
	if p.AlternateJobFloor > p.JobFloor {
		return fmt.Errorf("config error: 'pipeline.alternate_job_floor' (%d) must not exceed 'pipeline.job_floor' (%d)", p.AlternateJobFloor, p.JobFloor)
	}
	if p.MaxBackEdges < 0 {
		return fmt.Errorf("config error: 'pipeline.max_back_edges' must be non-negative")
	}
	if p.Deadline <= 0 {
		return fmt.Errorf("config error: 'pipeline.deadline' must be positive")
	}
	if p.TopCompanies < 1 {
		return fmt.Errorf("config error: 'pipeline.top_companies' must be at least 1")
	}
	if p.Workers < 1 {
		return fmt.Errorf("config error: 'pipeline.workers' must be at least 1")
	}
	if p.DefaultMaxItems < 1 || p.DefaultMaxItems > p.MaxItemsCeiling {
		return fmt.Errorf("config error: 'pipeline.default_max_items' must be between 1 and 'pipeline.max_items_ceiling' (%d)", p.MaxItemsCeiling)
	}
	if p.RoleSimilarity <= 0 || p.RoleSimilarity > 1 {
		return fmt.Errorf("config error: 'pipeline.role_similarity' must be in (0, 1]")
	}
	switch p.DiscoveryProvider {
	case "exa", "google":
	default:
		return fmt.Errorf("config error: unknown 'pipeline.discovery_provider' %q", p.DiscoveryProvider)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config error: 'retry.max_attempts' must be at least 1")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("config error: 'retry.multiplier' must be at least 1")
	}

	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("config error: unknown 'llm.provider' %q", c.LLM.Provider)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config error: 'server.rate_limit' must be non-negative")
	}
	return nil
}
