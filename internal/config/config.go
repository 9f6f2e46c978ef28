package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/enrich-cli/internal/cost"
	"github.com/sells-group/enrich-cli/internal/estimate"
	"github.com/sells-group/enrich-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Lookups    LookupsConfig    `yaml:"lookups" mapstructure:"lookups"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the result store backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// RedisConfig configures the optional hot cache. Empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (fallback only).
type FirecrawlConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms" mapstructure:"timeout_ms"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	Model         string `yaml:"model" mapstructure:"model"`
	ResearchModel string `yaml:"research_model" mapstructure:"research_model"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	AnalysisModel string `yaml:"analysis_model" mapstructure:"analysis_model"`
	ExtractModel  string `yaml:"extract_model" mapstructure:"extract_model"`
	MaxTokens     int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic  map[string]cost.ModelRate      `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity map[string]cost.PerplexityRate `yaml:"perplexity" mapstructure:"perplexity"`
	Jina       cost.JinaRate                  `yaml:"jina" mapstructure:"jina"`
	Firecrawl  cost.FirecrawlRate             `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// Rates converts the pricing section into calculator rates, falling back to
// the built-in table for any provider left unset.
func (p PricingConfig) Rates() cost.Rates {
	r := cost.DefaultRates()
	for k, v := range p.Anthropic {
		r.Anthropic[k] = v
	}
	for k, v := range p.Perplexity {
		r.Perplexity[k] = v
	}
	if p.Jina.PerMTok > 0 {
		r.Jina = p.Jina
	}
	if p.Firecrawl.CreditsIncluded > 0 {
		r.Firecrawl = p.Firecrawl
	}
	return r
}

// ScrapeConfig configures page fetching.
type ScrapeConfig struct {
	BatchWidth       int      `yaml:"batch_width" mapstructure:"batch_width"`
	FetchTimeoutSecs int      `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	RatePerSec       float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	LocalFirst       bool     `yaml:"local_first" mapstructure:"local_first"`
	ExcludePaths     []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
	UserAgent        string   `yaml:"user_agent" mapstructure:"user_agent"`
}

// ResearchConfig tunes outlier detection, estimation and model retries.
type ResearchConfig struct {
	ConflictRatio      float64              `yaml:"conflict_ratio" mapstructure:"conflict_ratio"`
	LargeRevenueUSD    float64              `yaml:"large_revenue_usd" mapstructure:"large_revenue_usd"`
	SmallHeadcount     int                  `yaml:"small_headcount" mapstructure:"small_headcount"`
	MaxAttempts        int                  `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs   int                  `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	LinkedInValidation bool                 `yaml:"linkedin_validation" mapstructure:"linkedin_validation"`
	SanityThresholds   []estimate.Threshold `yaml:"sanity_thresholds" mapstructure:"sanity_thresholds"`
}

// Thresholds returns the configured sanity thresholds largest revenue
// first, or the defaults.
func (r ResearchConfig) Thresholds() []estimate.Threshold {
	if len(r.SanityThresholds) == 0 {
		return estimate.DefaultThresholds()
	}
	return estimate.SortThresholds(r.SanityThresholds)
}

// AnalysisConfig bounds the content analysis prompt.
type AnalysisConfig struct {
	PageCharLimit int `yaml:"page_char_limit" mapstructure:"page_char_limit"`
	MaxPages      int `yaml:"max_pages" mapstructure:"max_pages"`
}

// LookupsConfig points at an optional YAML file merged over the built-in
// lookup tables.
type LookupsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	TimeoutSecs    int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MonitoringConfig configures run-health alerting. Alerts are only sent
// when WebhookURL is set.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	SlowRunMs            int64   `yaml:"slow_run_ms" mapstructure:"slow_run_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional .env file, config.yaml and the
// environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "enrich.db")
	v.SetDefault("store.cache_ttl_hours", 720)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl_hours", 24)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("firecrawl.timeout_ms", 30000)
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.research_model", "sonar-pro")
	v.SetDefault("perplexity.timeout_secs", 90)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.analysis_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.extract_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("scrape.batch_width", 3)
	v.SetDefault("scrape.fetch_timeout_secs", 30)
	v.SetDefault("scrape.rate_per_sec", 5.0)
	v.SetDefault("scrape.local_first", false)
	v.SetDefault("scrape.exclude_paths", []string{"/careers/*", "/jobs/*", "/login*", "/cart*", "/*.pdf"})
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (compatible; EnrichBot/1.0)")
	v.SetDefault("research.conflict_ratio", 5.0)
	v.SetDefault("research.large_revenue_usd", 100e6)
	v.SetDefault("research.small_headcount", 50)
	v.SetDefault("research.max_attempts", 3)
	v.SetDefault("research.initial_backoff_ms", 500)
	v.SetDefault("research.linkedin_validation", true)
	v.SetDefault("analysis.page_char_limit", 15000)
	v.SetDefault("analysis.max_pages", 8)
	v.SetDefault("lookups.path", "")
	v.SetDefault("batch.max_concurrent", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.timeout_secs", 300)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.cost_threshold_usd", 0.0)
	v.SetDefault("monitoring.slow_run_ms", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are "run"
// (single and batch enrichment), "serve" and "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run":
		errs = append(errs, c.enrichmentErrors()...)
	case "serve":
		errs = append(errs, c.enrichmentErrors()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	errs = append(errs, c.storeErrors()...)

	if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 50 {
		errs = append(errs, "batch.max_concurrent must be between 1 and 50")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) enrichmentErrors() []string {
	var errs []string
	if c.Perplexity.Key == "" {
		errs = append(errs, "perplexity.key is required")
	}
	if c.Anthropic.Key == "" {
		errs = append(errs, "anthropic.key is required")
	}
	if c.Jina.Key == "" && c.Firecrawl.Key == "" {
		errs = append(errs, "jina.key or firecrawl.key is required")
	}
	if c.Scrape.BatchWidth < 1 {
		errs = append(errs, "scrape.batch_width must be >= 1")
	}
	if c.Research.ConflictRatio != 0 && c.Research.ConflictRatio <= 1 {
		errs = append(errs, fmt.Sprintf("research.conflict_ratio must be > 1 (got %g)", c.Research.ConflictRatio))
	}
	for i, th := range c.Research.SanityThresholds {
		if !model.IsEmployeeBand(th.MinSizeBand) {
			errs = append(errs, fmt.Sprintf("research.sanity_thresholds[%d].min_size_band %q is not an employee band", i, th.MinSizeBand))
		}
	}
	return errs
}

func (c *Config) storeErrors() []string {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return []string{fmt.Sprintf("store.driver must be postgres or sqlite (got %q)", c.Store.Driver)}
	}
	if c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required"}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
