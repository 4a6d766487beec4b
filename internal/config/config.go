// Package config loads gleaner settings from defaults, an optional config
// file and GLEANER_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/FranksOps/gleaner/internal/analyzer"
	"github.com/FranksOps/gleaner/internal/discovery"
	"github.com/FranksOps/gleaner/internal/fingerprint"
	"github.com/FranksOps/gleaner/internal/news"
	"github.com/FranksOps/gleaner/internal/oracle"
	"github.com/FranksOps/gleaner/internal/relevance"
	"github.com/FranksOps/gleaner/internal/scraper"
	"github.com/FranksOps/gleaner/internal/search"
)

// EnvPrefix namespaces environment overrides, e.g. GLEANER_SERVER_ADDR.
const EnvPrefix = "GLEANER"

// Config is the full application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Search    SearchConfig    `mapstructure:"search"`
	Relevance RelevanceConfig `mapstructure:"relevance"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	News      NewsConfig      `mapstructure:"news"`
	Phrase    PhraseConfig    `mapstructure:"phrase"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
	ChatLog   ChatLogConfig   `mapstructure:"chatlog"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LogConfig controls the process logger. An empty File logs to stderr.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be debug, info, warn or error", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Format)
	}
	return nil
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c ServerConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	return nil
}

// FetchConfig configures the page fetcher shared by discovery, search and
// headline collection.
type FetchConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRedirects      int           `mapstructure:"max_redirects"`
	UserAgents        []string      `mapstructure:"user_agents"`
	UserAgentStrategy string        `mapstructure:"user_agent_strategy"`
	Fingerprint       string        `mapstructure:"fingerprint"`
	Proxies           []string      `mapstructure:"proxies"`
	ProxyFile         string        `mapstructure:"proxy_file"`
	ProxyMaxFailures  int           `mapstructure:"proxy_max_failures"`
	ProxyCooldown     time.Duration `mapstructure:"proxy_cooldown"`
	RPS               float64       `mapstructure:"rps"`
	Jitter            float64       `mapstructure:"jitter"`
}

func (c FetchConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("fetch.timeout must be > 0")
	}
	if c.RPS < 0 {
		return errors.New("fetch.rps must be >= 0")
	}
	if _, err := fingerprint.ParseProfile(c.Fingerprint); err != nil {
		return fmt.Errorf("fetch.fingerprint: %w", err)
	}
	return nil
}

// Discovery providers.
const (
	ProviderBing    = "bing"
	ProviderSitemap = "sitemap"
)

// DiscoveryConfig selects where candidate links come from.
type DiscoveryConfig struct {
	Provider      string `mapstructure:"provider"`
	BingURL       string `mapstructure:"bing_url"`
	SitemapSource string `mapstructure:"sitemap_source"`
	MaxLinks      int    `mapstructure:"max_links"`
	Robots        bool   `mapstructure:"robots"`
	RobotsAgent   string `mapstructure:"robots_agent"`
}

func (c DiscoveryConfig) Validate() error {
	switch c.Provider {
	case ProviderBing:
	case ProviderSitemap:
		if c.SitemapSource == "" {
			return errors.New("discovery.sitemap_source is required for the sitemap provider")
		}
	default:
		return fmt.Errorf("discovery.provider %q must be bing or sitemap", c.Provider)
	}
	if c.MaxLinks < 1 || c.MaxLinks > discovery.MaxLimit {
		return fmt.Errorf("discovery.max_links must be between 1 and %d", discovery.MaxLimit)
	}
	return nil
}

// SearchConfig tunes the search orchestrator and content extraction.
type SearchConfig struct {
	Workers       int           `mapstructure:"workers"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`
	ExcerptRunes  int           `mapstructure:"excerpt_runes"`
	MaxParagraphs int           `mapstructure:"max_paragraphs"`
	ExtractMode   string        `mapstructure:"extract_mode"`
}

func (c SearchConfig) Validate() error {
	if c.Workers < 1 {
		return errors.New("search.workers must be >= 1")
	}
	if c.RunTimeout <= 0 {
		return errors.New("search.run_timeout must be > 0")
	}
	if c.MaxParagraphs < 1 {
		return errors.New("search.max_paragraphs must be >= 1")
	}
	if _, err := scraper.ParseExtractMode(c.ExtractMode); err != nil {
		return fmt.Errorf("search.extract_mode: %w", err)
	}
	return nil
}

// RelevanceConfig configures the two-stage relevance filter.
type RelevanceConfig struct {
	Policy    string  `mapstructure:"policy"`
	Threshold float64 `mapstructure:"threshold"`
}

func (c RelevanceConfig) Validate() error {
	if _, err := relevance.ParsePolicy(c.Policy); err != nil {
		return fmt.Errorf("relevance.policy: %w", err)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return errors.New("relevance.threshold must be within [0, 1]")
	}
	return nil
}

// OracleConfig configures the language-model backend.
type OracleConfig struct {
	Backend     string        `mapstructure:"backend"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float32       `mapstructure:"temperature"`
}

func (c OracleConfig) Validate() error {
	switch c.Backend {
	case "", oracle.BackendNone:
	case oracle.BackendOllama:
		if c.Model == "" {
			return errors.New("oracle.model is required for the ollama backend")
		}
	case oracle.BackendOpenAI:
		if c.APIKey == "" && c.BaseURL == "" {
			return errors.New("oracle.api_key is required for the openai backend")
		}
	default:
		return fmt.Errorf("oracle.backend %q must be none, ollama or openai", c.Backend)
	}
	return nil
}

// Enabled reports whether an oracle backend is configured.
func (c OracleConfig) Enabled() bool {
	return c.Backend != "" && c.Backend != oracle.BackendNone
}

// NewsConfig configures headline collection.
type NewsConfig struct {
	ListingURL  string        `mapstructure:"listing_url"`
	Selectors   []string      `mapstructure:"selectors"`
	Target      int           `mapstructure:"target"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	ErrorDelay  time.Duration `mapstructure:"error_delay"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

func (c NewsConfig) Validate() error {
	if c.ListingURL == "" {
		return errors.New("news.listing_url must not be empty")
	}
	if c.Target < 1 {
		return errors.New("news.target must be >= 1")
	}
	if c.MaxAttempts < 1 {
		return errors.New("news.max_attempts must be >= 1")
	}
	return nil
}

// Phrase reducers.
const (
	ReducerLocal  = "local"
	ReducerOracle = "oracle"
)

// PhraseConfig selects how headlines become prompt phrases.
type PhraseConfig struct {
	Reducer string `mapstructure:"reducer"`
	Rewrite bool   `mapstructure:"rewrite"`
}

// CorpusConfig locates the corpus file and its refresh schedule. An empty
// Schedule disables periodic refreshes.
type CorpusConfig struct {
	Path          string `mapstructure:"path"`
	Schedule      string `mapstructure:"schedule"`
	EnsureOnStart bool   `mapstructure:"ensure_on_start"`
}

func (c CorpusConfig) Validate() error {
	if c.Path == "" {
		return errors.New("corpus.path must not be empty")
	}
	return nil
}

// Chat-log backends.
const (
	ChatLogNone     = "none"
	ChatLogMemory   = "memory"
	ChatLogJSON     = "json"
	ChatLogCSV      = "csv"
	ChatLogSQLite   = "sqlite"
	ChatLogPostgres = "postgres"
	ChatLogRedis    = "redis"
)

// ChatLogConfig selects the chat-log sink. Path is used by file backends,
// DSN by sqlite and postgres, and the Redis fields by redis.
type ChatLogConfig struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	DSN           string `mapstructure:"dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisStream   string `mapstructure:"redis_stream"`
	RedisMaxLen   int64  `mapstructure:"redis_max_len"`
}

func (c ChatLogConfig) Validate() error {
	switch c.Backend {
	case ChatLogNone, ChatLogMemory:
	case ChatLogJSON, ChatLogCSV:
		if c.Path == "" {
			return fmt.Errorf("chatlog.path is required for the %s backend", c.Backend)
		}
	case ChatLogSQLite, ChatLogPostgres:
		if c.DSN == "" {
			return fmt.Errorf("chatlog.dsn is required for the %s backend", c.Backend)
		}
	case ChatLogRedis:
		if c.RedisAddr == "" {
			return errors.New("chatlog.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("chatlog.backend %q is not supported", c.Backend)
	}
	return nil
}

// MetricsConfig controls Prometheus exposition. Addr starts a standalone
// listener for commands that do not run the API server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	errs := []error{
		c.Log.Validate(),
		c.Server.Validate(),
		c.Fetch.Validate(),
		c.Discovery.Validate(),
		c.Search.Validate(),
		c.Relevance.Validate(),
		c.Oracle.Validate(),
		c.News.Validate(),
		c.Corpus.Validate(),
		c.ChatLog.Validate(),
	}
	switch c.Phrase.Reducer {
	case ReducerLocal:
	case ReducerOracle:
		if !c.Oracle.Enabled() {
			errs = append(errs, errors.New("phrase.reducer oracle requires an oracle backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("phrase.reducer %q must be local or oracle", c.Phrase.Reducer))
	}
	if c.Phrase.Rewrite && !c.Oracle.Enabled() {
		errs = append(errs, errors.New("phrase.rewrite requires an oracle backend"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 2*search.DefaultRunTimeout)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("fetch.timeout", scraper.DefaultTimeout)
	v.SetDefault("fetch.max_redirects", 10)
	v.SetDefault("fetch.user_agents", []string{})
	v.SetDefault("fetch.user_agent_strategy", "random")
	v.SetDefault("fetch.fingerprint", string(fingerprint.ProfileGo))
	v.SetDefault("fetch.proxies", []string{})
	v.SetDefault("fetch.proxy_file", "")
	v.SetDefault("fetch.proxy_max_failures", 3)
	v.SetDefault("fetch.proxy_cooldown", 5*time.Minute)
	v.SetDefault("fetch.rps", 0.0)
	v.SetDefault("fetch.jitter", 0.0)

	v.SetDefault("discovery.provider", ProviderBing)
	v.SetDefault("discovery.bing_url", "")
	v.SetDefault("discovery.sitemap_source", "")
	v.SetDefault("discovery.max_links", discovery.DefaultLimit)
	v.SetDefault("discovery.robots", false)
	v.SetDefault("discovery.robots_agent", "gleaner")

	v.SetDefault("search.workers", search.DefaultWorkers)
	v.SetDefault("search.run_timeout", search.DefaultRunTimeout)
	v.SetDefault("search.excerpt_runes", analyzer.DefaultExcerptRunes)
	v.SetDefault("search.max_paragraphs", scraper.DefaultMaxParagraphs)
	v.SetDefault("search.extract_mode", string(scraper.ModeParagraphs))

	v.SetDefault("relevance.policy", string(relevance.PolicyAdvisory))
	v.SetDefault("relevance.threshold", relevance.DefaultThreshold)

	v.SetDefault("oracle.backend", oracle.BackendNone)
	v.SetDefault("oracle.model", "")
	v.SetDefault("oracle.base_url", "")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.timeout", oracle.DefaultTimeout)
	v.SetDefault("oracle.temperature", 0.0)

	v.SetDefault("news.listing_url", news.DefaultListingURL)
	v.SetDefault("news.selectors", news.DefaultSelectors)
	v.SetDefault("news.target", news.DefaultTarget)
	v.SetDefault("news.max_attempts", news.DefaultMaxAttempts)
	v.SetDefault("news.error_delay", news.DefaultErrorDelay)
	v.SetDefault("news.retry_delay", news.DefaultRetryDelay)

	v.SetDefault("phrase.reducer", ReducerLocal)
	v.SetDefault("phrase.rewrite", false)

	v.SetDefault("corpus.path", "prompts.csv")
	v.SetDefault("corpus.schedule", "")
	v.SetDefault("corpus.ensure_on_start", true)

	v.SetDefault("chatlog.backend", ChatLogJSON)
	v.SetDefault("chatlog.path", "chat_log.jsonl")
	v.SetDefault("chatlog.dsn", "")
	v.SetDefault("chatlog.redis_addr", "")
	v.SetDefault("chatlog.redis_password", "")
	v.SetDefault("chatlog.redis_db", 0)
	v.SetDefault("chatlog.redis_stream", "")
	v.SetDefault("chatlog.redis_max_len", 0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", "")
}

// Load reads configuration. path may be empty, in which case gleaner.yaml
// (or .json/.toml) is looked up in the working directory and ./config; a
// missing file there is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gleaner")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
