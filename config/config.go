package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Etsy      EtsyConfig      `yaml:"etsy"`
	AI        AIConfig        `yaml:"ai"`
	Usage     UsageConfig     `yaml:"usage"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	TagCache  TagCacheConfig  `yaml:"tag_cache"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// AllowedOriginPrefixes restricts CORS to extension and dev origins.
	AllowedOriginPrefixes []string `yaml:"allowed_origin_prefixes"`
}

type MongoConfig struct {
	URI    string `yaml:"uri"`
	DBName string `yaml:"db_name"`
}

type EtsyConfig struct {
	// BaseURL of the Etsy Open API v3 application surface.
	BaseURL string `yaml:"base_url"`
}

// AIConfig configures the Gemini-backed optimization calls.
type AIConfig struct {
	GeminiModel string `yaml:"gemini_model"`

	// RequestsPerMinute caps outbound provider calls across all users.
	// Zero or negative means no pacing.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// UsageConfig holds the entitlement limits per tier. The free tier has a
// one-time allotment for the calendar month the extension was installed in
// and a smaller steady-state monthly allotment afterwards. The paid cap is a
// silent abuse guard, surfaced to users only through WarningSteps.
type UsageConfig struct {
	FreeInitialAudits int `yaml:"free_initial_audits"`
	FreeMonthlyAudits int `yaml:"free_monthly_audits"`
	PaidMonthlyCap    int `yaml:"paid_monthly_cap"`

	// WarningSteps must be sorted by ascending fraction of the paid cap.
	WarningSteps []WarningStep `yaml:"warning_steps"`
}

// WarningStep is one row of the progressive paid-tier warning table.
type WarningStep struct {
	Fraction float64 `yaml:"fraction"`
	Message  string  `yaml:"message"`
	// RevealsLimit marks steps whose message may include the numeric cap.
	RevealsLimit bool `yaml:"reveals_limit"`
}

type RateLimitConfig struct {
	EtsyPerMinute int `yaml:"etsy_per_minute"`
	AIPerMinute   int `yaml:"ai_per_minute"`
	WindowSeconds int `yaml:"window_seconds"`
}

type TagCacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
	MaxEntries int `yaml:"max_entries"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	var c AppConfig
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		panic(err)
	}
	applyDefaults(&c)
	config = &c
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func applyDefaults(c *AppConfig) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Etsy.BaseURL == "" {
		c.Etsy.BaseURL = "https://openapi.etsy.com/v3/application"
	}
	if c.Usage.FreeInitialAudits == 0 {
		c.Usage.FreeInitialAudits = 3
	}
	if c.Usage.FreeMonthlyAudits == 0 {
		c.Usage.FreeMonthlyAudits = 5
	}
	if c.Usage.PaidMonthlyCap == 0 {
		c.Usage.PaidMonthlyCap = 200
	}
	if c.RateLimit.EtsyPerMinute == 0 {
		c.RateLimit.EtsyPerMinute = 120
	}
	if c.RateLimit.AIPerMinute == 0 {
		c.RateLimit.AIPerMinute = 20
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.TagCache.TTLMinutes == 0 {
		c.TagCache.TTLMinutes = 60
	}
	if c.TagCache.MaxEntries == 0 {
		c.TagCache.MaxEntries = 500
	}
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
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
