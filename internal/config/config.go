package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	BrowserConfig *BrowserConfig
	CrawlerConfig *CrawlerConfig
	APIConfig     *APIConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type BrowserConfig struct {
	Headless    bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	SlowMo      int    `envconfig:"BROWSER_SLOW_MO" default:"100"`
	Timeout     int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	UserDataDir string `envconfig:"BROWSER_USER_DATA_DIR" default:""`
}

type CrawlerConfig struct {
	TargetURL     string   `envconfig:"TARGET_APP_URL" required:"true"`
	Username      string   `envconfig:"LOGIN_USERNAME" default:""`
	Password      string   `envconfig:"LOGIN_PASSWORD" default:""`
	SkipLogin     bool     `envconfig:"SKIP_LOGIN" default:"false"`
	MaxDepth      int      `envconfig:"CRAWL_MAX_DEPTH" default:"10"`
	SkipPatterns  []string `envconfig:"CRAWL_SKIP_PATTERNS" default:"logout,sign out,log out,sign-out,delete,remove,unsubscribe"`
	ProbeBadCreds bool     `envconfig:"CRAWL_PROBE_BAD_CREDENTIALS" default:"false"`
	ProbeValue    string   `envconfig:"CRAWL_PROBE_VALUE" default:"Test Input"`
	ModalLimit    int      `envconfig:"CRAWL_MODAL_INTERACTIONS" default:"5"`
	MonitorPollMs int      `envconfig:"MONITOR_POLL_MS" default:"1000"`
}

type APIConfig struct {
	BaseURL     string `envconfig:"API_BASE_URL" default:"http://localhost:8000"`
	Timeout     int    `envconfig:"API_TIMEOUT" default:"5000"`
	FallbackDir string `envconfig:"API_FALLBACK_DIR" default:"."`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}
