package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig      *AppConfig
	BrowserConfig  *BrowserConfig
	PortalConfig   *PortalConfig
	PipelineConfig *PipelineConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type BrowserConfig struct {
	Headless    bool   `envconfig:"BROWSER_HEADLESS" default:"true"`
	SlowMo      int    `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout     int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	UserDataDir string `envconfig:"BROWSER_USER_DATA_DIR" default:""`
}

type PortalConfig struct {
	BaseURL    string `envconfig:"SOMPO_BASE_URL" default:"https://ejento.somposigorta.com.tr"`
	LoginPath  string `envconfig:"SOMPO_LOGIN_PATH" default:"/dashboard/login"`
	Username   string `envconfig:"SOMPO_USER" required:"true"`
	Password   string `envconfig:"SOMPO_PASS" required:"true"`
	TOTPSecret string `envconfig:"SOMPO_SECRET" default:""`
}

type PipelineConfig struct {
	Deadline      time.Duration `envconfig:"PIPELINE_DEADLINE" default:"180s"`
	SettleDelay   time.Duration `envconfig:"PIPELINE_SETTLE_DELAY" default:"800ms"`
	StepRetries   int           `envconfig:"PIPELINE_STEP_RETRIES" default:"3"`
	ExtractWindow time.Duration `envconfig:"PIPELINE_EXTRACT_WINDOW" default:"30s"`
	PriceMin      float64       `envconfig:"PRICE_MIN" default:"100"`
	PriceMax      float64       `envconfig:"PRICE_MAX" default:"100000"`
	TaxRate       float64       `envconfig:"TAX_RATE" default:"0.18"`
	ScreenshotDir string        `envconfig:"SCREENSHOT_DIR" default:"./screenshots"`
}

func (p *PortalConfig) LoginURL() string {
	return p.BaseURL + p.LoginPath
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}
