package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every automatically bound environment variable
// (PLOTRUNNER_RENDER_PNG_WIDTH -> render.png_width).
const EnvPrefix = "PLOTRUNNER"

// DefaultPlotlyCDN is referenced by HTML output when no local bundle is set.
const DefaultPlotlyCDN = "https://cdn.plot.ly/plotly-2.35.2.min.js"

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Render   RenderConfig   `mapstructure:"render"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Plotter  PlotterConfig  `mapstructure:"plotter"`
}

type AppConfig struct {
	LogDir string `mapstructure:"log_dir"`
}

// RenderConfig tunes the offline renderer. None of it changes how the
// figure, filename or auto_open fields of a request are interpreted.
type RenderConfig struct {
	PlotlyJSPath string `mapstructure:"plotly_js_path"` // inlined into HTML when set
	PlotlyCDNURL string `mapstructure:"plotly_cdn_url"`
	PNGWidth     int    `mapstructure:"png_width"`
	PNGHeight    int    `mapstructure:"png_height"`
	FontPath     string `mapstructure:"font_path"`
	OpenCommand  string `mapstructure:"open_command"` // viewer for auto_open, system default if empty
}

type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	APIEndpoint    string        `mapstructure:"api_endpoint"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Enabled reports whether rendered charts should be delivered to Telegram.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type PlotterConfig struct {
	PlotsDir   string        `mapstructure:"plots_dir"`
	RunnerPath string        `mapstructure:"runner_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LoadConfig resolves configuration in increasing priority:
// 1. defaults
// 2. config.yaml in the working directory, or configFile when given
// 3. .env file
// 4. environment
// 5. flags set on fs (may be nil)
func LoadConfig(configFile string, fs *pflag.FlagSet) (*Config, error) {
	// .env values only fill variables that are not already exported
	godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config.yaml: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setupEnvAliases(v)

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// setupEnvAliases binds nested keys to PLOTRUNNER_* names, plus the bare
// Telegram names shared with other bots on the same host.
func setupEnvAliases(v *viper.Viper) {
	v.BindEnv("app.log_dir", EnvPrefix+"_LOG_DIR")

	v.BindEnv("render.plotly_js_path", EnvPrefix+"_PLOTLY_JS_PATH")
	v.BindEnv("render.plotly_cdn_url", EnvPrefix+"_PLOTLY_CDN_URL")
	v.BindEnv("render.png_width", EnvPrefix+"_PNG_WIDTH")
	v.BindEnv("render.png_height", EnvPrefix+"_PNG_HEIGHT")
	v.BindEnv("render.font_path", EnvPrefix+"_FONT_PATH")
	v.BindEnv("render.open_command", EnvPrefix+"_OPEN_COMMAND")

	v.BindEnv("telegram.bot_token", EnvPrefix+"_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", EnvPrefix+"_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	v.BindEnv("telegram.api_endpoint", EnvPrefix+"_TELEGRAM_API_ENDPOINT")
	v.BindEnv("telegram.rate_per_second", EnvPrefix+"_TELEGRAM_RATE_PER_SECOND")
	v.BindEnv("telegram.request_timeout", EnvPrefix+"_TELEGRAM_REQUEST_TIMEOUT")

	v.BindEnv("plotter.plots_dir", EnvPrefix+"_PLOTS_DIR")
	v.BindEnv("plotter.runner_path", EnvPrefix+"_RUNNER_PATH")
	v.BindEnv("plotter.timeout", EnvPrefix+"_PLOTTER_TIMEOUT")
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.log_dir", "logs")

	// Render
	v.SetDefault("render.plotly_js_path", "")
	v.SetDefault("render.plotly_cdn_url", DefaultPlotlyCDN)
	v.SetDefault("render.png_width", 1200)
	v.SetDefault("render.png_height", 800)
	v.SetDefault("render.font_path", "")
	v.SetDefault("render.open_command", "")

	// Telegram
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_endpoint", "")
	v.SetDefault("telegram.rate_per_second", 1.0)
	v.SetDefault("telegram.request_timeout", 30*time.Second)

	// Plotter
	v.SetDefault("plotter.plots_dir", "plots")
	v.SetDefault("plotter.runner_path", "plotrunner")
	v.SetDefault("plotter.timeout", 60*time.Second)
}

// RegisterFlags declares the overridable keys on fs. Flag names match the
// config keys so BindPFlags maps them directly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("app.log_dir", "logs", "Log directory (env: PLOTRUNNER_LOG_DIR)")
	fs.String("render.plotly_js_path", "", "Local plotly.js bundle inlined into HTML output (env: PLOTRUNNER_PLOTLY_JS_PATH)")
	fs.String("render.open_command", "", "Viewer used for auto_open (env: PLOTRUNNER_OPEN_COMMAND)")
	fs.Int("render.png_width", 1200, "PNG output width in pixels (env: PLOTRUNNER_PNG_WIDTH)")
	fs.Int("render.png_height", 800, "PNG output height in pixels (env: PLOTRUNNER_PNG_HEIGHT)")
}

func validateConfig(cfg *Config) error {
	if cfg.Render.PNGWidth <= 0 || cfg.Render.PNGHeight <= 0 {
		return fmt.Errorf("render.png_width and render.png_height must be positive, got %dx%d",
			cfg.Render.PNGWidth, cfg.Render.PNGHeight)
	}
	if cfg.Telegram.RatePerSecond <= 0 {
		return fmt.Errorf("telegram.rate_per_second must be positive, got %v", cfg.Telegram.RatePerSecond)
	}
	if (cfg.Telegram.BotToken == "") != (cfg.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
