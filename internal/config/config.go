package config

import (
	"errors"
	"fmt"
	"github.com/spf13/viper"
	"strings"
	"time"
)

const EnvPrefix = "OMNICONTROL"

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Perception PerceptionConfig `mapstructure:"perception"`
	Decision   DecisionConfig   `mapstructure:"decision"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Window     WindowConfig     `mapstructure:"window"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Pretty     bool   `mapstructure:"pretty"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type PerceptionConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	BoxThreshold    float64       `mapstructure:"box_threshold"`
	IOUThreshold    float64       `mapstructure:"iou_threshold"`
	Timeout         time.Duration `mapstructure:"timeout"`
	WaitForComplete bool          `mapstructure:"wait_for_complete"`
	Attempts        int           `mapstructure:"attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
}

type DecisionConfig struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Temperature       float64       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type AgentConfig struct {
	MaxCycles         int           `mapstructure:"max_cycles"`
	Pacing            time.Duration `mapstructure:"pacing"`
	KeepConversation  bool          `mapstructure:"keep_conversation"`
	HideDuringCapture bool          `mapstructure:"hide_during_capture"`
}

type ExecutorConfig struct {
	Settle       time.Duration `mapstructure:"settle"`
	FocusSettle  time.Duration `mapstructure:"focus_settle"`
	ScrollAmount int           `mapstructure:"scroll_amount"`
}

type WindowConfig struct {
	HideCommand string        `mapstructure:"hide_command"`
	ShowCommand string        `mapstructure:"show_command"`
	Settle      time.Duration `mapstructure:"settle"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("perception.base_url", "http://localhost:7860/gradio_api")
	v.SetDefault("perception.box_threshold", 0.05)
	v.SetDefault("perception.iou_threshold", 0.1)
	v.SetDefault("perception.timeout", "2m")
	v.SetDefault("perception.wait_for_complete", false)
	v.SetDefault("perception.attempts", 3)
	v.SetDefault("perception.retry_delay", "1s")

	v.SetDefault("decision.provider", "gemini")
	v.SetDefault("decision.model", "gemini-2.0-flash")
	v.SetDefault("decision.api_key", "")
	v.SetDefault("decision.base_url", "")
	v.SetDefault("decision.temperature", 0.2)
	v.SetDefault("decision.timeout", "1m")
	v.SetDefault("decision.requests_per_minute", 0)

	v.SetDefault("agent.max_cycles", 50)
	v.SetDefault("agent.pacing", "500ms")
	v.SetDefault("agent.keep_conversation", false)
	v.SetDefault("agent.hide_during_capture", true)

	v.SetDefault("executor.settle", "2s")
	v.SetDefault("executor.focus_settle", "500ms")
	v.SetDefault("executor.scroll_amount", 10)

	v.SetDefault("window.hide_command", "")
	v.SetDefault("window.show_command", "")
	v.SetDefault("window.settle", "200ms")
}

// BindEnv maps OMNICONTROL_SECTION_KEY variables onto keys and accepts the usual provider
// variables for the API key.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v.BindEnv("decision.api_key", EnvPrefix+"_DECISION_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY")
}

// Load reads file when given, otherwise an optional ./config.yaml, on top of defaults and the
// environment.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	if err := BindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Perception.BaseURL == "" {
		errs = append(errs, errors.New("perception.base_url is required"))
	}
	if c.Perception.Attempts < 1 {
		errs = append(errs, errors.New("perception.attempts must be at least 1"))
	}
	switch c.Decision.Provider {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("decision.provider %q is not one of gemini, openai", c.Decision.Provider))
	}
	if c.Agent.MaxCycles < 0 {
		errs = append(errs, errors.New("agent.max_cycles must not be negative"))
	}
	if c.Executor.ScrollAmount < 1 {
		errs = append(errs, errors.New("executor.scroll_amount must be at least 1"))
	}
	return errors.Join(errs...)
}
