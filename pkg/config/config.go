package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Deployment environments understood by ClientConfig.BaseURL.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ClientConfig captures settings for the conversion and chat clients.
type ClientConfig struct {
	Env             string        `mapstructure:"env"`
	APIBaseURL      string        `mapstructure:"api_base_url"`
	DevAPIBaseURL   string        `mapstructure:"dev_api_base_url"`
	ProdAPIBaseURL  string        `mapstructure:"prod_api_base_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxPollAttempts int           `mapstructure:"max_poll_attempts"`
	ChatWebhookURL  string        `mapstructure:"chat_webhook_url"`
	ChatTimeout     time.Duration `mapstructure:"chat_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	Tracing         bool          `mapstructure:"tracing"`
	SFTPPassword    string        `mapstructure:"sftp_password"`
	SFTPKeyPath     string        `mapstructure:"sftp_key_path"`
}

// BaseURL picks the API address for the configured environment. An explicit
// api_base_url always wins.
func (c ClientConfig) BaseURL() string {
	if c.APIBaseURL != "" {
		return c.APIBaseURL
	}
	if strings.EqualFold(c.Env, EnvDevelopment) {
		return c.DevAPIBaseURL
	}
	return c.ProdAPIBaseURL
}

// GatewayConfig captures runtime settings for the gateway service.
type GatewayConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr"`
	UpstreamURL    string        `mapstructure:"upstream_url"`
	ChatWebhookURL string        `mapstructure:"chat_webhook_url"`
	ChatTimeout    time.Duration `mapstructure:"chat_timeout"`
	SessionStore   string        `mapstructure:"session_store"`
	RedisURL       string        `mapstructure:"redis_url"`
	PostgresDSN    string        `mapstructure:"postgres_dsn"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	AdminKey       string        `mapstructure:"admin_key"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	Tracing        bool          `mapstructure:"tracing"`
}

// LoadClient loads client configuration from defaults, files, and env vars.
func LoadClient() (ClientConfig, error) {
	v := newViper("SITE")

	v.SetDefault("env", EnvProduction)
	v.SetDefault("api_base_url", "")
	v.SetDefault("dev_api_base_url", "http://localhost:8080")
	v.SetDefault("prod_api_base_url", "https://convert.vyvo.ai")
	v.SetDefault("request_timeout", 60*time.Second)
	v.SetDefault("poll_interval", 2*time.Second)
	v.SetDefault("max_poll_attempts", 150)
	v.SetDefault("chat_webhook_url", "https://automation.vyvo.ai/webhook/site-chat")
	v.SetDefault("chat_timeout", 30*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("tracing", false)
	v.SetDefault("sftp_password", "")
	v.SetDefault("sftp_key_path", "")

	if err := readConfig(v); err != nil {
		return ClientConfig{}, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.BaseURL() == "" {
		return ClientConfig{}, fmt.Errorf("no API base URL configured for env %q", cfg.Env)
	}

	return cfg, nil
}

// LoadGateway loads gateway configuration from defaults, files, and env vars.
func LoadGateway() (GatewayConfig, error) {
	v := newViper("GATEWAY")

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("upstream_url", "http://localhost:8000")
	v.SetDefault("chat_webhook_url", "https://automation.vyvo.ai/webhook/site-chat")
	v.SetDefault("chat_timeout", 30*time.Second)
	v.SetDefault("session_store", "memory")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("admin_key", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("tracing", false)

	if err := readConfig(v); err != nil {
		return GatewayConfig{}, err
	}

	var cfg GatewayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return GatewayConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	switch cfg.SessionStore {
	case "memory", "redis":
	case "postgres":
		if cfg.PostgresDSN == "" {
			return GatewayConfig{}, fmt.Errorf("session_store postgres requires postgres_dsn")
		}
	default:
		return GatewayConfig{}, fmt.Errorf("unknown session_store %q", cfg.SessionStore)
	}

	return cfg, nil
}

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	return v
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("load config: %w", err)
		}
	}
	return nil
}
