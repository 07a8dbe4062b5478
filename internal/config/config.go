package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        int    `mapstructure:"port" validate:"min=1,max=65535"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	DatabaseURL string `mapstructure:"database_url" validate:"required"`
	CronSecret  string `mapstructure:"cron_secret"`
	AppURL      string `mapstructure:"app_url" validate:"required,url"`

	CORS      CORSConfig      `mapstructure:"cors"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Retention RetentionConfig `mapstructure:"retention"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Email     EmailConfig     `mapstructure:"email"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Lock      LockConfig      `mapstructure:"lock"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ProbeConfig struct {
	RetryCount        int           `mapstructure:"retry_count" validate:"min=0,max=10"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" validate:"min=0"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout" validate:"gt=0"`
	DegradedThreshold time.Duration `mapstructure:"degraded_threshold" validate:"gt=0"`
}

type SchedulerConfig struct {
	BatchSize  int           `mapstructure:"batch_size" validate:"min=1"`
	Enabled    bool          `mapstructure:"enabled"`
	CheckEvery time.Duration `mapstructure:"check_every" validate:"gt=0"`
	SweepEvery time.Duration `mapstructure:"sweep_every" validate:"gt=0"`
}

type RetentionConfig struct {
	Days int `mapstructure:"days" validate:"min=1"`
}

type NotifyConfig struct {
	HTTPTimeout     time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	ChannelCacheTTL time.Duration `mapstructure:"channel_cache_ttl" validate:"min=0"`
}

type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	FromDomain   string `mapstructure:"from_domain" validate:"required,hostname"`
	BatchSize    int    `mapstructure:"batch_size" validate:"min=1,max=100"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

type LockConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// Options controls where Load looks for configuration.
type Options struct {
	// File is an explicit config file. When empty, statuswatch.yaml is searched in the
	// working directory and /etc/statuswatch.
	File string
	// EnvFile is loaded into the process environment when present.
	EnvFile string
}

// Load reads defaults, then the optional config file, then the environment.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("statuswatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/statuswatch/")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("log_level", "info")
	v.SetDefault("database_url", "")
	v.SetDefault("cron_secret", "")
	v.SetDefault("app_url", "http://localhost:3000")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("probe.retry_count", 2)
	v.SetDefault("probe.retry_delay", 5*time.Second)
	v.SetDefault("probe.default_timeout", 10*time.Second)
	v.SetDefault("probe.degraded_threshold", 3*time.Second)

	v.SetDefault("scheduler.batch_size", 10)
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.check_every", time.Minute)
	v.SetDefault("scheduler.sweep_every", 24*time.Hour)

	v.SetDefault("retention.days", 90)

	v.SetDefault("notify.http_timeout", 10*time.Second)
	v.SetDefault("notify.channel_cache_ttl", time.Duration(0))

	v.SetDefault("email.resend_api_key", "")
	v.SetDefault("email.from_domain", "updates.statuswatch.dev")
	v.SetDefault("email.batch_size", 50)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("lock.ttl", 10*time.Minute)
}

// splitList flattens comma separated entries, which is how list values arrive from env.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
