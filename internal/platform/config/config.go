package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName     string
	HTTPPort        string
	PostgresDSN     string
	EventBusBrokers []string
	AllowedOrigin   string
	// AllowFrameRegister accepts client register frames on websocket
	// sessions that arrived without a verified X-User-Id header.
	AllowFrameRegister bool

	HireLockTimeout    time.Duration
	HireMaxAttempts    int
	HireRetryBackoff   time.Duration
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

const (
	KeyConfigFile         = "config_file"
	KeyServiceName        = "service_name"
	KeyHTTPPort           = "http_port"
	KeyPostgresDSN        = "postgres_dsn"
	KeyEventBusBrokers    = "event_bus_brokers"
	KeyAllowedOrigin      = "allowed_origin"
	KeyAllowFrameRegister = "realtime_allow_frame_register"
	KeyHireLockTimeout    = "hire_lock_timeout"
	KeyHireMaxAttempts    = "hire_max_attempts"
	KeyHireRetryBackoff   = "hire_retry_backoff"
	KeyOutboxPollInterval = "outbox_poll_interval"
	KeyOutboxBatchSize    = "outbox_batch_size"
)

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyServiceName, "gigflow")
	v.SetDefault(KeyHTTPPort, "8080")
	v.SetDefault(KeyPostgresDSN, "")
	v.SetDefault(KeyEventBusBrokers, "localhost:9092")
	v.SetDefault(KeyAllowedOrigin, "")
	v.SetDefault(KeyAllowFrameRegister, false)
	v.SetDefault(KeyHireLockTimeout, 2*time.Second)
	v.SetDefault(KeyHireMaxAttempts, 3)
	v.SetDefault(KeyHireRetryBackoff, 25*time.Millisecond)
	v.SetDefault(KeyOutboxPollInterval, 2*time.Second)
	v.SetDefault(KeyOutboxBatchSize, 100)
}

// Load resolves configuration from defaults, an optional config file and the
// environment (SERVICE_NAME, HTTP_PORT, POSTGRES_DSN, ...). Flags bound into v
// by the caller take precedence over both.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString(KeyConfigFile)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		ServiceName:        strings.TrimSpace(v.GetString(KeyServiceName)),
		HTTPPort:           strings.TrimSpace(v.GetString(KeyHTTPPort)),
		PostgresDSN:        strings.TrimSpace(v.GetString(KeyPostgresDSN)),
		EventBusBrokers:    splitList(v.GetString(KeyEventBusBrokers)),
		AllowedOrigin:      strings.TrimSpace(v.GetString(KeyAllowedOrigin)),
		AllowFrameRegister: v.GetBool(KeyAllowFrameRegister),
		HireLockTimeout:    v.GetDuration(KeyHireLockTimeout),
		HireMaxAttempts:    v.GetInt(KeyHireMaxAttempts),
		HireRetryBackoff:   v.GetDuration(KeyHireRetryBackoff),
		OutboxPollInterval: v.GetDuration(KeyOutboxPollInterval),
		OutboxBatchSize:    v.GetInt(KeyOutboxBatchSize),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.ServiceName == "":
		return errors.New("service_name must not be empty")
	case c.HireLockTimeout <= 0:
		return errors.New("hire_lock_timeout must be positive")
	case c.HireMaxAttempts < 1:
		return errors.New("hire_max_attempts must be at least 1")
	case c.HireRetryBackoff < 0:
		return errors.New("hire_retry_backoff must not be negative")
	case c.OutboxPollInterval <= 0:
		return errors.New("outbox_poll_interval must be positive")
	case c.OutboxBatchSize <= 0:
		return errors.New("outbox_batch_size must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, value := range strings.Split(raw, ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}
