package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xraph/gate/extension"
	"github.com/xraph/gate/publish"
)

// Config is the root configuration of the gate binary.
type Config struct {
	Server  ServerConfig     `mapstructure:"server"`
	Redis   RedisConfig      `mapstructure:"redis"`
	Logger  LoggerConfig     `mapstructure:"logger"`
	Gate    extension.Config `mapstructure:"gate"`
	Publish publish.Config   `mapstructure:"publish"`
}

// ServerConfig configures the metrics listener. The API itself is served
// by the Forge app.
type ServerConfig struct {
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig configures decision event publishing. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig merges defaults, the config file and GATE_* environment
// variables. An empty path searches for gate.yaml in . and ./configs;
// a missing file is not an error then.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// GATE_SERVER_METRICS_ADDR overrides server.metrics_addr.
	v.SetEnvPrefix("gate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	ext := extension.DefaultConfig()
	pub := publish.DefaultConfig()

	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("gate.disable_routes", false)
	v.SetDefault("gate.disable_migrate", false)
	v.SetDefault("gate.disable_audit", false)
	v.SetDefault("gate.manifest_path", "")
	v.SetDefault("gate.grove_driver", "")
	v.SetDefault("gate.gate.log_decisions", ext.Gate.LogDecisions)
	v.SetDefault("gate.gate.log_denials", ext.Gate.LogDenials)
	v.SetDefault("gate.audit.buffer_size", ext.Audit.BufferSize)
	v.SetDefault("gate.audit.batch_size", ext.Audit.BatchSize)
	v.SetDefault("gate.audit.flush_interval", ext.Audit.FlushInterval)
	v.SetDefault("gate.audit.write_timeout", ext.Audit.WriteTimeout)
	v.SetDefault("gate.audit.attempts", ext.Audit.Attempts)
	v.SetDefault("gate.audit.retry_delay", ext.Audit.RetryDelay)
	v.SetDefault("gate.audit.breaker_failures", ext.Audit.BreakerFailures)
	v.SetDefault("gate.audit.breaker_timeout", ext.Audit.BreakerTimeout)
	v.SetDefault("gate.audit.denials_only", ext.Audit.DenialsOnly)

	v.SetDefault("publish.channel", pub.Channel)
	v.SetDefault("publish.rate", pub.Rate)
	v.SetDefault("publish.burst", pub.Burst)
	v.SetDefault("publish.timeout", pub.Timeout)
	v.SetDefault("publish.denials_only", pub.DenialsOnly)
}
