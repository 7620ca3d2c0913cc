package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	Manager ManagerConfig `mapstructure:"manager"`
	Bus     BusConfig     `mapstructure:"bus"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Log     LogConfig     `mapstructure:"log"`
}

// ManagerConfig holds fault manager configuration.
type ManagerConfig struct {
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	ServiceName    string        `mapstructure:"service_name"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
}

// BusConfig holds fault bus (NATS JetStream) configuration.
type BusConfig struct {
	URL           string        `mapstructure:"url"`
	StreamName    string        `mapstructure:"stream_name"`
	Subject       string        `mapstructure:"subject"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	MaxAge        time.Duration `mapstructure:"max_age"`
	TestMode      bool          `mapstructure:"test_mode"`
}

// WorkerConfig holds fault consumer worker configuration.
type WorkerConfig struct {
	Subject     string        `mapstructure:"subject"`
	QueueGroup  string        `mapstructure:"queue_group"`
	Concurrency int           `mapstructure:"concurrency"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New creates a new Config instance from Viper.
func New(v *viper.Viper) *Config {
	var config Config

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}

	if err := config.Validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}

	return &config
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Bus.URL == "" {
		return errors.New("bus.url is required")
	}

	if c.Bus.StreamName == "" {
		return errors.New("bus.stream_name is required")
	}

	if c.Bus.Subject == "" {
		return errors.New("bus.subject is required")
	}

	if c.Worker.Concurrency < 1 {
		return errors.New("worker.concurrency must be at least 1")
	}

	if c.Worker.QueueGroup == "" {
		return errors.New("worker.queue_group is required")
	}

	if c.Manager.PublishTimeout < 0 {
		return errors.New("manager.publish_timeout cannot be negative")
	}

	return nil
}
