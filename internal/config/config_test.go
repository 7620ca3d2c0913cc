package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Manager: ManagerConfig{
			PublishTimeout: 2 * time.Second,
			ServiceName:    "faultline",
		},
		Bus: BusConfig{
			URL:        "nats://localhost:4222",
			StreamName: "FAULTS",
			Subject:    "faults.reported",
		},
		Worker: WorkerConfig{
			Subject:     "faults.inbound",
			QueueGroup:  "fault-workers",
			Concurrency: 4,
			JobTimeout:  30 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("should accept a complete configuration", func(t *testing.T) {
		cfg := validConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("should require the bus URL", func(t *testing.T) {
		cfg := validConfig()
		cfg.Bus.URL = ""
		assert.ErrorContains(t, cfg.Validate(), "bus.url")
	})

	t.Run("should require the stream name and subject", func(t *testing.T) {
		cfg := validConfig()
		cfg.Bus.StreamName = ""
		assert.ErrorContains(t, cfg.Validate(), "bus.stream_name")

		cfg = validConfig()
		cfg.Bus.Subject = ""
		assert.ErrorContains(t, cfg.Validate(), "bus.subject")
	})

	t.Run("should require at least one worker", func(t *testing.T) {
		cfg := validConfig()
		cfg.Worker.Concurrency = 0
		assert.ErrorContains(t, cfg.Validate(), "worker.concurrency")
	})

	t.Run("should require the worker queue group", func(t *testing.T) {
		cfg := validConfig()
		cfg.Worker.QueueGroup = ""
		assert.ErrorContains(t, cfg.Validate(), "worker.queue_group")
	})

	t.Run("should reject a negative publish timeout", func(t *testing.T) {
		cfg := validConfig()
		cfg.Manager.PublishTimeout = -time.Second
		assert.ErrorContains(t, cfg.Validate(), "manager.publish_timeout")
	})
}

func TestConfig_New(t *testing.T) {
	t.Run("should load a valid configuration from viper", func(t *testing.T) {
		v := viper.New()
		v.Set("manager.publish_timeout", "2s")
		v.Set("bus.url", "nats://localhost:4222")
		v.Set("bus.stream_name", "FAULTS")
		v.Set("bus.subject", "faults.reported")
		v.Set("worker.queue_group", "fault-workers")
		v.Set("worker.concurrency", 4)
		v.Set("log.level", "info")

		cfg := New(v)

		assert.Equal(t, "nats://localhost:4222", cfg.Bus.URL)
		assert.Equal(t, 2*time.Second, cfg.Manager.PublishTimeout)
		assert.Equal(t, 4, cfg.Worker.Concurrency)
	})

	t.Run("should panic on an invalid configuration", func(t *testing.T) {
		v := viper.New()
		v.Set("bus.url", "nats://localhost:4222")

		assert.Panics(t, func() { New(v) })
	})
}
