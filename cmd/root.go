// Package cmd provides the command-line interface for the faultline service.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"faultline/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "faultline",
	Short: "A unified fault-processing pipeline",
	Long: `Faultline normalizes raw faults from any surface into a single canonical
exception shape, classifies them by origin and severity, and routes them
through priority-ordered handling strategies.

The service supports:
- Heuristic fault classification (HTTP, validation, storage, network)
- Safe user-facing response building with field sanitization
- Best-effort fault reporting over NATS JetStream
- A long-running worker consuming faults from a queue group`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")

	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-level flag: %v\n", err)
	}
	if err := viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-format flag: %v\n", err)
	}
}

func initConfig() {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FAULTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Config file not found; use defaults and environment
	}

	cfg = config.New(v)
}

func setDefaults(v *viper.Viper) {
	// Manager defaults
	v.SetDefault("manager.publish_timeout", "2s")
	v.SetDefault("manager.service_name", "faultline")
	v.SetDefault("manager.metrics_enabled", true)

	// Bus defaults
	v.SetDefault("bus.url", "nats://localhost:4222")
	v.SetDefault("bus.stream_name", "FAULTS")
	v.SetDefault("bus.subject", "faults.reported")
	v.SetDefault("bus.max_reconnects", 5)
	v.SetDefault("bus.reconnect_wait", "2s")
	v.SetDefault("bus.max_age", "24h")

	// Worker defaults
	v.SetDefault("worker.subject", "faults.inbound")
	v.SetDefault("worker.queue_group", "fault-workers")
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.job_timeout", "30s")

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}
