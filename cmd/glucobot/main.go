package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"glucose-bot/internal/platform/config"
	"glucose-bot/internal/platform/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "glucobot",
		Short:         "Telegram bot for Nightscout glucose readings and insulin on board",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides CONFIG_FILE)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newUpdatesCmd(&configPath))
	root.AddCommand(newIOBCmd(&configPath))
	return root
}

// loadConfig: defaults -> archivo -> env. --config gana sobre CONFIG_FILE.
func loadConfig(configPath string) (config.Config, error) {
	path := strings.TrimSpace(configPath)
	return config.LoadFrom(func(key string) (string, bool) {
		if key == "CONFIG_FILE" && path != "" {
			return path, true
		}
		return os.LookupEnv(key)
	})
}

// newLogger escribe a stderr: stdout queda para la salida de los comandos.
func newLogger(cfg config.Config) logger.Logger {
	return logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
		Output: os.Stderr,
	})
}
