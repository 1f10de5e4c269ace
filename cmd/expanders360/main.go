package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ahmedoothman/expanders360-api/internal/config"
	logpkg "github.com/ahmedoothman/expanders360-api/internal/logger"
)

const app = "expanders360"

var rootCmd = &cobra.Command{
	Use:   app,
	Short: "expanders360 matches expansion projects to service vendors",
	Long: `expanders360 scores vendors against expansion projects, keeps the
project/vendor matches up to date on a nightly schedule and reports the
best vendors per country.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "environment name selecting config/<env>.yaml (default: $ENV or local)")
	rootCmd.PersistentFlags().String("config", "", "explicit config file path (overrides --env)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (overrides logging.level)")

	_ = viper.BindPFlag("env", rootCmd.PersistentFlags().Lookup("env"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.SetEnvPrefix("EXPANDERS360")
	_ = viper.BindEnv("config", "EXPANDERS360_CONFIG")
	_ = viper.BindEnv("log-level", "EXPANDERS360_LOG_LEVEL")

	rootCmd.AddCommand(serveCmd, rebuildCmd, refreshCmd, analyticsCmd, seedCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the environment, reads its YAML file and builds the logger.
func loadConfig() (config.Config, string, *zap.Logger, error) {
	env := viper.GetString("env")
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if path := viper.GetString("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", nil, fmt.Errorf("load config: %w", err)
	}

	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, "", nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, env, logger, nil
}
