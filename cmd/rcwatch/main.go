package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/crimson-sun/rcwatch/internal/config"
	"github.com/crimson-sun/rcwatch/internal/logging"

	// Register connector implementations.
	_ "github.com/crimson-sun/rcwatch/internal/connector/irc"
	_ "github.com/crimson-sun/rcwatch/internal/connector/replay"
)

var rootCmd = &cobra.Command{
	Use:           "rcwatch",
	Short:         "Classify MediaWiki recent changes from the IRC feed",
	Long:          "rcwatch joins the Wikimedia recent changes feed, turns each notification into a typed event, and sends it to the configured outputs.",
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rcwatch:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default ./rcwatch.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("store-driver", "file", "project store: file or sqlite")
	pf.String("store-path", "projects", "project store directory or database file")
	bindFlag("log.level", pf.Lookup("log-level"))
	bindFlag("store.driver", pf.Lookup("store-driver"))
	bindFlag("store.path", pf.Lookup("store-path"))

	rootCmd.AddCommand(runCmd, fetchCmd, showCmd, listCmd, reloadCmd, classifyCmd, replayCmd)
}

func initConfig() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rcwatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/rcwatch")
		}
	}
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// loadConfig loads and validates configuration, then initializes logging.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration:\n%w", err)
	}
	stdout := false
	for _, f := range cfg.Output.Formats() {
		stdout = stdout || f == "stdout"
	}
	logging.Init(stdout, logging.ParseLevel(cfg.Log.Level))
	return cfg, nil
}

// bindFlag lets a flag override the config key, when the flag is set.
func bindFlag(key string, f *pflag.Flag) {
	_ = viper.BindPFlag(key, f)
}
