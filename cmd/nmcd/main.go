// Command nmcd runs the server: it loads the YAML configuration, assembles
// the process and serves until interrupted. SIGHUP re-reads the config file
// and applies the reloadable sections.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/UlusTech/nmc"
	"github.com/UlusTech/nmc/config"
	"github.com/UlusTech/nmc/log"
)

var (
	flagConfig   string
	flagAddr     string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:          "nmcd",
		Short:        "Minecraft-protocol status server",
		SilenceUsage: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Load the configuration and serve until interrupted",
		RunE:  runServe,
	}
	serve.Flags().StringVarP(&flagConfig, "config", "c", "", "path to the YAML config file")
	serve.Flags().StringVar(&flagAddr, "addr", "", "listen address, overrides the config file")
	serve.Flags().StringVar(&flagLogLevel, "log-level", "", "minimum log level, overrides the config file")

	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flagAddr != "" {
		cfg.Listener.Addr = flagAddr
	}
	if flagLogLevel != "" {
		cfg.Log.LevelName = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	srv, err := nmc.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("assemble server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer srv.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			next, err := loadConfig()
			if err != nil {
				log.Error().Err(err).Msg("Reload failed, keeping current config")
				continue
			}
			if err := srv.Reload(next); err != nil {
				log.Error().Err(err).Msg("Reload rejected")
			}
			continue
		}
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		return nil
	}
	return nil
}
