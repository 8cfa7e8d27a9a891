package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/glebovdev/lullaby-cli/internal/ui"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type commandContext struct {
	debug       bool
	metricsAddr string
	logPath     string

	config *config.Config
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	root := &cobra.Command{
		Use:           "lullaby",
		Short:         config.AppDescription,
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.prepare()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.runTUI()
		},
	}

	root.PersistentFlags().BoolVar(&cc.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&cc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")

	root.AddCommand(newTracksCommand(cc))
	root.AddCommand(newProfileCommand(cc))
	root.AddCommand(newPlayCommand(cc))
	root.AddCommand(newVersionCommand())

	return root
}

// prepare loads .env, sets up logging and reads the config file.
func (cc *commandContext) prepare() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	logPath, err := setupLogging(cc.debug)
	if err != nil {
		return err
	}
	cc.logPath = logPath

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Using default config")
	}
	cfg.ApplyEnv()
	cc.config = cfg

	if cc.debug {
		if configPath, err := config.GetConfigPath(); err == nil {
			log.Debug().Msgf("Config: %s", configPath)
		}
	}
	return nil
}

func (cc *commandContext) runTUI() error {
	if cc.logPath != "" {
		fmt.Printf("Debug log: %s\n", cc.logPath)
	}

	var current atomic.Pointer[ui.UI]
	notifier := player.NotifierFunc(func(kind player.ErrorKind, message string) {
		if app := current.Load(); app != nil {
			app.Notify(kind, message)
		}
	})

	eng, err := newEngine(cc.config, cc.metricsAddr, notifier)
	if err != nil {
		return err
	}
	defer eng.Close()

	app := ui.NewUI(eng.controller, eng.tracks, cc.config)
	current.Store(app)

	watcher := config.NewWatcher(func(updated *config.Config) {
		ui.ApplyEngineSettings(eng.controller, updated)
		app.ReloadConfig(updated)
	})
	if err := watcher.Start(eng.ctx); err != nil {
		log.Warn().Err(err).Msg("Config changes will not be picked up")
	}
	defer watcher.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		if _, ok := <-sigChan; ok {
			log.Info().Msg("Received shutdown signal, cleaning up...")
			app.Shutdown()
		}
	}()

	log.Info().Msg("Starting UI...")

	uiDone := make(chan error, 1)
	go func() {
		uiDone <- app.Run()
	}()

	if err := <-uiDone; err != nil {
		log.Error().Err(err).Msg("Error running UI")
		return err
	}

	log.Info().Msgf("%s stopped", config.AppName)
	return nil
}
