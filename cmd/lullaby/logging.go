package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebovdev/lullaby-cli/internal/cache"
	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	debugLogName       = "debug.log"
	debugLogMaxSizeMB  = 5
	debugLogMaxBackups = 3
	debugLogMaxAgeDays = 7
)

// setupLogging configures the global logger and returns the debug log path,
// or "" when debug logging is off. Without debug only errors are kept and
// they go to the null device so the TUI is never overdrawn.
func setupLogging(debug bool) (string, error) {
	if !debug {
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0644)
		if err == nil {
			log.Logger = log.Output(devNull)
		}
		return "", nil
	}

	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	cacheDir, err := cache.GetCacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not get cache dir: %v\n", err)
		cacheDir = os.TempDir()
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(cacheDir, debugLogName)
	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    debugLogMaxSizeMB,
		MaxBackups: debugLogMaxBackups,
		MaxAge:     debugLogMaxAgeDays,
		Compress:   true,
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"})
	log.Info().Msgf("Starting %s v%s (debug mode)", config.AppName, config.AppVersion)

	return logPath, nil
}
