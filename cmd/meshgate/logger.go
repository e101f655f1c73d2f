package main

import (
	"fmt"
	"os"

	"github.com/meshgate/core/pkg/logger"
)

const (
	logFileEnvVar   = "MESHGATE_LOG_FILE"
	logLevelEnvVar  = "MESHGATE_LOG_LEVEL"
	logFormatEnvVar = "MESHGATE_LOG_FORMAT"
)

// initLoggerFromCLI initializes the logger, preferring CLI flags over
// environment variables over defaults.
func initLoggerFromCLI(cliLevel, cliFile, cliFormat string) (func(), error) {
	level := cliLevel
	if level == "" {
		level = os.Getenv(logLevelEnvVar)
	}
	if level == "" {
		level = "info"
	}

	file := cliFile
	if file == "" {
		file = os.Getenv(logFileEnvVar)
	}

	format := cliFormat
	if format == "" {
		format = os.Getenv(logFormatEnvVar)
	}
	if format == "" {
		format = "simple"
	}

	parsed, err := logger.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output *os.File
	var cleanup func()
	if file != "" {
		f, cleanupFn, err := logger.OpenLogFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = f
		cleanup = cleanupFn
	} else {
		output = os.Stderr
	}

	logger.Init(parsed, output, format)
	return cleanup, nil
}
