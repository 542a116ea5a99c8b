package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	seedPath := flag.String("seed", "", "Import coupons from a YAML file and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("coupons %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger, err := SetupLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return ExitConfigError
	}
	defer logger.Sync()

	logger.Info("starting coupons",
		zap.String("version", Version),
		zap.String("config", *configPath),
		zap.String("database_driver", cfg.Database.Driver),
	)

	server, err := NewServer(cfg, logger)
	if err != nil {
		return exitCode(logger, "failed to create server", err)
	}

	ctx := context.Background()

	if *seedPath != "" {
		defer server.Close()
		if err := server.Seed(ctx, *seedPath); err != nil {
			return exitCode(logger, "seed import failed", err)
		}
		return ExitSuccess
	}

	if err := server.Start(ctx); err != nil {
		return exitCode(logger, "server error", err)
	}

	return ExitSuccess
}

// exitCode logs err and picks the process exit code it carries.
func exitCode(logger *zap.Logger, msg string, err error) int {
	var sErr *ServerError
	if errors.As(err, &sErr) {
		logger.Error(msg,
			zap.Error(sErr.Err),
			zap.String("operation", sErr.Op),
		)
		return sErr.ExitCode
	}
	logger.Error(msg, zap.Error(err))
	return ExitConfigError
}
