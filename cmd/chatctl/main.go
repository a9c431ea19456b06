package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/core/config"
	"basegraph.app/chat/core/db"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "chatctl",
		Usage:   "Operator tasks for the chat server",
		Version: version,
		Commands: []*cli.Command{
			migrateCommand(),
			createUserCommand(),
			resetPasswordCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// connect loads the CLI configuration and opens the database.
func connect(ctx context.Context) (*db.DB, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger.Setup(cfg)

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return database, nil
}
