package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spotx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("using existing config", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Config written to %s\n", configPath)
		r.writePlain("  Set credentials.spotify.client_id and client_secret before signing in.\n")
	}

	if err := r.open(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	applied, err := shared.AppliedVersions(r.db)
	if err != nil {
		return err
	}

	path, err := r.config.DatabasePath()
	if err != nil {
		return err
	}
	r.logger.Info("setup complete", "database", path, "migrations", len(applied))

	r.writePlain("✓ Database ready at %s (%d migrations applied)\n", path, len(applied))
	r.writePlain("\nNext: spotx auth login\n")
	return nil
}
