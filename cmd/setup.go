package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/desertthunder/novadrive/internal/store"
	"github.com/urfave/cli/v3"
)

// SetupDatabase migrates the SQLite store to the latest schema, or with --rollback reverts
// the newest applied migration.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	if driver := config.Storage.Driver; driver != "" && driver != "sqlite" {
		return r.writePlain("Storage driver is %q, nothing to migrate\n", driver)
	}

	r.logger.Info("opening database", "path", config.Storage.Path)
	db, err := store.OpenDB(ctx, config.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		version, err := store.Rollback(ctx, db, r.logger)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Rolled back %s to schema version %d\n", config.Storage.Path, version)
	}

	applied, err := store.Migrate(ctx, db, r.logger)
	if err != nil {
		return err
	}
	version, err := store.SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return r.writePlain("Schema for %s is up to date (version %d)\n", config.Storage.Path, version)
	}
	return r.writePlain("✓ Applied %d migration(s) to %s, now at version %d\n", len(applied), config.Storage.Path, version)
}

// SetupClient stores the OAuth client id so later runs can sign in without config.
func (r *Runner) SetupClient(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: client id", shared.ErrMissingArgument)
	}

	sess, err := r.authSession()
	if err != nil {
		return err
	}
	if err := sess.SetClientID(ctx, id); err != nil {
		return err
	}

	r.logger.Info("client id stored")
	r.writePlain("✓ Client ID saved\n")
	if r.config.Drive.ClientID != "" {
		r.writePlain("Note: drive.client_id in config takes precedence over the stored value\n")
	}
	return nil
}

// ConfigInit writes the embedded example configuration.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return r.writePlain("✓ Configuration written to %s\n", path)
}

// ConfigShow prints the effective configuration with secrets redacted.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	if r.config == nil {
		return errors.New("config is nil")
	}

	redacted := *r.config
	if redacted.Bucket.AccessKey != "" {
		redacted.Bucket.AccessKey = "********"
	}
	if redacted.Bucket.SecretKey != "" {
		redacted.Bucket.SecretKey = "********"
	}

	if cmd.Bool("pretty") && r.configPath != "" {
		r.writePlain("# %s\n", r.configPath)
	}
	if err := toml.NewEncoder(r.output).Encode(redacted); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
