package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/config"
	"github.com/sydlexius/liner/internal/database"
	"github.com/sydlexius/liner/internal/logging"
)

const defaultConfigPath = "/data/config.yaml"

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// configPath resolves the config file: --config, then LN_CONFIG_PATH,
// then the container default.
func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if p := strings.TrimSpace(*c.configFlag); p != "" {
			return p
		}
	}
	if p := os.Getenv("LN_CONFIG_PATH"); p != "" {
		return p
	}
	return defaultConfigPath
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = fmt.Errorf("loading config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime holds what every database-backed command needs.
type runtime struct {
	cfg        *config.Config
	logManager *logging.Manager
	logger     *slog.Logger
	db         *sql.DB
	store      *artist.Service
}

// openRuntime loads config, sets up logging and opens the migrated catalog.
func (c *commandContext) openRuntime() (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logManager, logger := logging.NewManager(logging.FromSettings(cfg.Logging))
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		_ = logManager.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		_ = logManager.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Debug("database ready", slog.String("path", cfg.Database.Path))

	return &runtime{
		cfg:        cfg,
		logManager: logManager,
		logger:     logger,
		db:         db,
		store:      artist.NewService(db),
	}, nil
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Error("closing database", "error", err)
	}
	_ = rt.logManager.Close()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
