package main

import (
	"context"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"reelcat/internal/analyzer"
	"reelcat/internal/catalog"
	"reelcat/internal/config"
	"reelcat/internal/indexer"
	"reelcat/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
	})
	return c.logger, c.loggerErr
}

// withStore opens the catalog for the duration of fn.
func (c *commandContext) withStore(fn func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store, logger)
}

// withWriterLock takes the catalog writer lock for the duration of fn. Scans
// and watch sessions use it so two writers never race across processes.
func (c *commandContext) withWriterLock(cfg *config.Config, fn func() error) error {
	lock := catalog.NewLock(cfg.LockPath())
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()
	return fn()
}

func (c *commandContext) newIndexer(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*indexer.Indexer, error) {
	contentAnalyzer, err := analyzer.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return indexer.New(cfg, store, contentAnalyzer, logger), nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
