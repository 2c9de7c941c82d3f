package watch

import (
	"context"
	"errors"
	"log/slog"

	"reelcat/internal/config"
	"reelcat/internal/indexer"
	"reelcat/internal/logging"
	"reelcat/internal/services"
)

// Service runs continuous watch mode: filesystem events keep the catalog
// current, and the optional device monitor rescans the roots when a volume
// is attached.
type Service struct {
	cfg     *config.Config
	indexer *indexer.Indexer
	watcher *Watcher
	devices *DeviceMonitor
	logger  *slog.Logger
}

// NewService wires a Service from configuration. The device monitor is only
// created when watch.device_monitor is set.
func NewService(cfg *config.Config, ix *indexer.Indexer, logger *slog.Logger) (*Service, error) {
	watcher, err := NewWatcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		cfg:     cfg,
		indexer: ix,
		watcher: watcher,
		logger:  logging.NewComponentLogger(logger, "watch"),
	}
	if cfg.Watch.DeviceMonitor {
		svc.devices = NewDeviceMonitor(logger, svc.onDeviceAttached)
	}
	return svc, nil
}

// Run watches until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer s.watcher.Close()

	if s.devices != nil {
		if err := s.devices.Start(ctx); err != nil {
			return err
		}
		defer s.devices.Stop()
	}

	go s.watcher.Start()
	s.logger.Info("watch mode started", logging.Int("roots", len(s.cfg.Watch.Roots)))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch := <-s.watcher.Events():
			s.handleBatch(ctx, batch)
		}
	}
}

func (s *Service) handleBatch(ctx context.Context, batch []Event) {
	for _, event := range batch {
		switch event.Op {
		case OpRemove, OpRename:
			if _, _, err := s.indexer.Remove(ctx, event.Path); err != nil && !errors.Is(err, services.ErrNotFound) {
				s.logger.Warn("failed to remove location",
					logging.String(logging.FieldPath, event.Path),
					logging.Error(err))
			}
		default:
			if _, err := s.indexer.Index(ctx, event.Path); err != nil {
				s.logger.Warn("failed to index changed file",
					logging.String(logging.FieldPath, event.Path),
					logging.Error(err))
			}
		}
	}
}

// onDeviceAttached rescans every watch root. Mount timing is racy after
// attach, so failures are logged and the next event tries again.
func (s *Service) onDeviceAttached(ctx context.Context, device string) {
	for _, root := range s.cfg.Watch.Roots {
		run, err := s.indexer.Scan(ctx, root)
		if err == nil {
			for range run.Results() {
			}
			_, err = run.Wait()
		}
		if err != nil {
			s.logger.Warn("rescan after device attach failed",
				logging.String("device", device),
				logging.String("root", root),
				logging.Error(err))
		}
	}
}
