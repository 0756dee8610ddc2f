// Package components assembles the event dispatcher's processing chain.
package components

import (
	"log/slog"

	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/event_dispatcher/service"
)

// CreateDispatchService wraps the base dispatcher in a worker pool, falling
// back to the base dispatcher if the pool cannot be created. auditLog may be nil.
func CreateDispatchService(
	auditLog transfer.AuditLog,
	notifier service.Notifier,
	logger *slog.Logger,
	cfg *config.Config,
) service.DispatchService {
	baseService := service.NewDispatchService(auditLog, notifier, logger.With("component", "dispatcher"))

	workerPoolService, err := service.NewWorkerPoolDispatchService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool dispatch service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool dispatch service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
