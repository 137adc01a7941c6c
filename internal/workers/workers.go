package workers

import (
	"github.com/MKhiriev/go-vault-guard/internal/config"
	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/service"
)

// Workers aggregates all background workers of the application and runs
// them as a unit.
type Workers struct {
	workers []Worker
}

// NewWorkers builds the application's background workers: currently the
// daily sweep that nulls open recovery shares left behind by completed,
// aborted or expired recovery requests.
func NewWorkers(services *service.Services, cfg config.Workers, logger *logger.Logger) *Workers {
	return &Workers{
		workers: []Worker{
			newSweepWorker(services.ShamirRecoveryService, cfg.SweepCronSpec, logger),
		},
	}
}

func (w *Workers) Run() {
	for _, worker := range w.workers {
		worker.Run()
	}
}

// Stop stops every worker that supports graceful termination.
func (w *Workers) Stop() {
	for _, worker := range w.workers {
		if stoppable, ok := worker.(interface{ Stop() }); ok {
			stoppable.Stop()
		}
	}
}
