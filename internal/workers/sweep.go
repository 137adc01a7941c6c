// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"

	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/service"

	"github.com/robfig/cron/v3"
)

// sweepWorker periodically clears open recovery shares that no longer back
// a valid pending recovery request. It runs the cleanup once at startup and
// then on the configured cron schedule.
type sweepWorker struct {
	recovery service.ShamirRecoveryService
	cronSpec string
	cron     *cron.Cron
	logger   *logger.Logger
}

func newSweepWorker(recovery service.ShamirRecoveryService, cronSpec string, logger *logger.Logger) *sweepWorker {
	return &sweepWorker{
		recovery: recovery,
		cronSpec: cronSpec,
		cron:     cron.New(),
		logger:   logger,
	}
}

func (s *sweepWorker) Run() {
	if _, err := s.cron.AddFunc(s.cronSpec, s.sweep); err != nil {
		s.logger.Error().Err(err).Str("cron", s.cronSpec).Msg("invalid sweep cron spec, sweep will only run at startup")
	} else {
		s.cron.Start()
	}

	// run once on startup to catch up after downtime
	go s.sweep()
}

func (s *sweepWorker) Stop() {
	<-s.cron.Stop().Done()
}

func (s *sweepWorker) sweep() {
	log := s.logger.GetChildLogger()
	ctx := log.WithContext(context.Background())

	cleared, err := s.recovery.CleanupExpiredOpenShares(ctx)
	if err != nil {
		log.Error().Err(err).Msg("open-shares sweep failed")
		return
	}

	log.Debug().Int64("cleared", cleared).Msg("open-shares sweep finished")
}
