// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

// applyDefaults fills the protocol time windows that were left unset by all
// configuration sources. The defaults match the deployed protocol: short
// device challenges, week-long recovery requests, daily 8am sweep.
func (cfg *StructuredConfig) applyDefaults() {
	if cfg.App.SessionDuration == 0 {
		cfg.App.SessionDuration = DefaultSessionDuration
	}
	if cfg.App.DeviceOnlySessionDuration == 0 {
		cfg.App.DeviceOnlySessionDuration = DefaultDeviceOnlySessionDuration
	}
	if cfg.App.ChallengeTTL == 0 {
		cfg.App.ChallengeTTL = DefaultChallengeTTL
	}
	if cfg.App.RecoveryRequestTTL == 0 {
		cfg.App.RecoveryRequestTTL = DefaultRecoveryRequestTTL
	}
	if cfg.Workers.SweepCronSpec == "" {
		cfg.Workers.SweepCronSpec = DefaultSweepCronSpec
	}
}

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or a descriptive error
// otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.App.SessionSignKey == "" || cfg.App.SessionIssuer == "" {
		return ErrInvalidAppConfigs
	}

	if cfg.Server.HTTPAddress == "" {
		return ErrInvalidServerConfigs
	}

	return nil
}
