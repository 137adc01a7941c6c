// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv fills cfg from the process environment via caarlos0/env, walking
// the `env` and `envPrefix` tags declared on [StructuredConfig] and its
// sections. Environment variables are the lowest-priority source: flags and
// the optional JSON file are merged on top afterwards.
func parseEnv(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment configuration: %w", err)
	}

	return nil
}
