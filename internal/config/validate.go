// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for structural validity (via
// struct tags) and cross-field consistency.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := c.Recommend.validate(); err != nil {
		return err
	}
	if err := c.Events.validate(); err != nil {
		return err
	}
	if c.Recommend.Sources.AIPersonalized && c.LLM.BaseURL == "" {
		return fmt.Errorf("config: llm.base_url is required when the ai_personalized source is enabled")
	}
	return nil
}

// validate checks blender allocation consistency.
func (r *RecommendConfig) validate() error {
	sum := r.Allocation.AIPersonalized + r.Allocation.Collaborative +
		r.Allocation.ContentBased + r.Allocation.Trending
	if sum > 1.0+1e-9 {
		return fmt.Errorf("config: recommend.allocation fractions sum to %.3f, must not exceed 1.0", sum)
	}
	if !r.Sources.AIPersonalized && !r.Sources.Collaborative &&
		!r.Sources.ContentBased && !r.Sources.Trending {
		return fmt.Errorf("config: at least one recommendation source must be enabled")
	}
	return nil
}

// validate checks event pipeline settings.
func (e *EventsConfig) validate() error {
	if e.Topic == "" {
		return fmt.Errorf("config: events.topic must not be empty")
	}
	if e.NATS.Enabled && e.NATS.URL == "" {
		return fmt.Errorf("config: events.nats.url is required when NATS is enabled")
	}
	return nil
}
