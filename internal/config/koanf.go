// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reelfeed/config.yaml",
	"/etc/reelfeed/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file
//  3. Environment variables: highest priority
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// SERVER_PORT -> server.port, LLM_API_KEY -> llm.api_key, ...
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sections maps the first underscore-delimited token of an environment
// variable to a config section. Variables with unknown prefixes are
// ignored so unrelated environment noise does not leak into the config.
var sections = map[string]string{
	"server":        "server",
	"database":      "database",
	"profile_cache": "profile_cache",
	"events":        "events",
	"llm":           "llm",
	"recommend":     "recommend",
	"feed":          "feed",
	"logging":       "logging",
}

// envTransform converts an environment variable name to a koanf path.
//
//	SERVER_PORT              -> server.port
//	PROFILE_CACHE_IN_MEMORY  -> profile_cache.in_memory
//	EVENTS_NATS_ENABLED      -> events.nats.enabled
//	RECOMMEND_ALLOCATION_TRENDING -> recommend.allocation.trending
func envTransform(key string) string {
	key = strings.ToLower(key)

	for prefix, section := range sections {
		if !strings.HasPrefix(key, prefix+"_") {
			continue
		}
		rest := strings.TrimPrefix(key, prefix+"_")
		return section + "." + nestedPath(section, rest)
	}
	return "" // Unknown variable; koanf skips empty keys.
}

// nested prefixes per section whose remainder forms a sub-path rather
// than a flat key (events.nats.*, recommend.allocation.*, ...).
var nestedPrefixes = map[string][]string{
	"events":    {"nats"},
	"recommend": {"allocation", "sources"},
}

// nestedPath splits a sub-prefix off the remainder when the section has
// nested groups; otherwise the remainder is a single snake_case key.
func nestedPath(section, rest string) string {
	for _, sub := range nestedPrefixes[section] {
		if strings.HasPrefix(rest, sub+"_") {
			return sub + "." + strings.TrimPrefix(rest, sub+"_")
		}
	}
	return rest
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when provided via environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices.
// Env vars arrive as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue // Already a slice (from YAML) or empty.
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}
