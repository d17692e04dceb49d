// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for helios.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, validation and live reload.
//
// # Key Types
//
//   - Config: main configuration structure
//   - ServerConfig: backend URL, endpoints and transport
//   - SessionConfig: open timeout, grace period, trigger timeout
//   - IdentityConfig: persistent user id and selected character
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (HELIOS_*)
//   - ~/.helios/config.toml
//   - ~/.helios/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if cfg.EnsureIdentity() {
//	    _ = config.Save(cfg)
//	}
//	timeout := cfg.Session.OpenTimeout()
package config
