// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads inference host configuration files.
//
// Configuration is loaded from a single file named either by the
// BUREAU_INFERENCE_CONFIG environment variable (via [Load]) or a
// --config flag (via [LoadProfile]). There is no file search and no
// fallback. The result is a plain map, the form the bridge accepts
// through bridge.ConfigFromMap, so a host embedding the bridge can
// supply the same map from its own configuration system.
//
// Two formats are accepted, chosen by extension: YAML (.yaml, .yml)
// and JSON with comments and trailing commas (.json, .jsonc).
//
// A file may carry a top-level "profiles" map. When a profile is
// selected its entries are merged over the base values (nested maps
// merge key by key) and the "profiles" key is removed.
//
// ${VAR} and ${VAR:-default} patterns in string values are expanded
// from the environment after merging.
package config
