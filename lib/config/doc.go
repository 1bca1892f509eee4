// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads livecanvas configuration for the relay and the
// terminal client.
//
// Configuration is loaded from a single file named by either the
// LIVECANVAS_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no discovery and no search path.
//
// Files ending in .json or .jsonc are stripped of comments and
// trailing commas before parsing; everything else is parsed as YAML.
// Both formats share one schema.
//
// The file may carry development and production sections that
// override base values when [Config].Environment matches. Production
// without an explicit section gets a tighter broadcast limit.
//
// ${VAR} and ${VAR:-default} patterns in socket paths are expanded
// after loading.
package config
