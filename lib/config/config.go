// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	// PathEnv names the environment variable Load reads the
	// configuration path from.
	PathEnv = "BUREAU_INFERENCE_CONFIG"

	// ProfileEnv names the environment variable Load reads the profile
	// name from. Empty selects no profile.
	ProfileEnv = "BUREAU_INFERENCE_PROFILE"

	profilesKey = "profiles"
)

// Load loads the file named by BUREAU_INFERENCE_CONFIG. An empty
// profile falls back to the one named by BUREAU_INFERENCE_PROFILE. It
// fails if the path variable is not set.
func Load(profile string) (map[string]any, error) {
	path := os.Getenv(PathEnv)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your inference config file, or use --config flag", PathEnv)
	}
	if profile == "" {
		profile = os.Getenv(ProfileEnv)
	}
	return LoadProfile(path, profile)
}

// LoadProfile loads a configuration file and merges the named profile
// over its base values. An empty profile selects none; naming a
// profile the file does not define is an error.
func LoadProfile(path, profile string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	values, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	values, err = applyProfile(values, profile)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	expandValues(values)
	return values, nil
}

// Parse decodes configuration data in the format named by extension
// (".yaml", ".yml", ".json", or ".jsonc"). Variables are not expanded
// and profiles are not applied.
func Parse(data []byte, extension string) (map[string]any, error) {
	switch strings.ToLower(extension) {
	case ".yaml", ".yml":
	case ".json", ".jsonc":
		// JSON is valid YAML once comments and trailing commas are
		// gone, so one decoder serves both formats.
		data = jsonc.ToJSON(data)
	default:
		return nil, fmt.Errorf("unsupported config format %q (expected .yaml, .yml, .json, or .jsonc)", extension)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

// applyProfile merges profiles[profile] over values and drops the
// profiles key.
func applyProfile(values map[string]any, profile string) (map[string]any, error) {
	rawProfiles, hasProfiles := values[profilesKey]
	delete(values, profilesKey)
	if profile == "" {
		return values, nil
	}
	profiles, ok := rawProfiles.(map[string]any)
	if !hasProfiles || !ok {
		return nil, fmt.Errorf("profile %q selected but no profiles are defined", profile)
	}
	overlay, ok := profiles[profile].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("profile %q is not defined", profile)
	}
	return merge(values, overlay), nil
}

// merge returns base with overlay applied. Nested maps merge key by
// key; any other overlay value replaces the base value.
func merge(base, overlay map[string]any) map[string]any {
	result := maps.Clone(base)
	for key, value := range overlay {
		baseMap, baseIsMap := result[key].(map[string]any)
		overlayMap, overlayIsMap := value.(map[string]any)
		if baseIsMap && overlayIsMap {
			result[key] = merge(baseMap, overlayMap)
			continue
		}
		result[key] = value
	}
	return result
}

// expandValues expands variables in every string value, recursing into
// maps and lists.
func expandValues(values map[string]any) {
	for key, value := range values {
		values[key] = expandValue(value)
	}
}

func expandValue(value any) any {
	switch typed := value.(type) {
	case string:
		return expandVars(typed)
	case map[string]any:
		expandValues(typed)
		return typed
	case []any:
		for i := range typed {
			typed[i] = expandValue(typed[i])
		}
		return typed
	default:
		return value
	}
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
