// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/inferencebridge/lib/config"
)

func TestResponsePath(t *testing.T) {
	tests := []struct {
		request   string
		outputDir string
		want      string
	}{
		{"/data/batch-1.cbor", "", "/data/batch-1.cbor.response"},
		{"batch.cbor", "", "batch.cbor.response"},
		{"/data/batch-1.cbor", "/out", "/out/batch-1.cbor.response"},
	}
	for _, tt := range tests {
		if got := responsePath(tt.request, tt.outputDir); got != tt.want {
			t.Errorf("responsePath(%q, %q) = %q, want %q", tt.request, tt.outputDir, got, tt.want)
		}
	}
}

func TestWriteResponseCreatesOutputDir(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "responses", "today")
	if err := writeResponse("/data/batch.cbor", outputDir, []byte{0x83, 0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("writeResponse: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(outputDir, "batch.cbor.response"))
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	if len(data) != 4 || data[0] != 0x83 {
		t.Errorf("response = %x", data)
	}
}

func TestLoadBridgeConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inference.yaml")
	content := "predictor: echo\nprofiles:\n  debug:\n    worker:\n      thread_mode: true\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv(config.ProfileEnv, "")
	bridgeConfig, err := loadBridgeConfig(options{configPath: path})
	if err != nil {
		t.Fatalf("loadBridgeConfig: %v", err)
	}
	if bridgeConfig.Predictor != "echo" || bridgeConfig.Worker.ThreadMode {
		t.Errorf("config = %+v", bridgeConfig)
	}

	bridgeConfig, err = loadBridgeConfig(options{configPath: path, profile: "debug"})
	if err != nil {
		t.Fatalf("loadBridgeConfig with profile: %v", err)
	}
	if !bridgeConfig.Worker.ThreadMode {
		t.Error("debug profile did not enable thread_mode")
	}
}

func TestLoadBridgeConfigFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inference.jsonc")
	content := `{
		// Loaded through the environment when --config is absent.
		"predictor": "echo",
		"profiles": {"debug": {"worker": {"thread_mode": true}}},
	}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv(config.PathEnv, path)
	t.Setenv(config.ProfileEnv, "debug")

	bridgeConfig, err := loadBridgeConfig(options{})
	if err != nil {
		t.Fatalf("loadBridgeConfig: %v", err)
	}
	if bridgeConfig.Predictor != "echo" || !bridgeConfig.Worker.ThreadMode {
		t.Errorf("config = %+v, want echo with the debug profile applied", bridgeConfig)
	}
}

func TestLoadBridgeConfigWithoutPath(t *testing.T) {
	t.Setenv(config.PathEnv, "")
	if _, err := loadBridgeConfig(options{}); err == nil {
		t.Fatal("loadBridgeConfig succeeded with neither --config nor the environment")
	}
}
