// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"reflect"
	"strings"
	"testing"
)

func TestConfigEncodeDecode(t *testing.T) {
	original := Config{
		ModelPath:         "/models/ranker v2.onnx",
		IntraOpNumThreads: 2,
		InterOpNumThreads: 1,
		ThreadMode:        true,
		Compression:       "zstd",
		Properties:        map[string]string{"output_name": "scores", "batch_dim": "0"},
	}
	text, err := original.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.ContainsAny(text, " +/=\n") {
		t.Errorf("encoded config %q is not a safe single argument", text)
	}

	decoded, err := DecodeConfig(text)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("DecodeConfig = %+v, want %+v", decoded, original)
	}

	again, err := decoded.Encode()
	if err != nil {
		t.Fatalf("second Encode: %v", err)
	}
	if again != text {
		t.Error("encoding is not deterministic")
	}
}

func TestConfigEncodeZeroValue(t *testing.T) {
	text, err := Config{}.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeConfig(text)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if !reflect.DeepEqual(decoded, Config{}) {
		t.Errorf("DecodeConfig = %+v, want zero value", decoded)
	}
}

func TestDecodeConfigRejectsGarbage(t *testing.T) {
	for _, text := range []string{"not base64!", "AAAA", "oWFh"} {
		if _, err := DecodeConfig(text); err == nil {
			t.Errorf("DecodeConfig(%q) succeeded", text)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{IntraOpNumThreads: 2, Compression: "lz4"}).Validate(); err != nil {
		t.Errorf("Validate on valid config: %v", err)
	}
	err := Config{IntraOpNumThreads: -1, InterOpNumThreads: -2, Compression: "brotli"}.Validate()
	if err == nil {
		t.Fatal("Validate accepted an invalid config")
	}
	for _, fragment := range []string{"intra_op_num_threads", "inter_op_num_threads", "brotli"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("Validate error %q does not mention %s", err, fragment)
		}
	}
}
