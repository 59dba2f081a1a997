// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// inference bridge host and its workers.
//
// The bridge itself moves opaque payload bytes and never looks inside
// them. CBOR is used only for the bridge's own metadata: the worker
// configuration handed to a worker on its command line, and diagnostic
// rendering of payloads in the CLI when callers encode their batches as
// CBOR.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same worker configuration always produces the same command line,
// which keeps process listings and logs comparable across restarts.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types serialized only as CBOR carry `cbor` struct tags. Types that
// are also read from YAML or JSON configuration carry `json` or `yaml`
// tags; fxamacker/cbor falls back to `json` tags when `cbor` tags are
// absent.
package codec
