// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the inference
// host and worker binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/inferencebridge/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Without them, Info falls back to the VCS revision the Go toolchain
// stamps into module builds, then to "unknown". The host logs [Info]
// when it spawns a worker and the worker logs its own, so a
// host/worker build mismatch is visible in the combined log.
package version
