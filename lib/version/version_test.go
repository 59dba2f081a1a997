// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestInfoMarksDirtyBuilds(t *testing.T) {
	savedCommit, savedDirty := GitCommit, GitDirty
	t.Cleanup(func() { GitCommit, GitDirty = savedCommit, savedDirty })

	GitCommit, GitDirty = "abc1234", "false"
	if got := Info(); !strings.Contains(got, "(abc1234,") {
		t.Errorf("Info() = %q, want clean commit", got)
	}
	GitDirty = "true"
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("Info() = %q, want dirty marker", got)
	}
}

func TestBanner(t *testing.T) {
	banner := Banner("bureau-inference-worker")
	if !strings.HasPrefix(banner, "bureau-inference-worker "+Version) {
		t.Errorf("Banner = %q", banner)
	}
	if !strings.Contains(banner, runtime.Version()) {
		t.Errorf("Banner missing Go version: %q", banner)
	}
}

func TestStampFromSettings(t *testing.T) {
	stamp := stampFromSettings([]debug.BuildSetting{
		{Key: "vcs", Value: "git"},
		{Key: "vcs.revision", Value: "0123456789abcdef0123456789abcdef01234567"},
		{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})
	if stamp.revision != "0123456" {
		t.Errorf("revision = %q, want 7-character prefix", stamp.revision)
	}
	if !stamp.modified {
		t.Error("modified = false, want true")
	}
	if stamp.time != "2026-10-01T12:00:00Z" {
		t.Errorf("time = %q", stamp.time)
	}

	if empty := stampFromSettings(nil); empty != (buildStamp{}) {
		t.Errorf("stampFromSettings(nil) = %+v, want zero", empty)
	}
}
