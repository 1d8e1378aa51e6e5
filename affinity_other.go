//go:build !linux

// affinity_other.go: best-effort writer affinity on non-Linux platforms
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import "runtime"

// applyWriterAffinity locks the writer loop to its current OS thread.
// CPU-level pinning has no portable equivalent outside Linux, so cpu is
// otherwise ignored (spec §6.2 expansion notes this as platform-specific).
func applyWriterAffinity(cpu int) {
	_ = cpu
	runtime.LockOSThread()
}
