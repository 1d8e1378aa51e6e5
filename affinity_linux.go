//go:build linux

// affinity_linux.go: pin the writer loop to one CPU on Linux
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// applyWriterAffinity locks the calling goroutine (the writer loop) to
// its current OS thread and restricts that thread to cpu. A negative cpu
// only locks the OS thread without restricting which CPU it runs on.
func applyWriterAffinity(cpu int) {
	runtime.LockOSThread()
	if cpu < 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		handleError(NewEngineError(ErrCodeInvalidArgument, "failed to set writer CPU affinity: "+err.Error()))
	}
}
