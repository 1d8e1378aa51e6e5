// Package cnanolog is an ultra-low-latency structured logging engine.
//
// A producing goroutine obtains a *Handle once (NewHandle), optionally
// caches a *Site per call site (Handle.Prepare) to skip the registry
// lookup on repeat calls, and logs positional arguments (Int32, Str,
// Float64, ...) that are packed directly into that handle's lock-free
// staging buffer. A single background writer loop, started by Init or
// InitEx, drains every registered buffer round-robin, compresses each
// entry's integer arguments, and appends them to a binary log file whose
// format is documented in internal/binfile. Decoding happens out of
// band, in cmd/cnanolog-decompress, so the hot path never touches the
// file system directly.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog
