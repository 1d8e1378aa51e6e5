// types.go: public configuration, statistics, and argument value types
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"time"

	"github.com/zachgenius/cnanolog/internal/binfile"
	"github.com/zachgenius/cnanolog/internal/ring"
)

// MaxBuffers is the default ceiling on the number of concurrently
// registered per-producer staging buffers (spec §3, §6.2 expansion).
const MaxBuffers = 256

// RotationPolicy selects when the writer loop rotates the active log file.
type RotationPolicy uint8

const (
	// RotationNone never rotates; the file grows without bound.
	RotationNone RotationPolicy = iota
	// RotationDaily rotates at UTC midnight, grounded on the teacher's
	// config_loader.go daily-rotation convention.
	//
	// Rotation by size is a deliberate non-goal (spec §1) and is not
	// offered here.
	RotationDaily
)

// Config controls engine-wide behavior and is consumed once by Init/InitEx
// (spec §4.7).
type Config struct {
	// OutputPath is the path of the binary log file. Required.
	OutputPath string

	// StagingBufferSize is the capacity, in bytes, of each per-producer
	// ring (spec §3 default: 12 MiB).
	StagingBufferSize int64

	// MaxBuffers bounds how many producer buffers may be registered at
	// once (spec §3 default: 256).
	MaxBuffers int

	// WriteBufferSize is the in-memory buffer size of the binfile.Writer
	// before a flush is forced.
	WriteBufferSize int

	// FlushBatchSize is the number of drained entries after which the
	// writer loop flushes, even if FlushInterval hasn't elapsed
	// (argus-scoped per SPEC_FULL.md §2).
	FlushBatchSize int

	// FlushInterval is the maximum time the writer loop lets buffered
	// entries sit unflushed.
	FlushInterval time.Duration

	// IdlePause is how long the writer loop sleeps after a pass that
	// drained nothing (spec §4.6 step 5: "sleep ~100us").
	IdlePause time.Duration

	// RotationPolicy selects rotation behavior. Size-based rotation is a
	// deliberate spec non-goal and is not available here (see
	// RotationPolicy's constants).
	RotationPolicy RotationPolicy

	// ConfigWatchPath, if set, is a JSON file argus watches for live
	// updates to FlushBatchSize, FlushInterval, and RotationPolicy
	// (SPEC_FULL.md §2 ambient-stack expansion). Unset disables hot
	// reload entirely.
	ConfigWatchPath string

	// ErrorHandler, if set, is installed via SetErrorHandler during Init.
	ErrorHandler ErrorHandler

	// IdleStrategy overrides the writer loop's idle behavior; defaults to
	// a SleepingIdleStrategy honoring IdlePause.
	IdleStrategy ring.IdleStrategy
}

// WithDefaults returns a copy of cfg with zero-valued fields replaced by
// CNanoLog's defaults, mirroring the teacher's Config.WithDefaults.
func (cfg Config) WithDefaults() Config {
	out := cfg
	if out.StagingBufferSize <= 0 {
		out.StagingBufferSize = ring.DefaultSize
	}
	if out.MaxBuffers <= 0 {
		out.MaxBuffers = MaxBuffers
	}
	if out.WriteBufferSize <= 0 {
		out.WriteBufferSize = binfile.DefaultWriteBufferSize
	}
	if out.FlushBatchSize <= 0 {
		out.FlushBatchSize = 256
	}
	if out.FlushInterval <= 0 {
		out.FlushInterval = 5 * time.Millisecond
	}
	if out.IdlePause <= 0 {
		out.IdlePause = 100 * time.Microsecond
	}
	return out
}

// Stats is the snapshot returned by GetStats (spec §6.3).
type Stats struct {
	EntriesLogged     uint64
	EntriesDropped    uint64
	BytesWritten      uint64
	BuffersActive     int
	BuffersRegistered int
	Rotations         uint64
	WriterFailed      bool

	// CompressionRatioX100 is in_bytes*100/out_bytes across every entry
	// compressed so far (e.g. 250 means a 2.5x reduction), clamped to 100
	// when out_bytes is still 0 (nothing compressed yet).
	CompressionRatioX100 uint64

	// BackgroundWakeups counts passes the writer loop has made over the
	// registered buffers, whether or not any of them had data to drain.
	BackgroundWakeups uint64
}

// ArgType identifies the wire representation of one positional log
// argument (spec §3). It is a re-export of internal/binfile.ArgType so
// that callers outside this module — e.g. Handle.Prepare's argTypes — can
// name the type without reaching into an internal package.
type ArgType = binfile.ArgType

const (
	ArgInt32   = binfile.ArgInt32
	ArgInt64   = binfile.ArgInt64
	ArgUint32  = binfile.ArgUint32
	ArgUint64  = binfile.ArgUint64
	ArgDouble  = binfile.ArgDouble
	ArgString  = binfile.ArgString
	ArgPointer = binfile.ArgPointer
)

// ArgValue is one positional logging argument, a closed tagged union
// mirroring the teacher's Field pattern, narrowed to the wire's ArgType
// set (spec §3, §4.2).
type ArgValue struct {
	typ binfile.ArgType
	i64 int64
	u64 uint64
	f64 float64
	str string
	ptr uintptr
}

// Int32 wraps an int32 argument.
func Int32(v int32) ArgValue { return ArgValue{typ: binfile.ArgInt32, i64: int64(v)} }

// Int64 wraps an int64 argument.
func Int64(v int64) ArgValue { return ArgValue{typ: binfile.ArgInt64, i64: v} }

// Uint32 wraps a uint32 argument.
func Uint32(v uint32) ArgValue { return ArgValue{typ: binfile.ArgUint32, u64: uint64(v)} }

// Uint64 wraps a uint64 argument.
func Uint64(v uint64) ArgValue { return ArgValue{typ: binfile.ArgUint64, u64: v} }

// Float64 wraps a float64 argument; float32 callers widen before calling
// (spec §3: FLOAT is absent from the wire type set).
func Float64(v float64) ArgValue { return ArgValue{typ: binfile.ArgDouble, f64: v} }

// Str wraps a string argument. Strings longer than binfile.StringLimit
// are truncated when packed (spec §4.2, §9), but an entry whose packed
// size exceeds binfile.MaxEntryPayload is dropped with ErrCodeEntryTooLarge,
// and StringLimit is larger than that cap, so an entry carrying a string
// that long is always dropped rather than truncated.
func Str(v string) ArgValue { return ArgValue{typ: binfile.ArgString, str: v} }

// Ptr wraps a pointer-sized argument, recorded as an opaque uint64 on the
// wire (spec §3: POINTER).
func Ptr(v uintptr) ArgValue { return ArgValue{typ: binfile.ArgPointer, ptr: v} }

// Type reports the wire argument type of v.
func (v ArgValue) Type() ArgType { return v.typ }
