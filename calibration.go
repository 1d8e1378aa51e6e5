// calibration.go: TSC/wall-clock anchor captured at Init, reused by rotations
//
// The pack carries no rdtsc or cycle-counter dependency (none appears
// anywhere in the retrieval pack), so the monotonic component of the
// calibration block is the standard-library monotonic clock reading
// embedded in time.Now() (see DESIGN.md: this is the one place this
// module falls back to the standard library, and why). The wall-clock
// anchor itself goes through the teacher's external go-timecache module,
// the same dependency agilira-iris wires into its Config.TimeFn.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"time"

	timecache "github.com/agilira/go-timecache"

	"github.com/zachgenius/cnanolog/internal/binfile"
)

// calibrationFreqHz is the tick frequency of the monotonic component of
// every entry timestamp: nanoseconds since the anchor.
const calibrationFreqHz = uint64(time.Second / time.Nanosecond)

// newCalibration captures a fresh (freq_hz, anchor_tsc, anchor_wall)
// tuple. anchor_tsc is 0 at the anchor instant by construction: every
// entry's on-wire Timestamp is nanoseconds elapsed since this call, so the
// reader reconstructs wall-clock time as anchor_wall + entry.Timestamp.
func newCalibration() binfile.CalibrationBlock {
	wall := timecache.CachedTime()
	return binfile.CalibrationBlock{
		FreqHz:         calibrationFreqHz,
		AnchorTSC:      0,
		AnchorWallSec:  wall.Unix(),
		AnchorWallNsec: int32(wall.Nanosecond()),
	}
}

// elapsedNanos returns nanoseconds elapsed since anchorMonotonic, the
// monotonic reference point recorded at calibration time.
func elapsedNanos(anchorMonotonic time.Time) uint64 {
	d := time.Since(anchorMonotonic)
	if d < 0 {
		return 0
	}
	return uint64(d)
}
