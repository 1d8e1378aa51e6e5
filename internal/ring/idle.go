// idle.go: configurable idle strategies for the writer loop
//
// Adapted from the teacher's zephyroslite.IdleStrategy family
// (internal/zephyroslite/idle_strategy.go), trimmed to the strategies the
// writer loop actually needs: spec §4.6 step 5 mandates "sleep ~100us"
// when a pass finds no work, so SleepingIdleStrategy is the default;
// Spinning and Yielding are kept for callers that want to trade CPU for
// latency explicitly.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package ring

import (
	"runtime"
	"time"
)

// IdleStrategy controls how the writer loop waits when a full pass over
// every staging buffer found no committed work.
type IdleStrategy interface {
	// Idle is called once per empty pass.
	Idle()
	// Reset is called as soon as a pass finds work again.
	Reset()
	String() string
}

// SpinningIdleStrategy never yields; minimum latency, ~100% CPU while idle.
type SpinningIdleStrategy struct{}

func NewSpinningIdleStrategy() *SpinningIdleStrategy { return &SpinningIdleStrategy{} }
func (s *SpinningIdleStrategy) Idle()                {}
func (s *SpinningIdleStrategy) Reset()               {}
func (s *SpinningIdleStrategy) String() string       { return "spinning" }

// SleepingIdleStrategy spins for a configurable number of iterations and
// then sleeps a fixed duration. This is the façade's default: spec §4.6
// asks for "sleep ~100us" on an empty pass.
type SleepingIdleStrategy struct {
	sleepDuration time.Duration
	maxSpins      int
	spins         int
}

func NewSleepingIdleStrategy(sleepDuration time.Duration, maxSpins int) *SleepingIdleStrategy {
	if sleepDuration <= 0 {
		sleepDuration = 100 * time.Microsecond
	}
	if maxSpins < 0 {
		maxSpins = 0
	}
	return &SleepingIdleStrategy{sleepDuration: sleepDuration, maxSpins: maxSpins}
}

func (s *SleepingIdleStrategy) Idle() {
	if s.spins < s.maxSpins {
		s.spins++
		return
	}
	time.Sleep(s.sleepDuration)
}

func (s *SleepingIdleStrategy) Reset() { s.spins = 0 }
func (s *SleepingIdleStrategy) String() string { return "sleeping" }

// YieldingIdleStrategy yields to the Go scheduler after maxSpins empty
// passes instead of sleeping a fixed duration.
type YieldingIdleStrategy struct {
	maxSpins int
	spins    int
}

func NewYieldingIdleStrategy(maxSpins int) *YieldingIdleStrategy {
	if maxSpins <= 0 {
		maxSpins = 1000
	}
	return &YieldingIdleStrategy{maxSpins: maxSpins}
}

func (s *YieldingIdleStrategy) Idle() {
	s.spins++
	if s.spins >= s.maxSpins {
		runtime.Gosched()
		s.spins = 0
	}
}

func (s *YieldingIdleStrategy) Reset()         { s.spins = 0 }
func (s *YieldingIdleStrategy) String() string { return "yielding" }
