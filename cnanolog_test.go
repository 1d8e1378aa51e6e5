// cnanolog_test.go: end-to-end façade tests over a real output file
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachgenius/cnanolog/internal/binfile"
)

func freshEngine(t *testing.T, cfg Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.cnlog")
	cfg.OutputPath = path
	require.NoError(t, InitEx(cfg))
	t.Cleanup(func() {
		if activeLogger.Load() != nil {
			_ = Shutdown()
		}
	})
	return path
}

func TestInitLogShutdownRoundTrip(t *testing.T) {
	path := freshEngine(t, Config{FlushBatchSize: 1, FlushInterval: time.Millisecond})

	h, err := NewHandle()
	require.NoError(t, err)

	require.NoError(t, h.Log(LevelInfo, "main.go", 10, "user %s logged in with id %d", Str("alice"), Int64(42)))
	require.NoError(t, Shutdown())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, len(data) >= binfile.FileHeaderSize)

	hdr := binfile.DecodeFileHeader(data[:binfile.FileHeaderSize])
	assert.Equal(t, binfile.Magic, hdr.Magic)
	assert.Equal(t, uint64(1), hdr.EntryCount)
	assert.Greater(t, hdr.DictionaryOffset, uint64(0))
}

func TestSecondInitWhileActiveFails(t *testing.T) {
	freshEngine(t, Config{})

	err := InitEx(Config{OutputPath: filepath.Join(t.TempDir(), "other.cnlog")})
	require.Error(t, err)
}

func TestLogBeforeInitFails(t *testing.T) {
	_, err := NewHandle()
	require.Error(t, err)
}

func TestPrepareCachesSiteAndRejectsMismatch(t *testing.T) {
	freshEngine(t, Config{FlushBatchSize: 1, FlushInterval: time.Millisecond})

	h, err := NewHandle()
	require.NoError(t, err)

	site, err := h.Prepare(LevelWarn, "worker.go", 55, "retry %d of %d", binfile.ArgInt32, binfile.ArgInt32)
	require.NoError(t, err)

	require.NoError(t, site.Log(Int32(1), Int32(3)))

	err = site.Log(Int32(1))
	require.Error(t, err)

	err = site.Log(Str("wrong type"), Int32(3))
	require.Error(t, err)
}

func TestPreallocateCreatesUsableHandles(t *testing.T) {
	freshEngine(t, Config{})

	handles, err := Preallocate(4)
	require.NoError(t, err)
	require.Len(t, handles, 4)

	for _, h := range handles {
		require.NoError(t, h.Log(LevelDebug, "pool.go", 1, "worker ready"))
	}

	stats, err := GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.BuffersRegistered, 4)
}

func TestRegisterLevelRejectsReservedRange(t *testing.T) {
	_, err := RegisterLevel(2, "trace")
	require.Error(t, err)

	lvl, err := RegisterLevel(10, "trace")
	require.NoError(t, err)
	assert.Equal(t, "trace", lvl.String())
}

func TestGetStatsReflectsDrops(t *testing.T) {
	freshEngine(t, Config{StagingBufferSize: 128, FlushBatchSize: 1, FlushInterval: time.Millisecond})

	h, err := NewHandle()
	require.NoError(t, err)

	huge := make([]byte, binfile.MaxEntryPayload+1)
	err = h.Log(LevelError, "big.go", 1, "%s", Str(string(huge)))
	// Str truncates to StringLimit before packing, and StringLimit is far
	// larger than MaxEntryPayload, so this is expected to be rejected as
	// too large rather than silently truncated into a valid entry.
	require.Error(t, err)

	stats, err := GetStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.EntriesDropped)
}

func TestShutdownWithoutInitFails(t *testing.T) {
	err := Shutdown()
	require.Error(t, err)
}
