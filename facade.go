// facade.go: package-level entry points over one process-wide engine
//
// Spec §4.7 describes a C ABI of free functions over implicit global
// state; the idiomatic Go shape keeps that (a package-level façade is
// the natural translation of "one process, one logger") while the actual
// state lives in an unexported *Logger reached through an atomic.Pointer,
// so Init/Shutdown are safe to call from any goroutine without a global
// lock on the hot path.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/zachgenius/cnanolog/internal/binfile"
	"github.com/zachgenius/cnanolog/internal/ring"
)

var (
	activeLogger atomic.Pointer[Logger]
	lifecycleMu  sync.Mutex
)

// Logger is the engine instance created by Init/InitEx. Applications use
// the package-level façade instead of this type: there is no exported
// constructor, and InitEx refuses to start a second engine while one is
// active, so at most one Logger runs at a time.
type Logger struct {
	cfg Config

	registry *siteRegistry
	buffers  *bufferRegistry

	writerMu sync.Mutex // guards writer + rotation; owned by the writer loop
	writer   *binfile.Writer

	calib           binfile.CalibrationBlock
	anchorMonotonic time.Time

	rotWatcher *dynamicConfigWatcher

	// Hot-reloadable via rotWatcher (argus); read with atomic loads from
	// the writer loop instead of through cfg directly.
	flushBatchSize  int64
	flushIntervalNS int64
	rotationPolicy  int32

	entriesLogged   int64
	entriesDropped  int64
	rotations       int64
	lastRotationDay int64

	// Compression totals (spec §6.3) and background wakeup counter, both
	// accumulated by the writer loop.
	compressedInBytes  int64
	compressedOutBytes int64
	backgroundWakeups  int64

	nextThreadID uint32

	// lastBufIdx is the writer loop's own cursor into the last buffer
	// registry snapshot, touched only by that goroutine (spec §4.6 step 2:
	// each pass starts at lastIdx+1, not always index 0).
	lastBufIdx int

	affinityCh chan int

	shutdownCh chan struct{}
	doneCh     chan struct{}
}

func (l *Logger) affinityRequest() chan int {
	return l.affinityCh
}

// Init starts the engine with default configuration writing to path
// (spec §4.7 init).
func Init(path string) error {
	return InitEx(Config{OutputPath: path})
}

// InitEx starts the engine with an explicit configuration. Calling it
// while an engine is already active returns ErrCodeAlreadyInit.
func InitEx(cfg Config) error {
	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()

	if activeLogger.Load() != nil {
		return NewEngineError(ErrCodeAlreadyInit, "cnanolog is already initialized")
	}
	if cfg.OutputPath == "" {
		return NewEngineError(ErrCodeInvalidConfig, "OutputPath is required")
	}
	cfg = cfg.WithDefaults()

	if cfg.ErrorHandler != nil {
		SetErrorHandler(cfg.ErrorHandler)
	}

	w, err := binfile.Create(cfg.OutputPath, cfg.WriteBufferSize)
	if err != nil {
		return WrapEngineError(err, ErrCodeWriterIO, "failed to create output file")
	}

	calib := newCalibration()
	if err := w.WriteHeader(calib); err != nil {
		return WrapEngineError(err, ErrCodeWriterIO, "failed to write file header")
	}

	l := &Logger{
		cfg:             cfg,
		registry:        newSiteRegistry(),
		buffers:         newBufferRegistry(cfg.MaxBuffers),
		writer:          w,
		calib:           calib,
		anchorMonotonic: time.Now(),
		affinityCh:      make(chan int, 1),
		shutdownCh:      make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
	atomic.StoreInt64(&l.flushBatchSize, int64(cfg.FlushBatchSize))
	atomic.StoreInt64(&l.flushIntervalNS, int64(cfg.FlushInterval))
	atomic.StoreInt32(&l.rotationPolicy, int32(cfg.RotationPolicy))
	atomic.StoreInt64(&l.lastRotationDay, time.Now().UTC().Unix())

	if cfg.ConfigWatchPath != "" {
		watcher, werr := newDynamicConfigWatcher(l, cfg.ConfigWatchPath)
		if werr != nil {
			handleError(WrapEngineError(werr, ErrCodeRotationFailed, "failed to start config watcher"))
		} else {
			l.rotWatcher = watcher
		}
	}

	activeLogger.Store(l)
	go l.runWriterLoop()
	return nil
}

// Shutdown stops the writer loop, drains every registered buffer to
// exhaustion, and closes the output file (spec §4.8 shutdown sequence).
// Calling Shutdown without a prior Init returns ErrCodeNotInitialized.
func Shutdown() error {
	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()

	l := activeLogger.Load()
	if l == nil {
		return NewEngineError(ErrCodeNotInitialized, "cnanolog was not initialized")
	}

	close(l.shutdownCh)
	<-l.doneCh

	if l.rotWatcher != nil {
		l.rotWatcher.stop()
	}

	l.writerMu.Lock()
	err := l.writer.Close(l.registry.snapshot(), levelsForDictionary())
	l.writerMu.Unlock()

	activeLogger.Store(nil)
	if err != nil {
		return WrapEngineError(err, ErrCodeShutdownFailed, "failed to close output file")
	}
	return nil
}

func levelsForDictionary() []binfile.CustomLevel {
	entries := registeredCustomLevels()
	out := make([]binfile.CustomLevel, len(entries))
	for i, e := range entries {
		out[i] = binfile.CustomLevel{Value: e.Value, Name: e.Name}
	}
	return out
}

// Preallocate creates n producer buffers up front rather than lazily on
// first use, so the first Log call from a fresh goroutine never pays an
// allocation (spec §4.7 preallocate). It returns the created handles.
func Preallocate(n int) ([]*Handle, error) {
	l := activeLogger.Load()
	if l == nil {
		return nil, NewEngineError(ErrCodeNotInitialized, "cnanolog was not initialized")
	}
	handles := make([]*Handle, 0, n)
	for i := 0; i < n; i++ {
		h, err := l.newHandle()
		if err != nil {
			return handles, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// GetStats returns a snapshot of engine-wide counters (spec §6.3).
func GetStats() (Stats, error) {
	l := activeLogger.Load()
	if l == nil {
		return Stats{}, NewEngineError(ErrCodeNotInitialized, "cnanolog was not initialized")
	}
	l.writerMu.Lock()
	_, bytes := l.writer.Stats()
	failed := l.writer.Failed()
	l.writerMu.Unlock()

	inBytes := atomic.LoadInt64(&l.compressedInBytes)
	outBytes := atomic.LoadInt64(&l.compressedOutBytes)
	ratio := uint64(100)
	if outBytes > 0 {
		ratio = uint64(inBytes*100) / uint64(outBytes)
	}

	return Stats{
		EntriesLogged:        uint64(atomic.LoadInt64(&l.entriesLogged)),
		EntriesDropped:       uint64(atomic.LoadInt64(&l.entriesDropped)),
		BytesWritten:         bytes,
		BuffersActive:        l.buffers.activeCount(),
		BuffersRegistered:    l.buffers.count(),
		Rotations:            uint64(atomic.LoadInt64(&l.rotations)),
		WriterFailed:         failed,
		CompressionRatioX100: ratio,
		BackgroundWakeups:    uint64(atomic.LoadInt64(&l.backgroundWakeups)),
	}, nil
}

// ResetStats zeroes the engine's logged, dropped and rotation counters.
// Writer byte/entry totals and buffer counts, being derived from live
// state, are not reset; neither are the compression totals behind
// CompressionRatioX100 nor BackgroundWakeups.
func ResetStats() error {
	l := activeLogger.Load()
	if l == nil {
		return NewEngineError(ErrCodeNotInitialized, "cnanolog was not initialized")
	}
	atomic.StoreInt64(&l.entriesLogged, 0)
	atomic.StoreInt64(&l.entriesDropped, 0)
	atomic.StoreInt64(&l.rotations, 0)
	return nil
}

// SetWriterAffinity pins the background writer loop to a single OS
// thread and, on Linux, to a specific CPU (spec §4.6, §6.2 expansion).
// See affinity_linux.go / affinity_other.go.
func SetWriterAffinity(cpu int) error {
	l := activeLogger.Load()
	if l == nil {
		return NewEngineError(ErrCodeNotInitialized, "cnanolog was not initialized")
	}
	select {
	case l.affinityRequest() <- cpu:
		return nil
	default:
		return NewEngineError(ErrCodeInvalidArgument, "writer affinity request dropped: loop busy")
	}
}

func (l *Logger) newHandle() (*Handle, error) {
	tid := atomic.AddUint32(&l.nextThreadID, 1)
	r := ring.New(l.cfg.StagingBufferSize, tid)
	if _, err := l.buffers.register(r); err != nil {
		return nil, err
	}
	return &Handle{logger: l, ring: r}, nil
}
