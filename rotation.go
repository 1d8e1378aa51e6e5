// rotation.go: rotated output paths and argus-backed live config reload
//
// The watcher is grounded on the teacher's config_loader.go
// DynamicConfigWatcher: a small wrapper around an *argus.Watcher that
// loads a JSON config once up front, then applies every subsequent change
// to the live engine through an explicit callback — scoped here to the
// three fields SPEC_FULL.md calls out as hot-reloadable (flush batch
// size, flush interval, rotation policy), not the full configuration
// surface.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
)

// nextRotationPath derives a rotated sibling of base, inserting a
// timestamp before the extension (e.g. "app.cnlog" -> "app-20260730T000000Z.cnlog").
func nextRotationPath(base string, at time.Time) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s-%s%s", stem, at.UTC().Format("20060102T150405Z"), ext)
}

// reloadableConfig is the JSON shape argus watches and hot-applies.
type reloadableConfig struct {
	FlushBatchSize  int    `json:"flush_batch_size"`
	FlushIntervalMS int    `json:"flush_interval_ms"`
	RotationPolicy  string `json:"rotation_policy"`
}

func parseRotationPolicy(s string) (RotationPolicy, bool) {
	switch strings.ToLower(s) {
	case "", "none":
		return RotationNone, true
	case "daily":
		return RotationDaily, true
	default:
		return RotationNone, false
	}
}

// dynamicConfigWatcher wraps an argus.Watcher, applying live edits to the
// three hot-reloadable fields of a running Logger.
type dynamicConfigWatcher struct {
	logger  *Logger
	path    string
	watcher *argus.Watcher
	mu      sync.Mutex
	enabled int32
}

func newDynamicConfigWatcher(l *Logger, path string) (*dynamicConfigWatcher, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, err
	}

	w := &dynamicConfigWatcher{logger: l, path: path}

	if cfg, err := loadReloadableConfig(path); err == nil {
		w.apply(cfg)
	}

	cfg := argus.Config{
		PollInterval:         250 * time.Millisecond,
		OptimizationStrategy: argus.OptimizationAuto,
		Audit: argus.AuditConfig{
			Enabled:       false,
			OutputFile:    "",
			MinLevel:      argus.AuditInfo,
			BufferSize:    256,
			FlushInterval: time.Second,
		},
		ErrorHandler: func(err error, path string) {
			handleError(WrapEngineError(err, ErrCodeRotationFailed, fmt.Sprintf("argus watch error on %s", path)))
		},
	}

	watcher := argus.New(*cfg.WithDefaults())
	if err := watcher.Watch(path, func(event argus.ChangeEvent) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if reloaded, err := loadReloadableConfig(path); err == nil {
			w.apply(reloaded)
		}
		_ = event
	}); err != nil {
		return nil, err
	}
	if err := watcher.Start(); err != nil {
		return nil, err
	}

	w.watcher = watcher
	atomic.StoreInt32(&w.enabled, 1)
	return w, nil
}

func (w *dynamicConfigWatcher) apply(cfg reloadableConfig) {
	if cfg.FlushBatchSize > 0 {
		atomic.StoreInt64(&w.logger.flushBatchSize, int64(cfg.FlushBatchSize))
	}
	if cfg.FlushIntervalMS > 0 {
		atomic.StoreInt64(&w.logger.flushIntervalNS, int64(time.Duration(cfg.FlushIntervalMS)*time.Millisecond))
	}
	if policy, ok := parseRotationPolicy(cfg.RotationPolicy); ok {
		atomic.StoreInt32(&w.logger.rotationPolicy, int32(policy))
	}
}

func (w *dynamicConfigWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if atomic.LoadInt32(&w.enabled) == 0 {
		return
	}
	if err := w.watcher.Stop(); err != nil {
		handleError(WrapEngineError(err, ErrCodeRotationFailed, "failed to stop config watcher"))
	}
	atomic.StoreInt32(&w.enabled, 0)
}

func validateConfigPath(path string) error {
	if path == "" {
		return NewEngineError(ErrCodeInvalidConfig, "config watch path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return WrapEngineError(err, ErrCodeInvalidConfig, "config watch path is not accessible")
	}
	return nil
}

func loadReloadableConfig(path string) (reloadableConfig, error) {
	// #nosec G304 -- path is supplied by the application via Config, not untrusted input
	data, err := os.ReadFile(path)
	if err != nil {
		return reloadableConfig{}, err
	}
	var cfg reloadableConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return reloadableConfig{}, err
	}
	return cfg, nil
}
