// registry.go: call-site registry assigning dense, monotonic log IDs
//
// Grounded on the teacher's internal/lethe/registry.go (map guarded by a
// sync.RWMutex, register-once-return-handle shape), generalized from a
// name-keyed capability table to a (file, line, format, level, arg types)
// keyed call-site table (spec §4.1, §3).
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"hash/maphash"
	"strconv"
	"sync"

	"github.com/zachgenius/cnanolog/internal/binfile"
)

// siteRegistry is the process-wide table mapping a call site's identity to
// its *binfile.LogSite record. Registration happens at most once per call
// site, normally through the lazy caching a *Site handle performs on first
// use (spec §4.1 "caller caches the result locally").
type siteRegistry struct {
	mu      sync.RWMutex
	byKey   map[uint64][]*binfile.LogSite // hash bucket, collision-checked by full key equality
	bySite  []*binfile.LogSite            // dense, index == LogID
	nextID  uint32
	maxSize int
	seed    maphash.Seed
}

func newSiteRegistry() *siteRegistry {
	return &siteRegistry{
		byKey: make(map[uint64][]*binfile.LogSite),
		seed:  maphash.MakeSeed(),
	}
}

func siteKey(seed maphash.Seed, file string, line uint32, format string, level uint8, argTypes []binfile.ArgType) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	_, _ = h.WriteString(file)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strconv.FormatUint(uint64(line), 10))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(format)
	_, _ = h.WriteString("\x00")
	_ = h.WriteByte(level)
	for _, t := range argTypes {
		_ = h.WriteByte(byte(t))
	}
	return h.Sum64()
}

func sameSite(s *binfile.LogSite, file string, line uint32, format string, level uint8, argTypes []binfile.ArgType) bool {
	if s.File != file || s.Line != line || s.Format != format || s.Level != level || int(s.NumArgs) != len(argTypes) {
		return false
	}
	for i, t := range argTypes {
		if s.ArgTypes[i] != t {
			return false
		}
	}
	return true
}

// register returns the LogSite for the given identity, creating and
// assigning it the next dense LogID if this is the first registration.
func (r *siteRegistry) register(file string, line uint32, format string, level uint8, argTypes []binfile.ArgType) (*binfile.LogSite, error) {
	if len(argTypes) > binfile.MaxArgs {
		return nil, NewEngineError(ErrCodeInvalidArgument, "log site declares more than MaxArgs arguments")
	}
	key := siteKey(r.seed, file, line, format, level, argTypes)

	r.mu.RLock()
	for _, s := range r.byKey[key] {
		if sameSite(s, file, line, format, level, argTypes) {
			r.mu.RUnlock()
			return s, nil
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byKey[key] {
		if sameSite(s, file, line, format, level, argTypes) {
			return s, nil
		}
	}

	if r.maxSize > 0 && len(r.bySite) >= r.maxSize {
		return nil, NewEngineError(ErrCodeRegistryOverflow, "log site dictionary is full")
	}

	site := &binfile.LogSite{
		LogID:   r.nextID,
		Level:   level,
		File:    file,
		Line:    line,
		Format:  format,
		NumArgs: uint8(len(argTypes)),
	}
	copy(site.ArgTypes[:], argTypes)

	r.nextID++
	r.byKey[key] = append(r.byKey[key], site)
	r.bySite = append(r.bySite, site)
	return site, nil
}

// get returns the LogSite for logID, or false if it is out of range.
func (r *siteRegistry) get(logID uint32) (*binfile.LogSite, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(logID) >= len(r.bySite) {
		return nil, false
	}
	return r.bySite[logID], true
}

// snapshot returns every registered site in LogID order, for the
// dictionary trailer written on Close/Rotate.
func (r *siteRegistry) snapshot() []*binfile.LogSite {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*binfile.LogSite, len(r.bySite))
	copy(out, r.bySite)
	return out
}

func (r *siteRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySite)
}
