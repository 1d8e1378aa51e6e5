// pack.go: packs positional arguments into the uncompressed wire layout
//
// Produces exactly the layout varint.Compress expects to read back (spec
// §4.2, §4.4): fixed-width little-endian integers/doubles/pointers in
// argument order, strings as a u16 length prefix followed by (possibly
// truncated) bytes.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"encoding/binary"
	"math"

	"github.com/zachgenius/cnanolog/internal/binfile"
)

// packedSize returns the exact number of bytes Pack needs for args.
func packedSize(args []ArgValue) int {
	n := 0
	for _, a := range args {
		switch a.typ {
		case binfile.ArgString:
			s := a.str
			if len(s) > binfile.StringLimit {
				s = s[:binfile.StringLimit]
			}
			n += 2 + len(s)
		default:
			n += a.typ.FixedWidth()
		}
	}
	return n
}

// pack writes args, in order, into dst using the uncompressed packed
// layout and returns the number of bytes written. dst must be at least
// packedSize(args) bytes; the caller (the *Site hot path) sizes its
// reservation with packedSize before calling pack.
func pack(dst []byte, args []ArgValue) int {
	off := 0
	for _, a := range args {
		switch a.typ {
		case binfile.ArgInt32:
			binary.LittleEndian.PutUint32(dst[off:], uint32(int32(a.i64)))
			off += 4
		case binfile.ArgUint32:
			binary.LittleEndian.PutUint32(dst[off:], uint32(a.u64))
			off += 4
		case binfile.ArgInt64:
			binary.LittleEndian.PutUint64(dst[off:], uint64(a.i64))
			off += 8
		case binfile.ArgUint64:
			binary.LittleEndian.PutUint64(dst[off:], a.u64)
			off += 8
		case binfile.ArgDouble:
			binary.LittleEndian.PutUint64(dst[off:], math.Float64bits(a.f64))
			off += 8
		case binfile.ArgPointer:
			binary.LittleEndian.PutUint64(dst[off:], uint64(a.ptr))
			off += 8
		case binfile.ArgString:
			s := a.str
			if len(s) > binfile.StringLimit {
				s = s[:binfile.StringLimit]
			}
			binary.LittleEndian.PutUint16(dst[off:], uint16(len(s)))
			off += 2
			off += copy(dst[off:], s)
		}
	}
	return off
}

// argTypesOf extracts the ArgType vector from args, for first-time site
// registration.
func argTypesOf(args []ArgValue) []binfile.ArgType {
	types := make([]binfile.ArgType, len(args))
	for i, a := range args {
		types[i] = a.typ
	}
	return types
}
