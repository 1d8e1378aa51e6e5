// varint_test.go: compression layout and round-trip tests
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package varint

import (
	"encoding/binary"
	"testing"

	"github.com/zachgenius/cnanolog/internal/binfile"
)

func packInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func packUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func packString(s string) []byte {
	b := make([]byte, 2+len(s))
	binary.LittleEndian.PutUint16(b[0:2], uint16(len(s)))
	copy(b[2:], s)
	return b
}

// TestCompressSmallIntegerLayout exercises the concrete layout from the
// spec's worked example: a small int32 and a small uint64 compress to one
// byte each, preceded by a single nibble-packed metadata byte.
func TestCompressSmallIntegerLayout(t *testing.T) {
	site := &binfile.LogSite{
		NumArgs:  2,
		ArgTypes: [binfile.MaxArgs]binfile.ArgType{binfile.ArgInt32, binfile.ArgUint64},
	}
	packed := append(packInt32(5), packUint64(7)...)

	dst := make([]byte, MaxSize(site, len(packed)))
	n, err := Compress(site, packed, dst)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	// 1 nibble byte (2 args packed 2-per-byte) + 1 byte for each integer.
	if n != 3 {
		t.Fatalf("compressed length = %d, want 3", n)
	}

	nibble := dst[0]
	if lo := nibble & 0x0F; lo != 0 {
		t.Fatalf("low nibble (arg0 bytesUsed-1) = %d, want 0 (1 byte)", lo)
	}
	if hi := (nibble >> 4) & 0x0F; hi != 0 {
		t.Fatalf("high nibble (arg1 bytesUsed-1) = %d, want 0 (1 byte)", hi)
	}
	if dst[1] != 5 {
		t.Fatalf("arg0 byte = %d, want 5", dst[1])
	}
	if dst[2] != 7 {
		t.Fatalf("arg1 byte = %d, want 7", dst[2])
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		argTypes []binfile.ArgType
		packed   []byte
	}{
		{
			name:     "mixed small ints and string",
			argTypes: []binfile.ArgType{binfile.ArgInt32, binfile.ArgString, binfile.ArgUint64},
			packed:   concat(packInt32(-1), packString("hello"), packUint64(1<<40)),
		},
		{
			name:     "negative int64 needing sign extension",
			argTypes: []binfile.ArgType{binfile.ArgInt64},
			packed:   packUint64(^uint64(41)), // two's complement of int64(-42)
		},
		{
			name:     "double and pointer always full width",
			argTypes: []binfile.ArgType{binfile.ArgDouble, binfile.ArgPointer},
			packed:   concat(packUint64(0x3FF0000000000000), packUint64(0xDEADBEEF)),
		},
		{
			name:     "empty string",
			argTypes: []binfile.ArgType{binfile.ArgString},
			packed:   packString(""),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			site := &binfile.LogSite{NumArgs: uint8(len(tc.argTypes))}
			copy(site.ArgTypes[:], tc.argTypes)

			dst := make([]byte, MaxSize(site, len(tc.packed)))
			n, err := Compress(site, tc.packed, dst)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}

			out := make([]byte, len(tc.packed)+16)
			m, err := Decompress(site, dst[:n], out)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if m != len(tc.packed) {
				t.Fatalf("decompressed length = %d, want %d", m, len(tc.packed))
			}
			if string(out[:m]) != string(tc.packed) {
				t.Fatalf("round-trip mismatch:\n got: %x\nwant: %x", out[:m], tc.packed)
			}
		})
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
