// varint.go: variable-byte integer compressor with nibble metadata
//
// Compresses only the integer portions of a packed argument payload;
// strings and doubles (besides their nibble entry) pass through
// unchanged. Layout:
//
//	[ nibble block : ceil(K/2) bytes ]   // K = number of non-string args
//	[ arguments in site.ArgTypes order ] // integers as varint bytes,
//	                                     // strings unchanged: len (u16) + bytes
//
// Strings are not moved after the integers: each argument's bytes follow
// the previous argument's, whatever their types.
//
// Signed integers are compressed by two's-complement truncation: the
// minimal byte count such that sign-extending those bytes back to 64
// bits reproduces the original value (see DESIGN.md — this resolves the
// zig-zag-vs-truncation open question in favor of truncation). DOUBLE and
// POINTER are always stored at their full 8-byte width; their nibble
// entry is still written for uniformity with the decoder.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package varint

import (
	"encoding/binary"
	"fmt"

	"github.com/zachgenius/cnanolog/internal/binfile"
)

// MaxSize returns an upper bound on the compressed size of a payload
// packed for site, given the uncompressed packed length inLen.
func MaxSize(site *binfile.LogSite, inLen int) int {
	k := 0
	for i := 0; i < int(site.NumArgs); i++ {
		if site.ArgTypes[i] != binfile.ArgString {
			k++
		}
	}
	nibbleBytes := (k + 1) / 2
	return nibbleBytes + 8*k + inLen
}

// Compress reads a packed, uncompressed argument payload (as produced by
// the packer, in the order of site.ArgTypes) and writes the compressed
// form to dst, returning the number of bytes written.
func Compress(site *binfile.LogSite, packed []byte, dst []byte) (int, error) {
	numArgs := int(site.NumArgs)

	// First pass: locate each argument's bytes in the uncompressed input
	// and the minimal byte count needed for integer types.
	type slot struct {
		argType  binfile.ArgType
		offset   int
		length   int // uncompressed length (string: header+bytes)
		intBytes int // bytes needed for integer-typed args
	}
	slots := make([]slot, numArgs)

	off := 0
	k := 0
	for i := 0; i < numArgs; i++ {
		t := site.ArgTypes[i]
		switch t {
		case binfile.ArgString:
			if off+2 > len(packed) {
				return 0, fmt.Errorf("varint: truncated string header for arg %d", i)
			}
			strLen := int(binary.LittleEndian.Uint16(packed[off : off+2]))
			total := 2 + strLen
			if off+total > len(packed) {
				return 0, fmt.Errorf("varint: truncated string payload for arg %d", i)
			}
			slots[i] = slot{argType: t, offset: off, length: total}
			off += total
		case binfile.ArgDouble, binfile.ArgPointer:
			if off+8 > len(packed) {
				return 0, fmt.Errorf("varint: truncated 8-byte arg %d", i)
			}
			slots[i] = slot{argType: t, offset: off, length: 8, intBytes: 8}
			off += 8
			k++
		case binfile.ArgInt32, binfile.ArgUint32:
			if off+4 > len(packed) {
				return 0, fmt.Errorf("varint: truncated 4-byte arg %d", i)
			}
			v := uint64(binary.LittleEndian.Uint32(packed[off : off+4]))
			nb := minBytesUnsigned(v)
			if t == binfile.ArgInt32 {
				nb = minBytesSigned(signExtend32(uint32(v)))
			}
			slots[i] = slot{argType: t, offset: off, length: 4, intBytes: nb}
			off += 4
			k++
		case binfile.ArgInt64, binfile.ArgUint64:
			if off+8 > len(packed) {
				return 0, fmt.Errorf("varint: truncated 8-byte arg %d", i)
			}
			v := binary.LittleEndian.Uint64(packed[off : off+8])
			var nb int
			if t == binfile.ArgInt64 {
				nb = minBytesSigned(int64(v))
			} else {
				nb = minBytesUnsigned(v)
			}
			slots[i] = slot{argType: t, offset: off, length: 8, intBytes: nb}
			off += 8
			k++
		default:
			return 0, fmt.Errorf("varint: unknown arg type %d", t)
		}
	}

	nibbleBytes := (k + 1) / 2
	if len(dst) < nibbleBytes {
		return 0, nil
	}

	// Zero the nibble block up front; filled in as we go.
	for i := 0; i < nibbleBytes; i++ {
		dst[i] = 0
	}

	pos := nibbleBytes
	nibbleIdx := 0
	writeNibble := func(bytesUsed int) {
		v := byte(bytesUsed - 1) // 0..7
		byteIdx := nibbleIdx / 2
		if nibbleIdx%2 == 0 {
			dst[byteIdx] = (dst[byteIdx] &^ 0x0F) | (v & 0x0F)
		} else {
			dst[byteIdx] = (dst[byteIdx] &^ 0xF0) | ((v & 0x0F) << 4)
		}
		nibbleIdx++
	}

	for i := 0; i < numArgs; i++ {
		s := slots[i]
		switch s.argType {
		case binfile.ArgString:
			if pos+s.length > len(dst) {
				return 0, nil
			}
			copy(dst[pos:pos+s.length], packed[s.offset:s.offset+s.length])
			pos += s.length
		default:
			if pos+s.intBytes > len(dst) {
				return 0, nil
			}
			var full [8]byte
			copy(full[:], packed[s.offset:s.offset+s.length])
			copy(dst[pos:pos+s.intBytes], full[:s.intBytes])
			pos += s.intBytes
			writeNibble(s.intBytes)
		}
	}

	return pos, nil
}

// Decompress reverses Compress, reconstructing the uncompressed packed
// payload (the same layout the packer originally produced) from a
// compressed buffer for site.
func Decompress(site *binfile.LogSite, compressed []byte, dst []byte) (int, error) {
	numArgs := int(site.NumArgs)

	k := 0
	for i := 0; i < numArgs; i++ {
		if site.ArgTypes[i] != binfile.ArgString {
			k++
		}
	}
	nibbleBytes := (k + 1) / 2
	if len(compressed) < nibbleBytes {
		return 0, fmt.Errorf("varint: truncated nibble block")
	}

	readNibble := func(idx int) int {
		byteIdx := idx / 2
		b := compressed[byteIdx]
		if idx%2 == 0 {
			return int(b&0x0F) + 1
		}
		return int((b>>4)&0x0F) + 1
	}

	srcPos := nibbleBytes
	dstPos := 0
	nibbleIdx := 0

	for i := 0; i < numArgs; i++ {
		t := site.ArgTypes[i]
		switch t {
		case binfile.ArgString:
			if srcPos+2 > len(compressed) {
				return 0, fmt.Errorf("varint: truncated string header for arg %d", i)
			}
			strLen := int(binary.LittleEndian.Uint16(compressed[srcPos : srcPos+2]))
			total := 2 + strLen
			if srcPos+total > len(compressed) {
				return 0, fmt.Errorf("varint: truncated string payload for arg %d", i)
			}
			if dstPos+total > len(dst) {
				return 0, fmt.Errorf("varint: decompress buffer too small")
			}
			copy(dst[dstPos:dstPos+total], compressed[srcPos:srcPos+total])
			srcPos += total
			dstPos += total
		default:
			nb := readNibble(nibbleIdx)
			nibbleIdx++
			if srcPos+nb > len(compressed) {
				return 0, fmt.Errorf("varint: truncated integer for arg %d", i)
			}
			width := t.FixedWidth()
			if dstPos+width > len(dst) {
				return 0, fmt.Errorf("varint: decompress buffer too small")
			}
			var full [8]byte
			copy(full[:nb], compressed[srcPos:srcPos+nb])
			signed := t == binfile.ArgInt32 || t == binfile.ArgInt64
			if signed && nb > 0 && full[nb-1]&0x80 != 0 {
				for j := nb; j < 8; j++ {
					full[j] = 0xFF
				}
			}
			copy(dst[dstPos:dstPos+width], full[:width])
			srcPos += nb
			dstPos += width
		}
	}

	return dstPos, nil
}

func minBytesUnsigned(v uint64) int {
	n := 1
	for v > 0xFF {
		v >>= 8
		n++
	}
	if n > 8 {
		n = 8
	}
	return n
}

func minBytesSigned(v int64) int {
	// Minimal bytes such that sign-extending back reproduces v.
	n := 1
	for n < 8 {
		lo := int64(-1) << (8*n - 1)
		hi := ^lo
		if v >= lo && v <= hi {
			break
		}
		n++
	}
	return n
}

func signExtend32(v uint32) int64 {
	return int64(int32(v))
}
