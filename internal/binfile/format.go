// format.go: on-disk wire format for CNanoLog binary log files
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0

package binfile

import (
	"encoding/binary"
	"fmt"
)

// ArgType identifies the wire representation of one positional log argument.
// FLOAT is deliberately absent: callers widen float32 to float64 before the
// type vector is ever recorded, so only ArgDouble appears on the wire.
type ArgType uint8

const (
	ArgInt32 ArgType = iota
	ArgInt64
	ArgUint32
	ArgUint64
	ArgDouble
	ArgString
	ArgPointer
)

// String returns the canonical name of the argument type.
func (t ArgType) String() string {
	switch t {
	case ArgInt32:
		return "int32"
	case ArgInt64:
		return "int64"
	case ArgUint32:
		return "uint32"
	case ArgUint64:
		return "uint64"
	case ArgDouble:
		return "double"
	case ArgString:
		return "string"
	case ArgPointer:
		return "pointer"
	default:
		return fmt.Sprintf("argtype(%d)", uint8(t))
	}
}

// FixedWidth returns the number of bytes the type occupies in the
// uncompressed packed representation, or 0 for ArgString (variable length).
func (t ArgType) FixedWidth() int {
	switch t {
	case ArgInt32, ArgUint32:
		return 4
	case ArgInt64, ArgUint64, ArgDouble, ArgPointer:
		return 8
	default:
		return 0
	}
}

// MaxArgs is the maximum number of positional arguments a single log site
// may declare.
const MaxArgs = 16

// WrapMarker is the sentinel log_id written in-band in a staging buffer to
// tell the consumer that the producer wrapped back to offset 0. It is never
// written to disk.
const WrapMarker uint32 = 0xFFFFFFFF

// StringLimit is the largest string length (in bytes) that is packed
// without truncation. Longer strings are truncated to this length
// silently, without an error.
const StringLimit = 1<<16 - 1

// EntryHeaderSize is the encoded size, in bytes, of EntryHeader.
const EntryHeaderSize = 4 + 8 + 2

// MaxEntryPayload is the largest payload (post-compression) a single entry
// may carry, derived from a 4 KiB entry cap minus the header.
const MaxEntryPayload = 4096 - EntryHeaderSize

// EntryHeader precedes every framed entry, both in a staging buffer and on
// disk. A wrap marker is an EntryHeader with LogID == WrapMarker and
// DataLength == 0.
type EntryHeader struct {
	LogID      uint32
	Timestamp  uint64
	DataLength uint16
}

// Encode writes the header into dst[:EntryHeaderSize] in little-endian form.
// dst must have at least EntryHeaderSize bytes.
func (h EntryHeader) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], h.LogID)
	binary.LittleEndian.PutUint64(dst[4:12], h.Timestamp)
	binary.LittleEndian.PutUint16(dst[12:14], h.DataLength)
}

// DecodeEntryHeader reads an EntryHeader from src[:EntryHeaderSize].
func DecodeEntryHeader(src []byte) EntryHeader {
	return EntryHeader{
		LogID:      binary.LittleEndian.Uint32(src[0:4]),
		Timestamp:  binary.LittleEndian.Uint64(src[4:12]),
		DataLength: binary.LittleEndian.Uint16(src[12:14]),
	}
}

// IsWrapMarker reports whether the header represents an in-band wrap
// marker rather than a real entry.
func (h EntryHeader) IsWrapMarker() bool {
	return h.LogID == WrapMarker
}

// LogSite is the immutable record identifying one call site, keyed by the
// 5-tuple (File, Line, Format, Level, ArgTypes). It is assigned a dense,
// monotonically increasing LogID on first registration and is written
// verbatim into every dictionary trailer from that point on.
type LogSite struct {
	LogID    uint32
	Level    uint8
	File     string
	Line     uint32
	Format   string
	NumArgs  uint8
	ArgTypes [MaxArgs]ArgType
}

// Magic identifies a CNanoLog binary log file and doubles as the
// endianness marker stored in the header.
const Magic uint32 = 0x434E4C47 // "CNLG"

// VersionMajor and VersionMinor identify the on-disk format version
// produced by this package.
const (
	VersionMajor uint16 = 1
	VersionMinor uint16 = 0
)

// FileHeaderSize is the fixed, encoded size of FileHeader.
const FileHeaderSize = 4 + 2 + 2 + 8 + 8 + 8 + 4 + 4 + 8 + 8

// FileHeader is the fixed header at offset 0 of every CNanoLog file.
// DictionaryOffset and EntryCount are placeholders at create time and are
// patched in place when the file is closed.
type FileHeader struct {
	Magic               uint32
	VersionMajor        uint16
	VersionMinor        uint16
	TimestampFrequency  uint64
	StartTimestamp      uint64
	StartTimeSec        int64
	StartTimeNsec       int32
	Endianness          uint32
	DictionaryOffset    uint64
	EntryCount          uint64
}

// Encode writes the header into dst[:FileHeaderSize] in little-endian form.
func (h FileHeader) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], h.Magic)
	binary.LittleEndian.PutUint16(dst[4:6], h.VersionMajor)
	binary.LittleEndian.PutUint16(dst[6:8], h.VersionMinor)
	binary.LittleEndian.PutUint64(dst[8:16], h.TimestampFrequency)
	binary.LittleEndian.PutUint64(dst[16:24], h.StartTimestamp)
	binary.LittleEndian.PutUint64(dst[24:32], uint64(h.StartTimeSec))
	binary.LittleEndian.PutUint32(dst[32:36], uint32(h.StartTimeNsec))
	binary.LittleEndian.PutUint32(dst[36:40], h.Endianness)
	binary.LittleEndian.PutUint64(dst[40:48], h.DictionaryOffset)
	binary.LittleEndian.PutUint64(dst[48:56], h.EntryCount)
}

// DecodeFileHeader reads a FileHeader from src[:FileHeaderSize].
func DecodeFileHeader(src []byte) FileHeader {
	return FileHeader{
		Magic:              binary.LittleEndian.Uint32(src[0:4]),
		VersionMajor:       binary.LittleEndian.Uint16(src[4:6]),
		VersionMinor:       binary.LittleEndian.Uint16(src[6:8]),
		TimestampFrequency: binary.LittleEndian.Uint64(src[8:16]),
		StartTimestamp:     binary.LittleEndian.Uint64(src[16:24]),
		StartTimeSec:       int64(binary.LittleEndian.Uint64(src[24:32])),
		StartTimeNsec:      int32(binary.LittleEndian.Uint32(src[32:36])),
		Endianness:         binary.LittleEndian.Uint32(src[36:40]),
		DictionaryOffset:   binary.LittleEndian.Uint64(src[40:48]),
		EntryCount:         binary.LittleEndian.Uint64(src[48:56]),
	}
}

// DictHeaderSize is the fixed, encoded size of the dictionary trailer's
// own header.
const DictHeaderSize = 4 + 4 + 4 + 4

// DictHeader begins the dictionary trailer written at FileHeader.DictionaryOffset.
type DictHeader struct {
	DictMagic  uint32
	NumEntries uint32
	TotalSize  uint32
	Reserved   uint32
}

func (h DictHeader) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], h.DictMagic)
	binary.LittleEndian.PutUint32(dst[4:8], h.NumEntries)
	binary.LittleEndian.PutUint32(dst[8:12], h.TotalSize)
	binary.LittleEndian.PutUint32(dst[12:16], h.Reserved)
}

func DecodeDictHeader(src []byte) DictHeader {
	return DictHeader{
		DictMagic:  binary.LittleEndian.Uint32(src[0:4]),
		NumEntries: binary.LittleEndian.Uint32(src[4:8]),
		TotalSize:  binary.LittleEndian.Uint32(src[8:12]),
		Reserved:   binary.LittleEndian.Uint32(src[12:16]),
	}
}

// SiteRecordFixedSize is the fixed-size prefix of a dictionary site record,
// not counting the variable-length filename and format strings that follow.
const SiteRecordFixedSize = 4 + 1 + 1 + 2 + 2 + 4 + MaxArgs

// EncodeSiteRecord appends the wire representation of site to dst and
// returns the grown slice.
func EncodeSiteRecord(dst []byte, site *LogSite) []byte {
	var fixed [SiteRecordFixedSize]byte
	binary.LittleEndian.PutUint32(fixed[0:4], site.LogID)
	fixed[4] = site.Level
	fixed[5] = site.NumArgs
	binary.LittleEndian.PutUint16(fixed[6:8], uint16(len(site.File)))
	binary.LittleEndian.PutUint16(fixed[8:10], uint16(len(site.Format)))
	binary.LittleEndian.PutUint32(fixed[10:14], site.Line)
	for i := 0; i < MaxArgs; i++ {
		if i < int(site.NumArgs) {
			fixed[14+i] = byte(site.ArgTypes[i])
		}
	}
	dst = append(dst, fixed[:]...)
	dst = append(dst, site.File...)
	dst = append(dst, site.Format...)
	return dst
}

// DecodeSiteRecord reads one site record from src, returning the site and
// the number of bytes consumed.
func DecodeSiteRecord(src []byte) (*LogSite, int, error) {
	if len(src) < SiteRecordFixedSize {
		return nil, 0, fmt.Errorf("binfile: truncated site record")
	}
	site := &LogSite{
		LogID:   binary.LittleEndian.Uint32(src[0:4]),
		Level:   src[4],
		NumArgs: src[5],
	}
	fileLen := int(binary.LittleEndian.Uint16(src[6:8]))
	fmtLen := int(binary.LittleEndian.Uint16(src[8:10]))
	site.Line = binary.LittleEndian.Uint32(src[10:14])
	for i := 0; i < MaxArgs; i++ {
		site.ArgTypes[i] = ArgType(src[14+i])
	}
	off := SiteRecordFixedSize
	if len(src) < off+fileLen+fmtLen {
		return nil, 0, fmt.Errorf("binfile: truncated site record strings")
	}
	site.File = string(src[off : off+fileLen])
	off += fileLen
	site.Format = string(src[off : off+fmtLen])
	off += fmtLen
	return site, off, nil
}

// CustomLevel is a user-registered level name/value pair carried in the
// dictionary trailer alongside the sites.
type CustomLevel struct {
	Value uint8
	Name  string
}

// EncodeCustomLevel appends the wire representation of lvl to dst.
func EncodeCustomLevel(dst []byte, lvl CustomLevel) []byte {
	nameLen := len(lvl.Name)
	if nameLen > 255 {
		nameLen = 255
	}
	dst = append(dst, lvl.Value, byte(nameLen))
	dst = append(dst, lvl.Name[:nameLen]...)
	return dst
}

// DecodeCustomLevel reads one custom level record from src, returning it
// and the number of bytes consumed.
func DecodeCustomLevel(src []byte) (CustomLevel, int, error) {
	if len(src) < 2 {
		return CustomLevel{}, 0, fmt.Errorf("binfile: truncated custom level record")
	}
	value := src[0]
	nameLen := int(src[1])
	if len(src) < 2+nameLen {
		return CustomLevel{}, 0, fmt.Errorf("binfile: truncated custom level name")
	}
	return CustomLevel{Value: value, Name: string(src[2 : 2+nameLen])}, 2 + nameLen, nil
}
