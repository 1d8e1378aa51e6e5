// converter.go: decodes a CNanoLog binary file into JSON records
//
// Grounded on the teacher's cmd/iris-export/converter.go (BinaryToJSONConverter,
// Convert(io.Reader, io.Writer)), adapted from Iris's text-encoder decode
// path to CNanoLog's binary dictionary + varint-compressed entry format.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/zachgenius/cnanolog/internal/binfile"
	"github.com/zachgenius/cnanolog/internal/varint"
)

// record is one decoded log entry, in the shape written to the output
// stream as a single JSON line.
type record struct {
	LogID     uint32        `json:"log_id"`
	Timestamp int64         `json:"timestamp_ns"`
	Level     uint8         `json:"level"`
	File      string        `json:"file"`
	Line      uint32        `json:"line"`
	Format    string        `json:"format"`
	Args      []interface{} `json:"args"`
}

// Converter decodes a CNanoLog binary file and writes one JSON object per
// line to its output.
type Converter struct {
	Pretty bool
}

// NewConverter returns a Converter; pretty controls indented JSON output.
func NewConverter(pretty bool) *Converter {
	return &Converter{Pretty: pretty}
}

// ConvertFile decodes inputPath and writes JSON records to w.
func (c *Converter) ConvertFile(inputPath string, w io.Writer) error {
	// #nosec G304 -- inputPath is an operator-supplied CLI argument
	fp, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer fp.Close()

	hdr, err := binfile.ReadFileHeader(fp)
	if err != nil {
		return err
	}
	sites, _, err := binfile.ReadDictionary(fp, hdr)
	if err != nil {
		return err
	}
	byID := make(map[uint32]*binfile.LogSite, len(sites))
	for _, s := range sites {
		byID[s.LogID] = s
	}

	enc := json.NewEncoder(w)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}

	// Decompression only ever grows truncated integers back to their
	// fixed width (at most 8 bytes per argument); this comfortably
	// bounds the uncompressed size of any entry within MaxEntryPayload.
	scratch := make([]byte, binfile.MaxEntryPayload+binfile.MaxArgs*8)
	return binfile.ReadEntries(fp, hdr, func(eh binfile.EntryHeader, payload []byte) error {
		site, ok := byID[eh.LogID]
		if !ok {
			return fmt.Errorf("entry references unknown log_id %d", eh.LogID)
		}
		n, err := varint.Decompress(site, payload, scratch)
		if err != nil {
			return fmt.Errorf("decompress entry for log_id %d: %w", eh.LogID, err)
		}
		args, err := decodeArgs(site, scratch[:n])
		if err != nil {
			return fmt.Errorf("decode args for log_id %d: %w", eh.LogID, err)
		}
		rec := record{
			LogID:     eh.LogID,
			Timestamp: int64(eh.Timestamp),
			Level:     site.Level,
			File:      site.File,
			Line:      site.Line,
			Format:    site.Format,
			Args:      args,
		}
		return enc.Encode(rec)
	})
}

// decodeArgs reads the uncompressed packed payload back into generic
// values suitable for JSON encoding, in site.ArgTypes order.
func decodeArgs(site *binfile.LogSite, packed []byte) ([]interface{}, error) {
	out := make([]interface{}, 0, site.NumArgs)
	off := 0
	for i := 0; i < int(site.NumArgs); i++ {
		switch site.ArgTypes[i] {
		case binfile.ArgInt32:
			if off+4 > len(packed) {
				return nil, fmt.Errorf("truncated int32 arg %d", i)
			}
			out = append(out, int32(binary.LittleEndian.Uint32(packed[off:off+4])))
			off += 4
		case binfile.ArgUint32:
			if off+4 > len(packed) {
				return nil, fmt.Errorf("truncated uint32 arg %d", i)
			}
			out = append(out, binary.LittleEndian.Uint32(packed[off:off+4]))
			off += 4
		case binfile.ArgInt64:
			if off+8 > len(packed) {
				return nil, fmt.Errorf("truncated int64 arg %d", i)
			}
			out = append(out, int64(binary.LittleEndian.Uint64(packed[off:off+8])))
			off += 8
		case binfile.ArgUint64:
			if off+8 > len(packed) {
				return nil, fmt.Errorf("truncated uint64 arg %d", i)
			}
			out = append(out, binary.LittleEndian.Uint64(packed[off:off+8]))
			off += 8
		case binfile.ArgDouble:
			if off+8 > len(packed) {
				return nil, fmt.Errorf("truncated double arg %d", i)
			}
			out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(packed[off:off+8])))
			off += 8
		case binfile.ArgPointer:
			if off+8 > len(packed) {
				return nil, fmt.Errorf("truncated pointer arg %d", i)
			}
			out = append(out, fmt.Sprintf("0x%x", binary.LittleEndian.Uint64(packed[off:off+8])))
			off += 8
		case binfile.ArgString:
			if off+2 > len(packed) {
				return nil, fmt.Errorf("truncated string header arg %d", i)
			}
			l := int(binary.LittleEndian.Uint16(packed[off : off+2]))
			off += 2
			if off+l > len(packed) {
				return nil, fmt.Errorf("truncated string arg %d", i)
			}
			out = append(out, string(packed[off:off+l]))
			off += l
		default:
			return nil, fmt.Errorf("unknown arg type %d for arg %d", site.ArgTypes[i], i)
		}
	}
	return out, nil
}
