// reader.go: read-side helpers for the CNanoLog binary format
//
// These are the minimal primitives the out-of-scope decompressor tool
// (spec §1 "external collaborators") needs to round-trip a file this
// package wrote; CNanoLog's core never reads its own output back.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package binfile

import (
	"fmt"
	"io"
	"os"
)

// ReadFileHeader reads and decodes the fixed header at offset 0.
func ReadFileHeader(fp *os.File) (FileHeader, error) {
	var buf [FileHeaderSize]byte
	if _, err := fp.ReadAt(buf[:], 0); err != nil {
		return FileHeader{}, fmt.Errorf("binfile: read header: %w", err)
	}
	hdr := DecodeFileHeader(buf[:])
	if hdr.Magic != Magic {
		return FileHeader{}, fmt.Errorf("binfile: bad magic %#x", hdr.Magic)
	}
	return hdr, nil
}

// ReadDictionary reads and decodes the dictionary trailer at the offset
// recorded in hdr.
func ReadDictionary(fp *os.File, hdr FileHeader) ([]*LogSite, []CustomLevel, error) {
	if _, err := fp.Seek(int64(hdr.DictionaryOffset), io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("binfile: seek dictionary: %w", err)
	}
	rest, err := io.ReadAll(fp)
	if err != nil {
		return nil, nil, fmt.Errorf("binfile: read dictionary: %w", err)
	}
	if len(rest) < DictHeaderSize {
		return nil, nil, fmt.Errorf("binfile: truncated dictionary header")
	}
	dictHdr := DecodeDictHeader(rest)
	if dictHdr.DictMagic != Magic {
		return nil, nil, fmt.Errorf("binfile: bad dictionary magic %#x", dictHdr.DictMagic)
	}

	off := DictHeaderSize
	sites := make([]*LogSite, 0, dictHdr.NumEntries)
	for i := uint32(0); i < dictHdr.NumEntries; i++ {
		site, n, err := DecodeSiteRecord(rest[off:])
		if err != nil {
			return nil, nil, err
		}
		sites = append(sites, site)
		off += n
	}

	var levels []CustomLevel
	if off+4 <= len(rest) {
		numLevels := uint32(rest[off]) | uint32(rest[off+1])<<8 | uint32(rest[off+2])<<16 | uint32(rest[off+3])<<24
		off += 4
		levels = make([]CustomLevel, 0, numLevels)
		for i := uint32(0); i < numLevels; i++ {
			lvl, n, err := DecodeCustomLevel(rest[off:])
			if err != nil {
				return nil, nil, err
			}
			levels = append(levels, lvl)
			off += n
		}
	}

	return sites, levels, nil
}

// ReadEntries reads every entry between the end of the file header and
// hdr.DictionaryOffset, invoking fn for each one in file order.
func ReadEntries(fp *os.File, hdr FileHeader, fn func(EntryHeader, []byte) error) error {
	if _, err := fp.Seek(FileHeaderSize, io.SeekStart); err != nil {
		return fmt.Errorf("binfile: seek entries: %w", err)
	}
	end := int64(hdr.DictionaryOffset)
	pos := int64(FileHeaderSize)

	var hdrBuf [EntryHeaderSize]byte
	for pos < end {
		if _, err := io.ReadFull(fp, hdrBuf[:]); err != nil {
			return fmt.Errorf("binfile: read entry header: %w", err)
		}
		eh := DecodeEntryHeader(hdrBuf[:])
		payload := make([]byte, eh.DataLength)
		if eh.DataLength > 0 {
			if _, err := io.ReadFull(fp, payload); err != nil {
				return fmt.Errorf("binfile: read entry payload: %w", err)
			}
		}
		if err := fn(eh, payload); err != nil {
			return err
		}
		pos += EntryHeaderSize + int64(eh.DataLength)
	}
	return nil
}
