// Copyright (c) 2024 ndsrom Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Alternatively, this file may be used under the terms of the MIT license:
//
// Copyright (c) 2024 ndsrom Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package fat decodes and encodes the cartridge's file allocation table: an
// array of 8-byte (start, end) byte ranges into the ROM image, one per
// file ID.
package fat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// ErrOutOfBounds is returned when a FAT record describes a byte range that
// does not fit within the ROM image it indexes into.
var ErrOutOfBounds = errors.New("fat: record exceeds rom bounds")

// RecordSize is the on-disk byte size of a single FAT record.
const RecordSize = 8

// DefaultAlignment is the byte boundary every FAT region starts on within
// the composed ROM image, unless an Assignment overrides it.
const DefaultAlignment = 512

// Record is one FAT entry: the half-open byte range of a file's payload
// within the ROM image. A file's ID is its index into the decoded slice.
type Record struct {
	Start uint32
	End   uint32
}

// Decode parses the FAT region fatb and slices each record's payload out of
// rom. It also returns the file IDs (FAT indices) in ascending order of
// their Start offset — the physical placement order of files in the image.
func Decode(fatb []byte, rom []byte) (files [][]byte, order []int, err error) {
	if len(fatb)%RecordSize != 0 {
		return nil, nil, fmt.Errorf("fat: table size %d is not a multiple of %d", len(fatb), RecordSize)
	}
	n := len(fatb) / RecordSize
	records := make([]Record, n)
	for i := 0; i < n; i++ {
		off := i * RecordSize
		records[i] = Record{
			Start: binary.LittleEndian.Uint32(fatb[off:]),
			End:   binary.LittleEndian.Uint32(fatb[off+4:]),
		}
	}

	files = make([][]byte, n)
	for i, r := range records {
		if r.Start > r.End || uint64(r.End) > uint64(len(rom)) {
			return nil, nil, fmt.Errorf("fat: record %d [%d:%d] exceeds rom of length %d: %w", i, r.Start, r.End, len(rom), ErrOutOfBounds)
		}
		files[i] = rom[r.Start:r.End]
	}

	order = make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return records[order[a]].Start < records[order[b]].Start })
	return files, order, nil
}

// Assignment is one payload to place in the FAT region, keyed by the file
// ID it must end up addressable as. Alignment overrides DefaultAlignment
// when non-zero.
type Assignment struct {
	FileID    int
	Payload   []byte
	Alignment uint32
}

// Encode lays out assignments' payloads end-to-end starting at the aligned
// ROM offset base, rounding each payload's start up to its required
// alignment, and returns the concatenated payload bytes together with the
// packed FAT table indexed by file ID (not by layout order). Padding bytes
// introduced by alignment are filled with fillWith.
func Encode(base uint32, assignments []Assignment, fillWith byte) (data []byte, table []byte) {
	maxID := -1
	for _, a := range assignments {
		if a.FileID > maxID {
			maxID = a.FileID
		}
	}
	records := make([]Record, maxID+1)

	var buf []byte
	cursor := base
	for _, a := range assignments {
		align := a.Alignment
		if align == 0 {
			align = DefaultAlignment
		}
		aligned := alignUp(cursor, align)
		if aligned > cursor {
			buf = append(buf, repeat(fillWith, int(aligned-cursor))...)
		}
		start := aligned
		buf = append(buf, a.Payload...)
		end := start + uint32(len(a.Payload))
		records[a.FileID] = Record{Start: start, End: end}
		cursor = end
	}

	table = make([]byte, RecordSize*len(records))
	for i, r := range records {
		off := i * RecordSize
		binary.LittleEndian.PutUint32(table[off:], r.Start)
		binary.LittleEndian.PutUint32(table[off+4:], r.End)
	}
	return buf, table
}

// EncodeTable serialises a slice of Records, already positioned by the
// caller, into a FAT table indexed by file ID. Unlike Encode, it performs
// no layout of its own — it exists for composers that must interleave FAT
// payloads with other regions and so compute offsets themselves.
func EncodeTable(records []Record) []byte {
	table := make([]byte, RecordSize*len(records))
	for i, r := range records {
		off := i * RecordSize
		binary.LittleEndian.PutUint32(table[off:], r.Start)
		binary.LittleEndian.PutUint32(table[off+4:], r.End)
	}
	return table
}

func alignUp(x, align uint32) uint32 {
	if align == 0 || x%align == 0 {
		return x
	}
	return x + (align - x%align)
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
