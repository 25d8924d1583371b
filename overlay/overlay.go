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

// Package overlay decodes and encodes a processor's overlay table: a run
// of fixed-size records describing relocatable code modules loaded on
// demand, each backed by a file in the cartridge's file allocation table.
package overlay

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformed is returned when an overlay table record references a file
// ID that does not exist, or reuses one already claimed by another record.
var ErrMalformed = errors.New("overlay: malformed overlay table")

// RecordSize is the on-disk byte size of a single overlay table entry.
const RecordSize = 32

// Entry is one overlay: a relocatable module with its own load address and
// static-initializer range, backed by the file payload at Data.
type Entry struct {
	ID            uint32
	RAMAddress    uint32
	RAMSize       uint32
	BSSSize       uint32
	SinitInit     uint32
	SinitInitEnd  uint32
	FileID        uint32
	Reserved      uint32
	Data          []byte
}

// Decode parses a packed overlay table and cross-references each record's
// file ID into files, the already-decoded FAT payload slice.
func Decode(table []byte, files [][]byte) ([]Entry, error) {
	if len(table)%RecordSize != 0 {
		return nil, fmt.Errorf("overlay: table size %d is not a multiple of %d", len(table), RecordSize)
	}
	n := len(table) / RecordSize
	entries := make([]Entry, n)
	seen := make(map[uint32]bool, n)

	for i := 0; i < n; i++ {
		off := i * RecordSize
		fileID := binary.LittleEndian.Uint32(table[off+24:])
		if fileID >= uint32(len(files)) {
			return nil, fmt.Errorf("overlay: record %d references file id %d beyond %d known files: %w", i, fileID, len(files), ErrMalformed)
		}
		if seen[fileID] {
			return nil, fmt.Errorf("overlay: file id %d is claimed by more than one overlay record: %w", fileID, ErrMalformed)
		}
		seen[fileID] = true

		entries[i] = Entry{
			ID:           binary.LittleEndian.Uint32(table[off:]),
			RAMAddress:   binary.LittleEndian.Uint32(table[off+4:]),
			RAMSize:      binary.LittleEndian.Uint32(table[off+8:]),
			BSSSize:      binary.LittleEndian.Uint32(table[off+12:]),
			SinitInit:    binary.LittleEndian.Uint32(table[off+16:]),
			SinitInitEnd: binary.LittleEndian.Uint32(table[off+20:]),
			FileID:       fileID,
			Reserved:     binary.LittleEndian.Uint32(table[off+28:]),
			Data:         files[fileID],
		}
	}
	return entries, nil
}

// Encode packs entries into an overlay table, assigning each a fresh file
// ID starting at startFileID in slice order. It returns the packed table
// and the payloads in file-ID order, ready to hand to fat.Encode.
func Encode(entries []Entry, startFileID int) (table []byte, payloads [][]byte) {
	table = make([]byte, RecordSize*len(entries))
	payloads = make([][]byte, len(entries))

	for i, e := range entries {
		fileID := uint32(startFileID + i)
		off := i * RecordSize
		binary.LittleEndian.PutUint32(table[off:], e.ID)
		binary.LittleEndian.PutUint32(table[off+4:], e.RAMAddress)
		binary.LittleEndian.PutUint32(table[off+8:], e.RAMSize)
		binary.LittleEndian.PutUint32(table[off+12:], e.BSSSize)
		binary.LittleEndian.PutUint32(table[off+16:], e.SinitInit)
		binary.LittleEndian.PutUint32(table[off+20:], e.SinitInitEnd)
		binary.LittleEndian.PutUint32(table[off+24:], fileID)
		binary.LittleEndian.PutUint32(table[off+28:], e.Reserved)
		payloads[i] = e.Data
	}
	return table, payloads
}
