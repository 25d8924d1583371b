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

// Package fnt decodes and encodes the cartridge filename table: a radix
// tree of directory records and name-bearing sub-tables that forms a
// bijection between absolute path strings and numeric file IDs.
package fnt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel error kinds.
var (
	ErrMalformed     = errors.New("fnt: malformed filename table")
	ErrInvalidPath   = errors.New("fnt: invalid path")
	ErrNameTooLong   = errors.New("fnt: name exceeds maximum length")
	ErrDuplicatePath = errors.New("fnt: duplicate path")
)

// MaxNameLength is the longest name a single path component may have: the
// entry type byte reserves its top bit for the file/directory flag, so at
// most 127 bytes of name can follow.
const MaxNameLength = 127

const (
	rootDirID = 0xF000
	dirIDMask = 0x0FFF
)

type dirRecord struct {
	subTableOffset uint32
	firstFileID    uint16
	parentOrCount  uint16
}

func readDirRecord(fntb []byte, idx int) (dirRecord, error) {
	off := idx * 8
	if off+8 > len(fntb) {
		return dirRecord{}, fmt.Errorf("fnt: directory table truncated at index %d: %w", idx, ErrMalformed)
	}
	return dirRecord{
		subTableOffset: binary.LittleEndian.Uint32(fntb[off:]),
		firstFileID:    binary.LittleEndian.Uint16(fntb[off+4:]),
		parentOrCount:  binary.LittleEndian.Uint16(fntb[off+6:]),
	}, nil
}

// Decode walks the filename table and returns the absolute path → file ID
// bijection it encodes. fatFileCount bounds the file IDs the table may
// reference; it is normally len(files) from a matching fat.Decode call.
func Decode(fntb []byte, fatFileCount int) (map[string]int, error) {
	root, err := readDirRecord(fntb, 0)
	if err != nil {
		return nil, err
	}
	dirCount := int(root.parentOrCount)
	if dirCount < 1 || dirCount*8 > len(fntb) {
		return nil, fmt.Errorf("fnt: invalid directory count %d: %w", dirCount, ErrMalformed)
	}

	result := make(map[string]int)

	type queued struct {
		dirID int
		path  string
	}
	queue := []queued{{rootDirID, ""}}
	visited := make(map[int]bool)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		idx := cur.dirID & dirIDMask
		if idx < 0 || idx >= dirCount {
			return nil, fmt.Errorf("fnt: directory id %#x out of range (have %d directories): %w", cur.dirID, dirCount, ErrMalformed)
		}
		if visited[idx] {
			return nil, fmt.Errorf("fnt: directory id %#x referenced more than once: %w", cur.dirID, ErrMalformed)
		}
		visited[idx] = true

		rec, err := readDirRecord(fntb, idx)
		if err != nil {
			return nil, err
		}

		off := int(rec.subTableOffset)
		fileID := int(rec.firstFileID)
		for {
			if off >= len(fntb) {
				return nil, fmt.Errorf("fnt: unterminated sub-table for directory %#x: %w", cur.dirID, ErrMalformed)
			}
			t := fntb[off]
			off++
			if t == 0x00 {
				break
			}

			isSubdir := t&0x80 != 0
			nameLen := int(t & 0x7F)
			if off+nameLen > len(fntb) {
				return nil, fmt.Errorf("fnt: truncated name in directory %#x: %w", cur.dirID, ErrMalformed)
			}
			nameBytes := fntb[off : off+nameLen]
			for _, b := range nameBytes {
				if b == 0x00 || b == '/' {
					return nil, fmt.Errorf("fnt: name contains forbidden byte %#x: %w", b, ErrMalformed)
				}
			}
			name := string(nameBytes)
			off += nameLen
			path := cur.path + "/" + name

			if isSubdir {
				if off+2 > len(fntb) {
					return nil, fmt.Errorf("fnt: truncated subdirectory id in directory %#x: %w", cur.dirID, ErrMalformed)
				}
				subIdx := int(binary.LittleEndian.Uint16(fntb[off:])) & dirIDMask
				off += 2
				if subIdx >= dirCount {
					return nil, fmt.Errorf("fnt: subdirectory id %#x out of range (have %d directories): %w", subIdx, dirCount, ErrMalformed)
				}
				queue = append(queue, queued{rootDirID | subIdx, path})
			} else {
				if fileID >= fatFileCount {
					return nil, fmt.Errorf("fnt: file id %d exceeds fat file count %d: %w", fileID, fatFileCount, ErrMalformed)
				}
				result[path] = fileID
				fileID++
			}
		}
	}

	return result, nil
}

// node is a single entry in the directory tree built by Encode: either a
// directory with named children, or a leaf file.
type node struct {
	name     string
	isDir    bool
	parent   *node
	children map[string]*node

	id          int // directory id, meaningful only if isDir
	firstFileID int // meaningful only if isDir
	fileID      int // meaningful only if !isDir
}

func newDirNode(name string, parent *node) *node {
	return &node{name: name, isDir: true, parent: parent, children: make(map[string]*node)}
}

// Encode builds the directory tree implied by paths and packs it into a
// filename table, assigning each file a consecutive ID starting at
// startFileID in depth-first pre-order. It returns the packed table bytes
// and the path → file ID mapping it assigned.
func Encode(paths []string, startFileID int) ([]byte, map[string]int, error) {
	root, err := buildTree(paths)
	if err != nil {
		return nil, nil, err
	}

	var allDirs []*node
	assignIDs(root, startFileID, &allDirs)

	subTables := make([][]byte, len(allDirs))
	for i, d := range allDirs {
		subTables[i] = encodeSubTable(d)
	}

	tableSize := len(allDirs) * 8
	offsets := make([]uint32, len(allDirs))
	cursor := uint32(tableSize)
	for i, st := range subTables {
		offsets[i] = cursor
		cursor += uint32(len(st))
	}

	dirTable := make([]byte, tableSize)
	for i, d := range allDirs {
		off := i * 8
		binary.LittleEndian.PutUint32(dirTable[off:], offsets[i])
		binary.LittleEndian.PutUint16(dirTable[off+4:], uint16(d.firstFileID))
		if i == 0 {
			binary.LittleEndian.PutUint16(dirTable[off+6:], uint16(len(allDirs)))
		} else {
			binary.LittleEndian.PutUint16(dirTable[off+6:], uint16(d.parent.id))
		}
	}

	fntb := make([]byte, 0, len(dirTable)+int(cursor)-tableSize)
	fntb = append(fntb, dirTable...)
	for _, st := range subTables {
		fntb = append(fntb, st...)
	}

	pathToID := make(map[string]int)
	collectPaths(root, "", pathToID)

	return fntb, pathToID, nil
}

// buildTree splits every path on '/' and assembles the directory tree,
// validating path syntax and rejecting name collisions along the way.
func buildTree(paths []string) (*node, error) {
	root := newDirNode("", nil)
	seen := make(map[string]bool, len(paths))

	for _, p := range paths {
		if seen[p] {
			return nil, fmt.Errorf("fnt: duplicate path %q: %w", p, ErrDuplicatePath)
		}
		seen[p] = true

		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("fnt: path %q must start with '/': %w", p, ErrInvalidPath)
		}
		parts := strings.Split(p[1:], "/")
		cur := root
		for i, part := range parts {
			if part == "" {
				return nil, fmt.Errorf("fnt: path %q has an empty component: %w", p, ErrInvalidPath)
			}
			if len(part) > MaxNameLength {
				return nil, fmt.Errorf("fnt: name %q exceeds %d bytes: %w", part, MaxNameLength, ErrNameTooLong)
			}
			if strings.IndexByte(part, 0x00) >= 0 {
				return nil, fmt.Errorf("fnt: name %q contains a NUL byte: %w", part, ErrInvalidPath)
			}

			isLast := i == len(parts)-1
			existing, ok := cur.children[part]
			if isLast {
				if ok {
					return nil, fmt.Errorf("fnt: duplicate path %q: %w", p, ErrDuplicatePath)
				}
				cur.children[part] = &node{name: part, isDir: false, parent: cur}
				continue
			}
			if ok {
				if !existing.isDir {
					return nil, fmt.Errorf("fnt: %q is used as both a file and a directory: %w", part, ErrInvalidPath)
				}
				cur = existing
				continue
			}
			child := newDirNode(part, cur)
			cur.children[part] = child
			cur = child
		}
	}
	return root, nil
}

// assignIDs numbers every directory and file in depth-first pre-order:
// a directory's own files are assigned consecutive IDs as soon as it is
// visited, before recursing into its subdirectories.
func assignIDs(root *node, startFileID int, allDirs *[]*node) {
	root.id = rootDirID
	nextDirID := rootDirID + 1
	nextFileID := startFileID

	var visit func(n *node)
	visit = func(n *node) {
		*allDirs = append(*allDirs, n)
		n.firstFileID = nextFileID

		children := sortedChildren(n)
		for _, c := range children {
			if !c.isDir {
				c.fileID = nextFileID
				nextFileID++
			}
		}
		for _, c := range children {
			if c.isDir {
				c.id = nextDirID
				nextDirID++
				visit(c)
			}
		}
	}
	visit(root)
}

func encodeSubTable(d *node) []byte {
	var buf []byte
	for _, c := range sortedChildren(d) {
		if c.isDir {
			buf = append(buf, byte(0x80|len(c.name)))
			buf = append(buf, c.name...)
			var idBuf [2]byte
			binary.LittleEndian.PutUint16(idBuf[:], uint16(c.id))
			buf = append(buf, idBuf[:]...)
		} else {
			buf = append(buf, byte(len(c.name)))
			buf = append(buf, c.name...)
		}
	}
	return append(buf, 0x00)
}

func collectPaths(n *node, prefix string, out map[string]int) {
	for _, c := range sortedChildren(n) {
		path := prefix + "/" + c.name
		if c.isDir {
			collectPaths(c, path, out)
		} else {
			out[path] = c.fileID
		}
	}
}

func sortedChildren(n *node) []*node {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*node, len(names))
	for i, name := range names {
		out[i] = n.children[name]
	}
	return out
}
