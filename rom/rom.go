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

// Package rom decomposes a Nintendo DS cartridge ROM image into its
// structural parts and recomposes those parts back into a valid image.
package rom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"ndsrom/crc16"
	"ndsrom/fat"
	"ndsrom/fnt"
	"ndsrom/header"
	"ndsrom/overlay"
)

// Sentinel error kinds specific to whole-image decomposition/composition.
// MalformedFNT and MalformedOVT surface directly from the fnt and overlay
// packages; callers can match either the specific sentinel or these.
var (
	ErrTruncatedImage   = errors.New("rom: referenced region exceeds image bounds")
	ErrBadBanner        = errors.New("rom: banner region has the wrong size")
	ErrCapacityExceeded = errors.New("rom: composed image exceeds the largest supported cartridge capacity")
)

// BannerSize is the fixed byte length of the banner block.
const BannerSize = 0xA00

const (
	nitrocodeMagic = 0x2106C0DE
	nitrocodeSize  = 12
	alignment      = 512
)

// Standard DS ROM control words, written by the composer regardless of
// caller intent; see the open question recorded for this field in the
// project's design notes.
const (
	romctrlDec = 0x00416657
	romctrlEnc = 0x081808F8
)

// secureDelay is the conventional secure-area load delay cartridges report
// when no encrypted secure area is actually present.
const secureDelay = 0x0D7E

const (
	minCapacityExponent = 0
	maxCapacityExponent = 12
)

// StorageType selects the cartridge media family, which governs the
// default tail-fill byte a caller would normally choose.
type StorageType int

const (
	MROM StorageType = iota
	PROM
)

// Options controls Compose's layout and padding behaviour.
type Options struct {
	StorageType StorageType
	FillTail    bool
	FillWith    byte
}

// DefaultOptions returns the conventional padding choice for a storage
// type: mask ROMs are dumped with 0xFF-filled unused capacity, while
// programmable cartridges (flashable devkit media) conventionally ship
// zero-filled.
func DefaultOptions(st StorageType) Options {
	fill := byte(0xFF)
	if st == PROM {
		fill = 0x00
	}
	return Options{StorageType: st, FillTail: false, FillWith: fill}
}

// Rom is the decomposed form of a cartridge ROM image.
type Rom struct {
	Header       *header.Header
	ARM9         []byte
	ARM7         []byte
	ARM9Overlays []overlay.Entry
	ARM7Overlays []overlay.Entry
	Files        map[string][]byte
	FileOrder    []string
	Banner       []byte
}

// Decompose parses a raw ROM image into a Rom.
func Decompose(image []byte) (*Rom, error) {
	if len(image) < header.Size {
		return nil, fmt.Errorf("rom: image of %d bytes is shorter than the header: %w", len(image), ErrTruncatedImage)
	}
	h, err := header.New(image[:header.Size])
	if err != nil {
		return nil, err
	}

	fatRegion, err := romRegion(h, image, header.FATB_ROMOFFSET, header.FATB_BSIZE)
	if err != nil {
		return nil, err
	}
	files, fatOrder, err := fat.Decode(fatRegion, image)
	if err != nil {
		return nil, fmt.Errorf("rom: %w", err)
	}

	fntRegion, err := romRegion(h, image, header.FNTB_ROMOFFSET, header.FNTB_BSIZE)
	if err != nil {
		return nil, err
	}
	pathToID, err := fnt.Decode(fntRegion, len(files))
	if err != nil {
		return nil, err
	}
	idToPath := make(map[int]string, len(pathToID))
	for p, id := range pathToID {
		idToPath[id] = p
	}

	arm9Start := h.GetLE(header.ARM9_ROMOFFSET)
	arm9Len := h.GetLE(header.ARM9_LOADSIZE)
	arm9End := arm9Start + arm9Len
	if arm9End+nitrocodeSize <= uint64(len(image)) &&
		binary.LittleEndian.Uint32(image[arm9End:arm9End+4]) == nitrocodeMagic {
		arm9Len += nitrocodeSize
	}
	arm9, err := sliceImage(image, arm9Start, arm9Len)
	if err != nil {
		return nil, err
	}

	arm7, err := romRegion(h, image, header.ARM7_ROMOFFSET, header.ARM7_LOADSIZE)
	if err != nil {
		return nil, err
	}

	bannerOff := h.GetLE(header.BANNER_ROMOFFSET)
	banner, err := sliceImage(image, bannerOff, uint64(BannerSize))
	if err != nil {
		return nil, err
	}

	ovt9Region, err := romRegion(h, image, header.OVT9_ROMOFFSET, header.OVT9_BSIZE)
	if err != nil {
		return nil, err
	}
	arm9Overlays, err := overlay.Decode(ovt9Region, files)
	if err != nil {
		return nil, fmt.Errorf("rom: %w", err)
	}

	ovt7Region, err := romRegion(h, image, header.OVT7_ROMOFFSET, header.OVT7_BSIZE)
	if err != nil {
		return nil, err
	}
	arm7Overlays, err := overlay.Decode(ovt7Region, files)
	if err != nil {
		return nil, fmt.Errorf("rom: %w", err)
	}

	overlaidFileIDs := make(map[int]bool, len(arm9Overlays)+len(arm7Overlays))
	for _, ov := range arm9Overlays {
		overlaidFileIDs[int(ov.FileID)] = true
	}
	for _, ov := range arm7Overlays {
		overlaidFileIDs[int(ov.FileID)] = true
	}

	fileMap := make(map[string][]byte, len(pathToID))
	for p, id := range pathToID {
		fileMap[p] = files[id]
	}

	fileOrder := make([]string, 0, len(fatOrder))
	for _, id := range fatOrder {
		if overlaidFileIDs[id] {
			continue
		}
		if p, ok := idToPath[id]; ok {
			fileOrder = append(fileOrder, p)
		}
	}

	return &Rom{
		Header:       h,
		ARM9:         arm9,
		ARM7:         arm7,
		ARM9Overlays: arm9Overlays,
		ARM7Overlays: arm7Overlays,
		Files:        fileMap,
		FileOrder:    fileOrder,
		Banner:       banner,
	}, nil
}

// Compose lays out r's components into a fresh ROM image and finalises
// every derived header field, including the header CRC.
func Compose(r *Rom, opts Options) ([]byte, error) {
	if len(r.Banner) != BannerSize {
		return nil, fmt.Errorf("rom: banner is %d bytes, want %d: %w", len(r.Banner), BannerSize, ErrBadBanner)
	}

	paths := completeFileOrder(r.FileOrder, r.Files)

	n9 := len(r.ARM9Overlays)
	n7 := len(r.ARM7Overlays)
	regularStart := n9 + n7

	ovt9Table, ovt9Payloads := overlay.Encode(r.ARM9Overlays, 0)
	ovt7Table, ovt7Payloads := overlay.Encode(r.ARM7Overlays, n9)

	fntBytes, pathToID, err := fnt.Encode(paths, regularStart)
	if err != nil {
		return nil, err
	}

	h, err := header.New(r.Header.Bytes())
	if err != nil {
		return nil, err
	}

	records := make([]fat.Record, regularStart+len(paths))
	image := make([]byte, header.Size)

	place := func(data []byte) uint64 {
		off := uint64(len(image))
		image = append(image, data...)
		return off
	}
	padTo := func(target uint64) {
		if uint64(len(image)) < target {
			image = append(image, repeatByte(opts.FillWith, int(target-uint64(len(image))))...)
		}
	}
	alignCursor := func() {
		padTo(alignUp(uint64(len(image)), alignment))
	}

	alignCursor()
	arm9Off := place(r.ARM9)
	arm9LoadSize := uint64(len(r.ARM9))
	if len(r.ARM9) >= nitrocodeSize {
		tail := r.ARM9[len(r.ARM9)-nitrocodeSize:]
		if binary.LittleEndian.Uint32(tail) == nitrocodeMagic {
			arm9LoadSize -= nitrocodeSize
		}
	}

	alignCursor()
	ovt9Off := place(ovt9Table)
	for i, p := range ovt9Payloads {
		alignCursor()
		off := place(p)
		records[i] = fat.Record{Start: uint32(off), End: uint32(off) + uint32(len(p))}
	}

	alignCursor()
	arm7Off := place(r.ARM7)

	alignCursor()
	ovt7Off := place(ovt7Table)
	for i, p := range ovt7Payloads {
		alignCursor()
		off := place(p)
		records[n9+i] = fat.Record{Start: uint32(off), End: uint32(off) + uint32(len(p))}
	}

	alignCursor()
	fntOff := place(fntBytes)

	fatSize := uint64(fat.RecordSize * len(records))
	alignCursor()
	fatOff := place(make([]byte, fatSize))

	alignCursor()
	bannerOff := place(r.Banner)

	for _, p := range paths {
		alignCursor()
		data := r.Files[p]
		off := place(data)
		id := pathToID[p]
		records[id] = fat.Record{Start: uint32(off), End: uint32(off) + uint32(len(data))}
	}

	romSize := uint64(len(image))
	copy(image[fatOff:fatOff+fatSize], fat.EncodeTable(records))

	capExp, err := chipCapacityExponent(romSize)
	if err != nil {
		return nil, err
	}
	if opts.FillTail {
		padTo(capacityBytes(capExp))
	}

	if err := h.SetUint(header.ARM9_ROMOFFSET, arm9Off); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.ARM9_LOADSIZE, arm9LoadSize); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.ARM7_ROMOFFSET, arm7Off); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.ARM7_LOADSIZE, uint64(len(r.ARM7))); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.FNTB_ROMOFFSET, fntOff); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.FNTB_BSIZE, uint64(len(fntBytes))); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.FATB_ROMOFFSET, fatOff); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.FATB_BSIZE, fatSize); err != nil {
		return nil, err
	}

	if err := setOverlayTableFields(h, header.OVT9_ROMOFFSET, header.OVT9_BSIZE, ovt9Off, ovt9Table); err != nil {
		return nil, err
	}
	if err := setOverlayTableFields(h, header.OVT7_ROMOFFSET, header.OVT7_BSIZE, ovt7Off, ovt7Table); err != nil {
		return nil, err
	}

	if err := h.SetUint(header.BANNER_ROMOFFSET, bannerOff); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.ROMSIZE, romSize); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.HEADERSIZE, uint64(header.Size)); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.CHIPCAPACITY, uint64(capExp)); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.SECURE_DELAY, uint64(secureDelay)); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.ROMCTRL_DEC, uint64(romctrlDec)); err != nil {
		return nil, err
	}
	if err := h.SetUint(header.ROMCTRL_ENC, uint64(romctrlEnc)); err != nil {
		return nil, err
	}

	crc := crc16.Checksum(h.Bytes()[:header.HEADERCRC], crc16.Seed)
	if err := h.SetUint(header.HEADERCRC, uint64(crc)); err != nil {
		return nil, err
	}

	copy(image[:header.Size], h.Bytes())
	return image, nil
}

func setOverlayTableFields(h *header.Header, offsetField, sizeField header.Field, off uint64, table []byte) error {
	if len(table) == 0 {
		off = 0
	}
	if err := h.SetUint(offsetField, off); err != nil {
		return err
	}
	return h.SetUint(sizeField, uint64(len(table)))
}

// completeFileOrder appends any files-map keys missing from order, in
// lexicographic order, so layout is deterministic regardless of the
// non-deterministic iteration order of a Go map.
func completeFileOrder(order []string, files map[string][]byte) []string {
	inOrder := make(map[string]bool, len(order))
	for _, p := range order {
		inOrder[p] = true
	}
	var missing []string
	for p := range files {
		if !inOrder[p] {
			missing = append(missing, p)
		}
	}
	sort.Strings(missing)

	out := make([]string, 0, len(order)+len(missing))
	out = append(out, order...)
	out = append(out, missing...)
	return out
}

func romRegion(h *header.Header, image []byte, offsetField, sizeField header.Field) ([]byte, error) {
	off := h.GetLE(offsetField)
	size := h.GetLE(sizeField)
	return sliceImage(image, off, size)
}

func sliceImage(image []byte, off, size uint64) ([]byte, error) {
	end := off + size
	if off > end || end > uint64(len(image)) {
		return nil, fmt.Errorf("rom: region [%d:%d] exceeds image of length %d: %w", off, end, len(image), ErrTruncatedImage)
	}
	return image[off:end], nil
}

func chipCapacityExponent(romSize uint64) (uint32, error) {
	for n := uint32(minCapacityExponent); n <= maxCapacityExponent; n++ {
		if romSize <= capacityBytes(n) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("rom: size %d exceeds the largest supported cartridge capacity: %w", romSize, ErrCapacityExceeded)
}

func capacityBytes(n uint32) uint64 {
	return uint64(0x20000) << n
}

func alignUp(x, align uint64) uint64 {
	if align == 0 || x%align == 0 {
		return x
	}
	return x + (align - x%align)
}

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
