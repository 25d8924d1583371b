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

package header

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Wrapped with context via fmt.Errorf("...: %w", ...)
// so callers can still errors.Is against the bare kind.
var (
	ErrSizeMismatch = errors.New("header: buffer length does not match field size")
	ErrOverflow     = errors.New("header: value exceeds field capacity")
	ErrOutOfBounds  = errors.New("header: region exceeds image bounds")
)

// Header is a typed view over a fixed Size-byte cartridge header block.
type Header struct {
	data []byte
}

// New constructs a Header from exactly Size bytes of header data. The
// returned Header owns a private copy; mutating it never affects data.
func New(data []byte) (*Header, error) {
	if len(data) != Size {
		return nil, fmt.Errorf("header: got %d bytes, want %d: %w", len(data), Size, ErrSizeMismatch)
	}
	h := &Header{data: make([]byte, Size)}
	copy(h.data, data)
	return h, nil
}

// Bytes returns a copy of the entire header block.
func (h *Header) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h.data)
	return out
}

// Get returns a copy of the raw bytes of field f.
func (h *Header) Get(f Field) []byte {
	if f == ENTIRE_HEADER {
		return h.Bytes()
	}
	end := f + Field(f.Len())
	out := make([]byte, f.Len())
	copy(out, h.data[f:end])
	return out
}

// Set writes raw bytes into field f. value must be exactly f.Len() bytes.
func (h *Header) Set(f Field, value []byte) error {
	if len(value) != f.Len() {
		return fmt.Errorf("header: field %#x wants %d bytes, got %d: %w", uint32(f), f.Len(), len(value), ErrSizeMismatch)
	}
	if f == ENTIRE_HEADER {
		copy(h.data, value)
		return nil
	}
	end := f + Field(f.Len())
	copy(h.data[f:end], value)
	return nil
}

// SetUint serialises value little-endian into field f. It fails if value
// does not fit in the field's byte length.
func (h *Header) SetUint(f Field, value uint64) error {
	n := f.Len()
	if n < 8 && value>>(uint(n)*8) != 0 {
		return fmt.Errorf("header: value %d overflows field %#x (%d bytes): %w", value, uint32(f), n, ErrOverflow)
	}
	buf := make([]byte, n)
	for i := 0; i < n && i < 8; i++ {
		buf[i] = byte(value >> (8 * uint(i)))
	}
	return h.Set(f, buf)
}

// GetLE interprets field f as a little-endian unsigned integer.
func (h *Header) GetLE(f Field) uint64 {
	raw := h.Get(f)
	var v uint64
	for i, b := range raw {
		if i >= 8 {
			break
		}
		v |= uint64(b) << (8 * uint(i))
	}
	return v
}

// RomRegion returns image[off : off+size], where off and size are read as
// little-endian integers from offsetField and sizeField respectively.
func (h *Header) RomRegion(image []byte, offsetField, sizeField Field) ([]byte, error) {
	off := h.GetLE(offsetField)
	size := h.GetLE(sizeField)
	end := off + size
	if end > uint64(len(image)) || off > end {
		return nil, fmt.Errorf("header: region [%d:%d] exceeds image of length %d: %w", off, end, len(image), ErrOutOfBounds)
	}
	return image[off:end], nil
}
