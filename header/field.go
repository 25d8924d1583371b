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

// Package header provides a typed view over the 0x4000-byte cartridge
// header block shared by every Nintendo DS ROM image.
package header

// Field identifies a named region of the header. Its length is implicit:
// the byte distance to the field that follows it in declaration order.
type Field uint32

// Field offsets, taken from the card header layout. Unlisted byte ranges
// between two declared fields (reserved bytes, fields this codec never
// needs to address individually) are simply absorbed into the preceding
// field's length.
const (
	TITLE            Field = 0x000
	SERIAL           Field = 0x00C
	MAKER            Field = 0x010
	CHIPCAPACITY     Field = 0x014
	REVISION         Field = 0x01E
	ARM9_ROMOFFSET   Field = 0x020
	ARM9_ENTRYPOINT  Field = 0x024
	ARM9_LOADADDR    Field = 0x028
	ARM9_LOADSIZE    Field = 0x02C
	ARM7_ROMOFFSET   Field = 0x030
	ARM7_ENTRYPOINT  Field = 0x034
	ARM7_LOADADDR    Field = 0x038
	ARM7_LOADSIZE    Field = 0x03C
	FNTB_ROMOFFSET   Field = 0x040
	FNTB_BSIZE       Field = 0x044
	FATB_ROMOFFSET   Field = 0x048
	FATB_BSIZE       Field = 0x04C
	OVT9_ROMOFFSET   Field = 0x050
	OVT9_BSIZE       Field = 0x054
	OVT7_ROMOFFSET   Field = 0x058
	OVT7_BSIZE       Field = 0x05C
	ROMCTRL_DEC      Field = 0x060
	ROMCTRL_ENC      Field = 0x064
	BANNER_ROMOFFSET Field = 0x068
	SECURECRC        Field = 0x06C
	SECURE_DELAY     Field = 0x06E
	ARM9_AUTOLOADCB  Field = 0x070
	ARM7_AUTOLOADCB  Field = 0x074
	ROMSIZE          Field = 0x080
	HEADERSIZE       Field = 0x084
	STATICFOOTER     Field = 0x088
	HEADERCRC        Field = 0x15E

	// HEADERCRC_END is a sentinel marking the byte past HEADERCRC, so that
	// HEADERCRC itself has a well-defined length (2 bytes). It names no
	// field a caller should ever read or write directly.
	HEADERCRC_END Field = 0x160

	// ENTIRE_HEADER is a sentinel equal to the header's total size. It is
	// a fixed point of Succ: Succ(ENTIRE_HEADER) == ENTIRE_HEADER.
	ENTIRE_HEADER Field = Size
)

// Size is the fixed byte length of every DS cartridge header.
const Size = 0x4000

// fieldOrder lists every field in ascending declaration order, including
// both sentinels. Succ and Len are defined purely in terms of this slice.
var fieldOrder = []Field{
	TITLE, SERIAL, MAKER, CHIPCAPACITY, REVISION,
	ARM9_ROMOFFSET, ARM9_ENTRYPOINT, ARM9_LOADADDR, ARM9_LOADSIZE,
	ARM7_ROMOFFSET, ARM7_ENTRYPOINT, ARM7_LOADADDR, ARM7_LOADSIZE,
	FNTB_ROMOFFSET, FNTB_BSIZE, FATB_ROMOFFSET, FATB_BSIZE,
	OVT9_ROMOFFSET, OVT9_BSIZE, OVT7_ROMOFFSET, OVT7_BSIZE,
	ROMCTRL_DEC, ROMCTRL_ENC, BANNER_ROMOFFSET,
	SECURECRC, SECURE_DELAY, ARM9_AUTOLOADCB, ARM7_AUTOLOADCB,
	ROMSIZE, HEADERSIZE, STATICFOOTER,
	HEADERCRC, HEADERCRC_END, ENTIRE_HEADER,
}

// Succ returns the field immediately following f in the schema. It is a
// fixed point at ENTIRE_HEADER.
func (f Field) Succ() Field {
	for i, fld := range fieldOrder {
		if fld == f {
			if i == len(fieldOrder)-1 {
				return f
			}
			return fieldOrder[i+1]
		}
	}
	return f
}

// Len reports how many bytes f occupies: the distance to its successor.
// ENTIRE_HEADER's length is the whole header.
func (f Field) Len() int {
	if f == ENTIRE_HEADER {
		return Size
	}
	return int(f.Succ() - f)
}
