package fat

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func buildFatb(records ...Record) []byte {
	buf := make([]byte, RecordSize*len(records))
	for i, r := range records {
		off := i * RecordSize
		binary.LittleEndian.PutUint32(buf[off:], r.Start)
		binary.LittleEndian.PutUint32(buf[off+4:], r.End)
	}
	return buf
}

func TestDecodeOrdersByStartOffset(t *testing.T) {
	rom := make([]byte, 100)
	fatb := buildFatb(
		Record{Start: 50, End: 60}, // file 0
		Record{Start: 10, End: 20}, // file 1
	)
	files, order, err := Decode(fatb, rom)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(files))
	assert.Equal(t, []int{1, 0}, order)
}

func TestDecodeRejectsOutOfBounds(t *testing.T) {
	rom := make([]byte, 10)
	fatb := buildFatb(Record{Start: 0, End: 20})
	_, _, err := Decode(fatb, rom)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestEncodeAlignsEachPayload(t *testing.T) {
	assignments := []Assignment{
		{FileID: 0, Payload: []byte{1, 2, 3}},
		{FileID: 1, Payload: []byte{4, 5}},
	}
	data, table := Encode(0x4000, assignments, 0xFF)

	files, order, err := Decode(table, append(make([]byte, 0x4000), data...))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(files))
	assert.Equal(t, []byte{1, 2, 3}, files[0])
	assert.Equal(t, []byte{4, 5}, files[1])
	assert.Equal(t, []int{0, 1}, order)

	// second file must start on a 512-byte boundary past the first
	assert.Equal(t, uint32(0x4000), recordStart(table, 0))
	assert.Equal(t, uint32(0x4200), recordStart(table, 1))
}

func TestEncodeIndexesByFileIDNotLayoutOrder(t *testing.T) {
	assignments := []Assignment{
		{FileID: 2, Payload: []byte{0xAA}},
		{FileID: 0, Payload: []byte{0xBB}},
	}
	_, table := Encode(0, assignments, 0xFF)
	assert.Equal(t, 3*RecordSize, len(table))
	// file id 1 was never assigned a payload; its record stays zeroed.
	assert.Equal(t, uint32(0), recordStart(table, 1))
	assert.Equal(t, uint32(0), recordEnd(table, 1))
}

func recordStart(table []byte, id int) uint32 {
	return binary.LittleEndian.Uint32(table[id*RecordSize:])
}

func recordEnd(table []byte, id int) uint32 {
	return binary.LittleEndian.Uint32(table[id*RecordSize+4:])
}
