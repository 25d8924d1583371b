package overlay

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func sampleEntries() []Entry {
	return []Entry{
		{ID: 0, RAMAddress: 0x02000000, RAMSize: 0x1000, BSSSize: 0x100, SinitInit: 0x02000FF0, SinitInitEnd: 0x02000FF8, Data: []byte{0xAA, 0xBB}},
		{ID: 1, RAMAddress: 0x02001000, RAMSize: 0x2000, BSSSize: 0x200, SinitInit: 0x02002FF0, SinitInitEnd: 0x02002FF8, Data: []byte{0xCC}},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	entries := sampleEntries()
	table, payloads := Encode(entries, 3)
	assert.Equal(t, RecordSize*len(entries), len(table))
	assert.Equal(t, 2, len(payloads))

	files := make([][]byte, 5)
	for i, p := range payloads {
		files[3+i] = p
	}

	decoded, err := Decode(table, files)
	assert.NoError(t, err)
	assert.Equal(t, len(entries), len(decoded))
	for i, want := range entries {
		got := decoded[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.RAMAddress, got.RAMAddress)
		assert.Equal(t, want.RAMSize, got.RAMSize)
		assert.Equal(t, want.BSSSize, got.BSSSize)
		assert.Equal(t, want.SinitInit, got.SinitInit)
		assert.Equal(t, want.SinitInitEnd, got.SinitInitEnd)
		assert.Equal(t, uint32(3+i), got.FileID)
		assert.Equal(t, want.Data, got.Data)
	}
}

func TestEncodeAssignsConsecutiveFileIDs(t *testing.T) {
	entries := sampleEntries()
	table, _ := Encode(entries, 0)
	decoded, err := Decode(table, [][]byte{{}, {}})
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), decoded[0].FileID)
	assert.Equal(t, uint32(1), decoded[1].FileID)
}

func TestDecodeRejectsFileIDBeyondKnownFiles(t *testing.T) {
	entries := []Entry{{ID: 0, Data: []byte{}}}
	table, _ := Encode(entries, 5)
	_, err := Decode(table, make([][]byte, 3))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestDecodeRejectsDuplicateFileID(t *testing.T) {
	table := make([]byte, RecordSize*2)
	// Both records claim file id 0.
	files := [][]byte{{0x01}}
	_, err := Decode(table, files)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestDecodeRejectsTableNotMultipleOfRecordSize(t *testing.T) {
	_, err := Decode(make([]byte, RecordSize+1), nil)
	assert.Error(t, err)
}

func TestEncodeOfNoEntriesProducesEmptyTable(t *testing.T) {
	table, payloads := Encode(nil, 0)
	assert.Empty(t, table)
	assert.Empty(t, payloads)
}
