package header

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestFieldSuccAndLen(t *testing.T) {
	tests := []struct {
		name string
		f    Field
		succ Field
		len  int
	}{
		{"title", TITLE, SERIAL, 0x00C},
		{"arm9 romoffset", ARM9_ROMOFFSET, ARM9_ENTRYPOINT, 4},
		{"static footer", STATICFOOTER, HEADERCRC, 0x15E - 0x088},
		{"header crc", HEADERCRC, HEADERCRC_END, 2},
		{"entire header fixed point", ENTIRE_HEADER, ENTIRE_HEADER, Size},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.succ, tt.f.Succ())
			assert.Equal(t, tt.len, tt.f.Len())
		})
	}
}

func TestNewRejectsWrongSize(t *testing.T) {
	_, err := New(make([]byte, Size-1))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestSetAndGetRoundTrip(t *testing.T) {
	h, err := New(make([]byte, Size))
	assert.NoError(t, err)

	assert.NoError(t, h.SetUint(ARM9_ROMOFFSET, 0x4000))
	assert.Equal(t, uint64(0x4000), h.GetLE(ARM9_ROMOFFSET))

	err = h.Set(ARM7_ROMOFFSET, []byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestSetUintOverflow(t *testing.T) {
	h, err := New(make([]byte, Size))
	assert.NoError(t, err)

	err = h.SetUint(REVISION, 1<<17) // REVISION is 2 bytes wide
	assert.True(t, errors.Is(err, ErrOverflow))
}

func TestRomRegionOutOfBounds(t *testing.T) {
	h, err := New(make([]byte, Size))
	assert.NoError(t, err)
	assert.NoError(t, h.SetUint(FATB_ROMOFFSET, 0))
	assert.NoError(t, h.SetUint(FATB_BSIZE, 100))

	_, err = h.RomRegion(make([]byte, 50), FATB_ROMOFFSET, FATB_BSIZE)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestRomRegionSlice(t *testing.T) {
	h, err := New(make([]byte, Size))
	assert.NoError(t, err)
	assert.NoError(t, h.SetUint(FATB_ROMOFFSET, 10))
	assert.NoError(t, h.SetUint(FATB_BSIZE, 4))

	image := make([]byte, 20)
	for i := range image {
		image[i] = byte(i)
	}
	region, err := h.RomRegion(image, FATB_ROMOFFSET, FATB_BSIZE)
	assert.NoError(t, err)
	assert.Equal(t, []byte{10, 11, 12, 13}, region)
}

func TestFieldOffsetsAreMonotonic(t *testing.T) {
	for i := 1; i < len(fieldOrder); i++ {
		if fieldOrder[i] < fieldOrder[i-1] {
			t.Fatalf("field offsets out of order at index %d: %#x < %#x", i, fieldOrder[i], fieldOrder[i-1])
		}
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	if errors.Is(ErrSizeMismatch, ErrOverflow) {
		t.Fatal("ErrSizeMismatch and ErrOverflow must be distinct sentinels")
	}
}
