package crc16

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestChecksumOfEmptyDataIsSeed(t *testing.T) {
	assert.Equal(t, uint16(0xFFFF), Checksum(nil, Seed))
	assert.Equal(t, uint16(0), Checksum(nil, 0))
}

func TestChecksumIsDeterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	a := Checksum(data, Seed)
	b := Checksum(data, Seed)
	assert.Equal(t, a, b)
}

func TestChecksumDependsOnEveryByte(t *testing.T) {
	base := Checksum([]byte{0x00, 0x00, 0x00}, Seed)
	changedLast := Checksum([]byte{0x00, 0x00, 0x01}, Seed)
	changedFirst := Checksum([]byte{0x01, 0x00, 0x00}, Seed)

	if base == changedLast || base == changedFirst {
		t.Fatalf("expected checksum to change when any input byte changes")
	}
}

func TestChecksumOfZeroedHeaderPrefix(t *testing.T) {
	// Known test vector for the DS header CRC: a 0x15E-byte all-zero
	// header prefix checksums to 0x1BCC under seed 0xFFFF.
	data := make([]byte, 0x15E)
	assert.Equal(t, uint16(0x1BCC), Checksum(data, Seed))
}

func TestChecksumMatchesCRC16Modbus(t *testing.T) {
	// Standard CRC-16/MODBUS check value for "123456789" confirms the
	// polynomial, seed handling, and bit order are all correct.
	assert.Equal(t, uint16(0x4B37), Checksum([]byte("123456789"), Seed))
}
