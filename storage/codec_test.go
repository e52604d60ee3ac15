package storage

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeU32(t *testing.T) {
	require.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, encodeU32(0x12345678))
	require.Equal(t, uint32(0x12345678), decodeU32([]byte{0x78, 0x56, 0x34, 0x12}))
}

func TestCodecRoundTrip(t *testing.T) {
	values := []uint32{0, 1, math.MaxUint32, 2147483648, 2147483647}
	for range 1000 {
		values = append(values, rand.Uint32())
	}
	for _, n := range values {
		require.Equal(t, n, decodeU32(encodeU32(n)), "value %d", n)
	}
}

func TestHeaderSizes(t *testing.T) {
	require.Equal(t, 4, storageHeaderSize)
	require.Equal(t, 4, blockHeaderSize)

	h := decodeBlockHeader(blockHeader{PayloadLength: 17}.encode())
	require.Equal(t, uint32(17), h.PayloadLength)
	require.False(t, h.isFree())
	require.True(t, decodeBlockHeader(blockHeader{}.encode()).isFree())

	sh := decodeStorageHeader(storageHeader{SlotCapacity: 4096}.encode())
	require.Equal(t, uint32(4096), sh.SlotCapacity)
}
