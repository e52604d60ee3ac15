package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viert/slotstore/storage"
)

func TestParseSlots(t *testing.T) {
	require.Equal(t, []uint32{0, 7, 3}, parseSlots("0, 7,3"))
	require.Equal(t, []uint32{4294967295}, parseSlots("4294967295"))
}

func TestWriteRecordReusesFreeSlots(t *testing.T) {
	mb := storage.NewMemBackend()
	st, err := storage.CreateOn(mb, 4)
	require.NoError(t, err)

	slots, err := writeRecord(st, []byte("0123456789"))
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 2}, slots)

	_, err = st.DeleteBlock(1, false)
	require.NoError(t, err)

	slots, err = writeRecord(st, []byte("abcdef"))
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 3}, slots)

	var got []byte
	err = st.Iter(func(idx uint32, data []byte) error {
		got = append(got, data...)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "0123abcd89ef", string(got))
}
