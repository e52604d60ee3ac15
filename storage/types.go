package storage

import (
	"encoding/binary"
	"io"
)

// storageHeader is stored once at offset 0 and never rewritten
type storageHeader struct {
	SlotCapacity uint32
}

// blockHeader precedes every slot payload. PayloadLength == 0 marks the slot free
type blockHeader struct {
	PayloadLength uint32
}

// ReadHandle is the read side of a storage file. It keeps its own cursor.
type ReadHandle interface {
	io.Reader
	io.Seeker
	io.Closer
}

// WriteHandle is the write side of a storage file. It keeps its own cursor.
type WriteHandle interface {
	io.Writer
	io.Seeker
	io.Closer
}

// Backend opens the two independent handles a Storage works through.
// Both handles must address the same underlying bytes.
type Backend interface {
	// OpenWriter opens the write handle, creating and truncating
	// the storage when truncate is set
	OpenWriter(truncate bool) (WriteHandle, error)
	// OpenReader opens the read handle on existing storage
	OpenReader() (ReadHandle, error)
}

type syncer interface {
	Sync() error
}

var (
	storageHeaderSize = binary.Size(storageHeader{})
	blockHeaderSize   = binary.Size(blockHeader{})
	binaryLayout      = binary.LittleEndian
)

func encodeU32(n uint32) []byte {
	b := make([]byte, 4)
	binaryLayout.PutUint32(b, n)
	return b
}

func decodeU32(b []byte) uint32 {
	return binaryLayout.Uint32(b)
}

func (h storageHeader) encode() []byte {
	return encodeU32(h.SlotCapacity)
}

func decodeStorageHeader(b []byte) storageHeader {
	return storageHeader{SlotCapacity: decodeU32(b)}
}

func (h blockHeader) encode() []byte {
	return encodeU32(h.PayloadLength)
}

func decodeBlockHeader(b []byte) blockHeader {
	return blockHeader{PayloadLength: decodeU32(b)}
}

func (h blockHeader) isFree() bool {
	return h.PayloadLength == 0
}
