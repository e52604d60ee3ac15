package storage

import (
	"fmt"
	"io"
	"math"

	logging "github.com/op/go-logging"
)

const (
	// MinSlotCapacity holds the minimum payload size of a slot
	MinSlotCapacity = 1
	// MaxSlotCapacity holds the maximum payload size of a slot accepted by tooling
	MaxSlotCapacity = 16 * 1024 * 1024
	// MaxSlotIndex is the highest addressable slot. EndSlotCount must fit in uint32.
	MaxSlotIndex = math.MaxUint32 - 1
)

var (
	log = logging.MustGetLogger("slotstore")
)

// Storage is a single file of fixed-stride slots.
//
// Storage is not safe for concurrent use: it owns both file cursors and
// the free-slot set, and every operation is a seek followed by a transfer.
// Callers must serialize access, see package engine.
type Storage struct {
	header   storageHeader
	free     *freeSet
	endSlots uint32

	writer   WriteHandle
	writePos int64
	reader   ReadHandle
	readPos  int64
}

// IterationCallback is called with every occupied slot
// when using Iter() method
type IterationCallback func(idx uint32, data []byte) error

// Create creates (or overwrites) a storage file at path
func Create(path string, slotCapacity uint32) (*Storage, error) {
	return CreateOn(FileBackend(path), slotCapacity)
}

// Open opens an existing storage file at path and rebuilds
// the free-slot set by scanning every slot header
func Open(path string) (*Storage, error) {
	return OpenOn(FileBackend(path))
}

// CreateOn initializes an empty storage on a given backend
// and writes the storage header
func CreateOn(backend Backend, slotCapacity uint32) (*Storage, error) {
	if slotCapacity < MinSlotCapacity {
		return nil, newError(KindCapacity, CodeBadCapacity, nil, "slot capacity can not be less than %d", MinSlotCapacity)
	}

	s, err := openHandles(backend, true)
	if err != nil {
		return nil, err
	}
	s.header.SlotCapacity = slotCapacity

	err = s.writeStorageHeader()
	if err != nil {
		log.Errorf("error writing storage header: %s", err)
		s.Close()
		return nil, err
	}

	log.Debugf("storage created with slot capacity %d", slotCapacity)
	return s, nil
}

// OpenOn opens storage previously created on a given backend
func OpenOn(backend Backend) (*Storage, error) {
	s, err := openHandles(backend, false)
	if err != nil {
		return nil, err
	}

	err = s.readStorageHeader()
	if err == nil {
		err = s.recover()
	}
	if err != nil {
		log.Errorf("error opening storage: %s", err)
		s.Close()
		return nil, err
	}

	log.Debugf("storage opened: slot capacity %d, %d slots, %d free",
		s.header.SlotCapacity, s.endSlots, s.free.len())
	return s, nil
}

func openHandles(backend Backend, truncate bool) (*Storage, error) {
	writer, err := backend.OpenWriter(truncate)
	if err != nil {
		return nil, newError(KindIO, CodeOpen, err, "could not open storage writer")
	}

	reader, err := backend.OpenReader()
	if err != nil {
		writer.Close()
		return nil, newError(KindIO, CodeOpen, err, "could not open storage reader")
	}

	return &Storage{
		free:   newFreeSet(),
		writer: writer,
		reader: reader,
	}, nil
}

// Close closes both handles
func (s *Storage) Close() error {
	werr := s.writer.Close()
	rerr := s.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Sync commits written data to stable storage when the backend supports it
func (s *Storage) Sync() error {
	if sw, ok := s.writer.(syncer); ok {
		return sw.Sync()
	}
	return nil
}

func (s *Storage) writeStorageHeader() error {
	err := s.seekWriter(0)
	if err != nil {
		return err
	}

	buf := s.header.encode()
	n, err := s.writer.Write(buf)
	s.writePos += int64(n)
	if err != nil || n != len(buf) {
		return newError(KindIO, CodeWriteHeader, shortWrite(err), "could not write storage header (%d of %d bytes)", n, len(buf))
	}
	return nil
}

func (s *Storage) readStorageHeader() error {
	err := s.seekReader(0)
	if err != nil {
		return err
	}

	buf := make([]byte, storageHeaderSize)
	n, err := io.ReadFull(s.reader, buf)
	s.readPos += int64(n)
	if err != nil {
		return newError(KindIO, CodeReadHeader, err, "could not read storage header")
	}

	s.header = decodeStorageHeader(buf)
	if s.header.SlotCapacity < MinSlotCapacity {
		return newError(KindCapacity, CodeBadCapacity, nil, "storage header declares slot capacity %d", s.header.SlotCapacity)
	}
	return nil
}

// recover walks every slot header from the first slot to the end of file.
// The cursor always moves by the full slot capacity so that slot addressing
// stays uniform regardless of the declared payload lengths.
func (s *Storage) recover() error {
	err := s.seekReader(int64(storageHeaderSize))
	if err != nil {
		return err
	}

	free := newFreeSet()
	count := uint32(0)
	buf := make([]byte, blockHeaderSize)

	for {
		_, err = io.ReadFull(s.reader, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return newError(KindIO, CodeScan, err, "recovery scan failed at slot %d", count)
		}

		if count > MaxSlotIndex {
			return newError(KindCapacity, CodeSlotRange, nil, "recovery scan found more than %d slots", uint64(MaxSlotIndex)+1)
		}
		if decodeBlockHeader(buf).isFree() {
			free.insert(count)
		}
		count++

		var pos int64
		pos, err = s.reader.Seek(int64(s.header.SlotCapacity), io.SeekCurrent)
		if err != nil {
			return newError(KindSeek, CodeReadSeek, err, "recovery scan could not skip slot %d", count-1)
		}
		s.readPos = pos
	}

	s.free = free
	s.endSlots = count
	return nil
}

func (s *Storage) slotOffset(idx uint32) int64 {
	stride := int64(blockHeaderSize) + int64(s.header.SlotCapacity)
	return int64(storageHeaderSize) + int64(idx)*stride
}

func (s *Storage) seekReader(offset int64) error {
	pos, err := s.reader.Seek(offset, io.SeekStart)
	if err != nil {
		return newError(KindSeek, CodeReadSeek, err, "could not seek reader to %d", offset)
	}
	if pos != offset {
		return newError(KindSeek, CodeReadSeek, nil, "reader landed at %d instead of %d", pos, offset)
	}
	s.readPos = pos
	return nil
}

func (s *Storage) seekWriter(offset int64) error {
	pos, err := s.writer.Seek(offset, io.SeekStart)
	if err != nil {
		return newError(KindSeek, CodeWriteSeek, err, "could not seek writer to %d", offset)
	}
	if pos != offset {
		return newError(KindSeek, CodeWriteSeek, nil, "writer landed at %d instead of %d", pos, offset)
	}
	s.writePos = pos
	return nil
}

func shortWrite(err error) error {
	if err == nil {
		return io.ErrShortWrite
	}
	return err
}

func (s *Storage) isEmpty(idx uint32) bool {
	return idx >= s.endSlots || s.free.has(idx)
}

// ReadBlock reads the payload stored in slot idx and returns the read
// cursor position after it. Reading a slot that was never written or is
// free is not an error: the payload is empty and the cursor does not move.
func (s *Storage) ReadBlock(idx uint32) (int64, []byte, error) {
	if s.isEmpty(idx) {
		log.Debugf("slot %d is empty", idx)
		return s.readPos, nil, nil
	}

	offset := s.slotOffset(idx)
	err := s.seekReader(offset)
	if err != nil {
		return s.readPos, nil, err
	}

	headerBytes := make([]byte, blockHeaderSize)
	n, err := io.ReadFull(s.reader, headerBytes)
	s.readPos += int64(n)
	if err != nil {
		return s.readPos, nil, newError(KindIO, CodeReadBlockHeader, err, "could not read header of slot %d", idx)
	}

	header := decodeBlockHeader(headerBytes)
	if header.PayloadLength > s.header.SlotCapacity {
		return s.readPos, nil, newError(KindIO, CodeCorruptHeader, nil,
			"slot %d declares %d bytes, capacity is %d", idx, header.PayloadLength, s.header.SlotCapacity)
	}

	data := make([]byte, header.PayloadLength)
	n, err = io.ReadFull(s.reader, data)
	s.readPos += int64(n)
	if err != nil {
		return s.readPos, nil, newError(KindIO, CodeReadPayload, err, "could not read %d bytes of slot %d", len(data), idx)
	}

	log.Debugf("read %d bytes from slot %d at %d", len(data), idx, offset)
	return s.readPos, data, nil
}

// WriteBlock stores data in slot idx and returns the write cursor
// position right after the payload. data must fit in one slot.
func (s *Storage) WriteBlock(idx uint32, data []byte) (int64, error) {
	if uint64(len(data)) > uint64(s.header.SlotCapacity) {
		return s.writePos, newError(KindCapacity, CodeTooLarge, nil,
			"payload of %d bytes exceeds slot capacity %d", len(data), s.header.SlotCapacity)
	}

	if idx > MaxSlotIndex {
		return s.writePos, newError(KindCapacity, CodeSlotRange, nil, "slot %d is out of range", idx)
	}

	offset := s.slotOffset(idx)
	err := s.seekWriter(offset)
	if err != nil {
		return s.writePos, err
	}

	headerBytes := blockHeader{PayloadLength: uint32(len(data))}.encode()
	n, err := s.writer.Write(headerBytes)
	s.writePos += int64(n)
	if err != nil || n != len(headerBytes) {
		return s.writePos, newError(KindIO, CodeWriteBlockHdr, shortWrite(err), "could not write header of slot %d", idx)
	}

	n, err = s.writer.Write(data)
	s.writePos += int64(n)
	if err != nil || n != len(data) {
		return s.writePos, newError(KindIO, CodeWritePayload, shortWrite(err),
			"could not write payload of slot %d (%d of %d bytes)", idx, n, len(data))
	}

	s.markWritten(idx, len(data) == 0)
	log.Debugf("wrote %d bytes to slot %d at %d", len(data), idx, offset)
	return s.writePos, nil
}

// markWritten keeps the free-slot set equal to the set of zero headers.
// Slots skipped over by a write past the end exist on disk as zeroes.
func (s *Storage) markWritten(idx uint32, empty bool) {
	for i := s.endSlots; i < idx; i++ {
		s.free.insert(i)
	}
	if idx >= s.endSlots {
		s.endSlots = idx + 1
	}
	if empty {
		s.free.insert(idx)
	} else {
		s.free.remove(idx)
	}
}

// DeleteBlock frees slot idx. A soft delete only zeroes the slot header,
// a hard delete zeroes the payload region as well. Deleting a slot that
// was never written, or soft-deleting a free one, does nothing.
func (s *Storage) DeleteBlock(idx uint32, hard bool) (int64, error) {
	if idx >= s.endSlots || (!hard && s.free.has(idx)) {
		return s.writePos, nil
	}

	offset := s.slotOffset(idx)
	err := s.seekWriter(offset)
	if err != nil {
		return s.writePos, err
	}

	headerBytes := blockHeader{}.encode()
	n, err := s.writer.Write(headerBytes)
	s.writePos += int64(n)
	if err != nil || n != len(headerBytes) {
		return s.writePos, newError(KindIO, CodeWriteBlockHdr, shortWrite(err), "could not clear header of slot %d", idx)
	}

	if hard {
		zeros := make([]byte, s.header.SlotCapacity)
		n, err = s.writer.Write(zeros)
		s.writePos += int64(n)
		if err != nil || n != len(zeros) {
			return s.writePos, newError(KindIO, CodeWritePayload, shortWrite(err), "could not scrub payload of slot %d", idx)
		}
	}

	s.free.insert(idx)
	log.Debugf("deleted slot %d (hard=%t)", idx, hard)
	return s.writePos, nil
}

// Iter calls callback with every occupied slot in index order
func (s *Storage) Iter(callback IterationCallback) error {
	for idx := uint32(0); idx < s.endSlots; idx++ {
		if s.free.has(idx) {
			continue
		}
		_, data, err := s.ReadBlock(idx)
		if err != nil {
			return err
		}
		err = callback(idx, data)
		if err != nil {
			return fmt.Errorf("slot %d: %w", idx, err)
		}
	}
	return nil
}

// SlotCapacity returns the payload capacity of a single slot
func (s *Storage) SlotCapacity() uint32 {
	return s.header.SlotCapacity
}

// EndSlotCount returns the number of slots ever addressed
func (s *Storage) EndSlotCount() uint32 {
	return s.endSlots
}

// FreeSlots returns the free slot indexes in ascending order
func (s *Storage) FreeSlots() []uint32 {
	return s.free.slice()
}

// NumFree returns the number of free slots below EndSlotCount
func (s *Storage) NumFree() int {
	return s.free.len()
}

// IsFree reports whether slot idx holds no data
func (s *Storage) IsFree(idx uint32) bool {
	return s.isEmpty(idx)
}

// ReadCursor returns the read handle position after the last operation
func (s *Storage) ReadCursor() int64 {
	return s.readPos
}

// WriteCursor returns the write handle position after the last operation
func (s *Storage) WriteCursor() int64 {
	return s.writePos
}
