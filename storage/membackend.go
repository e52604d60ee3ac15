package storage

import (
	"errors"
	"io"
)

// MemBackend represents an in-memory backend for storage
// mostly for testing purposes. Handles opened from the same
// MemBackend share its bytes but keep their own cursors.
type MemBackend struct {
	data []byte

	writeBudget int
	seekErr     error
	seekSkew    int64
	openErr     error
}

type memHandle struct {
	mb     *MemBackend
	pos    int64
	closed bool
}

// maxMemSize bounds the content of a MemBackend
const maxMemSize = 1 << 31

var (
	errHandleClosed = errors.New("mem handle is closed")
	errMemOffset    = errors.New("offset is out of mem backend range")
)

// NewMemBackend returns an empty MemBackend
func NewMemBackend() *MemBackend {
	mb := new(MemBackend)
	mb.data = make([]byte, 0, 65536)
	mb.writeBudget = -1
	return mb
}

// OpenWriter implements Backend
func (mb *MemBackend) OpenWriter(truncate bool) (WriteHandle, error) {
	if mb.openErr != nil {
		return nil, mb.openErr
	}
	if truncate {
		mb.data = mb.data[:0]
	}
	return &memHandle{mb: mb}, nil
}

// OpenReader implements Backend
func (mb *MemBackend) OpenReader() (ReadHandle, error) {
	if mb.openErr != nil {
		return nil, mb.openErr
	}
	return &memHandle{mb: mb}, nil
}

// Bytes returns the current content. The slice aliases the backend.
func (mb *MemBackend) Bytes() []byte {
	return mb.data
}

// Len returns the current content size
func (mb *MemBackend) Len() int {
	return len(mb.data)
}

// LimitWrites makes handles accept only n more bytes in total,
// every write past that is short. A negative n removes the limit.
func (mb *MemBackend) LimitWrites(n int) {
	mb.writeBudget = n
}

// FailSeeks makes every subsequent seek return err. nil clears it.
func (mb *MemBackend) FailSeeks(err error) {
	mb.seekErr = err
}

// SkewSeeks makes seeks report a position delta bytes away from the requested one
func (mb *MemBackend) SkewSeeks(delta int64) {
	mb.seekSkew = delta
}

// FailOpens makes OpenWriter and OpenReader return err. nil clears it.
func (mb *MemBackend) FailOpens(err error) {
	mb.openErr = err
}

// WriteAt writes p at off, zero-filling any gap past the end.
// Writes reaching past maxMemSize fail without touching the content.
func (mb *MemBackend) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if off < 0 || end > maxMemSize {
		return 0, errMemOffset
	}
	if grow := int(end) - len(mb.data); grow > 0 {
		mb.data = append(mb.data, make([]byte, grow)...)
	}
	copy(mb.data[off:end], p)
	return len(p), nil
}

// ReadAt reads into p from off
func (mb *MemBackend) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(mb.data)) {
		return 0, io.EOF
	}
	n := copy(p, mb.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (h *memHandle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, errHandleClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := h.mb.ReadAt(p, h.pos)
	h.pos += int64(n)
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

func (h *memHandle) Write(p []byte) (int, error) {
	if h.closed {
		return 0, errHandleClosed
	}
	chunk := p
	if budget := h.mb.writeBudget; budget >= 0 && len(chunk) > budget {
		chunk = chunk[:budget]
	}
	n, err := h.mb.WriteAt(chunk, h.pos)
	h.pos += int64(n)
	if h.mb.writeBudget >= 0 {
		h.mb.writeBudget -= n
	}
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (h *memHandle) Seek(offset int64, whence int) (int64, error) {
	if h.closed {
		return 0, errHandleClosed
	}
	if h.mb.seekErr != nil {
		return 0, h.mb.seekErr
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = h.pos + offset
	case io.SeekEnd:
		abs = int64(len(h.mb.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	h.pos = abs
	return abs + h.mb.seekSkew, nil
}

func (h *memHandle) Close() error {
	h.closed = true
	return nil
}
