// Package storage implements a single-file slot store.
//
// The file starts with a 4-byte slot capacity C followed by slots of
// 4+C bytes each: a little endian payload length and up to C payload
// bytes. A payload length of 0 marks a free slot. On Open every slot
// header is scanned to rebuild the set of free slots.
package storage
