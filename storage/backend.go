package storage

import "os"

// FileBackend is a Backend over a regular file path
type FileBackend string

// OpenWriter opens the file write-only. With truncate the file is
// created if missing and emptied, otherwise it must already exist.
func (fb FileBackend) OpenWriter(truncate bool) (WriteHandle, error) {
	flags := os.O_WRONLY
	if truncate {
		flags |= os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(string(fb), flags, 0644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// OpenReader opens the file read-only
func (fb FileBackend) OpenReader() (ReadHandle, error) {
	f, err := os.Open(string(fb))
	if err != nil {
		return nil, err
	}
	return f, nil
}
