package storage

import "fmt"

// Kind classifies storage errors
type Kind int

const (
	// KindIO covers open, read and write failures including short transfers
	KindIO Kind = iota + 1
	// KindSeek means a seek failed or did not land at the requested offset
	KindSeek
	// KindCapacity means a payload or a capacity value does not fit the slot layout
	KindCapacity
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindSeek:
		return "seek"
	case KindCapacity:
		return "capacity"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Numeric error codes. They are stable and safe to expose to clients.
const (
	CodeOpen            = 1
	CodeWriteHeader     = 2
	CodeReadHeader      = 3
	CodeReadSeek        = 4
	CodeReadBlockHeader = 5
	CodeReadPayload     = 6
	CodeWriteSeek       = 7
	CodeWriteBlockHdr   = 8
	CodeWritePayload    = 9
	CodeScan            = 10
	CodeTooLarge        = 11
	CodeCorruptHeader   = 12
	CodeBadCapacity     = 13
	CodeSlotRange       = 14
)

// Error is returned by every Storage operation that fails
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

var (
	// ErrIO matches any KindIO error with errors.Is
	ErrIO = &Error{Kind: KindIO, Message: "i/o error"}
	// ErrSeek matches any KindSeek error with errors.Is
	ErrSeek = &Error{Kind: KindSeek, Message: "seek error"}
	// ErrCapacity matches any KindCapacity error with errors.Is
	ErrCapacity = &Error{Kind: KindCapacity, Message: "capacity error"}
)

func newError(kind Kind, code int, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error %d: %s: %s", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error %d: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a storage error of the same kind.
// A target with a non-zero code must match the code as well.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == 0 || t.Code == e.Code)
}
