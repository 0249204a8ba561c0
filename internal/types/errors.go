package types

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Kind classifies a failure of a dump or edit invocation
type Kind int

const (
	// Unknown is reported for errors that did not originate here
	Unknown Kind = iota

	// ArgumentError is a malformed command, missing operand or unknown mode
	ArgumentError

	// AlignmentError is an address that is not a multiple of the access width
	AlignmentError

	// SizeError is a zero size or one that is not a multiple of the access width
	SizeError

	// OpenError means the backing object could not be opened
	OpenError

	// MapError means the backing object could not be mapped
	MapError

	// IOError is a short read or write on a raw stream
	IOError

	// OutOfBounds is an access outside the mapped window. It is never fatal.
	OutOfBounds
)

var kindNames = map[Kind]string{
	Unknown:        "unknown",
	ArgumentError:  "argument",
	AlignmentError: "alignment",
	SizeError:      "size",
	OpenError:      "open",
	MapError:       "map",
	IOError:        "io",
	OutOfBounds:    "out of bounds",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Errno returns the errno value reported as exit status for this kind
func (k Kind) Errno() unix.Errno {
	switch k {
	case ArgumentError, AlignmentError, SizeError:
		return unix.EINVAL
	case OpenError, MapError:
		return unix.EACCES
	case IOError:
		return unix.EIO
	}
	return 0
}

// Error is an error carrying its Kind
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: IOError}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Errorf builds an *Error of the given kind wrapping err (which may be nil)
func Errorf(kind Kind, err error, format string, args ...any) error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// KindOf returns the Kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// ExitCode maps err to a process exit status. nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errno := KindOf(err).Errno(); errno != 0 {
		return int(errno)
	}
	return 1
}
