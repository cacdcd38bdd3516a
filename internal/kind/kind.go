// Package kind defines the error taxonomy shared by every leafcore package.
package kind

import "fmt"

// Kind classifies a failure without naming the package that produced it.
// Callers branch on Kind, not on error identity, per the "single error
// kind per failed call" contract every leafcore package honors.
type Kind int

const (
	// Unknown is the zero value; no leafcore call should ever return it.
	Unknown Kind = iota
	// Read means a host-supplied read callback failed or returned short.
	Read
	// Write means a host-supplied output/sink callback returned an error.
	Write
	// Truncated means a structural header ended before it should have.
	Truncated
	// BadSignature means a magic number/signature did not match.
	BadSignature
	// BadFormat means a header or field was malformed but the container
	// itself was structurally sane.
	BadFormat
	// Unsupported means a recognized-but-unimplemented feature was hit
	// (Zip64, encrypted entries, PNG Adam7 interlacing, which is always
	// rejected, progressive/arithmetic/12-bit JPEG).
	Unsupported
	// Checksum means a CRC or other checksum did not match.
	Checksum
	// Deflate means the compressed bitstream itself was invalid.
	Deflate
	// BufferTooSmall means a caller-provided buffer could not hold the result.
	BufferTooSmall
	// NotFound means a lookup (by name, by id) came back empty.
	NotFound
	// PathTooLong means a bounded-length buffer would have overflowed.
	PathTooLong
)

func (k Kind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	case Truncated:
		return "truncated"
	case BadSignature:
		return "bad signature"
	case BadFormat:
		return "bad format"
	case Unsupported:
		return "unsupported"
	case Checksum:
		return "checksum"
	case Deflate:
		return "deflate"
	case BufferTooSmall:
		return "buffer too small"
	case NotFound:
		return "not found"
	case PathTooLong:
		return "path too long"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every leafcore call that
// fails. Op names the failing operation (e.g. "zipidx.ParseEOCD"); Kind
// classifies the failure; Err, when non-nil, wraps the underlying cause
// (typically a host callback's own error).
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, kind.New("", kind.NotFound, nil)) — but the
// common case is errors.As plus a Kind comparison, which Of below exists
// to make terse.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error for op/k, optionally wrapping cause.
func New(op string, k Kind, cause error) *Error {
	return &Error{Op: op, Kind: k, Err: cause}
}

// Of returns the Kind of err if err is (or wraps) a *Error, and Unknown
// otherwise.
func Of(err error) Kind {
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// As is a thin wrapper so callers of this package don't need a second
// import of the standard errors package just to unwrap a Kind.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
