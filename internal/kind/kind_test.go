package kind

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatsWithAndWithoutCause(t *testing.T) {
	bare := New("epub.Open", NotFound, nil)
	if bare.Error() != "epub.Open: not found" {
		t.Errorf("bare = %q", bare.Error())
	}

	wrapped := New("epub.Open", Read, errors.New("disk on fire"))
	if wrapped.Error() != "epub.Open: read: disk on fire" {
		t.Errorf("wrapped = %q", wrapped.Error())
	}
}

func TestOfUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := New("zipidx.ParseEOCD", Truncated, nil)
	outer := fmt.Errorf("epub.NewReader: %w", inner)
	if got := Of(outer); got != Truncated {
		t.Errorf("Of(outer) = %v, want Truncated", got)
	}
	if got := Of(errors.New("plain")); got != Unknown {
		t.Errorf("Of(plain) = %v, want Unknown", got)
	}
}

func TestIsComparesKindNotIdentity(t *testing.T) {
	a := New("pkg.A", BadFormat, errors.New("x"))
	b := New("pkg.B", BadFormat, nil)
	if !errors.Is(a, b) {
		t.Error("expected errors of the same Kind to satisfy errors.Is")
	}
	c := New("pkg.C", Unsupported, nil)
	if errors.Is(a, c) {
		t.Error("expected errors of different Kinds not to satisfy errors.Is")
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("underlying")
	e := New("op", Write, cause)
	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to reach the wrapped cause")
	}
}
