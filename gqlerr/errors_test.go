package gqlerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewAndOf(t *testing.T) {
	cause := errors.New("disk full")
	err := New(KindIO, "table.Insert", cause)
	if Of(err) != KindIO {
		t.Fatalf("Of(err) = %v, want KindIO", Of(err))
	}
	if !Is(err, KindIO) {
		t.Fatal("Is(err, KindIO) = false, want true")
	}
	if errors.Unwrap(err) != cause {
		t.Fatal("Unwrap did not return the wrapped cause")
	}
}

func TestOfOnPlainErrorIsUnknown(t *testing.T) {
	if Of(errors.New("plain")) != KindUnknown {
		t.Fatal("Of on a non-gqlerr error should be KindUnknown")
	}
	if Of(nil) != KindUnknown {
		t.Fatal("Of(nil) should be KindUnknown")
	}
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	inner := New(KindDuplicate, "table.Insert", nil)
	wrapped := fmt.Errorf("table.Insert: %w", inner)
	if Of(wrapped) != KindDuplicate {
		t.Fatalf("Of(wrapped) = %v, want KindDuplicate", Of(wrapped))
	}
}

func TestKindStringsAreDistinct(t *testing.T) {
	kinds := []Kind{
		KindUnknown, KindNotFound, KindDuplicate, KindSchemaMismatch, KindIndexMissing,
		KindCorruptPage, KindCorruptIndex, KindIO, KindMetadataTooLarge, KindClosed, KindInvalid,
	}
	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		s := k.String()
		if seen[s] {
			t.Errorf("duplicate Kind.String() value %q", s)
		}
		seen[s] = true
	}
}

func TestErrorMessageFormatsWithAndWithoutCause(t *testing.T) {
	withCause := New(KindIO, "pager.Open", errors.New("boom"))
	if withCause.Error() == "" {
		t.Fatal("expected a non-empty error message")
	}
	withoutCause := New(KindClosed, "table.Insert", nil)
	if withoutCause.Error() == "" {
		t.Fatal("expected a non-empty error message even with a nil cause")
	}
}
