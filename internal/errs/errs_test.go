package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessageWithCause(t *testing.T) {
	err := Wrap(KindTransientProvider, "search failed", errors.New("timeout"))
	want := "transient_provider: search failed: timeout"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestErrorMessageWithoutCause(t *testing.T) {
	err := New(KindInput, "query must not be empty")
	want := "input: query must not be empty"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(KindModel, "model call failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestIsMatchesOnKindNotMessage(t *testing.T) {
	a := TransientProvider("first failure", nil)
	b := TransientProvider("different message, same kind", nil)
	if !errors.Is(a, b) {
		t.Error("expected two errors of the same Kind to match via errors.Is")
	}
}

func TestIsDoesNotMatchDifferentKind(t *testing.T) {
	a := TransientProvider("msg", nil)
	b := PermanentProvider("msg", nil)
	if errors.Is(a, b) {
		t.Error("expected errors of different Kind not to match")
	}
}

func TestIsDoesNotMatchNonTaxonomyError(t *testing.T) {
	a := InputError("bad input")
	if errors.Is(a, fmt.Errorf("plain error")) {
		t.Error("expected a plain error never to match a taxonomy error")
	}
}

func TestConstructorHelpers(t *testing.T) {
	cases := []struct {
		err  *Error
		kind Kind
	}{
		{ClarificationRequested("which decade?"), KindClarificationNeeded},
		{CitationErr("dangling marker"), KindCitation},
		{Cancelled(), KindCancelled},
		{DeadlineExceeded(), KindDeadlineExceeded},
	}
	for _, tc := range cases {
		if tc.err.Kind != tc.kind {
			t.Errorf("expected Kind=%q, got %q", tc.kind, tc.err.Kind)
		}
	}
}
