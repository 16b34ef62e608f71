package amber

import (
	"strings"
	"testing"
)

func TestTailBufferKeepsLastBytes(t *testing.T) {
	b := newTailBuffer(8)
	for _, chunk := range []string{"abc", "defg", "hijkl"} {
		if n, err := b.Write([]byte(chunk)); err != nil || n != len(chunk) {
			t.Fatalf("write %q: n=%d err=%v", chunk, n, err)
		}
	}
	if got := b.String(); got != "efghijkl" {
		t.Fatalf("got %q", got)
	}
	if !b.Truncated() {
		t.Fatalf("expected truncated")
	}
}

func TestTailBufferUnderLimit(t *testing.T) {
	b := newTailBuffer(16)
	_, _ = b.Write([]byte("hello "))
	_, _ = b.Write([]byte("world"))
	if got := b.String(); got != "hello world" {
		t.Fatalf("got %q", got)
	}
	if b.Truncated() {
		t.Fatalf("should not be truncated")
	}
}

func TestTailBufferSingleLargeWrite(t *testing.T) {
	b := newTailBuffer(4)
	_, _ = b.Write([]byte(strings.Repeat("x", 10) + "tail"))
	if got := b.String(); got != "tail" {
		t.Fatalf("got %q", got)
	}
	if !b.Truncated() {
		t.Fatalf("expected truncated")
	}

	exact := newTailBuffer(4)
	_, _ = exact.Write([]byte("abcd"))
	if exact.Truncated() || exact.String() != "abcd" {
		t.Fatalf("exact fit: %q truncated=%v", exact.String(), exact.Truncated())
	}
}
