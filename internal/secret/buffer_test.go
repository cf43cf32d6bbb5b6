package secret_test

import (
	"bytes"
	"strings"
	"testing"

	"hakurei.app/xdm/internal/secret"
)

func mustNew(t *testing.T, size int) *secret.Buffer {
	t.Helper()
	b, err := secret.New(size)
	if err != nil {
		t.Skipf("cannot allocate secret buffer: %v", err)
	}
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("Close: error = %v", err)
		}
	})
	return b
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := secret.New(0); err == nil || err.Error() != "secret: buffer size must be positive, got 0" {
		t.Errorf("New: error = %v", err)
	}
}

func TestBuffer(t *testing.T) {
	t.Parallel()

	t.Run("overflow dropped", func(t *testing.T) {
		t.Parallel()
		b := mustNew(t, 8)

		if !b.Append([]byte("alice")) {
			t.Fatal("Append: unexpected false")
		}
		if b.Append([]byte("1234")) {
			t.Error("Append: unexpected true")
		}
		if !b.Append([]byte("123")) {
			t.Error("Append: unexpected false")
		}
		if b.AppendRune('x') {
			t.Error("AppendRune: unexpected true")
		}
		if got := b.String(); got != "alice123" {
			t.Errorf("String: %q", got)
		}
	})

	t.Run("multibyte", func(t *testing.T) {
		t.Parallel()
		b := mustNew(t, 4)

		if !b.AppendRune('é') || !b.AppendRune('a') {
			t.Fatal("AppendRune: unexpected false")
		}
		if b.AppendRune('€') {
			t.Error("AppendRune: partial rune accepted")
		}
		if !b.Backspace() || !b.Backspace() {
			t.Fatal("Backspace: unexpected false")
		}
		if b.Len() != 0 {
			t.Errorf("Len: %d, want 0", b.Len())
		}
		if b.Backspace() {
			t.Error("Backspace: unexpected true on empty buffer")
		}
		if !b.IsZero() {
			t.Error("IsZero: removed characters not cleared")
		}
	})

	t.Run("wipe", func(t *testing.T) {
		t.Parallel()
		b := mustNew(t, 255)

		b.Append([]byte(strings.Repeat("\xff", 255)))
		if !bytes.Equal(b.Bytes(), bytes.Repeat([]byte{0xff}, 255)) {
			t.Fatalf("Bytes: %q", b.Bytes())
		}
		b.Wipe()
		if b.Len() != 0 || !b.IsZero() {
			t.Errorf("Wipe: Len = %d, IsZero = %v", b.Len(), b.IsZero())
		}
		if b.Cap() != 255 {
			t.Errorf("Cap: %d, want 255", b.Cap())
		}
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()
		b, err := secret.New(1)
		if err != nil {
			t.Skipf("cannot allocate secret buffer: %v", err)
		}
		if err = b.Close(); err != nil {
			t.Fatalf("Close: error = %v", err)
		}
		if err = b.Close(); err != nil {
			t.Errorf("Close: error = %v", err)
		}
		defer func() {
			if r := recover(); r != secret.ErrClosed {
				t.Errorf("recover: %v", r)
			}
		}()
		b.Append([]byte{0})
	})
}
