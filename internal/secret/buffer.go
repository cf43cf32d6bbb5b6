// Package secret provides a fixed-capacity text buffer for sensitive input such as passwords.
//
// The backing memory of a [Buffer] is allocated outside the Go heap via
// mmap(MAP_ANONYMOUS), locked into physical RAM and excluded from core dumps.
// Contents are overwritten with zero bytes by Wipe and Close.
package secret

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned when accessing a closed [Buffer].
var ErrClosed = errors.New("secret: buffer is closed")

// Buffer holds up to a fixed number of bytes of sensitive text.
// Writes beyond capacity are dropped without truncating existing content.
// A Buffer is not safe for concurrent use.
type Buffer struct {
	data   []byte
	length int
	closed bool
}

// New allocates a [Buffer] with capacity size bytes.
// The caller must call Close when the buffer is no longer needed.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}
	if err = unix.Mlock(data); err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock failed: %w", err)
	}
	if err = unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		_ = unix.Munlock(data)
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP) failed: %w", err)
	}

	return &Buffer{data: data[:size:size]}, nil
}

// Cap returns the capacity of the buffer in bytes.
func (b *Buffer) Cap() int { return len(b.data) }

// Len returns the number of bytes held.
func (b *Buffer) Len() int { return b.length }

// Append appends p if it fits entirely and reports whether it did.
func (b *Buffer) Append(p []byte) bool {
	if b.closed {
		panic(ErrClosed)
	}
	if len(p) == 0 || b.length+len(p) > len(b.data) {
		return false
	}
	b.length += copy(b.data[b.length:], p)
	return true
}

// AppendRune appends the UTF-8 encoding of r if it fits entirely.
func (b *Buffer) AppendRune(r rune) bool {
	var p [utf8.UTFMax]byte
	n := utf8.EncodeRune(p[:], r)
	ok := b.Append(p[:n])
	clear(p[:])
	return ok
}

// Backspace removes the last character and reports whether there was one.
func (b *Buffer) Backspace() bool {
	if b.closed {
		panic(ErrClosed)
	}
	if b.length == 0 {
		return false
	}
	_, n := utf8.DecodeLastRune(b.data[:b.length])
	clear(b.data[b.length-n : b.length])
	b.length -= n
	return true
}

// Bytes returns the held bytes. The returned slice points into the locked region
// and must not be retained beyond the next Wipe or Close.
func (b *Buffer) Bytes() []byte {
	if b.closed {
		panic(ErrClosed)
	}
	return b.data[:b.length]
}

// String returns a heap copy of the held text. Only use it for non-secret content.
func (b *Buffer) String() string { return string(b.Bytes()) }

// Wipe overwrites the entire region with zero bytes and empties the buffer.
func (b *Buffer) Wipe() {
	if b.closed {
		return
	}
	clear(b.data)
	b.length = 0
}

// IsZero reports whether every byte of the region is zero.
func (b *Buffer) IsZero() bool {
	for _, c := range b.data {
		if c != 0 {
			return false
		}
	}
	return true
}

// Close wipes, unlocks and unmaps the buffer. Close is idempotent.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.Wipe()
	b.closed = true

	var err error
	if e := unix.Munlock(b.data); e != nil {
		err = fmt.Errorf("secret: munlock failed: %w", e)
	}
	if e := unix.Munmap(b.data); e != nil && err == nil {
		err = fmt.Errorf("secret: munmap failed: %w", e)
	}
	b.data = nil
	b.length = 0
	return err
}
