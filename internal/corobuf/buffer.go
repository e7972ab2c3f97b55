// Package corobuf implements the fixed-growth string-buffer collaborator
// that spec.md treats as an external dependency of the response framer
// (reset/length/bytes contract).
package corobuf

// Buffer is a reusable byte accumulator. It grows by doubling and is
// designed to be retained across connections: Reset keeps the backing
// array so repeated use doesn't re-allocate.
type Buffer struct {
	data []byte
}

// New creates a Buffer with the given initial capacity.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity)}
}

// Reset empties the buffer without releasing its backing array.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Bytes returns the buffer's contents. The slice is only valid until the
// next mutating call.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Write appends p to the buffer, growing it if necessary.
func (b *Buffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// WriteString appends s to the buffer.
func (b *Buffer) WriteString(s string) (int, error) {
	b.data = append(b.data, s...)
	return len(s), nil
}

// WriteByte appends a single byte to the buffer.
func (b *Buffer) WriteByte(c byte) error {
	b.data = append(b.data, c)
	return nil
}
