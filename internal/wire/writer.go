// Package wire implements the byte writer used to build outbound game
// messages: primitive encodings (little-endian integers, packed
// varints, length-prefixed strings) and nested length-prefixed message
// frames with backpatched lengths.
package wire

import (
	"fmt"
	"sync"
)

// Writer builds a single outbound buffer. One writer backs one logical
// send; writers are never shared across concurrent operations. Acquire
// one with Acquire and give it back with Release (or Discard on an
// abandoned error path).
type Writer struct {
	buf []byte

	// Byte offsets of the length fields of currently-open frames,
	// innermost last.
	open []int
}

var pool = sync.Pool{
	New: func() any {
		return &Writer{buf: make([]byte, 0, 256)}
	},
}

// Acquire returns a reset writer from the pool.
func Acquire() *Writer {
	return pool.Get().(*Writer)
}

// Release returns the writer to the pool. Releasing a writer with
// unclosed frames is a bug in the caller, not a runtime condition, and
// panics.
func (w *Writer) Release() {
	if len(w.open) != 0 {
		panic(fmt.Sprintf("wire: writer released with %d unclosed frame(s)", len(w.open)))
	}
	w.reset()
	pool.Put(w)
}

// Discard abandons the buffer regardless of frame state. For error
// paths that bail out mid-message.
func (w *Writer) Discard() {
	w.reset()
	pool.Put(w)
}

func (w *Writer) reset() {
	w.buf = w.buf[:0]
	w.open = w.open[:0]
}

// StartMessage opens a length-prefixed frame: a 2-byte little-endian
// length placeholder followed by the tag byte. Frames nest.
func (w *Writer) StartMessage(tag byte) {
	w.open = append(w.open, len(w.buf))
	w.buf = append(w.buf, 0, 0, tag)
}

// EndMessage closes the innermost open frame, backpatching its length.
// The length covers the payload only, not the 3-byte header.
func (w *Writer) EndMessage() {
	if len(w.open) == 0 {
		panic("wire: EndMessage with no open frame")
	}
	start := w.open[len(w.open)-1]
	w.open = w.open[:len(w.open)-1]

	length := len(w.buf) - start - 3
	w.buf[start] = byte(length)
	w.buf[start+1] = byte(length >> 8)
}

// HasOpenMessages reports whether any frame is still open.
func (w *Writer) HasOpenMessages() bool { return len(w.open) != 0 }

// Bytes returns the built buffer. The slice aliases the writer's
// internal storage; callers must copy it if it outlives the writer.
func (w *Writer) Bytes() []byte {
	if len(w.open) != 0 {
		panic(fmt.Sprintf("wire: Bytes with %d unclosed frame(s)", len(w.open)))
	}
	return w.buf
}

// Copy returns an owned copy of the built buffer, safe to hand to a
// transport that outlives this writer.
func (w *Writer) Copy() []byte {
	b := w.Bytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (w *Writer) WriteUint8(v byte) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteUint16(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

func (w *Writer) WriteUint32(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// WritePacked writes v as a packed varint: 7-bit groups, least
// significant first, high bit set on every byte but the last.
func (w *Writer) WritePacked(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf = append(w.buf, b)
		if v == 0 {
			return
		}
	}
}

// WriteString writes a packed length prefix followed by the UTF-8
// bytes.
func (w *Writer) WriteString(s string) {
	w.WritePacked(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
