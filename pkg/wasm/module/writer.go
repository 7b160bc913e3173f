package module

import (
	"encoding/binary"
)

// writer buffers LEB128-encoded section bytes, grounded on
// wippyai-wasm-runtime's wasm/internal/binary.Writer.
type writer struct {
	buf []byte
}

func newWriter() *writer { return &writer{} }

func (w *writer) bytes() []byte { return w.buf }
func (w *writer) len() int      { return len(w.buf) }

func (w *writer) b(v byte)         { w.buf = append(w.buf, v) }
func (w *writer) raw(data []byte)  { w.buf = append(w.buf, data...) }

func (w *writer) u32le(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// u32 writes an unsigned LEB128 varuint32.
func (w *writer) u32(v uint32) {
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

// s32 writes a signed LEB128 varint32.
func (w *writer) s32(v int32) {
	more := true

	for more {
		b := byte(v & 0x7f)
		v >>= 7

		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}

		w.buf = append(w.buf, b)
	}
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
