/*
DESCRIPTION
  writer.go provides a bit-level writer with Exp-Golomb coding and NAL
  emulation-prevention byte insertion, for building H.264 RBSP payloads.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bits provides a bit writer implementation with Exp-Golomb coding
// and start-code emulation-prevention, the mirror image of an H.264
// decode-side bit reader. github.com/ausocean/hwenc/h264 uses it to write
// SPS and PPS NAL units.
package bits

import (
	"fmt"
	"math/bits"
)

// Writer accumulates bits msb-first into a byte slice. Whenever
// emulation prevention is enabled, a 0x03 byte is inserted after any two
// consecutive emitted zero bytes that would otherwise be followed by a
// byte in {0x00, 0x01, 0x02, 0x03}, so the output never contains a false
// start code.
type Writer struct {
	buf        []byte
	acc        uint64
	nbits      int
	prevention bool
	zeroRun    int
}

// NewWriter returns a new, empty Writer with emulation prevention off.
func NewWriter() *Writer {
	return &Writer{}
}

// PutBits writes the low n bits of v, most-significant bit first.
// n must be in [1, 32].
func (w *Writer) PutBits(n int, v uint32) error {
	if n < 1 || n > 32 {
		return fmt.Errorf("bits: PutBits: n out of range: %d", n)
	}
	if n < 32 {
		v &= (1 << uint(n)) - 1
	}
	w.acc = (w.acc << uint(n)) | uint64(v)
	w.nbits += n
	for w.nbits >= 8 {
		w.nbits -= 8
		b := byte(w.acc >> uint(w.nbits))
		w.emit(b)
	}
	// Mask the accumulator down to the bits still pending so it can't
	// grow unbounded across many small writes.
	if w.nbits > 0 {
		w.acc &= (1 << uint(w.nbits)) - 1
	} else {
		w.acc = 0
	}
	return nil
}

// emit appends a single completed byte to the output, inserting an
// emulation-prevention byte first if required.
func (w *Writer) emit(b byte) {
	if w.prevention && w.zeroRun >= 2 && b <= 0x03 {
		w.buf = append(w.buf, 0x03)
		w.zeroRun = 0
	}
	w.buf = append(w.buf, b)
	if b == 0x00 {
		w.zeroRun++
	} else {
		w.zeroRun = 0
	}
}

// ExpGolombUE writes the unsigned Exp-Golomb code for v.
func (w *Writer) ExpGolombUE(v uint32) {
	codeNum := v + 1
	n := bits.Len32(codeNum)
	if n > 1 {
		w.PutBits(n-1, 0)
	}
	w.PutBits(n, codeNum)
}

// ExpGolombSE writes the signed Exp-Golomb code for v, using the
// standard mapping codeNum = 2|v| - sign(v>0), then ue(codeNum).
func (w *Writer) ExpGolombSE(v int32) {
	var codeNum uint32
	if v <= 0 {
		codeNum = uint32(-v) * 2
	} else {
		codeNum = uint32(v)*2 - 1
	}
	w.ExpGolombUE(codeNum)
}

// RBSPTrailing writes the rbsp_trailing_bits syntax: a single 1 bit
// followed by zero bits up to the next byte boundary.
func (w *Writer) RBSPTrailing() {
	w.PutBits(1, 1)
	if rem := (8 - w.nbits) % 8; rem > 0 {
		w.PutBits(rem, 0)
	}
}

// SetEmulationPrevention turns emulation-prevention scanning on or off
// for subsequently emitted bytes. Toggling resets the zero-run count so
// state from one region never leaks into the next.
func (w *Writer) SetEmulationPrevention(on bool) {
	w.prevention = on
	w.zeroRun = 0
}

// ByteAligned reports whether the writer is currently at a byte boundary.
func (w *Writer) ByteAligned() bool {
	return w.nbits == 0
}

// ByteCount returns the number of complete bytes emitted so far.
func (w *Writer) ByteCount() int {
	return len(w.buf)
}

// Bytes returns the bytes emitted so far. The writer must be byte
// aligned; call RBSPTrailing first if it is not.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// AppendBytes writes each byte of data through PutBits(8, ...), so
// emulation-prevention scanning applies exactly as it would for bits
// written one at a time. Used to copy an already-built RBSP into a NAL
// writer without prevention applied twice.
func (w *Writer) AppendBytes(data []byte) {
	for _, b := range data {
		w.PutBits(8, uint32(b))
	}
}

// LastByte returns the most recently emitted byte and whether one exists.
func (w *Writer) LastByte() (byte, bool) {
	if len(w.buf) == 0 {
		return 0, false
	}
	return w.buf[len(w.buf)-1], true
}
