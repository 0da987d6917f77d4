// Package bitio reads and writes single bits, most significant bit first.
package bitio

import (
	"io"
)

// Writer packs bits into bytes and writes each byte as soon as it is full.
type Writer struct {
	w      io.Writer
	buf    byte
	nbits  uint
	single [1]byte
}

// NewWriter returns a Writer that writes packed bytes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteBit appends one bit to the stream.
func (bw *Writer) WriteBit(bit bool) error {
	if bit {
		bw.buf |= 1 << (7 - bw.nbits)
	}
	bw.nbits++

	if bw.nbits == 8 {
		return bw.emit()
	}
	return nil
}

// Flush writes any buffered bits as a final zero-padded byte.
func (bw *Writer) Flush() error {
	if bw.nbits == 0 {
		return nil
	}
	return bw.emit()
}

func (bw *Writer) emit() error {
	bw.single[0] = bw.buf
	n, err := bw.w.Write(bw.single[:])
	if err != nil {
		return err
	}
	if n != 1 {
		return io.ErrShortWrite
	}
	bw.buf = 0
	bw.nbits = 0
	return nil
}

// Reader unpacks bytes into bits.
type Reader struct {
	r      io.Reader
	buf    byte
	nbits  uint
	single [1]byte
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadBit returns the next bit. It returns io.EOF once the input is
// exhausted, and keeps returning it on later calls.
func (br *Reader) ReadBit() (bool, error) {
	if br.nbits == 0 {
		n, err := io.ReadFull(br.r, br.single[:])
		if n == 0 {
			if err == nil || err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			return false, err
		}
		br.buf = br.single[0]
		br.nbits = 8
	}

	bit := br.buf&(1<<(br.nbits-1)) != 0
	br.nbits--
	return bit, nil
}
