package ae

import (
	"io"

	"github.com/matsen/ae/internal/bitio"
)

// Decoder decompresses a stream produced by an Encoder.
type Decoder struct {
	low, high uint32
	code      uint32

	model   *model
	bits    *bitio.Reader
	padding int
	err     error
}

// NewDecoder returns a Decoder reading coded input from r. It primes the
// decoder with the first 32 bits of input.
func NewDecoder(r io.Reader) (*Decoder, error) {
	d := &Decoder{
		high:  topValue,
		model: newModel(),
		bits:  bitio.NewReader(r),
	}

	for i := 0; i < 32; i++ {
		bit, err := d.nextBit()
		if err != nil {
			return nil, err
		}
		d.code = d.code<<1 | bit
	}
	return d, nil
}

// ReadByte decodes the next byte. It returns io.EOF once the end-of-stream
// symbol has been decoded.
func (d *Decoder) ReadByte() (byte, error) {
	if d.err != nil {
		return 0, d.err
	}

	s, err := d.decode()
	if err != nil {
		d.err = err
		return 0, err
	}
	if s == SymbolEOF {
		d.err = io.EOF
		return 0, io.EOF
	}
	return byte(s), nil
}

// Read decodes up to len(p) bytes into p.
func (d *Decoder) Read(p []byte) (int, error) {
	for i := range p {
		c, err := d.ReadByte()
		if err != nil {
			return i, err
		}
		p[i] = c
	}
	return len(p), nil
}

func (d *Decoder) decode() (int, error) {
	width := uint64(d.high-d.low) + 1
	target := ((uint64(d.code-d.low)+1)*d.model.total - 1) / width

	s := d.model.symbolFor(target)
	lo, hi := d.model.bounds(s)
	d.high, d.low = narrow(d.low, d.high, lo, hi, d.model.total)

	for {
		switch {
		case converged(d.low, d.high):
		case straddling(d.low, d.high):
			d.high |= secondMask
			d.low &= lowerBitMask
			d.code -= secondMask
		default:
			d.model.increment(s)
			if d.padding > maxPaddingBits && s != SymbolEOF {
				return 0, io.ErrUnexpectedEOF
			}
			return s, nil
		}

		d.low <<= 1
		d.high = d.high<<1 | 1

		bit, err := d.nextBit()
		if err != nil {
			return 0, err
		}
		d.code = d.code<<1 | bit
	}
}

// nextBit returns the next input bit, treating input past the end as ones.
func (d *Decoder) nextBit() (uint32, error) {
	bit, err := d.bits.ReadBit()
	switch {
	case err == io.EOF:
		d.padding++
		return 1, nil
	case err != nil:
		return 0, err
	case bit:
		return 1, nil
	default:
		return 0, nil
	}
}
