package ae

import (
	"io"

	"github.com/matsen/ae/internal/bitio"
)

// Encoder compresses bytes written to it. Close must be called to terminate
// the stream; the output is not decodable before that.
type Encoder struct {
	low, high uint32
	underflow int

	model  *model
	bits   *bitio.Writer
	closed bool
}

// NewEncoder returns an Encoder writing coded output to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		high:  topValue,
		model: newModel(),
		bits:  bitio.NewWriter(w),
	}
}

// WriteByte encodes a single byte.
func (e *Encoder) WriteByte(c byte) error {
	if e.closed {
		return ErrClosed
	}
	return e.encode(int(c))
}

// Write encodes every byte of p.
func (e *Encoder) Write(p []byte) (int, error) {
	if e.closed {
		return 0, ErrClosed
	}
	for i, c := range p {
		if err := e.encode(int(c)); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Close encodes the end-of-stream symbol and flushes the final bits.
// Closing an already closed Encoder is a no-op.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if err := e.encode(SymbolEOF); err != nil {
		return err
	}

	// Disambiguate the final interval with bit 30 of low, followed by any
	// pending underflow bits.
	e.underflow++
	bit := e.low&secondMask != 0
	if err := e.bits.WriteBit(bit); err != nil {
		return err
	}
	for ; e.underflow > 0; e.underflow-- {
		if err := e.bits.WriteBit(!bit); err != nil {
			return err
		}
	}

	return e.bits.Flush()
}

func (e *Encoder) encode(s int) error {
	if s < 0 || s >= NumSymbols {
		return ErrInvalidSymbol
	}

	lo, hi := e.model.bounds(s)
	e.high, e.low = narrow(e.low, e.high, lo, hi, e.model.total)

	for {
		switch {
		case converged(e.low, e.high):
			bit := e.low&msbMask != 0
			if err := e.bits.WriteBit(bit); err != nil {
				return err
			}
			for ; e.underflow > 0; e.underflow-- {
				if err := e.bits.WriteBit(!bit); err != nil {
					return err
				}
			}
		case straddling(e.low, e.high):
			e.underflow++
			e.low &= lowerBitMask
			e.high |= secondMask
		default:
			e.model.increment(s)
			return nil
		}

		e.low <<= 1
		e.high = e.high<<1 | 1
	}
}
