// Package ae implements an adaptive order-0 arithmetic coder over bytes.
//
// Each stream carries its own end-of-stream symbol, so a decoder knows where
// the data stops without a length prefix. Symbol frequencies start uniform and
// adapt as symbols are coded; encoder and decoder update their models in
// lockstep, so no table is transmitted.
//
// Typical use:
//
//	var buf bytes.Buffer
//	enc := ae.NewEncoder(&buf)
//	enc.Write(data)
//	enc.Close()
//
//	dec, err := ae.NewDecoder(&buf)
//	out, err := io.ReadAll(dec)
package ae

import (
	"errors"
	"io"
)

const (
	// NumSymbols is the alphabet size: 256 byte values plus SymbolEOF.
	NumSymbols = 0x101

	// SymbolEOF marks the end of a coded stream.
	SymbolEOF = 0x100
)

// Register layout. The coder works with 32-bit high/low registers and keeps
// an implicit infinite tail of 1 bits after high.
const (
	topValue     uint32 = 0xFFFFFFFF
	msbMask      uint32 = 0x80000000
	secondMask   uint32 = 0x40000000
	topTwoMask   uint32 = 0xC0000000
	lowerBitMask uint32 = 0x3FFFFFFF
)

// maxPaddingBits bounds how far a decoder may read past the end of its input.
// A complete stream never needs more than 31 padding bits.
const maxPaddingBits = 64

var (
	// ErrClosed is returned when writing to an Encoder after Close.
	ErrClosed = errors.New("ae: write to closed encoder")

	// ErrInvalidSymbol is returned for symbols outside the alphabet.
	ErrInvalidSymbol = errors.New("ae: invalid symbol")
)

// Compress encodes everything read from src onto dst, terminating the stream
// with SymbolEOF. It returns the number of input bytes consumed.
func Compress(dst io.Writer, src io.Reader) (int64, error) {
	enc := NewEncoder(dst)
	n, err := io.Copy(enc, src)
	if err != nil {
		return n, err
	}
	return n, enc.Close()
}

// Decompress decodes a stream produced by Compress from src onto dst and
// returns the number of decoded bytes written.
func Decompress(dst io.Writer, src io.Reader) (int64, error) {
	dec, err := NewDecoder(src)
	if err != nil {
		return 0, err
	}
	return io.Copy(dst, dec)
}
