package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var ErrCorruptSpin = errors.New("storage: corrupt spin data")

// WriteSpin writes buf as raw little-endian float64 values in buffer order.
func WriteSpin(w io.Writer, buf []float64) error {
	out := make([]byte, 8*len(buf))
	for i, v := range buf {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
	}
	_, err := w.Write(out)
	return err
}

// ReadSpin reads a buffer written by WriteSpin. The value count must be a
// multiple of three.
func ReadSpin(r io.Reader) ([]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of float64", ErrCorruptSpin, len(data))
	}
	buf := make([]float64, len(data)/8)
	if len(buf)%3 != 0 {
		return nil, fmt.Errorf("%w: %d values is not a whole number of vectors", ErrCorruptSpin, len(buf))
	}
	for i := range buf {
		buf[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
	}
	return buf, nil
}
