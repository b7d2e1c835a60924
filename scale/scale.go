// Package scale implements the subset of the SCALE binary format used by the
// relayer: little-endian fixed-width integers, compact (variable-width)
// unsigned integers, length-prefixed byte vectors and options.
package scale

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

var (
	// ErrUnexpectedEOF is returned when the input ends in the middle of a value.
	ErrUnexpectedEOF = errors.New("scale: unexpected end of input")
	// ErrCompactTooLarge is returned when a compact integer does not fit in 64 bits.
	ErrCompactTooLarge = errors.New("scale: compact integer out of range")
	// ErrInvalidOption is returned when an option tag is neither 0x00 nor 0x01.
	ErrInvalidOption = errors.New("scale: invalid option tag")
	// ErrTrailingBytes is returned when a value is followed by unconsumed input.
	ErrTrailingBytes = errors.New("scale: trailing bytes after value")
)

// Reader decodes SCALE values from a byte slice.
type Reader struct {
	data []byte
	pos  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Close returns ErrTrailingBytes unless the input is fully consumed.
func (r *Reader) Close() error {
	if r.Remaining() != 0 {
		return errors.Wrapf(ErrTrailingBytes, "%d bytes remain", r.Remaining())
	}
	return nil
}

func (r *Reader) ReadByte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes reads exactly n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, ErrUnexpectedEOF
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	bz, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(bz), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	bz, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(bz), nil
}

// ReadCompact reads a compact-encoded unsigned integer.
func (r *Reader) ReadCompact() (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b & 0x03 {
	case 0:
		return uint64(b) >> 2, nil
	case 1:
		b2, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return (uint64(b) | uint64(b2)<<8) >> 2, nil
	case 2:
		rest, err := r.ReadBytes(3)
		if err != nil {
			return 0, err
		}
		v := uint64(b) | uint64(rest[0])<<8 | uint64(rest[1])<<16 | uint64(rest[2])<<24
		return v >> 2, nil
	default:
		n := int(b>>2) + 4
		if n > 8 {
			return 0, ErrCompactTooLarge
		}
		bz, err := r.ReadBytes(n)
		if err != nil {
			return 0, err
		}
		var v uint64
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(bz[i])
		}
		return v, nil
	}
}

// ReadCount reads a compact element count and rejects counts that cannot fit
// in the remaining input, given the minimum encoded size of one element. The
// bound keeps a hostile length prefix from driving a huge allocation.
func (r *Reader) ReadCount(elemSize int) (uint64, error) {
	n, err := r.ReadCompact()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.Remaining())/uint64(elemSize) {
		return 0, ErrUnexpectedEOF
	}
	return n, nil
}

// ReadByteSlice reads a compact length prefix followed by that many bytes.
func (r *Reader) ReadByteSlice() ([]byte, error) {
	n, err := r.ReadCompact()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Remaining()) {
		return nil, ErrUnexpectedEOF
	}
	return r.ReadBytes(int(n))
}

func (r *Reader) ReadString() (string, error) {
	bz, err := r.ReadByteSlice()
	if err != nil {
		return "", err
	}
	return string(bz), nil
}

// ReadOption reads an option tag and reports whether a value follows.
func (r *Reader) ReadOption() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, errors.Wrapf(ErrInvalidOption, "tag 0x%02x", b)
	}
}

// ReadOptionString reads Option<Vec<u8>> interpreted as a string; absent
// values yield ("", false).
func (r *Reader) ReadOptionString() (string, bool, error) {
	ok, err := r.ReadOption()
	if err != nil || !ok {
		return "", false, err
	}
	s, err := r.ReadString()
	return s, true, err
}

// Writer encodes SCALE values into a buffer.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteU8 writes a single byte. The name sidesteps the io.ByteWriter
// signature, which requires an error return.
func (w *Writer) WriteU8(b byte) {
	w.buf.WriteByte(b)
}

func (w *Writer) WriteBytes(bz []byte) {
	w.buf.Write(bz)
}

func (w *Writer) WriteUint32(v uint32) {
	var bz [4]byte
	binary.LittleEndian.PutUint32(bz[:], v)
	w.buf.Write(bz[:])
}

func (w *Writer) WriteUint64(v uint64) {
	var bz [8]byte
	binary.LittleEndian.PutUint64(bz[:], v)
	w.buf.Write(bz[:])
}

func (w *Writer) WriteCompact(v uint64) {
	switch {
	case v < 1<<6:
		w.buf.WriteByte(byte(v) << 2)
	case v < 1<<14:
		var bz [2]byte
		binary.LittleEndian.PutUint16(bz[:], uint16(v<<2)|0x01)
		w.buf.Write(bz[:])
	case v < 1<<30:
		var bz [4]byte
		binary.LittleEndian.PutUint32(bz[:], uint32(v<<2)|0x02)
		w.buf.Write(bz[:])
	default:
		n := 0
		for tmp := v; tmp > 0; tmp >>= 8 {
			n++
		}
		w.buf.WriteByte(byte(n-4)<<2 | 0x03)
		for i := 0; i < n; i++ {
			w.buf.WriteByte(byte(v >> (8 * i)))
		}
	}
}

func (w *Writer) WriteByteSlice(bz []byte) {
	w.WriteCompact(uint64(len(bz)))
	w.buf.Write(bz)
}

func (w *Writer) WriteString(s string) {
	w.WriteByteSlice([]byte(s))
}

func (w *Writer) WriteOption(present bool) {
	if present {
		w.buf.WriteByte(0x01)
	} else {
		w.buf.WriteByte(0x00)
	}
}

func (w *Writer) WriteOptionString(s string, present bool) {
	w.WriteOption(present)
	if present {
		w.WriteString(s)
	}
}
