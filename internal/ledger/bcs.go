package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/suilocker/suilocker/internal/common"
)

// Reader decodes the ledger's binary return-value encoding: ULEB128
// length prefixes, little-endian integers, single-byte option tags and
// booleans, 32-byte addresses. All reads fail loudly on truncated input.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Remaining reports how many undecoded bytes are left.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			common.ErrMalformedRecord, n, r.off, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadULEB reads an unsigned LEB128 length.
func (r *Reader) ReadULEB() (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("%w: uleb128 overflow", common.ErrMalformedRecord)
		}
	}
}

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadULEB()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid bool byte %#x", common.ErrMalformedRecord, b)
	}
}

// ReadOptionString reads a single-byte option tag followed by a string
// when the tag is Some.
func (r *Reader) ReadOptionString() (*string, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("%w: invalid option tag %#x", common.ErrMalformedRecord, tag)
	}
}

func (r *Reader) ReadOptionU64() (*uint64, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		v, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, fmt.Errorf("%w: invalid option tag %#x", common.ErrMalformedRecord, tag)
	}
}

func (r *Reader) ReadStringVector() ([]string, error) {
	n, err := r.ReadULEB()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadAddress reads a fixed 32-byte account/object id and renders it as
// 0x-prefixed hex.
func (r *Reader) ReadAddress() (string, error) {
	b, err := r.take(32)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}

// Writer is the encoding counterpart of Reader. The production read path
// never encodes, but fakes and fixtures do, and keeping both directions
// adjacent keeps the format honest.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) putByte(b byte) { w.buf = append(w.buf, b) }

// WriteVersion writes the single schema-version byte that prefixes every
// encoded record.
func (w *Writer) WriteVersion(v byte) { w.putByte(v) }

func (w *Writer) WriteULEB(v uint64) {
	for v >= 0x80 {
		w.buf = append(w.buf, byte(v)|0x80)
		v >>= 7
	}
	w.buf = append(w.buf, byte(v))
}

func (w *Writer) WriteBytes(b []byte) {
	w.WriteULEB(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteString(s string) { w.WriteBytes([]byte(s)) }

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.putByte(1)
	} else {
		w.putByte(0)
	}
}

func (w *Writer) WriteOptionString(p *string) {
	if p == nil {
		w.putByte(0)
		return
	}
	w.putByte(1)
	w.WriteString(*p)
}

func (w *Writer) WriteOptionU64(p *uint64) {
	if p == nil {
		w.putByte(0)
		return
	}
	w.putByte(1)
	w.WriteU64(*p)
}

func (w *Writer) WriteStringVector(v []string) {
	w.WriteULEB(uint64(len(v)))
	for _, s := range v {
		w.WriteString(s)
	}
}

func (w *Writer) WriteAddress(addr string) error {
	s := addr
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if len(b) > 32 {
		return fmt.Errorf("address %q longer than 32 bytes", addr)
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	w.buf = append(w.buf, padded...)
	return nil
}
