package stores

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/MrEthical07/goIdentity/faults"
)

// ErrCorruptRecord is returned when a stored value cannot be decoded. It is an
// invariant failure: the value was written by this process family.
var ErrCorruptRecord = fmt.Errorf("%w: corrupt record", faults.ErrInvariant)

// RecordWriter builds a versioned big-endian record: one version byte followed
// by fixed-width integers and uint16 length-prefixed byte strings.
type RecordWriter struct {
	buf bytes.Buffer
	err error
}

// NewRecord starts a record with the given schema version.
func NewRecord(version byte) *RecordWriter {
	w := &RecordWriter{}
	w.buf.WriteByte(version)
	return w
}

func (w *RecordWriter) Int64(v int64) *RecordWriter {
	_ = binary.Write(&w.buf, binary.BigEndian, v)
	return w
}

func (w *RecordWriter) Bool(v bool) *RecordWriter {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
	return w
}

// Fixed writes b without a length prefix.
func (w *RecordWriter) Fixed(b []byte) *RecordWriter {
	w.buf.Write(b)
	return w
}

func (w *RecordWriter) String(s string) *RecordWriter {
	return w.Blob([]byte(s))
}

func (w *RecordWriter) Blob(b []byte) *RecordWriter {
	if len(b) > math.MaxUint16 {
		w.err = fmt.Errorf("record field length %d exceeds %d", len(b), math.MaxUint16)
		return w
	}
	_ = binary.Write(&w.buf, binary.BigEndian, uint16(len(b)))
	w.buf.Write(b)
	return w
}

// Bytes returns the encoded record or the first field error.
func (w *RecordWriter) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// RecordReader decodes a record written by RecordWriter. The first failure is
// sticky and reported by Err.
type RecordReader struct {
	r   *bytes.Reader
	err error
}

// OpenRecord checks the version byte and positions the reader at the first field.
func OpenRecord(data []byte, version byte) *RecordReader {
	rd := &RecordReader{r: bytes.NewReader(data)}
	v, err := rd.r.ReadByte()
	switch {
	case err != nil:
		rd.err = fmt.Errorf("%w: empty", ErrCorruptRecord)
	case v != version:
		rd.err = fmt.Errorf("%w: version %d, want %d", ErrCorruptRecord, v, version)
	}
	return rd
}

func (rd *RecordReader) fail(err error) {
	if rd.err == nil {
		rd.err = fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
}

func (rd *RecordReader) Int64() int64 {
	var v int64
	if rd.err != nil {
		return 0
	}
	if err := binary.Read(rd.r, binary.BigEndian, &v); err != nil {
		rd.fail(err)
	}
	return v
}

func (rd *RecordReader) Bool() bool {
	if rd.err != nil {
		return false
	}
	b, err := rd.r.ReadByte()
	if err != nil {
		rd.fail(err)
		return false
	}
	return b == 1
}

func (rd *RecordReader) Fixed(dst []byte) {
	if rd.err != nil {
		return
	}
	if _, err := io.ReadFull(rd.r, dst); err != nil {
		rd.fail(err)
	}
}

func (rd *RecordReader) Blob() []byte {
	if rd.err != nil {
		return nil
	}
	var n uint16
	if err := binary.Read(rd.r, binary.BigEndian, &n); err != nil {
		rd.fail(err)
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(rd.r, b); err != nil {
		rd.fail(err)
		return nil
	}
	return b
}

func (rd *RecordReader) String() string {
	return string(rd.Blob())
}

// Err reports the first decode failure, or trailing bytes after the last field.
func (rd *RecordReader) Err() error {
	if rd.err == nil && rd.r.Len() != 0 {
		rd.err = fmt.Errorf("%w: %d trailing bytes", ErrCorruptRecord, rd.r.Len())
	}
	return rd.err
}
