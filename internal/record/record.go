package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Record is a single (key, value) entry as it exists on disk.
//
// The on-disk layout, in order:
//
//	tombstone  1 byte   0 = live, 1 = deleted
//	key_len    4 bytes  little-endian byte length of the key
//	key        key_len bytes
//	value      4 bytes  little-endian signed integer
//
// There is no checksum and no record-length trailer; readers find record
// boundaries only by walking the fields forward from offset 0.
type Record struct {
	Tombstone bool
	Key       []byte
	Value     int32
}

// Tombstone (1) + KeyLen (4)
const HeaderSizeBytes = 5

// ValueSizeBytes is the fixed width of the value field.
const ValueSizeBytes = 4

// MaxKeyLen is a sanity bound on the declared key length. A scan that reads
// a larger length treats the record and everything after it as trailing
// garbage from an interrupted write.
const MaxKeyLen = 256

// ErrMalformed is returned by ReadAt when the bytes at the given offset do
// not form a complete, sane record. It ends a scan without being fatal.
var ErrMalformed = errors.New("record: malformed record")

// EncodedSize returns the on-disk size of a record with a key of the given
// byte length.
func EncodedSize(keyLen int) int64 {
	return int64(HeaderSizeBytes + keyLen + ValueSizeBytes)
}

// Encode serializes a record into its on-disk layout.
func Encode(r *Record) ([]byte, error) {
	buf := &bytes.Buffer{}

	var flag uint8
	if r.Tombstone {
		flag = 1
	}

	if err := buf.WriteByte(flag); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(r.Key))); err != nil {
		return nil, err
	}
	if _, err := buf.Write(r.Key); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, r.Value); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ReadAt decodes the record starting at the given offset and returns it
// together with its encoded size, so callers can step to the next record.
//
// It returns io.EOF when fewer bytes remain than the fixed header requires
// (the normal end of a scan, or a short trailing write), and ErrMalformed
// when the declared key length exceeds MaxKeyLen or the payload is cut off.
func ReadAt(r io.ReaderAt, offset int64) (*Record, int64, error) {
	header := make([]byte, HeaderSizeBytes)
	if _, err := r.ReadAt(header, offset); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, 0, io.EOF
		}
		return nil, 0, err
	}

	keyLen := binary.LittleEndian.Uint32(header[1:])
	if keyLen > MaxKeyLen {
		return nil, 0, ErrMalformed
	}

	payload := make([]byte, int(keyLen)+ValueSizeBytes)
	if _, err := r.ReadAt(payload, offset+HeaderSizeBytes); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, 0, ErrMalformed
		}
		return nil, 0, err
	}

	value := int32(binary.LittleEndian.Uint32(payload[keyLen:]))

	return &Record{
		Tombstone: header[0] != 0,
		Key:       payload[:keyLen],
		Value:     value,
	}, EncodedSize(int(keyLen)), nil
}

// MarkTombstone overwrites the tombstone flag of the record at the given
// offset with 1. No other byte of the record is touched, so the record
// becomes invisible to future scans without the file shrinking.
func MarkTombstone(w io.WriterAt, offset int64) error {
	_, err := w.WriteAt([]byte{1}, offset)
	return err
}
