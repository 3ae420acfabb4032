package record

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

func TestEncodeReadRoundTrip(t *testing.T) {
	original := &Record{
		Tombstone: false,
		Key:       []byte("language"),
		Value:     -42,
	}

	encoded, err := Encode(original)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	if int64(len(encoded)) != EncodedSize(len(original.Key)) {
		t.Fatalf("encoded size mismatch: got %d, want %d", len(encoded), EncodedSize(len(original.Key)))
	}

	decoded, n, err := ReadAt(bytes.NewReader(encoded), 0)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if n != int64(len(encoded)) {
		t.Errorf("size mismatch: got %d, want %d", n, len(encoded))
	}
	if decoded.Tombstone != original.Tombstone {
		t.Errorf("Tombstone mismatch: got %v, want %v", decoded.Tombstone, original.Tombstone)
	}
	if !bytes.Equal(decoded.Key, original.Key) {
		t.Errorf("Key mismatch: got %q, want %q", decoded.Key, original.Key)
	}
	if decoded.Value != original.Value {
		t.Errorf("Value mismatch: got %v, want %v", decoded.Value, original.Value)
	}
}

func TestEncodedByteLayout(t *testing.T) {
	r := &Record{
		Tombstone: true,
		Key:       []byte("ab"),
		Value:     -1,
	}

	encoded, err := Encode(r)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// Expected bytes structure:
	// uint8 tombstone flag
	// uint32 key length
	// []byte key
	// int32 value
	if encoded[0] != 1 {
		t.Fatalf("expected tombstone byte 1, got %v", encoded[0])
	}

	keyLen := binary.LittleEndian.Uint32(encoded[1:5])
	if keyLen != 2 {
		t.Fatalf("key length mismatch: got %v, want 2", keyLen)
	}

	if encoded[5] != 'a' || encoded[6] != 'b' {
		t.Fatalf("unexpected key bytes: %v", encoded[5:7])
	}

	value := int32(binary.LittleEndian.Uint32(encoded[7:11]))
	if value != -1 {
		t.Fatalf("value mismatch: got %v, want -1", value)
	}
}

func TestReadAtShortHeaderIsEOF(t *testing.T) {
	encoded, _ := Encode(&Record{Key: []byte("abc"), Value: 7})

	for i := 0; i < HeaderSizeBytes; i++ {
		_, _, err := ReadAt(bytes.NewReader(encoded[:i]), 0)
		if err != io.EOF {
			t.Fatalf("expected io.EOF for %d header bytes, got %v", i, err)
		}
	}
}

func TestReadAtTruncatedPayloadIsMalformed(t *testing.T) {
	encoded, _ := Encode(&Record{Key: []byte("abc"), Value: 7})

	for i := HeaderSizeBytes; i < len(encoded); i++ {
		_, _, err := ReadAt(bytes.NewReader(encoded[:i]), 0)
		if err != ErrMalformed {
			t.Fatalf("expected ErrMalformed for %d bytes, got %v", i, err)
		}
	}
}

func TestReadAtOversizedKeyLenIsMalformed(t *testing.T) {
	buf := make([]byte, HeaderSizeBytes)
	binary.LittleEndian.PutUint32(buf[1:], MaxKeyLen+1)

	_, _, err := ReadAt(bytes.NewReader(buf), 0)
	if err != ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestReadAtMaxLengthKeyIsAccepted(t *testing.T) {
	key := bytes.Repeat([]byte("k"), MaxKeyLen)
	encoded, err := Encode(&Record{Key: key, Value: 1})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, _, err := ReadAt(bytes.NewReader(encoded), 0)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if !bytes.Equal(decoded.Key, key) {
		t.Fatal("max-length key did not round-trip")
	}
}

// writerAt adapts a byte slice so MarkTombstone can patch it in place.
type writerAt []byte

func (w writerAt) WriteAt(p []byte, off int64) (int, error) {
	return copy(w[off:], p), nil
}

func TestMarkTombstoneFlipsSingleByte(t *testing.T) {
	first, _ := Encode(&Record{Key: []byte("first"), Value: 1})
	second, _ := Encode(&Record{Key: []byte("second"), Value: 2})

	file := append(append([]byte{}, first...), second...)
	before := append([]byte{}, file...)

	if err := MarkTombstone(writerAt(file), int64(len(first))); err != nil {
		t.Fatalf("MarkTombstone failed: %v", err)
	}

	for i := range file {
		switch {
		case i == len(first):
			if file[i] != 1 {
				t.Fatalf("tombstone byte not set at offset %d", i)
			}
		case file[i] != before[i]:
			t.Fatalf("byte %d changed unexpectedly", i)
		}
	}

	rec, _, err := ReadAt(bytes.NewReader(file), int64(len(first)))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if !rec.Tombstone {
		t.Fatal("record should decode as tombstoned")
	}
}
