package protocol

import (
	"bytes"
	"io"
	"testing"
)

func TestEncoderDecoderRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(0xAB)
	e.WriteUint16(0xBEEF)
	e.WriteUint32(0xDEADBEEF)
	e.WriteUint64(0x0102030405060708)
	e.WriteInt16(-12345)
	e.WriteBytes([]byte{1, 2, 3})
	e.WriteZeros(2)

	d := NewDecoder(e.Bytes())

	if b, _ := d.ReadByte(); b != 0xAB {
		t.Errorf("ReadByte() = %#x", b)
	}
	if v, _ := d.ReadUint16(); v != 0xBEEF {
		t.Errorf("ReadUint16() = %#x", v)
	}
	if v, _ := d.ReadUint32(); v != 0xDEADBEEF {
		t.Errorf("ReadUint32() = %#x", v)
	}
	if v, _ := d.ReadUint64(); v != 0x0102030405060708 {
		t.Errorf("ReadUint64() = %#x", v)
	}
	if v, _ := d.ReadInt16(); v != -12345 {
		t.Errorf("ReadInt16() = %d", v)
	}
	if b, _ := d.ReadBytes(3); !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Errorf("ReadBytes() = %v", b)
	}
	if err := d.Skip(2); err != nil {
		t.Errorf("Skip() error = %v", err)
	}
	if !d.EOF() {
		t.Errorf("decoder not at EOF, %d bytes remaining", d.Remaining())
	}
}

func TestDecoderShortReads(t *testing.T) {
	d := NewDecoder([]byte{0x01})

	if _, err := d.ReadUint16(); err != io.ErrUnexpectedEOF {
		t.Errorf("ReadUint16() error = %v, want ErrUnexpectedEOF", err)
	}
	if _, err := d.ReadUint32(); err != io.ErrUnexpectedEOF {
		t.Errorf("ReadUint32() error = %v, want ErrUnexpectedEOF", err)
	}
	if _, err := d.ReadUint64(); err != io.ErrUnexpectedEOF {
		t.Errorf("ReadUint64() error = %v, want ErrUnexpectedEOF", err)
	}
	if err := d.Skip(2); err != io.ErrUnexpectedEOF {
		t.Errorf("Skip() error = %v, want ErrUnexpectedEOF", err)
	}

	// The single byte is still readable after failed wide reads.
	if b, err := d.ReadByte(); err != nil || b != 0x01 {
		t.Errorf("ReadByte() = %#x, %v", b, err)
	}
	if _, err := d.ReadByte(); err != io.ErrUnexpectedEOF {
		t.Errorf("ReadByte() at EOF error = %v", err)
	}
}

func TestEncoderReset(t *testing.T) {
	e := NewEncoderWithCap(8)
	e.WriteUint32(42)
	if e.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", e.Len())
	}
	e.Reset()
	if e.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", e.Len())
	}
}
