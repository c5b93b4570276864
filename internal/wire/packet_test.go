package wire

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := &Packet{Kind: KindChat, Seq: 42, Payload: []byte("hello battleship")}

	data, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.Kind != p.Kind {
		t.Errorf("Kind = %v, want %v", decoded.Kind, p.Kind)
	}
	if decoded.Seq != p.Seq {
		t.Errorf("Seq = %d, want %d", decoded.Seq, p.Seq)
	}
	if !bytes.Equal(decoded.Payload, p.Payload) {
		t.Errorf("Payload = %q, want %q", decoded.Payload, p.Payload)
	}
}

func TestEncodeEmptyPayload(t *testing.T) {
	p := NewAck(7)
	data, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != HeaderSize {
		t.Errorf("len(data) = %d, want %d", len(data), HeaderSize)
	}

	decoded, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Kind != KindAck || len(decoded.Payload) != 0 {
		t.Errorf("decoded = %+v, want empty ACK", decoded)
	}
}

func TestDecodeShortHeader(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0x01, 0x02, 0x03}))
	if err != ErrFramingShort {
		t.Errorf("err = %v, want ErrFramingShort", err)
	}
}

func TestDecodeShortPayload(t *testing.T) {
	p := &Packet{Kind: KindChat, Seq: 1, Payload: []byte("hi there")}
	data, _ := p.Encode()
	truncated := data[:HeaderSize+2]

	_, err := Decode(bytes.NewReader(truncated))
	if err != ErrFramingShort {
		t.Errorf("err = %v, want ErrFramingShort", err)
	}
}

func TestDecodeBadChecksum(t *testing.T) {
	p := &Packet{Kind: KindSystem, Seq: 5, Payload: []byte("corrupt me")}
	data, _ := p.Encode()
	data[len(data)-1] ^= 0xFF // flip a payload byte without updating checksum

	_, err := Decode(bytes.NewReader(data))
	if err != ErrChecksumBad {
		t.Errorf("err = %v, want ErrChecksumBad", err)
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	p := &Packet{Kind: KindChat, Seq: 1, Payload: make([]byte, MaxPayload+1)}
	if _, err := p.Encode(); err != ErrPayloadTooLarge {
		t.Errorf("err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestRetxRequestRoundTrip(t *testing.T) {
	p := NewRetxRequest(9, 200)
	data, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	seq, ok := RequestedSeq(decoded)
	if !ok || seq != 200 {
		t.Errorf("RequestedSeq = (%d, %v), want (200, true)", seq, ok)
	}
}

func TestSequenceWrapIsOrdinaryBytes(t *testing.T) {
	for _, seq := range []uint8{254, 255, 0, 1} {
		p := &Packet{Kind: KindPlayerMove, Seq: seq, Payload: []byte("E5")}
		data, err := p.Encode()
		if err != nil {
			t.Fatalf("Encode(seq=%d) failed: %v", seq, err)
		}
		decoded, err := Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Decode(seq=%d) failed: %v", seq, err)
		}
		if decoded.Seq != seq {
			t.Errorf("Seq = %d, want %d", decoded.Seq, seq)
		}
	}
}
