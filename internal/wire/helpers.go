package wire

// NewAck builds an ACK packet for the given sequence. ACK payloads are
// always empty.
func NewAck(seq uint8) *Packet {
	return &Packet{Kind: KindAck, Seq: seq, Payload: nil}
}

// NewRetxRequest builds a RETX_REQUEST packet whose single payload
// byte names the missing sequence.
func NewRetxRequest(seq uint8, missing uint8) *Packet {
	return &Packet{Kind: KindRetxRequest, Seq: seq, Payload: []byte{missing}}
}

// RequestedSeq extracts the missing sequence from a RETX_REQUEST
// packet. ok is false if p is not a well-formed RETX_REQUEST.
func RequestedSeq(p *Packet) (seq uint8, ok bool) {
	if p == nil || p.Kind != KindRetxRequest || len(p.Payload) != 1 {
		return 0, false
	}
	return p.Payload[0], true
}
