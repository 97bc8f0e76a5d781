// internal/frame/stream.go
package frame

// StreamFrame is one frame read in continuous mode: either a Sample or the
// terminal Halt frame carrying the device's final count.
type StreamFrame struct {
	Halt   bool
	Count  uint32
	Sample Sample
}

// StreamPayloadLen validates a stream header byte and returns the number
// of payload bytes that must be read to drain the frame.
func StreamPayloadLen(b byte) (int, error) {
	switch cls := ClassOf(b); cls {
	case ClassData:
		if n := ByteCount(b); n != DataByteCount {
			return 0, Framing(b, "data byte count %d, want %d", n, DataByteCount)
		}
		return DataPayloadLen, nil
	case ClassHalt:
		return HaltPayloadLen, nil
	case ClassResponse, ClassReserved:
		return 0, Framing(b, "unexpected %s frame in stream", cls)
	default:
		return 0, Framing(b, "unknown frame class")
	}
}

// DecodeStreamFrame decodes a stream frame payload read after header b.
func DecodeStreamFrame(b byte, payload []byte) (StreamFrame, error) {
	if _, err := StreamPayloadLen(b); err != nil {
		return StreamFrame{}, err
	}
	if ClassOf(b) == ClassHalt {
		n, err := DecodeHaltCount(payload)
		if err != nil {
			return StreamFrame{}, err
		}
		return StreamFrame{Halt: true, Count: n}, nil
	}
	s, err := DecodeSample(payload)
	if err != nil {
		return StreamFrame{}, err
	}
	return StreamFrame{Sample: s}, nil
}
