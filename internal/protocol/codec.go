// Package protocol implements the length-prefixed binary frame codec and
// the TLS transport it rides on. A frame on the wire is a 4-byte
// big-endian length followed by that many bytes of envelope; the
// envelope carries a payload-type tag, an opaque payload, and an
// optional correlation id. Decoding never misaligns on a partial read:
// a frame is only consumed once the full declared length is buffered.
package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/oracle-trader/runtime/pkg/types"
)

// DefaultMaxFrameBytes bounds a single frame's declared length as a
// defensive cap against a corrupt or hostile length prefix.
const DefaultMaxFrameBytes = 16 << 20 // 16 MiB

// Decoder accumulates bytes from the transport and yields complete
// frames as they become available. It is not safe for concurrent use;
// the broker client's single reader goroutine owns it.
type Decoder struct {
	buf         bytes.Buffer
	maxFrame    uint32
	pendingLen  uint32
	haveLen     bool
}

// NewDecoder returns a Decoder that rejects frames longer than maxFrame
// bytes. A maxFrame of 0 selects DefaultMaxFrameBytes.
func NewDecoder(maxFrame uint32) *Decoder {
	if maxFrame == 0 {
		maxFrame = DefaultMaxFrameBytes
	}
	return &Decoder{maxFrame: maxFrame}
}

// Feed appends newly read bytes to the internal buffer.
func (d *Decoder) Feed(data []byte) {
	d.buf.Write(data)
}

// Next pops one complete envelope from the buffer if one is available.
// It returns ok=false, with no bytes consumed beyond a fully-read length
// prefix, when the buffer holds only a partial frame.
func (d *Decoder) Next() (env types.Envelope, ok bool, err error) {
	for {
		if !d.haveLen {
			if d.buf.Len() < 4 {
				return types.Envelope{}, false, nil
			}
			header := d.buf.Next(4)
			d.pendingLen = binary.BigEndian.Uint32(header)
			if d.pendingLen > d.maxFrame {
				return types.Envelope{}, false, fmt.Errorf("protocol: frame length %d exceeds cap %d", d.pendingLen, d.maxFrame)
			}
			d.haveLen = true
		}

		if uint32(d.buf.Len()) < d.pendingLen {
			return types.Envelope{}, false, nil
		}

		frameBytes := make([]byte, d.pendingLen)
		copy(frameBytes, d.buf.Next(int(d.pendingLen)))
		// Reset the length state before decoding, guarding against
		// reentrant calls into Next from within a handler.
		d.haveLen = false
		d.pendingLen = 0

		env, derr := decodeEnvelope(frameBytes)
		if derr != nil {
			return types.Envelope{}, false, fmt.Errorf("protocol: decode envelope: %w", derr)
		}
		return env, true, nil
	}
}

// envelope wire layout (within one frame's payload):
//   4 bytes big-endian payload_type
//   2 bytes big-endian correlation id length, then that many ASCII bytes
//   remainder: opaque payload bytes
func decodeEnvelope(frame []byte) (types.Envelope, error) {
	if len(frame) < 6 {
		return types.Envelope{}, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	payloadType := binary.BigEndian.Uint32(frame[0:4])
	corrLen := binary.BigEndian.Uint16(frame[4:6])
	if len(frame) < 6+int(corrLen) {
		return types.Envelope{}, fmt.Errorf("frame truncated before correlation id")
	}
	corrID := string(frame[6 : 6+int(corrLen)])
	payload := frame[6+int(corrLen):]
	return types.Envelope{PayloadType: payloadType, Payload: payload, CorrelationID: corrID}, nil
}

// Encode serializes an envelope into one length-prefixed frame.
func Encode(env types.Envelope) ([]byte, error) {
	if len(env.CorrelationID) > 1<<16-1 {
		return nil, fmt.Errorf("protocol: correlation id too long: %d bytes", len(env.CorrelationID))
	}
	body := make([]byte, 0, 6+len(env.CorrelationID)+len(env.Payload))
	var hdr [6]byte
	binary.BigEndian.PutUint32(hdr[0:4], env.PayloadType)
	binary.BigEndian.PutUint16(hdr[4:6], uint16(len(env.CorrelationID)))
	body = append(body, hdr[:]...)
	body = append(body, env.CorrelationID...)
	body = append(body, env.Payload...)

	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(body)))
	copy(frame[4:], body)
	return frame, nil
}
