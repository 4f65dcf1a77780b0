package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnknownPacket reports a packet id outside the expected range for the
// decoding direction. Fatal to the connection.
var ErrUnknownPacket = errors.New("protocol: unknown packet id")

// ErrFrameTooLarge reports a length field exceeding MaxFrameSize. Fatal to
// the connection.
var ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

// errShort signals an incomplete frame; the callers translate it into a
// "need more bytes" result rather than an error.
var errShort = errors.New("protocol: short frame")

// DecodeRequest parses one client frame from the front of buf. It returns the
// decoded request and the number of bytes consumed. When buf does not yet
// hold a complete frame it returns (nil, 0, nil); the caller should read more
// bytes and retry. A payload is copied out only once its whole length-prefixed
// run is present; for fan-out frames that copy happens before the trailing
// filter list is checked, and is discarded if the list is still incomplete.
func DecodeRequest(buf []byte) (Request, int, error) {
	if len(buf) < 4 {
		return nil, 0, nil
	}
	id := binary.LittleEndian.Uint32(buf)
	off := 4

	var req Request
	var err error
	switch id {
	case PacketIDPing:
		req = Ping{}

	case PacketIDCreateStream:
		var sid uint32
		sid, off, err = readUint32(buf, off)
		req = CreateStream{StreamID: sid}

	case PacketIDDeleteStream:
		var sid uint32
		sid, off, err = readUint32(buf, off)
		req = DeleteStream{StreamID: sid}

	case PacketIDEnqueueSingle:
		var sid uint32
		var data []byte
		if sid, off, err = readUint32(buf, off); err == nil {
			data, off, err = readBytes(buf, off)
		}
		req = EnqueueSingle{StreamID: sid, Data: data}

	case PacketIDEnqueueMultiple:
		var data []byte
		var ids []uint32
		if data, off, err = readBytes(buf, off); err == nil {
			ids, off, err = readFilterList(buf, off)
		}
		req = EnqueueMultiple{Data: data, StreamIDs: ids}

	case PacketIDEnqueueAll:
		var data []byte
		data, off, err = readBytes(buf, off)
		req = EnqueueAll{Data: data}

	case PacketIDEnqueueAllExcept:
		var data []byte
		var ids []uint32
		if data, off, err = readBytes(buf, off); err == nil {
			ids, off, err = readFilterList(buf, off)
		}
		req = EnqueueAllExcept{Data: data, ExcludeIDs: ids}

	case PacketIDDrainStream:
		var sid uint32
		sid, off, err = readUint32(buf, off)
		req = DrainStream{StreamID: sid}

	case PacketIDPeekStream:
		var sid uint32
		sid, off, err = readUint32(buf, off)
		req = PeekStream{StreamID: sid}

	case PacketIDCheckState:
		var sid uint32
		sid, off, err = readUint32(buf, off)
		req = CheckState{StreamID: sid}

	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownPacket, id)
	}

	if err != nil {
		if errors.Is(err, errShort) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	return req, off, nil
}

// DecodeResponse parses one server frame from the front of buf, with the same
// contract as DecodeRequest.
func DecodeResponse(buf []byte) (Response, int, error) {
	if len(buf) < 4 {
		return nil, 0, nil
	}
	id := binary.LittleEndian.Uint32(buf)
	off := 4

	var resp Response
	var err error
	switch id {
	case PacketIDPong:
		resp = Pong{}

	case PacketIDStreamContents:
		var data []byte
		data, off, err = readBytes(buf, off)
		resp = StreamContents{Data: data}

	case PacketIDStreamState:
		var sid uint32
		var valid bool
		if sid, off, err = readUint32(buf, off); err == nil {
			valid, off, err = readBool(buf, off)
		}
		resp = StreamState{StreamID: sid, Valid: valid}

	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownPacket, id)
	}

	if err != nil {
		if errors.Is(err, errShort) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	return resp, off, nil
}

func readUint32(buf []byte, off int) (uint32, int, error) {
	if len(buf)-off < 4 {
		return 0, off, errShort
	}
	return binary.LittleEndian.Uint32(buf[off:]), off + 4, nil
}

// readBool reads a single byte followed by three bytes of padding.
func readBool(buf []byte, off int) (bool, int, error) {
	if len(buf)-off < 4 {
		return false, off, errShort
	}
	return buf[off] > 0, off + 4, nil
}

// readBytes reads a u32 length prefix and the bytes it covers. The payload is
// only copied once the full run is present in buf.
func readBytes(buf []byte, off int) ([]byte, int, error) {
	n, off, err := readUint32(buf, off)
	if err != nil {
		return nil, off, err
	}
	if n > MaxFrameSize {
		return nil, off, fmt.Errorf("%w: payload of %d bytes", ErrFrameTooLarge, n)
	}
	if len(buf)-off < int(n) {
		return nil, off, errShort
	}
	data := make([]byte, n)
	copy(data, buf[off:off+int(n)])
	return data, off + int(n), nil
}

// readFilterList reads a u32 count followed by that many u32 stream ids.
func readFilterList(buf []byte, off int) ([]uint32, int, error) {
	n, off, err := readUint32(buf, off)
	if err != nil {
		return nil, off, err
	}
	if n > maxFilterEntries {
		return nil, off, fmt.Errorf("%w: filter list of %d ids", ErrFrameTooLarge, n)
	}
	if len(buf)-off < int(n)*4 {
		return nil, off, errShort
	}
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint32(buf[off:])
		off += 4
	}
	return ids, off, nil
}
