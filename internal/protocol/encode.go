package protocol

import "encoding/binary"

// AppendRequest serializes a client frame onto dst and returns the extended
// slice. Append-style encoding lets a session reuse one write buffer across
// pipelined frames.
func AppendRequest(dst []byte, req Request) []byte {
	switch r := req.(type) {
	case Ping:
		dst = appendUint32(dst, PacketIDPing)
	case CreateStream:
		dst = appendUint32(dst, PacketIDCreateStream)
		dst = appendUint32(dst, r.StreamID)
	case DeleteStream:
		dst = appendUint32(dst, PacketIDDeleteStream)
		dst = appendUint32(dst, r.StreamID)
	case EnqueueSingle:
		dst = appendUint32(dst, PacketIDEnqueueSingle)
		dst = appendUint32(dst, r.StreamID)
		dst = appendBytes(dst, r.Data)
	case EnqueueMultiple:
		dst = appendUint32(dst, PacketIDEnqueueMultiple)
		dst = appendBytes(dst, r.Data)
		dst = appendFilterList(dst, r.StreamIDs)
	case EnqueueAll:
		dst = appendUint32(dst, PacketIDEnqueueAll)
		dst = appendBytes(dst, r.Data)
	case EnqueueAllExcept:
		dst = appendUint32(dst, PacketIDEnqueueAllExcept)
		dst = appendBytes(dst, r.Data)
		dst = appendFilterList(dst, r.ExcludeIDs)
	case DrainStream:
		dst = appendUint32(dst, PacketIDDrainStream)
		dst = appendUint32(dst, r.StreamID)
	case PeekStream:
		dst = appendUint32(dst, PacketIDPeekStream)
		dst = appendUint32(dst, r.StreamID)
	case CheckState:
		dst = appendUint32(dst, PacketIDCheckState)
		dst = appendUint32(dst, r.StreamID)
	}
	return dst
}

// AppendResponse serializes a server frame onto dst and returns the extended
// slice.
func AppendResponse(dst []byte, resp Response) []byte {
	switch r := resp.(type) {
	case Pong:
		dst = appendUint32(dst, PacketIDPong)
	case StreamContents:
		dst = appendUint32(dst, PacketIDStreamContents)
		dst = appendBytes(dst, r.Data)
	case StreamState:
		dst = appendUint32(dst, PacketIDStreamState)
		dst = appendUint32(dst, r.StreamID)
		dst = appendBool(dst, r.Valid)
	}
	return dst
}

func appendUint32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

// appendBool writes the value byte followed by three bytes of zero padding.
func appendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1, 0, 0, 0)
	}
	return append(dst, 0, 0, 0, 0)
}

func appendBytes(dst, data []byte) []byte {
	dst = appendUint32(dst, uint32(len(data)))
	return append(dst, data...)
}

func appendFilterList(dst []byte, ids []uint32) []byte {
	dst = appendUint32(dst, uint32(len(ids)))
	for _, id := range ids {
		dst = appendUint32(dst, id)
	}
	return dst
}
