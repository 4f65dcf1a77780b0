package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	requests := []Request{
		Ping{},
		CreateStream{StreamID: 42},
		DeleteStream{StreamID: 0},
		EnqueueSingle{StreamID: 7, Data: []byte("hello")},
		EnqueueSingle{StreamID: 7, Data: []byte{}},
		EnqueueMultiple{Data: []byte("x"), StreamIDs: []uint32{1, 2, 3}},
		EnqueueMultiple{Data: []byte{}, StreamIDs: []uint32{}},
		EnqueueAll{Data: []byte("broadcast")},
		EnqueueAllExcept{Data: []byte("b"), ExcludeIDs: []uint32{9, 4294967295}},
		DrainStream{StreamID: 1},
		PeekStream{StreamID: 2},
		CheckState{StreamID: 3},
	}

	for _, req := range requests {
		encoded := AppendRequest(nil, req)
		decoded, consumed, err := DecodeRequest(encoded)
		if err != nil {
			t.Fatalf("decode %T failed: %v", req, err)
		}
		if consumed != len(encoded) {
			t.Errorf("%T: consumed %d of %d bytes", req, consumed, len(encoded))
		}
		if !reflect.DeepEqual(decoded, req) {
			t.Errorf("%T: round trip mismatch: got %#v want %#v", req, decoded, req)
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	responses := []Response{
		Pong{},
		StreamContents{Data: []byte("drained bytes")},
		StreamContents{Data: []byte{}},
		StreamState{StreamID: 42, Valid: true},
		StreamState{StreamID: 0, Valid: false},
	}

	for _, resp := range responses {
		encoded := AppendResponse(nil, resp)
		decoded, consumed, err := DecodeResponse(encoded)
		if err != nil {
			t.Fatalf("decode %T failed: %v", resp, err)
		}
		if consumed != len(encoded) {
			t.Errorf("%T: consumed %d of %d bytes", resp, consumed, len(encoded))
		}
		if !reflect.DeepEqual(decoded, resp) {
			t.Errorf("%T: round trip mismatch: got %#v want %#v", resp, decoded, resp)
		}
	}
}

func TestRequestWireFormat(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		want []byte
	}{
		{
			name: "ping",
			req:  Ping{},
			want: []byte{0x00, 0x00, 0x00, 0x00},
		},
		{
			name: "create stream 42",
			req:  CreateStream{StreamID: 42},
			want: []byte{0x01, 0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00},
		},
		{
			name: "enqueue single hi",
			req:  EnqueueSingle{StreamID: 42, Data: []byte("hi")},
			want: []byte{
				0x03, 0x00, 0x00, 0x00,
				0x2A, 0x00, 0x00, 0x00,
				0x02, 0x00, 0x00, 0x00,
				0x68, 0x69,
			},
		},
		{
			name: "enqueue all X",
			req:  EnqueueAll{Data: []byte("X")},
			want: []byte{0x05, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x58},
		},
		{
			name: "enqueue all except 1 and 3",
			req:  EnqueueAllExcept{Data: []byte("X"), ExcludeIDs: []uint32{1, 3}},
			want: []byte{
				0x06, 0x00, 0x00, 0x00,
				0x01, 0x00, 0x00, 0x00, 0x58,
				0x02, 0x00, 0x00, 0x00,
				0x01, 0x00, 0x00, 0x00,
				0x03, 0x00, 0x00, 0x00,
			},
		},
		{
			name: "drain stream 42",
			req:  DrainStream{StreamID: 42},
			want: []byte{0x07, 0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00},
		},
		{
			name: "check state 42",
			req:  CheckState{StreamID: 42},
			want: []byte{0x09, 0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00},
		},
	}

	for _, tc := range cases {
		got := AppendRequest(nil, tc.req)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("%s: got % X want % X", tc.name, got, tc.want)
		}
	}
}

func TestResponseWireFormat(t *testing.T) {
	cases := []struct {
		name string
		resp Response
		want []byte
	}{
		{
			name: "pong",
			resp: Pong{},
			want: []byte{0x0A, 0x00, 0x00, 0x00},
		},
		{
			name: "stream contents hi",
			resp: StreamContents{Data: []byte("hi")},
			want: []byte{
				0x0B, 0x00, 0x00, 0x00,
				0x02, 0x00, 0x00, 0x00,
				0x68, 0x69,
			},
		},
		{
			name: "empty stream contents",
			resp: StreamContents{Data: nil},
			want: []byte{0x0B, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name: "stream state valid with zero padding",
			resp: StreamState{StreamID: 42, Valid: true},
			want: []byte{
				0x0C, 0x00, 0x00, 0x00,
				0x2A, 0x00, 0x00, 0x00,
				0x01, 0x00, 0x00, 0x00,
			},
		},
	}

	for _, tc := range cases {
		got := AppendResponse(nil, tc.resp)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("%s: got % X want % X", tc.name, got, tc.want)
		}
	}
}

func TestDecodeRequestIncremental(t *testing.T) {
	full := AppendRequest(nil, EnqueueSingle{StreamID: 9, Data: []byte("payload")})

	// Every strict prefix is an incomplete frame, not an error.
	for i := 0; i < len(full); i++ {
		req, consumed, err := DecodeRequest(full[:i])
		if err != nil {
			t.Fatalf("prefix of %d bytes: unexpected error: %v", i, err)
		}
		if req != nil || consumed != 0 {
			t.Fatalf("prefix of %d bytes: decoded early (%v, %d)", i, req, consumed)
		}
	}

	req, consumed, err := DecodeRequest(full)
	if err != nil {
		t.Fatalf("full frame: %v", err)
	}
	if consumed != len(full) {
		t.Fatalf("full frame: consumed %d of %d", consumed, len(full))
	}
	if _, ok := req.(EnqueueSingle); !ok {
		t.Fatalf("full frame: got %T", req)
	}
}

func TestDecodeRequestPipelined(t *testing.T) {
	buf := AppendRequest(nil, CreateStream{StreamID: 1})
	buf = AppendRequest(buf, EnqueueSingle{StreamID: 1, Data: []byte("ab")})
	buf = AppendRequest(buf, DrainStream{StreamID: 1})

	var got []Request
	off := 0
	for off < len(buf) {
		req, consumed, err := DecodeRequest(buf[off:])
		if err != nil {
			t.Fatalf("decode at offset %d: %v", off, err)
		}
		if req == nil {
			t.Fatalf("incomplete frame at offset %d", off)
		}
		got = append(got, req)
		off += consumed
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(got))
	}
	if _, ok := got[0].(CreateStream); !ok {
		t.Errorf("first request: got %T", got[0])
	}
	if _, ok := got[1].(EnqueueSingle); !ok {
		t.Errorf("second request: got %T", got[1])
	}
	if _, ok := got[2].(DrainStream); !ok {
		t.Errorf("third request: got %T", got[2])
	}
}

func TestDecodeRequestUnknownID(t *testing.T) {
	_, _, err := DecodeRequest([]byte{0x63, 0x00, 0x00, 0x00})
	if !errors.Is(err, ErrUnknownPacket) {
		t.Fatalf("expected ErrUnknownPacket, got %v", err)
	}

	// Server packet ids are not valid requests.
	pong := AppendResponse(nil, Pong{})
	_, _, err = DecodeRequest(pong)
	if !errors.Is(err, ErrUnknownPacket) {
		t.Fatalf("expected ErrUnknownPacket for server id, got %v", err)
	}
}

func TestDecodeRequestOversizedPayload(t *testing.T) {
	buf := appendUint32(nil, PacketIDEnqueueAll)
	buf = appendUint32(buf, MaxFrameSize+1)

	_, _, err := DecodeRequest(buf)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestDecodeRequestOversizedFilterList(t *testing.T) {
	buf := appendUint32(nil, PacketIDEnqueueMultiple)
	buf = appendBytes(buf, []byte("x"))
	buf = appendUint32(buf, maxFilterEntries+1)

	_, _, err := DecodeRequest(buf)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}
