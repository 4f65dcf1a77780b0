package serve

import (
	"github.com/RealistikOsu/FastStreamDB/internal/metrics"
	"github.com/RealistikOsu/FastStreamDB/internal/protocol"
)

// dispatch applies one decoded request to the registry and appends the
// response frame, if the request has one, onto out. Only Ping, DrainStream,
// PeekStream and CheckState produce responses; everything else is
// fire-and-forget.
func (s *Server) dispatch(req protocol.Request, out []byte) []byte {
	switch r := req.(type) {
	case protocol.Ping:
		metrics.PacketsHandled.WithLabelValues("ping").Inc()
		out = protocol.AppendResponse(out, protocol.Pong{})

	case protocol.CreateStream:
		metrics.PacketsHandled.WithLabelValues("create_stream").Inc()
		s.reg.Create(r.StreamID)

	case protocol.DeleteStream:
		metrics.PacketsHandled.WithLabelValues("delete_stream").Inc()
		s.reg.Delete(r.StreamID)

	case protocol.EnqueueSingle:
		metrics.PacketsHandled.WithLabelValues("enqueue_single").Inc()
		metrics.EnqueuedBytes.WithLabelValues("single").Add(float64(len(r.Data)))
		s.reg.EnqueueSingle(r.StreamID, r.Data)

	case protocol.EnqueueMultiple:
		metrics.PacketsHandled.WithLabelValues("enqueue_multiple").Inc()
		metrics.EnqueuedBytes.WithLabelValues("multiple").Add(float64(len(r.Data) * len(r.StreamIDs)))
		s.reg.EnqueueMultiple(r.StreamIDs, r.Data)

	case protocol.EnqueueAll:
		metrics.PacketsHandled.WithLabelValues("enqueue_all").Inc()
		metrics.EnqueuedBytes.WithLabelValues("all").Add(float64(len(r.Data)))
		s.reg.EnqueueAll(r.Data)

	case protocol.EnqueueAllExcept:
		metrics.PacketsHandled.WithLabelValues("enqueue_all_except").Inc()
		metrics.EnqueuedBytes.WithLabelValues("all_except").Add(float64(len(r.Data)))
		s.reg.EnqueueAllExcept(r.ExcludeIDs, r.Data)

	case protocol.DrainStream:
		metrics.PacketsHandled.WithLabelValues("drain_stream").Inc()
		data := s.reg.Drain(r.StreamID)
		metrics.DrainedBytes.Add(float64(len(data)))
		out = protocol.AppendResponse(out, protocol.StreamContents{Data: data})

	case protocol.PeekStream:
		metrics.PacketsHandled.WithLabelValues("peek_stream").Inc()
		data := s.reg.Peek(r.StreamID)
		out = protocol.AppendResponse(out, protocol.StreamContents{Data: data})

	case protocol.CheckState:
		metrics.PacketsHandled.WithLabelValues("check_state").Inc()
		out = protocol.AppendResponse(out, protocol.StreamState{
			StreamID: r.StreamID,
			Valid:    s.reg.CheckState(r.StreamID),
		})
	}
	return out
}
