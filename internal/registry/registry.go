// Package registry holds the live stream table: a concurrent map from 32-bit
// stream ids to append-only byte buffers with idle expiry.
package registry

import (
	"sync"
	"time"

	"github.com/RealistikOsu/FastStreamDB/internal/metrics"
	"go.uber.org/zap"
)

// initialBufferCap sizes a fresh stream's buffer. Game packets are small;
// 1 KiB covers a couple of drain intervals for a typical session.
const initialBufferCap = 1024

// stream is a single player's outbound buffer. The mutex guards both fields.
// Lock order: the registry lock (read or write) is always acquired before a
// stream's own lock, never the other way around.
type stream struct {
	mu          sync.Mutex
	buffer      []byte
	lastTouched time.Time
}

func (s *stream) touch(now time.Time) {
	s.lastTouched = now
}

// Registry is the concurrent stream table. The registry lock guards
// membership; each stream's lock guards its buffer. Fan-out operations hold
// the read lock for the whole pass and each stream's lock only for that
// stream's append, so they run alongside other enqueues and sweep scans; a
// structural change (create, delete, a sweep removal) waits until in-flight
// fan-outs release the read lock.
type Registry struct {
	mu      sync.RWMutex
	streams map[uint32]*stream
	logger  *zap.Logger
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		streams: make(map[uint32]*stream, 1024),
		logger:  logger,
	}
}

// Create inserts a fresh empty stream. Creating an id that already exists is
// a no-op; the existing buffer is kept.
func (r *Registry) Create(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, exists := r.streams[id]; exists {
		// Re-creating is a no-op that still counts as a touch.
		s.mu.Lock()
		s.touch(time.Now())
		s.mu.Unlock()
		return
	}
	r.streams[id] = &stream{
		buffer:      make([]byte, 0, initialBufferCap),
		lastTouched: time.Now(),
	}
	metrics.StreamsActive.Inc()
	r.logger.Debug("stream created", zap.Uint32("stream_id", id))
}

// Delete removes a stream. Deleting a missing id is a no-op.
func (r *Registry) Delete(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.streams[id]; !exists {
		return
	}
	delete(r.streams, id)
	metrics.StreamsActive.Dec()
	r.logger.Debug("stream deleted", zap.Uint32("stream_id", id))
}

// EnqueueSingle appends data to one stream. A missing target is a silent
// no-op; enqueueing never creates a stream.
func (r *Registry) EnqueueSingle(id uint32, data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.streams[id]
	if !ok {
		return
	}
	now := time.Now()
	s.mu.Lock()
	s.buffer = append(s.buffer, data...)
	s.touch(now)
	s.mu.Unlock()
}

// EnqueueMultiple appends data to every listed stream that exists. Missing
// ids are skipped, and a target receives the payload exactly once no matter
// how many times it is listed.
func (r *Registry) EnqueueMultiple(ids []uint32, data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	seen := make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		s, ok := r.streams[id]
		if !ok {
			continue
		}
		s.mu.Lock()
		s.buffer = append(s.buffer, data...)
		s.touch(now)
		s.mu.Unlock()
	}
}

// EnqueueAll appends data to every live stream.
func (r *Registry) EnqueueAll(data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	for _, s := range r.streams {
		s.mu.Lock()
		s.buffer = append(s.buffer, data...)
		s.touch(now)
		s.mu.Unlock()
	}
}

// EnqueueAllExcept appends data to every live stream whose id is not in
// exclude. Excluded ids are not checked for existence; unknown ids are
// harmless.
func (r *Registry) EnqueueAllExcept(exclude []uint32, data []byte) {
	excludeSet := make(map[uint32]struct{}, len(exclude))
	for _, id := range exclude {
		excludeSet[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	for id, s := range r.streams {
		if _, skip := excludeSet[id]; skip {
			continue
		}
		s.mu.Lock()
		s.buffer = append(s.buffer, data...)
		s.touch(now)
		s.mu.Unlock()
	}
}

// Drain atomically swaps a stream's buffer for a fresh empty one and returns
// the old bytes, transferring ownership to the caller. Draining a missing
// stream returns nil; the wire protocol cannot distinguish that from an
// existing empty buffer.
func (r *Registry) Drain(id uint32) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.streams[id]
	if !ok {
		return nil
	}
	s.mu.Lock()
	out := s.buffer
	s.buffer = nil
	s.touch(time.Now())
	s.mu.Unlock()
	return out
}

// Peek returns a copy of a stream's buffer without clearing it. Peeking a
// missing stream returns nil.
func (r *Registry) Peek(id uint32) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.streams[id]
	if !ok {
		return nil
	}
	s.mu.Lock()
	out := make([]byte, len(s.buffer))
	copy(out, s.buffer)
	s.touch(time.Now())
	s.mu.Unlock()
	return out
}

// CheckState reports whether a stream currently exists. Checking an existing
// stream refreshes its last touch like any other operation naming it.
func (r *Registry) CheckState(id uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[id]
	if ok {
		s.mu.Lock()
		s.touch(time.Now())
		s.mu.Unlock()
	}
	return ok
}

// Stats reports the live stream count and total buffered bytes.
func (r *Registry) Stats() (streams int, bufferedBytes int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	streams = len(r.streams)
	for _, s := range r.streams {
		s.mu.Lock()
		bufferedBytes += int64(len(s.buffer))
		s.mu.Unlock()
	}
	return streams, bufferedBytes
}
