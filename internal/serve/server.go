// Package serve binds the configured listener and runs one session goroutine
// per accepted connection: read, decode, dispatch to the registry, write any
// response bytes, repeat.
package serve

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"

	"github.com/RealistikOsu/FastStreamDB/internal/config"
	"github.com/RealistikOsu/FastStreamDB/internal/metrics"
	"github.com/RealistikOsu/FastStreamDB/internal/protocol"
	"github.com/RealistikOsu/FastStreamDB/internal/registry"
	"go.uber.org/zap"
)

// readChunkSize is the per-read buffer handed to the kernel.
const readChunkSize = 4096

// Server accepts connections on a Unix domain socket or a TCP listener and
// serializes each connection's requests against the shared registry.
type Server struct {
	cfg    *config.Config
	reg    *registry.Registry
	logger *zap.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New creates a server over the given registry.
func New(cfg *config.Config, reg *registry.Registry, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		reg:    reg,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// Run binds the listener and accepts connections until ctx is cancelled.
// Cancellation closes the listener and every live session's socket, then
// waits for the sessions to drain.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		ln.Close()
		s.closeConns()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Warn("accept error", zap.Error(err))
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			// Requests are small and latency-sensitive.
			tcpConn.SetNoDelay(true)
		}

		s.trackConn(conn)
		metrics.ConnectionsTotal.Inc()
		metrics.ConnectionsActive.Inc()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer metrics.ConnectionsActive.Dec()
			defer s.untrackConn(conn)
			defer conn.Close()
			s.handleConn(conn)
		}()
	}

	wg.Wait()
	if s.cfg.ConnectionMode == config.ModeUnixSocket {
		os.Remove(s.cfg.UnixSockPath)
	}
	return ctx.Err()
}

func (s *Server) listen() (net.Listener, error) {
	switch s.cfg.ConnectionMode {
	case config.ModeTCP:
		ln, err := net.Listen("tcp", s.cfg.TCPAddr())
		if err != nil {
			return nil, err
		}
		s.logger.Info("TCP listener bound", zap.String("addr", s.cfg.TCPAddr()))
		return ln, nil
	default:
		// Unlink a stale socket left by a previous process.
		os.Remove(s.cfg.UnixSockPath)
		ln, err := net.Listen("unix", s.cfg.UnixSockPath)
		if err != nil {
			return nil, err
		}
		s.logger.Info("unix socket listener bound", zap.String("path", s.cfg.UnixSockPath))
		return ln, nil
	}
}

// handleConn runs one session. A protocol error or an oversized pending
// buffer drops only this connection; EOF between frames ends it cleanly.
func (s *Server) handleConn(conn net.Conn) {
	var (
		pending []byte
		out     []byte
		chunk   = make([]byte, readChunkSize)
	)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)

			off := 0
			out = out[:0]
			for {
				req, consumed, derr := protocol.DecodeRequest(pending[off:])
				if derr != nil {
					metrics.ProtocolErrors.Inc()
					s.logger.Warn("dropping connection on protocol error",
						zap.String("remote", conn.RemoteAddr().String()),
						zap.Error(derr),
					)
					return
				}
				if req == nil {
					break
				}
				off += consumed
				out = s.dispatch(req, out)
			}
			pending = append(pending[:0], pending[off:]...)

			if len(out) > 0 {
				if _, werr := conn.Write(out); werr != nil {
					s.logger.Debug("write error", zap.Error(werr))
					return
				}
			}

			// A well-formed frame never leaves this much unparsed: the largest
			// legal frame is a fan-out frame with three u32 header fields, a
			// full payload and a full filter list.
			if len(pending) > 2*protocol.MaxFrameSize+12 {
				metrics.ProtocolErrors.Inc()
				s.logger.Warn("dropping connection with oversized pending buffer",
					zap.String("remote", conn.RemoteAddr().String()),
					zap.Int("pending", len(pending)),
				)
				return
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("read error", zap.Error(err))
			}
			return
		}
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}
