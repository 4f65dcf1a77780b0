package fsdb_test

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/RealistikOsu/FastStreamDB/internal/config"
	"github.com/RealistikOsu/FastStreamDB/internal/registry"
	"github.com/RealistikOsu/FastStreamDB/internal/serve"
	"github.com/RealistikOsu/FastStreamDB/pkg/fsdb"
	"go.uber.org/zap"
)

func startServer(t *testing.T) string {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ConnectionMode = config.ModeUnixSocket
	cfg.UnixSockPath = filepath.Join(t.TempDir(), "fsdb.sock")
	cfg.KeyExpiry = 0

	srv := serve.New(cfg, registry.New(zap.NewNop()), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("unix", cfg.UnixSockPath)
		if err == nil {
			conn.Close()
			return cfg.UnixSockPath
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDialInfersUnixNetwork(t *testing.T) {
	addr := startServer(t)

	// A path-like address dials a unix socket without an explicit network.
	client, err := fsdb.Dial(fsdb.Config{Addr: addr})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	if err := client.Ping(); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestDialRequiresAddr(t *testing.T) {
	if _, err := fsdb.Dial(fsdb.Config{}); err == nil {
		t.Fatal("expected an error for an empty address")
	}
}

func TestClientOperations(t *testing.T) {
	addr := startServer(t)
	client, err := fsdb.Dial(fsdb.Config{Network: "unix", Addr: addr})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	if exists, _ := client.CheckState(1); exists {
		t.Fatal("stream 1 should not exist yet")
	}

	client.CreateStream(1)
	client.CreateStream(2)
	client.EnqueueSingle(1, []byte("a"))
	client.EnqueueAll([]byte("b"))
	client.EnqueueAllExcept([]uint32{1}, []byte("c"))
	client.EnqueueMultiple([]uint32{2}, []byte("d"))

	data, err := client.Drain(1)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if !bytes.Equal(data, []byte("ab")) {
		t.Fatalf("stream 1 drained %q, want %q", data, "ab")
	}

	data, err = client.Peek(2)
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	if !bytes.Equal(data, []byte("bcd")) {
		t.Fatalf("stream 2 peeked %q, want %q", data, "bcd")
	}

	client.DeleteStream(2)
	if exists, _ := client.CheckState(2); exists {
		t.Fatal("stream 2 should be gone after delete")
	}
}

func TestClientConcurrentUse(t *testing.T) {
	addr := startServer(t)
	client, err := fsdb.Dial(fsdb.Config{Network: "unix", Addr: addr})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	const goroutines = 8
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			client.CreateStream(id)
			client.EnqueueSingle(id, []byte("x"))
			data, err := client.Drain(id)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(data, []byte("x")) {
				errs <- fmt.Errorf("stream %d drained %q", id, data)
			}
		}(uint32(g))
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
