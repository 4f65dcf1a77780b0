// Package fsdb provides a Go client for FastStreamDB, the in-memory
// broadcast buffer store behind Bancho's packet fan-out.
//
// # Basic Usage
//
//	client, _ := fsdb.Dial(fsdb.Config{Network: "unix", Addr: "/tmp/fsdb.sock"})
//	defer client.Close()
//
//	client.CreateStream(42)
//	client.EnqueueSingle(42, packetBytes)
//
//	// Every 2-3 seconds, the connection handler drains its stream and
//	// forwards the accumulated bytes over the wire.
//	data, _ := client.Drain(42)
//
//	// Broadcast to every live stream except the sender's.
//	client.EnqueueAllExcept([]uint32{42}, packetBytes)
//
// # Semantics
//
// Enqueue operations targeting streams that do not exist are silent no-ops;
// the server never creates streams implicitly. Drain and Peek of a missing
// stream return an empty buffer, indistinguishable on the wire from an
// existing empty one; use CheckState to disambiguate.
//
// A Client owns one connection and serializes requests on it, so it is safe
// for concurrent use. Fire-and-forget operations (create, delete, the
// enqueue family) do not wait for the server; Ping, Drain, Peek and
// CheckState block until the response frame arrives or the configured
// timeout passes.
package fsdb
