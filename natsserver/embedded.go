// Package natsserver provides the embedded NATS server backing the board hub
package natsserver

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// EmbeddedNATS wraps an embedded NATS server with a client connection
type EmbeddedNATS struct {
	server *server.Server
	conn   *nats.Conn
	addr   string
}

// Config holds configuration for the embedded NATS server
type Config struct {
	Port       int   // server.RANDOM_PORT picks a free one
	MaxPayload int32 // Max message size in bytes
}

// DefaultConfig returns sensible defaults. Task events are small JSON
// payloads, so the cap stays modest.
func DefaultConfig() Config {
	return Config{
		Port:       4222,
		MaxPayload: 256 * 1024,
	}
}

// New creates and starts an embedded NATS server
func New(cfg Config) (*EmbeddedNATS, error) {
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = DefaultConfig().MaxPayload
	}

	opts := &server.Options{
		Host:          "0.0.0.0",
		Port:          cfg.Port,
		NoLog:         true,
		NoSigs:        true,
		MaxPayload:    cfg.MaxPayload,
		WriteDeadline: 10 * time.Second,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		return nil, fmt.Errorf("NATS server not ready after 5 seconds")
	}

	// The server resolves its own port when cfg.Port is RANDOM_PORT
	addr := ns.ClientURL()

	nc, err := nats.Connect(
		addr,
		nats.Name("taskboard-internal"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	log.Printf("📡 Embedded NATS server started on %s", addr)

	return &EmbeddedNATS{
		server: ns,
		conn:   nc,
		addr:   addr,
	}, nil
}

// Conn returns the internal NATS connection
func (e *EmbeddedNATS) Conn() *nats.Conn {
	return e.conn
}

// Address returns the NATS server client URL
func (e *EmbeddedNATS) Address() string {
	return e.addr
}

// NumClients returns the number of connected clients
func (e *EmbeddedNATS) NumClients() int {
	return e.server.NumClients()
}

// Shutdown gracefully shuts down the NATS server
func (e *EmbeddedNATS) Shutdown() {
	if e.conn != nil {
		e.conn.Close()
	}
	if e.server != nil {
		e.server.Shutdown()
	}
	log.Println("📡 NATS server shut down")
}
