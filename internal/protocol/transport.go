package protocol

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/oracle-trader/runtime/pkg/types"
	"go.uber.org/zap"
)

// Transport owns one TLS connection to a broker host:port. Connect and
// Disconnect are explicit; a broken stream surfaces through onClosed
// with a reason string rather than killing the process.
type Transport struct {
	log  *zap.Logger
	addr string

	mu       sync.Mutex
	conn     net.Conn
	closed   bool
	onClosed func(reason string)
}

// NewTransport returns a Transport targeting host:port.
func NewTransport(log *zap.Logger, host string, port int) *Transport {
	return &Transport{
		log:  log.Named("transport"),
		addr: fmt.Sprintf("%s:%d", host, port),
	}
}

// OnClosed registers the callback invoked once, from the reader
// goroutine, when the connection ends for any reason (peer close, I/O
// error, or explicit Disconnect). Must be set before Connect.
func (t *Transport) OnClosed(fn func(reason string)) {
	t.onClosed = fn
}

// Connect dials the broker over TLS.
func (t *Transport) Connect(dialTimeout time.Duration) error {
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", t.addr, &tls.Config{})
	if err != nil {
		return fmt.Errorf("protocol: dial %s: %w", t.addr, err)
	}
	t.mu.Lock()
	t.conn = conn
	t.closed = false
	t.mu.Unlock()
	t.log.Info("connected", zap.String("addr", t.addr))
	return nil
}

// Disconnect tears down the connection idempotently.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.conn == nil {
		return
	}
	t.closed = true
	_ = t.conn.Close()
}

// Write sends raw framed bytes. Safe to call concurrently with itself;
// Read must only ever be driven from one goroutine (the transport's
// reader), per the concurrency model's single-reader rule.
func (t *Transport) Write(frame []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("protocol: write on disconnected transport")
	}
	_, err := conn.Write(frame)
	return err
}

// ReadLoop blocks reading from the connection, feeding bytes into the
// decoder and invoking onFrame for every complete envelope, until the
// connection closes or errors. It must run on its own goroutine; it
// never touches higher-level caches directly — onFrame is responsible
// for marshaling to wherever that state lives.
func (t *Transport) ReadLoop(onFrame func(env types.Envelope)) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return
	}

	dec := NewDecoder(DefaultMaxFrameBytes)
	buf := make([]byte, 64*1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for {
				env, ok, derr := dec.Next()
				if derr != nil {
					t.log.Warn("frame decode error", zap.Error(derr))
					break
				}
				if !ok {
					break
				}
				onFrame(env)
			}
		}
		if err != nil {
			t.mu.Lock()
			alreadyClosed := t.closed
			t.closed = true
			t.mu.Unlock()
			reason := err.Error()
			if alreadyClosed {
				reason = "closed"
			}
			if t.onClosed != nil {
				t.onClosed(reason)
			}
			return
		}
	}
}
