// Package broker owns the connection to the trading server: the
// correlation-id request/response map, the heartbeat loop, and the
// higher-level operations (history, subscription, orders, reconcile)
// built on top of internal/protocol's framing. Grounded on
// raw_client.py's RawCTraderClient, adapted from Twisted/asyncio
// callbacks to goroutines, channels, and context.Context.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oracle-trader/runtime/internal/errs"
	"github.com/oracle-trader/runtime/internal/protocol"
	"github.com/oracle-trader/runtime/internal/ratelimit"
	"github.com/oracle-trader/runtime/pkg/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	heartbeatInterval = 10 * time.Second
	requestTimeout    = 10 * time.Second
)

// Client manages one connection's lifecycle: it multiplexes
// correlation-id-tagged requests over a single transport and dispatches
// unsolicited frames (price spots, execution reports) to a caller-set
// handler.
type Client struct {
	log       *zap.Logger
	transport *protocol.Transport
	breaker   *gobreaker.CircuitBreaker
	limiter   *ratelimit.Limiter

	mu       sync.Mutex
	pending  map[string]*types.PendingRequest
	running  bool
	stopCh   chan struct{}

	onEvent        func(types.Envelope)
	onConnected    func()
	onDisconnected func(reason string)
}

// NewClient builds a Client around a host:port, with a circuit breaker
// guarding reconnect attempts so a flapping server doesn't spin-retry.
func NewClient(log *zap.Logger, host string, port int) *Client {
	transport := protocol.NewTransport(log, host, port)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "broker-connect",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	c := &Client{
		log:       log.Named("broker.client"),
		transport: transport,
		breaker:   breaker,
		limiter:   ratelimit.NewDefault(),
		pending:   make(map[string]*types.PendingRequest),
	}
	transport.OnClosed(c.handleClosed)
	return c
}

// SetRateLimiter replaces the client's outbound request limiter. Defaults
// to ratelimit.NewDefault(); deployments with a broker-specific quota call
// this with ratelimit.New(budget, window) before Connect.
func (c *Client) SetRateLimiter(l *ratelimit.Limiter) { c.limiter = l }

// OnEvent registers the handler for unsolicited (non-correlated) frames.
func (c *Client) OnEvent(fn func(types.Envelope)) { c.onEvent = fn }

// OnConnected registers a callback fired once the transport is up and
// the heartbeat loop has started.
func (c *Client) OnConnected(fn func()) { c.onConnected = fn }

// OnDisconnected registers a callback fired when the connection drops.
func (c *Client) OnDisconnected(fn func(reason string)) { c.onDisconnected = fn }

// Connect dials the server through the circuit breaker, starts the read
// loop and heartbeat, and returns once the transport is live.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.transport.Connect(requestTimeout)
	})
	if err != nil {
		return errs.Wrap(errs.CodeConnection, "connect failed", err)
	}

	c.mu.Lock()
	c.running = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop()
	go c.heartbeatLoop()

	if c.onConnected != nil {
		c.onConnected()
	}
	return nil
}

// IsConnected reports whether the client currently believes it has a
// live transport connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Disconnect tears down the transport and stops background loops.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()
	c.transport.Disconnect()
}

func (c *Client) handleClosed(reason string) {
	c.mu.Lock()
	wasRunning := c.running
	c.running = false
	c.mu.Unlock()

	if !wasRunning {
		return
	}
	c.failAllPending(errs.New(errs.CodeConnection, "connection lost: "+reason))
	if c.onDisconnected != nil {
		c.onDisconnected(reason)
	}
}

func (c *Client) readLoop() {
	c.transport.ReadLoop(func(env types.Envelope) {
		c.mu.Lock()
		req, ok := c.pending[env.CorrelationID]
		if ok {
			delete(c.pending, env.CorrelationID)
		}
		c.mu.Unlock()

		if ok {
			req.Response = env
			close(req.Done)
			return
		}
		if c.onEvent != nil {
			c.onEvent(env)
		}
	})
}

func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			_ = c.SendCommand(payloadTypePing, nil)
		}
	}
}

// SendRequest sends a correlated request and blocks until the matching
// response arrives, the context is cancelled, or the request times out.
func (c *Client) SendRequest(ctx context.Context, payloadType uint32, payload []byte) (types.Envelope, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return types.Envelope{}, errs.Wrap(errs.CodeRateLimit, "rate limit wait", err)
	}

	corrID := uuid.NewString()
	req := &types.PendingRequest{
		CorrelationID: corrID,
		Deadline:      time.Now().Add(requestTimeout),
		Done:          make(chan struct{}),
	}

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return types.Envelope{}, errs.New(errs.CodeConnection, "not connected")
	}
	c.pending[corrID] = req
	c.mu.Unlock()

	frame, err := protocol.Encode(types.Envelope{PayloadType: payloadType, Payload: payload, CorrelationID: corrID})
	if err != nil {
		c.dropPending(corrID)
		return types.Envelope{}, errs.Wrap(errs.CodeProtocol, "encode request", err)
	}
	if err := c.transport.Write(frame); err != nil {
		c.dropPending(corrID)
		return types.Envelope{}, errs.Wrap(errs.CodeConnection, "write request", err)
	}

	timeout := time.NewTimer(requestTimeout)
	defer timeout.Stop()

	select {
	case <-req.Done:
		if req.Err != nil {
			return types.Envelope{}, req.Err
		}
		return req.Response, nil
	case <-timeout.C:
		c.dropPending(corrID)
		return types.Envelope{}, errs.New(errs.CodeTimeout, fmt.Sprintf("request %s timed out", corrID))
	case <-ctx.Done():
		c.dropPending(corrID)
		return types.Envelope{}, ctx.Err()
	}
}

// SendCommand sends a fire-and-forget frame with no correlation id.
func (c *Client) SendCommand(payloadType uint32, payload []byte) error {
	if err := c.limiter.Acquire(context.Background()); err != nil {
		return errs.Wrap(errs.CodeRateLimit, "rate limit wait", err)
	}
	frame, err := protocol.Encode(types.Envelope{PayloadType: payloadType, Payload: payload})
	if err != nil {
		return errs.Wrap(errs.CodeProtocol, "encode command", err)
	}
	return c.transport.Write(frame)
}

func (c *Client) dropPending(corrID string) {
	c.mu.Lock()
	delete(c.pending, corrID)
	c.mu.Unlock()
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, req := range c.pending {
		req.Err = err
		close(req.Done)
		delete(c.pending, id)
	}
}
