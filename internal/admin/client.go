// Package admin is the configuration client for the certificate server's
// administrative interface. It reads and modifies named configuration scopes
// as ordered name-value sets over an already authenticated connection.
package admin

import (
	"context"
	"sync"
	"time"

	"github.com/dukerupert/certadmin/internal/nvpair"
	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// Conn is the authenticated channel to the admin server. Implementations
// should return *AdminError values; anything else is treated as a transport
// failure.
type Conn interface {
	Read(ctx context.Context, dest Destination, scope Scope, rid RequestID, names *nvpair.Set) (*nvpair.Set, error)
	Modify(ctx context.Context, dest Destination, scope Scope, rid RequestID, updates *nvpair.Set) error
}

// Call states.
const (
	StateIdle      = "idle"
	StateSent      = "sent"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

const (
	eventSend    = "send"
	eventSucceed = "succeed"
	eventFail    = "fail"
	eventReset   = "reset"
)

// Client issues Read and Modify requests. A Client may be shared between
// goroutines: calls are serialized so only one request is ever in flight on
// the underlying Conn. There is no retry and no caching.
type Client struct {
	conn Conn
	log  *zap.Logger

	mu      sync.Mutex
	machine *fsm.FSM
}

func NewClient(conn Conn, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{conn: conn, log: logger.Named("admin")}
	c.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventSend, Src: []string{StateIdle}, Dst: StateSent},
			{Name: eventSucceed, Src: []string{StateSent}, Dst: StateSucceeded},
			{Name: eventFail, Src: []string{StateSent}, Dst: StateFailed},
			{Name: eventReset, Src: []string{StateSucceeded, StateFailed}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.log.Debug("call state", zap.String("from", e.Src), zap.String("to", e.Dst))
			},
		},
	)
	return c
}

// State returns the lifecycle state of the current call. Between calls it
// holds the outcome of the last one (succeeded or failed) until the next call
// is sent; a Client that has made no call is idle.
func (c *Client) State() string {
	return c.machine.Current()
}

// Read asks for the current values of names. Values in names are ignored.
// The result holds a value for each name the server recognizes; names it
// does not recognize are absent (see Missing).
func (c *Client) Read(ctx context.Context, dest Destination, scope Scope, rid RequestID, names *nvpair.Set) (*nvpair.Set, error) {
	req := names.Blank()
	var resp *nvpair.Set
	err := c.do(ctx, "read", dest, scope, rid, req.Len(), func(ctx context.Context) error {
		r, err := c.conn.Read(ctx, dest, scope, rid, req)
		if err != nil {
			return err
		}
		if r == nil {
			r = nvpair.New()
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Modify submits updates as a single all-or-nothing request. An empty set
// succeeds without contacting the server.
func (c *Client) Modify(ctx context.Context, dest Destination, scope Scope, rid RequestID, updates *nvpair.Set) error {
	if updates.Len() == 0 {
		c.log.Debug("empty modify skipped",
			zap.String("destination", string(dest)),
			zap.String("scope", string(scope)))
		return nil
	}
	return c.do(ctx, "modify", dest, scope, rid, updates.Len(), func(ctx context.Context) error {
		return c.conn.Modify(ctx, dest, scope, rid, updates)
	})
}

func (c *Client) do(ctx context.Context, op string, dest Destination, scope Scope, rid RequestID, n int, call func(context.Context) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.With(
		zap.String("op", op),
		zap.String("destination", string(dest)),
		zap.String("scope", string(scope)),
		zap.String("request_id", string(rid)),
	)

	if c.machine.Can(eventReset) {
		c.transition(eventReset)
	}
	c.transition(eventSend)

	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = call(ctx)
	}
	if err != nil {
		c.transition(eventFail)
		ae := classify(err, op, dest, scope, rid)
		log.Warn("request failed", zap.Stringer("kind", ae.Kind), zap.String("message", ae.Message))
		return ae
	}
	c.transition(eventSucceed)
	log.Debug("request done", zap.Int("pairs", n), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// transition fires ev on the call state machine. The caller holds c.mu.
func (c *Client) transition(ev string) {
	if err := c.machine.Event(context.Background(), ev); err != nil {
		c.log.Error("call state transition", zap.String("event", ev), zap.Error(err))
	}
}

// Missing returns the names of requested that are absent from got, in
// request order. Callers treat them as unsupported or unset.
func Missing(requested, got *nvpair.Set) []string {
	var out []string
	for name := range requested.All() {
		if !got.Has(name) {
			out = append(out, name)
		}
	}
	return out
}
