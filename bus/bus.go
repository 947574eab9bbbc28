// Package bus implements the generic command/response plumbing used by
// single-task coordinators in this module; today that's the DHT coordinator,
// which serializes every libp2p/DHT operation through one owning goroutine.
// It is grounded on the oneshot request/response pattern used throughout the
// original implementation's market_dht crate
// (req_res.rs): a caller builds a Request, sends it over a fixed-capacity
// channel to the coordinator's run loop, and awaits a one-shot reply. The
// coordinator processes its channel strictly in FIFO order, so within one
// coordinator requests never reorder relative to each other.
package bus

import "context"

// Request pairs a command value with the one-shot channel its result should
// be delivered on. The zero value of Request is unusable; use NewRequest.
type Request[C any, R any] struct {
	Command C
	reply   chan R
}

// NewRequest builds a Request around cmd with a fresh reply channel buffered
// by one.
func NewRequest[C any, R any](cmd C) Request[C, R] {
	return Request[C, R]{Command: cmd, reply: make(chan R, 1)}
}

// Respond delivers result to the request's caller. If the caller has already
// given up (its context was canceled and nothing is left reading the
// channel), Respond still succeeds because the channel is buffered by one:
// dropping a response channel is a no-op, never a coordinator-side block.
func (r Request[C, R]) Respond(result R) {
	r.reply <- result
}

// Await blocks until the coordinator responds or ctx is done, whichever
// comes first.
func (r Request[C, R]) Await(ctx context.Context) (R, error) {
	select {
	case res := <-r.reply:
		return res, nil
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Bus is a command channel, with the capacity given to New, into a single
// coordinator goroutine.
// Multiple concurrent Send calls for logically the same key are expected to
// coalesce at the coordinator, not here; Bus only provides FIFO delivery.
type Bus[C any, R any] struct {
	commands chan Request[C, R]
}

// New creates a Bus. Capacity 0 yields an unbuffered channel (every Send
// blocks until the coordinator's select loop is ready to receive, which is
// fine since the coordinator never blocks on external I/O while reading it).
func New[C any, R any](capacity int) *Bus[C, R] {
	return &Bus[C, R]{commands: make(chan Request[C, R], capacity)}
}

// Send enqueues a request, blocking while the channel is full (with capacity
// 0, until the coordinator receives it) or until ctx is done; it does not
// wait for the reply. The caller awaits the reply separately via
// Request.Await so that a canceled caller never blocks the bus.
func (b *Bus[C, R]) Send(ctx context.Context, cmd C) (Request[C, R], error) {
	req := NewRequest[C, R](cmd)
	select {
	case b.commands <- req:
		return req, nil
	case <-ctx.Done():
		return req, ctx.Err()
	}
}

// Recv exposes the receive side of the channel to the coordinator's run
// loop, so it can be combined with other select cases (swarm events,
// tickers).
func (b *Bus[C, R]) Recv() <-chan Request[C, R] {
	return b.commands
}

// Close closes the command channel. It must only be called once, by the
// single owner of the coordinator's send side (or once all senders are known
// to be done); further Recv reads will see the channel close and the
// coordinator's run loop should exit.
func (b *Bus[C, R]) Close() {
	close(b.commands)
}
