package dht

import (
	"context"
	"time"

	"github.com/NebulousLabs/threadgroup"

	"github.com/daminals/orcanet-go/bus"
	"github.com/daminals/orcanet-go/marketplace"
)

// bootstrapRefreshInterval mirrors the original coordinator's periodic
// re-bootstrap cadence (market_dht::coordinator::BOOTSTRAP_REFRESH_INTERVAL).
const bootstrapRefreshInterval = 10 * time.Minute

// bootstrapDialBudget bounds how long a single bootstrap attempt is allowed
// to spend dialing peers before the coordinator gives up and falls back to
// the refresh ticker.
const bootstrapDialBudget = time.Second

// getCommand asks the coordinator to fetch key, coalescing with any other
// in-flight fetch for the same key.
type getCommand struct {
	Key string
}

type getResult struct {
	Value []byte
	Err   error
}

// putCommand asks the coordinator to merge value into key's record and
// publish the result.
type putCommand struct {
	Key   string
	Value []byte
}

type putResult struct {
	Err error
}

// Coordinator is the single task that owns the libp2p host and DHT swarm.
// Every get/put from the rest of the process is funneled through its command
// buses. Puts are applied on the run-loop goroutine; each coalesced get
// fetches from the store in a goroutine of its own and reports its result
// back to the run loop.
type Coordinator struct {
	store    RecordStore
	registry *Registry

	gets *bus.Bus[getCommand, getResult]
	puts *bus.Bus[putCommand, putResult]

	bootstrap func(ctx context.Context) error

	tg threadgroup.ThreadGroup
}

// New creates a Coordinator around store. bootstrap is invoked on startup and
// on every refresh tick; it is expected to wrap the DHT's own Bootstrap call
// with whatever peer-dialing logic the caller wants (e.g. connecting to
// configured bootstrap peers first).
func New(store RecordStore, registry *Registry, bootstrap func(ctx context.Context) error) *Coordinator {
	return &Coordinator{
		store:     store,
		registry:  registry,
		gets:      bus.New[getCommand, getResult](32),
		puts:      bus.New[putCommand, putResult](32),
		bootstrap: bootstrap,
	}
}

// Get fetches the current record stored at key.
func (c *Coordinator) Get(ctx context.Context, key string) ([]byte, error) {
	req, err := c.gets.Send(ctx, getCommand{Key: key})
	if err != nil {
		return nil, err
	}
	res, err := req.Await(ctx)
	if err != nil {
		return nil, err
	}
	return res.Value, res.Err
}

// Put merges value into the record at key (via the registered namespace's
// merge function) and publishes the result.
func (c *Coordinator) Put(ctx context.Context, key string, value []byte) error {
	req, err := c.puts.Send(ctx, putCommand{Key: key, Value: value})
	if err != nil {
		return err
	}
	res, err := req.Await(ctx)
	if err != nil {
		return err
	}
	return res.Err
}

// Run drives the coordinator's command loop and bootstrap ticker until ctx is
// canceled. It must be started in its own goroutine exactly once.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.tg.Add(); err != nil {
		return err
	}
	defer c.tg.Done()

	if c.bootstrap != nil {
		bctx, cancel := context.WithTimeout(ctx, bootstrapDialBudget)
		_ = c.bootstrap(bctx)
		cancel()
	}

	ticker := time.NewTicker(bootstrapRefreshInterval)
	defer ticker.Stop()

	// inFlight coalesces concurrent Get calls for the same key: only the
	// first caller actually issues a network fetch, and every request queued
	// behind it rides the same result.
	inFlight := make(map[string][]bus.Request[getCommand, getResult])
	results := make(chan keyedGetResult, 8)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if c.bootstrap != nil {
				bctx, cancel := context.WithTimeout(ctx, bootstrapDialBudget)
				_ = c.bootstrap(bctx)
				cancel()
			}

		case req, ok := <-c.gets.Recv():
			if !ok {
				return nil
			}
			key := req.Command.Key
			waiters, already := inFlight[key]
			inFlight[key] = append(waiters, req)
			if already {
				continue
			}
			go func() {
				value, err := c.store.GetRecord(ctx, key)
				results <- keyedGetResult{Key: key, Result: getResult{Value: value, Err: err}}
			}()

		case kr := <-results:
			for _, waiter := range inFlight[kr.Key] {
				waiter.Respond(kr.Result)
			}
			delete(inFlight, kr.Key)

		case req, ok := <-c.puts.Recv():
			if !ok {
				return nil
			}
			err := c.handlePut(ctx, req.Command)
			req.Respond(putResult{Err: err})
		}
	}
}

type keyedGetResult struct {
	Key    string
	Result getResult
}

func (c *Coordinator) handlePut(ctx context.Context, cmd putCommand) error {
	namespace, content, ok := marketplace.SplitKey(cmd.Key)
	if !ok {
		return ErrUnknownNamespace
	}

	// A fetch error here (e.g. "record not found") is treated the same as an
	// empty current value: the merge function sees an empty byte slice and
	// the incoming record becomes the new template, matching the behavior of
	// a fresh key with no prior holders.
	current, _ := c.store.GetRecord(ctx, cmd.Key)

	merged, err := c.registry.Merge(namespace, content, current, cmd.Value)
	if err != nil {
		return err
	}
	return c.store.PutRecord(ctx, cmd.Key, merged)
}
