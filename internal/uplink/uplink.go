package uplink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/fuse"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// #region config

const limiterKey = "uplink.limiter"

// Config holds connector tuning parameters.
type Config struct {
	QueueSize   int
	MaxAttempts int           // transport retries per batch
	BackoffBase time.Duration // 1s, 2s, 4s with the default multiplier of 2
	DrainPause  time.Duration // delay between batches while draining
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:   256,
		MaxAttempts: 3,
		BackoffBase: time.Second,
		DrainPause:  200 * time.Millisecond,
	}
}

// #endregion config

// #region connector

// Connector consumes fused snapshots and ships them to the remote
// collector: consent gate → bounded queue → per-label rate check →
// signed upload → confirm, with requeue on any failure. At most one
// upload attempt is in flight per Connector.
type Connector struct {
	cfg        Config
	queue      *Queue
	limiter    *RateLimiter
	client     *Client
	consent    consent.Provider
	capability consent.CapabilityProvider
	conn       Connectivity
	store      Persister

	flight *semaphore.Weighted // single upload in flight
	kick   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConnector wires the connector. store may be nil to disable
// persistence (tests).
func NewConnector(
	cfg Config,
	client *Client,
	cp consent.Provider,
	capp consent.CapabilityProvider,
	conn Connectivity,
	store Persister,
) *Connector {
	return &Connector{
		cfg:        cfg,
		queue:      NewQueue(cfg.QueueSize, store),
		limiter:    NewRateLimiter(nil),
		client:     client,
		consent:    cp,
		capability: capp,
		conn:       conn,
		store:      store,
		flight:     semaphore.NewWeighted(1),
		kick:       make(chan struct{}, 1),
	}
}

// Queue exposes the backlog for inspection tooling.
func (c *Connector) Queue() *Queue {
	return c.queue
}

// #endregion connector

// #region lifecycle

// Start rehydrates persisted state, then launches the watch loop. The
// queue is rehydrated before any enqueue is accepted.
func (c *Connector) Start(ctx context.Context) error {
	if err := c.queue.Rehydrate(); err != nil {
		return fmt.Errorf("start uplink: %w", err)
	}
	c.restoreLimiter()

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.watch(ctx)
	return nil
}

// Stop cancels the watch loop, abandoning any in-flight retry (the batch
// stays queued for the next session), and persists the backlog.
func (c *Connector) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.queue.Persist()
	c.persistLimiter()
}

// #endregion lifecycle

// #region enqueue

// Enqueue consent-gates and queues a snapshot. With cloud-upload consent
// denied the snapshot is dropped silently: respecting consent means not
// even buffering. Re-reads consent on every call so revocation takes
// effect within one cycle.
func (c *Connector) Enqueue(s fuse.FusedState) {
	if !c.consent.Current().CloudUpload {
		return
	}

	if evicted := c.queue.Enqueue(Entry{
		ID:         uuid.New().String(),
		State:      s,
		EnqueuedAt: time.Now().UTC(),
	}); evicted {
		log.Printf("[UPLINK] queue saturated, evicted oldest snapshot")
	}

	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// #endregion enqueue

// #region watch

// watch drains on connectivity transitions to online and on enqueue
// kicks. Transition handling re-checks Online so a stale kick after
// going offline is harmless.
func (c *Connector) watch(ctx context.Context) {
	defer c.wg.Done()

	if c.conn.Online() {
		c.Drain(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-c.conn.Changes():
			if !ok {
				return
			}
			if online {
				log.Printf("[UPLINK] back online, draining backlog")
				c.Drain(ctx)
			}
		case <-c.kick:
			if c.conn.Online() {
				c.Drain(ctx)
			}
		}
	}
}

// #endregion watch

// #region drain

// Drain uploads batches until the queue is empty, connectivity is lost,
// every label is throttled, or an error stops the cycle. The online check
// is re-evaluated after every batch so a mid-drain connectivity loss
// stops the loop promptly instead of failing repeatedly. A small pause
// between batches avoids bursting. No-op if an upload is already in
// flight.
func (c *Connector) Drain(ctx context.Context) {
	if !c.flight.TryAcquire(1) {
		return
	}
	defer c.flight.Release(1)

	for ctx.Err() == nil && c.conn.Online() && c.queue.Len() > 0 {
		// Consent and capability are re-read per batch, not cached.
		if !c.consent.Current().CloudUpload {
			return
		}
		level := c.capability.Capability("uplink")
		size := BatchSize(level)
		if size == 0 {
			return
		}

		uploaded := false
		for _, label := range c.queue.Labels() {
			if !c.limiter.Allow(label) {
				continue
			}
			batch := c.queue.DequeueBatch(label, size)
			if len(batch) == 0 {
				continue
			}

			if err := c.uploadWithRetry(ctx, batch, level); err != nil {
				c.queue.RequeueBatch()
				var rejected *RejectedError
				if errors.As(err, &rejected) {
					// Operator/config fix required, not a code-path retry.
					log.Printf("[UPLINK] batch rejected, requeued: %v", rejected)
				} else {
					log.Printf("[UPLINK] upload failed, requeued: %v", err)
				}
				return
			}

			c.queue.ConfirmBatch()
			c.limiter.Record(label)
			c.persistLimiter()
			log.Printf("[UPLINK] confirmed batch of %d (%s)", len(batch), label)
			uploaded = true
			break
		}
		if !uploaded {
			return // everything queued is throttled
		}

		select {
		case <-time.After(c.cfg.DrainPause):
		case <-ctx.Done():
			return
		}
	}
}

// #endregion drain

// #region retry

// uploadWithRetry runs up to MaxAttempts attempts with exponential
// backoff (base, 2·base, 4·base). Each attempt re-signs with a fresh
// nonce and timestamp. Rejections abort immediately; a 429 backs off by
// the server's retry-after hint instead. Waits are context-aware so
// shutdown abandons the retry rather than finishing it.
func (c *Connector) uploadWithRetry(ctx context.Context, batch []Entry, level consent.CapabilityLevel) error {
	snapshots := make([]fuse.FusedState, len(batch))
	for i, e := range batch {
		snapshots[i] = e.State
	}

	backoff := c.cfg.BackoffBase
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		_, err := c.client.Upload(ctx, snapshots, level)
		if err == nil {
			return nil
		}
		lastErr = err

		var rejected *RejectedError
		if errors.As(err, &rejected) {
			return err
		}

		if attempt == c.cfg.MaxAttempts {
			break
		}

		wait := backoff
		var limited *RateLimitedError
		if errors.As(err, &limited) {
			wait = limited.RetryAfter
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return lastErr
}

// #endregion retry

// #region limiter-persistence

func (c *Connector) persistLimiter() {
	if c.store == nil {
		return
	}
	data, err := c.limiter.Export()
	if err != nil {
		log.Printf("[UPLINK] export limiter: %v", err)
		return
	}
	if err := c.store.Write(limiterKey, data); err != nil {
		log.Printf("[UPLINK] persist limiter: %v", err)
	}
}

func (c *Connector) restoreLimiter() {
	if c.store == nil {
		return
	}
	data, ok, err := c.store.Read(limiterKey)
	if err != nil || !ok {
		return
	}
	if err := c.limiter.Restore(data); err != nil {
		log.Printf("[UPLINK] restore limiter: %v", err)
	}
}

// #endregion limiter-persistence
