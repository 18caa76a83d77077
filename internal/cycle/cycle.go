package cycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/datacycle/internal/metrics"
	"github.com/i474232898/datacycle/internal/scheduler"
)

const (
	DefaultInterval     = time.Hour
	DefaultFetchTimeout = 30 * time.Second

	// persistTimeout bounds the write-through that follows a successful fetch.
	persistTimeout = 5 * time.Second
)

// Cycle orchestrates fetching from a Source, writing results through to a
// Store and refreshing periodically while a consumer is active.
type Cycle struct {
	store        Store
	source       Source
	now          func() time.Time
	newTimer     func(time.Duration) Timer
	interval     time.Duration
	fetchTimeout time.Duration

	mu          sync.Mutex
	state       State
	cached      *CachedResult
	firstLaunch *time.Time
	lastErr     error
	active      bool
	timer       Timer

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
}

// Option configures a Cycle.
type Option func(*Cycle)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cycle) { c.now = now }
}

// WithInterval sets the periodic refresh interval.
func WithInterval(d time.Duration) Option {
	return func(c *Cycle) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithFetchTimeout bounds each call to the Source.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cycle) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithTimerFactory replaces the gocron-backed timer.
func WithTimerFactory(f func(time.Duration) Timer) Option {
	return func(c *Cycle) { c.newTimer = f }
}

// New creates a Cycle in the Uninitialized state.
func New(store Store, source Source, opts ...Option) *Cycle {
	c := &Cycle{
		store:        store,
		source:       source,
		now:          time.Now,
		interval:     DefaultInterval,
		fetchTimeout: DefaultFetchTimeout,
		state:        StateUninitialized,
		subs:         make(map[int]chan Snapshot),
	}
	c.newTimer = func(d time.Duration) Timer { return scheduler.New(d) }
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize seeds state from the store. With a cached result the cycle
// becomes Ready without touching the network; otherwise it fetches once.
func (c *Cycle) Initialize(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.state == StateRefreshing || c.state == StateLoading {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrRefreshInProgress
	}
	c.setStateLocked(StateLoading)
	c.seedFirstLaunchLocked(ctx)

	res, err := c.loadCachedLocked(ctx)
	if err == nil {
		c.cached = &res
		c.lastErr = nil
		c.setStateLocked(StateReady)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		log.Printf("cycle: seeded from cache (fetched %s)", res.FetchedAt.Format(time.RFC3339))
		return snap, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Printf("cycle: cached result unreadable, fetching fresh: %v", err)
	}

	c.setStateLocked(StateRefreshing)
	c.mu.Unlock()

	return c.fetchAndApply(ctx)
}

// Refresh fetches new data. A call made while another refresh is running is
// dropped and returns ErrRefreshInProgress.
func (c *Cycle) Refresh(ctx context.Context) (Snapshot, error) {
	return c.refresh(ctx, false)
}

// refresh moves to Refreshing and fetches. With requireActive set, the active
// check and the transition happen under the same hold of c.mu so a Deactivate
// can never be overtaken by a timer refresh.
func (c *Cycle) refresh(ctx context.Context, requireActive bool) (Snapshot, error) {
	c.mu.Lock()
	if requireActive && !c.active {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, errInactive
	}
	if c.state == StateRefreshing || c.state == StateLoading {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		metrics.IncDropped()
		return snap, ErrRefreshInProgress
	}
	// A refresh may beat Initialize; the first launch is recorded either way.
	if c.firstLaunch == nil {
		c.seedFirstLaunchLocked(ctx)
	}
	c.setStateLocked(StateRefreshing)
	c.mu.Unlock()

	return c.fetchAndApply(ctx)
}

func (c *Cycle) fetchAndApply(ctx context.Context) (Snapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	started := time.Now()
	payload, err := c.source.Fetch(fetchCtx)
	elapsed := time.Since(started).Seconds()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		log.Printf("cycle: %s fetch failed; keeping last good data: %v", c.source.Name(), err)
		metrics.ObserveRefresh(c.source.Name(), "failed", elapsed)
		c.lastErr = err
		c.setStateLocked(StateFailed)
		return c.snapshotLocked(), err
	}

	result := CachedResult{Payload: payload, FetchedAt: c.now().UTC()}
	c.cached = &result
	metrics.ObserveRefresh(c.source.Name(), "success", elapsed)
	metrics.SetLastSuccess(float64(result.FetchedAt.Unix()))

	persistCtx, cancelPersist := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancelPersist()
	if err := c.persistLocked(persistCtx, result); err != nil {
		log.Printf("WARN: cycle: write-through failed; keeping in-memory result: %v", err)
		c.lastErr = err
		c.setStateLocked(StateFailed)
		return c.snapshotLocked(), err
	}

	c.lastErr = nil
	c.setStateLocked(StateReady)
	return c.snapshotLocked(), nil
}

func (c *Cycle) persistLocked(ctx context.Context, res CachedResult) error {
	blob, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("%w: encode cached result: %v", ErrPersistence, err)
	}
	entries := map[string][]byte{
		KeyLastPayload: blob,
		KeyLastUpdated: []byte(res.FetchedAt.Format(time.RFC3339Nano)),
	}
	if res.Payload.Kind == KindChart {
		series, err := json.Marshal(res.Payload.Series)
		if err != nil {
			return fmt.Errorf("%w: encode chart series: %v", ErrPersistence, err)
		}
		entries[KeyChartSeries] = series
	}
	if err := c.store.SetBatch(ctx, entries); err != nil {
		return fmt.Errorf("%w: save cached result: %v", ErrPersistence, err)
	}

	first, err := c.store.FirstLaunch(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		refreshed := res.FetchedAt
		rec := LaunchRecord{
			ID:              uuid.NewString(),
			FirstSeenAt:     c.now().UTC(),
			LastRefreshedAt: &refreshed,
		}
		if err := c.store.InsertLaunch(ctx, rec); err != nil {
			return fmt.Errorf("%w: insert launch record: %v", ErrPersistence, err)
		}
	case err != nil:
		return fmt.Errorf("%w: read launch record: %v", ErrPersistence, err)
	default:
		if err := c.store.TouchLaunch(ctx, first.ID, res.FetchedAt); err != nil {
			return fmt.Errorf("%w: update launch record: %v", ErrPersistence, err)
		}
	}
	return nil
}

func (c *Cycle) loadCachedLocked(ctx context.Context) (CachedResult, error) {
	blob, err := c.store.Get(ctx, KeyLastPayload)
	if err != nil {
		return CachedResult{}, err
	}
	var res CachedResult
	if err := json.Unmarshal(blob, &res); err != nil {
		return CachedResult{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if res.FetchedAt.IsZero() {
		return CachedResult{}, fmt.Errorf("%w: cached result has no timestamp", ErrDecode)
	}
	return res, nil
}

func (c *Cycle) seedFirstLaunchLocked(ctx context.Context) {
	raw, err := c.store.Get(ctx, KeyFirstLaunch)
	if err == nil {
		if ts, perr := time.Parse(time.RFC3339Nano, string(raw)); perr == nil {
			c.firstLaunch = &ts
			return
		}
		log.Printf("cycle: ignoring malformed %s value %q", KeyFirstLaunch, raw)
	} else if !errors.Is(err, ErrNotFound) {
		log.Printf("cycle: read %s: %v", KeyFirstLaunch, err)
		return
	}

	now := c.now().UTC()
	if err := c.store.Set(ctx, KeyFirstLaunch, []byte(now.Format(time.RFC3339Nano))); err != nil {
		log.Printf("WARN: cycle: save %s: %v", KeyFirstLaunch, err)
	}
	c.firstLaunch = &now
}

// Activate arms the periodic refresh timer. Calling it while already active
// is a no-op.
func (c *Cycle) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return nil
	}
	t := c.newTimer(c.interval)
	if err := t.Start(c.tick); err != nil {
		return fmt.Errorf("arm refresh timer: %w", err)
	}
	c.timer = t
	c.active = true
	c.publishLocked()
	log.Printf("cycle: active, refreshing every %s", c.interval)
	return nil
}

// Deactivate disarms the timer. No timer-driven refresh starts afterwards.
func (c *Cycle) Deactivate() {
	c.mu.Lock()
	t := c.timer
	wasActive := c.active
	c.timer = nil
	c.active = false
	if wasActive {
		c.publishLocked()
	}
	c.mu.Unlock()

	// Stop may wait for a running tick, which itself needs c.mu.
	if t != nil {
		t.Stop()
		log.Println("cycle: inactive, refresh timer disarmed")
	}
}

func (c *Cycle) tick() {
	_, err := c.refresh(context.Background(), true)
	if errors.Is(err, ErrRefreshInProgress) {
		log.Println("cycle: timer refresh skipped; another refresh is running")
	}
}

// Snapshot returns the current observer view.
func (c *Cycle) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Launches returns the launch log ordered by first use.
func (c *Cycle) Launches(ctx context.Context) ([]LaunchRecord, error) {
	return c.store.ListLaunches(ctx)
}

// Subscribe returns a channel that receives a Snapshot after every state
// change, starting with the current one. Slow readers only see the latest
// snapshot. The returned func unsubscribes and closes the channel.
func (c *Cycle) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	// Holding both locks means no transition slips between the first
	// snapshot and registration.
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subMu.Lock()
	defer c.subMu.Unlock()

	ch <- c.snapshotLocked()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	return ch, sync.OnceFunc(func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	})
}

// Close deactivates the cycle and closes every subscription.
func (c *Cycle) Close() {
	c.Deactivate()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Cycle) setStateLocked(s State) {
	c.state = s
	metrics.SetState(string(s))
	c.publishLocked()
}

func (c *Cycle) publishLocked() {
	snap := c.snapshotLocked()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Replace the stale snapshot nobody has read yet.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (c *Cycle) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     c.state,
		Active:    c.active,
		ErrorKind: Classify(c.lastErr),
	}
	if c.lastErr != nil {
		snap.LastError = c.lastErr.Error()
	}
	if c.cached != nil {
		p := c.cached.Payload
		p.Series = append([]float64(nil), p.Series...)
		if p.Weather != nil {
			w := *p.Weather
			p.Weather = &w
		}
		ts := c.cached.FetchedAt
		snap.Payload = &p
		snap.FetchedAt = &ts
	}
	if c.firstLaunch != nil {
		ts := *c.firstLaunch
		snap.FirstLaunchedAt = &ts
	}
	return snap
}
