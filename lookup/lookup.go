// Package lookup fans out metadata fetches for a manifest's dependency
// list: one bounded-concurrency fetch per distinct package name, with
// incremental progress, per-run cancellation, and terminal per-package
// outcomes.
package lookup

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/git-pkgs/freshness/internal/core"
)

const (
	defaultConcurrency  = 15
	defaultFetchTimeout = 30 * time.Second
)

// Snapshot is a consistent view of a coordinator's state: the outcomes
// recorded so far and the progress pair they belong to.
type Snapshot struct {
	Outcomes map[string]core.Outcome
	Progress core.Progress
}

// Coordinator drives concurrent metadata lookups. At most one run is
// active at a time: a new Lookup call cancels the previous run, and
// outcomes from a superseded run are discarded even if their fetches
// complete on the network.
type Coordinator struct {
	concurrency  int
	fetchTimeout time.Duration
	logger       *log.Logger
	cache        *lru.Cache[string, *core.PackageMetadata]

	mu       sync.Mutex
	source   core.Source
	deps     []core.Dependency
	run      *run
	runSeq   uint64
	outcomes map[string]core.Outcome
	progress core.Progress
	subs     map[*subscriber]struct{}
}

// run is one lookup pass. Its context is the cancellation token: state
// is applied only while the coordinator still points at this run, so a
// late outcome from a superseded run can never contaminate a newer one.
type run struct {
	id     uint64
	source core.Source
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type subscriber struct {
	ch chan Snapshot
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithConcurrency bounds the number of in-flight fetches.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithFetchTimeout bounds each individual fetch. A timed-out fetch is
// recorded as a transport error and still counts toward progress, so a
// run settles even under total network failure.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithLogger sets the coordinator's logger. Discards by default.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithMetadataCache enables an in-memory LRU of fetched metadata shared
// across runs. Off by default: each run refetches every package.
func WithMetadataCache(size int) Option {
	return func(c *Coordinator) {
		if cache, err := lru.New[string, *core.PackageMetadata](size); err == nil {
			c.cache = cache
		}
	}
}

// New creates a Coordinator that fetches metadata from the given source.
func New(source core.Source, opts ...Option) *Coordinator {
	c := &Coordinator{
		concurrency:  defaultConcurrency,
		fetchTimeout: defaultFetchTimeout,
		logger:       log.New(io.Discard),
		source:       source,
		outcomes:     make(map[string]core.Outcome),
		subs:         make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup starts a run over the dependency list, superseding any run
// still in flight. Progress is reset to {deduplicated count, 0} before
// the first fetch is issued. An empty list clears outcomes and progress
// without starting a run.
func (c *Coordinator) Lookup(deps []core.Dependency) {
	c.mu.Lock()
	c.deps = deps
	c.startLocked()
	c.mu.Unlock()
}

// SetSource swaps the metadata source (a different registry endpoint or
// ecosystem) and restarts the lookup over the current dependency list.
// Cached metadata belongs to the previous source and is dropped.
func (c *Coordinator) SetSource(source core.Source) {
	c.mu.Lock()
	c.source = source
	if c.cache != nil {
		c.cache.Purge()
	}
	c.startLocked()
	c.mu.Unlock()
}

// startLocked invalidates the active run and starts a fresh one over
// c.deps. Callers hold c.mu.
func (c *Coordinator) startLocked() {
	c.cancelLocked()

	names := dedupe(c.deps)
	c.outcomes = make(map[string]core.Outcome, len(names))
	c.progress = core.Progress{Total: len(names)}

	if len(names) == 0 {
		c.notifyLocked()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.runSeq++
	r := &run{
		id:     c.runSeq,
		source: c.source,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.run = r
	c.notifyLocked()

	c.logger.Debug("lookup run started", "run", r.id, "packages", len(names))
	go c.drive(r, names)
}

// cancelLocked is the internal cancel-without-replace hook: it tears
// down the active run so its outcomes can no longer be applied.
func (c *Coordinator) cancelLocked() {
	if c.run != nil {
		c.run.cancel()
		c.run = nil
	}
}

// drive issues one fetch per package, bounded by the concurrency limit.
func (c *Coordinator) drive(r *run, names []string) {
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-r.ctx.Done():
				return
			}

			c.record(r, name, c.fetch(r, name))
		}(name)
	}

	wg.Wait()
	close(r.done)

	c.mu.Lock()
	settled := c.run == r && c.progress.Settled()
	c.mu.Unlock()
	if settled {
		c.logger.Debug("lookup run settled", "run", r.id, "packages", len(names))
	}
}

// fetch retrieves one package's metadata and classifies the result.
func (c *Coordinator) fetch(r *run, name string) core.Outcome {
	if c.cache != nil {
		if meta, ok := c.cache.Get(name); ok {
			return core.Outcome{Kind: core.OutcomeSuccess, Metadata: meta}
		}
	}

	ctx, cancel := context.WithTimeout(r.ctx, c.fetchTimeout)
	defer cancel()

	meta, err := r.source.FetchMetadata(ctx, name)
	outcome := core.Classify(meta, err)

	if outcome.OK() && c.cache != nil {
		c.cache.Add(name, meta)
	}
	return outcome
}

// record applies one outcome to coordinator state, unless the run has
// been superseded in the meantime.
func (c *Coordinator) record(r *run, name string, outcome core.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != r {
		return
	}

	c.outcomes[name] = outcome
	c.progress.Fulfilled++
	c.notifyLocked()

	if !outcome.OK() {
		c.logger.Warn("metadata fetch failed", "package", name, "kind", outcome.Kind, "err", outcome.Err)
	}
}

// Snapshot returns a copy of the recorded outcomes with the progress
// pair they belong to.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Progress returns the current progress pair.
func (c *Coordinator) Progress() core.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Subscribe registers an observer of coordinator state. The channel
// carries coalesced snapshots: a slow receiver sees the newest state,
// not every intermediate one. The returned function unsubscribes.
func (c *Coordinator) Subscribe() (<-chan Snapshot, func()) {
	sub := &subscriber{ch: make(chan Snapshot, 1)}

	c.mu.Lock()
	c.subs[sub] = struct{}{}
	sub.push(c.snapshotLocked())
	c.mu.Unlock()

	return sub.ch, func() {
		c.mu.Lock()
		delete(c.subs, sub)
		c.mu.Unlock()
	}
}

// Wait blocks until the run active at call time settles, the run is
// superseded, or the context is done. It returns immediately when no run
// is active.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()

	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) snapshotLocked() Snapshot {
	outcomes := make(map[string]core.Outcome, len(c.outcomes))
	for name, o := range c.outcomes {
		outcomes[name] = o
	}
	return Snapshot{Outcomes: outcomes, Progress: c.progress}
}

func (c *Coordinator) notifyLocked() {
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for sub := range c.subs {
		sub.push(snap)
	}
}

// push replaces any undelivered snapshot with the newer one.
func (s *subscriber) push(snap Snapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// dedupe returns the distinct dependency names in first-seen order. A
// package referenced by both a normal and dev dependency is fetched
// exactly once.
func dedupe(deps []core.Dependency) []string {
	seen := make(map[string]struct{}, len(deps))
	names := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep.Name == "" {
			continue
		}
		if _, ok := seen[dep.Name]; ok {
			continue
		}
		seen[dep.Name] = struct{}{}
		names = append(names, dep.Name)
	}
	return names
}
