// ABOUTME: Menu cache service: bootstraps the local store from the remote menu and answers filters.
// ABOUTME: Fetches at most once per session, persists in the background, and drops superseded filters.
package menu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harperreed/littlelemon/internal/logging"
	"github.com/harperreed/littlelemon/internal/models"
	"github.com/harperreed/littlelemon/internal/remote"
	"github.com/harperreed/littlelemon/internal/storage"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrSuperseded is returned by Filter when a newer Filter call was issued.
	ErrSuperseded = errors.New("filter superseded by a newer request")
	// ErrNotBootstrapped is returned by queries made before Bootstrap succeeded.
	ErrNotBootstrapped = errors.New("menu cache not bootstrapped")
)

// Source says where a bootstrap got its items.
type Source string

const (
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
)

// BootstrapResult is what the caller gets back from Bootstrap.
type BootstrapResult struct {
	Items  []models.MenuItem
	Source Source
	// Persisted delivers exactly one value once the background write ends:
	// nil on success. For cache hits it is already resolved.
	Persisted <-chan error
	// FetchErr is set when a stale cache was served because the refetch failed.
	FetchErr   error
	Generation string
}

// FilterResult carries the items for one sequenced filter request.
type FilterResult struct {
	Seq   uint64
	Items []models.MenuItem
}

// RefreshResult reports a forced refetch.
type RefreshResult struct {
	Count      int
	Generation string
}

// Service owns the bootstrap state machine for one session.
type Service struct {
	repo    storage.Repository
	fetcher remote.Fetcher
	logger  *log.Logger
	policy  Policy
	now     func() time.Time
	tracer  trace.Tracer
	session string

	group singleflight.Group

	mu       sync.Mutex
	state    State
	fetched  bool
	snapshot []models.MenuItem
	persist  *persistence
	seq      uint64
	cancel   context.CancelFunc
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPolicy sets the staleness policy.
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a Service over repo that fetches through fetcher.
func NewService(repo storage.Repository, fetcher remote.Fetcher, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		fetcher: fetcher,
		logger:  logging.Discard(),
		now:     time.Now,
		tracer:  otel.Tracer("littlelemon/menu"),
		session: ulid.Make().String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.session)
	return s
}

// State returns the current bootstrap state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID identifies this service instance in logs.
func (s *Service) SessionID() string {
	return s.session
}

// Policy returns the staleness policy in effect.
func (s *Service) Policy() Policy {
	return s.policy
}

// Bootstrap prepares the schema and makes sure the cache holds a menu.
// Concurrent calls share one run. Only the first successful remote fetch
// of a session touches the network; later calls read the store.
func (s *Service) Bootstrap(ctx context.Context) (*BootstrapResult, error) {
	ctx, span := s.tracer.Start(ctx, "menu.Bootstrap")
	defer span.End()

	v, err := s.shared(ctx, "bootstrap", func(ctx context.Context) (any, error) {
		return s.bootstrap(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := v.(*outcome)
	span.SetAttributes(
		attribute.String("menu.source", string(out.source)),
		attribute.Int("menu.items", len(out.items)),
	)
	return &BootstrapResult{
		Items:      cloneItems(out.items),
		Source:     out.source,
		Persisted:  out.persist.signal(),
		FetchErr:   out.fetchErr,
		Generation: out.generation,
	}, nil
}

// shared runs fn once for all concurrent callers of key. The run gets a
// context without cancellation so one caller leaving does not fail the
// others; each caller stops waiting when its own ctx ends.
func (s *Service) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type outcome struct {
	items      []models.MenuItem
	source     Source
	persist    *persistence
	fetchErr   error
	generation string
}

func (s *Service) bootstrap(ctx context.Context) (*outcome, error) {
	if err := s.repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	s.advance(StateSchemaReady)

	s.mu.Lock()
	fetched := s.fetched
	s.mu.Unlock()
	if fetched {
		items, err := s.current(ctx, models.Filter{})
		if err != nil {
			return nil, err
		}
		return &outcome{items: items, source: SourceCache, persist: resolved(nil)}, nil
	}

	state, err := s.repo.CacheState(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cache state: %w", err)
	}
	stale := s.policy.IsStale(state, s.now())

	if !state.IsEmpty() && !stale {
		items, err := s.repo.ReadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("read cache: %w", err)
		}
		s.advance(StatePopulated)
		s.logger.Debug("served menu from cache", "items", len(items), "generation", state.Generation)
		return &outcome{items: items, source: SourceCache, persist: resolved(nil), generation: state.Generation}, nil
	}

	items, fetchErr := s.fetcher.FetchMenu(ctx)
	if fetchErr != nil {
		if state.IsEmpty() {
			s.logger.Error("unable to download menu items", "err", fetchErr)
			return nil, fetchErr
		}
		s.logger.Warn("menu refetch failed, serving stale cache", "err", fetchErr, "populated_at", state.PopulatedAt)
		cached, err := s.repo.ReadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("read cache: %w", err)
		}
		s.advance(StatePopulated)
		return &outcome{items: cached, source: SourceCache, persist: resolved(nil), fetchErr: fetchErr, generation: state.Generation}, nil
	}

	generation := uuid.NewString()
	p := s.startPersist(ctx, items, generation, !state.IsEmpty())

	s.mu.Lock()
	s.fetched = true
	s.snapshot = items
	s.persist = p
	s.mu.Unlock()
	s.advance(StatePopulated)

	s.logger.Info("fetched menu", "items", len(items), "generation", generation, "replace", !state.IsEmpty())
	return &outcome{items: items, source: SourceRemote, persist: p, generation: generation}, nil
}

// startPersist writes fetched items without blocking the caller. The write
// runs on a context detached from the caller's cancellation.
func (s *Service) startPersist(ctx context.Context, items []models.MenuItem, generation string, replace bool) *persistence {
	p := newPersistence()
	ctx = context.WithoutCancel(ctx)
	at := s.now()

	go func() {
		var err error
		if replace {
			err = s.repo.ReplaceAll(ctx, items, generation, at)
		} else {
			err = s.insertAndMark(ctx, items, generation, at)
		}
		if err != nil {
			s.logger.Error("persist menu", "err", err, "generation", generation)
		} else {
			s.logger.Debug("persisted menu", "items", len(items), "generation", generation)
		}
		p.finish(err)
	}()
	return p
}

// insertAndMark stamps the cache only after every item was stored, so a
// partial write leaves the stamp unset.
func (s *Service) insertAndMark(ctx context.Context, items []models.MenuItem, generation string, at time.Time) error {
	n, err := s.repo.InsertMany(ctx, items)
	if err != nil {
		return fmt.Errorf("persist menu (%d of %d stored): %w", n, len(items), err)
	}
	return s.repo.MarkPopulated(ctx, generation, at)
}

// Filter answers the latest filter request. Each call cancels the previous
// in-flight one; a call that finishes after a newer call was issued
// returns ErrSuperseded instead of its result.
func (s *Service) Filter(ctx context.Context, f models.Filter) (*FilterResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "menu.Filter", trace.WithAttributes(
		attribute.Int64("menu.seq", int64(seq)),
		attribute.String("menu.text", f.Text),
		attribute.StringSlice("menu.categories", f.Categories),
	))
	defer span.End()

	items, err := s.current(ctx, f)

	if !s.isLatest(seq) {
		span.SetAttributes(attribute.Bool("menu.superseded", true))
		return nil, ErrSuperseded
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &FilterResult{Seq: seq, Items: items}, nil
}

// Search runs one filter without sequencing. Independent callers such as
// HTTP handlers use it so they cannot supersede each other.
func (s *Service) Search(ctx context.Context, f models.Filter) ([]models.MenuItem, error) {
	ctx, span := s.tracer.Start(ctx, "menu.Search")
	defer span.End()

	items, err := s.current(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return items, nil
}

// Refresh refetches the menu and replaces the cache in one transaction,
// regardless of the staleness policy. It waits for the write to finish.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	ctx, span := s.tracer.Start(ctx, "menu.Refresh")
	defer span.End()

	v, err := s.shared(ctx, "refresh", func(ctx context.Context) (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	res := v.(*RefreshResult)
	span.SetAttributes(attribute.Int("menu.items", res.Count))
	return res, nil
}

func (s *Service) refresh(ctx context.Context) (*RefreshResult, error) {
	if err := s.repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	s.advance(StateSchemaReady)

	// Let a pending bootstrap write land first so it cannot overwrite the refresh.
	if p := s.pending(); p != nil {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
	}

	items, err := s.fetcher.FetchMenu(ctx)
	if err != nil {
		return nil, err
	}

	generation := uuid.NewString()
	if err := s.repo.ReplaceAll(ctx, items, generation, s.now()); err != nil {
		return nil, fmt.Errorf("replace menu: %w", err)
	}

	s.mu.Lock()
	s.fetched = true
	s.snapshot = nil
	s.persist = nil
	s.mu.Unlock()
	s.advance(StatePopulated)

	s.logger.Info("refreshed menu", "items", len(items), "generation", generation)
	return &RefreshResult{Count: len(items), Generation: generation}, nil
}

// current reads the store once any pending write has landed. If that write
// failed, it filters the fetched snapshot instead.
func (s *Service) current(ctx context.Context, f models.Filter) ([]models.MenuItem, error) {
	if s.State() == StateUninitialized {
		return nil, ErrNotBootstrapped
	}

	if p := s.pending(); p != nil {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
		if p.err != nil {
			s.logger.Warn("menu not persisted, filtering fetched copy", "err", p.err)
			s.mu.Lock()
			snapshot := s.snapshot
			s.mu.Unlock()
			return models.FilterItems(snapshot, f), nil
		}
	}

	items, err := s.repo.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}
	return items, nil
}

func (s *Service) pending() *persistence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist
}

func (s *Service) isLatest(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq == seq
}

// advance moves the state machine forward. It never moves backwards.
func (s *Service) advance(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to > s.state {
		s.state = to
	}
}

func cloneItems(items []models.MenuItem) []models.MenuItem {
	out := make([]models.MenuItem, len(items))
	copy(out, items)
	return out
}
