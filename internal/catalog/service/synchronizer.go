// Package service implements catalog synchronization: fetching the remote
// spreadsheet, parsing it, and publishing snapshots with a local fallback.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cotizador_backend/internal/catalog/domain"
	"cotizador_backend/internal/catalog/repository"
	"cotizador_backend/internal/catalog/sheets"
	"cotizador_backend/platform/logger"
)

const flightKey = "catalog-sync"

// ErrRemoteNotConfigured is reported when no spreadsheet is configured.
var ErrRemoteNotConfigured = errors.New("remote catalog not configured")

// Fetcher reads the remote catalog tables.
type Fetcher interface {
	Fetch(ctx context.Context) (sheets.Tables, error)
	Mode() string
}

// FallbackLoader reads the local fallback catalog.
type FallbackLoader interface {
	Load() (*domain.Snapshot, int, error)
}

// SyncResult describes the outcome of a sync call. Failures are reported
// here rather than as errors.
type SyncResult struct {
	OK        bool
	Source    domain.Source
	Mode      string
	UpdatedAt time.Time
	Items     int
	Skipped   int
	Error     string
	Cached    bool
}

// Status is the current catalog state for diagnostics.
type Status struct {
	Source     domain.Source
	Version    string
	UpdatedAt  time.Time
	Items      int
	LastSyncAt time.Time
	LastResult SyncResult
}

// Options configures a Synchronizer.
type Options struct {
	TTL     time.Duration
	Timeout time.Duration
	// Now overrides the clock. time.Now carries a monotonic reading, so age
	// comparisons are immune to wall clock changes.
	Now func() time.Time
}

// Synchronizer refreshes the Store from the remote catalog. Concurrent calls
// that need a fetch share one in-flight fetch, forced or not.
type Synchronizer struct {
	store    *repository.Store
	fetcher  Fetcher
	fallback FallbackLoader
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      *logger.Logger
	group    singleflight.Group

	mu         sync.Mutex
	lastSyncAt time.Time
	last       SyncResult
}

// NewSynchronizer creates a synchronizer. fetcher may be nil, in which case
// every sync fails over to the fallback file.
func NewSynchronizer(store *repository.Store, fetcher Fetcher, fallback FallbackLoader, opts Options, log *logger.Logger) *Synchronizer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Synchronizer{
		store:    store,
		fetcher:  fetcher,
		fallback: fallback,
		ttl:      opts.TTL,
		timeout:  opts.Timeout,
		now:      opts.Now,
		log:      log,
		last: SyncResult{
			Source: domain.SourceNone,
			Error:  "never synced",
		},
	}
}

// Sync refreshes the catalog when due or forced. When neither, it returns the
// previous result marked Cached without contacting the remote source.
func (s *Synchronizer) Sync(ctx context.Context, forced bool) SyncResult {
	if !forced && !s.due() {
		return s.cachedResult()
	}

	detached := context.WithoutCancel(ctx)
	v, _, shared := s.group.Do(flightKey, s.flight(detached, forced))
	res := v.(SyncResult)
	if forced && shared && res.Cached {
		// Joined a non-forced flight that found the catalog fresh.
		v, _, _ = s.group.Do(flightKey, s.flight(detached, true))
		res = v.(SyncResult)
	}
	return res
}

func (s *Synchronizer) flight(ctx context.Context, forced bool) func() (any, error) {
	return func() (any, error) {
		if !forced && !s.due() {
			return s.cachedResult(), nil
		}
		return s.refresh(ctx), nil
	}
}

// Status returns the published snapshot's metadata and the last result.
func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	st := Status{LastSyncAt: s.lastSyncAt, LastResult: s.last}
	s.mu.Unlock()

	st.Source = domain.SourceNone
	if snap := s.store.Current(); snap != nil {
		st.Source = snap.Source()
		st.Version = snap.Version()
		st.UpdatedAt = snap.UpdatedAt()
		st.Items = snap.Len()
	}
	return st
}

func (s *Synchronizer) due() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ShouldRefresh(s.now(), s.lastSyncAt, s.ttl, false)
}

func (s *Synchronizer) cachedResult() SyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.last
	r.Cached = true
	return r
}

func (s *Synchronizer) refresh(ctx context.Context) SyncResult {
	started := s.now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	mode := ""
	if s.fetcher != nil {
		mode = s.fetcher.Mode()
	}

	snap, skipped, err := s.fetchSnapshot(ctx)
	var result SyncResult
	if err == nil {
		s.store.Swap(snap)
		result = SyncResult{
			OK:        true,
			Source:    snap.Source(),
			Mode:      mode,
			UpdatedAt: snap.UpdatedAt(),
			Items:     snap.Len(),
			Skipped:   skipped,
		}
	} else {
		result = s.failOver(err, mode)
	}

	s.mu.Lock()
	s.lastSyncAt = started
	s.last = result
	s.mu.Unlock()

	s.log.WithContext(ctx).CatalogSync(result.OK, string(result.Source), result.Mode, result.Items, result.Skipped, false, result.Error)
	return result
}

func (s *Synchronizer) fetchSnapshot(ctx context.Context) (*domain.Snapshot, int, error) {
	if s.fetcher == nil {
		return nil, 0, ErrRemoteNotConfigured
	}
	tables, err := s.fetcher.Fetch(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, fmt.Errorf("fetch remote catalog: timed out after %s: %w", s.timeout, err)
		}
		return nil, 0, fmt.Errorf("fetch remote catalog: %w", err)
	}
	entries, skipped, err := ParseTables(tables)
	if err != nil {
		return nil, skipped, err
	}
	snap, err := domain.NewSnapshot(domain.SourceSheets, s.fetcher.Mode(), s.now().UTC(), entries)
	if err != nil {
		return nil, skipped, fmt.Errorf("build snapshot: %w", err)
	}
	return snap, skipped, nil
}

// failOver keeps the last good snapshot. Only an empty store receives the
// fallback catalog.
func (s *Synchronizer) failOver(cause error, mode string) SyncResult {
	result := SyncResult{OK: false, Mode: mode, Error: cause.Error()}

	if s.store.Current() == nil && s.fallback != nil {
		fb, skipped, err := s.fallback.Load()
		if err != nil {
			result.Error = fmt.Sprintf("%s; fallback: %v", cause.Error(), err)
		} else {
			s.store.SwapIfEmpty(fb)
			result.Skipped = skipped
		}
	}

	result.Source = domain.SourceNone
	if current := s.store.Current(); current != nil {
		result.Source = current.Source()
		result.UpdatedAt = current.UpdatedAt()
		result.Items = current.Len()
	}
	return result
}
