package http

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"settlements/internal/cache"
	"settlements/internal/month"
)

const (
	selectorCacheSize = 36
	selectorCacheTTL  = 5 * time.Minute

	selectorLoadTimeout = 10 * time.Second
)

// LoadState tracks the month selector's most recent load.
type LoadState int

const (
	LoadNotStarted LoadState = iota
	LoadLoading
	LoadReady
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadNotStarted:
		return "not_started"
	case LoadLoading:
		return "loading"
	case LoadReady:
		return "ready"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MonthLister returns the months that have settlements.
type MonthLister interface {
	Months(ctx context.Context) ([]month.Key, error)
}

// monthSelector loads the options of the month dropdown on demand.
// Concurrent loads for the same month share one store query.
type monthSelector struct {
	lister MonthLister
	group  singleflight.Group
	cache  *cache.LRUCache[month.Key, []month.Key]

	mu      sync.Mutex
	state   LoadState
	lastErr error
}

func newMonthSelector(lister MonthLister) *monthSelector {
	return &monthSelector{
		lister: lister,
		cache:  cache.NewLRUCache[month.Key, []month.Key](selectorCacheSize, selectorCacheTTL),
	}
}

// Load returns the selectable months around selected, newest first, and
// the state this call ended in. The shared query runs detached from any one
// caller, so a caller that goes away does not fail the others; each caller
// still stops waiting when its own ctx ends.
func (m *monthSelector) Load(ctx context.Context, selected month.Key) ([]month.Key, LoadState, error) {
	if opts, ok := m.cache.Get(selected); ok {
		m.setState(LoadReady, nil)
		return opts, LoadReady, nil
	}

	m.setState(LoadLoading, nil)
	flight := m.group.DoChan(string(selected), func() (any, error) {
		// A caller that missed the cache may arrive after the previous
		// flight finished and filled it.
		if opts, ok := m.cache.Get(selected); ok {
			return opts, nil
		}
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), selectorLoadTimeout)
		defer cancel()
		months, err := m.lister.Months(qctx)
		if err != nil {
			return nil, err
		}
		opts := selectorOptions(months, selected)
		m.cache.Set(selected, opts)
		return opts, nil
	})

	select {
	case <-ctx.Done():
		m.setState(LoadFailed, ctx.Err())
		return nil, LoadFailed, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			m.setState(LoadFailed, res.Err)
			return nil, LoadFailed, res.Err
		}
		m.setState(LoadReady, nil)
		return res.Val.([]month.Key), LoadReady, nil
	}
}

// State reports the outcome of the latest load by any caller and its
// error, if any.
func (m *monthSelector) State() (LoadState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.lastErr
}

// Invalidate drops cached options after a write adds a month.
func (m *monthSelector) Invalidate() {
	m.cache.Purge()
}

func (m *monthSelector) setState(s LoadState, err error) {
	m.mu.Lock()
	m.state = s
	m.lastErr = err
	m.mu.Unlock()
}

// selectorOptions merges the months with data and the neighbours of
// selected, newest first without duplicates.
func selectorOptions(months []month.Key, selected month.Key) []month.Key {
	seen := make(map[month.Key]bool, len(months)+3)
	out := make([]month.Key, 0, len(months)+3)
	add := func(k month.Key) {
		if k.Valid() && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range months {
		add(k)
	}
	add(month.Previous(selected))
	add(selected)
	add(month.Next(selected))

	// Canonical keys sort chronologically as strings.
	slices.Sort(out)
	slices.Reverse(out)
	return out
}
