// Package memory is an in-process settlement store for development and
// tests. It offers the same operations as the SQLite repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"settlements/internal/core"
	"settlements/internal/month"
)

type Store struct {
	mu            sync.Mutex
	settlements   map[string]core.Settlement
	notifications []core.Notification
	events        map[string]struct{}
}

func New() *Store {
	return &Store{
		settlements: make(map[string]core.Settlement),
		events:      make(map[string]struct{}),
	}
}

// NewWithSeed returns a store preloaded with items.
func NewWithSeed(items []core.Settlement) *Store {
	s := New()
	for _, it := range items {
		s.settlements[it.ID] = it
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateSettlement(_ context.Context, item core.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.settlements[item.ID]; exists {
		return core.ErrVersionConflict
	}
	s.settlements[item.ID] = item
	return nil
}

func (s *Store) GetSettlement(_ context.Context, id string) (core.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.settlements[id]
	if !ok {
		return core.Settlement{}, core.ErrNotFound
	}
	return item, nil
}

func (s *Store) ListByMonth(_ context.Context, k month.Key) ([]core.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Settlement
	for _, item := range s.settlements {
		if item.MonthKey() == k {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListMonths(context.Context) ([]month.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[month.Key]struct{}{}
	var out []month.Key
	for _, item := range s.settlements {
		k := item.MonthKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out, nil
}

func (s *Store) UpdateSettlement(_ context.Context, item core.Settlement, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.settlements[item.ID]
	if !ok {
		return core.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return core.ErrVersionConflict
	}
	s.settlements[item.ID] = item
	return nil
}

func (s *Store) SaveNotification(_ context.Context, n core.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.events[n.EventID]; dup {
		return false, nil
	}
	s.events[n.EventID] = struct{}{}
	s.notifications = append(s.notifications, n)
	return true, nil
}

func (s *Store) ListNotifications(_ context.Context, limit int) ([]core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Notification, 0, len(s.notifications))
	for i := len(s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.notifications[i])
	}
	return out, nil
}

func (s *Store) ListUnnotified(_ context.Context, limit int) ([]core.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	have := map[string]map[core.NotificationKind]bool{}
	for _, n := range s.notifications {
		if have[n.SettlementID] == nil {
			have[n.SettlementID] = map[core.NotificationKind]bool{}
		}
		have[n.SettlementID][n.Kind] = true
	}
	var out []core.Settlement
	for _, item := range s.settlements {
		got := have[item.ID]
		if !got[core.NotificationSettlementCreated] || (item.IsSettled() && !got[core.NotificationSettlementSettled]) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
