package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"stickman_shake/internal/domain"
)

// MemoryStore keeps profiles in process. Used for local runs (STORE_DRIVER=memory) and tests.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]domain.PlayerProfile
	joined   map[string]int64 // порядок создания, для List
	subs     *fanout
	now      func() time.Time

	// failNext makes the next n writes fail with ErrBackendUnavailable (tests)
	failNext int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]domain.PlayerProfile),
		joined:   make(map[string]int64),
		subs:     newFanout(),
		now:      time.Now,
	}
}

// FailNextWrites makes the next n Apply/EnsureExists calls fail as if the backend were down.
func (s *MemoryStore) FailNextWrites(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

func (s *MemoryStore) takeFailure() bool {
	if s.failNext > 0 {
		s.failNext--
		return true
	}
	return false
}

func (s *MemoryStore) EnsureExists(ctx context.Context, p domain.PlayerProfile) (bool, error) {
	s.mu.Lock()
	if s.takeFailure() {
		s.mu.Unlock()
		return false, domain.ErrBackendUnavailable
	}
	if _, ok := s.profiles[p.UserID]; ok {
		s.mu.Unlock()
		return false, nil
	}
	p = p.Clone()
	p.Normalize()
	s.profiles[p.UserID] = p
	s.joined[p.UserID] = int64(len(s.joined))
	s.publishLocked(p)
	s.mu.Unlock()
	return true, nil
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (domain.PlayerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return domain.PlayerProfile{}, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.PlayerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(), nil
}

// publishLocked runs under s.mu so subscribers never observe snapshots out of order.
func (s *MemoryStore) publishLocked(p domain.PlayerProfile) {
	s.subs.publishUser(p)
	if s.subs.hasAll() {
		s.subs.publishAll(s.listLocked())
	}
}

func (s *MemoryStore) listLocked() []domain.PlayerProfile {
	out := make([]domain.PlayerProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return s.joined[out[i].UserID] < s.joined[out[j].UserID] })
	return out
}

func (s *MemoryStore) Apply(ctx context.Context, userID string, muts ...domain.Mutation) (domain.PlayerProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.PlayerProfile{}, err
	}

	s.mu.Lock()
	if s.takeFailure() {
		s.mu.Unlock()
		return domain.PlayerProfile{}, domain.ErrBackendUnavailable
	}
	cur, ok := s.profiles[userID]
	if !ok {
		s.mu.Unlock()
		return domain.PlayerProfile{}, domain.ErrNotFound
	}
	next, err := domain.ApplyBatch(cur, muts, s.now())
	StoreWrites.WithLabelValues("apply", writeResult(err)).Inc()
	if err != nil {
		s.mu.Unlock()
		return cur.Clone(), err
	}
	s.profiles[userID] = next
	s.publishLocked(next)
	s.mu.Unlock()
	return next.Clone(), nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, userID string) (<-chan domain.PlayerProfile, func(), error) {
	fd, release := s.subs.addUser(userID)
	release = bindContext(ctx, release)

	s.mu.Lock()
	if p, ok := s.profiles[userID]; ok {
		fd.push(p.Clone())
	}
	s.mu.Unlock()
	return fd.ch, release, nil
}

func (s *MemoryStore) SubscribeAll(ctx context.Context) (<-chan []domain.PlayerProfile, func(), error) {
	fd, release := s.subs.addAll()
	release = bindContext(ctx, release)

	s.mu.Lock()
	fd.push(s.listLocked())
	s.mu.Unlock()
	return fd.ch, release, nil
}
