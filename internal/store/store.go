package store

import (
	"context"
	"sync"

	"stickman_shake/internal/domain"
)

// Store is the profile document backend.
//
// Subscriptions deliver the current state immediately and then every change. Delivery is
// latest-wins: a slow reader skips intermediate snapshots but always sees the newest one.
// The returned func releases the subscription; it is safe to call more than once.
type Store interface {
	// EnsureExists creates p if no profile with p.UserID exists. Reports whether it was created.
	EnsureExists(ctx context.Context, p domain.PlayerProfile) (bool, error)
	Get(ctx context.Context, userID string) (domain.PlayerProfile, error)
	// List returns every profile in join order (earliest first).
	List(ctx context.Context) ([]domain.PlayerProfile, error)
	// Apply commits muts as one atomic batch and returns the resulting document.
	Apply(ctx context.Context, userID string, muts ...domain.Mutation) (domain.PlayerProfile, error)
	Subscribe(ctx context.Context, userID string) (<-chan domain.PlayerProfile, func(), error)
	SubscribeAll(ctx context.Context) (<-chan []domain.PlayerProfile, func(), error)
}

// feed is a single-slot mailbox that always holds the newest value.
type feed[T any] struct {
	mu     sync.Mutex
	ch     chan T
	closed bool
}

func newFeed[T any]() *feed[T] {
	return &feed[T]{ch: make(chan T, 1)}
}

func (f *feed[T]) push(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for {
		select {
		case f.ch <- v:
			return
		default:
			// вытесняем устаревший снапшот
			select {
			case <-f.ch:
			default:
			}
		}
	}
}

func (f *feed[T]) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}

// fanout tracks subscribers keyed by user id plus whole-collection subscribers.
type fanout struct {
	mu    sync.Mutex
	users map[string]map[*feed[domain.PlayerProfile]]struct{}
	all   map[*feed[[]domain.PlayerProfile]]struct{}
}

func newFanout() *fanout {
	return &fanout{
		users: make(map[string]map[*feed[domain.PlayerProfile]]struct{}),
		all:   make(map[*feed[[]domain.PlayerProfile]]struct{}),
	}
}

func (f *fanout) addUser(userID string) (*feed[domain.PlayerProfile], func()) {
	fd := newFeed[domain.PlayerProfile]()
	f.mu.Lock()
	if f.users[userID] == nil {
		f.users[userID] = make(map[*feed[domain.PlayerProfile]]struct{})
	}
	f.users[userID][fd] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return fd, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.users[userID], fd)
			if len(f.users[userID]) == 0 {
				delete(f.users, userID)
			}
			f.mu.Unlock()
			fd.close()
		})
	}
}

func (f *fanout) addAll() (*feed[[]domain.PlayerProfile], func()) {
	fd := newFeed[[]domain.PlayerProfile]()
	f.mu.Lock()
	f.all[fd] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return fd, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.all, fd)
			f.mu.Unlock()
			fd.close()
		})
	}
}

func (f *fanout) hasUser(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users[userID]) > 0
}

func (f *fanout) hasAll() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.all) > 0
}

func (f *fanout) publishUser(p domain.PlayerProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for fd := range f.users[p.UserID] {
		fd.push(p.Clone())
	}
}

func (f *fanout) publishAll(list []domain.PlayerProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for fd := range f.all {
		out := make([]domain.PlayerProfile, len(list))
		for i := range list {
			out[i] = list[i].Clone()
		}
		fd.push(out)
	}
}

// bindContext releases the subscription when ctx ends.
func bindContext(ctx context.Context, release func()) func() {
	stop := context.AfterFunc(ctx, release)
	return func() {
		stop()
		release()
	}
}
