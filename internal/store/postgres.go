package store

import (
	"context"
	"errors"
	"fmt"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/logger"
	"stickman_shake/internal/repository"
)

// PostgresStore keeps profiles in Postgres and learns about changes, including
// writes made by other instances, through a Broker.
type PostgresStore struct {
	repo   *repository.ProfileRepository
	broker Broker
	subs   *fanout
}

func NewPostgresStore(repo *repository.ProfileRepository, broker Broker) *PostgresStore {
	return &PostgresStore{repo: repo, broker: broker, subs: newFanout()}
}

// Run consumes broker notifications until ctx is cancelled.
func (s *PostgresStore) Run(ctx context.Context) error {
	ch, err := s.broker.Listen(ctx)
	if err != nil {
		return fmt.Errorf("listen for profile changes: %w", err)
	}
	logger.Info("profile change listener started")

	for userID := range ch {
		StoreNotifications.Inc()
		s.refresh(ctx, userID)
	}
	return ctx.Err()
}

func (s *PostgresStore) refresh(ctx context.Context, userID string) {
	if s.subs.hasUser(userID) {
		p, err := s.repo.GetByUserID(ctx, userID)
		if err != nil {
			logger.Warn("refresh profile failed", "user_id", userID, "error", err)
		} else {
			s.subs.publishUser(p)
		}
	}
	if s.subs.hasAll() {
		list, err := s.repo.List(ctx)
		if err != nil {
			logger.Warn("refresh leaderboard failed", "error", err)
			return
		}
		s.subs.publishAll(list)
	}
}

func (s *PostgresStore) notify(ctx context.Context, userID string) {
	if err := s.broker.Publish(ctx, userID); err != nil {
		logger.Warn("publish profile change failed", "user_id", userID, "error", err)
	}
}

func (s *PostgresStore) EnsureExists(ctx context.Context, p domain.PlayerProfile) (bool, error) {
	p = p.Clone()
	p.Normalize()
	created, err := s.repo.Insert(ctx, p)
	StoreWrites.WithLabelValues("ensure", writeResult(err)).Inc()
	if err != nil {
		return false, err
	}
	if created {
		s.notify(ctx, p.UserID)
	}
	return created, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (domain.PlayerProfile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *PostgresStore) List(ctx context.Context) ([]domain.PlayerProfile, error) {
	return s.repo.List(ctx)
}

func (s *PostgresStore) Apply(ctx context.Context, userID string, muts ...domain.Mutation) (domain.PlayerProfile, error) {
	p, err := s.repo.Apply(ctx, userID, muts)
	StoreWrites.WithLabelValues("apply", writeResult(err)).Inc()
	if err != nil {
		return p, err
	}
	s.notify(ctx, userID)
	return p, nil
}

func (s *PostgresStore) Subscribe(ctx context.Context, userID string) (<-chan domain.PlayerProfile, func(), error) {
	fd, release := s.subs.addUser(userID)
	release = bindContext(ctx, release)

	p, err := s.repo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		fd.push(p)
	case !errors.Is(err, domain.ErrNotFound):
		release()
		return nil, nil, err
	}
	return fd.ch, release, nil
}

func (s *PostgresStore) SubscribeAll(ctx context.Context) (<-chan []domain.PlayerProfile, func(), error) {
	fd, release := s.subs.addAll()
	release = bindContext(ctx, release)

	list, err := s.repo.List(ctx)
	if err != nil {
		release()
		return nil, nil, err
	}
	fd.push(list)
	return fd.ch, release, nil
}
