package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/logger"
	"stickman_shake/internal/store"
)

const earnTimeout = 5 * time.Second

// Synchronizer turns engine mutations into store writes.
type Synchronizer struct {
	store store.Store
}

func NewSynchronizer(s store.Store) *Synchronizer {
	return &Synchronizer{store: s}
}

// Write commits purchase, equip and transcend mutations as one batch. Game rule
// rejections come back as-is; anything else is reported as ErrBackendUnavailable.
func (s *Synchronizer) Write(ctx context.Context, userID string, muts ...domain.Mutation) (domain.PlayerProfile, error) {
	p, err := s.store.Apply(ctx, userID, muts...)
	if err != nil {
		if domain.IsUserError(err) {
			return p, err
		}
		logger.Error("profile write failed", "user_id", userID, "error", err)
		return p, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	return p, nil
}

// Latest reads the stored profile.
func (s *Synchronizer) Latest(ctx context.Context, userID string) (domain.PlayerProfile, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return p, err
		}
		return p, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	return p, nil
}

// Earn issues a relative increment without waiting for it. Failures are logged and the
// amount is lost; the returned channel is closed once the write settles.
func (s *Synchronizer) Earn(ctx context.Context, userID string, amount int64) <-chan struct{} {
	done := make(chan struct{})
	if amount <= 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), earnTimeout)
		defer cancel()

		if _, err := s.store.Apply(ctx, userID, domain.Earn(amount)); err != nil {
			EarnWriteFailures.Inc()
			logger.Warn("earn write dropped", "user_id", userID, "amount", amount, "error", err)
		}
	}()
	return done
}
