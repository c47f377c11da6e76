package repository

import (
	"context"
	"sync/atomic"
	"time"

	"stirka/internal/domain"
	"stirka/internal/models"

	"github.com/rs/zerolog"
)

// FailoverSessionRepository пишет в Redis, при его отказе переключается
// на память и периодически пробует вернуться.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}

func (r *FailoverSessionRepository) SaveSession(ctx context.Context, session *models.Session) error {
	if !r.isDown.Load() {
		err := r.primary.SaveSession(ctx, session)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SaveSession(ctx, session)
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if !r.isDown.Load() {
		session, err := r.primary.GetSession(ctx, token)
		if err == nil {
			return session, nil
		}
		r.markDown(err)
	}

	// Попытка восстановления не чаще раза в минуту
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		session, err := r.primary.GetSession(ctx, token)
		if err == nil {
			r.isDown.Store(false)
			return session, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetSession(ctx, token)
}

func (r *FailoverSessionRepository) DeleteSession(ctx context.Context, token string) error {
	if !r.isDown.Load() {
		err := r.primary.DeleteSession(ctx, token)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.DeleteSession(ctx, token)
}
