package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pdf-quiz/internal/cache"
	"pdf-quiz/internal/domain"
)

// cacheSessionRepository stores quiz sessions as JSON in a domain.Cache.
type cacheSessionRepository struct {
	cache domain.Cache
	ttl   time.Duration
}

// NewCacheSessionRepository keeps each session for ttl after its last save.
func NewCacheSessionRepository(c domain.Cache, ttl time.Duration) domain.SessionRepository {
	return &cacheSessionRepository{cache: c, ttl: ttl}
}

func (r *cacheSessionRepository) Save(ctx context.Context, session *domain.QuizSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session must have an id")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	if err := r.cache.Set(ctx, cache.SessionKey(session.ID), string(data), r.ttl); err != nil {
		return fmt.Errorf("failed to store session %s: %w", session.ID, err)
	}
	return nil
}

func (r *cacheSessionRepository) FindByID(ctx context.Context, id string) (*domain.QuizSession, error) {
	data, err := r.cache.Get(ctx, cache.SessionKey(id))
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	var session domain.QuizSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	if session.Questions == nil {
		session.Questions = []domain.MCQ{}
	}
	if len(session.Selected) != len(session.Questions) {
		selected := make([]string, len(session.Questions))
		copy(selected, session.Selected)
		session.Selected = selected
	}
	return &session, nil
}
