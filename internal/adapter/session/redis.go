// Package session stores rewrite sessions in Redis, keyed by job id.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// Store implements domain.SessionStore on Redis. One live session per job;
// Save overwrites and refreshes the TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New constructs a Store over the given client.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(jobID string) string { return "rewrite:session:" + jobID }

// Save persists the session as JSON.
func (s *Store) Save(ctx context.Context, sess domain.RewriteSession) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("op=session.save marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, key(sess.JobID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("op=session.save: %w", err)
	}
	return nil
}

// Get loads the live session for a job.
func (s *Store) Get(ctx context.Context, jobID string) (domain.RewriteSession, error) {
	b, err := s.rdb.Get(ctx, key(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RewriteSession{}, fmt.Errorf("op=session.get: %w", domain.ErrNotFound)
		}
		return domain.RewriteSession{}, fmt.Errorf("op=session.get: %w", err)
	}
	var sess domain.RewriteSession
	if err := json.Unmarshal(b, &sess); err != nil {
		return domain.RewriteSession{}, fmt.Errorf("op=session.get decode: %w", err)
	}
	return sess, nil
}

// Delete removes the session for a job. Deleting a missing session is not
// an error.
func (s *Store) Delete(ctx context.Context, jobID string) error {
	if err := s.rdb.Del(ctx, key(jobID)).Err(); err != nil {
		return fmt.Errorf("op=session.delete: %w", err)
	}
	return nil
}
