package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

type sessionStore interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
	Stats(ctx context.Context, now time.Time) (domain.SessionStats, error)
}

func newTestSession(now time.Time, ttl time.Duration) *domain.Session {
	return &domain.Session{
		ID:               uuid.NewString(),
		SubjectReference: "subject-42",
		ChallengeType:    domain.ChallengeBlink,
		Status:           domain.StatusCreated,
		MaxAttempts:      3,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}
}

// runSessionStoreContract exercises behaviour every session store shares.
func runSessionStoreContract(t *testing.T, newStore func(t *testing.T) sessionStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("create and get", func(t *testing.T) {
		store := newStore(t)
		session := newTestSession(now, 10*time.Minute)

		require.NoError(t, store.Create(ctx, session))

		got, err := store.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, session.SubjectReference, got.SubjectReference)
		assert.Equal(t, domain.ChallengeBlink, got.ChallengeType)
		assert.Equal(t, domain.StatusCreated, got.Status)
		assert.Equal(t, 3, got.MaxAttempts)
		assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))
		assert.Nil(t, got.LivenessResult)
		assert.Empty(t, got.AuthToken)
	})

	t.Run("duplicate id", func(t *testing.T) {
		store := newStore(t)
		session := newTestSession(now, 10*time.Minute)

		require.NoError(t, store.Create(ctx, session))
		assert.ErrorIs(t, store.Create(ctx, session), domain.ErrSessionExists)
	})

	t.Run("unknown id", func(t *testing.T) {
		store := newStore(t)

		_, err := store.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		_, err = store.Update(ctx, uuid.NewString(), func(*domain.Session) error { return nil })
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		assert.ErrorIs(t, store.Delete(ctx, uuid.NewString()), domain.ErrSessionNotFound)
	})

	t.Run("update persists", func(t *testing.T) {
		store := newStore(t)
		session := newTestSession(now, 10*time.Minute)
		require.NoError(t, store.Create(ctx, session))

		validUntil := now.Add(time.Hour)
		updated, err := store.Update(ctx, session.ID, func(s *domain.Session) error {
			s.Attempts.Liveness++
			s.Status = domain.StatusAuthenticated
			s.Steps.LivenessVerified = true
			s.Steps.FaceAuthenticated = true
			s.LivenessResult = &domain.LivenessResult{
				IsLive:        true,
				Confidence:    0.8,
				ChallengeType: domain.ChallengeBlink,
				Metrics:       map[string]float64{domain.MetricAvgEAR: 0.05},
			}
			s.Authentication = &domain.AuthenticationResult{Score: 0.85, Authenticated: true, Timestamp: now}
			s.AuthToken = "token"
			s.ValidUntil = &validUntil
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.Attempts.Liveness)

		got, err := store.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAuthenticated, got.Status)
		assert.True(t, got.Steps.LivenessVerified)
		assert.True(t, got.Steps.FaceAuthenticated)
		assert.Equal(t, 1, got.Attempts.Liveness)
		require.NotNil(t, got.LivenessResult)
		assert.InDelta(t, 0.8, got.LivenessResult.Confidence, 1e-9)
		assert.InDelta(t, 0.05, got.LivenessResult.Metrics[domain.MetricAvgEAR], 1e-9)
		require.NotNil(t, got.Authentication)
		assert.InDelta(t, 0.85, got.Authentication.Score, 1e-9)
		assert.Equal(t, "token", got.AuthToken)
		require.NotNil(t, got.ValidUntil)
		assert.True(t, validUntil.Equal(*got.ValidUntil))
	})

	t.Run("failed update is discarded", func(t *testing.T) {
		store := newStore(t)
		session := newTestSession(now, 10*time.Minute)
		require.NoError(t, store.Create(ctx, session))

		boom := errors.New("boom")
		_, err := store.Update(ctx, session.ID, func(s *domain.Session) error {
			s.Attempts.Liveness = 3
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Attempts.Liveness)
	})

	t.Run("domain errors pass through update", func(t *testing.T) {
		store := newStore(t)
		session := newTestSession(now, 10*time.Minute)
		require.NoError(t, store.Create(ctx, session))

		_, err := store.Update(ctx, session.ID, func(*domain.Session) error {
			return domain.ErrLivenessAttemptsExceeded
		})
		assert.ErrorIs(t, err, domain.ErrLivenessAttemptsExceeded)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		session := newTestSession(now, 10*time.Minute)
		require.NoError(t, store.Create(ctx, session))

		require.NoError(t, store.Delete(ctx, session.ID))

		_, err := store.GetByID(ctx, session.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		assert.ErrorIs(t, store.Delete(ctx, session.ID), domain.ErrSessionNotFound)
	})

	t.Run("delete expired and stats", func(t *testing.T) {
		store := newStore(t)

		live := newTestSession(now, 10*time.Minute)
		failed := newTestSession(now, 10*time.Minute)
		failed.Status = domain.StatusLivenessFailed
		done := newTestSession(now, 10*time.Minute)
		done.Status = domain.StatusAuthenticated
		expired := newTestSession(now.Add(-20*time.Minute), 10*time.Minute)
		expiredDone := newTestSession(now.Add(-20*time.Minute), 10*time.Minute)
		expiredDone.Status = domain.StatusAuthenticated

		for _, s := range []*domain.Session{live, failed, done, expired, expiredDone} {
			require.NoError(t, store.Create(ctx, s))
		}

		stats, err := store.Stats(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStats{Total: 5, Active: 3, Expired: 2, Authenticated: 2, Failed: 1}, stats)

		ids, err := store.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{expired.ID, expiredDone.ID}, ids)

		_, err = store.GetByID(ctx, expired.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		ids, err = store.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, ids)

		stats, err = store.Stats(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStats{Total: 3, Active: 3, Authenticated: 1, Failed: 1}, stats)
	})

	t.Run("concurrent updates are serialised", func(t *testing.T) {
		store := newStore(t)
		session := newTestSession(now, 10*time.Minute)
		require.NoError(t, store.Create(ctx, session))

		const workers = 8
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = store.Update(ctx, session.ID, func(s *domain.Session) error {
					s.Attempts.Liveness++
					return nil
				})
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}

		got, err := store.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, workers, got.Attempts.Liveness)
	})

	t.Run("attempt cap holds under concurrency", func(t *testing.T) {
		store := newStore(t)
		session := newTestSession(now, 10*time.Minute)
		require.NoError(t, store.Create(ctx, session))

		const workers = 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted []int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				updated, err := store.Update(ctx, session.ID, func(s *domain.Session) error {
					if s.Attempts.Liveness >= s.MaxAttempts {
						return domain.ErrLivenessAttemptsExceeded
					}
					s.Attempts.Liveness++
					return nil
				})
				if err == nil {
					mu.Lock()
					accepted = append(accepted, updated.Attempts.Liveness)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		sort.Ints(accepted)
		assert.Equal(t, []int{1, 2, 3}, accepted)
	})
}
