package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

func TestMemorySessionStore(t *testing.T) {
	runSessionStoreContract(t, func(t *testing.T) sessionStore {
		return NewMemorySessionStore()
	})
}

func TestMemorySessionStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	session := newTestSession(time.Now(), time.Minute)
	require.NoError(t, store.Create(ctx, session))

	session.Status = domain.StatusAuthenticated

	got, err := store.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, got.Status)

	got.Attempts.Liveness = 3
	again, err := store.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Attempts.Liveness)
}

func TestMemorySessionStore_UpdateAfterDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	session := newTestSession(time.Now(), time.Minute)
	require.NoError(t, store.Create(ctx, session))

	entry := store.entry(session.ID)
	require.NotNil(t, entry)
	require.NoError(t, store.Delete(ctx, session.ID))

	assert.True(t, entry.removed)
	_, err := store.Update(ctx, session.ID, func(*domain.Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
