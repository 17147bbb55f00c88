package demoapp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "store.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateUserDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, "alice", "$fake$pw"))
	err := store.CreateUser(ctx, "alice", "$fake$other")
	require.ErrorIs(t, err, ErrUsernameTaken)

	// First write wins.
	hash, err := store.GetPasswordHash(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "$fake$pw", hash)
}

func TestGetPasswordHashUnknownUser(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetPasswordHash(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, "bob", "$fake$pw"))
	sessionID, err := store.CreateSession(ctx, "bob", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	username, err := store.GetSessionUser(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, "bob", username)

	require.NoError(t, store.DeleteSession(ctx, sessionID))
	_, err = store.GetSessionUser(ctx, sessionID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// Idempotent delete.
	require.NoError(t, store.DeleteSession(ctx, sessionID))
}

func TestSessionExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, "carol", "$fake$pw"))
	sessionID, err := store.CreateSession(ctx, "carol", -time.Second)
	require.NoError(t, err)

	_, err = store.GetSessionUser(ctx, sessionID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOpenStoreEncrypted(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	hexKey := hex.EncodeToString(key)

	path := filepath.Join(t.TempDir(), "enc.db")
	store, err := OpenStore(path, hexKey)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(context.Background(), "dave", "$fake$pw"))
	require.NoError(t, store.Close())

	// Reopening with the wrong key must fail.
	wrong := hex.EncodeToString(make([]byte, 32))
	bad, err := OpenStore(path, wrong)
	if err == nil {
		defer bad.Close()
		_, err = bad.GetPasswordHash(context.Background(), "dave")
	}
	require.Error(t, err)
}

func TestOpenStoreRejectsShortKey(t *testing.T) {
	_, err := OpenStore(filepath.Join(t.TempDir(), "x.db"), "abc123")
	require.Error(t, err)
}
