package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity(role string) Identity {
	return Identity{
		ID:        "64f1b2c3d4e5f6a7b8c9d0e1",
		Email:     "desk@gymdesk.test",
		FirstName: "Dana",
		LastName:  "Reyes",
		Role:      role,
	}
}

func TestSessionStoreStartsUnauthenticated(t *testing.T) {
	store := NewSessionStore(NewMemoryStorage())

	_, _, ok := store.Current()
	assert.False(t, ok)
	assert.Empty(t, store.Token())
}

func TestSessionStoreLoginLogout(t *testing.T) {
	storage := NewMemoryStorage()
	store := NewSessionStore(storage)

	require.NoError(t, store.Login("t1", testIdentity("admin")))

	identity, token, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, "t1", token)
	assert.Equal(t, "admin", identity.Role)

	store.Logout()

	_, _, ok = store.Current()
	assert.False(t, ok)

	// Both keys must be gone from storage
	_, err := storage.Load(storageKeyToken)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = storage.Load(storageKeyIdentity)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFileStorage(filepath.Join(dir, "session"))
	require.NoError(t, err)

	first := NewSessionStore(storage)
	require.NoError(t, first.Login("t1", testIdentity("reception")))

	// A second store over the same storage restores the session, the way
	// a reloaded page does
	second := NewSessionStore(storage)
	identity, token, ok := second.Current()
	require.True(t, ok)
	assert.Equal(t, "t1", token)
	assert.Equal(t, "reception", identity.Role)
}

func TestSessionStoreMalformedStorageFailsSafe(t *testing.T) {
	cases := []struct {
		name     string
		token    string
		identity string
	}{
		{"missing token", "", `{"id":"u1","role":"admin"}`},
		{"missing identity", "t1", ""},
		{"identity not json", "t1", "not-json{"},
		{"identity missing id", "t1", `{"role":"admin"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			storage := NewMemoryStorage()
			if tc.token != "" {
				require.NoError(t, storage.Save(storageKeyToken, tc.token))
			}
			if tc.identity != "" {
				require.NoError(t, storage.Save(storageKeyIdentity, tc.identity))
			}

			store := NewSessionStore(storage)
			_, _, ok := store.Current()
			assert.False(t, ok, "malformed storage must never authenticate")
		})
	}
}

func TestGuard(t *testing.T) {
	cases := []struct {
		name       string
		loggedIn   bool
		role       string
		required   []string
		wantAction GuardAction
		wantPath   string
	}{
		{
			name:       "unauthenticated redirects to login",
			loggedIn:   false,
			required:   []string{"admin"},
			wantAction: RedirectLogin,
			wantPath:   "/login",
		},
		{
			name:       "matching role renders",
			loggedIn:   true,
			role:       "admin",
			required:   []string{"admin"},
			wantAction: AllowRender,
		},
		{
			name:       "reception blocked from admin view goes home",
			loggedIn:   true,
			role:       "reception",
			required:   []string{"admin"},
			wantAction: RedirectTo,
			wantPath:   "/reception",
		},
		{
			name:       "unknown role lands on admin",
			loggedIn:   true,
			role:       "trainer",
			required:   []string{"reception"},
			wantAction: RedirectTo,
			wantPath:   "/admin",
		},
		{
			name:       "no required roles renders for any session",
			loggedIn:   true,
			role:       "reception",
			required:   nil,
			wantAction: AllowRender,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewSessionStore(NewMemoryStorage())
			if tc.loggedIn {
				require.NoError(t, store.Login("t1", testIdentity(tc.role)))
			}

			decision := store.Guard(tc.required...)
			assert.Equal(t, tc.wantAction, decision.Action)
			assert.Equal(t, tc.wantPath, decision.Path)
		})
	}
}

func TestOnChangeNotifiesAndUnsubscribes(t *testing.T) {
	store := NewSessionStore(NewMemoryStorage())

	var states []bool
	unsubscribe := store.OnChange(func(authenticated bool) {
		states = append(states, authenticated)
	})

	require.NoError(t, store.Login("t1", testIdentity("admin")))
	store.Logout()
	unsubscribe()
	require.NoError(t, store.Login("t2", testIdentity("admin")))

	assert.Equal(t, []bool{true, false}, states)
}

func TestGenerationAdvancesOnAuthChanges(t *testing.T) {
	store := NewSessionStore(NewMemoryStorage())

	g0 := store.Generation()
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	g1 := store.Generation()
	store.Logout()
	g2 := store.Generation()

	assert.Greater(t, g1, g0)
	assert.Greater(t, g2, g1)
}
