package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "nested", "t.db"))

	_, ok, err := s.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "user", "a"))
	require.NoError(t, s.Put(ctx, "user", "b"))
	v, ok, err := s.Get(ctx, "user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	require.NoError(t, s.Delete(ctx, "user"))
	require.NoError(t, s.Delete(ctx, "user"))
	_, ok, err = s.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_Lifecycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "t.db")
	store := openStore(t, path)

	s := New(store)
	require.NoError(t, s.Init(ctx))
	_, ok := s.Current()
	assert.False(t, ok)
	_, err := s.Require()
	assert.ErrorIs(t, err, ErrNoIdentity)

	alice := Identity{Username: "alice", FullName: "Alice A", Email: "a@x.io"}
	require.NoError(t, s.Set(ctx, alice))

	got, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, alice, got)
	name, ok := s.Username()
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	// A fresh session over the same storage sees the identity: it survives restarts.
	again := New(store)
	require.NoError(t, again.Init(ctx))
	got, ok = again.Current()
	require.True(t, ok)
	assert.Equal(t, alice, got)

	require.NoError(t, s.Clear(ctx))
	_, ok = s.Current()
	assert.False(t, ok)

	fresh := New(store)
	require.NoError(t, fresh.Init(ctx))
	_, ok = fresh.Current()
	assert.False(t, ok)
}

func TestSession_StoredShape(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "t.db"))
	s := New(store)
	require.NoError(t, s.Set(ctx, Identity{Username: " bob "}))

	raw, ok, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"username":"bob"}`, raw)
}

func TestSession_RejectsBlankUsername(t *testing.T) {
	s := New(openStore(t, filepath.Join(t.TempDir(), "t.db")))
	assert.Error(t, s.Set(context.Background(), Identity{Username: "  "}))
}

func TestSession_CorruptRecordIsSignedOut(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, store.Put(ctx, StorageKey, "{not json"))

	s := New(store)
	require.NoError(t, s.Init(ctx))
	_, ok := s.Current()
	assert.False(t, ok)
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}
func (brokenKV) Put(context.Context, string, string) error { return errors.New("disk gone") }
func (brokenKV) Delete(context.Context, string) error      { return errors.New("disk gone") }

func TestSession_StorageErrors(t *testing.T) {
	ctx := context.Background()
	s := New(brokenKV{})
	assert.Error(t, s.Init(ctx))
	assert.Error(t, s.Set(ctx, Identity{Username: "a"}))
	_, ok := s.Current()
	assert.False(t, ok, "failed persist must not sign in")
	assert.Error(t, s.Clear(ctx))
}

func TestSession_OnChangeAndReload(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "t.db"))

	a := New(store)
	b := New(store)
	require.NoError(t, a.Init(ctx))
	require.NoError(t, b.Init(ctx))

	var events []bool
	b.OnChange(func(_ Identity, signedIn bool) { events = append(events, signedIn) })

	require.NoError(t, a.Set(ctx, Identity{Username: "carol"}))
	changed, err := b.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = b.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "no change, no event")

	require.NoError(t, a.Clear(ctx))
	changed, err = b.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, []bool{true, false}, events)
}

func TestSession_NotifiesEveryListener(t *testing.T) {
	ctx := context.Background()
	s := New(openStore(t, filepath.Join(t.TempDir(), "t.db")))

	var first, second []string
	s.OnChange(func(id Identity, _ bool) { first = append(first, id.Username) })
	s.OnChange(func(id Identity, signedIn bool) {
		second = append(second, id.Username)
		// registering from inside a listener must not deadlock
		if signedIn {
			s.OnChange(func(Identity, bool) {})
		}
	})

	require.NoError(t, s.Set(ctx, Identity{Username: "dave"}))
	require.NoError(t, s.Clear(ctx))

	assert.Equal(t, []string{"dave", ""}, first)
	assert.Equal(t, []string{"dave", ""}, second)
}

func TestWatcher_PicksUpExternalLogin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "t.db")
	mine := openStore(t, path)
	other := openStore(t, path)

	s := New(mine)
	require.NoError(t, s.Init(ctx))

	var mu sync.Mutex
	var seen string
	s.OnChange(func(id Identity, _ bool) {
		mu.Lock()
		seen = id.Username
		mu.Unlock()
	})

	w, err := NewWatcher(path, s)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, New(other).Set(ctx, Identity{Username: "dave"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen == "dave"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	s := New(openStore(t, filepath.Join(t.TempDir(), "t.db")))
	w, err := NewWatcher(filepath.Join(t.TempDir(), "t.db"), s)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Alice", Identity{Username: "a", FullName: "Alice"}.DisplayName())
	assert.Equal(t, "a", Identity{Username: "a"}.DisplayName())
}
