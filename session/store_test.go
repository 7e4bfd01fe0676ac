package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(rdb, "test"), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	rs, _, done := newRedisStoreTest(t)
	t.Cleanup(done)

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
		"redis":  rs,
	}
}

func TestStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Get(ctx, AccessTokenKey); err != nil || ok {
				t.Fatalf("expected missing entry, got ok=%v err=%v", ok, err)
			}
			if err := store.Set(ctx, AccessTokenKey, "a-1"); err != nil {
				t.Fatalf("set: %v", err)
			}
			v, ok, err := store.Get(ctx, AccessTokenKey)
			if err != nil || !ok || v != "a-1" {
				t.Fatalf("get = %q ok=%v err=%v", v, ok, err)
			}
			if err := store.Delete(ctx, AccessTokenKey, RefreshTokenKey); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := store.Delete(ctx, AccessTokenKey); err != nil {
				t.Fatalf("second delete: %v", err)
			}
			if _, ok, _ := store.Get(ctx, AccessTokenKey); ok {
				t.Fatal("entry still present after delete")
			}
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := fs.Set(ctx, RefreshTokenKey, "r-1"); err != nil {
		t.Fatalf("set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, ok, _ := reopened.Get(ctx, RefreshTokenKey)
	if !ok || v != "r-1" {
		t.Fatalf("expected persisted refresh token, got %q ok=%v", v, ok)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatal("expected decode error for corrupt file")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	mr.Close()

	_, _, err := store.Get(context.Background(), AccessTokenKey)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store)

	if s.Authenticated() {
		t.Fatal("new session must not be authenticated")
	}
	if err := s.Set(ctx, "access-a", "refresh-r"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !s.Authenticated() || s.AccessToken() != "access-a" || s.RefreshToken() != "refresh-r" {
		t.Fatalf("unexpected credentials %+v", s.Credentials())
	}

	if err := s.ReplaceAccess(ctx, "access-b"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if v, _, _ := store.Get(ctx, AccessTokenKey); v != "access-b" {
		t.Fatalf("store holds %q, want access-b", v)
	}
	if v, _, _ := store.Get(ctx, RefreshTokenKey); v != "refresh-r" {
		t.Fatalf("refresh token changed to %q", v)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if s.Authenticated() || s.RefreshToken() != "" {
		t.Fatal("session still holds credentials after clear")
	}
	if _, ok, _ := store.Get(ctx, AccessTokenKey); ok {
		t.Fatal("store still holds access token after clear")
	}
	if _, ok, _ := store.Get(ctx, RefreshTokenKey); ok {
		t.Fatal("store still holds refresh token after clear")
	}
}

func TestSessionLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Set(ctx, AccessTokenKey, "a")
	_ = store.Set(ctx, RefreshTokenKey, "r")

	s := New(store)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := s.Credentials(); got.AccessToken != "a" || got.RefreshToken != "r" {
		t.Fatalf("loaded %+v", got)
	}
}

func TestSessionClearReportsStoreFailure(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()

	s := New(store)
	if err := s.Set(context.Background(), "a", "r"); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.Close()

	err := s.Clear(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if s.Authenticated() {
		t.Fatal("in-memory credentials must be cleared even when the store fails")
	}
}

func TestSessionRotate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store)
	_ = s.Set(ctx, "a", "r1")

	ok, err := s.Rotate(ctx, "r1", "b", "")
	if err != nil || !ok {
		t.Fatalf("rotate access only: ok=%v err=%v", ok, err)
	}
	if got := s.Credentials(); got.AccessToken != "b" || got.RefreshToken != "r1" {
		t.Fatalf("unexpected credentials %+v", got)
	}

	ok, _ = s.Rotate(ctx, "r1", "c", "r2")
	if !ok || s.RefreshToken() != "r2" {
		t.Fatalf("expected rotated refresh token, got %+v", s.Credentials())
	}
	if v, _, _ := store.Get(ctx, RefreshTokenKey); v != "r2" {
		t.Fatalf("store holds refresh %q, want r2", v)
	}

	// A refresh that raced with logout must not resurrect the session.
	_ = s.Clear(ctx)
	ok, _ = s.Rotate(ctx, "r2", "d", "")
	if ok || s.Authenticated() {
		t.Fatal("rotate after clear must be rejected")
	}
}

// gatedStore pauses the first Set of the access token until release is closed.
type gatedStore struct {
	*MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Set(ctx context.Context, key, value string) error {
	if key == AccessTokenKey {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.MemoryStore.Set(ctx, key, value)
}

func TestSessionClearDuringRotatePersistsLoggedOut(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{
		MemoryStore: NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	_ = store.MemoryStore.Set(ctx, AccessTokenKey, "A")
	_ = store.MemoryStore.Set(ctx, RefreshTokenKey, "R")
	s := New(store)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	rotated := make(chan bool, 1)
	go func() {
		ok, _ := s.Rotate(ctx, "R", "B", "")
		rotated <- ok
	}()
	<-store.entered

	cleared := make(chan error, 1)
	go func() { cleared <- s.Clear(ctx) }()

	select {
	case <-cleared:
		t.Fatal("clear must wait for the rotate in progress to finish persisting")
	case <-time.After(20 * time.Millisecond):
	}
	close(store.release)

	if !<-rotated {
		t.Fatal("rotate started before the clear and should have applied")
	}
	if err := <-cleared; err != nil {
		t.Fatalf("clear: %v", err)
	}

	if v, ok, _ := store.Get(ctx, AccessTokenKey); ok {
		t.Fatalf("store still holds access token %q after logout", v)
	}
	reloaded := New(store)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Credentials(); got.AccessToken != "" || got.RefreshToken != "" {
		t.Fatalf("reloaded session must be empty, got %+v", got)
	}
}
