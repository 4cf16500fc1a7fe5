package cache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache should never hit")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	h := Hash([]byte(`{"version":"1","records":[]}`))

	base := k.ResultKey(h, ResultKeyOpts{MaxAttributeLength: 256})
	if !strings.HasPrefix(base, "result:") {
		t.Errorf("ResultKey = %q, want result: prefix", base)
	}
	if base != k.ResultKey(h, ResultKeyOpts{MaxAttributeLength: 256}) {
		t.Error("ResultKey should be deterministic")
	}
	if base == k.ResultKey(h, ResultKeyOpts{MaxAttributeLength: 64}) {
		t.Error("different options should produce different keys")
	}
	if base == k.ResultKey(h, ResultKeyOpts{MaxAttributeLength: 256, DropAttributes: []string{"cn"}}) {
		t.Error("drop list should be part of the key")
	}
	if base == k.ResultKey(Hash([]byte("other")), ResultKeyOpts{MaxAttributeLength: 256}) {
		t.Error("different dumps should produce different keys")
	}

	svg := k.ArtifactKey("abc", "svg")
	if svg == k.ArtifactKey("abc", "dot") {
		t.Error("different formats should produce different keys")
	}
	if !strings.HasPrefix(svg, "artifact:") {
		t.Errorf("ArtifactKey = %q", svg)
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "serve:")

	opts := ResultKeyOpts{MaxAttributeLength: 10}
	if got, want := scoped.ResultKey("h", opts), "serve:"+inner.ResultKey("h", opts); got != want {
		t.Errorf("ResultKey = %q, want %q", got, want)
	}
	if got, want := scoped.ArtifactKey("h", "svg"), "serve:"+inner.ArtifactKey("h", "svg"); got != want {
		t.Errorf("ArtifactKey = %q, want %q", got, want)
	}

	nilInner := NewScopedKeyer(nil, "p:")
	if got := nilInner.ArtifactKey("h", "svg"); got != "p:"+inner.ArtifactKey("h", "svg") {
		t.Errorf("nil inner ArtifactKey = %q", got)
	}
}

// testCache runs the behaviour shared by every storing backend.
func testCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "k", []byte("v1"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v1" {
		t.Fatalf("Get(k) = %q, %v, %v", data, hit, err)
	}

	if err := c.Set(ctx, "k", []byte("v2"), 0); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if data, _, _ := c.Get(ctx, "k"); string(data) != "v2" {
		t.Errorf("after overwrite Get = %q", data)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("entry should be gone after Delete")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testCache(t, c)
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "k"); !hit {
		t.Fatal("fresh entry should hit")
	}
	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit %v, err %v", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	keep := filepath.Join(dir, "README")
	if err := os.WriteFile(keep, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("entries should be gone after Clear")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("Clear should only remove shard directories")
	}
	if c.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", c.Dir(), dir)
	}
}

func TestMemoryCache(t *testing.T) {
	c, err := NewMemoryCache(0)
	if err != nil {
		t.Fatal(err)
	}
	testCache(t, c)
}

func TestMemoryCacheEviction(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(2)
	if err != nil {
		t.Fatal(err)
	}
	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "b", []byte("2"), 0)
	c.Get(ctx, "a")
	c.Set(ctx, "c", []byte("3"), 0)

	if _, hit, _ := c.Get(ctx, "b"); hit {
		t.Error("least recently used entry should be evicted")
	}
	if _, hit, _ := c.Get(ctx, "a"); !hit {
		t.Error("recently used entry should survive")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestMemoryCacheCopies(t *testing.T) {
	ctx := context.Background()
	c, _ := NewMemoryCache(4)
	buf := []byte("abc")
	c.Set(ctx, "k", buf, 0)
	buf[0] = 'X'

	got, _, _ := c.Get(ctx, "k")
	if !bytes.Equal(got, []byte("abc")) {
		t.Errorf("stored data aliased caller buffer: %q", got)
	}
	got[1] = 'Y'
	again, _, _ := c.Get(ctx, "k")
	if !bytes.Equal(again, []byte("abc")) {
		t.Errorf("returned data aliased cache entry: %q", again)
	}
}

func TestMemoryCacheExpiryAndClose(t *testing.T) {
	ctx := context.Background()
	c, _ := NewMemoryCache(4)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", []byte("v"), time.Second)
	now = now.Add(time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}

	c.Close()
	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close err = %v, want ErrClosed", err)
	}
	if err := c.Set(ctx, "k", nil, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close err = %v, want ErrClosed", err)
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1}
	if _, err := NewRedisCache(ctx, cfg); !errors.Is(err, ErrNetwork) {
		t.Errorf("NewRedisCache err = %v, want ErrNetwork", err)
	}

	c := newRedisCache(cfg)
	defer c.Close()
	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNetwork) {
		t.Errorf("Get err = %v, want ErrNetwork", err)
	}
}

func TestRedisCacheKeyPrefix(t *testing.T) {
	c := newRedisCache(RedisConfig{Addr: "127.0.0.1:1", Prefix: "untwist:"})
	defer c.Close()
	if got := c.key("result:abc"); got != "untwist:result:abc" {
		t.Errorf("key = %q", got)
	}
}
