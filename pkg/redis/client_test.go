package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/sponsorlens-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := client.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("unexpected get result %q err=%v", got, err)
	}
	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "k"); !errors.Is(err, Nil) {
		t.Fatalf("expected Nil after delete, got %v", err)
	}
}

func TestSetNX(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "lock", "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "lock", "b", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second setnx to lose, ok=%v err=%v", ok, err)
	}
}

func TestSetIfNewerKeepsNewestVersion(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetIfNewer(ctx, "latest", 200, "new", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first write, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetIfNewer(ctx, "latest", 100, "old", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected older version to be skipped, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetIfNewer(ctx, "latest", 200, "same", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected equal version to be skipped, ok=%v err=%v", ok, err)
	}
	if got, _ := client.Get(ctx, "latest"); got != "new" {
		t.Fatalf("expected newest value to survive, got %q", got)
	}
	ok, err = client.SetIfNewer(ctx, "latest", 300, "newer", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected newer write, ok=%v err=%v", ok, err)
	}
	if got, _ := client.Get(ctx, "latest"); got != "newer" {
		t.Fatalf("unexpected value %q", got)
	}
	if got := mock.data["latest:v"]; got != "300" {
		t.Fatalf("unexpected stored version %q", got)
	}
	if _, err := client.SetIfNewer(ctx, "latest", 400, "x", 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error for uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client should be a no-op: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.LatestResultKey("tenant", "campaign", "linear"); got != "sl:attribution:tenant:campaign:linear:latest" {
		t.Fatalf("unexpected latest result key %s", got)
	}
	if got := client.LockKey("attribution-refresh"); got != "sl:lock:attribution-refresh" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.LatestResultKey("tenant", "", "linear"); got != "sl:attribution:tenant:linear:latest" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
	if got := client.IdempotencyKey("tenant|POST|/calculate", "abc"); got != "sl:idem:tenant|POST|/calculate:abc" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}

	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://:secret@cache:6380/3", PoolSize: 4})
	if err != nil {
		t.Fatalf("unexpected url error: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 3 || opts.Password != "secret" || opts.PoolSize != 4 {
		t.Fatalf("unexpected url options %+v", opts)
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

// Eval emulates setIfNewerScript over the in-memory data.
func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if script != setIfNewerScript || len(keys) != 2 || len(args) != 3 {
		return redis.NewCmdResult(nil, errors.New("unexpected script call"))
	}
	version := args[0].(int64)
	if current, ok := m.data[keys[1]]; ok {
		var stored int64
		if _, err := fmt.Sscan(current, &stored); err == nil && stored >= version {
			return redis.NewCmdResult(int64(0), nil)
		}
	}
	m.data[keys[0]] = fmt.Sprint(args[1])
	m.data[keys[1]] = fmt.Sprint(version)
	return redis.NewCmdResult(int64(1), nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
