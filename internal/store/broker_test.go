package store

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func TestLocalBroker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewLocalBroker()

	ch, err := b.Listen(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b.Publish(ctx, "u1")

	select {
	case id := <-ch:
		if id != "u1" {
			t.Fatalf("got %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("listener not closed")
	}
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisBrokerIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), DB: db})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := NewRedisBroker(client, "test-"+strconv.FormatInt(time.Now().UnixNano(), 10))
	ch, err := b.Listen(ctx)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if err := b.Publish(ctx, "player-7"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case id := <-ch:
		if id != "player-7" {
			t.Fatalf("got %q", id)
		}
	case <-ctx.Done():
		t.Fatal("no notification from redis")
	}
}
