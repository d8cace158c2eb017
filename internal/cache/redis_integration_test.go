//go:build integration
// +build integration

package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("skip redis integration test: TEST_REDIS_ADDR is empty")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	store := NewRedisStore(client, "blog_test")
	defer store.Close()
	ctx := context.Background()
	_ = client.Del(ctx, "blog_test:gen").Err()

	if err := store.SetJSON(ctx, "posts", []int{1, 2}, time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	var got []int
	if hit, err := store.GetJSON(ctx, "posts", &got); err != nil || !hit || len(got) != 2 {
		t.Fatalf("expected hit, hit=%v err=%v got=%v", hit, err, got)
	}
	for want := int64(1); want <= 3; want++ {
		gen, err := store.Incr(ctx, "gen")
		if err != nil || gen != want {
			t.Fatalf("incr want %d got %d err=%v", want, gen, err)
		}
	}
	var gen int64
	if hit, err := store.GetJSON(ctx, "gen", &gen); err != nil || !hit || gen != 3 {
		t.Fatalf("generation should decode as json number, hit=%v err=%v gen=%d", hit, err, gen)
	}
}
