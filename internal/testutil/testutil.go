package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// defaultTestRedisAddr is used when TEST_REDIS_URI is unset.
const defaultTestRedisAddr = "localhost:6379"

// TestRedis is a Redis connection scoped to one test.
// Keys written under Prefix are deleted and the client is closed on cleanup.
type TestRedis struct {
	Client redis.UniversalClient
	// Prefix is a unique QUERY_CACHE_REDIS_PREFIX-style namespace, e.g. "jobitems-test:<uuid>:".
	Prefix string
}

// Key namespaces name under Prefix.
func (r *TestRedis) Key(name string) string {
	return r.Prefix + name
}

// testRedisOptions reads TEST_REDIS_URI as a redis:// URL or a plain host:port.
func testRedisOptions() (*redis.Options, error) {
	uri := strings.TrimSpace(os.Getenv("TEST_REDIS_URI"))
	if uri == "" {
		return &redis.Options{Addr: defaultTestRedisAddr}, nil
	}
	if strings.HasPrefix(uri, "redis://") || strings.HasPrefix(uri, "rediss://") {
		return redis.ParseURL(uri)
	}
	return &redis.Options{Addr: uri}, nil
}

// SetupTestRedis connects to the test Redis and hands out a fresh key namespace.
// The test is skipped when Redis is unreachable, unless TEST_REQUIRE_REDIS=true.
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	opts, err := testRedisOptions()
	if err != nil {
		t.Fatalf("invalid TEST_REDIS_URI: %v", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if os.Getenv("TEST_REQUIRE_REDIS") == "true" {
			t.Fatalf("redis not available at %s: %v", opts.Addr, err)
		}
		t.Skipf("redis not available at %s: %v", opts.Addr, err)
	}

	tr := &TestRedis{Client: client, Prefix: "jobitems-test:" + uuid.NewString() + ":"}
	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer ccancel()
		if n, err := tr.purge(cctx); err != nil {
			t.Logf("purge %s: %v", tr.Prefix, err)
		} else if n > 0 {
			t.Logf("purged %d keys under %s", n, tr.Prefix)
		}
		if err := client.Close(); err != nil {
			t.Logf("close test redis: %v", err)
		}
	})
	return tr
}

// purge deletes every key under Prefix.
func (r *TestRedis) purge(ctx context.Context) (int, error) {
	var keys []string
	iter := r.Client.Scan(ctx, 0, r.Prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return len(keys), r.Client.Del(ctx, keys...).Err()
}
