package cache_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"codeduel/internal/common/cache"
	"codeduel/internal/testutil"
	appErr "codeduel/pkg/errors"

	"github.com/alicebob/miniredis/v2"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *cache.RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisCache(mr.Addr())
	if err != nil {
		t.Fatalf("new redis cache failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestRedisCacheGetSet(t *testing.T) {
	mr, store := newRedis(t)
	ctx := context.Background()

	got, err := store.Get(ctx, "missing")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, "")

	testutil.AssertNoError(t, store.Set(ctx, "k", "v", time.Minute))
	got, err = store.Get(ctx, "k")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, "v")
	testutil.AssertEqual(t, mr.TTL("k"), time.Minute)

	mr.FastForward(2 * time.Minute)
	got, err = store.Get(ctx, "k")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, "")

	testutil.AssertNoError(t, store.Set(ctx, "gone", "v", 0))
	testutil.AssertNoError(t, store.Del(ctx, "gone"))
	testutil.AssertFalse(t, mr.Exists("gone"), "key should be deleted")
}

func TestRedisCacheErrorsCarryCode(t *testing.T) {
	mr, store := newRedis(t)
	mr.SetError("ERR server unavailable")

	_, err := store.Get(context.Background(), "k")
	testutil.AssertCode(t, err, appErr.CacheError)
}

func TestNewRedisCacheRequiresAddr(t *testing.T) {
	_, err := cache.NewRedisCache("")
	testutil.AssertCode(t, err, appErr.ValidationFailed)
}

func TestMemoryCacheExpiry(t *testing.T) {
	store := cache.NewMemoryCache()
	ctx := context.Background()

	testutil.AssertNoError(t, store.Set(ctx, "short", "v", time.Millisecond))
	testutil.AssertNoError(t, store.Set(ctx, "forever", "v", 0))
	time.Sleep(5 * time.Millisecond)

	got, _ := store.Get(ctx, "short")
	testutil.AssertEqual(t, got, "")
	got, _ = store.Get(ctx, "forever")
	testutil.AssertEqual(t, got, "v")
}

func encode(ids []string) (string, error) { return strings.Join(ids, ","), nil }
func decode(s string) ([]string, error) { return strings.Split(s, ","), nil }
func isEmpty(ids []string) bool { return len(ids) == 0 }

func TestGetWithCached(t *testing.T) {
	_, store := newRedis(t)
	ctx := context.Background()
	calls := 0
	fetch := func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"Go", "Python3"}, nil
	}

	for i := 0; i < 3; i++ {
		ids, err := cache.GetWithCached(ctx, store, "langs", time.Hour, time.Minute, isEmpty, encode, decode, fetch)
		testutil.AssertNoError(t, err)
		testutil.AssertDeepEqual(t, ids, []string{"Go", "Python3"})
	}
	testutil.AssertEqual(t, calls, 1)

	testutil.AssertNoError(t, cache.Invalidate(ctx, store, "langs"))
	_, err := cache.GetWithCached(ctx, store, "langs", time.Hour, time.Minute, isEmpty, encode, decode, fetch)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, calls, 2)
}

func TestGetWithCachedStoresEmptyMarker(t *testing.T) {
	store := cache.NewMemoryCache()
	ctx := context.Background()
	calls := 0
	fetch := func(ctx context.Context) ([]string, error) {
		calls++
		return nil, nil
	}

	for i := 0; i < 2; i++ {
		ids, err := cache.GetWithCached(ctx, store, "langs", time.Hour, time.Minute, isEmpty, encode, decode, fetch)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, len(ids), 0)
	}
	testutil.AssertEqual(t, calls, 1)
	got, _ := store.Get(ctx, "langs")
	testutil.AssertEqual(t, got, cache.NullCacheValue)
}

func TestGetWithCachedSourceError(t *testing.T) {
	store := cache.NewMemoryCache()
	boom := errors.New("source down")

	_, err := cache.GetWithCached(context.Background(), store, "langs", time.Hour, time.Minute, isEmpty, encode, decode,
		func(ctx context.Context) ([]string, error) { return nil, boom })
	testutil.AssertTrue(t, errors.Is(err, boom), "source error should be returned")
	got, _ := store.Get(context.Background(), "langs")
	testutil.AssertEqual(t, got, "")
}

func TestJitterTTL(t *testing.T) {
	for i := 0; i < 20; i++ {
		got := cache.JitterTTL(time.Hour)
		testutil.AssertTrue(t, got <= time.Hour && got >= 54*time.Minute, "jitter within 10%")
	}
	testutil.AssertEqual(t, cache.JitterTTL(0), time.Duration(0))
}
