package cache

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"codeduel/pkg/utils/logger"

	"go.uber.org/zap"
)

// NullCacheValue marks a cached empty result so the source is not asked
// again until the entry expires.
const NullCacheValue = "$NULL$"

// GetWithCached implements cache-aside with null value caching. On a hit
// the cached value is decoded; on a miss (or an undecodable entry) fn is
// called and its result stored. Cache failures never fail the call.
//
// Example:
//
//	ids, err := GetWithCached(ctx, store, "codeduel:catalog:languages", time.Hour, time.Minute,
//		func(ids []string) bool { return len(ids) == 0 },
//		encodeIDs, decodeIDs,
//		service.LanguageIDs)
func GetWithCached[T any](
	ctx context.Context,
	store Store,
	key string,
	ttl time.Duration,
	emptyTTL time.Duration,
	isEmpty func(T) bool,
	marshal func(T) (string, error),
	unmarshal func(string) (T, error),
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T

	cached, err := store.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "cache read failed", zap.String("key", key), zap.Error(err))
	} else if cached != "" {
		if cached == NullCacheValue {
			return zero, nil
		}
		if result, err := unmarshal(cached); err == nil {
			return result, nil
		}
	}

	data, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	if isEmpty(data) {
		_ = store.Set(ctx, key, NullCacheValue, JitterTTL(emptyTTL))
		return zero, nil
	}

	encoded, err := marshal(data)
	if err != nil {
		return data, nil
	}
	if err := store.Set(ctx, key, encoded, JitterTTL(ttl)); err != nil {
		logger.Warn(ctx, "cache write failed", zap.String("key", key), zap.Error(err))
	}
	return data, nil
}

// Invalidate drops key so the next read goes to the source.
func Invalidate(ctx context.Context, store Store, key string) error {
	return store.Del(ctx, key)
}

// JitterTTL shortens ttl by up to 10% so entries written together do not
// expire together.
func JitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	maxJitter := int64(ttl / 10)
	if maxJitter <= 0 {
		return ttl
	}
	n, err := rand.Int(rand.Reader, big.NewInt(maxJitter+1))
	if err != nil {
		return ttl
	}
	return ttl - time.Duration(n.Int64())
}
