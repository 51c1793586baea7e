// Package catalog caches the platform's programming language ids and
// validates language selections against them.
package catalog

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"codeduel/internal/common/cache"
	appErr "codeduel/pkg/errors"
	"codeduel/pkg/utils/logger"

	"go.uber.org/zap"
)

// LanguagesKey is the cache key of the language id list.
const LanguagesKey = "codeduel:catalog:languages"

const (
	DefaultTTL      = 6 * time.Hour
	DefaultEmptyTTL = time.Minute
)

// Source lists the language ids the platform accepts.
type Source interface {
	LanguageIDs(ctx context.Context) ([]string, error)
}

// Catalog fronts a Source with a cache.Store.
type Catalog struct {
	source   Source
	store    cache.Store
	ttl      time.Duration
	emptyTTL time.Duration
}

// New builds a catalog. A nil store falls back to an in-memory one and a
// non-positive ttl to DefaultTTL.
func New(source Source, store cache.Store, ttl time.Duration) *Catalog {
	if store == nil {
		store = cache.NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{source: source, store: store, ttl: ttl, emptyTTL: DefaultEmptyTTL}
}

func encodeIDs(ids []string) (string, error) {
	data, err := json.Marshal(ids)
	return string(data), err
}

func decodeIDs(raw string) ([]string, error) {
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, appErr.Wrap(err, appErr.InvalidFormat)
	}
	return ids, nil
}

// LanguageIDs returns the sorted language ids, from cache when fresh.
func (c *Catalog) LanguageIDs(ctx context.Context) ([]string, error) {
	ids, err := cache.GetWithCached(ctx, c.store, LanguagesKey, c.ttl, c.emptyTTL,
		func(ids []string) bool { return len(ids) == 0 },
		encodeIDs,
		decodeIDs,
		func(ctx context.Context) ([]string, error) {
			ids, err := c.source.LanguageIDs(ctx)
			if err != nil {
				return nil, err
			}
			sorted := append([]string(nil), ids...)
			sort.Strings(sorted)
			logger.Debug(ctx, "language catalog fetched", zap.Int("count", len(sorted)))
			return sorted, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Validate rejects ids the platform does not know. An empty catalog
// accepts everything, since there is nothing to check against.
func (c *Catalog) Validate(ctx context.Context, languageIDs []string) error {
	known, err := c.LanguageIDs(ctx)
	if err != nil {
		return err
	}
	if len(known) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(known))
	for _, id := range known {
		set[id] = struct{}{}
	}
	var unknown []string
	for _, id := range languageIDs {
		if _, ok := set[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return appErr.ValidationError("programming_languages", "unknown language "+strings.Join(unknown, ", ")).
			WithDetail("unknown", unknown)
	}
	return nil
}

// Invalidate forgets the cached list.
func (c *Catalog) Invalidate(ctx context.Context) error {
	return cache.Invalidate(ctx, c.store, LanguagesKey)
}
