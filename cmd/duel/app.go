package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"codeduel/internal/catalog"
	"codeduel/internal/cli/config"
	httpclient "codeduel/internal/cli/http"
	"codeduel/internal/cli/state"
	"codeduel/internal/common/cache"
	"codeduel/internal/duel"
	"codeduel/internal/duel/remote"
	"codeduel/pkg/utils/logger"

	"go.uber.org/zap"
)

// app is everything a subcommand needs, built once from the config.
type app struct {
	cfg        config.Config
	http       *httpclient.Client
	service    *remote.HTTPService
	catalog    *catalog.Catalog
	store      cache.Store
	client     *duel.Client
	actorState state.ActorState
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	scheduling, err := cfg.SchedulingMode()
	if err != nil {
		return nil, err
	}
	actorState, err := state.Load(cfg.StatePath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, actorState: actorState}
	a.http = httpclient.New(cfg.BaseURL, cfg.Timeout)
	if err := a.http.SetCookies(actorState.HTTPCookies()); err != nil {
		return nil, err
	}
	a.service = remote.NewHTTPService(a.http)

	a.store = cache.Store(cache.NewMemoryCache())
	if cfg.Catalog.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Catalog.RedisAddr)
		if err != nil {
			logger.Warn(ctx, "redis unavailable, using in-memory catalog cache",
				zap.String("addr", cfg.Catalog.RedisAddr),
				zap.Error(err),
			)
		} else {
			a.store = redisCache
		}
	}
	a.catalog = catalog.New(a.service, a.store, cfg.Catalog.TTL)

	opts := duel.Options{
		Scheduling: scheduling,
		SiteURL:    cfg.SiteURL,
		Languages:  a.catalog,
	}
	if actor, ok := actorState.Actor(); ok {
		opts.Actor = &actor
	}
	a.client = duel.NewClient(a.service, opts)
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn(context.Background(), "close catalog cache failed", zap.Error(err))
	}
}

func (a *app) printJSON(w io.Writer, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if a.cfg.PrettyJSON != nil && *a.cfg.PrettyJSON {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode output failed: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
