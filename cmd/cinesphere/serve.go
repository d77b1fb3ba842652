package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/rushteam/cinesphere/catalog"
	"github.com/rushteam/cinesphere/config"
	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/enrich"
	"github.com/rushteam/cinesphere/logging"
	"github.com/rushteam/cinesphere/metrics"
	"github.com/rushteam/cinesphere/recommend"
	"github.com/rushteam/cinesphere/server"
	"github.com/rushteam/cinesphere/store"
)

// serve 加载数据并阻塞直到 ctx 结束。加载失败不退出，而是以降级模式提供错误页。
func serve(ctx context.Context, cfg *config.Config) error {
	var (
		svc     server.Recommender
		loadErr error
	)
	idx, err := load(ctx, cfg)
	if err != nil {
		loadErr = err
		metrics.CatalogRows.Set(0)
		logging.Error().Err(err).Str("source", cfg.Artifacts.Source).Msg("failed to load movie data, serving error page")
	} else {
		metrics.CatalogRows.Set(float64(idx.Len()))
		s, memo, err := newService(cfg, idx)
		if err != nil {
			return err
		}
		if memo != nil {
			defer memo.Close()
		}
		svc = s
	}

	httpSrv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.New(svc, server.Options{
			PlaceholderPoster: cfg.OMDb.PlaceholderPoster,
			LoadErr:           loadErr,
			RateLimit:         cfg.Server.RateLimit,
			RateWindow:        cfg.Server.RateWindow,
			CORSOrigins:       cfg.Server.CORSOrigins,
		}).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Bool("degraded", loadErr != nil).Msg("http server listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// load 按 artifacts.source 读取产物。Redis 连接失败与产物缺失同样视为 NOT_FOUND。
func load(ctx context.Context, cfg *config.Config) (*catalog.Index, error) {
	var src catalog.Source
	switch cfg.Artifacts.Source {
	case "redis":
		rs, err := store.NewRedisStore(ctx, store.RedisOptions{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return nil, core.ErrCatalogNotFound.Wrap(err, "redis %s", cfg.Redis.Addr)
		}
		defer rs.Close()
		src = &catalog.StoreSource{Store: rs, Prefix: cfg.Artifacts.KeyPrefix}
	default:
		src = &catalog.FileSource{CatalogPath: cfg.Artifacts.CatalogPath, SimilarityPath: cfg.Artifacts.SimilarityPath}
	}
	return (&catalog.Loader{Source: src}).Load(ctx)
}

// newService 组装排序 Pipeline、OMDb 补全与记忆化。返回的 memo 由调用方关闭。
func newService(cfg *config.Config, idx *catalog.Index) (*recommend.Service, *store.MemoryStore, error) {
	var lookup *recommend.Lookup
	if cfg.Recommend.PipelineFile != "" {
		p, err := config.BuildPipeline(cfg.Recommend.PipelineFile, idx)
		if err != nil {
			return nil, nil, err
		}
		lookup = recommend.NewLookupWithPipeline(idx, p)
	} else {
		l, err := recommend.NewLookup(idx, recommend.LookupOptions{
			TopK:       cfg.Recommend.TopK,
			FilterExpr: cfg.Recommend.FilterExpr,
		})
		if err != nil {
			return nil, nil, err
		}
		lookup = l
	}
	logging.Info().
		Str("file", cfg.Recommend.PipelineFile).
		Strs("pipeline", lookup.Pipeline().Describe()).
		Msg("lookup pipeline ready")

	client, err := enrich.NewClient(enrich.ClientOptions{
		BaseURL: cfg.OMDb.BaseURL,
		Breaker: enrich.BreakerOptions{
			FailureThreshold: cfg.OMDb.Breaker.FailureThreshold,
			OpenTimeout:      cfg.OMDb.Breaker.OpenTimeout,
			HalfOpenRequests: cfg.OMDb.Breaker.HalfOpenRequests,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.OMDb.PosterAPIKey == "" {
		logging.Warn().Msg("omdb api key not set, posters and detail links will be absent")
	}
	enricher := enrich.NewEnricher(client, enrich.Options{
		PosterAPIKey:  cfg.OMDb.PosterAPIKey,
		DetailAPIKey:  cfg.OMDb.DetailAPIKey,
		DetailBaseURL: cfg.OMDb.DetailBaseURL,
		CallTimeout:   cfg.OMDb.Timeout,
		BatchTimeout:  cfg.OMDb.BatchTimeout,
	})

	var memo *store.MemoryStore
	opts := recommend.ServiceOptions{MemoTTL: cfg.Recommend.MemoTTL}
	if !cfg.Recommend.MemoDisabled {
		memo = store.NewMemoryStore()
		opts.Memo = memo
	}
	return recommend.NewService(lookup, enricher, opts), memo, nil
}
