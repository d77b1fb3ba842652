package main

import (
	"context"

	"github.com/rushteam/cinesphere/catalog"
	"github.com/rushteam/cinesphere/config"
	"github.com/rushteam/cinesphere/store"
)

// publish 校验本地产物并写入 Redis。
func publish(ctx context.Context, cfg *config.Config) error {
	rs, err := store.NewRedisStore(ctx, store.RedisOptions{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		return err
	}
	defer rs.Close()

	_, err = catalog.Publish(ctx, rs, cfg.Artifacts.KeyPrefix, &catalog.FileSource{
		CatalogPath:    cfg.Artifacts.CatalogPath,
		SimilarityPath: cfg.Artifacts.SimilarityPath,
	})
	return err
}
