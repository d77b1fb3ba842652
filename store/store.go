// Package store 提供 core.Store / core.KeyValueStore 的实现。
//
// 注意：此包只包含实现，接口定义在 core 包。
//
//	var memo core.Store = store.NewMemoryStore()
//	artifacts, err := store.NewRedisStore(ctx, store.RedisOptions{Addr: "127.0.0.1:6379"})
package store
