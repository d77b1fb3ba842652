package core

import "time"

// RecommendConfig 是推荐相关的配置接口，用于提供默认值。
type RecommendConfig interface {
	// DefaultTopK 返回默认的推荐条数
	DefaultTopK() int

	// DefaultCallTimeout 返回单次外部调用的超时时间
	DefaultCallTimeout() time.Duration

	// DefaultBatchTimeout 返回一次补全批次的总超时时间
	DefaultBatchTimeout() time.Duration
}

// DefaultRecommendConfig 是默认的推荐配置实现。
type DefaultRecommendConfig struct{}

func (c *DefaultRecommendConfig) DefaultTopK() int {
	return 5
}

func (c *DefaultRecommendConfig) DefaultCallTimeout() time.Duration {
	return 5 * time.Second
}

func (c *DefaultRecommendConfig) DefaultBatchTimeout() time.Duration {
	return 10 * time.Second
}
