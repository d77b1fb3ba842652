// Package config 加载服务配置，并提供按配置构建排序 Pipeline 的 NodeFactory。
//
// 配置按优先级从低到高叠加：结构体默认值 → YAML 文件 → CINESPHERE_* 环境变量。
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config 是服务的全部配置。
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	Redis     RedisConfig     `koanf:"redis"`
	OMDb      OMDbConfig      `koanf:"omdb"`
	Recommend RecommendConfig `koanf:"recommend"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig 是 HTTP 服务参数。
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	// RateLimit 每个 IP 在 RateWindow 内的请求上限，0 表示不限流
	RateLimit  int           `koanf:"rate_limit" validate:"gte=0"`
	RateWindow time.Duration `koanf:"rate_window" validate:"gt=0"`
	// CORSOrigins 允许跨域访问 /api 的来源，环境变量中用逗号分隔
	CORSOrigins []string `koanf:"cors_origins" validate:"dive,required"`
}

// ArtifactsConfig 指定目录与相似度产物的来源。
type ArtifactsConfig struct {
	// Source: file 或 redis
	Source         string `koanf:"source" validate:"oneof=file redis"`
	CatalogPath    string `koanf:"catalog_path"`
	SimilarityPath string `koanf:"similarity_path"`
	// KeyPrefix 是 redis 中产物 key 的前缀
	KeyPrefix string `koanf:"key_prefix"`
}

// RedisConfig 是产物存储的连接参数。
type RedisConfig struct {
	Addr        string        `koanf:"addr"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db" validate:"gte=0"`
	DialTimeout time.Duration `koanf:"dial_timeout" validate:"gte=0"`
}

// OMDbConfig 是元数据补全参数。
type OMDbConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	PosterAPIKey      string        `koanf:"poster_api_key"`
	DetailAPIKey      string        `koanf:"detail_api_key"`
	DetailBaseURL     string        `koanf:"detail_base_url" validate:"required,url"`
	PlaceholderPoster string        `koanf:"placeholder_poster" validate:"required,url"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	BatchTimeout      time.Duration `koanf:"batch_timeout" validate:"gt=0"`
	Breaker           BreakerConfig `koanf:"breaker"`
}

// BreakerConfig 是熔断器参数，FailureThreshold 为 0 时不启用。
type BreakerConfig struct {
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout" validate:"gte=0"`
	HalfOpenRequests uint32        `koanf:"half_open_requests"`
}

// RecommendConfig 是排序参数。
type RecommendConfig struct {
	TopK         int           `koanf:"top_k" validate:"gte=1,lte=50"`
	FilterExpr   string        `koanf:"filter_expr"`
	PipelineFile string        `koanf:"pipeline_file"`
	MemoTTL      time.Duration `koanf:"memo_ttl" validate:"gte=0"`
	// MemoDisabled 关闭进程内记忆化
	MemoDisabled bool `koanf:"memo_disabled"`
}

// LogConfig 是日志参数。
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8501",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       120,
			RateWindow:      time.Minute,
		},
		Artifacts: ArtifactsConfig{
			Source:         "file",
			CatalogPath:    "movie_dict.json",
			SimilarityPath: "similarity.bin",
			KeyPrefix:      "cinesphere:",
		},
		Redis: RedisConfig{
			Addr:        "127.0.0.1:6379",
			DialTimeout: 5 * time.Second,
		},
		OMDb: OMDbConfig{
			BaseURL:           "http://www.omdbapi.com/",
			DetailBaseURL:     "https://www.imdb.com/title/",
			PlaceholderPoster: "https://via.placeholder.com/300x450.png?text=Poster+Not+Found",
			Timeout:           5 * time.Second,
			BatchTimeout:      10 * time.Second,
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				OpenTimeout:      30 * time.Second,
				HalfOpenRequests: 1,
			},
		},
		Recommend: RecommendConfig{
			TopK:    5,
			MemoTTL: 10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验字段取值以及跨字段约束。
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	var errs []error
	switch c.Artifacts.Source {
	case "file":
		if c.Artifacts.CatalogPath == "" || c.Artifacts.SimilarityPath == "" {
			errs = append(errs, fmt.Errorf("artifacts.catalog_path and artifacts.similarity_path are required for source=file"))
		}
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("redis.addr is required for artifacts.source=redis"))
		}
	}
	if c.OMDb.BatchTimeout < c.OMDb.Timeout {
		errs = append(errs, fmt.Errorf("omdb.batch_timeout (%s) must not be shorter than omdb.timeout (%s)", c.OMDb.BatchTimeout, c.OMDb.Timeout))
	}
	return errors.Join(errs...)
}
