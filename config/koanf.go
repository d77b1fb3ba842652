package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// ConfigPathEnvVar 指定配置文件路径
	ConfigPathEnvVar = "CONFIG_PATH"
	// EnvPrefix 是覆盖配置的环境变量前缀
	EnvPrefix = "CINESPHERE_"
)

// DefaultConfigPaths 是未指定 CONFIG_PATH 时依次查找的配置文件。
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// envMappings 把去掉前缀后的环境变量名映射到配置路径。
// 未列出的变量会被忽略。
var envMappings = map[string]string{
	"server_addr":             "server.addr",
	"server_read_timeout":     "server.read_timeout",
	"server_write_timeout":    "server.write_timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",
	"server_rate_limit":       "server.rate_limit",
	"server_rate_window":      "server.rate_window",
	"server_cors_origins":     "server.cors_origins",

	"artifacts_source":          "artifacts.source",
	"artifacts_catalog_path":    "artifacts.catalog_path",
	"artifacts_similarity_path": "artifacts.similarity_path",
	"artifacts_key_prefix":      "artifacts.key_prefix",

	"redis_addr":         "redis.addr",
	"redis_password":     "redis.password",
	"redis_db":           "redis.db",
	"redis_dial_timeout": "redis.dial_timeout",

	"omdb_base_url":                   "omdb.base_url",
	"omdb_api_key":                    "omdb.poster_api_key",
	"omdb_poster_api_key":             "omdb.poster_api_key",
	"omdb_detail_api_key":             "omdb.detail_api_key",
	"omdb_detail_base_url":            "omdb.detail_base_url",
	"omdb_placeholder_poster":         "omdb.placeholder_poster",
	"omdb_timeout":                    "omdb.timeout",
	"omdb_batch_timeout":              "omdb.batch_timeout",
	"omdb_breaker_failure_threshold":  "omdb.breaker.failure_threshold",
	"omdb_breaker_open_timeout":       "omdb.breaker.open_timeout",
	"omdb_breaker_half_open_requests": "omdb.breaker.half_open_requests",

	"recommend_top_k":         "recommend.top_k",
	"recommend_filter_expr":   "recommend.filter_expr",
	"recommend_pipeline_file": "recommend.pipeline_file",
	"recommend_memo_ttl":      "recommend.memo_ttl",
	"recommend_memo_disabled": "recommend.memo_disabled",

	"log_level":  "log.level",
	"log_format": "log.format",
	"log_caller": "log.caller",
}

// envTransformFunc 把 CINESPHERE_OMDB_TIMEOUT 这样的变量名转换为 omdb.timeout。
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// Load 按 默认值 → 配置文件 → 环境变量 的顺序加载并校验配置。
// path 为空时依次尝试 CONFIG_PATH 与 DefaultConfigPaths，找不到文件不视为错误；
// 显式给出的 path 必须存在。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if cfg.OMDb.DetailAPIKey == "" {
		cfg.OMDb.DetailAPIKey = cfg.OMDb.PosterAPIKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// sliceConfigPaths 是环境变量中以逗号分隔的列表字段。
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields 把来自环境变量的逗号分隔字符串转换为切片，YAML 中的列表保持不变。
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		str, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(str, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
