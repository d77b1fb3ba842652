package catalog

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/logging"
)

// Source 提供目录与相似度两个原始产物。
// 产物不存在或不可读时返回 ErrCatalogNotFound。
type Source interface {
	Name() string
	Fetch(ctx context.Context) (catalog []byte, similarity []byte, err error)
}

// FileSource 从本地磁盘读取产物。
type FileSource struct {
	CatalogPath    string
	SimilarityPath string
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Fetch(_ context.Context) ([]byte, []byte, error) {
	cat, err := readArtifact(s.CatalogPath)
	if err != nil {
		return nil, nil, err
	}
	sim, err := readArtifact(s.SimilarityPath)
	if err != nil {
		return nil, nil, err
	}
	return cat, sim, nil
}

func readArtifact(path string) ([]byte, error) {
	if path == "" {
		return nil, core.ErrCatalogNotFound.Wrap(nil, "no path configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.ErrCatalogNotFound.Wrap(err, "%s", path)
		}
		return nil, core.ErrCatalogNotFound.Wrap(err, "read %s", path)
	}
	return data, nil
}

// 产物在 Store 中的 key 后缀。
const (
	KeyCatalog    = "catalog"
	KeySimilarity = "similarity"
	KeyMeta       = "meta"
)

// StoreSource 从 core.Store（通常是 Redis）读取由 Publish 写入的产物。
type StoreSource struct {
	Store  core.Store
	Prefix string
}

func (s *StoreSource) Name() string { return s.Store.Name() }

func (s *StoreSource) Fetch(ctx context.Context) ([]byte, []byte, error) {
	keys := []string{s.Prefix + KeyCatalog, s.Prefix + KeySimilarity}
	vals, err := s.Store.BatchGet(ctx, keys)
	if err != nil {
		return nil, nil, core.ErrCatalogNotFound.Wrap(err, "%s batch get", s.Store.Name())
	}
	for _, k := range keys {
		if _, ok := vals[k]; !ok {
			return nil, nil, core.ErrCatalogNotFound.Wrap(nil, "%s key %s", s.Store.Name(), k)
		}
	}
	return vals[keys[0]], vals[keys[1]], nil
}

// meta 读取发布信息，后端不支持 Hash 或未发布时返回空。
func (s *StoreSource) meta(ctx context.Context) map[string][]byte {
	kv, ok := s.Store.(core.KeyValueStore)
	if !ok {
		return nil
	}
	m, err := kv.HGetAll(ctx, s.Prefix+KeyMeta)
	if err != nil {
		return nil
	}
	return m
}

// Loader 一次性加载产物并构造 Index，不做重试。
type Loader struct {
	Source Source
}

// Load 读取并解析产物。错误均为 *core.DomainError：
// ErrCatalogNotFound（产物缺失）或 ErrCatalogCorrupt（无法解析/维度不一致）。
func (l *Loader) Load(ctx context.Context) (*Index, error) {
	start := time.Now()
	catData, simData, err := l.Source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	idx, err := decode(catData, simData)
	if err != nil {
		return nil, err
	}

	if ss, ok := l.Source.(*StoreSource); ok {
		if meta := ss.meta(ctx); len(meta) > 0 {
			if rows, ok := meta["rows"]; ok && string(rows) != strconv.Itoa(idx.Len()) {
				return nil, core.ErrCatalogCorrupt.Wrap(nil, "published rows %s, loaded %d", rows, idx.Len())
			}
			logging.Info().Str("published_at", string(meta["published_at"])).Msg("using published artifacts")
		}
	}

	ev := logging.Info()
	if idx.Duplicates() > 0 {
		ev = logging.Warn()
	}
	ev.Str("source", l.Source.Name()).
		Int("rows", idx.Len()).
		Int("duplicate_titles", idx.Duplicates()).
		Dur("elapsed", time.Since(start)).
		Msg("catalog loaded")
	return idx, nil
}

func decode(catData, simData []byte) (*Index, error) {
	cat, err := DecodeCatalog(catData)
	if err != nil {
		return nil, core.ErrCatalogCorrupt.Wrap(err, "catalog")
	}
	m, err := DecodeMatrix(simData)
	if err != nil {
		return nil, core.ErrCatalogCorrupt.Wrap(err, "similarity")
	}
	return NewIndex(cat, m)
}

// Publish 校验 src 中的产物，并以统一格式（记录数组 JSON + 二进制矩阵）写入 dst。
// 两个产物在同一次 BatchSet 中写入；发布信息写入 <prefix>meta。
func Publish(ctx context.Context, dst core.KeyValueStore, prefix string, src Source) (*Index, error) {
	catData, simData, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := decode(catData, simData)
	if err != nil {
		return nil, err
	}

	encoded, err := EncodeCatalog(idx.catalog)
	if err != nil {
		return nil, core.ErrCatalogCorrupt.Wrap(err, "encode catalog")
	}
	if err := dst.BatchSet(ctx, map[string][]byte{
		prefix + KeyCatalog:    encoded,
		prefix + KeySimilarity: EncodeMatrix(idx.matrix),
	}); err != nil {
		return nil, err
	}

	metaKey := prefix + KeyMeta
	if err := dst.HSet(ctx, metaKey, "rows", []byte(strconv.Itoa(idx.Len()))); err != nil {
		return nil, err
	}
	if err := dst.HSet(ctx, metaKey, "published_at", []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
		return nil, err
	}

	logging.Info().
		Str("from", src.Name()).
		Str("to", dst.Name()).
		Str("prefix", prefix).
		Int("rows", idx.Len()).
		Msg("artifacts published")
	return idx, nil
}
