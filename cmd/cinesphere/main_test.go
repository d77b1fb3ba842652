package main

import (
	"context"
	"encoding/binary"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesphere/catalog"
	"github.com/rushteam/cinesphere/config"
	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/server"
)

func writeArtifacts(t *testing.T, dir string) (string, string) {
	t.Helper()
	cat := catalog.Catalog{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}}
	m, err := catalog.MatrixFromRows([][]float64{
		{1, 0.2, 0.7},
		{0.2, 1, 0.4},
		{0.7, 0.4, 1},
	})
	require.NoError(t, err)

	catData, err := catalog.EncodeCatalog(cat)
	require.NoError(t, err)
	catPath := filepath.Join(dir, "movie_dict.json")
	simPath := filepath.Join(dir, "similarity.bin")
	require.NoError(t, os.WriteFile(catPath, catData, 0o600))
	require.NoError(t, os.WriteFile(simPath, catalog.EncodeMatrix(m), 0o600))
	return catPath, simPath
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Artifacts.CatalogPath, cfg.Artifacts.SimilarityPath = writeArtifacts(t, t.TempDir())
	cfg.OMDb.PosterAPIKey = ""
	return cfg
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.ConfigPathEnvVar, "")
	err := run(context.Background(), []string{"explode"})
	assert.ErrorContains(t, err, "unknown command")
}

func TestLoad_File(t *testing.T) {
	idx, err := load(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
}

func TestLoad_Missing(t *testing.T) {
	cfg := config.Default()
	cfg.Artifacts.CatalogPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := load(context.Background(), cfg)
	assert.ErrorIs(t, err, core.ErrCatalogNotFound)
}

func TestLoad_NonFiniteScoreServesDegraded(t *testing.T) {
	cfg := testConfig(t)
	sim := catalog.EncodeMatrix(mustMatrix(t, 3))
	// (A, C) 写入 NaN
	binary.LittleEndian.PutUint32(sim[8+4*2:], math.Float32bits(float32(math.NaN())))
	require.NoError(t, os.WriteFile(cfg.Artifacts.SimilarityPath, sim, 0o600))

	_, err := load(context.Background(), cfg)
	require.ErrorIs(t, err, core.ErrCatalogCorrupt)

	h := server.New(nil, server.Options{LoadErr: err}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recommendations?title=A", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), core.ErrorCodeUnavailable)
}

func mustMatrix(t *testing.T, n int) *catalog.Matrix {
	t.Helper()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		rows[i][i] = 1
	}
	m, err := catalog.MatrixFromRows(rows)
	require.NoError(t, err)
	return m
}

func TestNewService(t *testing.T) {
	cfg := testConfig(t)
	idx, err := load(context.Background(), cfg)
	require.NoError(t, err)

	svc, memo, err := newService(cfg, idx)
	require.NoError(t, err)
	require.NotNil(t, memo)
	defer memo.Close()

	// 未配置 API key 时不会发出请求，海报与详情均为空。
	recs, err := svc.Recommend(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "C", recs[0].Title)
	assert.Equal(t, "B", recs[1].Title)
	assert.Empty(t, recs[0].PosterURL)
}

func TestNewService_PipelineFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recommend.MemoDisabled = true
	cfg.Recommend.PipelineFile = filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(cfg.Recommend.PipelineFile, []byte(`
pipeline:
  nodes:
    - type: recall.similar
    - type: filter.query
    - type: rank.score
    - type: rerank.topn
      config: {n: 1}
`), 0o600))

	idx, err := load(context.Background(), cfg)
	require.NoError(t, err)
	svc, memo, err := newService(cfg, idx)
	require.NoError(t, err)
	assert.Nil(t, memo)

	recs, err := svc.Recommend(context.Background(), "B")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "C", recs[0].Title)
}

func TestNewService_BadFilterExpr(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recommend.FilterExpr = "item.score >"
	idx, err := load(context.Background(), cfg)
	require.NoError(t, err)

	_, _, err = newService(cfg, idx)
	assert.Error(t, err)
}

func TestPublishThenLoadFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()

	require.NoError(t, publish(context.Background(), cfg))
	assert.True(t, mr.Exists(cfg.Artifacts.KeyPrefix+catalog.KeyCatalog))

	cfg.Artifacts.Source = "redis"
	idx, err := load(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, idx.Titles())
}

func TestLoad_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Artifacts.Source = "redis"
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.DialTimeout = 200 * time.Millisecond
	mr.Close()

	_, err := load(context.Background(), cfg)
	assert.ErrorIs(t, err, core.ErrCatalogNotFound)
}
