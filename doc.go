// Package cinesphere 根据预先计算好的相似度矩阵推荐与所选电影相似的电影。
//
// 设计要点：
// - Pipeline-first: 排序通过 Node 串联（Recall → Filter → Rank → ReRank），每个 Node 都是纯计算
// - Index-first: 目录与矩阵在加载时一次性校验配对，之后只读
// - 补全可降级: 海报/详情链接获取失败只会让对应字段为空，不影响推荐结果
package cinesphere

import (
	"context"

	"github.com/rushteam/cinesphere/catalog"
	"github.com/rushteam/cinesphere/pipeline"
	"github.com/rushteam/cinesphere/recommend"
)

// 轻量 facade：便于直接 import "cinesphere" 使用核心抽象。
type (
	Pipeline = pipeline.Pipeline
	Node     = pipeline.Node
	Kind     = pipeline.Kind

	Index  = catalog.Index
	Scored = recommend.Scored
)

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindRank   = pipeline.KindRank
	KindReRank = pipeline.KindReRank
)

// LoadFiles 从本地产物构造 Index。
func LoadFiles(ctx context.Context, catalogPath, similarityPath string) (*Index, error) {
	l := &catalog.Loader{Source: &catalog.FileSource{CatalogPath: catalogPath, SimilarityPath: similarityPath}}
	return l.Load(ctx)
}

// Recommend 返回与 title 最相似的 5 部电影（不含 title 本身）。
func Recommend(ctx context.Context, idx *Index, title string) ([]Scored, error) {
	return recommend.Recommend(ctx, idx, title)
}
