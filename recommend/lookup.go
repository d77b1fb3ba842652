// Package recommend 实现“相似电影”查询：
// Lookup 在相似度矩阵上做纯计算的 Top-K 排序，Service 在其上叠加记忆化与元数据补全。
package recommend

import (
	"context"

	"github.com/rushteam/cinesphere/catalog"
	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/filter"
	"github.com/rushteam/cinesphere/pipeline"
	"github.com/rushteam/cinesphere/rank"
	"github.com/rushteam/cinesphere/recall"
	"github.com/rushteam/cinesphere/rerank"
)

// Scored 是一条排序结果。
type Scored struct {
	Index int     `json:"index"`
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// LookupOptions 是默认排序 Pipeline 的参数。
type LookupOptions struct {
	// TopK 返回条数，<= 0 时使用 5
	TopK int
	// FilterExpr 可选的 CEL 表达式，为 true 的候选才保留，例如 "item.score > 0.05"
	FilterExpr string
}

// Lookup 对固定的 Index 执行排序 Pipeline。无副作用：相同输入总是得到相同输出。
type Lookup struct {
	index    *catalog.Index
	pipeline *pipeline.Pipeline
}

// NewLookup 构造默认 Pipeline：
// recall.similar → filter(query, expr) → rank.score → rerank.topn。
func NewLookup(idx *catalog.Index, opts LookupOptions) (*Lookup, error) {
	p, err := DefaultPipeline(idx, opts)
	if err != nil {
		return nil, err
	}
	return &Lookup{index: idx, pipeline: p}, nil
}

// NewLookupWithPipeline 使用自定义 Pipeline（例如从 YAML 构建）。
func NewLookupWithPipeline(idx *catalog.Index, p *pipeline.Pipeline) *Lookup {
	return &Lookup{index: idx, pipeline: p}
}

// DefaultPipeline 返回默认排序 Pipeline。
func DefaultPipeline(idx *catalog.Index, opts LookupOptions) (*pipeline.Pipeline, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = (&core.DefaultRecommendConfig{}).DefaultTopK()
	}

	filters := []filter.Filter{&filter.QueryFilter{}}
	if opts.FilterExpr != "" {
		ef, err := filter.NewExprFilter(opts.FilterExpr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, ef)
	}

	return &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&recall.Similar{Index: idx},
			&filter.FilterNode{Filters: filters},
			&rank.ScoreNode{},
			&rerank.TopNNode{N: topK},
		},
	}, nil
}

// Index 返回底层 Index。
func (l *Lookup) Index() *catalog.Index { return l.index }

// Pipeline 返回排序 Pipeline。
func (l *Lookup) Pipeline() *pipeline.Pipeline { return l.pipeline }

// Recommend 返回与 title 最相似的条目（不含 title 本身），按分数降序，同分保持目录顺序。
//
// 错误：
//   - core.ErrEmptyResult：目录少于 2 行（优先于片名检查）
//   - core.ErrTitleNotFound：片名不在目录中
func (l *Lookup) Recommend(ctx context.Context, title string) ([]Scored, error) {
	rctx := core.NewRecommendContext(title)
	items, err := l.pipeline.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Scored, len(items))
	for i, it := range items {
		out[i] = Scored{Index: it.Index, ID: it.ID, Title: it.Title, Score: it.Score}
	}
	return out, nil
}

// Recommend 使用默认参数（Top 5、无额外过滤）执行一次查询。
func Recommend(ctx context.Context, idx *catalog.Index, title string) ([]Scored, error) {
	l, err := NewLookup(idx, LookupOptions{})
	if err != nil {
		return nil, err
	}
	return l.Recommend(ctx, title)
}
