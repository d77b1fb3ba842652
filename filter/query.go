package filter

import (
	"context"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/logging"
)

// QueryFilter 移除查询片名本身。按行号比较，不假设查询自身的相似度最高。
type QueryFilter struct{}

func (f *QueryFilter) Name() string { return "filter.query" }

func (f *QueryFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if !rctx.Resolved() || item.Index != rctx.QueryIndex {
		return false, nil
	}
	if item.Score < 1 {
		// 自相似度不是 1 通常意味着矩阵没有归一化
		logging.Ctx(ctx).Debug().Str("title", item.Title).Float64("self_score", item.Score).Msg("self similarity below 1")
	}
	return true, nil
}
