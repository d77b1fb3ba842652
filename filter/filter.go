// Package filter 在排序前剔除候选：查询片名本身，以及不满足 CEL 表达式的电影。
package filter

import (
	"context"

	"github.com/rushteam/cinesphere/core"
)

// Filter 判断一部候选电影是否应从推荐中移除。
// 返回 true 表示移除；返回错误时 FilterNode 保留该候选。
type Filter interface {
	Name() string
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}
