// Package recall 生成候选电影。目前只有一个来源：相似度矩阵中查询片名所在的行。
package recall

import (
	"context"

	"github.com/rushteam/cinesphere/core"
)

// Source 根据查询片名生成带分数的候选，候选按目录顺序排列。
// 实现需要在成功时把查询行号写入 rctx.QueryIndex，供后续过滤使用。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
