package filter

import (
	"context"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/logging"
	"github.com/rushteam/cinesphere/pipeline"
)

// FilterNode 是过滤 Node，可以组合多个过滤器。
// 任何一个过滤器返回 true，该物品就会被移除；输出保持输入顺序。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if !n.filtered(ctx, rctx, item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (n *FilterNode) filtered(ctx context.Context, rctx *core.RecommendContext, item *core.Item) bool {
	for _, f := range n.Filters {
		ok, err := f.ShouldFilter(ctx, rctx, item)
		if err != nil {
			// 过滤器错误时保留物品，不中断流程
			logging.Ctx(ctx).Debug().Err(err).Str("filter", f.Name()).Int("index", item.Index).Msg("filter error, item kept")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
