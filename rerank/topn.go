package rerank

import (
	"context"
	"strconv"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/pipeline"
	"github.com/rushteam/cinesphere/pkg/utils"
)

// TopNNode 是一个 Top-N 截断节点，用于在排序后截取前 N 个物品，并写入名次 label。
// 候选不足 N 个时原样返回，不补齐。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Similar{Index: idx},
//	        &filter.FilterNode{Filters: []filter.Filter{&filter.QueryFilter{}}},
//	        &rank.ScoreNode{},
//	        &rerank.TopNNode{N: 5},
//	    },
//	}
type TopNNode struct {
	// N 要保留的物品数量；N <= 0 时不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N > 0 && len(items) > n.N {
		items = items[:n.N]
	}
	for i, it := range items {
		if it == nil {
			continue
		}
		it.PutLabel(utils.LabelRankPosition, utils.Label{Value: strconv.Itoa(i + 1), Source: "rerank"})
	}
	return items, nil
}
