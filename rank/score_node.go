package rank

import (
	"context"
	"math"
	"sort"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/pipeline"
	"github.com/rushteam/cinesphere/pkg/utils"
)

// ScoreNode 按召回分数降序排序。
//   - 稳定排序：分数相同的物品保持输入顺序（即目录顺序）
//   - NaN 视为最低分，排在最后
//   - 写入 labels：rank_model=similarity
type ScoreNode struct{}

func (n *ScoreNode) Name() string        { return "rank.score" }
func (n *ScoreNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *ScoreNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	for _, it := range items {
		if it != nil {
			it.PutLabel(utils.LabelRankModel, utils.Label{Value: "similarity", Source: "rank"})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return higher(items[i], items[j])
	})
	return items, nil
}

// higher 报告 a 是否应排在 b 之前。
func higher(a, b *core.Item) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	aNaN, bNaN := math.IsNaN(a.Score), math.IsNaN(b.Score)
	switch {
	case aNaN:
		return false
	case bNaN:
		return true
	}
	return a.Score > b.Score
}
