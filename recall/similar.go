package recall

import (
	"context"

	"github.com/rushteam/cinesphere/catalog"
	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/pipeline"
	"github.com/rushteam/cinesphere/pkg/utils"
)

// Similar 是基于预计算相似度矩阵的召回源：
// 解析查询片名对应的行号，并为目录中的每一行生成一个候选，分数取矩阵该行的值。
// 查询本身也会出现在候选中，由 filter.QueryFilter 按行号移除。
//
// 同时实现 Source 与 pipeline.Node，可以直接作为 Pipeline 的第一个节点。
type Similar struct {
	Index *catalog.Index
}

func (s *Similar) Name() string        { return "recall.similar" }
func (s *Similar) Kind() pipeline.Kind { return pipeline.KindRecall }

// Recall 目录不足 2 行时返回 ErrEmptyResult；片名不存在时返回 ErrTitleNotFound。
// 成功时把查询行号写入 rctx.QueryIndex。
func (s *Similar) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if s.Index == nil || s.Index.Len() < 2 {
		return nil, core.ErrEmptyResult
	}
	qi, ok := s.Index.Lookup(rctx.Query)
	if !ok {
		return nil, core.ErrTitleNotFound.Wrap(nil, "%q", rctx.Query)
	}
	rctx.QueryIndex = qi

	row := s.Index.Row(qi)
	items := make([]*core.Item, len(row))
	for j, score := range row {
		m := s.Index.Movie(j)
		it := core.NewItem(m.ID, j, m.Title)
		it.Score = score
		it.PutLabel(utils.LabelRecallSource, utils.Label{Value: "similarity", Source: "recall"})
		items[j] = it
	}
	return items, nil
}

// Process 忽略输入 items，返回召回结果。
func (s *Similar) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return s.Recall(ctx, rctx)
}

var (
	_ Source        = (*Similar)(nil)
	_ pipeline.Node = (*Similar)(nil)
)
