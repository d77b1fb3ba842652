package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/cinesphere/core"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链：Recall → Filter → Rank → ReRank。
// Pipeline 本身无状态，可被多个请求并发执行；每次执行使用各自的 RecommendContext。
type Pipeline struct {
	Nodes []Node
}

// Run 依次执行各节点。任一节点出错即终止，错误保留原始错误链（errors.Is 可用）。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// Describe 返回节点名列表，用于启动日志。
func (p *Pipeline) Describe() []string {
	names := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		names[i] = n.Name()
	}
	return names
}
