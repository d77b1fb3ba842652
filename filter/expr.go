package filter

import (
	"context"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/pkg/dsl"
)

// ExprFilter 使用 CEL 表达式筛选候选：表达式为 true 时保留，false 时移除。
//
//	f, err := filter.NewExprFilter("item.score > 0.05")
type ExprFilter struct {
	prg *dsl.Program
}

// NewExprFilter 编译表达式，语法错误在构造时返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string { return "filter.expr" }

// Expr 返回原始表达式。
func (f *ExprFilter) Expr() string { return f.prg.String() }

func (f *ExprFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	keep, err := f.prg.Evaluate(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
