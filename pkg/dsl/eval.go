package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/rushteam/cinesphere/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
}

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译后的候选过滤表达式，使用 CEL (Common Expression Language) 实现。
// 编译一次，可以并发地对多个 Item 求值。
//
// 可用变量：
//   - item.id / item.index / item.title / item.score
//   - label.<key>：Item 上 Label 的 value
//   - rctx.query / rctx.query_index / rctx.params
//
// 示例：
//   - `item.score > 0.05` → 丢弃相似度过低的候选
//   - `!item.title.startsWith("The ")`
//   - `label.recall_source == "similarity" && item.score >= 0.2`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 解析并检查表达式。空表达式返回 nil Program，Evaluate 恒为 true。
func Compile(expr string) (*Program, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if k := ast.OutputType().Kind(); k != types.BoolKind && k != types.DynKind {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string {
	if p == nil {
		return ""
	}
	return p.expr
}

// Evaluate 对单个 Item 求值，返回布尔结果。
// 访问不存在的 label 会报错，先用 has(label.key) 判断存在性。
func (p *Program) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if p == nil {
		return true, nil
	}
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = v.Value
	}

	in := map[string]any{
		"item": map[string]any{
			"id":    item.ID,
			"index": int64(item.Index),
			"title": item.Title,
			"score": item.Score,
			"meta":  item.Meta,
		},
		"label": labels,
	}
	if rctx != nil {
		in["rctx"] = map[string]any{
			"query":       rctx.Query,
			"query_index": int64(rctx.QueryIndex),
			"params":      rctx.Params,
		}
	} else {
		in["rctx"] = map[string]any{}
	}
	return in
}
