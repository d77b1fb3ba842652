package core

// RecommendContext 承载一次推荐请求的查询信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	// Query 是用户选中的片名（精确匹配）
	Query string

	// QueryIndex 是 Query 在 Catalog 中的行号，由召回节点解析后写入；-1 表示尚未解析
	QueryIndex int

	// Params 请求级参数，例如 filter 表达式里引用的自定义变量
	Params map[string]any
}

// NewRecommendContext 创建查询上下文。
func NewRecommendContext(query string) *RecommendContext {
	return &RecommendContext{
		Query:      query,
		QueryIndex: -1,
		Params:     make(map[string]any),
	}
}

// Resolved 表示 Query 是否已经解析到目录行号。
func (rctx *RecommendContext) Resolved() bool {
	return rctx != nil && rctx.QueryIndex >= 0
}
