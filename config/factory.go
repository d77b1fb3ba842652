package config

import (
	"fmt"

	"github.com/rushteam/cinesphere/catalog"
	"github.com/rushteam/cinesphere/filter"
	"github.com/rushteam/cinesphere/pipeline"
	"github.com/rushteam/cinesphere/pkg/conv"
	"github.com/rushteam/cinesphere/rank"
	"github.com/rushteam/cinesphere/recall"
	"github.com/rushteam/cinesphere/rerank"
)

// DefaultFactory 返回绑定到 idx 的 NodeFactory，包含所有内置 Node。
func DefaultFactory(idx *catalog.Index) *pipeline.NodeFactory {
	factory := pipeline.NewNodeFactory()

	// Recall
	factory.Register("recall.similar", func(map[string]any) (pipeline.Node, error) {
		if idx == nil {
			return nil, fmt.Errorf("recall.similar requires a loaded index")
		}
		return &recall.Similar{Index: idx}, nil
	})

	// Filter
	factory.Register("filter", buildFilterNode)
	factory.Register("filter.query", func(map[string]any) (pipeline.Node, error) {
		return &filter.FilterNode{Filters: []filter.Filter{&filter.QueryFilter{}}}, nil
	})
	factory.Register("filter.expr", func(config map[string]any) (pipeline.Node, error) {
		f, err := buildExprFilter(config)
		if err != nil {
			return nil, err
		}
		return &filter.FilterNode{Filters: []filter.Filter{f}}, nil
	})

	// Rank
	factory.Register("rank.score", func(map[string]any) (pipeline.Node, error) {
		return &rank.ScoreNode{}, nil
	})

	// ReRank
	factory.Register("rerank.topn", buildTopNNode)

	return factory
}

// BuildPipeline 从 YAML/JSON/TOML 文件构建绑定到 idx 的 Pipeline。
// 文件中必须包含 query 过滤器，且最后一个节点必须是 rerank.topn。
func BuildPipeline(path string, idx *catalog.Index) (*pipeline.Pipeline, error) {
	cfg, err := pipeline.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load pipeline %s: %w", path, err)
	}
	p, err := cfg.BuildPipeline(DefaultFactory(idx))
	if err != nil {
		return nil, err
	}
	if err := checkLookupPipeline(p); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", path, err)
	}
	return p, nil
}

// checkLookupPipeline 保证结果不含查询本身且条数有上限。
func checkLookupPipeline(p *pipeline.Pipeline) error {
	hasQuery := false
	for _, n := range p.Nodes {
		fn, ok := n.(*filter.FilterNode)
		if !ok {
			continue
		}
		for _, f := range fn.Filters {
			if _, ok := f.(*filter.QueryFilter); ok {
				hasQuery = true
			}
		}
	}
	if !hasQuery {
		return fmt.Errorf("missing query filter (filter.query)")
	}
	if _, ok := p.Nodes[len(p.Nodes)-1].(*rerank.TopNNode); !ok {
		return fmt.Errorf("last node must be rerank.topn")
	}
	return nil
}

func buildExprFilter(config map[string]any) (*filter.ExprFilter, error) {
	expr := conv.ConfigGet[string](config, "expr", "")
	if expr == "" {
		return nil, fmt.Errorf("expr not found")
	}
	return filter.NewExprFilter(expr)
}

func buildTopNNode(config map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt64(config, "n", 5)
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive, got %d", n)
	}
	return &rerank.TopNNode{N: int(n)}, nil
}

// buildFilterNode 支持在一个节点中组合多个过滤器：
//
//	type: filter
//	config:
//	  filters:
//	    - type: query
//	    - type: expr
//	      expr: "item.score > 0.05"
func buildFilterNode(config map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := config["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		filterType := conv.ConfigGet[string](filterMap, "type", "")
		switch filterType {
		case "query":
			filters = append(filters, &filter.QueryFilter{})
		case "expr":
			f, err := buildExprFilter(filterMap)
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}
