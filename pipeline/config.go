package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config 是 Pipeline 的配置结构（支持 YAML/JSON）。
//
//	pipeline:
//	  name: similar-movies
//	  nodes:
//	    - type: recall.similar
//	    - type: filter.query
//	    - type: filter.expr
//	      config: {expr: "item.score > 0.05"}
//	    - type: rank.score
//	    - type: rerank.topn
//	      config: {n: 5}
type Config struct {
	Pipeline struct {
		Name  string       `yaml:"name" json:"name" toml:"name"`
		Nodes []NodeConfig `yaml:"nodes" json:"nodes" toml:"nodes"`
	} `yaml:"pipeline" json:"pipeline" toml:"pipeline"`
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string         `yaml:"type" json:"type" toml:"type"`       // recall.similar / filter.expr / rerank.topn 等
	Config map[string]any `yaml:"config" json:"config" toml:"config"` // Node 特定配置
}

// LoadFromFile 按扩展名选择解析器：.json 用 JSON，.toml 用 TOML，其它按 YAML。
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return ParseYAML(data)
	}
}

// ParseYAML 解析 YAML 格式的 Pipeline 配置。
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// ParseJSON 解析 JSON 格式的 Pipeline 配置。
func ParseJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// ParseTOML 解析 TOML 格式的 Pipeline 配置。
//
//	[pipeline]
//	name = "similar-movies"
//
//	[[pipeline.nodes]]
//	type = "recall.similar"
//
//	[[pipeline.nodes]]
//	type = "rerank.topn"
//	config = { n = 5 }
func ParseTOML(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	return &cfg, nil
}

// BuildPipeline 根据配置构建 Pipeline（需要 NodeFactory 注册 Node 构建器）。
// 第一个节点必须是召回节点，否则没有候选可处理。
func (c *Config) BuildPipeline(factory *NodeFactory) (*Pipeline, error) {
	if len(c.Pipeline.Nodes) == 0 {
		return nil, fmt.Errorf("pipeline %q has no nodes", c.Pipeline.Name)
	}
	nodes := make([]Node, 0, len(c.Pipeline.Nodes))
	for i, nc := range c.Pipeline.Nodes {
		node, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, fmt.Errorf("build node %s: %w", nc.Type, err)
		}
		if i == 0 && node.Kind() != KindRecall {
			return nil, fmt.Errorf("first node must be a recall node, got %s (%s)", nc.Type, node.Kind())
		}
		nodes = append(nodes, node)
	}
	return &Pipeline{Nodes: nodes}, nil
}

// NodeFactory 用于根据配置构建 Node 实例。
type NodeFactory struct {
	builders map[string]func(map[string]any) (Node, error)
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{
		builders: make(map[string]func(map[string]any) (Node, error)),
	}
}

// Register 注册 Node 构建器。
func (f *NodeFactory) Register(nodeType string, builder func(map[string]any) (Node, error)) {
	f.builders[nodeType] = builder
}

// Build 根据类型和配置构建 Node。
func (f *NodeFactory) Build(nodeType string, config map[string]any) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	return builder(config)
}
