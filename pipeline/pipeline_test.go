package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rushteam/cinesphere/core"
)

// stubNode 给每个输入 item 的 Title 追加 tag，用于观察执行顺序。
type stubNode struct {
	name string
	kind Kind
	tag  string
	err  error
}

func (n *stubNode) Name() string { return n.name }
func (n *stubNode) Kind() Kind   { return n.kind }

func (n *stubNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if n.err != nil {
		return nil, n.err
	}
	if n.kind == KindRecall {
		return []*core.Item{core.NewItem(1, 0, n.tag)}, nil
	}
	for _, it := range items {
		it.Title += n.tag
	}
	return items, nil
}

func TestPipeline_RunOrder(t *testing.T) {
	p := &Pipeline{Nodes: []Node{
		&stubNode{name: "r", kind: KindRecall, tag: "a"},
		&stubNode{name: "f", kind: KindFilter, tag: "b"},
		&stubNode{name: "k", kind: KindRank, tag: "c"},
	}}
	items, err := p.Run(context.Background(), core.NewRecommendContext("q"), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(items) != 1 || items[0].Title != "abc" {
		t.Fatalf("got %+v, want one item titled abc", items)
	}
	if got, want := p.Describe(), []string{"r", "f", "k"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Describe = %v, want %v", got, want)
	}
}

func TestPipeline_RunErrorKeepsChain(t *testing.T) {
	p := &Pipeline{Nodes: []Node{
		&stubNode{name: "recall.similar", kind: KindRecall, err: core.ErrTitleNotFound.Wrap(nil, "x")},
		&stubNode{name: "never", kind: KindRank, tag: "z"},
	}}
	_, err := p.Run(context.Background(), core.NewRecommendContext("x"), nil)
	if !errors.Is(err, core.ErrTitleNotFound) {
		t.Fatalf("err = %v, want ErrTitleNotFound", err)
	}
}

func TestPipeline_RunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Pipeline{Nodes: []Node{&stubNode{name: "r", kind: KindRecall}}}
	if _, err := p.Run(ctx, core.NewRecommendContext("q"), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func testFactory() *NodeFactory {
	f := NewNodeFactory()
	f.Register("stub.recall", func(cfg map[string]any) (Node, error) {
		tag, _ := cfg["tag"].(string)
		return &stubNode{name: "stub.recall", kind: KindRecall, tag: tag}, nil
	})
	f.Register("stub.rank", func(cfg map[string]any) (Node, error) {
		tag, _ := cfg["tag"].(string)
		return &stubNode{name: "stub.rank", kind: KindRank, tag: tag}, nil
	})
	return f
}

func TestConfig_BuildPipeline(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
		wantErr bool
	}{
		{
			name: "yaml",
			file: "p.yaml",
			content: `
pipeline:
  name: test
  nodes:
    - type: stub.recall
      config: {tag: x}
    - type: stub.rank
      config: {tag: y}
`,
			want: "xy",
		},
		{
			name:    "json",
			file:    "p.JSON",
			content: `{"pipeline":{"nodes":[{"type":"stub.recall","config":{"tag":"j"}}]}}`,
			want:    "j",
		},
		{
			name: "toml",
			file: "p.toml",
			content: `
[pipeline]
name = "test"

[[pipeline.nodes]]
type = "stub.recall"
config = { tag = "t" }

[[pipeline.nodes]]
type = "stub.rank"
config = { tag = "o" }
`,
			want: "to",
		},
		{
			name:    "first node not recall",
			file:    "p.yaml",
			content: "pipeline:\n  nodes:\n    - type: stub.rank\n",
			wantErr: true,
		},
		{
			name:    "unknown node",
			file:    "p.yaml",
			content: "pipeline:\n  nodes:\n    - type: nope\n",
			wantErr: true,
		},
		{
			name:    "no nodes",
			file:    "p.yaml",
			content: "pipeline:\n  name: empty\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "p.yml",
			content: "pipeline: [",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadFromFile(path)
			if err == nil {
				var p *Pipeline
				p, err = cfg.BuildPipeline(testFactory())
				if err == nil {
					items, runErr := p.Run(context.Background(), core.NewRecommendContext("q"), nil)
					if runErr != nil {
						t.Fatalf("Run: %v", runErr)
					}
					if items[0].Title != tt.want {
						t.Errorf("title = %q, want %q", items[0].Title, tt.want)
					}
				}
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
