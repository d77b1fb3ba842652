package rerank

import (
	"context"
	"strconv"
	"testing"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/pkg/utils"
)

func makeItems(n int) []*core.Item {
	out := make([]*core.Item, n)
	for i := range out {
		out[i] = core.NewItem(int64(i), i, "")
	}
	return out
}

func TestTopNNode(t *testing.T) {
	tests := []struct {
		name string
		n    int
		in   int
		want int
	}{
		{"truncates", 5, 8, 5},
		{"fewer than n is not padded", 5, 3, 3},
		{"exactly n", 5, 5, 5},
		{"n zero keeps all", 0, 4, 4},
		{"empty", 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := (&TopNNode{N: tt.n}).Process(context.Background(), core.NewRecommendContext("q"), makeItems(tt.in))
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if len(out) != tt.want {
				t.Fatalf("len = %d, want %d", len(out), tt.want)
			}
			for i, it := range out {
				if it.Index != i {
					t.Errorf("out[%d].Index = %d, order changed", i, it.Index)
				}
			}
			if tt.want > 0 {
				if pos := out[tt.want-1].Labels[utils.LabelRankPosition].Value; pos != strconv.Itoa(tt.want) {
					t.Errorf("last rank_position = %q, want %d", pos, tt.want)
				}
			}
		})
	}
}
