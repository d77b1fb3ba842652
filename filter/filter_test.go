package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesphere/core"
)

func items(scores ...float64) []*core.Item {
	out := make([]*core.Item, len(scores))
	for i, s := range scores {
		it := core.NewItem(int64(i+1), i, string(rune('A'+i)))
		it.Score = s
		out[i] = it
	}
	return out
}

func indexes(items []*core.Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Index
	}
	return out
}

func TestQueryFilter_ByIndex(t *testing.T) {
	rctx := core.NewRecommendContext("C")
	rctx.QueryIndex = 2

	node := &FilterNode{Filters: []Filter{&QueryFilter{}}}
	out, err := node.Process(context.Background(), rctx, items(0.1, 0.2, 1.0, 0.4))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3}, indexes(out))
}

func TestQueryFilter_UnresolvedKeepsAll(t *testing.T) {
	node := &FilterNode{Filters: []Filter{&QueryFilter{}}}
	out, err := node.Process(context.Background(), core.NewRecommendContext("x"), items(0.1, 0.2))
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter("item.score > 0.3 && item.title != 'D'")
	require.NoError(t, err)
	assert.Equal(t, "item.score > 0.3 && item.title != 'D'", f.Expr())

	node := &FilterNode{Filters: []Filter{f}}
	out, err := node.Process(context.Background(), core.NewRecommendContext("A"), items(0.1, 0.5, 0.9, 0.8))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, indexes(out))
}

func TestExprFilter_CompileError(t *testing.T) {
	_, err := NewExprFilter("item.score +")
	assert.Error(t, err)
}

type failingFilter struct{}

func (failingFilter) Name() string { return "failing" }
func (failingFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return true, errors.New("boom")
}

func TestFilterNode_ErrorKeepsItem(t *testing.T) {
	node := &FilterNode{Filters: []Filter{failingFilter{}}}
	out, err := node.Process(context.Background(), core.NewRecommendContext("A"), items(0.1, 0.2))
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestFilterNode_SkipsNil(t *testing.T) {
	in := append(items(0.1), nil)
	node := &FilterNode{Filters: []Filter{&QueryFilter{}}}
	out, err := node.Process(context.Background(), core.NewRecommendContext("A"), in)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
