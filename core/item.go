package core

import "github.com/rushteam/cinesphere/pkg/utils"

// Item 是推荐链路中的统一承载结构：目录位置、分数、元信息、标签。
// Index 是物品在 Catalog 中的行号，同时也是相似度矩阵的行/列号。
type Item struct {
	ID     int64
	Index  int
	Title  string
	Score  float64
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id int64, index int, title string) *Item {
	return &Item{
		ID:     id,
		Index:  index,
		Title:  title,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
