package catalog

import (
	"github.com/rushteam/cinesphere/core"
)

// Index 是校验过的 Catalog + Matrix 组合，构造后只读，可被任意多个请求并发使用。
type Index struct {
	catalog    Catalog
	matrix     *Matrix
	byTitle    map[string]int
	duplicates int
}

// NewIndex 校验目录与矩阵的行对齐关系。维度不一致或存在空片名时返回 ErrCatalogCorrupt。
// 片名重复时保留第一次出现的行号，重复次数可通过 Duplicates 查询。
func NewIndex(c Catalog, m *Matrix) (*Index, error) {
	if m == nil {
		return nil, core.ErrCatalogCorrupt.Wrap(nil, "similarity matrix missing")
	}
	if m.Dim() != len(c) {
		return nil, core.ErrCatalogCorrupt.Wrap(nil, "catalog has %d rows but similarity matrix is %dx%d", len(c), m.Dim(), m.Dim())
	}

	byTitle := make(map[string]int, len(c))
	dup := 0
	for i, movie := range c {
		if movie.Title == "" {
			return nil, core.ErrCatalogCorrupt.Wrap(nil, "row %d has an empty title", i)
		}
		if _, ok := byTitle[movie.Title]; ok {
			dup++
			continue
		}
		byTitle[movie.Title] = i
	}

	return &Index{catalog: c, matrix: m, byTitle: byTitle, duplicates: dup}, nil
}

// Len 返回目录行数。
func (x *Index) Len() int { return len(x.catalog) }

// Movie 返回第 i 行。
func (x *Index) Movie(i int) Movie { return x.catalog[i] }

// Lookup 按片名精确查找第一条匹配的行号。
func (x *Index) Lookup(title string) (int, bool) {
	i, ok := x.byTitle[title]
	return i, ok
}

// Score 返回第 i 行与第 j 行的相似度。
func (x *Index) Score(i, j int) float64 { return x.matrix.At(i, j) }

// Row 返回第 i 行的全部相似度。
func (x *Index) Row(i int) []float64 { return x.matrix.Row(i, nil) }

// Titles 按目录顺序返回所有片名（包括重复片名）。
func (x *Index) Titles() []string { return x.catalog.Titles() }

// Duplicates 返回被遮蔽的重复片名行数。
func (x *Index) Duplicates() int { return x.duplicates }
