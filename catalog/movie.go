// Package catalog 负责加载电影目录与预计算的相似度矩阵。
//
// 目录第 i 行对应矩阵第 i 行/列。这种位置耦合只在 NewIndex 中校验一次，
// 之后所有查询都通过 Index 访问，调用方不直接做下标运算。
package catalog

// Movie 是目录中的一条记录。
type Movie struct {
	ID    int64  `json:"movie_id"`
	Title string `json:"title"`
}

// Catalog 是有序的电影列表，行号即矩阵下标。
type Catalog []Movie

// Titles 按目录顺序返回片名。
func (c Catalog) Titles() []string {
	out := make([]string, len(c))
	for i, m := range c {
		out[i] = m.Title
	}
	return out
}
