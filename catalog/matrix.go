package catalog

import (
	"fmt"
	"math"
)

// Matrix 是稠密的方阵，按行优先以 float32 存储。加载后只读。
type Matrix struct {
	n    int
	data []float32
}

// NewMatrix 用 n*n 个元素构造矩阵，data 的所有权转移给 Matrix。
func NewMatrix(n int, data []float32) (*Matrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative dimension %d", n)
	}
	if len(data) != n*n {
		return nil, fmt.Errorf("dimension %d needs %d cells, got %d", n, n*n, len(data))
	}
	for k, v := range data {
		if !finite(v) {
			return nil, fmt.Errorf("cell (%d, %d) is %v", k/n, k%n, v)
		}
	}
	return &Matrix{n: n, data: data}, nil
}

// MatrixFromRows 从二维切片构造矩阵，要求每行长度都等于行数。
func MatrixFromRows(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	data := make([]float32, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), n)
		}
		for j, v := range row {
			f := float32(v)
			if !finite(f) {
				return nil, fmt.Errorf("cell (%d, %d) is %v", i, j, v)
			}
			data = append(data, f)
		}
	}
	return &Matrix{n: n, data: data}, nil
}

// Dim 返回矩阵维度。
func (m *Matrix) Dim() int { return m.n }

// At 返回 (i, j) 的相似度。
func (m *Matrix) At(i, j int) float64 {
	return float64(m.data[i*m.n+j])
}

// Row 把第 i 行写入 dst（按需扩容）并返回。
func (m *Matrix) Row(i int, dst []float64) []float64 {
	if cap(dst) < m.n {
		dst = make([]float64, m.n)
	}
	dst = dst[:m.n]
	for j, v := range m.data[i*m.n : (i+1)*m.n] {
		dst[j] = float64(v)
	}
	return dst
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
