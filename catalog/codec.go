package catalog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// binaryMagic 是二进制相似度矩阵的文件头：
// "SIMM" | uint32 LE 维度 n | n*n 个 float32 LE（行优先）。
var binaryMagic = []byte("SIMM")

const binaryHeaderSize = 8

type movieRecord struct {
	MovieID *int64 `json:"movie_id"`
	ID      *int64 `json:"id"`
	Title   string `json:"title"`
}

type movieColumns struct {
	MovieID map[string]int64  `json:"movie_id"`
	ID      map[string]int64  `json:"id"`
	Title   map[string]string `json:"title"`
}

// DecodeCatalog 解析 JSON 目录，支持两种形态：
//
//	[{"movie_id": 19995, "title": "Avatar"}, ...]                 记录数组（也接受 "id"）
//	{"movie_id": {"0": 19995, ...}, "title": {"0": "Avatar", ...}} 列式字典，行键必须是 0..n-1
//
// 其它列会被忽略。
func DecodeCatalog(data []byte) (Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty catalog document")
	}
	switch trimmed[0] {
	case '[':
		return decodeRecords(trimmed)
	case '{':
		return decodeColumns(trimmed)
	default:
		return nil, fmt.Errorf("catalog must be a JSON array or object, got %q", trimmed[0])
	}
}

func decodeRecords(data []byte) (Catalog, error) {
	var records []movieRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse catalog records: %w", err)
	}
	out := make(Catalog, len(records))
	for i, r := range records {
		out[i] = Movie{ID: int64(i), Title: r.Title}
		switch {
		case r.MovieID != nil:
			out[i].ID = *r.MovieID
		case r.ID != nil:
			out[i].ID = *r.ID
		}
	}
	return out, nil
}

func decodeColumns(data []byte) (Catalog, error) {
	var cols movieColumns
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("parse catalog columns: %w", err)
	}
	if cols.Title == nil {
		return nil, fmt.Errorf("catalog has no title column")
	}
	ids := cols.MovieID
	if ids == nil {
		ids = cols.ID
	}

	rows := make([]int, 0, len(cols.Title))
	byRow := make(map[int]string, len(cols.Title))
	for key, title := range cols.Title {
		row, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("row key %q is not an integer", key)
		}
		rows = append(rows, row)
		byRow[row] = title
	}
	sort.Ints(rows)

	out := make(Catalog, len(rows))
	for i, row := range rows {
		if row != i {
			return nil, fmt.Errorf("row keys must be contiguous from 0, found %d at position %d", row, i)
		}
		out[i] = Movie{ID: int64(i), Title: byRow[row]}
		if ids != nil {
			id, ok := ids[strconv.Itoa(row)]
			if !ok {
				return nil, fmt.Errorf("row %d has no id", row)
			}
			out[i].ID = id
		}
	}
	return out, nil
}

// EncodeCatalog 以记录数组形态输出目录。
func EncodeCatalog(c Catalog) ([]byte, error) {
	return json.Marshal(c)
}

// DecodeMatrix 按内容识别格式：以 "SIMM" 开头为二进制，否则按 JSON 二维数组解析。
func DecodeMatrix(data []byte) (*Matrix, error) {
	if bytes.HasPrefix(data, binaryMagic) {
		return decodeBinaryMatrix(data)
	}
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse similarity json: %w", err)
	}
	return MatrixFromRows(rows)
}

func decodeBinaryMatrix(data []byte) (*Matrix, error) {
	if len(data) < binaryHeaderSize {
		return nil, fmt.Errorf("similarity header truncated")
	}
	dim := uint64(binary.LittleEndian.Uint32(data[4:binaryHeaderSize]))
	body := data[binaryHeaderSize:]
	if len(body)%4 != 0 || dim*dim != uint64(len(body))/4 {
		return nil, fmt.Errorf("similarity body has %d bytes, dimension %d needs %d", len(body), dim, 4*dim*dim)
	}
	n := int(dim)
	cells := make([]float32, n*n)
	for i := range cells {
		cells[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
	}
	return NewMatrix(n, cells)
}

// EncodeMatrix 以二进制格式输出矩阵。
func EncodeMatrix(m *Matrix) []byte {
	out := make([]byte, binaryHeaderSize+4*len(m.data))
	copy(out, binaryMagic)
	binary.LittleEndian.PutUint32(out[4:], uint32(m.n))
	for i, v := range m.data {
		binary.LittleEndian.PutUint32(out[binaryHeaderSize+4*i:], math.Float32bits(v))
	}
	return out
}
