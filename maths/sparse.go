package maths

import (
	"fmt"
	"sort"
	"strings"
)

// Sparse 稀疏矩阵数据结构
// 按行存储有序列索引,插入时二分查找定位
type Sparse[T Number] struct {
	rows, cols int
	colInd     [][]int // 每行的列索引(升序)
	values     [][]T   // 每行的非零值
}

// NewSparse 创建新的稀疏矩阵
func NewSparse[T Number](rows, cols int) *Sparse[T] {
	if rows < 0 || cols < 0 {
		panic("maths: negative dimension")
	}
	return &Sparse[T]{
		rows:   rows,
		cols:   cols,
		colInd: make([][]int, rows),
		values: make([][]T, rows),
	}
}

// Rows 获取矩阵行数
func (m *Sparse[T]) Rows() int { return m.rows }

// Cols 获取矩阵列数
func (m *Sparse[T]) Cols() int { return m.cols }

func (m *Sparse[T]) check(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("maths: index (%d,%d) out of range %dx%d", row, col, m.rows, m.cols))
	}
}

// search 查找列位置
func (m *Sparse[T]) search(row, col int) (int, bool) {
	ind := m.colInd[row]
	pos := sort.SearchInts(ind, col)
	return pos, pos < len(ind) && ind[pos] == col
}

// Get 获取矩阵元素
func (m *Sparse[T]) Get(row, col int) (zero T) {
	m.check(row, col)
	if pos, ok := m.search(row, col); ok {
		return m.values[row][pos]
	}
	return zero
}

// Increment 增量设置矩阵元素
func (m *Sparse[T]) Increment(row, col int, value T) {
	m.check(row, col)
	pos, ok := m.search(row, col)
	if ok {
		m.values[row][pos] += value
		return
	}
	m.insert(row, pos, col, value)
}

// insert 在指定位置插入元素
func (m *Sparse[T]) insert(row, pos, col int, value T) {
	var zero T
	m.colInd[row] = append(m.colInd[row], 0)
	copy(m.colInd[row][pos+1:], m.colInd[row][pos:])
	m.colInd[row][pos] = col
	m.values[row] = append(m.values[row], zero)
	copy(m.values[row][pos+1:], m.values[row][pos:])
	m.values[row][pos] = value
}

// Row 获取指定行非零元素(列索引+值),返回底层切片,调用方不得修改
func (m *Sparse[T]) Row(row int) ([]int, []T) {
	return m.colInd[row], m.values[row]
}

// NonZeroCount 统计结构非零元素数量
func (m *Sparse[T]) NonZeroCount() int {
	n := 0
	for _, r := range m.colInd {
		n += len(r)
	}
	return n
}

// MulVec 矩阵向量乘法(返回 A*x)
func (m *Sparse[T]) MulVec(x []T) []T {
	if len(x) != m.cols {
		panic(fmt.Sprintf("maths: vector length %d, want %d", len(x), m.cols))
	}
	y := make([]T, m.rows)
	for i := range m.rows {
		var s T
		for k, j := range m.colInd[i] {
			s += m.values[i][k] * x[j]
		}
		y[i] = s
	}
	return y
}

// String 格式化字符串输出
func (m *Sparse[T]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Sparse %dx%d nnz=%d\n", m.rows, m.cols, m.NonZeroCount())
	for i := range m.rows {
		for k, j := range m.colInd[i] {
			fmt.Fprintf(&sb, "  (%d,%d) %v\n", i, j, m.values[i][k])
		}
	}
	return sb.String()
}
