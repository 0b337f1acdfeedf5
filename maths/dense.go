package maths

import "gonum.org/v1/gonum/mat"

// NewDense 创建稠密矩阵,任一维度为零时返回 nil(gonum 不允许零维矩阵)
func NewDense(rows, cols int) *mat.Dense {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	return mat.NewDense(rows, cols, nil)
}

// MulVec 稠密矩阵乘向量,矩阵为 nil 时返回 rows 长度的零向量
func MulVec(a *mat.Dense, x []float64, rows int) []float64 {
	y := make([]float64, rows)
	if a == nil || len(x) == 0 {
		return y
	}
	var v mat.VecDense
	v.MulVec(a, mat.NewVecDense(len(x), x))
	for i := range rows {
		y[i] = v.AtVec(i)
	}
	return y
}

