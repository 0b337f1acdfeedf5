package maths

import "math"

// Number 是一个约束,允许任何浮点或复数类型
type Number interface {
	~float32 | ~float64 | ~complex64 | ~complex128
}

// NormInf 向量无穷范数,存在 NaN 时返回 NaN
func NormInf(v []float64) float64 {
	var n float64
	for _, x := range v {
		if math.IsNaN(x) {
			return math.NaN()
		}
		if a := math.Abs(x); a > n {
			n = a
		}
	}
	return n
}
