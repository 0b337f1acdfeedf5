package types

import "math"

// 默认参数常量定义
var (
	Tolerance     = 1e-6 // 牛顿迭代收敛容差(无穷范数)
	MaxIterations = 100  // 最大迭代次数
	Workers       = 0    // 并行求解协程数量,0 表示使用 CPU 数量
)

// 缺省的快照与计量
const (
	DefaultSnapshot = "now" // 未指定快照时的唯一快照
	SlackNone       = ""    // 子网没有平衡发电机
)

// ConditionLimit 判定矩阵奇异的条件数上限
const ConditionLimit = 1e14

// IsFinite 判断数值是否有限
func IsFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
