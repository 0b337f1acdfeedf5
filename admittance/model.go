package admittance

import (
	"gonum.org/v1/gonum/mat"

	"powerflow/graph"
	"powerflow/network"
)

// Want 需要构建的矩阵
type Want uint8

// 矩阵选择
const (
	WantAC     Want = 1 << iota // Y/Y0/Y1
	WantLinear                  // K/B/H 及 B[1:,1:] 分解
	WantPTDF                    // B⁻¹ 与 PTDF
	WantTree                    // 生成树与回路矩阵
)

// Matrices 子网的全部矩阵,供求解器与外部优化层复用
type Matrices struct {
	Sub    *graph.SubNetwork
	Params []Params
	AC     *AC
	Linear *Linear
	LU     *mat.LU    // B[1:,1:] 的 LU 分解,单母线子网为 nil
	InvB   *mat.Dense // 补零的 B⁻¹
	PTDF   *mat.Dense
	Tree   *Tree
	Cycles *Cycles
}

// Build 按需构建子网矩阵。前置条件错误(零阻抗、奇异、载体)直接返回,不做重试。
func Build(net *network.Network, sub *graph.SubNetwork, want Want) (*Matrices, error) {
	params, err := BranchParams(net, sub)
	if err != nil {
		return nil, err
	}
	m := &Matrices{Sub: sub, Params: params}
	if want&WantAC != 0 {
		if m.AC, err = BuildAC(net, sub, params); err != nil {
			return nil, err
		}
	}
	if want&(WantLinear|WantPTDF|WantTree) == 0 {
		return m, nil
	}
	if m.Linear, err = BuildLinear(sub, params); err != nil {
		return nil, err
	}
	if m.LU, err = FactorizeB(m.Linear); err != nil {
		return nil, err
	}
	if want&WantPTDF != 0 {
		if m.InvB, err = InverseB(m.Linear, m.LU); err != nil {
			return nil, err
		}
		m.PTDF = BuildPTDF(m.Linear, m.InvB)
	}
	if want&WantTree != 0 {
		if m.Tree, err = BuildTree(m.Linear); err != nil {
			return nil, err
		}
		if m.Cycles, err = BuildCycles(m.Linear); err != nil {
			return nil, err
		}
	}
	return m, nil
}
