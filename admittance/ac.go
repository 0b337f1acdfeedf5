package admittance

import (
	"fmt"
	"math"

	"powerflow/graph"
	"powerflow/maths"
	"powerflow/network"
	"powerflow/types"
)

const deg = math.Pi / 180

// AC 交流导纳模型
type AC struct {
	Y      *maths.Sparse[complex128] // 节点导纳矩阵 |buses|x|buses|
	Y0, Y1 *maths.Sparse[complex128] // 支路两端注入电流 = Y0·V, Y1·V
	Shunt  []complex128              // 母线并联导纳
	Params []Params
}

// BuildAC 组装 Y = C0ᵗY0 + C1ᵗY1 + diag(shunt),只用于交流子网
func BuildAC(net *network.Network, sub *graph.SubNetwork, params []Params) (*AC, error) {
	if sub.Carrier != types.CarrierAC {
		return nil, fmt.Errorf("sub-network %s carrier %s: %w", sub.Name, sub.Carrier, ErrCarrier)
	}
	n, m := len(sub.BusesO), len(params)
	ac := &AC{
		Y:      maths.NewSparse[complex128](n, n),
		Y0:     maths.NewSparse[complex128](m, n),
		Y1:     maths.NewSparse[complex128](m, n),
		Shunt:  make([]complex128, n),
		Params: params,
	}
	for k := range params {
		p := &params[k]
		yse, ysh := p.Series(), p.Shunt()
		tauHV, tauLV := complex(1, 0), complex(1, 0)
		if p.TapSide == 0 {
			tauHV = complex(p.Tap, 0)
		} else {
			tauLV = complex(p.Tap, 0)
		}
		phase := p.phase()
		y00 := (yse + ysh/2) / (tauHV * tauHV)
		y01 := -yse / (tauLV * tauHV * conj(phase))
		y10 := -yse / (tauLV * tauHV * phase)
		y11 := (yse + ysh/2) / (tauLV * tauLV)

		ac.Y0.Increment(k, p.Bus0, y00)
		ac.Y0.Increment(k, p.Bus1, y01)
		ac.Y1.Increment(k, p.Bus0, y10)
		ac.Y1.Increment(k, p.Bus1, y11)

		ac.Y.Increment(p.Bus0, p.Bus0, y00)
		ac.Y.Increment(p.Bus0, p.Bus1, y01)
		ac.Y.Increment(p.Bus1, p.Bus0, y10)
		ac.Y.Increment(p.Bus1, p.Bus1, y11)
	}
	// 并联阻抗
	idx := sub.BusIndex()
	for _, s := range net.ShuntImpedances.All() {
		i, ok := idx[s.Bus]
		if !ok {
			continue
		}
		bus, _ := net.Buses.Get(s.Bus)
		v2 := bus.VNom * bus.VNom
		ac.Shunt[i] += complex(s.G*v2, s.B*v2)
	}
	for i, y := range ac.Shunt {
		if y != 0 {
			ac.Y.Increment(i, i, y)
		}
	}
	return ac, nil
}

func conj(c complex128) complex128 { return complex(real(c), -imag(c)) }
