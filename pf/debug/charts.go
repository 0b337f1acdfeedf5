package debug

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// 对数坐标下残差的上下限
const (
	floor   = 1e-16
	ceiling = 1e30
)

// Charts 残差曲线绘制
type Charts struct {
	*Record
	Title  string
	Format string // png, svg, pdf
}

// NewCharts 创建曲线记录
func NewCharts(title string) *Charts {
	return &Charts{Record: NewRecord(), Title: title, Format: "png"}
}

// Render 每个 (快照, 子网) 一条对数坐标残差曲线
func (c *Charts) Render(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "mismatch (inf-norm)"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Legend.Top = true
	lines := 0
	for i, name := range c.Names {
		h := c.Errors[name]
		if len(h) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(h))
		for j, e := range h {
			if math.IsNaN(e) || math.IsInf(e, 0) {
				e = ceiling
			}
			pts[j].X, pts[j].Y = float64(j), math.Min(math.Max(e, floor), ceiling)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("chart %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
		lines++
	}
	if lines == 0 {
		p.Y.Scale = plot.LinearScale{}
		p.Y.Tick.Marker = plot.DefaultTicks{}
	}
	wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, c.Format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
