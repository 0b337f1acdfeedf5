// pfrun 读取 YAML 算例,执行线性或交流潮流并输出母线/支路结果表。
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"powerflow"
	"powerflow/config"
	"powerflow/load"
	"powerflow/network"
	"powerflow/pf/debug"
	"powerflow/types"
)

func main() {
	casePath := flag.String("case", "", "YAML 算例文件")
	configPath := flag.String("config", "", "YAML 参数文件")
	mode := flag.String("mode", "lpf", "潮流类型: lpf | pf")
	chart := flag.String("chart", "", "残差曲线输出路径(交流潮流)")
	flag.Parse()
	if *casePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	opts, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *chart != "" {
		opts.ChartPath = *chart
	}
	m, err := powerflow.ParseMode(*mode)
	if err != nil {
		log.Fatal(err)
	}
	net, err := load.LoadFile(*casePath)
	if err != nil {
		log.Fatalf("case: %v", err)
	}
	solver, err := powerflow.NewSolver(opts)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := solver.Run(ctx, net, nil, m)
	if err != nil {
		log.Fatal(err)
	}
	report(os.Stdout, res)
	if opts.ChartPath != "" && solver.Debug != nil {
		if err := writeChart(opts.ChartPath, solver); err != nil {
			log.Printf("chart: %v", err)
		}
	}
	if err := res.Err(); err != nil {
		log.Printf("sub-network errors: %v", err)
		os.Exit(1)
	}
}

func writeChart(path string, solver *powerflow.Solver) error {
	if c, ok := solver.Debug.(*debug.Charts); ok {
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			c.Format = ext
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := solver.Debug.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// report 输出结果表
func report(out io.Writer, res *powerflow.Result) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "run %s\tmode %s\t\n\n", res.RunID, res.Mode)

	fmt.Fprintln(w, "snapshot\tbus\tv_mag_pu\tv_ang\tp\tq\t")
	for i, snap := range res.Snapshots {
		for j, bus := range res.P.Names {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", snap, bus,
				cell(res.VMagPu, i, j), cell(res.VAng, i, j), cell(res.P, i, j), cell(res.Q, i, j))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "snapshot\tkind\tbranch\tp0\tq0\tp1\tq1\t")
	for _, kind := range []types.Kind{types.KindLine, types.KindTransformer, types.KindLink} {
		bf := res.Branches[kind]
		for i, snap := range res.Snapshots {
			for j, name := range bf.P0.Names {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", snap, kind, name,
					cell(bf.P0, i, j), cell(bf.Q0, i, j), cell(bf.P1, i, j), cell(bf.Q1, i, j))
			}
		}
	}
	fmt.Fprintln(w)

	if len(res.Convergence) > 0 {
		fmt.Fprintln(w, "snapshot\tsub-network\tstate\titerations\terror\t")
		for _, sub := range res.Topology.SubNetworks {
			records, ok := res.Convergence[sub.Name]
			if !ok {
				continue
			}
			for i, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3e\t\n", res.Snapshots[i], sub.Name, rec.State, rec.Iterations, rec.Error)
			}
		}
	}
	w.Flush()
}

func cell(s *network.Series, i, j int) string {
	if s == nil {
		return "-"
	}
	v := s.Values[i][j]
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}
