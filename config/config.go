// Package config 求解参数:缺省值 -> YAML 文件 -> 环境变量(可由 .env 提供)。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"powerflow/lpf"
	"powerflow/types"
)

// ErrInvalid 参数非法
var ErrInvalid = errors.New("config: invalid option")

// Options 求解参数
type Options struct {
	Tolerance     float64 `yaml:"tolerance"`      // 牛顿迭代收敛容差
	MaxIterations int     `yaml:"max_iterations"` // 最大迭代次数
	Workers       int     `yaml:"workers"`        // 并行协程数,0 为 CPU 数量
	Formulation   string  `yaml:"formulation"`    // 线性潮流形式
	UseSeed       bool    `yaml:"use_seed"`       // 以上次结果为初值
	Debug         bool    `yaml:"debug"`          // 调试输出与残差记录
	ChartPath     string  `yaml:"chart_path"`     // 残差曲线输出路径
}

// Default 缺省参数
func Default() Options {
	return Options{
		Tolerance:     types.Tolerance,
		MaxIterations: types.MaxIterations,
		Workers:       types.Workers,
		Formulation:   lpf.Angles.String(),
	}
}

// Load 读取配置,path 为空时只应用环境变量。当前目录的 .env 不存在时忽略。
func Load(path string) (Options, error) {
	_ = godotenv.Load()
	opts := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return opts, err
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := opts.applyEnv(); err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

// applyEnv PF_* 环境变量覆盖
func (o *Options) applyEnv() error {
	var errs []error
	if v, ok := os.LookupEnv("PF_TOLERANCE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		errs = append(errs, envErr("PF_TOLERANCE", err))
		o.Tolerance = f
	}
	if v, ok := os.LookupEnv("PF_MAX_ITER"); ok {
		n, err := strconv.Atoi(v)
		errs = append(errs, envErr("PF_MAX_ITER", err))
		o.MaxIterations = n
	}
	if v, ok := os.LookupEnv("PF_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		errs = append(errs, envErr("PF_WORKERS", err))
		o.Workers = n
	}
	if v, ok := os.LookupEnv("PF_FORMULATION"); ok {
		o.Formulation = v
	}
	if v, ok := os.LookupEnv("PF_USE_SEED"); ok {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr("PF_USE_SEED", err))
		o.UseSeed = b
	}
	if v, ok := os.LookupEnv("PF_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr("PF_DEBUG", err))
		o.Debug = b
	}
	return errors.Join(errs...)
}

func envErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", key, err)
}

// Validate 检查参数
func (o Options) Validate() error {
	if !(o.Tolerance > 0) {
		return fmt.Errorf("tolerance %g: %w", o.Tolerance, ErrInvalid)
	}
	if o.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations %d: %w", o.MaxIterations, ErrInvalid)
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers %d: %w", o.Workers, ErrInvalid)
	}
	if _, err := lpf.ParseFormulation(o.Formulation); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// LinearFormulation 解析后的线性潮流形式
func (o Options) LinearFormulation() lpf.Formulation {
	f, _ := lpf.ParseFormulation(o.Formulation)
	return f
}
