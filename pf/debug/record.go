// Package debug 记录牛顿迭代的残差历史,可输出 JSON 或曲线图。
package debug

import (
	"encoding/json"
	"io"
	"log"
	"sync"

	"powerflow/pf"
)

var _ pf.Debug = (*Record)(nil)

// Record 记录历史状态,多个求解协程可并发写入
type Record struct {
	mu     sync.Mutex
	Names  []string             // 记录名称(首次出现顺序)
	Errors map[string][]float64 // 每次迭代的残差
}

// NewRecord 创建记录
func NewRecord() *Record { return &Record{Errors: map[string][]float64{}} }

func (*Record) IsDebug() bool { return true }

// Update 记录数据,iter 为 0 时重新开始该名称的历史
func (list *Record) Update(name string, iter int, err float64) {
	list.mu.Lock()
	defer list.mu.Unlock()
	if list.Errors == nil {
		list.Errors = map[string][]float64{}
	}
	h, ok := list.Errors[name]
	if !ok {
		list.Names = append(list.Names, name)
	}
	if iter == 0 {
		h = h[:0]
	}
	list.Errors[name] = append(h, err)
}

// History 某个名称的残差历史(副本)
func (list *Record) History(name string) []float64 {
	list.mu.Lock()
	defer list.mu.Unlock()
	return append([]float64(nil), list.Errors[name]...)
}

// Render 格式和输出内容
func (list *Record) Render(w io.Writer) error {
	list.mu.Lock()
	defer list.mu.Unlock()
	return json.NewEncoder(w).Encode(struct {
		Names  []string
		Errors map[string][]float64
	}{list.Names, list.Errors})
}

func (list *Record) Error(err error) { log.Println(err) }
