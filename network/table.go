package network

import "fmt"

// Table 有序元件表,插入顺序即确定性排序依据
type Table[T Component] struct {
	items []T
	index map[string]int
}

// NewTable 创建元件表
func NewTable[T Component]() *Table[T] {
	return &Table[T]{index: map[string]int{}}
}

// Add 添加元件
func (t *Table[T]) Add(c T) error {
	name := c.ID()
	if name == "" {
		return fmt.Errorf("%s: %w", c.Kind(), ErrEmptyName)
	}
	if _, ok := t.index[name]; ok {
		return fmt.Errorf("%s %q: %w", c.Kind(), name, ErrDuplicate)
	}
	t.index[name] = len(t.items)
	t.items = append(t.items, c)
	return nil
}

// Get 按名称获取元件
func (t *Table[T]) Get(name string) (c T, ok bool) {
	i, ok := t.index[name]
	if !ok {
		return c, false
	}
	return t.items[i], true
}

// Index 按名称获取插入序号
func (t *Table[T]) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Len 元件数量
func (t *Table[T]) Len() int { return len(t.items) }

// At 第 i 个元件
func (t *Table[T]) At(i int) T { return t.items[i] }

// All 全部元件(按插入顺序),返回底层切片
func (t *Table[T]) All() []T { return t.items }

// Names 全部名称(按插入顺序)
func (t *Table[T]) Names() []string {
	names := make([]string, len(t.items))
	for i, c := range t.items {
		names[i] = c.ID()
	}
	return names
}

// lookup 类型擦除的查找,供按类型分派使用
func (t *Table[T]) lookup(name string) (Component, bool) {
	c, ok := t.Get(name)
	if !ok {
		return nil, false
	}
	return c, true
}

// componentTable 类型擦除的元件表
type componentTable interface {
	Len() int
	Names() []string
	lookup(name string) (Component, bool)
}
