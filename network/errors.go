package network

import "errors"

// 网络数据错误定义
var (
	ErrUnknownBus       = errors.New("network: unknown bus")
	ErrSelfLoop         = errors.New("network: branch connects a bus to itself")
	ErrDuplicate        = errors.New("network: duplicate name")
	ErrEmptyName        = errors.New("network: empty name")
	ErrUnknownSnapshot  = errors.New("network: unknown snapshot")
	ErrUnknownComponent = errors.New("network: unknown component")
	ErrAttribute        = errors.New("network: attribute has no static value")
)
