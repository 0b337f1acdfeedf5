package types

import (
	"log"
	"os"
	"sync/atomic"
)

var (
	logger atomic.Pointer[log.Logger]
	debug  atomic.Bool
)

func init() {
	logger.Store(log.New(os.Stderr, "powerflow: ", log.LstdFlags))
}

// SetLogger 替换输出日志,nil 恢复默认
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(os.Stderr, "powerflow: ", log.LstdFlags)
	}
	logger.Store(l)
}

// SetDebug 开关调试输出
func SetDebug(is bool) { debug.Store(is) }

// IsDebug 是否输出调试信息
func IsDebug() bool { return debug.Load() }

// Warnf 警告输出
func Warnf(format string, v ...any) {
	logger.Load().Printf("WARN "+format, v...)
}

// Debugf 调试输出
func Debugf(format string, v ...any) {
	if debug.Load() {
		logger.Load().Printf("DEBUG "+format, v...)
	}
}
