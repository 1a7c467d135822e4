// Package governor 在解释器增长符号表之前估算内存占用，超过上限时拒绝
package governor

import (
	"fmt"

	"sui-signer/internal/sui"
)

// DefaultCeiling 默认堆预算 (字节)
const DefaultCeiling = 12 * 1024

// 各类条目的估算开销
const (
	InputCost   = 48
	CommandCost = 32
	ArgCost     = 8
	ResultCost  = 16
)

var ErrResourceExceeded = sui.ErrResourceExceeded

// Governor 记录当前已准入的字节数
type Governor struct {
	ceiling int
	used    int
}

func New(ceiling int) *Governor {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Governor{ceiling: ceiling}
}

// Admit 在分配前调用，超过上限返回 ErrResourceExceeded，已用量不变
func (g *Governor) Admit(n int) error {
	if n < 0 || g.used+n > g.ceiling {
		return fmt.Errorf("%w: %d + %d > %d 字节", ErrResourceExceeded, g.used, n, g.ceiling)
	}
	g.used += n
	return nil
}

// Release 归还之前准入的字节
func (g *Governor) Release(n int) {
	g.used -= n
	if g.used < 0 {
		g.used = 0
	}
}

func (g *Governor) Used() int { return g.used }

func (g *Governor) Ceiling() int { return g.ceiling }
