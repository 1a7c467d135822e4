package bcs

import "math"

// Uleb 解码 ULEB128 变长整数。Bits 为目标宽度 (32 或 64)。
//
// 规则: 每字节 7 位有效载荷，最高位表示后续还有字节；
// 编码长度超过目标宽度所需字节数、值超出目标宽度、
// 或者在非零移位后出现载荷为 0 的结束字节，都会被拒绝。
type Uleb struct {
	Bits  uint
	Acc   uint64
	Shift uint
	Done  bool
}

// NewUleb32 返回 32 位目标宽度的解码器
func NewUleb32() *Uleb { return &Uleb{Bits: 32} }

// NewUleb64 返回 64 位目标宽度的解码器
func NewUleb64() *Uleb { return &Uleb{Bits: 64} }

func (d *Uleb) bits() uint {
	if d.Bits == 0 {
		return 32
	}
	return d.Bits
}

func (d *Uleb) Feed(in []byte) (int, error) {
	if d.Done {
		return 0, ErrUnexpectedState
	}
	bits := d.bits()
	// 32 位最多 5 字节，64 位最多 10 字节
	maxShift := ((bits + 6) / 7) * 7

	for i, b := range in {
		if d.Shift >= maxShift {
			return i, ErrOverflow
		}
		payload := uint64(b & 0x7f)
		if d.Shift == 63 && payload > 1 {
			return i, ErrOverflow
		}
		d.Acc |= payload << d.Shift

		if b&0x80 != 0 {
			d.Shift += 7
			continue
		}

		if payload == 0 && d.Shift > 0 {
			return i, ErrNonCanonical
		}
		if bits == 32 && d.Acc > math.MaxUint32 {
			return i, ErrOverflow
		}
		d.Done = true
		return i + 1, nil
	}
	return len(in), ErrNeedMore
}

func (d *Uleb) Value() uint64 { return d.Acc }

// Uleb32 是以 uint32 输出的 ULEB128 解码器
type Uleb32 struct{ Uleb }

func (d *Uleb32) Feed(in []byte) (int, error) {
	d.Bits = 32
	return d.Uleb.Feed(in)
}

func (d *Uleb32) Value() uint32 { return uint32(d.Acc) }
