package bcs

import "encoding/binary"

// Uint 解码小端定长整数
type Uint[T ~uint8 | ~uint16 | ~uint32 | ~uint64] struct {
	Buf  [8]byte
	N    int
	Done bool
}

type (
	U8  = Uint[uint8]
	U16 = Uint[uint16]
	U32 = Uint[uint32]
	U64 = Uint[uint64]
)

func (d *Uint[T]) size() int {
	var zero T
	return binary.Size(zero)
}

func (d *Uint[T]) Feed(in []byte) (int, error) {
	if d.Done {
		return 0, ErrUnexpectedState
	}
	n := copy(d.Buf[d.N:d.size()], in)
	d.N += n
	if d.N < d.size() {
		return n, ErrNeedMore
	}
	d.Done = true
	return n, nil
}

func (d *Uint[T]) Value() T {
	var v uint64
	for i := d.size() - 1; i >= 0; i-- {
		v = v<<8 | uint64(d.Buf[i])
	}
	return T(v)
}

// Bytes 解码定长字节数组
type Bytes struct {
	Buf  []byte
	N    int
	Done bool
}

// NewBytes 返回一个读取 n 个字节的解码器
func NewBytes(n int) *Bytes {
	return &Bytes{Buf: make([]byte, n)}
}

func (d *Bytes) Feed(in []byte) (int, error) {
	if d.Done {
		return 0, ErrUnexpectedState
	}
	n := copy(d.Buf[d.N:], in)
	d.N += n
	if d.N < len(d.Buf) {
		return n, ErrNeedMore
	}
	d.Done = true
	return n, nil
}

func (d *Bytes) Value() []byte { return d.Buf }

// Array32 解码 32 字节数组 (地址、对象 ID)
type Array32 struct {
	Buf  [32]byte
	N    int
	Done bool
}

func (d *Array32) Feed(in []byte) (int, error) {
	if d.Done {
		return 0, ErrUnexpectedState
	}
	n := copy(d.Buf[d.N:], in)
	d.N += n
	if d.N < len(d.Buf) {
		return n, ErrNeedMore
	}
	d.Done = true
	return n, nil
}

func (d *Array32) Value() [32]byte { return d.Buf }

// Bool 只接受 0x00 / 0x01
type Bool struct {
	V    bool
	Done bool
}

func (d *Bool) Feed(in []byte) (int, error) {
	if d.Done {
		return 0, ErrUnexpectedState
	}
	if len(in) == 0 {
		return 0, ErrNeedMore
	}
	switch in[0] {
	case 0:
		d.V = false
	case 1:
		d.V = true
	default:
		return 0, ErrInvalidBool
	}
	d.Done = true
	return 1, nil
}

func (d *Bool) Value() bool { return d.V }

// VarBytes 解码 ULEB128 长度前缀的字节串，长度超过 Max 时拒绝
type VarBytes struct {
	Max  int
	Len  Uleb
	Body *Bytes
	Done bool
}

func NewVarBytes(max int) *VarBytes {
	return &VarBytes{Max: max, Len: Uleb{Bits: 32}}
}

func (d *VarBytes) Feed(in []byte) (int, error) {
	if d.Done {
		return 0, ErrUnexpectedState
	}
	total := 0
	if d.Body == nil {
		n, err := d.Len.Feed(in)
		total += n
		if err != nil {
			return total, err
		}
		if d.Len.Value() > uint64(d.Max) {
			return total, ErrTooMany
		}
		d.Body = NewBytes(int(d.Len.Value()))
	}
	n, err := d.Body.Feed(in[total:])
	total += n
	if err != nil {
		return total, err
	}
	d.Done = true
	return total, nil
}

func (d *VarBytes) Value() []byte { return d.Body.Value() }

// String 是按字节串解码的标识符
type String struct{ VarBytes }

func NewString(max int) *String {
	return &String{VarBytes: *NewVarBytes(max)}
}

func (d *String) Value() string { return string(d.Body.Value()) }
