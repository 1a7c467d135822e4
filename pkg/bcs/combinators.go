package bcs

import "fmt"

// Sequence 按顺序运行子解码器，全部完成才算完成
type Sequence struct {
	Parts []Feeder
	I     int
	Done  bool
}

func Seq(parts ...Feeder) *Sequence {
	return &Sequence{Parts: parts}
}

func (s *Sequence) Feed(in []byte) (int, error) {
	if s.Done {
		return 0, ErrUnexpectedState
	}
	total := 0
	for s.I < len(s.Parts) {
		n, err := s.Parts[s.I].Feed(in[total:])
		total += n
		if err != nil {
			return total, err
		}
		s.I++
	}
	s.Done = true
	return total, nil
}

// Mapped 在内部解码器完成后把结果转换成 T
type Mapped[T any] struct {
	Inner Feeder
	Fn    func() (T, error)
	V     T
	Done  bool
}

// Map 包装 inner，完成时调用 fn 取值；fn 返回错误即拒绝
func Map[T any](inner Feeder, fn func() (T, error)) *Mapped[T] {
	return &Mapped[T]{Inner: inner, Fn: fn}
}

func (m *Mapped[T]) Feed(in []byte) (int, error) {
	if m.Done {
		return 0, ErrUnexpectedState
	}
	n, err := m.Inner.Feed(in)
	if err != nil {
		return n, err
	}
	v, err := m.Fn()
	if err != nil {
		return n, err
	}
	m.V = v
	m.Done = true
	return n, nil
}

func (m *Mapped[T]) Value() T { return m.V }

// Unit 不消费任何字节，直接产出固定值 (无载荷的枚举变体)
type Unit[T any] struct {
	V    T
	Done bool
}

func Const[T any](v T) *Unit[T] { return &Unit[T]{V: v} }

func (u *Unit[T]) Feed([]byte) (int, error) {
	if u.Done {
		return 0, ErrUnexpectedState
	}
	u.Done = true
	return 0, nil
}

func (u *Unit[T]) Value() T { return u.V }

// Vector 读取 ULEB128 元素个数，超过 Max 时拒绝，然后依次解码每个元素。
// Each 非空时元素交给回调处理而不保留在 Items 中。
type Vector[T any] struct {
	Max   int
	New   func() Decoder[T]
	Each  func(i int, v T) error
	Count Uleb
	Len   int
	I     int
	Cur   Decoder[T]
	Items []T

	counted bool
	Done    bool
}

// Vec 返回收集全部元素的有界向量解码器
func Vec[T any](max int, newElem func() Decoder[T]) *Vector[T] {
	return &Vector[T]{Max: max, New: newElem, Count: Uleb{Bits: 32}}
}

// VecEach 返回逐个回调、不保留元素的有界向量解码器
func VecEach[T any](max int, newElem func() Decoder[T], each func(i int, v T) error) *Vector[T] {
	return &Vector[T]{Max: max, New: newElem, Each: each, Count: Uleb{Bits: 32}}
}

func (v *Vector[T]) Feed(in []byte) (int, error) {
	if v.Done {
		return 0, ErrUnexpectedState
	}
	total := 0
	if !v.counted {
		n, err := v.Count.Feed(in)
		total += n
		if err != nil {
			return total, err
		}
		if v.Count.Value() > uint64(v.Max) {
			return total, fmt.Errorf("%w: %d > %d", ErrTooMany, v.Count.Value(), v.Max)
		}
		v.Len = int(v.Count.Value())
		v.counted = true
		if v.Each == nil && v.Len > 0 {
			v.Items = make([]T, 0, v.Len)
		}
	}
	for v.I < v.Len {
		if v.Cur == nil {
			v.Cur = v.New()
		}
		n, err := v.Cur.Feed(in[total:])
		total += n
		if err != nil {
			return total, err
		}
		item := v.Cur.Value()
		v.Cur = nil
		if v.Each != nil {
			if err := v.Each(v.I, item); err != nil {
				return total, err
			}
		} else {
			v.Items = append(v.Items, item)
		}
		v.I++
	}
	v.Done = true
	return total, nil
}

func (v *Vector[T]) Value() []T { return v.Items }

// Choice 读取 ULEB128 判别值并分派给唯一的变体解码器。
// Variant 对未知判别值应返回 ErrInvalidType (或其他拒绝错误)。
type Choice[T any] struct {
	Variant func(tag uint32) (Decoder[T], error)
	Tag     Uleb
	Cur     Decoder[T]
	Done    bool
}

func Enum[T any](variant func(tag uint32) (Decoder[T], error)) *Choice[T] {
	return &Choice[T]{Variant: variant, Tag: Uleb{Bits: 32}}
}

func (c *Choice[T]) Feed(in []byte) (int, error) {
	if c.Done {
		return 0, ErrUnexpectedState
	}
	total := 0
	if c.Cur == nil {
		n, err := c.Tag.Feed(in)
		total += n
		if err != nil {
			return total, err
		}
		d, err := c.Variant(uint32(c.Tag.Value()))
		if err != nil {
			return total, err
		}
		c.Cur = d
	}
	n, err := c.Cur.Feed(in[total:])
	total += n
	if err != nil {
		return total, err
	}
	c.Done = true
	return total, nil
}

func (c *Choice[T]) Value() T { return c.Cur.Value() }

// Optional 读取一个判别字节 (0 = None, 1 = Some)，Value 为 nil 表示 None
type Optional[T any] struct {
	New    func() Decoder[T]
	Tagged bool
	Cur    Decoder[T]
	Done   bool
}

func Option[T any](newElem func() Decoder[T]) *Optional[T] {
	return &Optional[T]{New: newElem}
}

func (o *Optional[T]) Feed(in []byte) (int, error) {
	if o.Done {
		return 0, ErrUnexpectedState
	}
	total := 0
	if !o.Tagged {
		if len(in) == 0 {
			return 0, ErrNeedMore
		}
		switch in[0] {
		case 0:
			o.Done = true
			return 1, nil
		case 1:
			o.Cur = o.New()
		default:
			return 0, ErrInvalidType
		}
		o.Tagged = true
		total = 1
	}
	n, err := o.Cur.Feed(in[total:])
	total += n
	if err != nil {
		return total, err
	}
	o.Done = true
	return total, nil
}

func (o *Optional[T]) Value() *T {
	if o.Cur == nil {
		return nil
	}
	v := o.Cur.Value()
	return &v
}
