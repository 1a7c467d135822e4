// Package bcs 实现可挂起/恢复的 BCS 解码器。
//
// 每个解码器都遵循同一个约定: Feed(in) 返回 (n, err)
//   - err == nil:          值已完整，恰好消费了 n 个字节
//   - err == ErrNeedMore:  in 已全部消费 (n == len(in))，需要更多数据
//   - 其他 err:            拒绝，解码器不可再用
//
// 解码进度全部保存在结构体的导出字段中，调用方可以在任意字节边界暂停，
// 稍后用新的数据块继续喂入。
package bcs

import "errors"

var (
	// ErrNeedMore 表示输入已耗尽，需要更多字节
	ErrNeedMore = errors.New("bcs: need more data")

	ErrOverflow        = errors.New("bcs: value overflows target width")
	ErrNonCanonical    = errors.New("bcs: non-canonical uleb128 encoding")
	ErrInvalidType     = errors.New("bcs: unknown enum variant")
	ErrTooMany         = errors.New("bcs: length exceeds capacity")
	ErrInvalidBool     = errors.New("bcs: invalid bool byte")
	ErrUnexpectedState = errors.New("bcs: decoder fed after completion")
)

// Feeder 是不关心输出类型的解码器
type Feeder interface {
	Feed(in []byte) (int, error)
}

// Decoder 在 Feeder 基础上提供解码结果。
// Value 只有在 Feed 返回 nil 之后才有意义。
type Decoder[T any] interface {
	Feeder
	Value() T
}

// Decode 一次性解码完整的 in，要求恰好消费全部字节。
func Decode[T any](d Decoder[T], in []byte) (T, error) {
	var zero T
	n, err := d.Feed(in)
	if err != nil {
		return zero, err
	}
	if n != len(in) {
		return zero, ErrTrailingBytes
	}
	return d.Value(), nil
}

// ErrTrailingBytes 表示值解码完成后仍有剩余字节
var ErrTrailingBytes = errors.New("bcs: trailing bytes after value")
