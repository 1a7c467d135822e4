package interp

import (
	"errors"

	"sui-signer/internal/sui"
	"sui-signer/pkg/bcs"
)

var (
	ErrMalformed        = sui.ErrMalformed
	ErrUnsupported      = sui.ErrUnsupported
	ErrResourceExceeded = sui.ErrResourceExceeded
)

// ErrorKind 是拒绝原因的分类
type ErrorKind uint8

const (
	// KindMalformed 编码错误，签名会话直接失败
	KindMalformed ErrorKind = iota
	// KindUnsupported 降级为 Unknown，进入盲签确认
	KindUnsupported
	// KindResourceExceeded 同样降级为 Unknown
	KindResourceExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "MalformedEncoding"
	case KindUnsupported:
		return "UnsupportedFeature"
	case KindResourceExceeded:
		return "ResourceExceeded"
	}
	return "Invalid"
}

// Fatal 表示该错误不允许降级为盲签
func (k ErrorKind) Fatal() bool { return k == KindMalformed }

// Classify 把解码/解释过程中的任意错误归类
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrResourceExceeded), errors.Is(err, bcs.ErrTooMany):
		return KindResourceExceeded
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	}
	return KindMalformed
}
