package sui

import "errors"

// 交易解释过程中的错误分类
var (
	// ErrMalformed 编码错误，直接拒绝签名
	ErrMalformed = errors.New("malformed encoding")
	// ErrUnsupported 合法但不支持的交易，降级为 Unknown
	ErrUnsupported = errors.New("unsupported feature")
	// ErrResourceExceeded 超出设备资源上限，降级为 Unknown
	ErrResourceExceeded = errors.New("resource exceeded")
)
