package safe_random

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Reader 是全局共享的加密安全随机数源，测试中可替换
var Reader io.Reader = rand.Reader

// GenerateRandomBytes 生成指定长度的安全随机字节
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return nil, fmt.Errorf("生成随机字节失败: %w", err)
	}
	return b, nil
}

// GenerateUUID 生成 v4 格式的随机 UUID
func GenerateUUID() (string, error) {
	b, err := GenerateRandomBytes(16)
	if err != nil {
		return "", err
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:]), nil
}
