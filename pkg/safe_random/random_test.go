package safe_random

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestGenerateRandomBytes(t *testing.T) {
	n := 32
	b, err := GenerateRandomBytes(n)
	if err != nil {
		t.Fatalf("GenerateRandomBytes 失败: %v", err)
	}
	if len(b) != n {
		t.Errorf("GenerateRandomBytes 返回了 %d 字节, 期望 %d", len(b), n)
	}
	if bytes.Equal(b, make([]byte, n)) {
		t.Error("GenerateRandomBytes 返回了全零数据")
	}
}

func TestGenerateUUID(t *testing.T) {
	id, err := GenerateUUID()
	if err != nil {
		t.Fatalf("GenerateUUID 失败: %v", err)
	}
	parts := strings.Split(id, "-")
	if len(parts) != 5 || len(id) != 36 {
		t.Fatalf("UUID 格式错误: %s", id)
	}
	if parts[2][0] != '4' {
		t.Errorf("UUID 版本位应为 4: %s", id)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestReaderFailure(t *testing.T) {
	old := Reader
	Reader = failingReader{}
	defer func() { Reader = old }()

	if _, err := GenerateRandomBytes(8); err == nil {
		t.Error("随机源失败时应返回错误")
	}
}
