package kms

import (
	"crypto/ed25519"
	"errors"
)

// KeyManager 按派生路径管理 ed25519 密钥，私钥不离开实现的安全边界。
// 可替换为真实的安全芯片实现。
type KeyManager interface {
	// PublicKey 返回路径对应的公钥
	PublicKey(path []uint32) (ed25519.PublicKey, error)
	// Sign 用路径对应的私钥签名消息 (交易摘要)
	Sign(path []uint32, message []byte) ([]byte, error)
	// Verify 验证签名
	Verify(path []uint32, message, signature []byte) error
}

var (
	ErrLocked           = errors.New("密钥管理器已锁定")
	ErrInvalidSignature = errors.New("签名无效")
)
