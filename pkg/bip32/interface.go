// Package bip32 实现 SLIP-10 ed25519 分层确定性派生。
// ed25519 只支持 hardened 派生，路径中每一段都会被视为 hardened。
package bip32

import (
	"crypto/ed25519"
	"errors"
)

// HardenedKeyStart hardened 索引起点 2^31
const HardenedKeyStart uint32 = 0x80000000

// ExtendedKey 是 SLIP-10 扩展私钥
type ExtendedKey interface {
	// String 返回链码与私钥种子的十六进制，仅用于调试
	String() string
	// PublicKey 32 字节 ed25519 公钥
	PublicKey() ed25519.PublicKey
	// PrivateKey 返回完整的 ed25519 私钥 (种子 + 公钥)
	PrivateKey() ed25519.PrivateKey
	ChainCode() []byte
	// Derive 派生 hardened 子密钥，index 未带 hardened 位时自动补上
	Derive(index uint32) (ExtendedKey, error)
}

// HDWallet 分层确定性钱包
type HDWallet interface {
	MasterKey() ExtendedKey
	// DerivePath 根据路径 (如 "m/44'/784'/0'/0'/0'") 派生密钥
	DerivePath(path string) (ExtendedKey, error)
	// DeriveIndexes 按索引序列派生
	DeriveIndexes(path []uint32) (ExtendedKey, error)
}

var (
	ErrInvalidSeed = errors.New("无效的种子")
	ErrInvalidPath = errors.New("无效的派生路径")
)
