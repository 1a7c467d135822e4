package crypto_util

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

var ErrInvalidPublicKey = errors.New("无效的公钥")

// ------------------------------------------------------------------------------------------------
// secp256k1 ECDSA，可信代币描述符的签名方案
// ------------------------------------------------------------------------------------------------

// GenerateSecp256k1KeyPair 生成新的 secp256k1 密钥对
func GenerateSecp256k1KeyPair() (*btcec.PrivateKey, *btcec.PublicKey, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, nil, err
	}
	return priv, priv.PubKey(), nil
}

// ParseSecp256k1PublicKey 解析压缩 (33 字节) 或未压缩 (65 字节) 公钥
func ParseSecp256k1PublicKey(b []byte) (*btcec.PublicKey, error) {
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, errors.Join(ErrInvalidPublicKey, err)
	}
	return pub, nil
}

// Secp256k1Sign 对 sha256(message) 签名，返回 DER 编码
func Secp256k1Sign(priv *btcec.PrivateKey, message []byte) []byte {
	hash := sha256.Sum256(message)
	return ecdsa.Sign(priv, hash[:]).Serialize()
}

// Secp256k1Verify 验证 sha256(message) 上的 DER 签名
func Secp256k1Verify(pub *btcec.PublicKey, message, der []byte) bool {
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(message)
	return sig.Verify(hash[:], pub)
}

// ------------------------------------------------------------------------------------------------
// Ed25519，Sui 交易签名方案
// ------------------------------------------------------------------------------------------------

func Ed25519Sign(priv ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(priv, message)
}

func Ed25519Verify(pub ed25519.PublicKey, message, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, message, signature)
}
