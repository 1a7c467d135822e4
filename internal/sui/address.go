package sui

import (
	"crypto/ed25519"

	"sui-signer/pkg/crypto_util"
)

// Ed25519Flag 签名方案标识
const Ed25519Flag = 0x00

// AddressFromPublicKey 计算 blake2b256(flag || pubkey)
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	return crypto_util.Blake2b256([]byte{Ed25519Flag}, pub)
}

// TxDigest 是交易签名前的摘要 blake2b256(intent || tx)
func TxDigest(txBytes []byte) [32]byte {
	return crypto_util.Blake2b256(txBytes)
}

// ObjectPrefix 对象摘要的域分隔前缀
var ObjectPrefix = []byte("Object::")

// ComputeObjectDigest 计算对象记录的摘要
func ComputeObjectDigest(record []byte) ObjectDigest {
	return crypto_util.Blake2b256(ObjectPrefix, record)
}
