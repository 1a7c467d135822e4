package crypto_util

import (
	"golang.org/x/crypto/blake2b"
)

// Blake2b256 计算 blake2b-256，Sui 的交易摘要、地址与对象摘要都基于它
func Blake2b256(data ...[]byte) [32]byte {
	h, _ := blake2b.New256(nil)
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2bMAC 带密钥的 blake2b-256，key 最长 64 字节
func Blake2bMAC(key []byte, data ...[]byte) ([]byte, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return nil, err
	}
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil), nil
}
