package bip32

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

var masterSecret = []byte("ed25519 seed")

// Ed25519Key 实现 ExtendedKey
type Ed25519Key struct {
	seed  []byte // 32 字节私钥种子
	chain []byte
}

func newKey(i []byte) *Ed25519Key {
	return &Ed25519Key{seed: i[:32], chain: i[32:]}
}

func (k *Ed25519Key) String() string {
	return hex.EncodeToString(k.chain) + ":" + hex.EncodeToString(k.seed)
}

func (k *Ed25519Key) PrivateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.seed)
}

func (k *Ed25519Key) PublicKey() ed25519.PublicKey {
	return k.PrivateKey().Public().(ed25519.PublicKey)
}

func (k *Ed25519Key) ChainCode() []byte {
	return append([]byte(nil), k.chain...)
}

// Derive I = HMAC-SHA512(chain, 0x00 || key || ser32(index))
func (k *Ed25519Key) Derive(index uint32) (ExtendedKey, error) {
	index |= HardenedKeyStart

	data := make([]byte, 0, 1+32+4)
	data = append(data, 0x00)
	data = append(data, k.seed...)
	data = binary.BigEndian.AppendUint32(data, index)

	mac := hmac.New(sha512.New, k.chain)
	mac.Write(data)
	return newKey(mac.Sum(nil)), nil
}

// Wallet 实现 HDWallet 接口
type Wallet struct {
	masterKey *Ed25519Key
}

// NewMasterKeyFromSeed 使用 BIP-39 种子生成主密钥
func NewMasterKeyFromSeed(seed []byte) (*Wallet, error) {
	if len(seed) < 16 || len(seed) > 64 {
		return nil, ErrInvalidSeed
	}

	mac := hmac.New(sha512.New, masterSecret)
	mac.Write(seed)
	return &Wallet{masterKey: newKey(mac.Sum(nil))}, nil
}

func (w *Wallet) MasterKey() ExtendedKey {
	return w.masterKey
}

func (w *Wallet) DeriveIndexes(path []uint32) (ExtendedKey, error) {
	var current ExtendedKey = w.masterKey
	for _, idx := range path {
		next, err := current.Derive(idx)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// DerivePath 解析路径并派生密钥
// 支持格式: m/44'/784'/0'/0'/0' 或 m/44h/784h/0h，ed25519 要求每一段都是 hardened
func (w *Wallet) DerivePath(path string) (ExtendedKey, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "m" {
		return w.masterKey, nil
	}
	path = strings.TrimPrefix(path, "m/")

	segments := strings.Split(path, "/")
	indexes := make([]uint32, 0, len(segments))
	for _, segment := range segments {
		if !strings.HasSuffix(segment, "'") && !strings.HasSuffix(segment, "h") {
			return nil, fmt.Errorf("%w: 段 '%s' 不是 hardened", ErrInvalidPath, segment)
		}
		segment = segment[:len(segment)-1]

		val, err := strconv.ParseUint(segment, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%w: 段 '%s': %v", ErrInvalidPath, segment, err)
		}
		indexes = append(indexes, uint32(val)|HardenedKeyStart)
	}
	return w.DeriveIndexes(indexes)
}
