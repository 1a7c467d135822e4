package kms

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"sui-signer/pkg/bip32"
	"sui-signer/pkg/bip39"
	"sui-signer/pkg/crypto_util"
)

// LocalKMS 是 KeyManager 的内存实现，由助记词种子派生密钥，模拟设备的安全元件
type LocalKMS struct {
	mu     sync.RWMutex
	wallet *bip32.Wallet
	keys   map[string]ed25519.PrivateKey
}

// NewLocalKMS 由 BIP-39 种子创建
func NewLocalKMS(seed []byte) (*LocalKMS, error) {
	wallet, err := bip32.NewMasterKeyFromSeed(seed)
	if err != nil {
		return nil, err
	}
	return &LocalKMS{wallet: wallet, keys: make(map[string]ed25519.PrivateKey)}, nil
}

// NewFromMnemonic 由助记词创建
func NewFromMnemonic(mnemonic, passphrase string) (*LocalKMS, error) {
	seed, err := bip39.NewMnemonicService().MnemonicToSeed(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	return NewLocalKMS(seed)
}

func (k *LocalKMS) key(path []uint32) (ed25519.PrivateKey, error) {
	id := fmt.Sprint(path)

	k.mu.RLock()
	wallet := k.wallet
	priv, ok := k.keys[id]
	k.mu.RUnlock()
	if wallet == nil {
		return nil, ErrLocked
	}
	if ok {
		return priv, nil
	}

	ext, err := wallet.DeriveIndexes(path)
	if err != nil {
		return nil, fmt.Errorf("派生密钥失败: %w", err)
	}
	priv = ext.PrivateKey()

	k.mu.Lock()
	k.keys[id] = priv
	k.mu.Unlock()
	return priv, nil
}

func (k *LocalKMS) PublicKey(path []uint32) (ed25519.PublicKey, error) {
	priv, err := k.key(path)
	if err != nil {
		return nil, err
	}
	return priv.Public().(ed25519.PublicKey), nil
}

func (k *LocalKMS) Sign(path []uint32, message []byte) ([]byte, error) {
	priv, err := k.key(path)
	if err != nil {
		return nil, err
	}
	return crypto_util.Ed25519Sign(priv, message), nil
}

func (k *LocalKMS) Verify(path []uint32, message, signature []byte) error {
	pub, err := k.PublicKey(path)
	if err != nil {
		return err
	}
	if !crypto_util.Ed25519Verify(pub, message, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// Lock 清除内存中的种子与已派生的私钥
func (k *LocalKMS) Lock() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for id, priv := range k.keys {
		clear(priv)
		delete(k.keys, id)
	}
	k.wallet = nil
}
