package bip39

import (
	"errors"
	"fmt"
	"strings"

	"sui-signer/pkg/safe_random"

	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidMnemonic = errors.New("无效的助记词")

// MnemonicService 提供助记词相关的功能
type MnemonicService struct{}

func NewMnemonicService() *MnemonicService {
	return &MnemonicService{}
}

// GenerateMnemonic 生成随机助记词，bitSize 为 128 (12 词) 到 256 (24 词)
func (s *MnemonicService) GenerateMnemonic(bitSize int) (string, error) {
	if bitSize < 128 || bitSize > 256 || bitSize%32 != 0 {
		return "", fmt.Errorf("熵长度 %d 不合法", bitSize)
	}
	entropy, err := safe_random.GenerateRandomBytes(bitSize / 8)
	if err != nil {
		return "", fmt.Errorf("生成熵失败: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("生成助记词失败: %w", err)
	}
	return mnemonic, nil
}

func (s *MnemonicService) ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(normalize(mnemonic))
}

// MnemonicToSeed 校验助记词并转换为 64 字节种子，passphrase 可为空
func (s *MnemonicService) MnemonicToSeed(mnemonic, passphrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(normalize(mnemonic), passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return seed, nil
}

func normalize(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}
