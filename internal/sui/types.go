// Package sui 定义签名设备用到的 Sui 领域类型和常量
package sui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	AddressLength = 32
	// DigestLength 为对象摘要长度 (BCS 编码时前面多一个 0x20 长度字节)
	DigestLength = 32

	// SuiDecimals SUI 的小数位数 (1 SUI = 10^9 MIST)
	SuiDecimals = 9

	// 显示时模块名/类型名截断长度
	CoinStringLength = 16
)

var ErrInvalidAddress = errors.New("无效的 Sui 地址")

// Address 是 32 字节的 Sui 地址 / 对象 ID
type Address [AddressLength]byte

func (a Address) String() string {
	return hexutil.Encode(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// ParseAddress 解析 0x 前缀 (可省略) 的十六进制地址，支持 0x2 这样的短格式
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" || len(s) > AddressLength*2 {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	s = strings.Repeat("0", AddressLength*2-len(s)) + s
	b, err := hexutil.Decode("0x" + s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress 用于常量初始化
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ObjectDigest 是对象内容摘要 blake2b256("Object::" || bcs(object))
type ObjectDigest [DigestLength]byte

func (d ObjectDigest) String() string {
	return hexutil.Encode(d[:])
}

// ObjectRef 引用一个具体版本的对象
type ObjectRef struct {
	ID      Address
	Version uint64
	Digest  ObjectDigest
}

// CoinType 是 Coin<T> 的类型参数 T = package::module::name
type CoinType struct {
	Package Address
	Module  string
	Name    string
}

func (c CoinType) String() string {
	return fmt.Sprintf("%s::%s::%s", c.Package, c.Module, c.Name)
}

// ParseCoinType 解析 0x2::sui::SUI 形式的类型
func ParseCoinType(s string) (CoinType, error) {
	parts := strings.Split(strings.TrimSpace(s), "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return CoinType{}, fmt.Errorf("%w: 无效的代币类型 %q", ErrMalformed, s)
	}
	pkg, err := ParseAddress(parts[0])
	if err != nil {
		return CoinType{}, err
	}
	return CoinType{Package: pkg, Module: parts[1], Name: parts[2]}, nil
}

// ObjectData 是从对象记录里解析出的显示信息
type ObjectData struct {
	Type   CoinType
	Amount uint64
	Staked bool
}

var (
	// SystemPackage 0x3
	SystemPackage = MustParseAddress("0x3")
	// SystemStateObject 共享对象 0x5
	SystemStateObject = MustParseAddress("0x5")

	// SuiCoinType 0x2::sui::SUI
	SuiCoinType = CoinType{
		Package: MustParseAddress("0x2"),
		Module:  "sui",
		Name:    "SUI",
	}
)
