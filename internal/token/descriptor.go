// Package token 解析和校验可信代币描述符 (Trusted Dynamic Descriptor)。
//
// 描述符参数为 u16 LE 长度 || TLV，最后一个字段是对前面所有字节的 secp256k1 签名。
// 校验通过后，匹配 CoinType 的交易摘要会显示描述符中的代币符号和小数位数。
package token

import (
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"sui-signer/internal/sui"
	"sui-signer/pkg/crypto_util"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	TagStructureType byte = 0x01
	TagVersion       byte = 0x02
	TagCoinType      byte = 0x03
	TagApp           byte = 0x04
	TagTicker        byte = 0x05
	TagMagnitude     byte = 0x06
	TagTUID          byte = 0x07
	TagSignature     byte = 0x08

	TagPackageAddress byte = 0x10
	TagModule         byte = 0x11
	TagStruct         byte = 0x12
)

const (
	StructureTypeDynamicToken = 0x90
	// SLIP-44 hardened 784
	CoinTypeSui = 0x80000310
	AppName     = "Sui"

	MaxTickerLength = 8
	MaxMagnitude    = 38
)

// TUID 标识代币的 Move 类型
type TUID struct {
	Package sui.Address
	Module  string
	Struct  string
}

// CoinType 对应的 Coin<T> 类型参数
func (t TUID) CoinType() sui.CoinType {
	return sui.CoinType{Package: t.Package, Module: t.Module, Name: t.Struct}
}

// Descriptor 已解析的描述符
type Descriptor struct {
	Version   uint8
	Ticker    string
	Magnitude uint8
	TUID      TUID
	Signature []byte

	// signed 是签名覆盖的字节
	signed []byte
}

// ParseParam 解析 u16 LE 长度 || TLV 形式的参数，长度之后的多余字节被忽略
func ParseParam(param []byte) (*Descriptor, error) {
	if len(param) < 2 {
		return nil, ErrUnexpectedEOF
	}
	n := int(binary.LittleEndian.Uint16(param))
	if len(param)-2 < n {
		return nil, ErrUnexpectedEOF
	}
	return Parse(param[2 : 2+n])
}

// Parse 解析描述符 TLV，不校验签名
func Parse(b []byte) (*Descriptor, error) {
	fields, err := readFields(b)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{}
	seen := map[byte]bool{}
	for _, f := range fields {
		if seen[f.tag] {
			return nil, ErrDuplicateTag
		}
		seen[f.tag] = true

		switch f.tag {
		case TagStructureType:
			v, err := readUint(f.value, 1)
			if err != nil {
				return nil, err
			}
			if v != StructureTypeDynamicToken {
				return nil, ErrWrongStructureType
			}
		case TagVersion:
			v, err := readUint(f.value, 1)
			if err != nil {
				return nil, err
			}
			d.Version = uint8(v)
		case TagCoinType:
			v, err := readUint(f.value, 4)
			if err != nil {
				return nil, err
			}
			if v != CoinTypeSui {
				return nil, ErrInvalidValue
			}
		case TagApp:
			if string(f.value) != AppName {
				return nil, ErrInvalidValue
			}
		case TagTicker:
			if len(f.value) == 0 || len(f.value) > MaxTickerLength || !printable(f.value) {
				return nil, ErrInvalidValue
			}
			d.Ticker = string(f.value)
		case TagMagnitude:
			v, err := readUint(f.value, 1)
			if err != nil {
				return nil, err
			}
			if v > MaxMagnitude {
				return nil, ErrInvalidValue
			}
			d.Magnitude = uint8(v)
		case TagTUID:
			if d.TUID, err = parseTUID(f.value); err != nil {
				return nil, err
			}
		case TagSignature:
			if f.end != len(b) {
				// 签名必须是最后一个字段
				return nil, ErrInvalidValue
			}
			d.Signature = append([]byte(nil), f.value...)
			d.signed = append([]byte(nil), b[:f.start]...)
		}
		// 其他 tag 忽略，但仍计入签名覆盖范围
	}

	for _, tag := range []byte{TagStructureType, TagVersion, TagCoinType, TagApp, TagTicker, TagMagnitude, TagTUID, TagSignature} {
		if !seen[tag] {
			return nil, ErrMissingMandatoryTag
		}
	}
	return d, nil
}

func parseTUID(b []byte) (TUID, error) {
	var t TUID
	fields, err := readFields(b)
	if err != nil {
		return t, err
	}
	seen := map[byte]bool{}
	for _, f := range fields {
		if seen[f.tag] {
			return t, ErrDuplicateTag
		}
		seen[f.tag] = true

		switch f.tag {
		case TagPackageAddress:
			s := string(f.value)
			if !strings.HasPrefix(s, "0x") {
				s = "0x" + s
			}
			raw, err := hexutil.Decode(s)
			if err != nil {
				return t, ErrLengthOverflow
			}
			if len(raw) != sui.AddressLength {
				return t, ErrUnexpectedEOF
			}
			copy(t.Package[:], raw)
		case TagModule:
			if !validIdent(f.value) {
				return t, ErrInvalidValue
			}
			t.Module = string(f.value)
		case TagStruct:
			if !validIdent(f.value) {
				return t, ErrInvalidValue
			}
			t.Struct = string(f.value)
		}
	}
	if !seen[TagPackageAddress] || !seen[TagModule] || !seen[TagStruct] {
		return t, ErrMissingMandatoryTag
	}
	return t, nil
}

// validIdent Move 标识符，长度不超过显示上限
func validIdent(b []byte) bool {
	if len(b) == 0 || len(b) > sui.CoinStringLength {
		return false
	}
	for i, c := range b {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// Verify 用可信公钥校验签名 (DER ECDSA over sha256)
func (d *Descriptor) Verify(pub *btcec.PublicKey) error {
	if pub == nil {
		return ErrNotConfigured
	}
	if !crypto_util.Secp256k1Verify(pub, d.signed, d.Signature) {
		return ErrSignatureMismatch
	}
	return nil
}

// Info 显示用的代币信息
func (d *Descriptor) Info() sui.TokenInfo {
	return sui.TokenInfo{Ticker: d.Ticker, Decimals: d.Magnitude}
}

// Build 主机端生成带签名的描述符参数 (u16 LE 长度 || TLV)
func Build(ticker string, magnitude uint8, tuid TUID, priv *btcec.PrivateKey) []byte {
	var inner []byte
	inner = appendField(inner, TagPackageAddress, []byte(tuid.Package.String()))
	inner = appendField(inner, TagModule, []byte(tuid.Module))
	inner = appendField(inner, TagStruct, []byte(tuid.Struct))

	var b []byte
	b = appendUint(b, TagStructureType, StructureTypeDynamicToken)
	b = appendUint(b, TagVersion, 1)
	b = appendUint(b, TagCoinType, CoinTypeSui)
	b = appendField(b, TagApp, []byte(AppName))
	b = appendField(b, TagTicker, []byte(ticker))
	b = appendUint(b, TagMagnitude, uint64(magnitude))
	b = appendField(b, TagTUID, inner)
	b = appendField(b, TagSignature, crypto_util.Secp256k1Sign(priv, b))

	return append(binary.LittleEndian.AppendUint16(nil, uint16(len(b))), b...)
}
