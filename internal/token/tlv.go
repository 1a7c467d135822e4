package token

import (
	"math/big"

	"sui-signer/pkg/errno"
)

// 描述符错误，状态字 0x7000+n
var (
	ErrUnexpectedEOF       = errno.TLV(1, "tlv: unexpected end of data")
	ErrLengthOverflow      = errno.TLV(2, "tlv: length overflow")
	ErrDuplicateTag        = errno.TLV(3, "tlv: duplicate unique tag")
	ErrMissingMandatoryTag = errno.TLV(4, "tlv: missing mandatory tag")
	ErrWrongStructureType  = errno.TLV(5, "tlv: wrong structure type")
	ErrInvalidValue        = errno.TLV(6, "tlv: invalid value")
	ErrSignatureMismatch   = errno.TLV(7, "tlv: signature verification failed")
	ErrNotConfigured       = errno.TLV(8, "tlv: no trusted key configured")
)

// maxLength 描述符单个字段长度上限
const maxLength = 1024

type field struct {
	tag   byte
	value []byte
	// start/end 为该字段在输入中的起止偏移
	start, end int
}

// readFields 解析 DER 风格的 TLV 序列: 单字节 tag，长度为 DER 编码
func readFields(b []byte) ([]field, error) {
	var out []field
	off := 0
	for off < len(b) {
		start := off
		tag := b[off]
		off++
		if tag >= 0x80 || tag == 0 {
			return nil, ErrInvalidValue
		}
		n, size, err := readLength(b[off:])
		if err != nil {
			return nil, err
		}
		off += size
		if n > len(b)-off {
			return nil, ErrUnexpectedEOF
		}
		out = append(out, field{tag: tag, value: b[off : off+n], start: start, end: off + n})
		off += n
	}
	return out, nil
}

func readLength(b []byte) (n, size int, err error) {
	if len(b) == 0 {
		return 0, 0, ErrUnexpectedEOF
	}
	if b[0] < 0x80 {
		return int(b[0]), 1, nil
	}
	k := int(b[0] & 0x7f)
	if k == 0 || k > 2 {
		return 0, 0, ErrLengthOverflow
	}
	if len(b) < 1+k {
		return 0, 0, ErrUnexpectedEOF
	}
	for _, c := range b[1 : 1+k] {
		n = n<<8 | int(c)
	}
	if n > maxLength {
		return 0, 0, ErrLengthOverflow
	}
	return n, 1 + k, nil
}

func appendLength(b []byte, n int) []byte {
	switch {
	case n < 0x80:
		return append(b, byte(n))
	case n <= 0xff:
		return append(b, 0x81, byte(n))
	}
	return append(b, 0x82, byte(n>>8), byte(n))
}

func appendField(b []byte, tag byte, value []byte) []byte {
	b = append(b, tag)
	b = appendLength(b, len(value))
	return append(b, value...)
}

// appendUint 整数按最短大端序编码
func appendUint(b []byte, tag byte, v uint64) []byte {
	enc := new(big.Int).SetUint64(v).Bytes()
	if len(enc) == 0 {
		enc = []byte{0}
	}
	return appendField(b, tag, enc)
}

func readUint(v []byte, limit int) (uint64, error) {
	if len(v) == 0 || len(v) > limit {
		return 0, ErrInvalidValue
	}
	var n uint64
	for _, c := range v {
		n = n<<8 | uint64(c)
	}
	return n, nil
}
