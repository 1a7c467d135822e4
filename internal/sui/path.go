package sui

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	HardenedOffset uint32 = 0x80000000

	// CoinTypeSui SLIP-44 币种编号
	CoinTypeSui uint32 = 784

	MaxPathLength = 10
)

var ErrInvalidPath = errors.New("无效的派生路径")

// Path 是 BIP-32 风格的派生路径，每一段都带 hardened 位
type Path []uint32

// ParsePath 解析 m/44'/784'/0'/0'/0' 格式的路径
func ParsePath(s string) (Path, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "m/")
	if s == "" {
		return nil, ErrInvalidPath
	}
	segments := strings.Split(s, "/")
	p := make(Path, 0, len(segments))
	for _, seg := range segments {
		hardened := false
		if strings.HasSuffix(seg, "'") || strings.HasSuffix(seg, "h") {
			hardened = true
			seg = seg[:len(seg)-1]
		}
		v, err := strconv.ParseUint(seg, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%w: 路径段 %q: %v", ErrInvalidPath, seg, err)
		}
		idx := uint32(v)
		if hardened {
			idx |= HardenedOffset
		}
		p = append(p, idx)
	}
	return p, p.Validate()
}

// Validate 要求以 44'/784' 开头且所有段均为 hardened
func (p Path) Validate() error {
	if len(p) < 2 || len(p) > MaxPathLength {
		return fmt.Errorf("%w: 长度 %d", ErrInvalidPath, len(p))
	}
	if p[0] != 44|HardenedOffset || p[1] != CoinTypeSui|HardenedOffset {
		return fmt.Errorf("%w: 必须以 44'/784' 开头", ErrInvalidPath)
	}
	for i, c := range p {
		if c&HardenedOffset == 0 {
			return fmt.Errorf("%w: 第 %d 段不是 hardened", ErrInvalidPath, i)
		}
	}
	return nil
}

// Encode 编码为 count(u8) || count * u32 LE
func (p Path) Encode() []byte {
	b := make([]byte, 1, 1+4*len(p))
	b[0] = byte(len(p))
	for _, c := range p {
		b = binary.LittleEndian.AppendUint32(b, c)
	}
	return b
}

func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, c := range p {
		sb.WriteString("/")
		sb.WriteString(strconv.FormatUint(uint64(c&^HardenedOffset), 10))
		if c&HardenedOffset != 0 {
			sb.WriteString("'")
		}
	}
	return sb.String()
}

// DecodePath 解析完整的路径参数
func DecodePath(b []byte) (Path, error) {
	if len(b) == 0 {
		return nil, ErrInvalidPath
	}
	n := int(b[0])
	if len(b) != 1+4*n {
		return nil, fmt.Errorf("%w: 长度不匹配", ErrInvalidPath)
	}
	p := make(Path, n)
	for i := range p {
		p[i] = binary.LittleEndian.Uint32(b[1+4*i:])
	}
	return p, p.Validate()
}
