package token

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"sui-signer/internal/sui"
	"sui-signer/pkg/cache"
	"sui-signer/pkg/errno"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deep = TUID{
	Package: sui.MustParseAddress("0xdeeb7a4662eec9f2f3def03fb937a663dddaa2e215b8078a284d026b7946c270"),
	Module:  "deep",
	Struct:  "DEEP",
}

func newKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv
}

func TestParseDescriptor(t *testing.T) {
	priv := newKey(t)
	param := Build("DEEP", 6, deep, priv)

	d, err := ParseParam(param)
	require.NoError(t, err)
	assert.Equal(t, "DEEP", d.Ticker)
	assert.Equal(t, uint8(6), d.Magnitude)
	assert.Equal(t, uint8(1), d.Version)
	assert.Equal(t, deep, d.TUID)
	assert.NoError(t, d.Verify(priv.PubKey()))

	assert.ErrorIs(t, d.Verify(newKey(t).PubKey()), ErrSignatureMismatch)
	assert.ErrorIs(t, d.Verify(nil), ErrNotConfigured)

	// 长度前缀之后的多余字节被忽略
	_, err = ParseParam(append(param, 0xff, 0xff))
	assert.NoError(t, err)
}

// body 去掉长度前缀，返回可修改的 TLV
func body(param []byte) []byte {
	return append([]byte(nil), param[2:]...)
}

func withLength(b []byte) []byte {
	return append(binary.LittleEndian.AppendUint16(nil, uint16(len(b))), b...)
}

func TestParseRejects(t *testing.T) {
	priv := newKey(t)
	good := body(Build("DEEP", 6, deep, priv))

	unsigned := func(fields ...[]byte) []byte {
		var b []byte
		for _, f := range fields {
			b = append(b, f...)
		}
		return appendField(b, TagSignature, []byte{0x30, 0x00})
	}
	f := func(tag byte, v []byte) []byte { return appendField(nil, tag, v) }
	u := func(tag byte, v uint64) []byte { return appendUint(nil, tag, v) }
	tuid := f(TagTUID, append(append(
		f(TagPackageAddress, []byte(deep.Package.String())),
		f(TagModule, []byte("deep"))...),
		f(TagStruct, []byte("DEEP"))...))
	common := [][]byte{u(TagStructureType, 0x90), u(TagVersion, 1), u(TagCoinType, CoinTypeSui), f(TagApp, []byte("Sui"))}
	build := func(extra ...[]byte) []byte { return unsigned(append(append([][]byte{}, common...), extra...)...) }

	tests := []struct {
		name string
		tlv  []byte
		want error
	}{
		{"截断", good[:len(good)-3], ErrUnexpectedEOF},
		{"长度字段过长", []byte{TagTicker, 0x83, 1, 2, 3}, ErrLengthOverflow},
		{"结构类型错误", unsigned(u(TagStructureType, 0x91)), ErrWrongStructureType},
		{"重复 tag", build(u(TagVersion, 2)), ErrDuplicateTag},
		{"缺少 ticker", build(u(TagMagnitude, 6), tuid), ErrMissingMandatoryTag},
		{"ticker 过长", build(f(TagTicker, []byte("LONGTICKER")), u(TagMagnitude, 6), tuid), ErrInvalidValue},
		{"小数位过大", build(f(TagTicker, []byte("X")), u(TagMagnitude, 77), tuid), ErrInvalidValue},
		{"错误的应用名", unsigned(u(TagStructureType, 0x90), f(TagApp, []byte("Eth"))), ErrInvalidValue},
		{"签名不是最后一个字段", append(append([]byte{}, good...), f(0x09, []byte{1})...), ErrInvalidValue},
		{"包地址不是十六进制", build(f(TagTicker, []byte("X")), u(TagMagnitude, 6),
			f(TagTUID, append(append(f(TagPackageAddress, []byte("0xzz")), f(TagModule, []byte("m"))...), f(TagStruct, []byte("S"))...))), ErrLengthOverflow},
		{"包地址过短", build(f(TagTicker, []byte("X")), u(TagMagnitude, 6),
			f(TagTUID, append(append(f(TagPackageAddress, []byte("0x02")), f(TagModule, []byte("m"))...), f(TagStruct, []byte("S"))...))), ErrUnexpectedEOF},
		{"TUID 缺少结构名", build(f(TagTicker, []byte("X")), u(TagMagnitude, 6),
			f(TagTUID, append(f(TagPackageAddress, []byte(deep.Package.String())), f(TagModule, []byte("m"))...))), ErrMissingMandatoryTag},
		{"非法模块名", build(f(TagTicker, []byte("X")), u(TagMagnitude, 6),
			f(TagTUID, append(append(f(TagPackageAddress, []byte(deep.Package.String())), f(TagModule, []byte("1m"))...), f(TagStruct, []byte("S"))...))), ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParam(withLength(tt.tlv))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := ParseParam([]byte{10, 0, 1})
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestErrorStatusWords(t *testing.T) {
	code, _ := errno.Decode(ErrSignatureMismatch)
	assert.Equal(t, 0x7007, code)
	code, _ = errno.Decode(ErrUnexpectedEOF)
	assert.Equal(t, 0x7001, code)
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	priv := newKey(t)
	reg := NewRegistry(cache.NewMemoryCache(time.Minute, time.Minute), priv.PubKey(), 50*time.Millisecond)

	_, ok := reg.Lookup(deep.CoinType())
	assert.False(t, ok)

	_, err := reg.Provide(ctx, Build("DEEP", 6, deep, newKey(t)))
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	_, err = reg.Provide(ctx, Build("DEEP", 6, deep, priv))
	require.NoError(t, err)
	info, ok := reg.Lookup(deep.CoinType())
	require.True(t, ok)
	assert.Equal(t, sui.TokenInfo{Ticker: "DEEP", Decimals: 6}, info)

	title, value := sui.DisplayAmount(1_500_000, deep.CoinType(), reg)
	assert.Equal(t, "Amount", title)
	assert.Equal(t, "DEEP 1.5", value)

	time.Sleep(80 * time.Millisecond)
	_, ok = reg.Lookup(deep.CoinType())
	assert.False(t, ok, "描述符过期")

	_, err = reg.Provide(ctx, Build("DEEP", 6, deep, priv))
	require.NoError(t, err)
	require.NoError(t, reg.Forget(ctx, deep.CoinType()))
	_, ok = reg.Lookup(deep.CoinType())
	assert.False(t, ok)

	// 未配置可信公钥
	_, err = NewRegistry(nil, nil, 0).Provide(ctx, Build("DEEP", 6, deep, priv))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("期望 ErrNotConfigured, 得到 %v", err)
	}
}
