package device

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"testing"
	"time"

	"sui-signer/internal/resolver"
	"sui-signer/internal/sui"
	"sui-signer/internal/token"
	"sui-signer/internal/transport"
	"sui-signer/pkg/cache"
	"sui-signer/pkg/errno"
	"sui-signer/pkg/kms"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

const (
	mnemonic = "glory promote mansion idle axis finger extra february uncover one trip resource lawn turtle enact monster seven myth punch hobby comfort wild raise skin"

	accountPub  = "6eea79cdaaa4e01eec6449f0c0efcc128bb43bfcd56f9eaeed81075122c3665a"
	accountAddr = "0x6fb21feead027da4873295affd6c4f3618fe176fa2fbf3e7b5ef1d9463b31e21"

	transferGasTx  = "00000000000100201d3f2643305760226e518c9b5a96165383808dd977971f73dea971543b0be488010101000100006fb21feead027da4873295affd6c4f3618fe176fa2fbf3e7b5ef1d9463b31e2101400dbdcfeda8e1e64ebbf5710ccf5a67bfa6e7f945c92bc8611e0cb44b7219ded3764211000000002066c5ab65498a9d3716001a034815ff4abca765f7f6f2375cc91d2addb79c208a6fb21feead027da4873295affd6c4f3618fe176fa2fbf3e7b5ef1d9463b31e21e803000000000000e0972d000000000000"
	transferGasObj = "000101d37642110000000028400dbdcfeda8e1e64ebbf5710ccf5a67bfa6e7f945c92bc8611e0cb44b7219de100e943900000000006fb21feead027da4873295affd6c4f3618fe176fa2fbf3e7b5ef1d9463b31e212074fe3dd473a96335b6f5b5b5a0be3e4f033ecc0a020ee9ef75894f5ab0b33dc760130f0000000000"
)

var accountPath = sui.Path{44 | sui.HardenedOffset, 784 | sui.HardenedOffset, sui.HardenedOffset, sui.HardenedOffset, sui.HardenedOffset}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

type fixture struct {
	r        *RunCtx
	approver *AutoApprover
	settings *StaticSettings
	signer   *kms.LocalKMS
}

func newFixture(t *testing.T, tokens DescriptorRegistry) *fixture {
	t.Helper()
	signer, err := kms.NewFromMnemonic(mnemonic, "")
	require.NoError(t, err)
	f := &fixture{approver: &AutoApprover{Approve: true}, settings: &StaticSettings{}, signer: signer}
	f.r = New(Config{Version: Version{1, 2, 3}, Tokens: tokens}, signer, f.approver, f.settings)
	return f
}

func (f *fixture) run(ins Ins, params ...[]byte) ([]byte, error) {
	return transport.NewHost(Exchanger(Local(f.r), ins), nil).Run(context.Background(), params...)
}

// signParams 组装 Sign 的参数: u32 LE 长度 || 交易、路径、对象流
func signParams(tx []byte, path sui.Path, records ...[]byte) [][]byte {
	payload := binary.LittleEndian.AppendUint32(nil, uint32(len(tx)))
	params := [][]byte{append(payload, tx...), path.Encode()}
	if records != nil {
		params = append(params, resolver.EncodeObjects(records))
	}
	return params
}

func TestGetVersion(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.run(InsGetVersion)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{1, 2, 3}, "sui"...), res)

	res, err = f.run(InsGetVersionStr)
	require.NoError(t, err)
	assert.Equal(t, "sui 1.2.3", string(res))
}

func TestGetPubkey(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.run(InsGetPubkey, accountPath.Encode())
	require.NoError(t, err)
	require.Len(t, res, 1+32+1+32)
	assert.Equal(t, byte(32), res[0])
	assert.Equal(t, accountPub, hex.EncodeToString(res[1:33]))
	assert.Equal(t, byte(32), res[33])
	assert.Equal(t, sui.MustParseAddress(accountAddr), sui.Address(res[34:]))
	assert.Empty(t, f.approver.Addresses(), "GetPubkey 不需要确认")

	tests := []struct {
		name string
		path []byte
	}{
		{"空路径", []byte{0}},
		{"非 hardened", sui.Path{44 | sui.HardenedOffset, 784 | sui.HardenedOffset, 0}.Encode()},
		{"错误的币种", sui.Path{44 | sui.HardenedOffset, 60 | sui.HardenedOffset}.Encode()},
		{"长度不匹配", append(accountPath.Encode(), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.run(InsGetPubkey, tt.path)
			assert.ErrorIs(t, err, errno.WrongP1P2)
		})
	}
}

func TestVerifyAddress(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.run(InsVerifyAddress, accountPath.Encode())
	require.NoError(t, err)
	assert.Equal(t, accountPub, hex.EncodeToString(res[1:33]))
	require.Len(t, f.approver.Addresses(), 1)
	assert.Equal(t, accountAddr, f.approver.Addresses()[0].String())

	f.approver.Approve = false
	_, err = f.run(InsVerifyAddress, accountPath.Encode())
	assert.ErrorIs(t, err, errno.SwDeny)
}

func TestSignKnownTransfer(t *testing.T) {
	f := newFixture(t, nil)
	tx := mustHex(t, transferGasTx)

	sig, err := f.run(InsSign, signParams(tx, accountPath, mustHex(t, transferGasObj))...)
	require.NoError(t, err)
	require.Len(t, sig, ed25519.SignatureSize)

	digest := blake2b.Sum256(tx)
	pub := ed25519.PublicKey(mustHex(t, accountPub))
	assert.True(t, ed25519.Verify(pub, digest[:], sig), "签名应覆盖交易的 blake2b256 摘要")

	summary, ok := f.approver.LastSummary()
	require.True(t, ok)
	want := map[string]string{
		"From":    accountAddr,
		"To":      "0x1d3f2643305760226e518c9b5a96165383808dd977971f73dea971543b0be488",
		"Amount":  "SUI 0.96600424",
		"Max Gas": "SUI 0.002988",
	}
	for title, value := range want {
		got, ok := summary.Get(title)
		assert.True(t, ok, "缺少字段 %s", title)
		assert.Equal(t, value, got, title)
	}
	_, blind := f.approver.LastBlindSign()
	assert.False(t, blind)

	f.approver.Approve = false
	_, err = f.run(InsSign, signParams(tx, accountPath, mustHex(t, transferGasObj))...)
	assert.ErrorIs(t, err, errno.SwDeny)
}

// 缺少 gas 对象时交易无法识别，只能盲签
func TestSignBlind(t *testing.T) {
	f := newFixture(t, nil)
	tx := mustHex(t, transferGasTx)

	_, err := f.run(InsSign, signParams(tx, accountPath)...)
	assert.ErrorIs(t, err, errno.BlindSignDisabled)

	f.settings.BlindSigning = true
	sig, err := f.run(InsSign, signParams(tx, accountPath)...)
	require.NoError(t, err)

	digest := blake2b.Sum256(tx)
	assert.True(t, ed25519.Verify(mustHex(t, accountPub), digest[:], sig))
	shown, ok := f.approver.LastBlindSign()
	require.True(t, ok)
	assert.Equal(t, base58.Encode(digest[:]), shown)
	_, ok = f.approver.LastSummary()
	assert.False(t, ok)
}

func TestSignWritesConfirmation(t *testing.T) {
	f := newFixture(t, nil)
	tx := mustHex(t, transferGasTx)

	host := transport.NewHost(Exchanger(Local(f.r), InsSign), nil)
	_, err := host.Run(context.Background(), signParams(tx, accountPath, mustHex(t, transferGasObj))...)
	require.NoError(t, err)
	summary, ok := f.approver.LastSummary()
	require.True(t, ok)
	written, err := host.Written()
	require.NoError(t, err)
	assert.Equal(t, summary.String(), string(written))

	// 盲签写回显示过的摘要
	f.settings.BlindSigning = true
	_, err = host.Run(context.Background(), signParams(tx, accountPath)...)
	require.NoError(t, err)
	shown, ok := f.approver.LastBlindSign()
	require.True(t, ok)
	written, err = host.Written()
	require.NoError(t, err)
	assert.Contains(t, string(written), shown)

	// 被拒绝的签名不写回任何内容
	f.approver.Approve = false
	_, err = host.Run(context.Background(), signParams(tx, accountPath, mustHex(t, transferGasObj))...)
	assert.ErrorIs(t, err, errno.SwDeny)
	written, err = host.Written()
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestSignRejects(t *testing.T) {
	f := newFixture(t, nil)
	f.settings.BlindSigning = true
	tx := mustHex(t, transferGasTx)
	obj := mustHex(t, transferGasObj)

	tests := []struct {
		name   string
		params [][]byte
		want   errno.Errno
	}{
		{"缺少路径参数", signParams(tx, accountPath)[:1], errno.WrongApduLength},
		{"无效路径", signParams(tx, sui.Path{44 | sui.HardenedOffset})[:2], errno.WrongP1P2},
		{"缺少长度", [][]byte{{1, 0}, accountPath.Encode()}, errno.TxParsingFail},
		{"交易短于声明长度", [][]byte{append(binary.LittleEndian.AppendUint32(nil, uint32(len(tx)+1)), tx...), accountPath.Encode()}, errno.TxParsingFail},
		{"交易之后有多余字节", signParams(append(append([]byte{}, tx...), 0), accountPath, obj), errno.TxParsingFail},
		{"截断的交易", signParams(tx[:len(tx)-8], accountPath, obj), errno.TxParsingFail},
		{"错误的 intent", signParams(append([]byte{1}, tx[1:]...), accountPath, obj), errno.TxParsingFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.run(InsSign, tt.params...)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// 错误之后设备可以继续处理新的指令
	_, err := f.run(InsSign, signParams(tx, accountPath, obj)...)
	assert.NoError(t, err)
}

func TestSignCorruptDiscriminant(t *testing.T) {
	f := newFixture(t, nil)
	f.settings.BlindSigning = true
	tx := mustHex(t, transferGasTx)

	// intent(3) kind(2) 输入数(1) Pure 地址(1+1+32) 命令数(1) 之后是命令 tag
	const commandTag = 41
	require.Equal(t, byte(1), tx[commandTag], "TransferObjects")
	bad := append([]byte{}, tx...)
	bad[commandTag] = 0x7f

	_, err := f.run(InsSign, signParams(bad, accountPath, mustHex(t, transferGasObj))...)
	assert.ErrorIs(t, err, errno.TxParsingFail)

	_, ok := f.approver.LastBlindSign()
	assert.False(t, ok, "损坏的交易不能进入盲签")
	_, ok = f.approver.LastSummary()
	assert.False(t, ok)
}

func TestTamperedChunk(t *testing.T) {
	f := newFixture(t, nil)
	tx := mustHex(t, transferGasTx)

	inner := Exchanger(Local(f.r), InsSign)
	tampered := 0
	ex := transport.ExchangeFunc(func(ctx context.Context, data []byte) ([]byte, error) {
		if data[0] == transport.CmdGetChunkSuccess && tampered == 0 {
			tampered++
			data = append([]byte{}, data...)
			data[len(data)-1] ^= 1
		}
		return inner.Exchange(ctx, data)
	})
	_, err := transport.NewHost(ex, nil).Run(context.Background(), signParams(tx, accountPath)...)
	assert.ErrorIs(t, err, errno.IntegrityViolation)
	assert.Equal(t, 1, tampered)
}

func TestAPDUValidation(t *testing.T) {
	f := newFixture(t, nil)
	start := append([]byte{transport.CmdStart}, make([]byte, transport.HashLength)...)

	tests := []struct {
		name string
		apdu []byte
		want errno.Errno
	}{
		{"过短", []byte{0, 0, 0}, errno.WrongApduLength},
		{"错误的 CLA", append([]byte{0xe0, 0, 0, 0, byte(len(start))}, start...), errno.ClaNotSupported},
		{"未知指令", append([]byte{0, 0x10, 0, 0, byte(len(start))}, start...), errno.InsNotSupported},
		{"P1 非零", append([]byte{0, 0, 1, 0, byte(len(start))}, start...), errno.WrongP1P2},
		{"没有数据", []byte{0, 0, 0, 0, 0}, errno.NothingReceived},
		{"Lc 不匹配", append([]byte{0, 0, 0, 0, byte(len(start) + 1)}, start...), errno.WrongApduLength},
		{"Idle 状态收到块", []byte{0, 3, 0, 0, 1, transport.CmdGetChunkSuccess}, errno.BadState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitResponse(f.r.HandleAPDU(tt.apdu))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInterleavedInstructionResets(t *testing.T) {
	f := newFixture(t, nil)
	tx := mustHex(t, transferGasTx)

	// 开始签名后收到 GetVersion 的块应答，拒绝并丢弃会话
	resp, err := SplitResponse(f.r.HandleAPDU(mustAPDU(t, InsSign, startFrame(t, signParams(tx, accountPath)...))))
	require.NoError(t, err)
	require.Equal(t, transport.FrameGetChunk, resp[0])

	_, err = SplitResponse(f.r.HandleAPDU(mustAPDU(t, InsGetVersion, []byte{transport.CmdGetChunkFailure})))
	assert.ErrorIs(t, err, errno.BadState)

	res, err := f.run(InsGetVersion)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{1, 2, 3}, "sui"...), res)
}

func mustAPDU(t *testing.T, ins Ins, data []byte) []byte {
	t.Helper()
	apdu, err := EncodeAPDU(ins, data)
	require.NoError(t, err)
	return apdu
}

func startFrame(t *testing.T, params ...[]byte) []byte {
	t.Helper()
	store := transport.NewStore()
	frame := []byte{transport.CmdStart}
	for _, p := range params {
		h := store.AddParam(p)
		frame = append(frame, h[:]...)
	}
	return frame
}

func TestExit(t *testing.T) {
	f := newFixture(t, nil)
	_, err := SplitResponse(f.r.HandleAPDU([]byte{0, byte(InsExit), 0, 0}))
	require.NoError(t, err)
	assert.True(t, f.r.Exited())
}

func TestProvideDescriptor(t *testing.T) {
	_, err := newFixture(t, nil).run(InsProvideDescriptor, []byte{0})
	assert.ErrorIs(t, err, errno.InsNotSupported, "未配置登记处时不支持")

	trusted, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	registry := token.NewRegistry(cache.NewMemoryCache(time.Minute, time.Minute), trusted.PubKey(), time.Minute)
	f := newFixture(t, registry)

	deep := token.TUID{
		Package: sui.MustParseAddress("0xdeeb7a4662eec9f2f3def03fb937a663dddaa2e215b8078a284d026b7946c270"),
		Module:  "deep",
		Struct:  "DEEP",
	}
	res, err := f.run(InsProvideDescriptor, token.Build("DEEP", 6, deep, trusted))
	require.NoError(t, err)
	assert.Empty(t, res)

	info, ok := registry.Lookup(deep.CoinType())
	require.True(t, ok)
	assert.Equal(t, "DEEP", info.Ticker)

	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	_, err = f.run(InsProvideDescriptor, token.Build("FAKE", 6, deep, other))
	assert.ErrorIs(t, err, token.ErrSignatureMismatch)

	_, err = f.run(InsProvideDescriptor, []byte{1})
	assert.ErrorIs(t, err, token.ErrUnexpectedEOF)
}
