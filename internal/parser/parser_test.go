package parser

import (
	"encoding/hex"
	"errors"
	"testing"

	"sui-signer/internal/sui"
	"sui-signer/pkg/bcs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	transferGasTx  = "00000000000100201d3f2643305760226e518c9b5a96165383808dd977971f73dea971543b0be488010101000100006fb21feead027da4873295affd6c4f3618fe176fa2fbf3e7b5ef1d9463b31e2101400dbdcfeda8e1e64ebbf5710ccf5a67bfa6e7f945c92bc8611e0cb44b7219ded3764211000000002066c5ab65498a9d3716001a034815ff4abca765f7f6f2375cc91d2addb79c208a6fb21feead027da4873295affd6c4f3618fe176fa2fbf3e7b5ef1d9463b31e21e803000000000000e0972d000000000000"
	transferGasObj = "000101d37642110000000028400dbdcfeda8e1e64ebbf5710ccf5a67bfa6e7f945c92bc8611e0cb44b7219de100e943900000000006fb21feead027da4873295affd6c4f3618fe176fa2fbf3e7b5ef1d9463b31e212074fe3dd473a96335b6f5b5b5a0be3e4f033ecc0a020ee9ef75894f5ab0b33dc760130f0000000000"
	stakedObj      = "000200f71b0e000000000050d263dbcc9f13e9302b8b629518d2a12c5be755aba0c978606cc291367059015d0bbc40471c2e0c94776f07581a09c99b0c19112a0fbc6adde69b2c2ea8be8f4f0900000000000000005ed0b200000000001255d09304c5cc824b9ef4fd9196f5b8e96167b4fb0266f70dd36829ad519d5d20ca11020b472edde78eaa7e606b62bf8d81905d9b127de06957ff6fddfb500504e0b6130000000000"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// recorder 记录解析器交付的字段
type recorder struct {
	inputs   []CallArg
	commands []Command
	sender   sui.Address
	gas      GasData
	exp      Expiration
	finished bool
}

func (r *recorder) Input(_ int, a CallArg) error   { r.inputs = append(r.inputs, a); return nil }
func (r *recorder) Command(_ int, c Command) error { r.commands = append(r.commands, c); return nil }
func (r *recorder) Sender(a sui.Address) error     { r.sender = a; return nil }
func (r *recorder) GasData(g GasData) error        { r.gas = g; return nil }
func (r *recorder) Expiration(e Expiration) error  { r.exp = e; return nil }
func (r *recorder) Finish() error                  { r.finished = true; return nil }

func feedChunks(p *TxParser, tx []byte, size int) error {
	for off := 0; off < len(tx); off += size {
		end := min(off+size, len(tx))
		n, err := p.Feed(tx[off:end])
		if errors.Is(err, bcs.ErrNeedMore) {
			continue
		}
		if err != nil {
			return err
		}
		if off+n != len(tx) {
			return bcs.ErrTrailingBytes
		}
		return nil
	}
	return bcs.ErrNeedMore
}

func TestParseTransferTx(t *testing.T) {
	tx := mustHex(t, transferGasTx)
	for _, size := range []int{1, 3, 32, 180, len(tx)} {
		r := &recorder{}
		p := NewTxParser(r)
		if err := feedChunks(p, tx, size); err != nil {
			t.Fatalf("分块 %d 解析失败: %v", size, err)
		}
		require.True(t, p.Done())
		require.True(t, r.finished)

		require.Len(t, r.inputs, 1)
		assert.Equal(t, CallArgPure, r.inputs[0].Kind)
		assert.Len(t, r.inputs[0].Pure, 32)

		require.Len(t, r.commands, 1)
		c := r.commands[0]
		assert.Equal(t, CmdTransferObjects, c.Kind)
		assert.Equal(t, []Argument{{Kind: ArgGasCoin}}, c.Args)
		assert.Equal(t, Argument{Kind: ArgInput, Index: 0}, c.Target)

		require.Len(t, r.gas.Payment, 1)
		assert.Equal(t, "0x66c5ab65498a9d3716001a034815ff4abca765f7f6f2375cc91d2addb79c208a", r.gas.Payment[0].Digest.String())
		assert.Equal(t, uint64(1000), r.gas.Price)
		assert.Equal(t, uint64(2988000), r.gas.Budget)
		assert.Nil(t, r.exp.Epoch)
	}
}

func TestTxEncodeParse(t *testing.T) {
	epoch := uint64(77)
	coinTag := TypeTag{Kind: TagStruct, Struct: &StructTag{
		Address: sui.MustParseAddress("0x2"), Module: "coin", Name: "Coin",
		TypeParams: []TypeTag{{Kind: TagVector, Elem: &TypeTag{Kind: TagU8}}},
	}}
	in := Transaction{
		Inputs: []CallArg{
			PureU64(5),
			SharedObject(sui.SystemStateObject, 1, true),
			OwnedObject(sui.ObjectRef{ID: sui.Address{9}, Version: 3, Digest: sui.ObjectDigest{7}}),
		},
		Commands: []Command{
			{Kind: CmdSplitCoins, Target: Argument{Kind: ArgGasCoin}, Args: []Argument{{Kind: ArgInput}}},
			{Kind: CmdMakeMoveVec, ElemType: &coinTag, Args: []Argument{{Kind: ArgNestedResult, Index: 0, Sub: 0}}},
			{Kind: CmdMoveCall, Call: MoveCall{Package: sui.SystemPackage, Module: "sui_system", Function: "f"},
				Args: []Argument{{Kind: ArgInput, Index: 1}, {Kind: ArgResult, Index: 1}}},
		},
		Sender:     sui.Address{1},
		Gas:        GasData{Owner: sui.Address{1}, Price: 1, Budget: 2},
		Expiration: Expiration{Epoch: &epoch},
	}

	r := &recorder{}
	p := NewTxParser(r)
	require.NoError(t, feedChunks(p, in.Encode(), 5))

	assert.Equal(t, in.Inputs[1].Object, r.inputs[1].Object)
	assert.Equal(t, in.Inputs[2].Object.Ref, r.inputs[2].Object.Ref)
	require.Len(t, r.commands, 3)
	require.NotNil(t, r.commands[1].ElemType)
	assert.Equal(t, "Coin", r.commands[1].ElemType.Struct.Name)
	assert.Equal(t, "f", r.commands[2].Call.Function)
	assert.Equal(t, in.Commands[2].Args, r.commands[2].Args)
	require.NotNil(t, r.exp.Epoch)
	assert.Equal(t, epoch, *r.exp.Epoch)
}

func TestParseRejects(t *testing.T) {
	base := Transaction{Sender: sui.Address{1}}
	good := base.Encode()

	publish := append([]byte{}, good[:5]...)
	publish = append(publish, 0, 1, byte(CmdPublish))

	badDigest := append([]byte{0, 0, 0, 0, 0, 1}, AppendCallArg(nil, OwnedObject(sui.ObjectRef{}))...)
	badDigest[6+2+32+8] = 0x21

	nestedStruct := TypeTag{Kind: TagStruct, Struct: &StructTag{
		Module: "a", Name: "B",
		TypeParams: []TypeTag{{Kind: TagStruct, Struct: &StructTag{Module: "c", Name: "D"}}},
	}}
	typeArgs := append([]byte{0, 0, 0, 0, 0, 0, 1}, AppendCommand(nil, Command{
		Kind: CmdMoveCall, Call: MoveCall{Module: "m", Function: "f", TypeArgs: []TypeTag{nestedStruct}},
	})...)

	tests := []struct {
		name string
		tx   []byte
		want error
	}{
		{"intent 非零", append([]byte{1}, good[1:]...), sui.ErrMalformed},
		{"TransactionData V2", append([]byte{0, 0, 0, 1}, good[4:]...), sui.ErrUnsupported},
		{"非 PTB", append([]byte{0, 0, 0, 0, 1}, good[5:]...), sui.ErrUnsupported},
		{"Publish", publish, sui.ErrUnsupported},
		{"摘要长度字节", badDigest, sui.ErrMalformed},
		{"类型参数嵌套 struct", typeArgs, sui.ErrUnsupported},
		{"输入过多", bcs.AppendUleb128([]byte{0, 0, 0, 0, 0}, MaxInputs+1), bcs.ErrTooMany},
		{"未知 Argument", []byte{0, 0, 0, 0, 0, 0, 1, 1, 1, 9}, bcs.ErrInvalidType},
		{"ULEB 溢出", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, bcs.ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTxParser(&recorder{}).Feed(tt.tx)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "期望 %v, 得到 %v", tt.want, err)
		})
	}
}

func TestUnknownVariantTags(t *testing.T) {
	prefix := []byte{0, 0, 0, 0, 0}
	base := Transaction{Sender: sui.Address{1}}
	good := base.Encode()

	badExpiration := append([]byte{}, good...)
	badExpiration[len(badExpiration)-1] = 2

	moveCall := append(append([]byte{}, prefix...), 0, 1, byte(CmdMoveCall))
	moveCall = append(moveCall, make([]byte, 32)...)
	moveCall = bcs.AppendString(moveCall, "m")
	moveCall = bcs.AppendString(moveCall, "f")
	moveCall = append(moveCall, 1, 0x20)

	tests := []struct {
		name string
		tx   []byte
	}{
		{"Command", append(append([]byte{}, prefix...), 0, 1, 0x7f)},
		{"CallArg", append(append([]byte{}, prefix...), 1, 9)},
		{"ObjectArg", append(append([]byte{}, prefix...), 1, byte(CallArgObject), 9)},
		{"TypeTag", moveCall},
		{"Expiration", badExpiration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTxParser(&recorder{}).Feed(tt.tx)
			require.Error(t, err)
			assert.ErrorIs(t, err, bcs.ErrInvalidType)
			assert.NotErrorIs(t, err, sui.ErrUnsupported)
		})
	}
}

func TestCoinTypeParameter(t *testing.T) {
	usdc := TypeTag{Kind: TagStruct, Struct: &StructTag{Address: sui.MustParseAddress("0xabc"), Module: "usdc", Name: "USDC"}}
	coinOf := func(param TypeTag) TypeTag {
		return TypeTag{Kind: TagStruct, Struct: &StructTag{Address: CoinPackage, Module: "coin", Name: "Coin", TypeParams: []TypeTag{param}}}
	}
	vec := func(elem TypeTag) []byte {
		tx := Transaction{
			Commands: []Command{{Kind: CmdMakeMoveVec, ElemType: &elem}},
			Sender:   sui.Address{1},
		}
		return tx.Encode()
	}

	r := &recorder{}
	require.NoError(t, feedChunks(NewTxParser(r), vec(coinOf(usdc)), 7))
	require.Len(t, r.commands, 1)
	elem := r.commands[0].ElemType
	require.NotNil(t, elem)
	assert.True(t, elem.Struct.IsCoin())
	assert.Equal(t, "USDC", elem.Struct.TypeParams[0].Struct.Name)

	// 只有 Coin 的类型参数可以是 struct，且只有一层
	_, err := NewTxParser(&recorder{}).Feed(vec(coinOf(coinOf(usdc))))
	assert.ErrorIs(t, err, sui.ErrUnsupported)
}

func TestObjectRecordUnknownTags(t *testing.T) {
	record := func(objType, owner byte) []byte {
		rec := []byte{0, objType}
		rec = append(rec, 1)
		rec = bcs.AppendU64(rec, 1)
		rec = bcs.AppendBytes(rec, make([]byte, 40))
		rec = append(rec, owner)
		rec = bcs.AppendBytes(rec, make([]byte, 32))
		return bcs.AppendU64(rec, 0)
	}

	_, err := bcs.Decode(NewObject(), record(1, 3))
	require.NoError(t, err)

	_, err = bcs.Decode(NewObject(), record(9, 3))
	assert.ErrorIs(t, err, bcs.ErrInvalidType, "MoveObjectType")
	_, err = bcs.Decode(NewObject(), record(1, 7))
	assert.ErrorIs(t, err, bcs.ErrInvalidType, "Owner")
}

func TestObjectRecord(t *testing.T) {
	raw := mustHex(t, transferGasObj)
	data, err := bcs.Decode(NewObject(), raw)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, sui.SuiCoinType, data.Type)
	assert.Equal(t, uint64(966004240), data.Amount)
	assert.False(t, data.Staked)
	assert.Equal(t, "0x66c5ab65498a9d3716001a034815ff4abca765f7f6f2375cc91d2addb79c208a", sui.ComputeObjectDigest(raw).String())

	staked, err := bcs.Decode(NewObject(), mustHex(t, stakedObj))
	require.NoError(t, err)
	require.NotNil(t, staked)
	assert.True(t, staked.Staked)
	assert.Equal(t, uint64(3_000_000_000), staked.Amount)
}

func TestObjectRecordCoinType(t *testing.T) {
	pkg := sui.MustParseAddress("0xabc")
	var rec []byte
	rec = append(rec, 0, 3) // Move, Coin(TypeTag)
	rec = AppendTypeTag(rec, TypeTag{Kind: TagStruct, Struct: &StructTag{Address: pkg, Module: "usdc", Name: "USDC"}})
	rec = append(rec, 1)
	rec = bcs.AppendU64(rec, 1)
	contents := make([]byte, 40)
	contents[32] = 42
	rec = bcs.AppendBytes(rec, contents)
	rec = append(rec, 3) // Immutable
	rec = bcs.AppendBytes(rec, make([]byte, 32))
	rec = bcs.AppendU64(rec, 0)

	data, err := bcs.Decode(NewObject(), rec)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, sui.CoinType{Package: pkg, Module: "usdc", Name: "USDC"}, data.Type)
	assert.Equal(t, uint64(42), data.Amount)

	// 内容长度不符
	bad := append([]byte{}, rec...)
	short := bytesIndex(bad, contents)
	require.Positive(t, short)
	bad[short-1] = 39
	_, err = bcs.Decode(NewObject(), bad)
	assert.Error(t, err)
}

func bytesIndex(b, sub []byte) int {
	for i := 0; i+len(sub) <= len(b); i++ {
		if string(b[i:i+len(sub)]) == string(sub) {
			return i
		}
	}
	return -1
}
