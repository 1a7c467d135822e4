package interp

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"sui-signer/internal/governor"
	"sui-signer/internal/parser"
	"sui-signer/internal/sui"
	"sui-signer/pkg/bcs"

	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// objectSet 按摘要索引的对象数据，模拟对象流
type objectSet map[sui.ObjectDigest]*sui.ObjectData

func recordsOf(t *testing.T, records ...string) objectSet {
	t.Helper()
	set := objectSet{}
	for _, r := range records {
		raw := mustHex(t, r)
		data, err := bcs.Decode(parser.NewObject(), raw)
		require.NoError(t, err)
		set[sui.ComputeObjectDigest(raw)] = data
	}
	return set
}

// interpret 以 chunk 字节为单位喂入交易，遇到查询暂停时从 objs 中提供对象
func interpret(in *Interpreter, tx []byte, objs objectSet, chunk int) (KnownTx, error) {
	p := parser.NewTxParser(in)
	off := 0
	for !p.Done() {
		end := min(off+chunk, len(tx))
		n, err := p.Feed(tx[off:end])
		off += n
		switch {
		case err == nil:
		case errors.Is(err, parser.ErrObjectLookup):
			for _, d := range in.Required() {
				in.Provide(d, objs[d])
			}
		case errors.Is(err, bcs.ErrNeedMore):
			if end == len(tx) {
				return KnownTx{}, err
			}
		default:
			return KnownTx{}, err
		}
	}
	if off != len(tx) {
		return KnownTx{}, fmt.Errorf("%w: 剩余 %d 字节", bcs.ErrTrailingBytes, len(tx)-off)
	}
	k, _ := in.Result()
	return k, nil
}

func interpretAll(t *testing.T, txHex string, objs objectSet) (KnownTx, error) {
	t.Helper()
	tx := mustHex(t, txHex)
	return interpret(New(governor.New(0), nil), tx, objs, len(tx))
}

var (
	suiAddr   = sui.MustParseAddress
	testCoinT = sui.CoinType{Package: sui.MustParseAddress("0xabc"), Module: "usdc", Name: "USDC"}
)

func digest(b byte) sui.ObjectDigest { return sui.ObjectDigest{b} }

func owned(b byte) parser.CallArg {
	return parser.OwnedObject(sui.ObjectRef{ID: sui.Address{b}, Version: 1, Digest: digest(b)})
}

func input(i uint16) parser.Argument { return parser.Argument{Kind: parser.ArgInput, Index: i} }

func result(i uint16) parser.Argument { return parser.Argument{Kind: parser.ArgResult, Index: i} }

func nested(i, j uint16) parser.Argument {
	return parser.Argument{Kind: parser.ArgNestedResult, Index: i, Sub: j}
}

var gasCoin = parser.Argument{Kind: parser.ArgGasCoin}

func stakeCall(fn string, args ...parser.Argument) parser.Command {
	return parser.Command{
		Kind: parser.CmdMoveCall,
		Call: parser.MoveCall{Package: sui.SystemPackage, Module: "sui_system", Function: fn},
		Args: args,
	}
}

func newTx(inputs []parser.CallArg, cmds []parser.Command, payment ...sui.ObjectRef) []byte {
	tx := parser.Transaction{
		Inputs:   inputs,
		Commands: cmds,
		Sender:   suiAddr("0x1"),
		Gas:      parser.GasData{Payment: payment, Owner: suiAddr("0x1"), Price: 1000, Budget: 5000},
	}
	return tx.Encode()
}

// coinTypeTag 构造 0x2::coin::Coin<ct>
func coinTypeTag(ct sui.CoinType) *parser.TypeTag {
	return &parser.TypeTag{Kind: parser.TagStruct, Struct: &parser.StructTag{
		Address: parser.CoinPackage, Module: "coin", Name: "Coin",
		TypeParams: []parser.TypeTag{{Kind: parser.TagStruct, Struct: &parser.StructTag{
			Address: ct.Package, Module: ct.Module, Name: ct.Name,
		}}},
	}}
}
