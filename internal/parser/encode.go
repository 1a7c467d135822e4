package parser

import (
	"sui-signer/internal/sui"
	"sui-signer/pkg/bcs"
)

// Transaction 是 ProgrammableTransaction 的完整结构，主机端工具用它构造待签名字节
type Transaction struct {
	Inputs     []CallArg
	Commands   []Command
	Sender     sui.Address
	Gas        GasData
	Expiration Expiration
}

// Encode 输出带 intent 前缀的 BCS 字节
func (tx *Transaction) Encode() []byte {
	b := []byte{0, 0, 0} // intent
	b = append(b, 0, 0)  // V1, ProgrammableTransaction
	b = bcs.AppendUleb128(b, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		b = AppendCallArg(b, in)
	}
	b = bcs.AppendUleb128(b, uint64(len(tx.Commands)))
	for _, c := range tx.Commands {
		b = AppendCommand(b, c)
	}
	b = append(b, tx.Sender[:]...)
	b = AppendGasData(b, tx.Gas)
	if tx.Expiration.Epoch == nil {
		return append(b, 0)
	}
	return bcs.AppendU64(append(b, 1), *tx.Expiration.Epoch)
}

func AppendObjectRef(b []byte, r sui.ObjectRef) []byte {
	b = append(b, r.ID[:]...)
	b = bcs.AppendU64(b, r.Version)
	return bcs.AppendBytes(b, r.Digest[:])
}

func AppendCallArg(b []byte, a CallArg) []byte {
	if a.Kind == CallArgPure {
		return bcs.AppendBytes(append(b, byte(CallArgPure)), a.Pure)
	}
	b = append(b, byte(CallArgObject), byte(a.Object.Kind))
	if a.Object.Kind == ObjShared {
		b = append(b, a.Object.Ref.ID[:]...)
		b = bcs.AppendU64(b, a.Object.InitialVersion)
		return bcs.AppendBool(b, a.Object.Mutable)
	}
	return AppendObjectRef(b, a.Object.Ref)
}

func AppendArgument(b []byte, a Argument) []byte {
	b = append(b, byte(a.Kind))
	switch a.Kind {
	case ArgInput, ArgResult:
		b = bcs.AppendU16(b, a.Index)
	case ArgNestedResult:
		b = bcs.AppendU16(bcs.AppendU16(b, a.Index), a.Sub)
	}
	return b
}

func appendArgs(b []byte, args []Argument) []byte {
	b = bcs.AppendUleb128(b, uint64(len(args)))
	for _, a := range args {
		b = AppendArgument(b, a)
	}
	return b
}

func AppendTypeTag(b []byte, t TypeTag) []byte {
	b = append(b, byte(t.Kind))
	switch t.Kind {
	case TagVector:
		b = AppendTypeTag(b, *t.Elem)
	case TagStruct:
		b = append(b, t.Struct.Address[:]...)
		b = bcs.AppendString(b, t.Struct.Module)
		b = bcs.AppendString(b, t.Struct.Name)
		b = bcs.AppendUleb128(b, uint64(len(t.Struct.TypeParams)))
		for _, p := range t.Struct.TypeParams {
			b = AppendTypeTag(b, p)
		}
	}
	return b
}

func AppendCommand(b []byte, c Command) []byte {
	b = append(b, byte(c.Kind))
	switch c.Kind {
	case CmdMoveCall:
		b = append(b, c.Call.Package[:]...)
		b = bcs.AppendString(b, c.Call.Module)
		b = bcs.AppendString(b, c.Call.Function)
		b = bcs.AppendUleb128(b, uint64(len(c.Call.TypeArgs)))
		for _, t := range c.Call.TypeArgs {
			b = AppendTypeTag(b, t)
		}
		b = appendArgs(b, c.Args)
	case CmdTransferObjects:
		b = appendArgs(b, c.Args)
		b = AppendArgument(b, c.Target)
	case CmdSplitCoins, CmdMergeCoins:
		b = AppendArgument(b, c.Target)
		b = appendArgs(b, c.Args)
	case CmdMakeMoveVec:
		if c.ElemType == nil {
			b = append(b, 0)
		} else {
			b = AppendTypeTag(append(b, 1), *c.ElemType)
		}
		b = appendArgs(b, c.Args)
	}
	return b
}

func AppendGasData(b []byte, g GasData) []byte {
	b = bcs.AppendUleb128(b, uint64(len(g.Payment)))
	for _, r := range g.Payment {
		b = AppendObjectRef(b, r)
	}
	b = append(b, g.Owner[:]...)
	b = bcs.AppendU64(b, g.Price)
	return bcs.AppendU64(b, g.Budget)
}

// Pure 构造字面量输入
func Pure(v []byte) CallArg { return CallArg{Kind: CallArgPure, Pure: v} }

// PureU64 构造金额输入
func PureU64(v uint64) CallArg { return Pure(bcs.AppendU64(nil, v)) }

// PureAddress 构造地址输入
func PureAddress(a sui.Address) CallArg { return Pure(a[:]) }

// OwnedObject 构造 ImmOrOwned 对象输入
func OwnedObject(ref sui.ObjectRef) CallArg {
	return CallArg{Kind: CallArgObject, Object: ObjectArg{Kind: ObjImmOrOwned, Ref: ref}}
}

// SharedObject 构造共享对象输入
func SharedObject(id sui.Address, initial uint64, mutable bool) CallArg {
	return CallArg{Kind: CallArgObject, Object: ObjectArg{
		Kind: ObjShared, Ref: sui.ObjectRef{ID: id}, InitialVersion: initial, Mutable: mutable,
	}}
}
