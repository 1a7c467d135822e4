package parser

import (
	"fmt"

	"sui-signer/internal/sui"
	"sui-signer/pkg/bcs"
)

// check 在 inner 完成后运行校验函数
func check(inner bcs.Feeder, fn func() error) bcs.Feeder {
	return bcs.Map(inner, func() (struct{}, error) { return struct{}{}, fn() })
}

func NewAddress() bcs.Decoder[sui.Address] {
	raw := &bcs.Array32{}
	return bcs.Map(raw, func() (sui.Address, error) {
		return sui.Address(raw.Value()), nil
	})
}

// NewObjectDigest 解码 BCS vec<u8> 形式的 32 字节摘要，长度字节必须为 0x20
func NewObjectDigest() bcs.Decoder[sui.ObjectDigest] {
	l := &bcs.U8{}
	raw := &bcs.Array32{}
	lenOK := check(l, func() error {
		if l.Value() != sui.DigestLength {
			return fmt.Errorf("%w: 摘要长度 %d", sui.ErrMalformed, l.Value())
		}
		return nil
	})
	return bcs.Map(bcs.Seq(lenOK, raw), func() (sui.ObjectDigest, error) {
		return sui.ObjectDigest(raw.Value()), nil
	})
}

func NewObjectRef() bcs.Decoder[sui.ObjectRef] {
	id := NewAddress()
	version := &bcs.U64{}
	digest := NewObjectDigest()
	return bcs.Map(bcs.Seq(id, version, digest), func() (sui.ObjectRef, error) {
		return sui.ObjectRef{ID: id.Value(), Version: version.Value(), Digest: digest.Value()}, nil
	})
}

func NewArgument() bcs.Decoder[Argument] {
	return bcs.Enum(func(tag uint32) (bcs.Decoder[Argument], error) {
		switch ArgKind(tag) {
		case ArgGasCoin:
			return bcs.Const(Argument{Kind: ArgGasCoin}), nil
		case ArgInput, ArgResult:
			idx := &bcs.U16{}
			return bcs.Map(idx, func() (Argument, error) {
				return Argument{Kind: ArgKind(tag), Index: idx.Value()}, nil
			}), nil
		case ArgNestedResult:
			idx, sub := &bcs.U16{}, &bcs.U16{}
			return bcs.Map(bcs.Seq(idx, sub), func() (Argument, error) {
				return Argument{Kind: ArgNestedResult, Index: idx.Value(), Sub: sub.Value()}, nil
			}), nil
		}
		return nil, fmt.Errorf("%w: Argument 变体 %d", bcs.ErrInvalidType, tag)
	})
}

func newArgs() bcs.Decoder[[]Argument] {
	return bcs.Vec(MaxVecLen, NewArgument)
}

func NewObjectArg() bcs.Decoder[ObjectArg] {
	return bcs.Enum(func(tag uint32) (bcs.Decoder[ObjectArg], error) {
		switch ObjectArgKind(tag) {
		case ObjImmOrOwned, ObjReceiving:
			ref := NewObjectRef()
			return bcs.Map(ref, func() (ObjectArg, error) {
				return ObjectArg{Kind: ObjectArgKind(tag), Ref: ref.Value()}, nil
			}), nil
		case ObjShared:
			id := NewAddress()
			version := &bcs.U64{}
			mutable := &bcs.Bool{}
			return bcs.Map(bcs.Seq(id, version, mutable), func() (ObjectArg, error) {
				return ObjectArg{
					Kind:           ObjShared,
					Ref:            sui.ObjectRef{ID: id.Value()},
					InitialVersion: version.Value(),
					Mutable:        mutable.Value(),
				}, nil
			}), nil
		}
		return nil, fmt.Errorf("%w: ObjectArg 变体 %d", bcs.ErrInvalidType, tag)
	})
}

func NewCallArg() bcs.Decoder[CallArg] {
	return bcs.Enum(func(tag uint32) (bcs.Decoder[CallArg], error) {
		switch CallArgKind(tag) {
		case CallArgPure:
			body := bcs.NewVarBytes(MaxPureLen)
			return bcs.Map(body, func() (CallArg, error) {
				return CallArg{Kind: CallArgPure, Pure: body.Value()}, nil
			}), nil
		case CallArgObject:
			obj := NewObjectArg()
			return bcs.Map(obj, func() (CallArg, error) {
				return CallArg{Kind: CallArgObject, Object: obj.Value()}, nil
			}), nil
		}
		return nil, fmt.Errorf("%w: CallArg 变体 %d", bcs.ErrInvalidType, tag)
	})
}

// NewTypeTag 解码类型标签。depth > 0 表示位于类型参数内部，
// 此时只有 0x2::coin::Coin<T> 的 T 可以是 struct，嵌套深度超过 MaxTypeDepth 也会被拒绝。
func NewTypeTag(depth int) bcs.Decoder[TypeTag] {
	return newTypeTag(depth, depth == 0)
}

func newTypeTag(depth int, allowStruct bool) bcs.Decoder[TypeTag] {
	return bcs.Enum(func(tag uint32) (bcs.Decoder[TypeTag], error) {
		kind := TypeTagKind(tag)
		switch kind {
		case TagBool, TagU8, TagU64, TagU128, TagAddress, TagSigner, TagU16, TagU32, TagU256:
			return bcs.Const(TypeTag{Kind: kind}), nil
		case TagVector:
			if depth+1 > MaxTypeDepth {
				return nil, fmt.Errorf("%w: 类型嵌套过深", sui.ErrUnsupported)
			}
			elem := NewTypeTag(depth + 1)
			return bcs.Map(elem, func() (TypeTag, error) {
				e := elem.Value()
				return TypeTag{Kind: TagVector, Elem: &e}, nil
			}), nil
		case TagStruct:
			if !allowStruct {
				return nil, fmt.Errorf("%w: 类型参数中的 struct", sui.ErrUnsupported)
			}
			st := newStructTag(depth)
			return bcs.Map(st, func() (TypeTag, error) {
				s := st.Value()
				return TypeTag{Kind: TagStruct, Struct: &s}, nil
			}), nil
		}
		return nil, fmt.Errorf("%w: TypeTag 变体 %d", bcs.ErrInvalidType, tag)
	})
}

// CoinPackage 是 0x2::coin::Coin 所在的包
var CoinPackage = sui.MustParseAddress("0x2")

// IsCoin 判断是否为 0x2::coin::Coin
func (s StructTag) IsCoin() bool {
	return s.Address == CoinPackage && s.Module == "coin" && s.Name == "Coin"
}

func NewStructTag() bcs.Decoder[StructTag] {
	return newStructTag(0)
}

func newStructTag(depth int) bcs.Decoder[StructTag] {
	addr := NewAddress()
	module := bcs.NewString(MaxIdentifier)
	name := bcs.NewString(MaxIdentifier)
	// 元素解码器在 addr/module/name 完成之后才创建
	params := bcs.Vec(MaxTypeArgs, func() bcs.Decoder[TypeTag] {
		outer := StructTag{Address: addr.Value(), Module: module.Value(), Name: name.Value()}
		return newTypeTag(depth+1, depth == 0 && outer.IsCoin())
	})
	return bcs.Map(bcs.Seq(addr, module, name, params), func() (StructTag, error) {
		return StructTag{
			Address:    addr.Value(),
			Module:     module.Value(),
			Name:       name.Value(),
			TypeParams: params.Value(),
		}, nil
	})
}

func newMoveCall() bcs.Decoder[Command] {
	pkg := NewAddress()
	module := bcs.NewString(MaxIdentifier)
	function := bcs.NewString(MaxIdentifier)
	typeArgs := bcs.Vec(MaxTypeArgs, func() bcs.Decoder[TypeTag] { return NewTypeTag(0) })
	args := newArgs()
	return bcs.Map(bcs.Seq(pkg, module, function, typeArgs, args), func() (Command, error) {
		return Command{
			Kind: CmdMoveCall,
			Call: MoveCall{
				Package:  pkg.Value(),
				Module:   module.Value(),
				Function: function.Value(),
				TypeArgs: typeArgs.Value(),
			},
			Args: args.Value(),
		}, nil
	})
}

func NewCommand() bcs.Decoder[Command] {
	return bcs.Enum(func(tag uint32) (bcs.Decoder[Command], error) {
		kind := CommandKind(tag)
		switch kind {
		case CmdMoveCall:
			return newMoveCall(), nil
		case CmdTransferObjects:
			objs, recipient := newArgs(), NewArgument()
			return bcs.Map(bcs.Seq(objs, recipient), func() (Command, error) {
				return Command{Kind: kind, Args: objs.Value(), Target: recipient.Value()}, nil
			}), nil
		case CmdSplitCoins, CmdMergeCoins:
			target, args := NewArgument(), newArgs()
			return bcs.Map(bcs.Seq(target, args), func() (Command, error) {
				return Command{Kind: kind, Target: target.Value(), Args: args.Value()}, nil
			}), nil
		case CmdMakeMoveVec:
			elemType := bcs.Option(func() bcs.Decoder[TypeTag] { return NewTypeTag(0) })
			elems := newArgs()
			return bcs.Map(bcs.Seq(elemType, elems), func() (Command, error) {
				return Command{Kind: kind, ElemType: elemType.Value(), Args: elems.Value()}, nil
			}), nil
		case CmdPublish, CmdUpgrade:
			return nil, fmt.Errorf("%w: %s", sui.ErrUnsupported, kind)
		}
		return nil, fmt.Errorf("%w: Command 变体 %d", bcs.ErrInvalidType, tag)
	})
}

func NewGasData() bcs.Decoder[GasData] {
	payment := bcs.Vec(MaxGasPayments, NewObjectRef)
	owner := NewAddress()
	price, budget := &bcs.U64{}, &bcs.U64{}
	return bcs.Map(bcs.Seq(payment, owner, price, budget), func() (GasData, error) {
		return GasData{
			Payment: payment.Value(),
			Owner:   owner.Value(),
			Price:   price.Value(),
			Budget:  budget.Value(),
		}, nil
	})
}

func NewExpiration() bcs.Decoder[Expiration] {
	return bcs.Enum(func(tag uint32) (bcs.Decoder[Expiration], error) {
		switch tag {
		case 0:
			return bcs.Const(Expiration{}), nil
		case 1:
			epoch := &bcs.U64{}
			return bcs.Map(epoch, func() (Expiration, error) {
				e := epoch.Value()
				return Expiration{Epoch: &e}, nil
			}), nil
		}
		return nil, fmt.Errorf("%w: Expiration 变体 %d", bcs.ErrInvalidType, tag)
	})
}
