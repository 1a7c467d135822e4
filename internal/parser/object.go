package parser

import (
	"encoding/binary"
	"fmt"

	"sui-signer/internal/sui"
	"sui-signer/pkg/bcs"
)

// MoveObjectType 变体
const (
	moveTypeOther uint32 = iota
	moveTypeGasCoin
	moveTypeStakedSui
	moveTypeCoin
)

const (
	coinContentsLen   = 40 // UID(32) + balance(8)
	stakedContentsLen = 80 // UID(32) + pool_id(32) + activation_epoch(8) + principal(8)
)

type moveObjectType struct {
	coin   *sui.CoinType // nil 表示非币对象
	staked bool
}

func newMoveObjectType() bcs.Decoder[moveObjectType] {
	return bcs.Enum(func(tag uint32) (bcs.Decoder[moveObjectType], error) {
		switch tag {
		case moveTypeOther:
			st := NewStructTag()
			return bcs.Map(st, func() (moveObjectType, error) { return moveObjectType{}, nil }), nil
		case moveTypeGasCoin:
			ct := sui.SuiCoinType
			return bcs.Const(moveObjectType{coin: &ct}), nil
		case moveTypeStakedSui:
			ct := sui.SuiCoinType
			return bcs.Const(moveObjectType{coin: &ct, staked: true}), nil
		case moveTypeCoin:
			tt := NewTypeTag(0)
			return bcs.Map(tt, func() (moveObjectType, error) {
				t := tt.Value()
				if t.Kind != TagStruct {
					return moveObjectType{}, fmt.Errorf("%w: Coin 类型参数不是 struct", sui.ErrUnsupported)
				}
				return moveObjectType{coin: &sui.CoinType{
					Package: t.Struct.Address,
					Module:  t.Struct.Module,
					Name:    t.Struct.Name,
				}}, nil
			}), nil
		}
		return nil, fmt.Errorf("%w: MoveObjectType 变体 %d", bcs.ErrInvalidType, tag)
	})
}

func newOwner() bcs.Decoder[struct{}] {
	return bcs.Enum(func(tag uint32) (bcs.Decoder[struct{}], error) {
		switch tag {
		case 0, 1: // AddressOwner / ObjectOwner
			a := NewAddress()
			return bcs.Map(a, func() (struct{}, error) { return struct{}{}, nil }), nil
		case 2: // Shared{initial_shared_version}
			v := &bcs.U64{}
			return bcs.Map(v, func() (struct{}, error) { return struct{}{}, nil }), nil
		case 3: // Immutable
			return bcs.Const(struct{}{}), nil
		}
		return nil, fmt.Errorf("%w: Owner 变体 %d", bcs.ErrInvalidType, tag)
	})
}

// NewObject 解码一条对象记录 (Data, Owner, previous_transaction, storage_rebate)。
// 结果为 nil 表示记录合法但不是币对象。
func NewObject() bcs.Decoder[*sui.ObjectData] {
	var (
		objType  = newMoveObjectType()
		contents = bcs.NewVarBytes(MaxObjectRecord)
	)
	data := bcs.Enum(func(tag uint32) (bcs.Decoder[struct{}], error) {
		if tag != 0 {
			return nil, fmt.Errorf("%w: 仅支持 Move 对象", sui.ErrUnsupported)
		}
		return bcs.Map(bcs.Seq(objType, &bcs.Bool{}, &bcs.U64{}, contents), func() (struct{}, error) {
			return struct{}{}, nil
		}), nil
	})
	return bcs.Map(bcs.Seq(data, newOwner(), NewObjectDigest(), &bcs.U64{}), func() (*sui.ObjectData, error) {
		t := objType.Value()
		if t.coin == nil {
			return nil, nil
		}
		c := contents.Value()
		var amount uint64
		switch {
		case !t.staked && len(c) == coinContentsLen:
			amount = binary.LittleEndian.Uint64(c[32:40])
		case t.staked && len(c) == stakedContentsLen:
			amount = binary.LittleEndian.Uint64(c[72:80])
		default:
			return nil, fmt.Errorf("%w: 对象内容长度 %d", sui.ErrMalformed, len(c))
		}
		return &sui.ObjectData{Type: *t.coin, Amount: amount, Staked: t.staked}, nil
	})
}
