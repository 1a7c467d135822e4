package interp

import (
	"encoding/binary"
	"fmt"

	"sui-signer/internal/parser"
	"sui-signer/internal/sui"

	"github.com/holiman/uint256"
)

// ValueKind 是输入在符号表中的形态
type ValueKind uint8

const (
	ValAmount ValueKind = iota
	ValAddress
	ValOptionalAmount
	ValOpaque
	ValObjectRef
	ValShared
	ValReceiving
	ValObject
	ValMissing
)

func (k ValueKind) String() string {
	switch k {
	case ValAmount:
		return "Amount"
	case ValAddress:
		return "Address"
	case ValOptionalAmount:
		return "OptionalAmount"
	case ValOpaque:
		return "Opaque"
	case ValObjectRef:
		return "ObjectRef"
	case ValShared:
		return "Shared"
	case ValReceiving:
		return "Receiving"
	case ValObject:
		return "Object"
	case ValMissing:
		return "Missing"
	}
	return "Invalid"
}

// InputValue 是符号表中的一个输入。ObjectRef 在查询后原地提升为 Object 或 Missing。
type InputValue struct {
	Kind    ValueKind
	Amount  uint64 // Amount / OptionalAmount(Some)
	Some    bool   // OptionalAmount
	Address sui.Address
	Ref     sui.ObjectRef // ObjectRef / Shared(ID) / Receiving
	Object  sui.ObjectData
	FromGas bool // 合并过从 GasCoin 拆出的币
}

// newInputValue 根据 Pure 参数长度推断语义类型
func newInputValue(arg parser.CallArg) InputValue {
	if arg.Kind == parser.CallArgObject {
		switch arg.Object.Kind {
		case parser.ObjImmOrOwned:
			return InputValue{Kind: ValObjectRef, Ref: arg.Object.Ref}
		case parser.ObjShared:
			return InputValue{Kind: ValShared, Ref: arg.Object.Ref}
		default:
			return InputValue{Kind: ValReceiving, Ref: arg.Object.Ref}
		}
	}

	b := arg.Pure
	switch len(b) {
	case 8:
		return InputValue{Kind: ValAmount, Amount: binary.LittleEndian.Uint64(b)}
	case sui.AddressLength:
		return InputValue{Kind: ValAddress, Address: sui.Address(b)}
	case 1:
		if b[0] == 0 {
			return InputValue{Kind: ValOptionalAmount}
		}
	case 9:
		if b[0] == 1 {
			return InputValue{Kind: ValOptionalAmount, Some: true, Amount: binary.LittleEndian.Uint64(b[1:])}
		}
	}
	return InputValue{Kind: ValOpaque}
}

// ResultKind 命令结果种类
type ResultKind uint8

const (
	ResNone ResultKind = iota
	ResSplitCoinAmounts
	ResMergedCoin
	ResMoveVecMergedCoin
	ResStakingPoolSplitCoin
)

// CommandResult 记录一条命令的可用结果
type CommandResult struct {
	Kind    ResultKind
	Type    sui.CoinType
	Amounts []uint64        // SplitCoinAmounts
	Amount  uint64          // MergedCoin / StakingPoolSplitCoin
	Total   TotalCoinAmount // MoveVecMergedCoin
	FromGas bool            // 币来自 GasCoin
}

// TotalCoinAmount 是一组币的聚合金额
type TotalCoinAmount struct {
	Type            sui.CoinType
	Total           uint64
	IncludesGasCoin bool

	typed bool
	// wholeGas 表示整个 GasCoin (而不是从中拆出的部分) 在聚合中，余额到最后才能确定
	wholeGas bool
}

// add 把一枚币并入聚合，类型不一致视为不支持
func (t *TotalCoinAmount) add(c coin) error {
	if t.typed && t.Type != c.Type {
		return fmt.Errorf("%w: 币种不一致 %s != %s", ErrUnsupported, t.Type, c.Type)
	}
	t.Type, t.typed = c.Type, true
	sum, err := addAmount(t.Total, c.Amount)
	if err != nil {
		return err
	}
	t.Total = sum
	t.IncludesGasCoin = t.IncludesGasCoin || c.FromGas
	t.wholeGas = t.wholeGas || c.WholeGas
	return nil
}

func (t *TotalCoinAmount) merge(o TotalCoinAmount) error {
	if !o.typed {
		return nil
	}
	if err := t.add(coin{Type: o.Type, Amount: o.Total, FromGas: o.IncludesGasCoin}); err != nil {
		return err
	}
	t.wholeGas = t.wholeGas || o.wholeGas
	return nil
}

// addAmount 溢出检查的加法
func addAmount(a, b uint64) (uint64, error) {
	sum := new(uint256.Int).AddUint64(uint256.NewInt(a), b)
	if !sum.IsUint64() {
		return 0, fmt.Errorf("%w: 金额溢出", ErrMalformed)
	}
	return sum.Uint64(), nil
}

// subAmount 下溢视为不支持 (无法确定实际余额)
func subAmount(a, b uint64) (uint64, error) {
	diff, underflow := new(uint256.Int).SubOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if underflow {
		return 0, fmt.Errorf("%w: 余额不足 %d < %d", ErrUnsupported, a, b)
	}
	return diff.Uint64(), nil
}

// TxKind 交易分类
type TxKind uint8

const (
	TxUnknown TxKind = iota
	TxTransfer
	TxStake
	TxUnstake
)

func (k TxKind) String() string {
	switch k {
	case TxTransfer:
		return "Transfer"
	case TxStake:
		return "Stake"
	case TxUnstake:
		return "Unstake"
	}
	return "Unknown"
}

// KnownTx 是解释结果，字段是否有意义取决于 Kind:
//
//	Transfer: Recipient, CoinType, TotalAmount, IncludesGasCoin, GasBudget
//	Stake:    Recipient (验证者), TotalAmount, GasBudget
//	Unstake:  TotalAmount, GasBudget
type KnownTx struct {
	Kind            TxKind
	Sender          sui.Address
	Recipient       sui.Address
	CoinType        sui.CoinType
	TotalAmount     uint64
	IncludesGasCoin bool
	GasBudget       uint64
}
