package interp

import (
	"fmt"

	"sui-signer/internal/parser"
	"sui-signer/internal/sui"
)

// coin 是币解析的结果
type coin struct {
	Type     sui.CoinType
	Amount   uint64
	FromGas  bool
	WholeGas bool // 整个 GasCoin，Amount 无意义
	Staked   bool
}

// balance 指向一枚币在符号表中可修改的余额。GasCoin 没有对应的槽位，amount 为 nil。
type balance struct {
	coin
	amount  *uint64
	fromGas *bool
	// promote 在 Result 槽位被合并后调用，把单个拆分结果改写为 MergedCoin
	promote func()
}

func (i *Interpreter) input(a parser.Argument) (*InputValue, error) {
	if int(a.Index) >= len(i.inputs) {
		return nil, fmt.Errorf("%w: Input(%d) 越界, 共 %d 个输入", ErrMalformed, a.Index, len(i.inputs))
	}
	return &i.inputs[a.Index], nil
}

func (i *Interpreter) result(idx uint16) (*CommandResult, error) {
	if int(idx) >= len(i.results) {
		return nil, fmt.Errorf("%w: Result(%d) 引用了尚未执行的命令", ErrMalformed, idx)
	}
	return &i.results[idx], nil
}

// resolveCoin 是所有命令共用的币解析: GasCoin、已查询的输入对象或之前命令的结果
func (i *Interpreter) resolveCoin(a parser.Argument) (coin, error) {
	b, err := i.slot(a)
	if err != nil {
		return coin{}, err
	}
	return b.coin, nil
}

func (i *Interpreter) slot(a parser.Argument) (balance, error) {
	switch a.Kind {
	case parser.ArgGasCoin:
		return balance{coin: coin{Type: sui.SuiCoinType, FromGas: true, WholeGas: true}}, nil

	case parser.ArgInput:
		v, err := i.input(a)
		if err != nil {
			return balance{}, err
		}
		switch v.Kind {
		case ValObject:
			return balance{
				coin:    coin{Type: v.Object.Type, Amount: v.Object.Amount, FromGas: v.FromGas, Staked: v.Object.Staked},
				amount:  &v.Object.Amount,
				fromGas: &v.FromGas,
			}, nil
		case ValMissing:
			return balance{}, fmt.Errorf("%w: 输入 %d 的对象数据不可用", ErrUnsupported, a.Index)
		case ValObjectRef:
			return balance{}, fmt.Errorf("%w: 输入 %d 尚未查询", ErrUnsupported, a.Index)
		case ValShared, ValReceiving:
			return balance{}, fmt.Errorf("%w: 输入 %d 是 %s 对象", ErrUnsupported, a.Index, v.Kind)
		}
		return balance{}, fmt.Errorf("%w: 输入 %d 是 %s, 不是币", ErrMalformed, a.Index, v.Kind)

	case parser.ArgResult, parser.ArgNestedResult:
		r, err := i.result(a.Index)
		if err != nil {
			return balance{}, err
		}
		nested := a.Kind == parser.ArgNestedResult
		switch r.Kind {
		case ResSplitCoinAmounts:
			sub := int(a.Sub)
			if !nested {
				if len(r.Amounts) != 1 {
					return balance{}, fmt.Errorf("%w: Result(%d) 有 %d 个值", ErrMalformed, a.Index, len(r.Amounts))
				}
				sub = 0
			}
			if sub >= len(r.Amounts) {
				return balance{}, fmt.Errorf("%w: NestedResult(%d,%d) 越界", ErrMalformed, a.Index, a.Sub)
			}
			b := balance{
				coin:    coin{Type: r.Type, Amount: r.Amounts[sub], FromGas: r.FromGas},
				amount:  &r.Amounts[sub],
				fromGas: &r.FromGas,
			}
			if !nested {
				b.promote = func() {
					*r = CommandResult{Kind: ResMergedCoin, Type: r.Type, Amount: r.Amounts[0], FromGas: r.FromGas}
				}
			}
			return b, nil
		case ResMergedCoin, ResStakingPoolSplitCoin:
			if nested && a.Sub != 0 {
				return balance{}, fmt.Errorf("%w: NestedResult(%d,%d) 越界", ErrMalformed, a.Index, a.Sub)
			}
			return balance{
				coin:    coin{Type: r.Type, Amount: r.Amount, FromGas: r.FromGas, Staked: r.Kind == ResStakingPoolSplitCoin},
				amount:  &r.Amount,
				fromGas: &r.FromGas,
			}, nil
		}
		return balance{}, fmt.Errorf("%w: Result(%d) 不是单个币", ErrMalformed, a.Index)
	}
	return balance{}, fmt.Errorf("%w: 参数类型 %d", ErrMalformed, a.Kind)
}

// amountArg 金额必须是字面量输入
func (i *Interpreter) amountArg(a parser.Argument) (uint64, error) {
	if a.Kind != parser.ArgInput {
		return 0, fmt.Errorf("%w: 金额参数是 %s", ErrUnsupported, a.Kind)
	}
	v, err := i.input(a)
	if err != nil {
		return 0, err
	}
	if v.Kind != ValAmount {
		return 0, fmt.Errorf("%w: 输入 %d 是 %s, 不是金额", ErrMalformed, a.Index, v.Kind)
	}
	return v.Amount, nil
}

func (i *Interpreter) addressArg(a parser.Argument) (sui.Address, error) {
	if a.Kind != parser.ArgInput {
		return sui.Address{}, fmt.Errorf("%w: 地址参数是 %s", ErrUnsupported, a.Kind)
	}
	v, err := i.input(a)
	if err != nil {
		return sui.Address{}, err
	}
	if v.Kind != ValAddress {
		return sui.Address{}, fmt.Errorf("%w: 输入 %d 是 %s, 不是地址", ErrMalformed, a.Index, v.Kind)
	}
	return v.Address, nil
}

func (i *Interpreter) optionalAmountArg(a parser.Argument) (uint64, bool, error) {
	if a.Kind != parser.ArgInput {
		return 0, false, fmt.Errorf("%w: Option 参数是 %s", ErrUnsupported, a.Kind)
	}
	v, err := i.input(a)
	if err != nil {
		return 0, false, err
	}
	if v.Kind != ValOptionalAmount {
		return 0, false, fmt.Errorf("%w: 输入 %d 是 %s, 不是 Option<u64>", ErrMalformed, a.Index, v.Kind)
	}
	return v.Amount, v.Some, nil
}

// systemArg 必须是共享对象 0x5
func (i *Interpreter) systemArg(a parser.Argument) error {
	if a.Kind != parser.ArgInput {
		return fmt.Errorf("%w: 系统对象参数是 %s", ErrUnsupported, a.Kind)
	}
	v, err := i.input(a)
	if err != nil {
		return err
	}
	if v.Kind != ValShared || v.Ref.ID != sui.SystemStateObject {
		return fmt.Errorf("%w: 输入 %d 不是系统状态对象", ErrUnsupported, a.Index)
	}
	return nil
}
