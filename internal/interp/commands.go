package interp

import (
	"fmt"

	"sui-signer/internal/parser"
	"sui-signer/internal/sui"
)

func (i *Interpreter) transfer(cmd parser.Command) error {
	if i.kind == TxStake || i.kind == TxUnstake {
		return fmt.Errorf("%w: 质押交易中包含转账", ErrUnsupported)
	}
	to, err := i.addressArg(cmd.Target)
	if err != nil {
		return err
	}
	if i.kind == TxTransfer && to != i.recipient {
		return fmt.Errorf("%w: 多个接收地址 %s, %s", ErrUnsupported, i.recipient, to)
	}
	for _, a := range cmd.Args {
		c, err := i.resolveCoin(a)
		if err != nil {
			return err
		}
		if c.Staked {
			return fmt.Errorf("%w: 转移 StakedSui", ErrUnsupported)
		}
		if err := i.total.add(c); err != nil {
			return err
		}
	}
	i.kind, i.recipient = TxTransfer, to
	return nil
}

func (i *Interpreter) split(cmd parser.Command) (CommandResult, error) {
	src, err := i.slot(cmd.Target)
	if err != nil {
		return CommandResult{}, err
	}
	if src.Staked {
		return CommandResult{}, fmt.Errorf("%w: SplitCoins 作用于 StakedSui", ErrUnsupported)
	}

	amounts := make([]uint64, 0, len(cmd.Args))
	var sum uint64
	for _, a := range cmd.Args {
		v, err := i.amountArg(a)
		if err != nil {
			return CommandResult{}, err
		}
		if sum, err = addAmount(sum, v); err != nil {
			return CommandResult{}, err
		}
		amounts = append(amounts, v)
	}

	if src.amount == nil {
		if i.splitFromGas, err = addAmount(i.splitFromGas, sum); err != nil {
			return CommandResult{}, err
		}
	} else {
		left, err := subAmount(*src.amount, sum)
		if err != nil {
			return CommandResult{}, err
		}
		*src.amount = left
	}
	return CommandResult{Kind: ResSplitCoinAmounts, Type: src.Type, Amounts: amounts, FromGas: src.FromGas}, nil
}

func (i *Interpreter) merge(cmd parser.Command) error {
	dst, err := i.slot(cmd.Target)
	if err != nil {
		return err
	}
	if dst.Staked {
		return fmt.Errorf("%w: MergeCoins 目标是 StakedSui", ErrUnsupported)
	}

	var (
		sum     uint64
		fromGas bool
	)
	for _, a := range cmd.Args {
		if a.Kind == parser.ArgGasCoin {
			return fmt.Errorf("%w: GasCoin 不能作为 MergeCoins 的源", ErrMalformed)
		}
		c, err := i.resolveCoin(a)
		if err != nil {
			return err
		}
		if c.Staked {
			return fmt.Errorf("%w: 合并 StakedSui", ErrUnsupported)
		}
		if c.Type != dst.Type {
			return fmt.Errorf("%w: 币种不一致 %s != %s", ErrUnsupported, c.Type, dst.Type)
		}
		if sum, err = addAmount(sum, c.Amount); err != nil {
			return err
		}
		fromGas = fromGas || c.FromGas
	}

	if dst.amount == nil {
		i.addedToGas, err = addAmount(i.addedToGas, sum)
		return err
	}
	total, err := addAmount(*dst.amount, sum)
	if err != nil {
		return err
	}
	*dst.amount = total
	*dst.fromGas = *dst.fromGas || fromGas
	if dst.promote != nil {
		dst.promote()
	}
	return nil
}

func (i *Interpreter) makeMoveVec(cmd parser.Command) (CommandResult, error) {
	var total TotalCoinAmount
	if t := cmd.ElemType; t != nil {
		ct, ok := coinElemType(t)
		if !ok {
			return CommandResult{}, fmt.Errorf("%w: MakeMoveVec 元素类型不是 Coin", ErrUnsupported)
		}
		// 显式元素类型先定下币种，元素必须一致
		total.Type, total.typed = ct, true
	}
	for _, a := range cmd.Args {
		c, err := i.resolveCoin(a)
		if err != nil {
			return CommandResult{}, err
		}
		if c.Staked {
			return CommandResult{}, fmt.Errorf("%w: MakeMoveVec 包含 StakedSui", ErrUnsupported)
		}
		if err := total.add(c); err != nil {
			return CommandResult{}, err
		}
	}
	return CommandResult{Kind: ResMoveVecMergedCoin, Type: total.Type, Total: total}, nil
}

// coinElemType 从 0x2::coin::Coin<T> 中取出 T
func coinElemType(t *parser.TypeTag) (sui.CoinType, bool) {
	if t.Kind != parser.TagStruct || t.Struct == nil || !t.Struct.IsCoin() || len(t.Struct.TypeParams) != 1 {
		return sui.CoinType{}, false
	}
	p := t.Struct.TypeParams[0]
	if p.Kind != parser.TagStruct || p.Struct == nil || len(p.Struct.TypeParams) != 0 {
		return sui.CoinType{}, false
	}
	return sui.CoinType{Package: p.Struct.Address, Module: p.Struct.Module, Name: p.Struct.Name}, true
}

func (i *Interpreter) moveCall(cmd parser.Command) (CommandResult, error) {
	target := CallTarget{Package: cmd.Call.Package, Module: cmd.Call.Module, Function: cmd.Call.Function}
	kind, ok := i.policy.Lookup(target)
	if !ok {
		return CommandResult{}, fmt.Errorf("%w: 未授权的调用 %s", ErrUnsupported, target)
	}
	if len(cmd.Call.TypeArgs) > 0 {
		return CommandResult{}, fmt.Errorf("%w: %s 带类型参数", ErrUnsupported, target)
	}
	if i.kind == TxTransfer {
		return CommandResult{}, fmt.Errorf("%w: 转账交易中包含 %s", ErrUnsupported, target)
	}
	if want := argCount(kind); len(cmd.Args) != want {
		return CommandResult{}, fmt.Errorf("%w: %s 需要 %d 个参数, 得到 %d", ErrMalformed, target, want, len(cmd.Args))
	}

	args := cmd.Args
	switch kind {
	case AddStake:
		if err := i.systemArg(args[0]); err != nil {
			return CommandResult{}, err
		}
		c, err := i.resolveCoin(args[1])
		if err != nil {
			return CommandResult{}, err
		}
		if c.Staked || c.Type != sui.SuiCoinType {
			return CommandResult{}, fmt.Errorf("%w: 质押的不是 SUI", ErrUnsupported)
		}
		validator, err := i.addressArg(args[2])
		if err != nil {
			return CommandResult{}, err
		}
		var t TotalCoinAmount
		if err := t.add(c); err != nil {
			return CommandResult{}, err
		}
		return CommandResult{}, i.stake(validator, t)

	case AddStakeMulCoin:
		if err := i.systemArg(args[0]); err != nil {
			return CommandResult{}, err
		}
		if args[1].Kind != parser.ArgResult {
			return CommandResult{}, fmt.Errorf("%w: 币参数不是 MakeMoveVec 结果", ErrUnsupported)
		}
		r, err := i.result(args[1].Index)
		if err != nil {
			return CommandResult{}, err
		}
		if r.Kind != ResMoveVecMergedCoin {
			return CommandResult{}, fmt.Errorf("%w: Result(%d) 不是 MakeMoveVec 结果", ErrMalformed, args[1].Index)
		}
		if !r.Total.typed || r.Total.Type != sui.SuiCoinType {
			return CommandResult{}, fmt.Errorf("%w: 质押的不是 SUI", ErrUnsupported)
		}
		amount, some, err := i.optionalAmountArg(args[2])
		if err != nil {
			return CommandResult{}, err
		}
		validator, err := i.addressArg(args[3])
		if err != nil {
			return CommandResult{}, err
		}
		t := r.Total
		if some {
			if !t.wholeGas && amount > t.Total {
				return CommandResult{}, fmt.Errorf("%w: 质押金额 %d 超过余额 %d", ErrUnsupported, amount, t.Total)
			}
			t.Total, t.wholeGas = amount, false
		}
		return CommandResult{}, i.stake(validator, t)

	case WithdrawStake:
		if err := i.systemArg(args[0]); err != nil {
			return CommandResult{}, err
		}
		c, err := i.resolveCoin(args[1])
		if err != nil {
			return CommandResult{}, err
		}
		if !c.Staked {
			return CommandResult{}, fmt.Errorf("%w: 赎回的不是 StakedSui", ErrUnsupported)
		}
		return CommandResult{}, i.unstake(c.Amount)

	case StakingPoolSplit:
		src, err := i.slot(args[0])
		if err != nil {
			return CommandResult{}, err
		}
		if !src.Staked {
			return CommandResult{}, fmt.Errorf("%w: 拆分的不是 StakedSui", ErrUnsupported)
		}
		amount, err := i.amountArg(args[1])
		if err != nil {
			return CommandResult{}, err
		}
		left, err := subAmount(*src.amount, amount)
		if err != nil {
			return CommandResult{}, err
		}
		*src.amount = left
		return CommandResult{Kind: ResStakingPoolSplitCoin, Type: sui.SuiCoinType, Amount: amount}, nil
	}
	return CommandResult{}, fmt.Errorf("%w: 处理类型 %s", ErrUnsupported, kind)
}

func argCount(k HandlerKind) int {
	switch k {
	case AddStake:
		return 3
	case AddStakeMulCoin:
		return 4
	case WithdrawStake, StakingPoolSplit:
		return 2
	}
	return -1
}

func (i *Interpreter) stake(validator sui.Address, t TotalCoinAmount) error {
	switch {
	case i.kind == TxUnstake:
		return fmt.Errorf("%w: 同时质押和赎回", ErrUnsupported)
	case i.kind == TxStake && validator != i.recipient:
		return fmt.Errorf("%w: 多个验证者 %s, %s", ErrUnsupported, i.recipient, validator)
	}
	if err := i.total.merge(t); err != nil {
		return err
	}
	i.kind, i.recipient = TxStake, validator
	return nil
}

func (i *Interpreter) unstake(amount uint64) error {
	if i.kind == TxStake {
		return fmt.Errorf("%w: 同时质押和赎回", ErrUnsupported)
	}
	if err := i.total.add(coin{Type: sui.SuiCoinType, Amount: amount}); err != nil {
		return err
	}
	i.kind = TxUnstake
	return nil
}
