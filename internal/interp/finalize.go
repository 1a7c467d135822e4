package interp

import (
	"fmt"

	"sui-signer/internal/parser"
	"sui-signer/internal/sui"
)

// Finish 确定分类。整个 GasCoin 参与聚合时需要所有 gas 支付对象的数据，
// 余额 = Σ支付对象 + 合并进 GasCoin 的金额 - 从 GasCoin 拆出的金额，不做任何近似。
func (i *Interpreter) Finish() error {
	if i.finished {
		return nil
	}
	if i.kind == TxUnknown || !i.total.typed {
		return fmt.Errorf("%w: 交易无法归类", ErrUnsupported)
	}

	total := i.total
	if total.wholeGas {
		i.pending = i.pending[:0]
		for k, ref := range i.gas.Payment {
			if !i.gasKnown[k] {
				i.want(ref.Digest)
			}
		}
		if len(i.pending) > 0 {
			return parser.ErrObjectLookup
		}

		var sum uint64
		for k, obj := range i.gasObjs {
			if obj == nil {
				return fmt.Errorf("%w: gas 支付对象 %d 不可用", ErrUnsupported, k)
			}
			if obj.Staked || obj.Type != sui.SuiCoinType {
				return fmt.Errorf("%w: gas 支付对象 %d 不是 SUI", ErrUnsupported, k)
			}
			var err error
			if sum, err = addAmount(sum, obj.Amount); err != nil {
				return err
			}
		}
		sum, err := addAmount(sum, i.addedToGas)
		if err != nil {
			return err
		}
		bal, err := subAmount(sum, i.splitFromGas)
		if err != nil {
			return err
		}
		if total.Total, err = addAmount(total.Total, bal); err != nil {
			return err
		}
	}

	i.known = KnownTx{
		Kind:            i.kind,
		Sender:          i.sender,
		Recipient:       i.recipient,
		CoinType:        total.Type,
		TotalAmount:     total.Total,
		IncludesGasCoin: total.IncludesGasCoin,
		GasBudget:       i.gas.Budget,
	}
	i.finished = true
	return nil
}
