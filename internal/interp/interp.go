// Package interp 解释 PTB 命令，维护符号表并把交易归类为 Transfer / Stake / Unstake。
// 任何无法确定效果的交易都归为 Unknown，由调用方走盲签流程。
package interp

import (
	"fmt"

	"sui-signer/internal/governor"
	"sui-signer/internal/parser"
	"sui-signer/internal/sui"
)

// Interpreter 实现 parser.TxHandler。一次签名尝试使用一个实例，不可复用。
type Interpreter struct {
	gov    *governor.Governor
	policy Policy

	inputs   []InputValue
	results  []CommandResult
	admitted int // 已准入的命令数，查询后重试同一命令时不重复计费

	sender   sui.Address
	gas      parser.GasData
	gasObjs  []*sui.ObjectData
	gasKnown []bool
	expiry   parser.Expiration

	pending []sui.ObjectDigest

	kind         TxKind
	recipient    sui.Address
	total        TotalCoinAmount
	splitFromGas uint64
	addedToGas   uint64

	known    KnownTx
	finished bool
}

var _ parser.TxHandler = (*Interpreter)(nil)

// New policy 为 nil 时使用 DefaultPolicy
func New(gov *governor.Governor, policy Policy) *Interpreter {
	if gov == nil {
		gov = governor.New(governor.DefaultCeiling)
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Interpreter{gov: gov, policy: policy}
}

func (i *Interpreter) Input(idx int, arg parser.CallArg) error {
	if err := i.gov.Admit(governor.InputCost + len(arg.Pure)); err != nil {
		return err
	}
	i.inputs = append(i.inputs, newInputValue(arg))
	return nil
}

func (i *Interpreter) Command(idx int, cmd parser.Command) error {
	if idx >= i.admitted {
		if err := i.gov.Admit(governor.CommandCost + governor.ArgCost*len(cmd.Args)); err != nil {
			return err
		}
		i.admitted = idx + 1
	}
	if i.collect(cmd) {
		return parser.ErrObjectLookup
	}

	var (
		res CommandResult
		err error
	)
	switch cmd.Kind {
	case parser.CmdTransferObjects:
		err = i.transfer(cmd)
	case parser.CmdSplitCoins:
		res, err = i.split(cmd)
	case parser.CmdMergeCoins:
		err = i.merge(cmd)
	case parser.CmdMakeMoveVec:
		res, err = i.makeMoveVec(cmd)
	case parser.CmdMoveCall:
		res, err = i.moveCall(cmd)
	default:
		err = fmt.Errorf("%w: 命令 %s", ErrUnsupported, cmd.Kind)
	}
	if err != nil {
		return fmt.Errorf("命令 %d (%s): %w", idx, cmd.Kind, err)
	}
	if err := i.gov.Admit(governor.ResultCost + 8*len(res.Amounts)); err != nil {
		return err
	}
	i.results = append(i.results, res)
	return nil
}

// collect 收集命令引用但尚未查询的输入对象，有则返回 true
func (i *Interpreter) collect(cmd parser.Command) bool {
	i.pending = i.pending[:0]
	args := cmd.Args
	if cmd.Kind == parser.CmdSplitCoins || cmd.Kind == parser.CmdMergeCoins {
		args = append([]parser.Argument{cmd.Target}, args...)
	}
	for _, a := range args {
		if a.Kind != parser.ArgInput || int(a.Index) >= len(i.inputs) {
			continue
		}
		if v := i.inputs[a.Index]; v.Kind == ValObjectRef {
			i.want(v.Ref.Digest)
		}
	}
	return len(i.pending) > 0
}

func (i *Interpreter) want(d sui.ObjectDigest) {
	for _, p := range i.pending {
		if p == d {
			return
		}
	}
	i.pending = append(i.pending, d)
}

// Required 返回当前暂停所等待的对象摘要
func (i *Interpreter) Required() []sui.ObjectDigest {
	out := make([]sui.ObjectDigest, len(i.pending))
	copy(out, i.pending)
	return out
}

// Provide 提供一个对象的查询结果，data 为 nil 表示对象流中没有找到或不是币对象
func (i *Interpreter) Provide(digest sui.ObjectDigest, data *sui.ObjectData) {
	for k := range i.inputs {
		v := &i.inputs[k]
		if v.Kind != ValObjectRef || v.Ref.Digest != digest {
			continue
		}
		if data == nil {
			v.Kind = ValMissing
		} else {
			v.Kind, v.Object = ValObject, *data
		}
	}
	for k, ref := range i.gas.Payment {
		if ref.Digest == digest {
			i.gasObjs[k], i.gasKnown[k] = data, true
		}
	}
	for k, p := range i.pending {
		if p == digest {
			i.pending = append(i.pending[:k], i.pending[k+1:]...)
			break
		}
	}
}

func (i *Interpreter) Sender(addr sui.Address) error {
	i.sender = addr
	return nil
}

func (i *Interpreter) GasData(gas parser.GasData) error {
	if err := i.gov.Admit(governor.InputCost * len(gas.Payment)); err != nil {
		return err
	}
	i.gas = gas
	i.gasObjs = make([]*sui.ObjectData, len(gas.Payment))
	i.gasKnown = make([]bool, len(gas.Payment))
	return nil
}

func (i *Interpreter) Expiration(exp parser.Expiration) error {
	i.expiry = exp
	return nil
}

// Result 在解析完成后返回分类结果
func (i *Interpreter) Result() (KnownTx, bool) {
	return i.known, i.finished
}

// Expiry 返回交易的过期 epoch
func (i *Interpreter) Expiry() parser.Expiration { return i.expiry }

// GasPrice 返回交易声明的 gas 单价
func (i *Interpreter) GasPrice() uint64 { return i.gas.Price }
