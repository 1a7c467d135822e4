package parser

import (
	"errors"
	"fmt"

	"sui-signer/internal/sui"
	"sui-signer/pkg/bcs"
)

// ErrObjectLookup 表示解析暂停，等待调用方提供对象数据后再次 Feed
var ErrObjectLookup = errors.New("object lookup required")

// TxHandler 接收按顺序解析出的交易字段
type TxHandler interface {
	Input(idx int, arg CallArg) error
	// Command 返回 ErrObjectLookup 时解析器会在下一次 Feed 时重新提交同一条命令
	Command(idx int, cmd Command) error
	Sender(addr sui.Address) error
	GasData(gas GasData) error
	Expiration(exp Expiration) error
	// Finish 同样可以返回 ErrObjectLookup
	Finish() error
}

type Phase uint8

const (
	PhaseIntent Phase = iota
	PhaseDataTag
	PhaseKindTag
	PhaseInputCount
	PhaseInput
	PhaseCommandCount
	PhaseCommand
	PhaseCommandApply
	PhaseSender
	PhaseGas
	PhaseExpiration
	PhaseFinalize
	PhaseDone
)

var phaseNames = [...]string{
	"Intent", "DataTag", "KindTag", "InputCount", "Input", "CommandCount",
	"Command", "CommandApply", "Sender", "Gas", "Expiration", "Finalize", "Done",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "Invalid"
}

// TxParser 按 Intent → TransactionData → Kind → Inputs → Commands → Sender → GasData → Expiration
// 的固定顺序解析交易，每个字段解析完成后交给 TxHandler。
type TxParser struct {
	h     TxHandler
	phase Phase
	cur   bcs.Feeder

	count   int
	idx     int
	pending Command
}

func NewTxParser(h TxHandler) *TxParser {
	return &TxParser{h: h}
}

func (p *TxParser) Phase() Phase { return p.phase }

func (p *TxParser) Done() bool { return p.phase == PhaseDone }

// Feed 遵循 bcs 的 Feed 约定，另外可能返回 ErrObjectLookup:
// 此时已消费 n 字节，调用方提供对象数据后应以 in[n:] 继续调用。
func (p *TxParser) Feed(in []byte) (int, error) {
	total := 0
	for p.phase != PhaseDone {
		if p.phase == PhaseCommandApply || p.phase == PhaseFinalize {
			if err := p.apply(); err != nil {
				return total, err
			}
			continue
		}
		if p.cur == nil {
			p.cur = p.decoder()
		}
		n, err := p.cur.Feed(in[total:])
		total += n
		if err != nil {
			return total, err
		}
		if err := p.complete(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func (p *TxParser) decoder() bcs.Feeder {
	switch p.phase {
	case PhaseIntent:
		return newIntent()
	case PhaseDataTag, PhaseKindTag, PhaseInputCount, PhaseCommandCount:
		return &bcs.Uleb32{}
	case PhaseInput:
		return NewCallArg()
	case PhaseCommand:
		return NewCommand()
	case PhaseSender:
		return NewAddress()
	case PhaseGas:
		return NewGasData()
	case PhaseExpiration:
		return NewExpiration()
	}
	return nil
}

// newIntent 要求 (scope, version, app_id) 均为 0
func newIntent() bcs.Feeder {
	parts := [3]bcs.Uleb32{}
	return check(bcs.Seq(&parts[0], &parts[1], &parts[2]), func() error {
		for i := range parts {
			if parts[i].Value() != 0 {
				return fmt.Errorf("%w: intent[%d] = %d", sui.ErrMalformed, i, parts[i].Value())
			}
		}
		return nil
	})
}

func (p *TxParser) complete() error {
	done := p.cur
	p.cur = nil

	switch p.phase {
	case PhaseIntent:
		p.phase = PhaseDataTag

	case PhaseDataTag, PhaseKindTag:
		if v := done.(*bcs.Uleb32).Value(); v != 0 {
			return fmt.Errorf("%w: %s 变体 %d", sui.ErrUnsupported, p.phase, v)
		}
		p.phase++

	case PhaseInputCount, PhaseCommandCount:
		limit := MaxInputs
		if p.phase == PhaseCommandCount {
			limit = MaxCommands
		}
		n := int(done.(*bcs.Uleb32).Value())
		if n > limit {
			return fmt.Errorf("%w: %s %d > %d", bcs.ErrTooMany, p.phase, n, limit)
		}
		p.count, p.idx = n, 0
		p.phase++ // Input / Command
		if n == 0 {
			p.phase = p.afterList()
		}

	case PhaseInput:
		if err := p.h.Input(p.idx, done.(bcs.Decoder[CallArg]).Value()); err != nil {
			return err
		}
		p.idx++
		if p.idx == p.count {
			p.phase = PhaseCommandCount
		}

	case PhaseCommand:
		p.pending = done.(bcs.Decoder[Command]).Value()
		p.phase = PhaseCommandApply

	case PhaseSender:
		if err := p.h.Sender(done.(bcs.Decoder[sui.Address]).Value()); err != nil {
			return err
		}
		p.phase = PhaseGas

	case PhaseGas:
		if err := p.h.GasData(done.(bcs.Decoder[GasData]).Value()); err != nil {
			return err
		}
		p.phase = PhaseExpiration

	case PhaseExpiration:
		if err := p.h.Expiration(done.(bcs.Decoder[Expiration]).Value()); err != nil {
			return err
		}
		p.phase = PhaseFinalize
	}
	return nil
}

// afterList 返回空列表之后的阶段
func (p *TxParser) afterList() Phase {
	if p.phase == PhaseInput {
		return PhaseCommandCount
	}
	return PhaseSender
}

func (p *TxParser) apply() error {
	switch p.phase {
	case PhaseCommandApply:
		if err := p.h.Command(p.idx, p.pending); err != nil {
			return err
		}
		p.pending = Command{}
		p.idx++
		if p.idx == p.count {
			p.phase = PhaseSender
		} else {
			p.phase = PhaseCommand
		}
	case PhaseFinalize:
		if err := p.h.Finish(); err != nil {
			return err
		}
		p.phase = PhaseDone
	}
	return nil
}
