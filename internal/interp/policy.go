package interp

import (
	"fmt"

	"sui-signer/internal/sui"
)

// HandlerKind 是允许的 MoveCall 处理方式，每种对应固定的参数约定
type HandlerKind string

const (
	// AddStake [system, coin, validator]
	AddStake HandlerKind = "add_stake"
	// AddStakeMulCoin [system, coins(MakeMoveVec), Option<amount>, validator]
	AddStakeMulCoin HandlerKind = "add_stake_mul_coin"
	// WithdrawStake [system, staked]
	WithdrawStake HandlerKind = "withdraw_stake"
	// StakingPoolSplit [staked, amount]
	StakingPoolSplit HandlerKind = "staking_pool_split"
)

func (k HandlerKind) valid() bool {
	switch k {
	case AddStake, AddStakeMulCoin, WithdrawStake, StakingPoolSplit:
		return true
	}
	return false
}

// CallTarget 标识一个 Move 函数
type CallTarget struct {
	Package  sui.Address
	Module   string
	Function string
}

func (c CallTarget) String() string {
	return fmt.Sprintf("%s::%s::%s", c.Package, c.Module, c.Function)
}

// Policy 是 MoveCall 白名单
type Policy map[CallTarget]HandlerKind

// PolicyEntry 是配置文件中的一条白名单记录
type PolicyEntry struct {
	Package  string
	Module   string
	Function string
	Kind     string
}

// DefaultPolicyEntries 默认只允许质押相关的四个函数
func DefaultPolicyEntries() []PolicyEntry {
	return []PolicyEntry{
		{Package: "0x3", Module: "sui_system", Function: "request_add_stake", Kind: string(AddStake)},
		{Package: "0x3", Module: "sui_system", Function: "request_add_stake_mul_coin", Kind: string(AddStakeMulCoin)},
		{Package: "0x3", Module: "sui_system", Function: "request_withdraw_stake", Kind: string(WithdrawStake)},
		{Package: "0x3", Module: "staking_pool", Function: "split", Kind: string(StakingPoolSplit)},
	}
}

// NewPolicy 从配置记录构造白名单
func NewPolicy(entries []PolicyEntry) (Policy, error) {
	p := make(Policy, len(entries))
	for _, e := range entries {
		pkg, err := sui.ParseAddress(e.Package)
		if err != nil {
			return nil, fmt.Errorf("白名单包地址 %q: %w", e.Package, err)
		}
		kind := HandlerKind(e.Kind)
		if !kind.valid() {
			return nil, fmt.Errorf("白名单处理类型未知: %q", e.Kind)
		}
		p[CallTarget{Package: pkg, Module: e.Module, Function: e.Function}] = kind
	}
	return p, nil
}

// DefaultPolicy 返回默认白名单
func DefaultPolicy() Policy {
	p, err := NewPolicy(DefaultPolicyEntries())
	if err != nil {
		panic(err)
	}
	return p
}

func (p Policy) Lookup(t CallTarget) (HandlerKind, bool) {
	k, ok := p[t]
	return k, ok
}
