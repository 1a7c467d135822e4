package device

import (
	"sync"

	"sui-signer/internal/sui"
)

// StaticSettings 固定的设置
type StaticSettings struct {
	BlindSigning bool
}

func (s StaticSettings) BlindSigningEnabled() bool { return s.BlindSigning }

// AutoApprover 按预设结果应答所有确认，并记录最近一次看到的内容。用于模拟器和测试。
type AutoApprover struct {
	Approve bool

	mu        sync.Mutex
	addresses []sui.Address
	summaries []Summary
	blind     []string
}

func (a *AutoApprover) ConfirmAddress(addr sui.Address) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addresses = append(a.addresses, addr)
	return a.Approve
}

func (a *AutoApprover) ConfirmTransaction(s Summary) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summaries = append(a.summaries, s)
	return a.Approve
}

func (a *AutoApprover) ConfirmBlindSign(digest string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blind = append(a.blind, digest)
	return a.Approve
}

// LastSummary 最近一次交易确认的内容
func (a *AutoApprover) LastSummary() (Summary, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.summaries) == 0 {
		return Summary{}, false
	}
	return a.summaries[len(a.summaries)-1], true
}

// LastBlindSign 最近一次盲签确认的摘要
func (a *AutoApprover) LastBlindSign() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.blind) == 0 {
		return "", false
	}
	return a.blind[len(a.blind)-1], true
}

// Addresses 已确认过的地址
func (a *AutoApprover) Addresses() []sui.Address {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]sui.Address(nil), a.addresses...)
}
