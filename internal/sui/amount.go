package sui

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatAmount 把最小单位的整数金额按小数位数格式化，去掉末尾多余的 0
func FormatAmount(amount uint64, decimals uint8) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
	return d.String()
}

// TokenInfo 是可信代币描述符提供的显示信息
type TokenInfo struct {
	Ticker   string
	Decimals uint8
}

// TokenLookup 根据 CoinType 查询已注册的代币信息
type TokenLookup interface {
	Lookup(ct CoinType) (TokenInfo, bool)
}

// KnownToken 返回 SUI 或已注册代币的显示信息
func KnownToken(ct CoinType, tokens TokenLookup) (TokenInfo, bool) {
	if ct == SuiCoinType {
		return TokenInfo{Ticker: "SUI", Decimals: SuiDecimals}, true
	}
	if tokens != nil {
		return tokens.Lookup(ct)
	}
	return TokenInfo{}, false
}

// CoinLabel 未知代币显示为 module::name，各自截断到 16 字符
func CoinLabel(ct CoinType) string {
	return fmt.Sprintf("%s::%s", truncate(ct.Module), truncate(ct.Name))
}

func truncate(s string) string {
	if len(s) > CoinStringLength {
		return s[:CoinStringLength]
	}
	return s
}

// DisplayAmount 返回 (标题, 值)，已知代币显示为 "SUI 1.5"，未知代币显示原始整数
func DisplayAmount(amount uint64, ct CoinType, tokens TokenLookup) (string, string) {
	if info, ok := KnownToken(ct, tokens); ok {
		return "Amount", fmt.Sprintf("%s %s", info.Ticker, FormatAmount(amount, info.Decimals))
	}
	return "Raw Amount", fmt.Sprintf("%d", amount)
}
