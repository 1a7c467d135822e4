package device

import (
	"fmt"
	"strings"

	"sui-signer/internal/interp"
	"sui-signer/internal/sui"
)

// Field 确认界面上的一行
type Field struct {
	Title string
	Value string
}

// Summary 交给用户确认的交易摘要
type Summary struct {
	Kind   interp.TxKind
	Fields []Field
}

func (s Summary) String() string {
	var sb strings.Builder
	sb.WriteString(s.Kind.String())
	for _, f := range s.Fields {
		fmt.Fprintf(&sb, "\n  %s: %s", f.Title, f.Value)
	}
	return sb.String()
}

// Get 按标题取值
func (s Summary) Get(title string) (string, bool) {
	for _, f := range s.Fields {
		if f.Title == title {
			return f.Value, true
		}
	}
	return "", false
}

// NewSummary 根据分类结果生成确认界面内容，from 为签名密钥对应的地址
func NewSummary(tx interp.KnownTx, from sui.Address, tokens sui.TokenLookup) Summary {
	s := Summary{Kind: tx.Kind}
	add := func(title, value string) {
		s.Fields = append(s.Fields, Field{Title: title, Value: value})
	}

	switch tx.Kind {
	case interp.TxTransfer:
		add("From", from.String())
		add("To", tx.Recipient.String())
		if tx.CoinType != sui.SuiCoinType {
			label := sui.CoinLabel(tx.CoinType)
			if info, ok := sui.KnownToken(tx.CoinType, tokens); ok {
				label = info.Ticker
			}
			add("Coin", label)
		}
		add(sui.DisplayAmount(tx.TotalAmount, tx.CoinType, tokens))
	case interp.TxStake:
		add("From", from.String())
		add("Validator", tx.Recipient.String())
		add(sui.DisplayAmount(tx.TotalAmount, sui.SuiCoinType, nil))
	case interp.TxUnstake:
		add("From", from.String())
		add(sui.DisplayAmount(tx.TotalAmount, sui.SuiCoinType, nil))
	}
	add("Max Gas", "SUI "+sui.FormatAmount(tx.GasBudget, sui.SuiDecimals))
	return s
}
