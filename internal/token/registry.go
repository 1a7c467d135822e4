package token

import (
	"context"
	"time"

	"sui-signer/internal/sui"
	"sui-signer/pkg/cache"
	"sui-signer/pkg/logger"
	"sui-signer/pkg/monitor"

	"github.com/btcsuite/btcd/btcec/v2"
	"go.uber.org/zap"
)

// DefaultTTL 描述符的默认有效期
const DefaultTTL = 10 * time.Minute

// Registry 保存已校验的描述符，按 CoinType 查询。实现 sui.TokenLookup。
type Registry struct {
	cache   cache.Cache
	trusted *btcec.PublicKey
	ttl     time.Duration
}

var _ sui.TokenLookup = (*Registry)(nil)

// NewRegistry trusted 为 nil 时拒绝所有描述符
func NewRegistry(c cache.Cache, trusted *btcec.PublicKey, ttl time.Duration) *Registry {
	if c == nil {
		c = cache.NewMemoryCache(DefaultTTL, time.Minute)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{cache: c, trusted: trusted, ttl: ttl}
}

// Provide 解析、校验并登记一个描述符参数
func (r *Registry) Provide(ctx context.Context, param []byte) (*Descriptor, error) {
	d, err := ParseParam(param)
	if err == nil {
		err = d.Verify(r.trusted)
	}
	if err != nil {
		monitor.TokenDescriptorsTotal.WithLabelValues("rejected").Inc()
		logger.Warn("拒绝代币描述符", zap.Error(err))
		return nil, err
	}

	ct := d.TUID.CoinType()
	if err := r.cache.Set(ctx, key(ct), d.Info(), r.ttl); err != nil {
		return nil, err
	}
	monitor.TokenDescriptorsTotal.WithLabelValues("accepted").Inc()
	logger.Info("登记代币描述符",
		zap.String("coin_type", ct.String()),
		zap.String("ticker", d.Ticker),
		zap.Uint8("decimals", d.Magnitude),
	)
	return d, nil
}

func (r *Registry) Lookup(ct sui.CoinType) (sui.TokenInfo, bool) {
	var info sui.TokenInfo
	if err := r.cache.Get(context.Background(), key(ct), &info); err != nil {
		return sui.TokenInfo{}, false
	}
	return info, true
}

// Forget 删除一个登记
func (r *Registry) Forget(ctx context.Context, ct sui.CoinType) error {
	return r.cache.Delete(ctx, key(ct))
}

func key(ct sui.CoinType) string {
	return "token:" + ct.String()
}
