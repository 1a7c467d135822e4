package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 键不存在或已过期
var ErrMiss = errors.New("cache miss")

// Cache 定义通用缓存接口
type Cache interface {
	// Set 设置缓存，ttl 为 0 时使用默认过期时间
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get 获取缓存并写入 target，未命中返回 ErrMiss
	Get(ctx context.Context, key string, target any) error
	Delete(ctx context.Context, key string) error
}
