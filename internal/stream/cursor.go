// Package stream 在哈希链接的块链上提供可克隆的读游标
package stream

import (
	"errors"
	"fmt"
	"io"

	"sui-signer/internal/transport"
)

// ErrNeedChunk 表示当前块尚未加载，调用方应按 Want 返回的哈希取块后 Load
var ErrNeedChunk = errors.New("需要加载下一个块")

// Cursor 记录块链上的读位置。克隆共享只读的块数据，互不影响。
type Cursor struct {
	cur    transport.Hash
	data   []byte
	loaded bool
	off    int
	next   transport.Hash
	pos    int
}

// New 从首块哈希开始，ZeroHash 表示空流
func New(head transport.Hash) *Cursor {
	return &Cursor{cur: head}
}

// Want 返回需要加载的块哈希
func (c *Cursor) Want() (transport.Hash, bool) {
	if c.loaded || c.cur.IsZero() {
		return transport.Hash{}, false
	}
	return c.cur, true
}

// Load 加载 Want 请求的块，负载格式为 next(32) || data
func (c *Cursor) Load(payload []byte) error {
	if c.loaded || c.cur.IsZero() {
		return fmt.Errorf("%w: 游标不需要块", transport.ErrBadState)
	}
	if len(payload) < transport.HashLength {
		return fmt.Errorf("%w: 块长度 %d", transport.ErrInvalidCommand, len(payload))
	}
	if got := transport.Sum(payload); got != c.cur {
		return fmt.Errorf("%w: 期望 %s, 得到 %s", transport.ErrHashMismatch, c.cur, got)
	}
	copy(c.next[:], payload)
	c.data = append([]byte(nil), payload[transport.HashLength:]...)
	c.off, c.loaded = 0, true
	return nil
}

// Bytes 返回当前块中未读的字节。流结束返回 io.EOF，块未加载返回 ErrNeedChunk。
func (c *Cursor) Bytes() ([]byte, error) {
	if c.loaded && c.off == len(c.data) {
		c.cur, c.data, c.off, c.loaded = c.next, nil, 0, false
	}
	if !c.loaded {
		if c.cur.IsZero() {
			return nil, io.EOF
		}
		return nil, ErrNeedChunk
	}
	return c.data[c.off:], nil
}

// Advance 标记 n 个字节已读，n 不能超过 Bytes 返回的长度
func (c *Cursor) Advance(n int) {
	if n < 0 || c.off+n > len(c.data) {
		panic(fmt.Sprintf("stream: Advance(%d) 超出当前块剩余 %d", n, len(c.data)-c.off))
	}
	c.off += n
	c.pos += n
}

// Pos 返回从流开头起已读的字节数
func (c *Cursor) Pos() int { return c.pos }

// Clone 返回独立的游标
func (c *Cursor) Clone() *Cursor {
	cp := *c
	return &cp
}
