package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrUnexpectedFrame = errors.New("设备返回了未知帧")

// Store 是主机端按哈希索引的块存储
type Store struct {
	mu     sync.RWMutex
	chunks map[Hash][]byte
}

func NewStore() *Store {
	return &Store{chunks: make(map[Hash][]byte)}
}

// Put 保存一个块并返回其哈希
func (s *Store) Put(chunk []byte) Hash {
	h := Sum(chunk)
	s.mu.Lock()
	s.chunks[h] = append([]byte(nil), chunk...)
	s.mu.Unlock()
	return h
}

func (s *Store) Get(h Hash) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[h]
	return c, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Chain 把 data 切成 ChunkSize 大小的块，以 sha256(next||data) 反向链接。
// 返回的块按尾块在前的顺序排列，最后一个是首块。空数据返回 nil。
func Chain(data []byte) [][]byte {
	var chunks [][]byte
	next := ZeroHash
	for end := len(data); end > 0; {
		start := (end - 1) / ChunkSize * ChunkSize
		chunk := make([]byte, 0, HashLength+end-start)
		chunk = append(chunk, next[:]...)
		chunk = append(chunk, data[start:end]...)
		chunks = append(chunks, chunk)
		next = Sum(chunk)
		end = start
	}
	return chunks
}

// AddParam 保存参数的块链并返回首块哈希，空参数返回 ZeroHash
func (s *Store) AddParam(param []byte) Hash {
	head := ZeroHash
	for _, chunk := range Chain(param) {
		head = s.Put(chunk)
	}
	return head
}

// ReadParam 从首块哈希开始沿链读出完整数据
func (s *Store) ReadParam(head Hash) ([]byte, error) {
	var out []byte
	for h := head; !h.IsZero(); {
		chunk, ok := s.Get(h)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, h)
		}
		if len(chunk) < HashLength {
			return nil, fmt.Errorf("%w: 块长度 %d", ErrInvalidCommand, len(chunk))
		}
		out = append(out, chunk[HashLength:]...)
		copy(h[:], chunk[:HashLength])
	}
	return out, nil
}

// Exchanger 发送一条 APDU 数据并返回状态字为成功时的响应数据
type Exchanger interface {
	Exchange(ctx context.Context, data []byte) ([]byte, error)
}

type ExchangeFunc func(ctx context.Context, data []byte) ([]byte, error)

func (f ExchangeFunc) Exchange(ctx context.Context, data []byte) ([]byte, error) {
	return f(ctx, data)
}

// Host 驱动主机端的块协议
type Host struct {
	ex    Exchanger
	store *Store
	// written 是上一次 Run 中设备最后写入的块，即设备写出数据的首块
	written Hash
}

func NewHost(ex Exchanger, store *Store) *Host {
	if store == nil {
		store = NewStore()
	}
	return &Host{ex: ex, store: store}
}

func (h *Host) Store() *Store { return h.store }

// Written 返回上一次 Run 中设备写给主机的数据，没有时返回 nil
func (h *Host) Written() ([]byte, error) {
	return h.store.ReadParam(h.written)
}

// Run 以给定参数执行一条指令，直到设备返回最终结果
func (h *Host) Run(ctx context.Context, params ...[]byte) ([]byte, error) {
	if len(params) == 0 {
		params = [][]byte{nil}
	}
	if len(params) > MaxParams {
		return nil, fmt.Errorf("%w: %d 个参数", ErrInvalidCommand, len(params))
	}
	payload := []byte{CmdStart}
	for _, p := range params {
		head := h.store.AddParam(p)
		payload = append(payload, head[:]...)
	}

	var result []byte
	h.written = ZeroHash
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := h.ex.Exchange(ctx, payload)
		if err != nil {
			return nil, err
		}
		if len(resp) == 0 {
			return nil, fmt.Errorf("%w: 空响应", ErrUnexpectedFrame)
		}
		frame, body := resp[0], resp[1:]

		switch frame {
		case FrameResultAccumulating:
			result = append(result, body...)
			payload = []byte{CmdResultAccumulatingResponse}
		case FrameResultFinal:
			return append(result, body...), nil
		case FrameGetChunk:
			if len(body) != HashLength {
				return nil, fmt.Errorf("%w: GetChunk 长度 %d", ErrUnexpectedFrame, len(body))
			}
			chunk, ok := h.store.Get(Hash(body))
			if ok {
				payload = append([]byte{CmdGetChunkSuccess}, chunk...)
			} else {
				payload = []byte{CmdGetChunkFailure}
			}
		case FramePutChunk:
			h.written = h.store.Put(body)
			payload = []byte{CmdPutChunkResponse}
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnexpectedFrame, frame)
		}
	}
}
