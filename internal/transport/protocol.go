// Package transport 实现基于内容寻址分块的 APDU 块协议。
// 设备端 Protocol 是半双工状态机，主机端 Host 负责分块、应答取块请求并拼接结果。
package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	HashLength = 32
	// ChunkSize 主机端每块携带的数据长度
	ChunkSize = 180
	// MaxFrame 单个结果帧的最大负载
	MaxFrame = 250
	// MaxParams Start 最多携带的参数个数
	MaxParams = 3
)

// Hash 是块的 sha256 标识，全零表示链尾 (或空参数)
type Hash [HashLength]byte

var ZeroHash Hash

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == ZeroHash }

// Sum 计算块标识
func Sum(b []byte) Hash { return sha256.Sum256(b) }

// 主机 → 设备命令 (数据首字节)
const (
	CmdStart byte = iota
	CmdGetChunkSuccess
	CmdGetChunkFailure
	CmdPutChunkResponse
	CmdResultAccumulatingResponse
)

// 设备 → 主机帧类型 (响应首字节)
const (
	FrameResultAccumulating byte = iota
	FrameResultFinal
	FrameGetChunk
	FramePutChunk
)

var (
	ErrInvalidCommand = errors.New("无效的块协议命令")
	ErrHashMismatch   = errors.New("块哈希不匹配")
	ErrChunkNotFound  = errors.New("主机没有请求的块")
	ErrBadState       = errors.New("块协议状态错误")
)

type State uint8

const (
	StateIdle State = iota
	StateWaitingChunk
	StateWaitingPutResponse
	StateWaitingResultResponse
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateWaitingChunk:
		return "WaitingChunk"
	case StateWaitingPutResponse:
		return "WaitingPutResponse"
	case StateWaitingResultResponse:
		return "WaitingResultResponse"
	}
	return "Invalid"
}

type EventKind uint8

const (
	// EventStart 主机开始一条指令，Params 为各参数的首块哈希
	EventStart EventKind = iota
	// EventChunk 收到请求的块，已通过哈希校验
	EventChunk
	// EventPutAck 主机已保存设备写出的块
	EventPutAck
	// EventFrame 结果尚未发完，Frame 是下一帧
	EventFrame
)

// Event 是 ProcessCommand 的处理结果
type Event struct {
	Kind    EventKind
	Params  []Hash
	Payload []byte // EventChunk: next(32) || data
	Frame   []byte // EventFrame
}

// Protocol 是设备端状态机，一次只处理一个方向的交换
type Protocol struct {
	state     State
	requested Hash
	pending   []byte // 还没有发出的结果
}

func NewProtocol() *Protocol { return &Protocol{} }

func (p *Protocol) State() State { return p.state }

// Reset 放弃当前交换
func (p *Protocol) Reset() {
	p.state, p.requested, p.pending = StateIdle, ZeroHash, nil
}

// ProcessCommand 处理一条 APDU 的数据部分。返回错误时状态机已复位。
func (p *Protocol) ProcessCommand(data []byte) (Event, error) {
	ev, err := p.process(data)
	if err != nil {
		p.Reset()
	}
	return ev, err
}

func (p *Protocol) process(data []byte) (Event, error) {
	if len(data) == 0 {
		return Event{}, fmt.Errorf("%w: 空命令", ErrInvalidCommand)
	}
	cmd, payload := data[0], data[1:]

	switch cmd {
	case CmdStart:
		// 任何状态下 Start 都重新开始
		p.Reset()
		n := len(payload) / HashLength
		if len(payload)%HashLength != 0 || n < 1 || n > MaxParams {
			return Event{}, fmt.Errorf("%w: Start 负载长度 %d", ErrInvalidCommand, len(payload))
		}
		params := make([]Hash, n)
		for i := range params {
			copy(params[i][:], payload[i*HashLength:])
		}
		return Event{Kind: EventStart, Params: params}, nil

	case CmdGetChunkSuccess:
		if p.state != StateWaitingChunk {
			return Event{}, fmt.Errorf("%w: %s 状态下收到块", ErrBadState, p.state)
		}
		if len(payload) < HashLength {
			return Event{}, fmt.Errorf("%w: 块长度 %d", ErrInvalidCommand, len(payload))
		}
		if got := Sum(payload); got != p.requested {
			return Event{}, fmt.Errorf("%w: 请求 %s, 收到 %s", ErrHashMismatch, p.requested, got)
		}
		p.state = StateIdle
		return Event{Kind: EventChunk, Payload: append([]byte(nil), payload...)}, nil

	case CmdGetChunkFailure:
		if p.state != StateWaitingChunk {
			return Event{}, fmt.Errorf("%w: %s 状态下收到取块失败", ErrBadState, p.state)
		}
		return Event{}, fmt.Errorf("%w: %s", ErrChunkNotFound, p.requested)

	case CmdPutChunkResponse:
		if p.state != StateWaitingPutResponse {
			return Event{}, fmt.Errorf("%w: %s 状态下收到写块应答", ErrBadState, p.state)
		}
		p.state = StateIdle
		return Event{Kind: EventPutAck}, nil

	case CmdResultAccumulatingResponse:
		if p.state != StateWaitingResultResponse {
			return Event{}, fmt.Errorf("%w: %s 状态下收到结果应答", ErrBadState, p.state)
		}
		p.state = StateIdle
		return Event{Kind: EventFrame, Frame: p.Result(p.pending)}, nil
	}
	return Event{}, fmt.Errorf("%w: 命令 %d", ErrInvalidCommand, cmd)
}

// GetChunk 请求主机发送哈希为 h 的块
func (p *Protocol) GetChunk(h Hash) []byte {
	p.state, p.requested = StateWaitingChunk, h
	return append([]byte{FrameGetChunk}, h[:]...)
}

// PutChunk 让主机保存 data，返回其哈希
func (p *Protocol) PutChunk(data []byte) (Hash, []byte) {
	p.state = StateWaitingPutResponse
	return Sum(data), append([]byte{FramePutChunk}, data...)
}

// Result 返回结果的第一帧。超过 MaxFrame 的部分在主机应答后由 EventFrame 继续发送。
func (p *Protocol) Result(data []byte) []byte {
	if len(data) > MaxFrame {
		p.state, p.pending = StateWaitingResultResponse, data[MaxFrame:]
		return append([]byte{FrameResultAccumulating}, data[:MaxFrame]...)
	}
	p.state, p.pending = StateIdle, nil
	return append([]byte{FrameResultFinal}, data...)
}
