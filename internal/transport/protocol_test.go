package transport

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartPayload(t *testing.T) {
	tests := []struct {
		name    string
		hashes  int
		extra   int
		wantErr bool
	}{
		{"无参数", 0, 0, true},
		{"一个参数", 1, 0, false},
		{"三个参数", 3, 0, false},
		{"四个参数", 4, 0, true},
		{"长度不是 32 的倍数", 1, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProtocol()
			data := append([]byte{CmdStart}, make([]byte, tt.hashes*HashLength+tt.extra)...)
			ev, err := p.ProcessCommand(data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, EventStart, ev.Kind)
			assert.Len(t, ev.Params, tt.hashes)
		})
	}
}

func TestChunkIntegrity(t *testing.T) {
	chunk := append(make([]byte, HashLength), []byte("payload")...)
	h := Sum(chunk)

	p := NewProtocol()
	frame := p.GetChunk(h)
	assert.Equal(t, append([]byte{FrameGetChunk}, h[:]...), frame)
	assert.Equal(t, StateWaitingChunk, p.State())

	bad := append([]byte{CmdGetChunkSuccess}, chunk...)
	bad[len(bad)-1] ^= 0xff
	_, err := p.ProcessCommand(bad)
	if !errors.Is(err, ErrHashMismatch) {
		t.Fatalf("篡改的块应返回 ErrHashMismatch, 得到 %v", err)
	}
	assert.Equal(t, StateIdle, p.State(), "校验失败后应复位")

	p.GetChunk(h)
	ev, err := p.ProcessCommand(append([]byte{CmdGetChunkSuccess}, chunk...))
	require.NoError(t, err)
	assert.Equal(t, EventChunk, ev.Kind)
	assert.Equal(t, chunk, ev.Payload)

	p.GetChunk(h)
	_, err = p.ProcessCommand([]byte{CmdGetChunkFailure})
	assert.ErrorIs(t, err, ErrChunkNotFound)

	p.GetChunk(Sum([]byte{1}))
	_, err = p.ProcessCommand([]byte{CmdGetChunkSuccess, 1})
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestHalfDuplex(t *testing.T) {
	p := NewProtocol()
	for _, cmd := range []byte{CmdGetChunkSuccess, CmdGetChunkFailure, CmdPutChunkResponse, CmdResultAccumulatingResponse} {
		_, err := p.ProcessCommand([]byte{cmd})
		assert.ErrorIs(t, err, ErrBadState, "Idle 状态不接受命令 %d", cmd)
	}
	_, err := p.ProcessCommand([]byte{9})
	assert.ErrorIs(t, err, ErrInvalidCommand)
	_, err = p.ProcessCommand(nil)
	assert.ErrorIs(t, err, ErrInvalidCommand)

	h, frame := p.PutChunk([]byte("abc"))
	assert.Equal(t, Sum([]byte("abc")), h)
	assert.Equal(t, FramePutChunk, frame[0])
	ev, err := p.ProcessCommand([]byte{CmdPutChunkResponse})
	require.NoError(t, err)
	assert.Equal(t, EventPutAck, ev.Kind)
}

func TestResultFrames(t *testing.T) {
	result := bytes.Repeat([]byte{0xab}, 2*MaxFrame+100)
	p := NewProtocol()

	var got []byte
	frame := p.Result(result)
	frames := 1
	for frame[0] == FrameResultAccumulating {
		assert.Len(t, frame, MaxFrame+1)
		got = append(got, frame[1:]...)
		ev, err := p.ProcessCommand([]byte{CmdResultAccumulatingResponse})
		require.NoError(t, err)
		require.Equal(t, EventFrame, ev.Kind)
		frame = ev.Frame
		frames++
	}
	got = append(got, frame[1:]...)
	assert.Equal(t, 3, frames)
	assert.Equal(t, result, got)
	assert.Equal(t, StateIdle, p.State())
}

func TestStoreAddParam(t *testing.T) {
	s := NewStore()
	assert.Equal(t, ZeroHash, s.AddParam(nil))

	param := make([]byte, 2*ChunkSize+17)
	for i := range param {
		param[i] = byte(i)
	}
	head := s.AddParam(param)
	assert.Equal(t, 3, s.Len())

	var got []byte
	for h := head; !h.IsZero(); {
		chunk, ok := s.Get(h)
		require.True(t, ok)
		require.Equal(t, h, Sum(chunk))
		got = append(got, chunk[HashLength:]...)
		copy(h[:], chunk[:HashLength])
	}
	assert.Equal(t, param, got)
}

// 主机应答取块与写块，并拼接多帧结果
func TestHostRun(t *testing.T) {
	p := NewProtocol()
	var (
		heads []Hash
		put   Hash
	)
	device := ExchangeFunc(func(_ context.Context, data []byte) ([]byte, error) {
		ev, err := p.ProcessCommand(data)
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case EventStart:
			heads = ev.Params
			return p.GetChunk(heads[0]), nil
		case EventChunk:
			var frame []byte
			put, frame = p.PutChunk(ev.Payload[HashLength:])
			return frame, nil
		case EventPutAck:
			return p.Result(bytes.Repeat([]byte{7}, MaxFrame+1)), nil
		}
		return ev.Frame, nil
	})

	h := NewHost(device, nil)
	res, err := h.Run(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Len(t, res, MaxFrame+1)

	stored, ok := h.Store().Get(put)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), stored)
	require.Len(t, heads, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// 设备以尾块在前的顺序写回块链，主机从最后写入的首块读出完整数据
func TestWriteBackChain(t *testing.T) {
	data := bytes.Repeat([]byte("receipt "), 60)
	chunks := Chain(data)
	require.Len(t, chunks, (len(data)+ChunkSize-1)/ChunkSize)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), MaxFrame)
	}
	assert.Nil(t, Chain(nil))

	p := NewProtocol()
	pending := chunks
	device := ExchangeFunc(func(_ context.Context, data []byte) ([]byte, error) {
		ev, err := p.ProcessCommand(data)
		if err != nil {
			return nil, err
		}
		if ev.Kind == EventFrame {
			return ev.Frame, nil
		}
		if len(pending) > 0 {
			_, frame := p.PutChunk(pending[0])
			pending = pending[1:]
			return frame, nil
		}
		return p.Result([]byte{1}), nil
	})

	h := NewHost(device, nil)
	res, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, res)
	written, err := h.Written()
	require.NoError(t, err)
	assert.Equal(t, data, written)

	// 缺块时报错
	_, err = NewStore().ReadParam(Sum([]byte("x")))
	assert.ErrorIs(t, err, ErrChunkNotFound)
}
