package device

import (
	"context"
	"errors"
	"fmt"
	"io"

	"sui-signer/internal/stream"
	"sui-signer/internal/sui"
	"sui-signer/internal/transport"
	"sui-signer/pkg/errno"

	"go.uber.org/zap"
)

// loader 是等待主机块的一方: 游标或对象扫描器
type loader interface {
	Want() (transport.Hash, bool)
	Load(payload []byte) error
}

// session 是一条指令的可恢复执行状态
type session interface {
	// step 推进会话，wait 非 nil 时需要先为它取块，否则 result 为最终结果
	step() (wait loader, result []byte, err error)
	// chunkLoaded 在每个块校验并加载后调用
	chunkLoaded()
}

// writer 是在最终结果之前向主机写回数据的会话
type writer interface {
	// nextWrite 返回下一个要写的块，没有时 more 为 false
	nextWrite() (chunk []byte, more bool)
}

// paramReader 把一个参数完整读入内存
type paramReader struct {
	cur   *stream.Cursor
	limit int
	buf   []byte
	done  bool
}

func newParamReader(h transport.Hash, limit int) *paramReader {
	return &paramReader{cur: stream.New(h), limit: limit}
}

// read 返回需要取块的游标，或在读完时返回 nil
func (p *paramReader) read() (loader, error) {
	for !p.done {
		b, err := p.cur.Bytes()
		switch {
		case errors.Is(err, io.EOF):
			p.done = true
			continue
		case errors.Is(err, stream.ErrNeedChunk):
			return p.cur, nil
		case err != nil:
			return nil, err
		}
		if len(p.buf)+len(b) > p.limit {
			return nil, fmt.Errorf("%w: 参数超过 %d 字节", errno.WrongApduLength, p.limit)
		}
		p.buf = append(p.buf, b...)
		p.cur.Advance(len(b))
	}
	return nil, nil
}

// maxPathParam count(u8) + 10 个 u32
const maxPathParam = 1 + 4*sui.MaxPathLength

// maxDescriptorParam u16 长度 + TLV
const maxDescriptorParam = 2 + 1024

func (r *RunCtx) newSession(ins Ins, params []transport.Hash) (session, error) {
	switch ins {
	case InsGetVersion:
		b := append([]byte{r.cfg.Version[0], r.cfg.Version[1], r.cfg.Version[2]}, AppName...)
		return &valueSession{result: b}, nil
	case InsGetVersionStr:
		return &valueSession{result: []byte(AppName + " " + r.cfg.Version.String())}, nil
	case InsGetPubkey, InsVerifyAddress:
		return &pubkeySession{r: r, path: newParamReader(params[0], maxPathParam), confirm: ins == InsVerifyAddress}, nil
	case InsProvideDescriptor:
		if r.cfg.Tokens == nil {
			return nil, errno.InsNotSupported
		}
		return &descriptorSession{r: r, param: newParamReader(params[0], maxDescriptorParam)}, nil
	case InsSign:
		if len(params) < 2 {
			return nil, fmt.Errorf("%w: Sign 需要至少 2 个参数", errno.WrongApduLength)
		}
		return newSignSession(r, params), nil
	}
	return nil, errno.InsNotSupported
}

// valueSession 不读取参数，直接返回结果
type valueSession struct {
	result []byte
}

func (s *valueSession) step() (loader, []byte, error) { return nil, s.result, nil }

func (s *valueSession) chunkLoaded() {}

// pubkeySession 处理 GetPubkey / VerifyAddress
type pubkeySession struct {
	r       *RunCtx
	path    *paramReader
	confirm bool
}

func (s *pubkeySession) chunkLoaded() {}

func (s *pubkeySession) step() (loader, []byte, error) {
	if wait, err := s.path.read(); wait != nil || err != nil {
		return wait, nil, err
	}
	path, err := sui.DecodePath(s.path.buf)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errno.WrongP1P2, err)
	}
	pub, err := s.r.signer.PublicKey(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errno.SignatureFail, err)
	}
	addr := sui.AddressFromPublicKey(pub)

	if s.confirm && !s.r.approver.ConfirmAddress(addr) {
		s.r.log.Info("用户拒绝地址", zap.Stringer("path", path))
		return nil, nil, errno.SwDeny
	}

	out := make([]byte, 0, 2+len(pub)+sui.AddressLength)
	out = append(out, byte(len(pub)))
	out = append(out, pub...)
	out = append(out, sui.AddressLength)
	out = append(out, addr[:]...)
	return nil, out, nil
}

// descriptorSession 处理可信代币描述符
type descriptorSession struct {
	r     *RunCtx
	param *paramReader
}

func (s *descriptorSession) chunkLoaded() {}

func (s *descriptorSession) step() (loader, []byte, error) {
	if wait, err := s.param.read(); wait != nil || err != nil {
		return wait, nil, err
	}
	if _, err := s.r.cfg.Tokens.Provide(context.Background(), s.param.buf); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}
