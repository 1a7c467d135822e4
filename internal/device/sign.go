package device

import (
	"errors"
	"fmt"
	"hash"
	"io"

	"sui-signer/internal/governor"
	"sui-signer/internal/interp"
	"sui-signer/internal/parser"
	"sui-signer/internal/resolver"
	"sui-signer/internal/stream"
	"sui-signer/internal/sui"
	"sui-signer/internal/transport"
	"sui-signer/pkg/bcs"
	"sui-signer/pkg/errno"
	"sui-signer/pkg/monitor"

	"github.com/btcsuite/btcd/btcutil/base58"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

type signPhase uint8

const (
	phasePath signPhase = iota
	phaseLength
	phaseTx
	phaseConfirm
)

// signSession 流式解析交易: 参数 0 为 u32 LE 长度 || 交易字节，参数 1 为派生路径，
// 可选参数 2 为对象流。交易字节在解析的同时计入摘要，解析失败降级时继续只计算摘要。
type signSession struct {
	r     *RunCtx
	phase signPhase

	pathParam *paramReader
	path      sui.Path

	tx        *stream.Cursor
	objects   *stream.Cursor
	length    bcs.U32
	remaining int
	hasher    hash.Hash

	it      *interp.Interpreter
	parser  *parser.TxParser
	lookups []sui.ObjectDigest
	scanner *resolver.Scanner

	// degraded 非致命错误，交易按 Unknown 处理
	degraded error
	chunks   int

	// receipt 是签名后写回主机的确认内容 (块链，尾块在前)
	receipt [][]byte
}

func newSignSession(r *RunCtx, params []transport.Hash) *signSession {
	objects := transport.ZeroHash
	if len(params) > 2 {
		objects = params[2]
	}
	h, _ := blake2b.New256(nil)
	it := interp.New(governor.New(r.cfg.HeapCeiling), r.cfg.Policy)
	return &signSession{
		r:         r,
		pathParam: newParamReader(params[1], maxPathParam),
		tx:        stream.New(params[0]),
		objects:   stream.New(objects),
		hasher:    h,
		it:        it,
		parser:    parser.NewTxParser(it),
	}
}

func (s *signSession) chunkLoaded() { s.chunks++ }

func (s *signSession) nextWrite() ([]byte, bool) {
	if len(s.receipt) == 0 {
		return nil, false
	}
	chunk := s.receipt[0]
	s.receipt = s.receipt[1:]
	return chunk, true
}

func (s *signSession) step() (loader, []byte, error) {
	for {
		switch s.phase {
		case phasePath:
			if wait, err := s.pathParam.read(); wait != nil || err != nil {
				return wait, nil, err
			}
			path, err := sui.DecodePath(s.pathParam.buf)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %v", errno.WrongP1P2, err)
			}
			s.path, s.phase = path, phaseLength

		case phaseLength:
			err := stream.Drive(s.tx, &s.length)
			if errors.Is(err, stream.ErrNeedChunk) {
				return s.tx, nil, nil
			}
			if err != nil {
				return nil, nil, fmt.Errorf("%w: 缺少交易长度", errno.TxParsingFail)
			}
			s.remaining, s.phase = int(s.length.Value()), phaseTx
			s.r.log.Debug("开始解析交易", zap.Int("length", s.remaining))

		case phaseTx:
			wait, err := s.feed()
			if wait != nil || err != nil {
				return wait, nil, err
			}
			s.phase = phaseConfirm

		case phaseConfirm:
			monitor.ChunksPerSign.Observe(float64(s.chunks))
			sig, err := s.confirm()
			return nil, sig, err
		}
	}
}

// feed 把交易字节交给解析器，处理对象查找，直到交易字节全部消费
func (s *signSession) feed() (loader, error) {
	for {
		if s.scanner != nil {
			data, err := s.scanner.Scan()
			if errors.Is(err, stream.ErrNeedChunk) {
				return s.scanner, nil
			}
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errno.TxParsingFail, err)
			}
			result := "miss"
			if data != nil {
				result = "found"
			}
			monitor.ObjectScansTotal.WithLabelValues(result).Inc()
			s.r.log.Debug("对象查找", zap.Stringer("digest", s.lookups[0]), zap.String("result", result), zap.Int("scanned", s.scanner.Scanned()))

			s.it.Provide(s.lookups[0], data)
			s.lookups, s.scanner = s.lookups[1:], nil
			continue
		}
		if len(s.lookups) > 0 {
			s.scanner = resolver.New(s.objects, s.lookups[0])
			continue
		}

		if s.degraded != nil || s.parser.Done() {
			if s.remaining == 0 {
				return nil, nil
			}
			if s.degraded == nil {
				return nil, fmt.Errorf("%w: 交易之后还有 %d 字节", errno.TxParsingFail, s.remaining)
			}
			if wait, err := s.hashOnly(); wait != nil || err != nil {
				return wait, err
			}
			continue
		}

		var in []byte
		if s.remaining > 0 {
			b, err := s.txBytes()
			if err != nil {
				return nil, err
			}
			if b == nil {
				return s.tx, nil
			}
			in = b
		} else if s.parser.Phase() != parser.PhaseFinalize {
			return nil, fmt.Errorf("%w: 交易在 %s 阶段截断", errno.TxParsingFail, s.parser.Phase())
		}

		n, err := s.parser.Feed(in)
		s.consume(in[:n])

		switch {
		case err == nil, errors.Is(err, bcs.ErrNeedMore):
		case errors.Is(err, parser.ErrObjectLookup):
			s.lookups = s.it.Required()
		default:
			kind := interp.Classify(err)
			if kind.Fatal() {
				return nil, fmt.Errorf("%w: %v", errno.TxParsingFail, err)
			}
			s.degraded = err
			s.r.log.Info("交易无法识别，按未知交易处理", zap.Stringer("kind", kind), zap.Error(err))
		}
	}
}

// txBytes 返回最多 remaining 个可用交易字节，需要取块时返回 nil
func (s *signSession) txBytes() ([]byte, error) {
	b, err := s.tx.Bytes()
	switch {
	case errors.Is(err, stream.ErrNeedChunk):
		return nil, nil
	case errors.Is(err, io.EOF):
		return nil, fmt.Errorf("%w: 交易参数短于声明长度", errno.TxParsingFail)
	case err != nil:
		return nil, err
	}
	return b[:min(len(b), s.remaining)], nil
}

func (s *signSession) consume(b []byte) {
	s.hasher.Write(b)
	s.tx.Advance(len(b))
	s.remaining -= len(b)
}

// hashOnly 降级后只计算剩余字节的摘要
func (s *signSession) hashOnly() (loader, error) {
	for s.remaining > 0 {
		b, err := s.txBytes()
		if err != nil {
			return nil, err
		}
		if b == nil {
			return s.tx, nil
		}
		s.consume(b)
	}
	return nil, nil
}

func (s *signSession) confirm() ([]byte, error) {
	digest := s.hasher.Sum(nil)
	r := s.r

	known, ok := s.it.Result()
	if s.degraded == nil && ok && known.Kind != interp.TxUnknown {
		pub, err := r.signer.PublicKey(s.path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errno.SignatureFail, err)
		}
		summary := NewSummary(known, sui.AddressFromPublicKey(pub), r.cfg.Tokens)
		r.log.Info("交易分类", zap.Stringer("kind", known.Kind), zap.Uint64("amount", known.TotalAmount), zap.Uint64("gas_budget", known.GasBudget))

		if !r.approver.ConfirmTransaction(summary) {
			monitor.SignOutcomeTotal.WithLabelValues(known.Kind.String(), "rejected").Inc()
			return nil, errno.SwDeny
		}
		return s.sign(summary, digest)
	}

	if !r.settings.BlindSigningEnabled() {
		monitor.SignOutcomeTotal.WithLabelValues(interp.TxUnknown.String(), "blind_sign_disabled").Inc()
		return nil, fmt.Errorf("%w: %v", errno.BlindSignDisabled, s.degraded)
	}
	shown := base58.Encode(digest)
	if !r.approver.ConfirmBlindSign(shown) {
		monitor.SignOutcomeTotal.WithLabelValues(interp.TxUnknown.String(), "rejected").Inc()
		return nil, errno.SwDeny
	}
	return s.sign(Summary{Kind: interp.TxUnknown, Fields: []Field{{Title: "Digest", Value: shown}}}, digest)
}

// sign 签名并把用户确认过的内容排入写回队列
func (s *signSession) sign(shown Summary, digest []byte) ([]byte, error) {
	kind := shown.Kind
	sig, err := s.r.signer.Sign(s.path, digest)
	if err != nil {
		monitor.SignOutcomeTotal.WithLabelValues(kind.String(), "failed").Inc()
		return nil, fmt.Errorf("%w: %v", errno.SignatureFail, err)
	}
	monitor.SignOutcomeTotal.WithLabelValues(kind.String(), "signed").Inc()
	s.r.log.Info("交易已签名", zap.Stringer("kind", kind), zap.Stringer("path", s.path))
	s.receipt = transport.Chain([]byte(shown.String()))
	return sig, nil
}
