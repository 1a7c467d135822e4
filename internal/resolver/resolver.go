// Package resolver 在对象流中按摘要查找对象记录。
//
// 对象流格式: ULEB128 记录数，之后每条记录为 ULEB128 长度 + 记录字节。
// 扫描是线性的: 每条记录边计算 blake2b256("Object::"||记录) 边试探解析，只读一遍。
package resolver

import (
	"errors"
	"fmt"
	"hash"
	"io"

	"sui-signer/internal/parser"
	"sui-signer/internal/stream"
	"sui-signer/internal/sui"
	"sui-signer/internal/transport"
	"sui-signer/pkg/bcs"

	"golang.org/x/crypto/blake2b"
)

// Scanner 在游标的克隆上查找一个对象，主游标不受影响
type Scanner struct {
	cur    *stream.Cursor
	target sui.ObjectDigest

	count   bcs.Uleb32
	counted bool
	left    uint32

	length   bcs.Uleb32
	inRecord bool
	recLeft  int
	hasher   hash.Hash
	dec      bcs.Decoder[*sui.ObjectData]
	decDone  bool
	decErr   error

	done    bool
	result  *sui.ObjectData
	scanned int
}

// New 从对象流起始位置开始扫描 target
func New(objects *stream.Cursor, target sui.ObjectDigest) *Scanner {
	h, _ := blake2b.New256(nil)
	return &Scanner{cur: objects.Clone(), target: target, hasher: h}
}

func (s *Scanner) Want() (transport.Hash, bool) { return s.cur.Want() }

func (s *Scanner) Load(payload []byte) error { return s.cur.Load(payload) }

// Scanned 返回已经检查过的记录数
func (s *Scanner) Scanned() int { return s.scanned }

// Scan 推进扫描。返回 stream.ErrNeedChunk 时调用方按 Want 取块、Load 后再次调用。
// 完成时返回找到的对象数据，nil 表示没有匹配的记录、记录无法解析或不是币对象。
func (s *Scanner) Scan() (*sui.ObjectData, error) {
	for !s.done {
		if !s.counted {
			err := stream.Drive(s.cur, &s.count)
			if errors.Is(err, io.ErrUnexpectedEOF) && s.cur.Pos() == 0 {
				s.done = true // 空对象流
				break
			}
			if err != nil {
				return nil, s.wrap(err)
			}
			s.counted, s.left = true, s.count.Value()
			continue
		}

		if !s.inRecord {
			if s.left == 0 {
				s.done = true
				break
			}
			if err := stream.Drive(s.cur, &s.length); err != nil {
				return nil, s.wrap(err)
			}
			s.startRecord(int(s.length.Value()))
		}

		if err := s.body(); err != nil {
			return nil, err
		}
		s.endRecord()
	}
	return s.result, nil
}

func (s *Scanner) startRecord(n int) {
	s.length = bcs.Uleb32{}
	s.inRecord, s.recLeft = true, n
	s.hasher.Reset()
	s.hasher.Write(sui.ObjectPrefix)
	s.dec, s.decDone, s.decErr = parser.NewObject(), false, nil
}

// body 把记录字节同时送入哈希和解析器
func (s *Scanner) body() error {
	for s.recLeft > 0 {
		b, err := s.cur.Bytes()
		if err != nil {
			return s.wrap(err)
		}
		b = b[:min(len(b), s.recLeft)]
		s.hasher.Write(b)

		switch {
		case s.decErr != nil:
		case s.decDone:
			s.decErr = bcs.ErrTrailingBytes
		default:
			n, err := s.dec.Feed(b)
			switch {
			case err == nil:
				s.decDone = true
				if n < len(b) {
					s.decErr = bcs.ErrTrailingBytes
				}
			case !errors.Is(err, bcs.ErrNeedMore):
				s.decErr = err
			}
		}
		s.cur.Advance(len(b))
		s.recLeft -= len(b)
	}
	return nil
}

func (s *Scanner) endRecord() {
	s.inRecord = false
	s.left--
	s.scanned++

	var d sui.ObjectDigest
	copy(d[:], s.hasher.Sum(nil))
	if d != s.target {
		return
	}
	s.done = true
	if s.decDone && s.decErr == nil {
		s.result = s.dec.Value()
	}
}

func (s *Scanner) wrap(err error) error {
	switch {
	case errors.Is(err, stream.ErrNeedChunk):
		return err
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: 对象流在第 %d 条记录处截断", sui.ErrMalformed, s.scanned)
	}
	return fmt.Errorf("%w: 对象流: %v", sui.ErrMalformed, err)
}

// EncodeObjects 主机端按对象流格式拼接记录
func EncodeObjects(records [][]byte) []byte {
	b := bcs.AppendUleb128(nil, uint64(len(records)))
	for _, r := range records {
		b = bcs.AppendBytes(b, r)
	}
	return b
}
