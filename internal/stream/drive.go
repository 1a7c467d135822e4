package stream

import (
	"errors"
	"io"

	"sui-signer/pkg/bcs"
)

// Drive 把游标中的可用字节喂给 f，直到 f 完成、需要加载块 (ErrNeedChunk) 或被拒绝。
// 流在 f 完成前结束返回 io.ErrUnexpectedEOF。f 返回的其他错误 (包括暂停类错误) 原样返回，
// 此时游标停在 f 已消费的位置。
func Drive(c *Cursor, f bcs.Feeder) error {
	for {
		b, err := c.Bytes()
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		n, err := f.Feed(b)
		c.Advance(n)
		if errors.Is(err, bcs.ErrNeedMore) {
			continue
		}
		return err
	}
}
