package device

import (
	"context"
	"encoding/binary"
	"fmt"

	"sui-signer/internal/transport"
	"sui-signer/pkg/errno"
)

const (
	CLA = 0x00
	// apduHeader CLA INS P1 P2 Lc
	apduHeader = 5
)

// Command 解析后的 APDU
type Command struct {
	Ins  Ins
	Data []byte
}

// ParseAPDU 解析 CLA INS P1 P2 Lc data
func ParseAPDU(apdu []byte) (Command, error) {
	if len(apdu) < apduHeader-1 {
		return Command{}, errno.WrongApduLength
	}
	cmd := Command{Ins: Ins(apdu[1])}
	if apdu[0] != CLA {
		return cmd, errno.ClaNotSupported
	}
	switch cmd.Ins {
	case InsGetVersion, InsVerifyAddress, InsGetPubkey, InsSign, InsProvideDescriptor, InsGetVersionStr, InsExit:
	default:
		return cmd, errno.InsNotSupported
	}
	if apdu[2] != 0 || apdu[3] != 0 {
		return cmd, errno.WrongP1P2
	}
	if len(apdu) == apduHeader-1 || apdu[4] == 0 {
		if cmd.Ins == InsExit {
			return cmd, nil
		}
		return cmd, errno.NothingReceived
	}
	if int(apdu[4]) != len(apdu)-apduHeader {
		return cmd, errno.WrongApduLength
	}
	cmd.Data = apdu[apduHeader:]
	return cmd, nil
}

// EncodeAPDU 主机端组装 APDU
func EncodeAPDU(ins Ins, data []byte) ([]byte, error) {
	if len(data) > 0xff {
		return nil, fmt.Errorf("APDU 数据过长: %d", len(data))
	}
	apdu := []byte{CLA, byte(ins), 0, 0, byte(len(data))}
	return append(apdu, data...), nil
}

// SplitResponse 拆分 data || SW，SW 不是 0x9000 时返回对应的 errno
func SplitResponse(resp []byte) ([]byte, error) {
	if len(resp) < 2 {
		return nil, fmt.Errorf("%w: 响应长度 %d", errno.WrongApduLength, len(resp))
	}
	n := len(resp) - 2
	code := int(binary.BigEndian.Uint16(resp[n:]))
	if code != errno.OK.Code {
		return nil, statusError(code)
	}
	return resp[:n], nil
}

var knownStatus = []errno.Errno{
	errno.NothingReceived, errno.SwDeny, errno.WrongP1P2, errno.InsNotSupported,
	errno.ClaNotSupported, errno.WrongApduLength, errno.BlindSignDisabled,
	errno.TxParsingFail, errno.BadState, errno.SignatureFail, errno.IntegrityViolation,
}

func statusError(code int) errno.Errno {
	for _, e := range knownStatus {
		if e.Code == code {
			return e
		}
	}
	if code&0xff00 == errno.TLVBase {
		return errno.TLV(code-errno.TLVBase, "trusted descriptor rejected")
	}
	return errno.Errno{Code: code, Message: "unknown status"}
}

// Transceiver 发送一条原始 APDU 并返回 data || SW
type Transceiver interface {
	Transceive(ctx context.Context, apdu []byte) ([]byte, error)
}

// TransceiverFunc 把函数适配为 Transceiver
type TransceiverFunc func(ctx context.Context, apdu []byte) ([]byte, error)

func (f TransceiverFunc) Transceive(ctx context.Context, apdu []byte) ([]byte, error) {
	return f(ctx, apdu)
}

// Local 把 RunCtx 适配为进程内的 Transceiver
func Local(r *RunCtx) Transceiver {
	return TransceiverFunc(func(_ context.Context, apdu []byte) ([]byte, error) {
		return r.HandleAPDU(apdu), nil
	})
}

// Exchanger 把块协议帧包装为指定指令的 APDU，供 transport.Host 使用
func Exchanger(t Transceiver, ins Ins) transport.Exchanger {
	return transport.ExchangeFunc(func(ctx context.Context, data []byte) ([]byte, error) {
		apdu, err := EncodeAPDU(ins, data)
		if err != nil {
			return nil, err
		}
		resp, err := t.Transceive(ctx, apdu)
		if err != nil {
			return nil, err
		}
		return SplitResponse(resp)
	})
}
