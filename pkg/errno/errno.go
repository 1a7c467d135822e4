// Package errno 定义 APDU 状态字
package errno

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Errno 状态字及其说明
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return fmt.Sprintf("0x%04X %s", e.Code, e.Message)
}

// SW 返回大端序的两字节状态字
func (e Errno) SW() []byte {
	return binary.BigEndian.AppendUint16(nil, uint16(e.Code))
}

// Is 按状态字比较，errors.Is(err, errno.SwDeny) 对包装后的错误同样成立
func (e Errno) Is(target error) bool {
	var t Errno
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// Decode 把任意错误转换为 (状态字, 说明)，未识别的错误视为 BadState
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, err.Error()
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, err.Error()
	}
	return BadState.Code, err.Error()
}

var (
	OK              = Errno{Code: 0x9000, Message: "Success"}
	NothingReceived = Errno{Code: 0x6982, Message: "Nothing received"}
	SwDeny          = Errno{Code: 0x6985, Message: "Rejected by user"}
	WrongP1P2       = Errno{Code: 0x6A86, Message: "Wrong P1/P2"}
	InsNotSupported = Errno{Code: 0x6D00, Message: "Instruction not supported"}
	ClaNotSupported = Errno{Code: 0x6E00, Message: "Class not supported"}
	WrongApduLength = Errno{Code: 0x6E03, Message: "Wrong APDU length"}
)

// 应用错误
var (
	BlindSignDisabled  = Errno{Code: 0x6808, Message: "Blind signing disabled"}
	TxParsingFail      = Errno{Code: 0xB005, Message: "Transaction parsing failed"}
	BadState           = Errno{Code: 0xB007, Message: "Bad state"}
	SignatureFail      = Errno{Code: 0xB008, Message: "Signature failed"}
	IntegrityViolation = Errno{Code: 0xB009, Message: "Chunk integrity violation"}
)

// HTTP 接口错误，只出现在 JSON 响应的 code 中
var (
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
)

// TLVBase 可信描述符错误 0x7000+n
const TLVBase = 0x7000

// TLV 返回描述符第 n 类错误对应的状态字
func TLV(n int, msg string) Errno {
	return Errno{Code: TLVBase + n, Message: msg}
}
