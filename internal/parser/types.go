// Package parser 基于 pkg/bcs 实现 Sui 交易和对象记录的可恢复解码器
package parser

import (
	"sui-signer/internal/sui"
)

// 容量上限
const (
	MaxInputs       = 512
	MaxCommands     = 1024
	MaxVecLen       = 32
	MaxGasPayments  = 32
	MaxTypeArgs     = 5
	MaxPureLen      = 256
	MaxIdentifier   = 128
	MaxTypeDepth    = 4
	MaxObjectRecord = 80 // 对象 contents 最大长度
)

// ArgKind 是 PTB 参数的种类
type ArgKind uint8

const (
	ArgGasCoin ArgKind = iota
	ArgInput
	ArgResult
	ArgNestedResult
)

func (k ArgKind) String() string {
	switch k {
	case ArgGasCoin:
		return "GasCoin"
	case ArgInput:
		return "Input"
	case ArgResult:
		return "Result"
	case ArgNestedResult:
		return "NestedResult"
	}
	return "Invalid"
}

// Argument 引用 GasCoin、输入或前面命令的结果
type Argument struct {
	Kind  ArgKind
	Index uint16
	Sub   uint16 // 仅 NestedResult 使用
}

// CallArgKind 输入参数种类
type CallArgKind uint8

const (
	CallArgPure CallArgKind = iota
	CallArgObject
)

// ObjectArgKind 对象参数种类
type ObjectArgKind uint8

const (
	ObjImmOrOwned ObjectArgKind = iota
	ObjShared
	ObjReceiving
)

// ObjectArg 对象输入
type ObjectArg struct {
	Kind           ObjectArgKind
	Ref            sui.ObjectRef // ImmOrOwned / Receiving
	InitialVersion uint64        // Shared
	Mutable        bool          // Shared
}

// CallArg 是交易的一个输入
type CallArg struct {
	Kind   CallArgKind
	Pure   []byte
	Object ObjectArg
}

// TypeTagKind Move 类型标签
type TypeTagKind uint8

const (
	TagBool TypeTagKind = iota
	TagU8
	TagU64
	TagU128
	TagAddress
	TagSigner
	TagVector
	TagStruct
	TagU16
	TagU32
	TagU256
)

type TypeTag struct {
	Kind   TypeTagKind
	Elem   *TypeTag   // TagVector
	Struct *StructTag // TagStruct
}

type StructTag struct {
	Address    sui.Address
	Module     string
	Name       string
	TypeParams []TypeTag
}

// CommandKind PTB 命令种类
type CommandKind uint8

const (
	CmdMoveCall CommandKind = iota
	CmdTransferObjects
	CmdSplitCoins
	CmdMergeCoins
	CmdPublish
	CmdMakeMoveVec
	CmdUpgrade
)

func (k CommandKind) String() string {
	switch k {
	case CmdMoveCall:
		return "MoveCall"
	case CmdTransferObjects:
		return "TransferObjects"
	case CmdSplitCoins:
		return "SplitCoins"
	case CmdMergeCoins:
		return "MergeCoins"
	case CmdPublish:
		return "Publish"
	case CmdMakeMoveVec:
		return "MakeMoveVec"
	case CmdUpgrade:
		return "Upgrade"
	}
	return "Invalid"
}

// MoveCall 调用目标
type MoveCall struct {
	Package  sui.Address
	Module   string
	Function string
	TypeArgs []TypeTag
}

// Command 是一条 PTB 命令。字段含义随 Kind 变化:
//
//	TransferObjects: Args = 对象, Target = 接收地址
//	SplitCoins:      Target = 源币, Args = 金额
//	MergeCoins:      Target = 目标币, Args = 源币
//	MakeMoveVec:     ElemType = 元素类型 (可选), Args = 元素
//	MoveCall:        Call = 调用目标, Args = 参数
type Command struct {
	Kind     CommandKind
	Call     MoveCall
	Target   Argument
	Args     []Argument
	ElemType *TypeTag
}

// GasData 交易的 gas 信息
type GasData struct {
	Payment []sui.ObjectRef
	Owner   sui.Address
	Price   uint64
	Budget  uint64
}

// Expiration 为 nil 表示不过期
type Expiration struct {
	Epoch *uint64
}
