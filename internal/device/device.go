// Package device 是签名设备的 APDU 分发层。
//
// 每条 APDU 的数据部分是一帧块协议命令。RunCtx 持有块协议状态机和当前会话，
// 会话在需要主机数据时挂起 (发送 GetChunk)，收到块后从挂起处继续。
// 新的 Start、Exit 或任何错误都会丢弃当前会话。
package device

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sui-signer/internal/governor"
	"sui-signer/internal/interp"
	"sui-signer/internal/sui"
	"sui-signer/internal/token"
	"sui-signer/internal/transport"
	"sui-signer/pkg/errno"
	"sui-signer/pkg/logger"
	"sui-signer/pkg/monitor"

	"go.uber.org/zap"
)

// Ins 指令码
type Ins byte

const (
	InsGetVersion        Ins = 0x00
	InsVerifyAddress     Ins = 0x01
	InsGetPubkey         Ins = 0x02
	InsSign              Ins = 0x03
	InsProvideDescriptor Ins = 0x22
	InsGetVersionStr     Ins = 0xfe
	InsExit              Ins = 0xff
)

func (i Ins) String() string {
	switch i {
	case InsGetVersion:
		return "GetVersion"
	case InsVerifyAddress:
		return "VerifyAddress"
	case InsGetPubkey:
		return "GetPubkey"
	case InsSign:
		return "Sign"
	case InsProvideDescriptor:
		return "ProvideTrustedDynamicDescriptor"
	case InsGetVersionStr:
		return "GetVersionStr"
	case InsExit:
		return "Exit"
	}
	return "0x" + strconv.FormatUint(uint64(i), 16)
}

// Signer 持有私钥，按派生路径提供公钥与签名
type Signer interface {
	PublicKey(path []uint32) (ed25519.PublicKey, error)
	Sign(path []uint32, message []byte) ([]byte, error)
}

// Approver 是用户确认界面，返回 false 表示用户拒绝
type Approver interface {
	ConfirmAddress(addr sui.Address) bool
	ConfirmTransaction(s Summary) bool
	// ConfirmBlindSign digest 为交易摘要的 base58 编码
	ConfirmBlindSign(digest string) bool
}

// Settings 用户设置
type Settings interface {
	BlindSigningEnabled() bool
}

// DescriptorRegistry 接收可信代币描述符，同时为交易摘要提供代币信息
type DescriptorRegistry interface {
	sui.TokenLookup
	Provide(ctx context.Context, param []byte) (*token.Descriptor, error)
}

// Version 应用版本 major.minor.patch
type Version [3]uint8

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// ParseVersion 解析 "1.2.3"
func ParseVersion(s string) (Version, error) {
	var v Version
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".")
	if len(parts) != 3 {
		return v, fmt.Errorf("无效的版本号 %q", s)
	}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return v, fmt.Errorf("无效的版本号 %q: %w", s, err)
		}
		v[i] = uint8(n)
	}
	return v, nil
}

// AppName GetVersion 返回的应用名
const AppName = "sui"

type Config struct {
	Version Version
	// HeapCeiling 解释器符号表上限，0 使用默认值
	HeapCeiling int
	// Policy MoveCall 允许列表，nil 使用默认的质押调用
	Policy interp.Policy
	// Tokens 可信代币描述符登记处，nil 时不支持描述符指令
	Tokens DescriptorRegistry
}

// RunCtx 是设备的全部运行状态，同一时刻只处理一条 APDU
type RunCtx struct {
	cfg      Config
	signer   Signer
	approver Approver
	settings Settings

	proto *transport.Protocol
	ins   Ins
	sess  session
	wait  loader
	// final 是会话的结果，写回主机的块全部确认后才发送
	final   []byte
	putting bool

	exited bool
	log    *zap.Logger
}

func New(cfg Config, signer Signer, approver Approver, settings Settings) *RunCtx {
	if cfg.HeapCeiling <= 0 {
		cfg.HeapCeiling = governor.DefaultCeiling
	}
	if cfg.Policy == nil {
		cfg.Policy = interp.DefaultPolicy()
	}
	return &RunCtx{
		cfg:      cfg,
		signer:   signer,
		approver: approver,
		settings: settings,
		proto:    transport.NewProtocol(),
		log:      logger.Named("device"),
	}
}

// Exited 收到 Exit 指令后为 true
func (r *RunCtx) Exited() bool { return r.exited }

// HandleAPDU 处理一条 APDU，返回 data || SW
func (r *RunCtx) HandleAPDU(apdu []byte) []byte {
	cmd, err := ParseAPDU(apdu)
	if err != nil {
		return r.reply(cmd.Ins, nil, err)
	}
	r.log.Debug("APDU", zap.Stringer("ins", cmd.Ins), zap.Int("len", len(cmd.Data)))

	if cmd.Ins == InsExit {
		r.reset()
		r.exited = true
		return r.reply(cmd.Ins, nil, nil)
	}
	frame, err := r.exchange(cmd.Ins, cmd.Data)
	return r.reply(cmd.Ins, frame, err)
}

func (r *RunCtx) exchange(ins Ins, data []byte) ([]byte, error) {
	ev, err := r.proto.ProcessCommand(data)
	if err != nil {
		return nil, transportStatus(err)
	}

	switch ev.Kind {
	case transport.EventStart:
		sess, err := r.newSession(ins, ev.Params)
		if err != nil {
			return nil, err
		}
		r.ins, r.sess, r.wait, r.final, r.putting = ins, sess, nil, nil, false
		r.log.Debug("开始会话", zap.Stringer("ins", ins), zap.Int("params", len(ev.Params)))

	case transport.EventChunk:
		if r.sess == nil || r.wait == nil || ins != r.ins {
			return nil, fmt.Errorf("%w: 指令 %s 没有等待中的块请求", errno.BadState, ins)
		}
		if err := r.wait.Load(ev.Payload); err != nil {
			return nil, transportStatus(err)
		}
		r.sess.chunkLoaded()

	case transport.EventPutAck:
		if r.sess == nil || !r.putting || ins != r.ins {
			return nil, fmt.Errorf("%w: 没有等待确认的写块", errno.BadState)
		}
		r.putting = false
		return r.flush(), nil

	case transport.EventFrame:
		if ins != r.ins {
			return nil, fmt.Errorf("%w: 结果帧的指令不一致", errno.BadState)
		}
		return ev.Frame, nil

	default:
		return nil, fmt.Errorf("%w: 意外的事件 %d", errno.BadState, ev.Kind)
	}

	wait, result, err := r.sess.step()
	if err != nil {
		return nil, err
	}
	if wait != nil {
		h, ok := wait.Want()
		if !ok {
			return nil, fmt.Errorf("%w: 会话等待的流已结束", errno.BadState)
		}
		r.wait = wait
		return r.proto.GetChunk(h), nil
	}
	r.final = result
	return r.flush(), nil
}

// flush 先把会话要写回的块逐个交给主机，最后发送结果
func (r *RunCtx) flush() []byte {
	if w, ok := r.sess.(writer); ok {
		if chunk, more := w.nextWrite(); more {
			h, frame := r.proto.PutChunk(chunk)
			r.putting = true
			r.log.Debug("写块", zap.Stringer("ins", r.ins), zap.Stringer("hash", h))
			return frame
		}
	}
	result := r.final
	r.sess, r.wait, r.final = nil, nil, nil
	return r.proto.Result(result)
}

func (r *RunCtx) reply(ins Ins, frame []byte, err error) []byte {
	code, msg := errno.Decode(err)
	sw := errno.Errno{Code: code}.SW()
	monitor.APDUTotal.WithLabelValues(ins.String(), fmt.Sprintf("%04X", code)).Inc()
	if err != nil {
		r.reset()
		r.log.Warn("拒绝 APDU", zap.Stringer("ins", ins), zap.String("sw", fmt.Sprintf("0x%04X", code)), zap.String("reason", msg))
		return sw
	}
	return append(frame, sw...)
}

func (r *RunCtx) reset() {
	r.proto.Reset()
	r.sess, r.wait, r.final, r.putting = nil, nil, nil, false
}

// transportStatus 块协议错误对应的状态字
func transportStatus(err error) error {
	if errors.Is(err, transport.ErrHashMismatch) {
		return fmt.Errorf("%w: %v", errno.IntegrityViolation, err)
	}
	return fmt.Errorf("%w: %v", errno.BadState, err)
}
