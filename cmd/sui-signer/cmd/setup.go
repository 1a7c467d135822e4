package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"sui-signer/internal/client"
	"sui-signer/internal/device"
	"sui-signer/internal/interp"
	"sui-signer/internal/sui"
	"sui-signer/internal/token"
	"sui-signer/internal/transport"
	"sui-signer/pkg/cache"
	"sui-signer/pkg/config"
	"sui-signer/pkg/crypto_util"
	"sui-signer/pkg/keystore"
	"sui-signer/pkg/kms"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/term"
)

// loadSigner 优先使用配置中的助记词，否则解密 keystore
func loadSigner() (*kms.LocalKMS, error) {
	w := config.Global.Wallet
	if w.Mnemonic != "" {
		return kms.NewFromMnemonic(w.Mnemonic, "")
	}

	encrypted, err := keystore.LoadFromFile(w.KeystorePath)
	if err != nil {
		return nil, fmt.Errorf("加载 Keystore 失败 (先运行 sui-signer new): %w", err)
	}
	password := w.Password
	if password == "" {
		if password, err = readPassword("请输入 Keystore 密码: "); err != nil {
			return nil, err
		}
	}
	mnemonic, err := keystore.DecryptMnemonic(encrypted, password)
	if err != nil {
		return nil, fmt.Errorf("解密失败 (密码错误?): %w", err)
	}
	return kms.NewFromMnemonic(mnemonic, "")
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}
	return string(b), nil
}

// trustedKey 可信描述符签名公钥，未配置时返回 nil
func trustedKey() (*btcec.PublicKey, error) {
	s := config.Global.Token.TrustedKey
	if s == "" {
		return nil, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("token.trusted_key: %w", err)
	}
	return crypto_util.ParseSecp256k1PublicKey(b)
}

func devicePolicy() (interp.Policy, error) {
	calls := config.Global.Policy.MoveCalls
	entries := make([]interp.PolicyEntry, 0, len(calls))
	for _, c := range calls {
		entries = append(entries, interp.PolicyEntry{Package: c.Package, Module: c.Module, Function: c.Function, Kind: c.Kind})
	}
	if len(entries) == 0 {
		return interp.DefaultPolicy(), nil
	}
	return interp.NewPolicy(entries)
}

// buildDevice 按配置组装设备
func buildDevice(approver device.Approver) (*device.RunCtx, error) {
	d := config.Global.Device
	version, err := device.ParseVersion(d.Version)
	if err != nil {
		return nil, err
	}
	policy, err := devicePolicy()
	if err != nil {
		return nil, err
	}
	trusted, err := trustedKey()
	if err != nil {
		return nil, err
	}
	signer, err := loadSigner()
	if err != nil {
		return nil, err
	}

	ttl := config.Global.Token.TTL
	registry := token.NewRegistry(cache.NewMemoryCache(ttl, time.Minute), trusted, ttl)
	cfg := device.Config{
		Version:     version,
		HeapCeiling: d.HeapCeiling,
		Policy:      policy,
		Tokens:      registry,
	}
	return device.New(cfg, signer, approver, device.StaticSettings{BlindSigning: d.BlindSigning}), nil
}

func newApprover() device.Approver {
	if autoApprove {
		return &device.AutoApprover{Approve: true}
	}
	return newConsoleApprover()
}

// transceiver 返回远程设备或进程内设备
func transceiver() (device.Transceiver, error) {
	if deviceURL != "" {
		return client.NewHTTPTransceiver(deviceURL, nil), nil
	}
	dev, err := buildDevice(newApprover())
	if err != nil {
		return nil, err
	}
	return device.Local(dev), nil
}

// run 用一个新的主机执行一条指令
func run(ctx context.Context, t device.Transceiver, ins device.Ins, params ...[]byte) ([]byte, error) {
	return transport.NewHost(device.Exchanger(t, ins), nil).Run(ctx, params...)
}

// consoleApprover 在终端上展示确认内容并读取 y/N
type consoleApprover struct {
	in *bufio.Reader
}

func newConsoleApprover() *consoleApprover {
	return &consoleApprover{in: bufio.NewReader(os.Stdin)}
}

func (a *consoleApprover) ask(prompt string) bool {
	fmt.Print(prompt + " [y/N]: ")
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

func (a *consoleApprover) ConfirmAddress(addr sui.Address) bool {
	fmt.Println("\n================ 确认地址 ================")
	fmt.Println(addr)
	fmt.Println("==========================================")
	return a.ask("地址是否一致")
}

func (a *consoleApprover) ConfirmTransaction(s device.Summary) bool {
	fmt.Println("\n================ 待签名交易 ================")
	fmt.Printf("%-10s  %s\n", "Type", s.Kind)
	for _, f := range s.Fields {
		fmt.Printf("%-10s  %s\n", f.Title, f.Value)
	}
	fmt.Println("============================================")
	return a.ask("确认签名")
}

func (a *consoleApprover) ConfirmBlindSign(digest string) bool {
	fmt.Println("\n!!!!!!!!!!!!!!!! 盲签 !!!!!!!!!!!!!!!!")
	fmt.Println("无法识别该交易，请在其他可信设备上核对交易摘要:")
	fmt.Println(digest)
	fmt.Println("!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!")
	return a.ask("确认盲签")
}
