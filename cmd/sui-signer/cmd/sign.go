package cmd

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"sui-signer/internal/device"
	"sui-signer/internal/resolver"
	"sui-signer/internal/sui"
	"sui-signer/internal/transport"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

// ed25519SchemeFlag Sui 签名方案标识
const ed25519SchemeFlag = 0x00

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "在设备上签名一笔 Sui 交易",
	Long: `交易为带 intent 前缀的 BCS 字节 (hex，或 @文件名 读取文件中的 hex)。
--object 提供交易引用的对象记录，设备据此识别币种和金额；--descriptor 提供可信代币描述符。
输出 ed25519 签名以及 Sui 序列化签名 (flag || signature || pubkey 的 base64)。`,
	Run: func(cmd *cobra.Command, args []string) {
		txArg, _ := cmd.Flags().GetString("tx")
		pathArg, _ := cmd.Flags().GetString("path")
		objectArgs, _ := cmd.Flags().GetStringSlice("object")
		descriptorArgs, _ := cmd.Flags().GetStringSlice("descriptor")

		tx, err := readHex(txArg)
		if err != nil {
			fmt.Printf("读取交易失败: %v\n", err)
			os.Exit(1)
		}
		path, err := sui.ParsePath(pathArg)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		var records [][]byte
		for _, o := range objectArgs {
			r, err := readHex(o)
			if err != nil {
				fmt.Printf("读取对象失败: %v\n", err)
				os.Exit(1)
			}
			records = append(records, r)
		}

		t, err := transceiver()
		if err != nil {
			fmt.Printf("连接设备失败: %v\n", err)
			os.Exit(1)
		}
		ctx := cmd.Context()

		for _, d := range descriptorArgs {
			param, err := readHex(d)
			if err != nil {
				fmt.Printf("读取描述符失败: %v\n", err)
				os.Exit(1)
			}
			if _, err := run(ctx, t, device.InsProvideDescriptor, param); err != nil {
				fmt.Printf("设备拒绝描述符: %v\n", err)
				os.Exit(1)
			}
		}

		pub, addr, err := getPubkey(ctx, t, device.InsGetPubkey, path)
		if err != nil {
			fmt.Printf("获取公钥失败: %v\n", err)
			os.Exit(1)
		}

		payload := binary.LittleEndian.AppendUint32(nil, uint32(len(tx)))
		payload = append(payload, tx...)
		params := [][]byte{payload, path.Encode()}
		if len(records) > 0 {
			params = append(params, resolver.EncodeObjects(records))
		}

		digest := sui.TxDigest(tx)
		fmt.Printf("Signer:     %s\n", addr)
		fmt.Printf("Tx Digest:  %s\n", base58.Encode(digest[:]))

		host := transport.NewHost(device.Exchanger(t, device.InsSign), nil)
		sig, err := host.Run(ctx, params...)
		if err != nil {
			fmt.Printf("❌ 签名失败: %v\n", err)
			os.Exit(1)
		}
		// 设备签名后写回的确认内容，远程设备时用于核对
		if shown, err := host.Written(); err == nil && len(shown) > 0 {
			fmt.Printf("\n设备确认内容:\n%s\n", shown)
		}

		serialized := append([]byte{ed25519SchemeFlag}, sig...)
		serialized = append(serialized, pub...)
		fmt.Printf("\n✅ 签名成功!\n")
		fmt.Printf("Signature:  %s\n", hexutil.Encode(sig))
		fmt.Printf("Serialized: %s\n", base64.StdEncoding.EncodeToString(serialized))
	},
}

// readHex 读取 hex 字符串，@ 开头时从文件读取
func readHex(s string) ([]byte, error) {
	if strings.HasPrefix(s, "@") {
		b, err := os.ReadFile(s[1:])
		if err != nil {
			return nil, err
		}
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().String("tx", "", "交易字节 (hex 或 @文件)")
	signCmd.Flags().String("path", defaultAccount, "派生路径")
	signCmd.Flags().StringSlice("object", nil, "对象记录 (hex 或 @文件)，可重复")
	signCmd.Flags().StringSlice("descriptor", nil, "可信代币描述符参数 (hex 或 @文件)，可重复")
	signCmd.MarkFlagRequired("tx")
}
