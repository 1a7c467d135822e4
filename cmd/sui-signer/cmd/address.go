package cmd

import (
	"context"
	"fmt"
	"os"

	"sui-signer/internal/device"
	"sui-signer/internal/sui"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var addressCmd = &cobra.Command{
	Use:   "address [path]",
	Short: "获取派生路径对应的公钥和地址",
	Long:  `默认路径为 m/44'/784'/0'/0'/0'。使用 --verify 时设备会要求用户在屏幕上核对地址。`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		verify, _ := cmd.Flags().GetBool("verify")
		p := defaultAccount
		if len(args) == 1 {
			p = args[0]
		}
		path, err := sui.ParsePath(p)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		t, err := transceiver()
		if err != nil {
			fmt.Printf("连接设备失败: %v\n", err)
			os.Exit(1)
		}
		ins := device.InsGetPubkey
		if verify {
			ins = device.InsVerifyAddress
		}
		pub, addr, err := getPubkey(cmd.Context(), t, ins, path)
		if err != nil {
			fmt.Printf("获取地址失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Path:       %s\n", path)
		fmt.Printf("Public Key: %s\n", hexutil.Encode(pub))
		fmt.Printf("Address:    %s\n", addr)
	},
}

// getPubkey 解析 [len][pubkey][len][address] 形式的应答
func getPubkey(ctx context.Context, t device.Transceiver, ins device.Ins, path sui.Path) ([]byte, sui.Address, error) {
	res, err := run(ctx, t, ins, path.Encode())
	if err != nil {
		return nil, sui.Address{}, err
	}
	if len(res) < 1 || len(res) < 1+int(res[0])+1 {
		return nil, sui.Address{}, fmt.Errorf("应答长度异常: %d", len(res))
	}
	pub := res[1 : 1+res[0]]
	rest := res[1+len(pub):]
	if int(rest[0]) != sui.AddressLength || len(rest) != 1+sui.AddressLength {
		return nil, sui.Address{}, fmt.Errorf("应答中的地址长度异常")
	}
	return pub, sui.Address(rest[1:]), nil
}

func init() {
	rootCmd.AddCommand(addressCmd)
	addressCmd.Flags().Bool("verify", false, "在设备上核对地址")
}
