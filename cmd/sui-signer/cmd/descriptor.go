package cmd

import (
	"fmt"
	"os"

	"sui-signer/internal/sui"
	"sui-signer/internal/token"
	"sui-signer/pkg/crypto_util"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var descriptorCmd = &cobra.Command{
	Use:   "descriptor",
	Short: "可信代币描述符工具",
	Long:  `生成描述符签名密钥，以及为测试环境签发可信代币描述符。`,
}

var descriptorKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "生成 secp256k1 签名密钥",
	Run: func(cmd *cobra.Command, args []string) {
		priv, pub, err := crypto_util.GenerateSecp256k1KeyPair()
		if err != nil {
			fmt.Printf("生成密钥失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Private Key: %s\n", hexutil.Encode(priv.Serialize()))
		fmt.Printf("Public Key:  %s   (token.trusted_key)\n", hexutil.Encode(pub.SerializeCompressed()))
	},
}

var descriptorBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "签发一个代币描述符",
	Run: func(cmd *cobra.Command, args []string) {
		keyHex, _ := cmd.Flags().GetString("key")
		coinType, _ := cmd.Flags().GetString("coin-type")
		ticker, _ := cmd.Flags().GetString("ticker")
		decimals, _ := cmd.Flags().GetUint8("decimals")

		keyBytes, err := hexutil.Decode(keyHex)
		if err != nil || len(keyBytes) != btcec.PrivKeyBytesLen {
			fmt.Println("无效的私钥")
			os.Exit(1)
		}
		priv, _ := btcec.PrivKeyFromBytes(keyBytes)

		ct, err := sui.ParseCoinType(coinType)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		param := token.Build(ticker, decimals, token.TUID{Package: ct.Package, Module: ct.Module, Struct: ct.Name}, priv)

		// 回读校验
		d, err := token.ParseParam(param)
		if err == nil {
			err = d.Verify(priv.PubKey())
		}
		if err != nil {
			fmt.Printf("描述符无效: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hexutil.Encode(param))
	},
}

func init() {
	rootCmd.AddCommand(descriptorCmd)
	descriptorCmd.AddCommand(descriptorKeygenCmd)
	descriptorCmd.AddCommand(descriptorBuildCmd)

	descriptorBuildCmd.Flags().String("key", "", "签名私钥 (hex)")
	descriptorBuildCmd.Flags().String("coin-type", "", "代币类型，例如 0xdeeb...::deep::DEEP")
	descriptorBuildCmd.Flags().String("ticker", "", "显示名称")
	descriptorBuildCmd.Flags().Uint8("decimals", 9, "小数位数")
	descriptorBuildCmd.MarkFlagRequired("key")
	descriptorBuildCmd.MarkFlagRequired("coin-type")
	descriptorBuildCmd.MarkFlagRequired("ticker")
}
