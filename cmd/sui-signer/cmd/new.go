package cmd

import (
	"fmt"
	"os"

	"sui-signer/internal/sui"
	"sui-signer/pkg/bip39"
	"sui-signer/pkg/config"
	"sui-signer/pkg/keystore"
	"sui-signer/pkg/kms"

	"github.com/spf13/cobra"
)

// defaultAccount Sui 钱包的第一个账户
const defaultAccount = "m/44'/784'/0'/0'/0'"

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "创建一个新的设备钱包",
	Long:  `生成一个新的随机 BIP-39 助记词，用密码加密后保存到 keystore，并显示第一个账户的地址。`,
	Run: func(cmd *cobra.Command, args []string) {
		bits, _ := cmd.Flags().GetInt("bits")
		path := config.Global.Wallet.KeystorePath

		if _, err := os.Stat(path); err == nil {
			fmt.Printf("%s 已存在，拒绝覆盖\n", path)
			os.Exit(1)
		}

		mnemonic, err := bip39.NewMnemonicService().GenerateMnemonic(bits)
		if err != nil {
			fmt.Printf("生成助记词失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("---------------------------------------------------")
		fmt.Printf("助记词 (Mnemonic): \n%s\n", mnemonic)
		fmt.Println("---------------------------------------------------")

		password, err := readPassword("设置 Keystore 密码: ")
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		confirm, err := readPassword("再次输入密码: ")
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if password != confirm {
			fmt.Println("两次输入的密码不一致")
			os.Exit(1)
		}

		encrypted, err := keystore.EncryptMnemonic(mnemonic, password)
		if err != nil {
			fmt.Printf("加密失败: %v\n", err)
			os.Exit(1)
		}
		if err := encrypted.SaveToFile(path); err != nil {
			fmt.Printf("保存 Keystore 失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Keystore 已保存到 %s\n", path)

		signer, err := kms.NewFromMnemonic(mnemonic, "")
		if err != nil {
			fmt.Printf("派生密钥失败: %v\n", err)
			os.Exit(1)
		}
		account, _ := sui.ParsePath(defaultAccount)
		pub, err := signer.PublicKey(account)
		if err != nil {
			fmt.Printf("派生密钥失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sui Address [%s]: %s\n", defaultAccount, sui.AddressFromPublicKey(pub))
		fmt.Println("---------------------------------------------------")
		fmt.Println("请妥善保管您的助记词！任何拥有助记词的人都可以控制该钱包的所有资产。")
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().Int("bits", 256, "助记词熵长度 (128-256)")
}
