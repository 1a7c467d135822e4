package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sui-signer/pkg/config"
	"sui-signer/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	deviceURL   string
	autoApprove bool
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "sui-signer",
	Short: "Sui 硬件钱包签名协处理器",
	Long: `模拟 Sui 硬件钱包的签名设备及其主机端工具。
设备通过 APDU 块协议接收交易，流式解析并展示摘要，用户确认后使用 SLIP-10 ed25519 密钥签名。
不指定 --url 时在进程内运行设备，否则通过 sui-signer serve 暴露的 HTTP 接口访问设备。`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Init()
		logger.Init(config.Global.App.Env)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceURL, "url", "", "设备 HTTP 地址，例如 http://127.0.0.1:5000")
	rootCmd.PersistentFlags().BoolVarP(&autoApprove, "yes", "y", false, "进程内设备自动确认所有请求")
}
