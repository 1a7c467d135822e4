package cmd

import (
	"fmt"
	"os"

	"sui-signer/internal/handler"
	"sui-signer/internal/server"
	"sui-signer/pkg/config"
	"sui-signer/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "以 HTTP 服务的形式运行设备",
	Long: `在 server.http_port 上暴露 POST /apdu、GET /health 和 GET /metrics。
确认请求显示在运行服务的终端上，--yes 时自动确认。`,
	Run: func(cmd *cobra.Command, args []string) {
		if config.Global.App.Env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		dev, err := buildDevice(newApprover())
		if err != nil {
			fmt.Printf("初始化设备失败: %v\n", err)
			os.Exit(1)
		}

		r := server.NewHTTPRouter(handler.NewAPDUHandler(dev), config.Global.Device.Version)
		app := server.New(server.Config{HttpPort: config.Global.Server.HttpPort}, r)

		logger.Info("设备已就绪",
			zap.String("version", config.Global.Device.Version),
			zap.Bool("blind_signing", config.Global.Device.BlindSigning))
		if err := app.Run(cmd.Context()); err != nil {
			logger.Fatal("服务异常退出", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
