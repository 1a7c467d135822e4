package cmd

import (
	"fmt"
	"os"

	"sui-signer/internal/device"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "查询设备应用版本",
	Run: func(cmd *cobra.Command, args []string) {
		t, err := transceiver()
		if err != nil {
			fmt.Printf("连接设备失败: %v\n", err)
			os.Exit(1)
		}
		res, err := run(cmd.Context(), t, device.InsGetVersion)
		if err != nil || len(res) < 3 {
			fmt.Printf("查询版本失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s %d.%d.%d\n", res[3:], res[0], res[1], res[2])

		res, err = run(cmd.Context(), t, device.InsGetVersionStr)
		if err != nil {
			fmt.Printf("查询版本失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(res))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
