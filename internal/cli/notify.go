package cli

import (
	"github.com/spf13/cobra"
)

var notifyMessage string

var notifyTestCmd = &cobra.Command{
	Use:   "notify-test",
	Short: "发送一条测试消息以验证通知配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().NotifyTest(cmd.Context(), notifyMessage)
	},
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyMessage, "message", "", "自定义测试消息内容")
}
