package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateMetric string
	simulateOld    float64
	simulateNew    float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次趋势变化并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateOld <= 0 || simulateNew <= 0 {
			return errors.New("--old 与 --new 必须大于 0")
		}
		if simulateMetric != "usdt_bob" && simulateMetric != "btc_usd" {
			return errors.New("--metric 必须为 usdt_bob 或 btc_usd")
		}

		return getApp().SimulateAlert(cmd.Context(), simulateMetric, simulateOld, simulateNew)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateMetric, "metric", "usdt_bob", "触发的指标 (usdt_bob | btc_usd)")
	simulateCmd.Flags().Float64Var(&simulateOld, "old", 0, "窗口起始价格")
	simulateCmd.Flags().Float64Var(&simulateNew, "new", 0, "窗口结束价格")
}
