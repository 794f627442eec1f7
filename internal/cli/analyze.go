package cli

import (
	"github.com/spf13/cobra"
)

var analyzeNotify bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one trend analysis pass over stored samples",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Analyze(cmd.Context(), analyzeNotify)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeNotify, "notify", false, "Send detected trends to the notification channel")
}
