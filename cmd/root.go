package cmd

import (
	"fmt"
	"os"

	"asset-cache/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "asset-cache",
	Short: "Asset Cache Service",
	Long: `Asset Cache resolves, loads and shares game assets from packages,
local files and remote images, keeping each resource loaded once while
it is referenced.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		l, logErr := logger.Console()
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
