package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Crypto ETF exposure tracker",
	Long: `Crypto ETF Tracker CLI

US-listed ETF들의 암호화폐 익스포저를 추적합니다.
시간 단위 스냅샷 동기화 + 온디맨드 상세 조회.

Usage:
  go run ./cmd/tracker [command]

Examples:
  go run ./cmd/tracker api
  go run ./cmd/tracker sync
  go run ./cmd/tracker cusips
  go run ./cmd/tracker scheduler list`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
}
