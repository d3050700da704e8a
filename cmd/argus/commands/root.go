package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "argus",
	Short: "Argus - 관심종목 전략 분석 백엔드",
	Long: `Argus Unified CLI

관심종목 기반 주식 전략 분석 시스템.
YAML 전략 정의를 스캔하고 종목 리스트에 대해 동시 실행합니다.

Usage:
  go run ./cmd/argus [command]

Examples:
  go run ./cmd/argus serve
  go run ./cmd/argus scan
  go run ./cmd/argus run --symbols AAPL,MSFT --save
  go run ./cmd/argus strategies --active`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
