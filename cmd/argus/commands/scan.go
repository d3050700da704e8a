package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "전략 디렉터리 스캔",
	Long: `전략 정의 디렉터리를 스캔하고 레지스트리를 갱신합니다.

이 명령어는:
- YAML 전략 정의 검증 및 등록
- 변경된 정의 갱신
- 계약 위반 파일 보고

Example:
  go run ./cmd/argus scan`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Argus Strategy Scan ===")

	ctx := context.Background()

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.registry.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan strategies: %w", err)
	}

	fmt.Printf("\n✅ Scan complete: %d definition(s) in %s\n", report.Scanned, a.cfg.Strategies.Dir)

	if len(report.Added) > 0 {
		fmt.Println("\nAdded:")
		for _, id := range report.Added {
			fmt.Printf("  + %s\n", id)
		}
	}

	if len(report.Updated) > 0 {
		fmt.Println("\nUpdated:")
		for _, id := range report.Updated {
			fmt.Printf("  ~ %s\n", id)
		}
	}

	if len(report.Failed) > 0 {
		fmt.Println("\nFailed:")
		for _, f := range report.Failed {
			fmt.Printf("  ✗ %s: %s\n", f.Candidate, f.Reason)
		}
	}

	return nil
}
