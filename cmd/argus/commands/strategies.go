package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// strategiesCmd represents the strategies command
var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "전략 목록 조회",
	Long: `등록된 전략의 메타데이터를 출력합니다.

Example:
  go run ./cmd/argus strategies
  go run ./cmd/argus strategies --active`,
	RunE: runStrategiesList,
}

var (
	strategiesActive bool
)

func init() {
	rootCmd.AddCommand(strategiesCmd)

	// Flags
	strategiesCmd.Flags().BoolVar(&strategiesActive, "active", false, "활성 전략만 표시")
}

func runStrategiesList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	metas := a.registry.List(strategiesActive)

	if len(metas) == 0 {
		fmt.Println("No strategies registered. Run 'argus scan' first.")
		return nil
	}

	fmt.Printf("Strategies (%d):\n\n", len(metas))

	for _, m := range metas {
		state := "inactive"
		if m.IsActive {
			state = "active"
		}

		fmt.Printf("📊 %s [%s]\n", m.ScriptID, state)
		fmt.Printf("   Name: %s\n", m.DisplayName)
		if m.Description != "" {
			fmt.Printf("   Description: %s\n", m.Description)
		}
		fmt.Printf("   Type: %s\n", m.StrategyType)
		if m.Timeframe != "" {
			fmt.Printf("   Timeframe: %s\n", m.Timeframe)
		}
		if len(m.IndicatorsUsed) > 0 {
			fmt.Printf("   Indicators: %s\n", strings.Join(m.IndicatorsUsed, ", "))
		}
		fmt.Printf("   Source: %s\n", m.SourceLocation)
		fmt.Printf("   Last Scanned: %s\n", m.LastScanned.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}

	return nil
}
