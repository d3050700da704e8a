package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/internal/engine"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "전략 실행",
	Long: `관심목록 또는 심볼 리스트에 대해 전략을 실행합니다.

이 명령어는:
- 활성 전략(또는 --strategies로 지정한 전략) 동시 실행
- 심볼별 병합 결과 출력
- --save 지정 시 결과 저장

Example:
  go run ./cmd/argus run --watchlist 3
  go run ./cmd/argus run --symbols AAPL,MSFT,005930
  go run ./cmd/argus run --symbols AAPL --strategies golden_cross --save`,
	RunE: runRun,
}

var (
	runWatchlistID int64
	runSymbols     []string
	runStrategies  []string
	runSave        bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().Int64Var(&runWatchlistID, "watchlist", 0, "실행할 관심목록 ID")
	runCmd.Flags().StringSliceVar(&runSymbols, "symbols", nil, "심볼 목록 (쉼표 구분)")
	runCmd.Flags().StringSliceVar(&runStrategies, "strategies", nil, "전략 ID 목록 (기본: 활성 전략 전체)")
	runCmd.Flags().BoolVar(&runSave, "save", false, "결과를 저장")
}

func runRun(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Argus Strategy Run ===")

	if runWatchlistID != 0 && len(runSymbols) > 0 {
		return fmt.Errorf("use --watchlist or --symbols, not both")
	}
	if runWatchlistID == 0 && len(runSymbols) == 0 {
		return fmt.Errorf("either --watchlist or --symbols is required")
	}

	ctx := context.Background()

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// 1. Pick up definitions written since the last scan
	if a.cfg.Strategies.ScanOnStart {
		if _, err := a.registry.Scan(ctx); err != nil {
			return fmt.Errorf("scan strategies: %w", err)
		}
	}

	// 2. Resolve the symbol source
	req := engine.Request{
		Symbols:     runSymbols,
		StrategyIDs: runStrategies,
	}
	if runWatchlistID != 0 {
		wl, symbols, err := a.catalog.WatchlistWithSymbols(ctx, runWatchlistID)
		if err != nil {
			return fmt.Errorf("load watchlist %d: %w", runWatchlistID, err)
		}
		req.WatchlistID = wl.ID
		req.WatchlistName = wl.Name
		req.Symbols = symbols
	}

	// 3. Default to every active strategy
	if len(req.StrategyIDs) == 0 {
		req.StrategyIDs = a.registry.ActiveIDs()
		if len(req.StrategyIDs) == 0 {
			return fmt.Errorf("no active strategies, run 'argus scan' or pass --strategies")
		}
	}

	// 4. Execute
	eng := engine.New(a.registry, a.results, a.cfg.Engine.StrategyTimeout, nil, a.log)

	run, err := eng.Execute(ctx, req, engine.Options{SaveResults: runSave})
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	printRun(run)
	return nil
}

// printRun renders one finished run for the terminal.
func printRun(run *contracts.Run) {
	fmt.Printf("\n✅ Run %s finished in %dms\n", run.ID, run.DurationMS)
	if run.WatchlistName != "" {
		fmt.Printf("   Watchlist: %s\n", run.WatchlistName)
	}
	fmt.Printf("   Strategies: %d, Symbols: %d, Matched: %d\n",
		len(run.StrategyIDs), len(run.Symbols), len(run.MatchedSymbols()))

	if len(run.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range run.Warnings {
			fmt.Printf("  ! [%s] %s\n", w.Code, w.Message)
		}
	}

	fmt.Println("\nResults:")
	for i := range run.Results {
		res := &run.Results[i]
		fmt.Printf("📊 %s (%d match(es))\n", res.Symbol, res.TotalMatches)

		for _, id := range run.StrategyIDs {
			out, ok := res.PerStrategy[id]
			if !ok || out == nil {
				continue
			}

			switch {
			case out.NoData:
				fmt.Printf("   - %-20s no data (%s)\n", id, out.Reason)
			case out.Matched:
				fmt.Printf("   ✓ %-20s score %.1f  %s\n", id, out.Score, out.Reason)
			default:
				fmt.Printf("   · %-20s %s\n", id, out.Reason)
			}
		}
	}
}
