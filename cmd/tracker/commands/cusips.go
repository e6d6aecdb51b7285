package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// cusipsCmd discovers CUSIPs for the known universe
var cusipsCmd = &cobra.Command{
	Use:   "cusips",
	Short: "알려진 티커의 CUSIP 조회",
	Long: `지식 베이스의 티커들에 대해 심볼 검색으로 CUSIP을 조회하고
{TICKER: CUSIP} JSON 맵을 출력합니다. CUSIP_DATA_URL 문서 작성용.

조회 간 250ms 대기합니다. 찾지 못한 티커는 생략됩니다.

Example:
  go run ./cmd/tracker cusips > cusips.json`,
	RunE: runCUSIPs,
}

var (
	cusipsDelay time.Duration
)

func init() {
	rootCmd.AddCommand(cusipsCmd)

	cusipsCmd.Flags().DurationVar(&cusipsDelay, "delay", 250*time.Millisecond, "조회 간 대기 시간")
}

func runCUSIPs(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.HasFMPKey() {
		return fmt.Errorf("FMP_API_KEY is required for CUSIP discovery")
	}

	symbols := a.kb.CUSIPProbeSymbols()
	found := make(map[string]string, len(symbols))

	for i, symbol := range symbols {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cusipsDelay):
			}
		}

		c := a.market.CUSIPBySymbol(ctx, symbol)
		if c.Known() {
			found[symbol] = c.String()
		}
		fmt.Fprintf(os.Stderr, "%-6s %s\n", symbol, c)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(found)
}
