package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// syncCmd represents the one-shot sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "스냅샷 1회 동기화",
	Long: `스냅샷 동기화를 1회 실행하고 결과를 저장합니다.

서버 없이 cron/CI에서 호출할 수 있습니다.
Redis가 활성화되어 있으면 서버와 같은 락을 사용합니다.

Example:
  go run ./cmd/tracker sync
  SYNC_MAX_ETFS=10 go run ./cmd/tracker sync`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("=== Snapshot Sync ===")
	start := time.Now()

	snap, err := a.syncer.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Printf("\n✅ Synced %d ETFs in %s\n", snap.Count, time.Since(start).Round(time.Millisecond))
	if snap.SyncedAt != nil {
		fmt.Printf("   syncedAt: %s\n", snap.SyncedAt.Format(time.RFC3339))
	}
	return nil
}
