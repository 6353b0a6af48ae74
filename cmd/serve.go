package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lbansal/face-attendance/internal/config"
	"github.com/lbansal/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin web server",
	Long: `Start the admin web server without the kiosk loop.
The server manages subjects and attendance records and exports CSV
reports. The kiosk display endpoint reports the idle screen.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	st, pool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	records, closeRecords, err := openRecords(ctx, cfg, st)
	if err != nil {
		return err
	}
	if closeRecords != nil {
		defer closeRecords()
	}

	gallery, err := loadGallery(ctx, st, cfg.Detector.Threshold)
	if err != nil {
		return err
	}

	stores := web.Stores{Records: records, Subjects: st, Events: st}
	server := web.NewServer(cfg, stores, nil, gallery)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting admin API on %s\n", cfg.Web.Listen)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
