package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/lbansal/face-attendance/internal/config"
	"github.com/lbansal/face-attendance/internal/store"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Show attendance records",
	RunE:  runRecords,
}

var recordsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export attendance records as CSV",
	Long: `Export all attendance records as CSV, to the given file or to
standard output. Columns match the admin API export.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecordsExport,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent attendance events",
	RunE:  runEvents,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(eventsCmd)
	recordsCmd.AddCommand(recordsExportCmd)

	eventsCmd.Flags().Int("limit", 20, "Number of events to show")
}

func runRecords(cmd *cobra.Command, args []string) error {
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

	all, err := records.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if len(all) == 0 {
		fmt.Println("No attendance records.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBRANCH\tTOTAL\tLAST MARKED")
	for _, r := range all {
		last := r.LastAttendanceTime
		if _, ok := r.LastMarked(); !ok {
			last = "never"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.SubjectID, r.Name, r.Branch, r.TotalAttendance, last)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d records\n", len(all))
	return nil
}

// writeRecordsCSV writes records in the admin API export layout.
func writeRecordsCSV(w io.Writer, records []store.AttendanceRecord) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"subject_id", "name", "branch", "status", "total_attendance", "last_attendance_time"})
	for _, rec := range records {
		cw.Write([]string{
			rec.SubjectID,
			rec.Name,
			rec.Branch,
			string(rec.Status),
			strconv.Itoa(rec.TotalAttendance),
			rec.LastAttendanceTime,
		})
	}
	cw.Flush()
	return cw.Error()
}

func runRecordsExport(cmd *cobra.Command, args []string) error {
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

	all, err := records.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	out := io.Writer(os.Stdout)
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", args[0], err)
		}
		defer f.Close()
		out = f
	}

	if err := writeRecordsCSV(out, all); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	if len(args) == 1 {
		fmt.Printf("Exported %d records to %s\n", len(all), args[0])
	}
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	st, pool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	events, err := st.RecentEvents(ctx, mustGetInt(cmd, "limit"))
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("No attendance events.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MARKED AT\tSUBJECT\tSTATION\tTOTAL")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			ev.MarkedAt.Format("2006-01-02 15:04:05"), ev.SubjectID, ev.Station, ev.Total)
	}
	w.Flush()

	return nil
}
