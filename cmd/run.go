package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lbansal/face-attendance/internal/capture"
	"github.com/lbansal/face-attendance/internal/config"
	"github.com/lbansal/face-attendance/internal/detect"
	"github.com/lbansal/face-attendance/internal/recognize"
	"github.com/lbansal/face-attendance/internal/session"
	"github.com/lbansal/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the attendance kiosk",
	Long: `Run the attendance kiosk loop: read camera frames, detect and match
faces against enrolled subjects, and mark attendance through the session
controller. The admin API and the kiosk display state are served alongside.`,
	RunE: runKiosk,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("loop-frames", false, "Loop over the frames directory instead of stopping at the end")
	runCmd.Flags().Bool("verbose", false, "Log every accepted match with its full-frame face box")
	runCmd.Flags().Bool("async-store", false, "Resolve record store calls on a worker goroutine instead of the tick path")
	runCmd.Flags().Int("store-queue", 16, "Mark request queue size used with --async-store")
	runCmd.Flags().Bool("no-web", false, "Run the kiosk loop without the admin web server")
	runCmd.Flags().Float64("threshold", 0, "Override the accept threshold (ACCEPT_THRESHOLD)")
}

// openSource picks the camera source: an MJPEG stream or a frames directory.
func openSource(ctx context.Context, cfg *config.Config, loop bool) (capture.Source, error) {
	if cfg.Camera.FramesDir != "" {
		interval := time.Duration(cfg.Camera.IntervalMS) * time.Millisecond
		return capture.OpenDir(cfg.Camera.FramesDir, interval, loop)
	}
	if cfg.Camera.URL != "" {
		return capture.OpenMJPEG(ctx, cfg.Camera.URL)
	}
	return nil, errors.New("CAMERA_URL or CAMERA_FRAMES_DIR environment variable is required")
}

func runKiosk(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if v := mustGetFloat64(cmd, "threshold"); v > 0 {
		cfg.Detector.Threshold = v
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	events, closeMirror, err := eventWriters(ctx, cfg, st)
	if err != nil {
		return err
	}
	if closeMirror != nil {
		defer closeMirror()
	}

	gallery, err := loadGallery(ctx, st, cfg.Detector.Threshold)
	if err != nil {
		return err
	}

	source, err := openSource(ctx, cfg, mustGetBool(cmd, "loop-frames"))
	if err != nil {
		return err
	}
	defer source.Close()

	opts := []session.Option{session.WithEvents(events)}
	if mustGetBool(cmd, "async-store") {
		opts = append(opts, session.WithWorker(mustGetInt(cmd, "store-queue")))
	}
	controller := session.New(records, session.Config{
		Cooldown:     time.Duration(cfg.Session.CooldownSeconds) * time.Second,
		DisplayTicks: cfg.Session.DisplayTicks,
		Station:      cfg.Session.Station,
	}, opts...)
	defer controller.Close()

	detector := detect.NewClient(cfg.Detector.URL)

	var server *web.Server
	if !mustGetBool(cmd, "no-web") {
		stores := web.Stores{Records: records, Subjects: st, Events: st}
		server = web.NewServer(cfg, stores, controller, gallery)
		go func() {
			if err := server.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "web server: %v\n", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	fmt.Printf("Kiosk running on station %q (cooldown %ds, display %d ticks)\n",
		cfg.Session.Station, cfg.Session.CooldownSeconds, cfg.Session.DisplayTicks)

	err = tickLoop(ctx, source, detector, gallery, controller, cfg.Detector.Downscale, mustGetBool(cmd, "verbose"))

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if serr := server.Shutdown(shutdownCtx); serr != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", serr)
		}
	}
	return err
}

// tickLoop is the per-frame pipeline: downscale, detect, match, tick.
// Detector outages are logged and skipped; the controller holds its state
// until faces are observed again.
func tickLoop(
	ctx context.Context,
	source capture.Source,
	detector *detect.Client,
	gallery *recognize.Gallery,
	controller *session.Controller,
	downscale float64,
	verbose bool,
) error {
	var lastMode session.Mode = session.ModeIdle

	for {
		frame, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Println("Camera stream ended")
			return nil
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}

		small, err := detect.Downscale(frame.Data, downscale)
		if err != nil {
			fmt.Fprintf(os.Stderr, "frame %d: downscale failed: %v\n", frame.Seq, err)
			continue
		}

		detections, err := detector.DetectFaces(ctx, small)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "frame %d: detector: %v\n", frame.Seq, err)
			continue
		}

		var observed []session.Observation
		for _, m := range gallery.MatchAll(detections) {
			if !m.Accepted {
				continue
			}
			if verbose {
				// The detector saw the downscaled frame; report the box in
				// full-frame coordinates.
				box := recognize.CornerToRect(recognize.ScaleBBox(m.BBox, downscale))
				fmt.Printf("frame %d: %s at (%.0f,%.0f) %.0fx%.0f, distance %.3f\n",
					frame.Seq, m.SubjectID, box[0], box[1], box[2], box[3], m.Distance)
			}
			observed = append(observed, session.Observation{
				SubjectID: m.SubjectID,
				Distance:  m.Distance,
			})
		}

		sig := controller.Tick(ctx, observed)
		if sig.Mode != lastMode {
			logSignal(frame.Seq, sig)
			lastMode = sig.Mode
		}
	}
}

func logSignal(seq int, sig session.Signal) {
	switch sig.Mode {
	case session.ModeShowingRecord:
		if sig.Record != nil {
			fmt.Printf("frame %d: marked %s (%s), total %d\n",
				seq, sig.Record.Name, sig.SubjectID, sig.Record.TotalAttendance)
			return
		}
		fmt.Printf("frame %d: marked %s\n", seq, sig.SubjectID)
	case session.ModeAlreadyMarked:
		fmt.Printf("frame %d: %s already marked\n", seq, sig.SubjectID)
	case session.ModeChecking:
		fmt.Printf("frame %d: checking %s\n", seq, sig.SubjectID)
	case session.ModeIdle:
		fmt.Printf("frame %d: idle\n", seq)
	}
}
