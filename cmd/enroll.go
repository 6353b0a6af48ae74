package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lbansal/face-attendance/internal/config"
	"github.com/lbansal/face-attendance/internal/detect"
	"github.com/lbansal/face-attendance/internal/store"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [image-or-directory]",
	Short: "Enroll subjects from face photos",
	Long: `Enroll one subject from a single photo, or a batch of subjects from a
directory of photos. Each photo must contain exactly one face.

In directory mode the filename stem is the subject ID. A roster CSV
(id,name,branch) supplies names; subjects missing from the roster get
their ID as name.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("id", "", "Subject ID (single photo mode, defaults to the normalized name)")
	enrollCmd.Flags().String("name", "", "Subject name (single photo mode)")
	enrollCmd.Flags().String("branch", "", "Subject branch")
	enrollCmd.Flags().String("roster", "", "Roster CSV with id,name,branch columns (directory mode)")
	enrollCmd.Flags().Bool("no-record", false, "Do not create an initial attendance record")
	enrollCmd.Flags().Bool("update", false, "Re-enroll subjects that are already enrolled, replacing their embedding")
}

// rosterEntry is one row of the enrollment roster.
type rosterEntry struct {
	Name   string
	Branch string
}

// loadRoster reads a CSV of id,name,branch rows. A header row is skipped.
func loadRoster(path string) (map[string]rosterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	roster := make(map[string]rosterEntry)
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read roster: %w", err)
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "id") {
				continue
			}
		}
		if len(row) < 2 {
			continue
		}
		entry := rosterEntry{Name: strings.TrimSpace(row[1])}
		if len(row) > 2 {
			entry.Branch = strings.TrimSpace(row[2])
		}
		roster[strings.TrimSpace(row[0])] = entry
	}
	return roster, nil
}

// embedFace sends a photo to the detector and returns the single face embedding.
func embedFace(ctx context.Context, detector *detect.Client, imageData []byte) ([]float32, error) {
	detections, err := detector.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return nil, errors.New("no face found")
	}
	if len(detections) > 1 {
		return nil, fmt.Errorf("expected exactly one face, found %d", len(detections))
	}
	return detections[0].Embedding, nil
}

// enrollOne stores the subject and, unless disabled, seeds a never-marked
// attendance record. An existing record is left untouched. Re-enrolling an
// existing subject requires update, so a stray photo cannot silently replace
// someone's embedding.
func enrollOne(ctx context.Context, st *enrollTarget, subj store.Subject, seedRecord, update bool) error {
	existing, err := st.Subjects.GetSubject(ctx, subj.ID)
	if err != nil {
		return err
	}
	if existing != nil && !update {
		return fmt.Errorf("%s is already enrolled, use --update to re-enroll", subj.ID)
	}

	if err := st.Subjects.PutSubject(ctx, subj); err != nil {
		return err
	}
	if !seedRecord {
		return nil
	}

	rec, err := st.Records.GetRecord(ctx, subj.ID)
	if err != nil {
		return err
	}
	if rec != nil {
		return nil
	}
	return st.Records.PutRecord(ctx, store.AttendanceRecord{
		SubjectID: subj.ID,
		Name:      subj.Name,
		Branch:    subj.Branch,
	})
}

// enrollTarget groups the store slices enrollment writes to.
type enrollTarget struct {
	Subjects store.SubjectWriter
	Records  store.RecordWriter
}

func runEnroll(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg := config.Load()
	ctx := context.Background()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

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

	detector := detect.NewClient(cfg.Detector.URL)
	target := &enrollTarget{Subjects: st, Records: records}
	seedRecord := !mustGetBool(cmd, "no-record")
	update := mustGetBool(cmd, "update")

	if info.IsDir() {
		return enrollDirectory(ctx, cmd, target, detector, path, seedRecord, update)
	}
	return enrollSingle(ctx, cmd, target, detector, path, seedRecord, update)
}

func enrollSingle(ctx context.Context, cmd *cobra.Command, target *enrollTarget, detector *detect.Client, path string, seedRecord, update bool) error {
	name := mustGetString(cmd, "name")
	if name == "" {
		return errors.New("--name is required for single photo enrollment")
	}

	id := mustGetString(cmd, "id")
	if id == "" {
		id = strings.ReplaceAll(store.NormalizeName(name), " ", "-")
	}

	imageData, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	embedding, err := embedFace(ctx, detector, imageData)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	subj := store.Subject{
		ID:        id,
		Name:      name,
		Branch:    mustGetString(cmd, "branch"),
		Embedding: embedding,
	}
	if err := enrollOne(ctx, target, subj, seedRecord, update); err != nil {
		return fmt.Errorf("failed to enroll %s: %w", id, err)
	}

	fmt.Printf("Enrolled %s (%s), %d-dim embedding\n", name, id, len(embedding))
	return nil
}

func enrollDirectory(ctx context.Context, cmd *cobra.Command, target *enrollTarget, detector *detect.Client, dir string, seedRecord, update bool) error {
	roster := map[string]rosterEntry{}
	if rosterPath := mustGetString(cmd, "roster"); rosterPath != "" {
		var err error
		roster, err = loadRoster(rosterPath)
		if err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	var photos []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			photos = append(photos, e.Name())
		}
	}
	sort.Strings(photos)

	if len(photos) == 0 {
		return fmt.Errorf("no photos found in %s", dir)
	}

	fmt.Printf("Enrolling %d subjects from %s\n\n", len(photos), dir)
	bar := progressbar.NewOptions(len(photos),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("subjects"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var failed []string
	branch := mustGetString(cmd, "branch")
	for _, photo := range photos {
		id := strings.TrimSuffix(photo, filepath.Ext(photo))

		imageData, err := os.ReadFile(filepath.Join(dir, photo))
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", photo, err))
			bar.Add(1)
			continue
		}

		embedding, err := embedFace(ctx, detector, imageData)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", photo, err))
			bar.Add(1)
			continue
		}

		subj := store.Subject{ID: id, Name: id, Branch: branch, Embedding: embedding}
		if entry, ok := roster[id]; ok {
			subj.Name = entry.Name
			if entry.Branch != "" {
				subj.Branch = entry.Branch
			}
		}

		if err := enrollOne(ctx, target, subj, seedRecord, update); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", photo, err))
		}
		bar.Add(1)
	}

	fmt.Printf("\n\nEnrolled %d subjects", len(photos)-len(failed))
	if len(failed) > 0 {
		fmt.Printf(", %d failed:\n", len(failed))
		for _, f := range failed {
			fmt.Printf("  %s\n", f)
		}
	} else {
		fmt.Println()
	}
	return nil
}
