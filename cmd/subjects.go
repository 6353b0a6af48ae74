package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lbansal/face-attendance/internal/config"
	"github.com/lbansal/face-attendance/internal/detect"
	"github.com/lbansal/face-attendance/internal/store"
	"github.com/spf13/cobra"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "Manage enrolled subjects",
}

var subjectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled subjects",
	RunE:  runSubjectsList,
}

var subjectsAddCmd = &cobra.Command{
	Use:   "add [photo]",
	Short: "Enroll a new subject from a face photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubjectsAdd,
}

var subjectsUpdateCmd = &cobra.Command{
	Use:   "update [subject-id]",
	Short: "Update an enrolled subject's name, branch or photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubjectsUpdate,
}

var subjectsRemoveCmd = &cobra.Command{
	Use:   "remove [subject-id]",
	Short: "Remove a subject and its attendance record",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubjectsRemove,
}

func init() {
	rootCmd.AddCommand(subjectsCmd)
	subjectsCmd.AddCommand(subjectsListCmd)
	subjectsCmd.AddCommand(subjectsAddCmd)
	subjectsCmd.AddCommand(subjectsUpdateCmd)
	subjectsCmd.AddCommand(subjectsRemoveCmd)

	subjectsAddCmd.Flags().String("id", "", "Subject ID (defaults to the normalized name)")
	subjectsAddCmd.Flags().String("name", "", "Subject name")
	subjectsAddCmd.Flags().String("branch", "", "Subject branch")
	subjectsAddCmd.Flags().Bool("no-record", false, "Do not create an initial attendance record")

	subjectsUpdateCmd.Flags().String("name", "", "New subject name")
	subjectsUpdateCmd.Flags().String("branch", "", "New subject branch")
	subjectsUpdateCmd.Flags().String("photo", "", "Photo to re-embed the subject from")

	subjectsRemoveCmd.Flags().Bool("keep-record", false, "Keep the attendance record")
}

func runSubjectsList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	st, pool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	subjects, err := st.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subjects: %w", err)
	}

	if len(subjects) == 0 {
		fmt.Println("No subjects enrolled.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBRANCH\tDIM\tENROLLED")
	for _, s := range subjects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.Name, s.Branch, len(s.Embedding), s.CreatedAt.Format("2006-01-02"))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d subjects\n", len(subjects))
	return nil
}

func runSubjectsAdd(cmd *cobra.Command, args []string) error {
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

	detector := detect.NewClient(cfg.Detector.URL)
	target := &enrollTarget{Subjects: st, Records: records}
	seedRecord := !mustGetBool(cmd, "no-record")

	// Adding never overwrites; re-enrollment goes through enroll --update.
	return enrollSingle(ctx, cmd, target, detector, args[0], seedRecord, false)
}

// subjectPatch is a partial update for an enrolled subject. Empty fields are
// left untouched, except Branch when BranchSet marks it as given.
type subjectPatch struct {
	Name      string
	Branch    string
	BranchSet bool
	Embedding []float32
}

// updateSubject applies a patch to an enrolled subject.
func updateSubject(ctx context.Context, st store.SubjectWriter, id string, patch subjectPatch) error {
	subj, err := st.GetSubject(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get subject: %w", err)
	}
	if subj == nil {
		return fmt.Errorf("subject %s is not enrolled", id)
	}

	if patch.Name != "" {
		subj.Name = patch.Name
	}
	if patch.BranchSet {
		subj.Branch = patch.Branch
	}
	if len(patch.Embedding) > 0 {
		subj.Embedding = patch.Embedding
		subj.Dim = len(patch.Embedding)
	}

	if err := st.PutSubject(ctx, *subj); err != nil {
		return fmt.Errorf("failed to store subject: %w", err)
	}
	return nil
}

func runSubjectsUpdate(cmd *cobra.Command, args []string) error {
	id := args[0]
	cfg := config.Load()
	ctx := context.Background()

	st, pool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	patch := subjectPatch{
		Name:      mustGetString(cmd, "name"),
		Branch:    mustGetString(cmd, "branch"),
		BranchSet: cmd.Flags().Changed("branch"),
	}

	if photo := mustGetString(cmd, "photo"); photo != "" {
		imageData, err := os.ReadFile(photo)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", photo, err)
		}
		embedding, err := embedFace(ctx, detect.NewClient(cfg.Detector.URL), imageData)
		if err != nil {
			return fmt.Errorf("%s: %w", photo, err)
		}
		patch.Embedding = embedding
	}

	if err := updateSubject(ctx, st, id, patch); err != nil {
		return err
	}

	fmt.Printf("Updated %s\n", id)
	return nil
}

func runSubjectsRemove(cmd *cobra.Command, args []string) error {
	id := args[0]
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

	if err := st.DeleteSubject(ctx, id); err != nil {
		return fmt.Errorf("failed to delete subject: %w", err)
	}
	if !mustGetBool(cmd, "keep-record") {
		if err := records.DeleteRecord(ctx, id); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
	}

	fmt.Printf("Removed %s\n", id)
	return nil
}
