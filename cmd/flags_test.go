package cmd

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestMustGetFlagHelpers(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("verbose", false, "")
	cmd.Flags().Int("limit", 20, "")
	cmd.Flags().String("name", "", "")
	cmd.Flags().Float64("threshold", 0, "")

	if err := cmd.Flags().Parse([]string{"--verbose", "--limit", "5", "--name", "Jan", "--threshold", "0.42"}); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}

	if !mustGetBool(cmd, "verbose") {
		t.Error("expected verbose true")
	}
	if got := mustGetInt(cmd, "limit"); got != 5 {
		t.Errorf("expected limit 5, got %d", got)
	}
	if got := mustGetString(cmd, "name"); got != "Jan" {
		t.Errorf("expected name Jan, got %q", got)
	}
	if got := mustGetFloat64(cmd, "threshold"); got != 0.42 {
		t.Errorf("expected threshold 0.42, got %g", got)
	}
}

func TestMustGetFlagHelpers_UnknownFlagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for an unregistered flag")
		}
	}()
	mustGetFloat64(&cobra.Command{Use: "test"}, "missing")
}
