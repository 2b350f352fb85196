package commands

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/guardpost/guardpost/cmd/guardpost/internal/config"
	"github.com/guardpost/guardpost/pkg/index"
	"github.com/guardpost/guardpost/pkg/kv"
)

var (
	sessionsHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	sessionsDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions from the session index",
	Long: `List recorded sessions from the session index.

Reads the BadgerDB index configured as index_dir. The serving
coordinator holds a lock on the index directory; run this against a
stopped coordinator or a copy of the index.`,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.IndexDir == "" {
		return fmt.Errorf("no index_dir configured in %s", configPath)
	}

	store, err := kv.NewBadger(kv.BadgerOptions{Dir: cfg.IndexDir})
	if err != nil {
		return fmt.Errorf("open session index: %w", err)
	}
	ix := index.New(store)
	defer ix.Close()

	recs, err := ix.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println(sessionsDim.Render("no recorded sessions"))
		return nil
	}

	fmt.Println(sessionsHeader.Render(fmt.Sprintf(
		"%-21s %-9s %12s %8s", "SESSION", "DURATION", "AUDIO", "ROWS")))
	for _, rec := range recs {
		fmt.Printf("%-21s %-9s %12d %8d\n",
			rec.ID, formatDuration(rec), rec.AudioBytes, rec.TelemetryRows)
	}
	fmt.Println(sessionsDim.Render(fmt.Sprintf("%d session(s)", len(recs))))
	return nil
}

// formatDuration renders the wall-clock session length, or "active"
// while the session has not been finalized.
func formatDuration(rec *index.Record) string {
	stopped := time.Time(rec.StoppedAt)
	if stopped.IsZero() {
		return "active"
	}
	return stopped.Sub(time.Time(rec.StartedAt)).Round(time.Second).String()
}
