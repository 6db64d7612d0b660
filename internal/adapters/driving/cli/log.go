package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	logCycles bool
	logLimit  int
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show sent replies or poll cycle history",
	Long: `Prints the log of sent replies. With --cycles, prints the recorded
poll cycle history instead (newest first).`,
	RunE: runLog,
}

func init() {
	logCmd.Flags().BoolVar(&logCycles, "cycles", false, "show poll cycle history")
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "maximum number of entries")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, _ []string) error {
	if logCycles {
		return runLogCycles(cmd)
	}
	return runLogReplies(cmd)
}

func runLogReplies(cmd *cobra.Command) error {
	if replyStateStore == nil {
		return errors.New("reply state store not configured")
	}

	entries, err := replyStateStore.LoadReplyLog(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load reply log: %w", err)
	}

	if len(entries) == 0 {
		cmd.Println("No replies sent yet.")
		return nil
	}

	// Newest last on disk; show newest first, capped at the limit.
	shown := 0
	cmd.Println("Sent replies:")
	cmd.Println()
	for i := len(entries) - 1; i >= 0 && shown < logLimit; i-- {
		e := entries[i]
		cmd.Printf("  %s  %s\n", e.Date.Format("2006-01-02 15:04"), e.Subject)
		cmd.Printf("      To: %s (message %s)\n", e.To, e.ID)
		cmd.Println()
		shown++
	}
	cmd.Printf("Showing %d of %d entries.\n", shown, len(entries))
	return nil
}

func runLogCycles(cmd *cobra.Command) error {
	if cycleStore == nil {
		return errors.New("cycle store not configured")
	}

	cycles, err := cycleStore.List(context.Background(), logLimit)
	if err != nil {
		return fmt.Errorf("failed to list cycles: %w", err)
	}

	if len(cycles) == 0 {
		cmd.Println("No poll cycles recorded yet.")
		return nil
	}

	cmd.Println("Poll cycles (newest first):")
	cmd.Println()
	for i := range cycles {
		c := cycles[i]
		cmd.Printf("  %s  fetched=%d filtered=%d replied=%d\n",
			c.StartedAt.Format("2006-01-02 15:04:05"), c.Fetched, c.Filtered, c.Replied)
		if c.Offline {
			cmd.Println("      offline")
		}
		if c.Error != "" {
			cmd.Printf("      error: %s\n", c.Error)
		}
	}
	return nil
}
