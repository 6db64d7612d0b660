package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailpilot/internal/core/ports/driving"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

var watchNow bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor the mailbox and answer incoming mail",
	Long: `Starts the poll loop: fetch unread mail, filter it, draft grounded
replies and send them inside the configured time window. Settings changes
in the config file are picked up without a restart.

Press Ctrl-C to stop; an in-flight cycle always runs to completion.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "run a poll cycle immediately on start")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if poller == nil {
		return errors.New("poller not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settingsWatch != nil {
		if err := settingsWatch(ctx); err != nil {
			logger.Warn("Settings hot reload unavailable: %v", err)
		}
	}

	events := poller.Subscribe()
	go printEvents(ctx, cmd, events)

	cmd.Println("Watching mailbox. Press Ctrl-C to stop.")

	if watchNow {
		poller.CheckNow()
	}

	return poller.Run(ctx)
}

func printEvents(ctx context.Context, cmd *cobra.Command, events <-chan driving.PollerEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev.Kind {
			case "online":
				cmd.Println("Mailbox connection established.")
			case "offline":
				cmd.Println("Mailbox unreachable, retrying on next cycle.")
			case "emails":
				cmd.Printf("%d message(s) awaiting replies.\n", len(ev.Emails))
			case "replied":
				cmd.Printf("Replied to message %s.\n", ev.MessageID)
			}
		}
	}
}
