// Package cli provides the cobra command tree for the mailpilot binary.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driving"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by main before Execute. Commands nil-check the ones
// they need so a partially wired binary still runs its other commands.
var (
	knowledgeService driving.KnowledgeService
	replyService     driving.ReplyService
	poller           driving.Poller
	configStore      driven.ConfigStore
	replyStateStore  driven.ReplyStateStore
	cycleStore       driven.CycleStore
	textExtractor    driven.TextExtractor

	// settingsWatch starts the config hot-reload watcher, when wired.
	settingsWatch func(ctx context.Context) error
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "mailpilot",
	Short: "Mailbox assistant with a local knowledge base",
	Long: `Mailpilot monitors a mailbox, drafts grounded replies from a local
semantic knowledge base, and sends them during a configured time window.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Services aggregates everything the command tree needs. A single injection
// point keeps main's wiring in one place.
type Services struct {
	Knowledge  driving.KnowledgeService
	Reply      driving.ReplyService
	Poller     driving.Poller
	Config     driven.ConfigStore
	ReplyState driven.ReplyStateStore
	Cycles     driven.CycleStore
	Extractor  driven.TextExtractor

	// SettingsWatch starts hot reload of the assistant settings.
	SettingsWatch func(ctx context.Context) error
}

// SetServices injects the wired services into the command tree.
func SetServices(s Services) {
	knowledgeService = s.Knowledge
	replyService = s.Reply
	poller = s.Poller
	configStore = s.Config
	replyStateStore = s.ReplyState
	cycleStore = s.Cycles
	textExtractor = s.Extractor
	settingsWatch = s.SettingsWatch
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
