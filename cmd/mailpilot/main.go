// Command mailpilot is a mailbox assistant with a local knowledge base.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	config "github.com/custodia-labs/mailpilot/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mailpilot/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/mailpilot/internal/adapters/driven/extract"
	llmopenai "github.com/custodia-labs/mailpilot/internal/adapters/driven/llm/openai"
	filestore "github.com/custodia-labs/mailpilot/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/mailpilot/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/mailpilot/internal/adapters/driven/transport/gmail"
	"github.com/custodia-labs/mailpilot/internal/adapters/driven/transport/imap"
	"github.com/custodia-labs/mailpilot/internal/adapters/driven/webfetch"
	"github.com/custodia-labs/mailpilot/internal/adapters/driving/cli"
	"github.com/custodia-labs/mailpilot/internal/chunker"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
	"github.com/custodia-labs/mailpilot/internal/core/services"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	// API keys may live in a .env next to the binary. Best effort.
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	store, err := config.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	settings := config.NewSettings(store)

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	dataDir := filepath.Join(home, ".mailpilot", "data")
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	records, err := filestore.NewRecordStore(filepath.Join(dataDir, "knowledge.json"))
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	replyState, err := filestore.NewReplyStateStore(dataDir)
	if err != nil {
		return fmt.Errorf("open reply state store: %w", err)
	}
	audit, err := filestore.NewAuditLog(filepath.Join(dataDir, "audit.log"))
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	history, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("open cycle history: %w", err)
	}
	defer history.Close()
	cycles := history.CycleStore()

	embedder, completion := buildOpenAI()
	transport := buildTransport(store)
	if transport == nil {
		logger.Debug("No mail transport configured; mailbox commands are unavailable")
	}

	knowledge := services.NewKnowledgeService(
		chunker.New(), embedder, records, audit, settings.Provider())
	replier := services.NewReplyAssembler(
		transport, knowledge, embedder, completion, webfetch.NewFetcher(), settings.Provider())

	svcs := cli.Services{
		Knowledge:     knowledge,
		Reply:         replier,
		Config:        store,
		ReplyState:    replyState,
		Cycles:        cycles,
		Extractor:     extract.NewExtractor(),
		SettingsWatch: func(ctx context.Context) error { return settings.Watch(ctx) },
	}

	if transport != nil {
		dispatcher := services.NewDispatcher(transport, replyState, audit, settings.Provider())
		svcs.Poller = services.NewPoller(
			transport, replier, dispatcher, knowledge, replyState, cycles, audit, settings.Provider())
	}

	cli.SetVersion(version)
	cli.SetServices(svcs)
	return cli.Execute()
}

// buildOpenAI creates the embedding and completion services when an API key
// is present. Both are nil otherwise; commands degrade with a clear error.
func buildOpenAI() (driven.EmbeddingService, driven.CompletionService) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, nil
	}

	embedder, err := openai.NewEmbeddingService(openai.Config{
		APIKey:  apiKey,
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Model:   os.Getenv("MAILPILOT_EMBEDDING_MODEL"),
	})
	if err != nil {
		logger.Warn("Embedding service unavailable: %v", err)
	}

	completion, err := llmopenai.NewCompletionService(llmopenai.Config{
		APIKey:  apiKey,
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Model:   os.Getenv("MAILPILOT_COMPLETION_MODEL"),
	})
	if err != nil {
		logger.Warn("Completion service unavailable: %v", err)
	}

	// Avoid returning typed nils inside non-nil interfaces.
	var e driven.EmbeddingService
	if embedder != nil {
		e = embedder
	}
	var c driven.CompletionService
	if completion != nil {
		c = completion
	}
	return e, c
}

// buildTransport selects the mail transport from configuration. Returns nil
// when no account is configured.
func buildTransport(store *config.ConfigStore) driven.MailTransport {
	switch store.GetString(config.KeyMailProvider) {
	case "gmail":
		token := os.Getenv("GMAIL_ACCESS_TOKEN")
		if token == "" {
			logger.Warn("Gmail selected but GMAIL_ACCESS_TOKEN is not set")
			return nil
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		t, err := gmail.NewTransport(context.Background(), ts, store.GetString(config.KeyMailFrom))
		if err != nil {
			logger.Warn("Gmail transport unavailable: %v", err)
			return nil
		}
		return t
	case "imap":
		return imap.NewTransport(imap.Config{
			IMAPHost: store.GetString(config.KeyMailIMAPHost),
			IMAPPort: store.GetInt(config.KeyMailIMAPPort),
			SMTPHost: store.GetString(config.KeyMailSMTPHost),
			SMTPPort: store.GetInt(config.KeyMailSMTPPort),
			Username: store.GetString(config.KeyMailUsername),
			Password: store.GetString(config.KeyMailPassword),
			From:     store.GetString(config.KeyMailFrom),
			Mailbox:  store.GetString(config.KeyMailMailbox),
		})
	default:
		return nil
	}
}
