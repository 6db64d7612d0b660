package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driving"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// Ensure ReplyAssembler implements the interface.
var _ driving.ReplyService = (*ReplyAssembler)(nil)

const (
	// retrievalTopK is how many nearest records each retrieval source
	// contributes to the prompt.
	retrievalTopK = 5

	// recentMailboxLimit is how many recent messages are embedded on the
	// fly for the mailbox retrieval source.
	recentMailboxLimit = 25
)

// ReplyAssembler builds grounded reply drafts: it retrieves nearest
// knowledge base records and recent mailbox context, folds in image
// descriptions and configured web pages, and runs a single completion.
type ReplyAssembler struct {
	transport  driven.MailTransport
	knowledge  driving.KnowledgeService
	embedder   driven.EmbeddingService
	completion driven.CompletionService
	webFetcher driven.WebFetcher
	settings   SettingsProvider
}

// NewReplyAssembler creates a reply assembler. The web fetcher is optional.
func NewReplyAssembler(
	transport driven.MailTransport,
	knowledge driving.KnowledgeService,
	embedder driven.EmbeddingService,
	completion driven.CompletionService,
	webFetcher driven.WebFetcher,
	settings SettingsProvider,
) *ReplyAssembler {
	if settings == nil {
		settings = func() domain.AssistantSettings { return domain.DefaultSettings() }
	}
	return &ReplyAssembler{
		transport:  transport,
		knowledge:  knowledge,
		embedder:   embedder,
		completion: completion,
		webFetcher: webFetcher,
		settings:   settings,
	}
}

// Draft produces a grounded reply for the given email. Generation failures
// propagate to the caller; the caller decides the user-facing message.
func (a *ReplyAssembler) Draft(ctx context.Context, email domain.Email) (string, error) {
	if a.completion == nil {
		return "", domain.ErrCompletionUnavailable
	}

	logger.Section("Reply Assembly")

	// Re-fetch the full message so the body is complete even when the
	// caller passed only a summary. Best effort.
	if a.transport != nil {
		if full, err := a.transport.FetchByID(ctx, email.ID); err == nil && full != nil {
			email = *full
		} else if err != nil {
			logger.Debug("Refetch of %s failed, using caller copy: %v", email.ID, err)
		}
	}

	settings := a.settings()

	imageDescs := a.describeImages(ctx, email.Attachments)

	queryText := email.Body
	if strings.TrimSpace(queryText) == "" {
		queryText = email.Subject
	}

	snippets := a.retrieve(ctx, queryText)

	codeSources := append([]string{email.Body}, imageDescs...)
	codes := DetectLicenseCodes(codeSources...)

	pc := PromptContext{
		Greeting:          settings.Greeting,
		Signature:         settings.Signature,
		WebContext:        a.fetchWebContext(ctx, settings.WebContextURLs),
		ImageDescriptions: imageDescs,
		Snippets:          snippets,
		LicenseCodes:      codes,
	}

	systemPrompt, userPrompt := BuildReplyPrompt(email, pc)
	logger.Debug("Prompt sizes: system=%d user=%d", len(systemPrompt), len(userPrompt))

	return a.completion.Complete(ctx, systemPrompt, userPrompt)
}

// Answer produces a grounded answer to a free-form question over the
// knowledge base only.
func (a *ReplyAssembler) Answer(ctx context.Context, question string) (string, error) {
	if a.completion == nil {
		return "", domain.ErrCompletionUnavailable
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domain.ErrInvalidInput
	}

	var snippets []Snippet
	if a.knowledge != nil {
		results, err := a.knowledge.Query(ctx, question, retrievalTopK)
		if err != nil {
			logger.Warn("Knowledge query failed: %v", err)
		}
		for _, res := range results {
			snippets = append(snippets, Snippet{
				Score:      res.Score,
				Provenance: ProvenanceLabel(res.Record.Provenance),
				Text:       res.Record.Text,
			})
		}
	}

	systemPrompt, userPrompt := BuildAnswerPrompt(question, snippets)
	return a.completion.Complete(ctx, systemPrompt, userPrompt)
}

// retrieve merges the two retrieval sources: top-K nearest knowledge base
// records and top-K nearest among recent mailbox messages. Either source
// failing degrades gracefully to the other.
func (a *ReplyAssembler) retrieve(ctx context.Context, queryText string) []Snippet {
	if a.embedder == nil || strings.TrimSpace(queryText) == "" {
		return nil
	}

	queryVec, err := a.embedder.Embed(ctx, queryText)
	if err != nil {
		logger.Warn("Query embedding failed, drafting without retrieval: %v", err)
		return nil
	}

	var snippets []Snippet

	if a.knowledge != nil {
		results, err := a.knowledge.QueryByEmbedding(ctx, queryVec, retrievalTopK)
		if err != nil {
			logger.Warn("Knowledge retrieval failed: %v", err)
		}
		for _, res := range results {
			snippets = append(snippets, Snippet{
				Score:      res.Score,
				Provenance: ProvenanceLabel(res.Record.Provenance),
				Text:       res.Record.Text,
			})
		}
	}

	snippets = append(snippets, a.retrieveRecentMailbox(ctx, queryVec)...)
	return snippets
}

// retrieveRecentMailbox batch-embeds the most recent mailbox messages and
// ranks them against the query. When batch embedding fails the unranked
// candidates are used as-is, so mailbox context is never silently lost.
func (a *ReplyAssembler) retrieveRecentMailbox(ctx context.Context, queryVec []float32) []Snippet {
	if a.transport == nil {
		return nil
	}

	recent, err := a.transport.FetchRecent(ctx, recentMailboxLimit)
	if err != nil {
		logger.Debug("Recent mailbox fetch failed: %v", err)
		return nil
	}
	if len(recent) == 0 {
		return nil
	}

	texts := make([]string, len(recent))
	for i, msg := range recent {
		text := msg.Body
		if strings.TrimSpace(text) == "" {
			text = msg.Subject
		}
		texts[i] = Truncate(text, snippetBudget*4)
	}

	vectors, err := a.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) != len(recent) {
		logger.Warn("Recent mailbox embedding failed, using unranked candidates")
		return mailboxSnippetsUnranked(recent)
	}

	records := make([]domain.ChunkRecord, len(recent))
	for i, msg := range recent {
		records[i] = domain.ChunkRecord{
			ID:        msg.ID,
			Text:      texts[i],
			Embedding: vectors[i],
			Provenance: domain.Provenance{
				Kind:    domain.ProvenanceEmail,
				From:    msg.From,
				Subject: msg.Subject,
			},
		}
	}

	ranked := Rank(queryVec, records, retrievalTopK)
	snippets := make([]Snippet, 0, len(ranked))
	for _, res := range ranked {
		snippets = append(snippets, Snippet{
			Score:      res.Score,
			Provenance: ProvenanceLabel(res.Record.Provenance),
			Text:       res.Record.Text,
		})
	}
	return snippets
}

func mailboxSnippetsUnranked(recent []domain.Email) []Snippet {
	limit := retrievalTopK
	if len(recent) < limit {
		limit = len(recent)
	}
	snippets := make([]Snippet, 0, limit)
	for _, msg := range recent[:limit] {
		text := msg.Body
		if strings.TrimSpace(text) == "" {
			text = msg.Subject
		}
		snippets = append(snippets, Snippet{
			Provenance: ProvenanceLabel(domain.Provenance{
				Kind:    domain.ProvenanceEmail,
				From:    msg.From,
				Subject: msg.Subject,
			}),
			Text: text,
		})
	}
	return snippets
}

// describeImages runs image attachments through the vision model. Failures
// skip the image; descriptions also feed license-code detection.
func (a *ReplyAssembler) describeImages(ctx context.Context, attachments []domain.Attachment) []string {
	var descs []string
	for _, att := range attachments {
		if !att.IsImage() || len(att.Data) == 0 {
			continue
		}
		encoded := base64.StdEncoding.EncodeToString(att.Data)
		desc, err := a.completion.DescribeImage(ctx, encoded, att.MIMEType)
		if err != nil {
			logger.Warn("Image description failed for %s: %v", att.Filename, err)
			continue
		}
		descs = append(descs, desc)
	}
	return descs
}

// fetchWebContext fetches each configured URL and concatenates the results.
// The combined section is budget-truncated by the prompt builder.
func (a *ReplyAssembler) fetchWebContext(ctx context.Context, urls []string) string {
	if a.webFetcher == nil || len(urls) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, url := range urls {
		content, err := a.webFetcher.Fetch(ctx, url)
		if err != nil {
			logger.Debug("Web context fetch failed for %s: %v", url, err)
			continue
		}
		fmt.Fprintf(&sb, "--- %s ---\n%s\n", url, content)
	}
	return sb.String()
}
