package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

// ingestConcurrency bounds parallel file extraction.
const ingestConcurrency = 4

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Import documents into the knowledge base",
	Long: `Extracts text from the given files and adds it to the knowledge base.
Supported formats: plain text, markdown, HTML and .eml messages.
Re-ingesting a file skips chunks that are already stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}
	if textExtractor == nil {
		return errors.New("text extractor not configured")
	}

	ctx := context.Background()

	docs := make([]domain.IngestDocument, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)

	for i, path := range args {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			ext := filepath.Ext(path)
			if !textExtractor.Supports(ext) {
				return fmt.Errorf("unsupported file type %q: %s", ext, path)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			text, err := textExtractor.Extract(data, ext)
			if err != nil {
				return fmt.Errorf("extract %s: %w", path, err)
			}

			docs[i] = domain.IngestDocument{
				ID:      filepath.Base(path),
				Subject: filepath.Base(path),
				Body:    text,
				URI:     path,
				Kind:    domain.ProvenanceFile,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	result, err := knowledgeService.AddDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if result.Skipped {
		cmd.Println("Ingestion is disabled in settings; nothing imported.")
		return nil
	}

	cmd.Printf("Imported %d file(s): %d chunk(s) added, %d queued.\n",
		len(args), result.Added, result.Queued)
	return nil
}
