package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

var emailsJSON bool

var emailsCmd = &cobra.Command{
	Use:   "emails",
	Short: "Show the cached filtered email set",
	Long: `Prints the filtered emails mirrored by the last poll cycle. Reads the
local cache only; the mailbox is not contacted.`,
	RunE: runEmails,
}

func init() {
	emailsCmd.Flags().BoolVar(&emailsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(emailsCmd)
}

func runEmails(cmd *cobra.Command, _ []string) error {
	if replyStateStore == nil {
		return errors.New("reply state store not configured")
	}

	emails, err := replyStateStore.LoadCachedEmails(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load cached emails: %w", err)
	}

	if emailsJSON {
		return outputEmailsJSON(cmd, emails)
	}

	if len(emails) == 0 {
		cmd.Println("No cached emails. Run 'mailpilot watch' to poll the mailbox.")
		return nil
	}

	cmd.Printf("Cached emails (%d):\n\n", len(emails))
	for i := range emails {
		cmd.Printf("  [%s] %s\n", emails[i].ID, emails[i].Subject)
		cmd.Printf("      From: %s\n", emails[i].From)
		if emails[i].Date != "" {
			cmd.Printf("      Date: %s\n", emails[i].Date)
		}
		cmd.Println()
	}
	return nil
}

func outputEmailsJSON(cmd *cobra.Command, emails []domain.Email) error {
	data, err := json.MarshalIndent(emails, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal emails: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
