package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	config "github.com/custodia-labs/mailpilot/internal/adapters/driven/config/file"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage configuration",
	Long: `View and change mailpilot configuration.

Assistant behaviour lives under the assistant.* keys and is hot-reloaded
by a running watch process. Mail account settings live under mail.*.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets a configuration value and persists it immediately.

Booleans are written for "true"/"false", integers for numeric values.
List keys (ignored_senders, denylist_keywords, web_context_urls) accept
comma-separated values.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsMailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Configure the mail account interactively",
	Long: `Interactive setup for the monitored mail account: IMAP and SMTP
endpoints, credentials and sender address. The password prompt does not
echo on a terminal.`,
	RunE: runSettingsMail,
}

// sliceKeys are config keys whose values are string lists.
var sliceKeys = map[string]bool{
	config.KeyIgnoredSenders:   true,
	config.KeyDenylistKeywords: true,
	config.KeyWebContextURLs:   true,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsMailCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	keys := configStore.Keys()
	if len(keys) == 0 {
		cmd.Println("No configuration set. Run 'mailpilot settings mail' to get started.")
		return nil
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	for _, key := range keys {
		val, _ := configStore.Get(key)
		if key == config.KeyMailPassword {
			val = maskSecret(configStore.GetString(key))
		}
		cmd.Printf("  %s = %v\n", key, val)
	}
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	val, ok := configStore.Get(args[0])
	if !ok {
		return fmt.Errorf("key %q is not set", args[0])
	}
	cmd.Printf("%v\n", val)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, raw := args[0], args[1]
	value := parseSettingValue(key, raw)

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	cmd.Printf("%s = %v\n", key, value)
	return nil
}

// parseSettingValue converts the raw CLI string into the value type the
// key expects.
func parseSettingValue(key, raw string) any {
	if sliceKeys[key] {
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	if raw == "true" || raw == "false" {
		return raw == "true"
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

func runSettingsMail(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Mail Account Setup")
	cmd.Println("==================")
	cmd.Println()

	cmd.Print("Provider (imap/gmail) [imap]: ")
	provider := readLine(reader)
	if provider == "" {
		provider = "imap"
	}
	if provider != "imap" && provider != "gmail" {
		return fmt.Errorf("unknown provider %q", provider)
	}
	if err := configStore.Set(config.KeyMailProvider, provider); err != nil {
		return err
	}

	cmd.Print("Account address: ")
	username := readLine(reader)
	if username == "" {
		return errors.New("account address is required")
	}
	if err := configStore.Set(config.KeyMailUsername, username); err != nil {
		return err
	}

	if provider == "gmail" {
		cmd.Println("\nGmail uses an OAuth token from the GMAIL_ACCESS_TOKEN environment variable.")
		cmd.Println("Mail account configured.")
		return nil
	}

	cmd.Print("IMAP host: ")
	imapHost := readLine(reader)
	cmd.Print("IMAP port [993]: ")
	imapPort := parsePort(readLine(reader), 993)
	cmd.Print("SMTP host: ")
	smtpHost := readLine(reader)
	cmd.Print("SMTP port [465]: ")
	smtpPort := parsePort(readLine(reader), 465)

	cmd.Print("Password: ")
	password := readPassword()
	cmd.Println()
	if password == "" {
		return errors.New("password is required")
	}

	for key, val := range map[string]any{
		config.KeyMailIMAPHost: imapHost,
		config.KeyMailIMAPPort: int64(imapPort),
		config.KeyMailSMTPHost: smtpHost,
		config.KeyMailSMTPPort: int64(smtpPort),
		config.KeyMailPassword: password,
	} {
		if err := configStore.Set(key, val); err != nil {
			return err
		}
	}

	cmd.Println("Mail account configured.")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parsePort(input string, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > 65535 {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "..." + secret[len(secret)-2:]
}
