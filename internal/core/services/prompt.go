package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

// Per-section character budgets. Each external-content section is truncated
// independently before substitution into the prompt template, so no single
// section can dominate the model context window.
const (
	snippetBudget     = 500
	retrievalBudget   = 4000
	webContextBudget  = 3000
	imageDescBudget   = 1500
	spreadsheetBudget = 2000
	emailBodyBudget   = 6000
)

// licenseCodePattern matches probable license/identifier codes: alphanumeric
// runs of length 5-20, hyphens allowed. At least one digit is required so
// ordinary words never match.
var licenseCodePattern = regexp.MustCompile(`\b[A-Za-z0-9][A-Za-z0-9-]{3,18}[A-Za-z0-9]\b`)

var digitPattern = regexp.MustCompile(`[0-9]`)

// Snippet is one retrieved context item ready for prompt formatting.
type Snippet struct {
	Score      float64
	Provenance string
	Text       string
}

// PromptContext carries every section feeding the reply prompt.
type PromptContext struct {
	Greeting          string
	Signature         string
	WebContext        string
	SpreadsheetDump   string
	ImageDescriptions []string
	Snippets          []Snippet
	LicenseCodes      []string
}

// DetectLicenseCodes scans texts for probable license or identifier codes
// and returns them deduplicated, in first-seen order.
func DetectLicenseCodes(texts ...string) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, text := range texts {
		for _, match := range licenseCodePattern.FindAllString(text, -1) {
			if !digitPattern.MatchString(match) {
				continue
			}
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			codes = append(codes, match)
		}
	}
	return codes
}

// Truncate caps s at budget characters.
func Truncate(s string, budget int) string {
	if budget <= 0 || len(s) <= budget {
		return s
	}
	return s[:budget]
}

// FormatSnippet renders one retrieval result with its similarity score and
// lightweight provenance, truncated to the per-item budget.
func FormatSnippet(sn Snippet) string {
	return fmt.Sprintf("[%.3f | %s] %s", sn.Score, sn.Provenance, Truncate(sn.Text, snippetBudget))
}

// ProvenanceLabel summarises where a record came from for snippet display.
func ProvenanceLabel(p domain.Provenance) string {
	switch p.Kind {
	case domain.ProvenanceEmail:
		return fmt.Sprintf("email from %s: %s", p.From, p.Subject)
	case domain.ProvenanceFile:
		return "file " + p.URI
	default:
		if p.URI != "" {
			return p.URI
		}
		return "snippet"
	}
}

// BuildReplyPrompt assembles the system and user prompts for drafting a
// reply to email, grounded in pc.
func BuildReplyPrompt(email domain.Email, pc PromptContext) (systemPrompt, userPrompt string) {
	var sys strings.Builder
	sys.WriteString("You are an email assistant drafting a reply on behalf of the user. ")
	sys.WriteString("Answer helpfully and concisely, grounded ONLY in the provided context. ")
	sys.WriteString("Write in the language of the incoming email.")
	if len(pc.LicenseCodes) > 0 {
		sys.WriteString(" The context contains license or identifier codes; echo them verbatim in the reply where relevant.")
	}

	var user strings.Builder
	if pc.Greeting != "" {
		fmt.Fprintf(&user, "Open the reply with this greeting:\n%s\n\n", pc.Greeting)
	}

	if len(pc.LicenseCodes) > 0 {
		user.WriteString("Codes found in the conversation (repeat verbatim when answering about them):\n")
		for _, code := range pc.LicenseCodes {
			user.WriteString(code)
			user.WriteByte('\n')
		}
		user.WriteByte('\n')
	}

	if len(pc.Snippets) > 0 {
		user.WriteString("Relevant knowledge (similarity | source):\n")
		var section strings.Builder
		for _, sn := range pc.Snippets {
			section.WriteString(FormatSnippet(sn))
			section.WriteByte('\n')
		}
		user.WriteString(Truncate(section.String(), retrievalBudget))
		user.WriteByte('\n')
	}

	if pc.WebContext != "" {
		user.WriteString("Web context:\n")
		user.WriteString(Truncate(pc.WebContext, webContextBudget))
		user.WriteString("\n\n")
	}

	if pc.SpreadsheetDump != "" {
		user.WriteString("Spreadsheet context:\n")
		user.WriteString(Truncate(pc.SpreadsheetDump, spreadsheetBudget))
		user.WriteString("\n\n")
	}

	if len(pc.ImageDescriptions) > 0 {
		user.WriteString("Attached images:\n")
		var section strings.Builder
		for i, desc := range pc.ImageDescriptions {
			fmt.Fprintf(&section, "Image %d: %s\n", i+1, desc)
		}
		user.WriteString(Truncate(section.String(), imageDescBudget))
		user.WriteByte('\n')
	}

	fmt.Fprintf(&user, "Incoming email from %s, subject %q:\n%s\n\n",
		email.From, email.Subject, Truncate(email.Body, emailBodyBudget))

	if pc.Signature != "" {
		fmt.Fprintf(&user, "Close the reply with this signature:\n%s\n", pc.Signature)
	}

	return sys.String(), user.String()
}

// BuildAnswerPrompt assembles prompts for a free-form grounded question.
func BuildAnswerPrompt(question string, snippets []Snippet) (systemPrompt, userPrompt string) {
	sys := "You are a knowledge base assistant. Answer the question using ONLY the provided context. " +
		"Say so plainly when the context does not contain the answer."

	var user strings.Builder
	if len(snippets) > 0 {
		user.WriteString("Context (similarity | source):\n")
		var section strings.Builder
		for _, sn := range snippets {
			section.WriteString(FormatSnippet(sn))
			section.WriteByte('\n')
		}
		user.WriteString(Truncate(section.String(), retrievalBudget))
		user.WriteByte('\n')
	}
	user.WriteString("Question: ")
	user.WriteString(question)

	return sys, user.String()
}
