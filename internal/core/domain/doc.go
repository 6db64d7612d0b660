// Package domain contains the core business entities and rules for the
// MailPilot reply pipeline. It has no dependencies on adapters or
// external services.
package domain
