// Package services implements the core business logic: knowledge base
// ingestion and retrieval, mailbox polling, reply assembly and dispatch.
// Services depend only on ports; adapters are injected at wiring time.
package services
