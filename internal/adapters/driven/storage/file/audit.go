package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// Ensure AuditLog implements the interface.
var _ driven.AuditLog = (*AuditLog)(nil)

// AuditLog appends timestamped lines to an append-only log file. Logging is
// best effort; a failed append warns and moves on rather than failing the
// operation being audited.
type AuditLog struct {
	mu       sync.Mutex
	filePath string
	now      func() time.Time
}

// NewAuditLog creates an audit log writing to filePath.
func NewAuditLog(filePath string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, err
	}
	return &AuditLog{filePath: filePath, now: time.Now}, nil
}

// Event appends one formatted line with an RFC 3339 timestamp prefix.
func (a *AuditLog) Event(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	line := fmt.Sprintf("%s %s\n", a.now().Format(time.RFC3339), fmt.Sprintf(format, args...))

	f, err := os.OpenFile(a.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		logger.Warn("Audit log open failed: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		logger.Warn("Audit log append failed: %v", err)
	}
}
