package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/skylock/skylock/internal/logging"
)

// AuditEntry records a significant operation against the storage backend.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Path      string    `json:"path,omitempty"`
	Details   string    `json:"details,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

func (s *HTTPServer) auditLogPath() string {
	return filepath.Join(s.basePath, ".skylock-audit.json")
}

func (s *HTTPServer) loadAuditLog() {
	data, err := os.ReadFile(s.auditLogPath())
	if err != nil {
		return
	}

	var entries []AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logging.Warnf("[storage] failed to parse audit log: %v", err)
		return
	}

	s.auditLog = entries
}

func (s *HTTPServer) saveAuditLog() {
	data, err := json.MarshalIndent(s.auditLog, "", "  ")
	if err != nil {
		logging.Warnf("[storage] failed to serialize audit log: %v", err)
		return
	}

	if err := os.WriteFile(s.auditLogPath(), data, 0600); err != nil {
		logging.Warnf("[storage] failed to save audit log: %v", err)
	}
}

func (s *HTTPServer) audit(operation, path, details string, success bool, errMsg string) {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	entry := AuditEntry{
		Timestamp: time.Now(),
		Operation: operation,
		Path:      path,
		Details:   details,
		Success:   success,
		Error:     errMsg,
	}

	s.auditLog = append(s.auditLog, entry)

	if len(s.auditLog) > s.maxAuditEntries {
		s.auditLog = s.auditLog[len(s.auditLog)-s.maxAuditEntries:]
	}

	s.saveAuditLog()

	if success {
		logging.Debugf("[storage-audit] %s %s %s", operation, path, details)
	} else {
		logging.Warnf("[storage-audit] %s %s FAILED: %s", operation, path, errMsg)
	}
}

// GetAuditLog returns up to limit of the most recent audit entries
// (limit <= 0 returns all of them).
func (s *HTTPServer) GetAuditLog(limit int) []AuditEntry {
	s.auditMu.RLock()
	defer s.auditMu.RUnlock()

	if limit <= 0 || limit > len(s.auditLog) {
		limit = len(s.auditLog)
	}

	start := len(s.auditLog) - limit
	result := make([]AuditEntry, limit)
	copy(result, s.auditLog[start:])
	return result
}
