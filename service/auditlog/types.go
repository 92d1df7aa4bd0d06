// Package auditlog appends evaluation results to an append-only log file.
package auditlog

import (
	"context"
	"time"
)

// Format selects the on-disk encoding.
type Format string

// Supported formats
const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// Entry is one audit log line.
type Entry struct {
	Timestamp time.Time         `json:"timestamp"`
	ScanID    string            `json:"scan_id,omitempty"`
	Category  string            `json:"category"`
	Subject   string            `json:"subject"`
	Severity  string            `json:"severity,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// Sink receives entries. Implementations only ever append.
type Sink interface {
	Append(ctx context.Context, entries ...Entry) error
	Close() error
}
