package auditlog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/thirukguru/aws-posture/service/finding"
)

// extraColumn holds detail keys outside finding.DetailKeys as a JSON object.
const extraColumn = "extra"

// csvHeader gives every known detail key its own column.
var csvHeader = append(append([]string{"timestamp", "scan_id", "category", "subject", "severity"},
	finding.DetailKeys...), extraColumn)

// FromFindings converts findings into entries stamped with ts. The detail
// is the flattened finding minus category and subject.
func FromFindings(ts time.Time, scanID string, findings []finding.Finding) []Entry {
	entries := make([]Entry, 0, len(findings))
	for _, f := range findings {
		flat := f.Flatten()
		delete(flat, finding.KeyCategory)
		delete(flat, finding.KeySubject)
		if len(flat) == 0 {
			flat = nil
		}
		entries = append(entries, Entry{
			Timestamp: ts.UTC(),
			ScanID:    scanID,
			Category:  string(f.Category),
			Subject:   f.Subject,
			Severity:  f.Severity(),
			Detail:    flat,
		})
	}
	return entries
}

// Open returns a file sink in the given format. The file is created if
// missing and always opened for append.
func Open(path string, format Format) (Sink, error) {
	switch format {
	case FormatCSV, FormatJSONL:
	default:
		return nil, fmt.Errorf("unsupported audit log format %q", format)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat audit log %s: %w", path, err)
	}

	if format == FormatJSONL {
		return &jsonlSink{file: f, enc: json.NewEncoder(f)}, nil
	}
	return newCSVSink(f, info.Size() == 0), nil
}

type csvSink struct {
	mu         sync.Mutex
	file       io.WriteCloser
	w          *csv.Writer
	needHeader bool
}

func newCSVSink(wc io.WriteCloser, needHeader bool) *csvSink {
	return &csvSink{file: wc, w: csv.NewWriter(wc), needHeader: needHeader}
}

func (s *csvSink) Append(ctx context.Context, entries ...Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.needHeader {
		if err := s.w.Write(csvHeader); err != nil {
			return err
		}
		s.needHeader = false
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := csvRow(e)
		if err != nil {
			return err
		}
		if err := s.w.Write(row); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *csvSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

type jsonlSink struct {
	mu   sync.Mutex
	file io.WriteCloser
	enc  *json.Encoder
}

func (s *jsonlSink) Append(ctx context.Context, entries ...Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(e); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}
	}
	return nil
}

func (s *jsonlSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func csvRow(e Entry) ([]string, error) {
	row := make([]string, 0, len(csvHeader))
	row = append(row, e.Timestamp.UTC().Format(time.RFC3339), e.ScanID, e.Category, e.Subject, e.Severity)

	known := make(map[string]struct{}, len(finding.DetailKeys))
	for _, k := range finding.DetailKeys {
		known[k] = struct{}{}
		row = append(row, e.Detail[k])
	}

	extra := map[string]string{}
	for k, v := range e.Detail {
		if _, ok := known[k]; !ok {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return append(row, ""), nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit detail: %w", err)
	}
	return append(row, string(b)), nil
}
