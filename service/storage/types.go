package storage

import (
	"context"
	"time"
)

// Service defines audit history persistence and trend queries.
type Service interface {
	SaveScan(ctx context.Context, input SaveScanInput) (int64, error)
	GetTrends(accountID string, days int) ([]TrendPoint, error)
	GetRecentScans(accountID string, limit int) ([]ScanSummary, error)
	GetScanComparison(scanID1, scanID2 int64) (*ScanComparison, error)
	GetFindingLifecycle(findingHash string) ([]FindingLifecycleEvent, error)
	ListFindings(scanID int64) ([]FindingSnapshot, error)
	GetCategoryCounts(scanID int64) (map[string]int, error)
	Vacuum(ctx context.Context) error
	Reindex(ctx context.Context) error
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	Close() error
}

// SaveScanInput is the payload saved for a completed audit.
type SaveScanInput struct {
	ScanUUID          string
	AccountID         string
	StartedAt         time.Time
	ReportGeneratedAt time.Time
	DurationSec       int64
	Version           string
	Profile           string
	PolicyJSON        string
	InputErrorCount   int
	// Categories lists the categories this scan evaluated. Open findings in
	// other categories are left untouched. Empty means every category.
	Categories []string
	Findings   []Finding
}

// Finding is a finding as stored for lifecycle tracking.
type Finding struct {
	Hash     string
	Category string
	Severity string
	Subject  string
	Detail   map[string]string
}

// TrendPoint is a daily aggregate for trend visualizations.
type TrendPoint struct {
	AccountID string `json:"account_id"`
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Critical  int    `json:"critical"`
	High      int    `json:"high"`
	Medium    int    `json:"medium"`
	Low       int    `json:"low"`
	Info      int    `json:"info"`
	Score     int    `json:"score"`
}

// ScanSummary provides compact scan metadata.
type ScanSummary struct {
	ScanID            int64
	ScanUUID          string
	AccountID         string
	ScanTimestamp     time.Time
	ReportGeneratedAt *time.Time
	TotalFindings     int
	CriticalCount     int
	HighCount         int
	MediumCount       int
	LowCount          int
	InfoCount         int
	InputErrorCount   int
	Version           string
}

// ScanComparison holds diff details between two scans.
type ScanComparison struct {
	ScanID1        int64
	ScanID2        int64
	NewFindings    int
	Resolved       int
	Persistent     int
	NewHashes      []string
	ResolvedHashes []string
}

// FindingLifecycleEvent is a finding's status as of one scan.
type FindingLifecycleEvent struct {
	ScanID        int64
	ScanTimestamp time.Time
	Status        string
	Severity      string
	Category      string
	Subject       string
}

// FindingSnapshot is a scan-time finding view.
type FindingSnapshot struct {
	FindingHash string
	Category    string
	Severity    string
	Subject     string
	Detail      map[string]string
	Status      string
}

// Status values for stored findings.
const (
	StatusOpen     = "OPEN"
	StatusResolved = "RESOLVED"
)
