package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	defaultDBPath = "~/.aws-posture/history.db"
	sqliteTime    = "2006-01-02 15:04:05"
)

// severityOrder sorts CRITICAL first in listings.
const severityOrder = `CASE severity
	WHEN 'CRITICAL' THEN 0 WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 3 ELSE 4 END`

// NewService creates a SQLite-backed history store.
func NewService(dbPath string) (Service, error) {
	resolved, err := resolvePath(dbPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaV1); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &service{db: db, dbPath: resolved}, nil
}

type service struct {
	db     *sql.DB
	dbPath string
}

func resolvePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		p = defaultDBPath
	}
	if strings.HasPrefix(p, "~/") || p == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home dir: %w", err)
		}
		if p == "~" {
			p = home
		} else {
			p = filepath.Join(home, p[2:])
		}
	}
	return filepath.Clean(p), nil
}

type severityCounts struct {
	critical, high, medium, low, info int
}

func countSeverities(findings []Finding) severityCounts {
	var c severityCounts
	for _, f := range findings {
		switch f.Severity {
		case "CRITICAL":
			c.critical++
		case "HIGH":
			c.high++
		case "MEDIUM":
			c.medium++
		case "LOW":
			c.low++
		default:
			c.info++
		}
	}
	return c
}

func score(critical, high, medium, low int) int {
	s := 100 - critical*15 - high*8 - medium*3 - low
	if s < 0 {
		return 0
	}
	return s
}

// SaveScan records an audit and updates finding lifecycle: findings present
// in this audit are OPEN, previously open findings now absent become
// RESOLVED.
func (s *service) SaveScan(ctx context.Context, input SaveScanInput) (scanID int64, err error) {
	if input.AccountID == "" {
		return 0, errors.New("account id is required")
	}
	if input.ScanUUID == "" {
		input.ScanUUID = uuid.NewString()
	}
	if input.StartedAt.IsZero() {
		input.StartedAt = time.Now()
	}
	var reportAt any
	if !input.ReportGeneratedAt.IsZero() {
		reportAt = input.ReportGeneratedAt.UTC().Format(sqliteTime)
	}
	counts := countSeverities(input.Findings)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO scans (
			scan_uuid, account_id, scan_timestamp, report_generated_at, scan_duration, total_findings,
			critical_count, high_count, medium_count, low_count, info_count, input_error_count,
			cli_version, scan_profile, policy_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, input.ScanUUID, input.AccountID, input.StartedAt.UTC().Format(sqliteTime), reportAt, input.DurationSec,
		len(input.Findings), counts.critical, counts.high, counts.medium, counts.low, counts.info,
		input.InputErrorCount, input.Version, input.Profile, input.PolicyJSON)
	if err != nil {
		return 0, err
	}
	scanID, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err = s.saveFindingsTx(ctx, tx, scanID, input); err != nil {
		return 0, err
	}
	if err = s.saveScanMetricsTx(ctx, tx, scanID, input, counts); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return scanID, nil
}

type openFinding struct {
	hash, severity, category, subject, detail string
}

func (s *service) saveFindingsTx(ctx context.Context, tx *sql.Tx, scanID int64, input SaveScanInput) error {
	now := input.StartedAt.UTC().Format(sqliteTime)

	previouslyOpen, err := openFindingsTx(ctx, tx, input.AccountID)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(input.Findings))
	for _, f := range input.Findings {
		if f.Hash == "" {
			continue
		}
		if _, dup := seen[f.Hash]; dup {
			continue
		}
		seen[f.Hash] = struct{}{}

		detail, err := encodeDetail(f.Detail)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO findings (
				account_id, finding_hash, category, severity, subject, detail_json,
				first_seen, last_seen, status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'OPEN')
			ON CONFLICT(account_id, finding_hash) DO UPDATE SET
				category=excluded.category,
				severity=excluded.severity,
				subject=excluded.subject,
				detail_json=excluded.detail_json,
				last_seen=excluded.last_seen,
				resolved_at=NULL,
				status='OPEN'
		`, input.AccountID, f.Hash, f.Category, f.Severity, f.Subject, detail, now, now)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO scan_findings(scan_id, finding_hash, severity, status, category, subject, detail_json)
			VALUES (?, ?, ?, 'OPEN', ?, ?, ?)
		`, scanID, f.Hash, f.Severity, f.Category, f.Subject, detail)
		if err != nil {
			return err
		}
	}

	evaluated := make(map[string]bool, len(input.Categories))
	for _, c := range input.Categories {
		evaluated[c] = true
	}

	for _, prev := range previouslyOpen {
		if _, ok := seen[prev.hash]; ok {
			continue
		}
		if len(evaluated) > 0 && !evaluated[prev.category] {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE findings SET status='RESOLVED', resolved_at=?, last_seen=?
			WHERE account_id=? AND finding_hash=?
		`, now, now, input.AccountID, prev.hash)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scan_findings(scan_id, finding_hash, severity, status, category, subject, detail_json)
			VALUES (?, ?, ?, 'RESOLVED', ?, ?, ?)
		`, scanID, prev.hash, prev.severity, prev.category, prev.subject, prev.detail)
		if err != nil {
			return err
		}
	}

	return nil
}

func openFindingsTx(ctx context.Context, tx *sql.Tx, accountID string) ([]openFinding, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT finding_hash, severity, category, subject, COALESCE(detail_json, '')
		FROM findings WHERE account_id=? AND status='OPEN'
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []openFinding
	for rows.Next() {
		var f openFinding
		if err := rows.Scan(&f.hash, &f.severity, &f.category, &f.subject, &f.detail); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *service) saveScanMetricsTx(ctx context.Context, tx *sql.Tx, scanID int64, input SaveScanInput, counts severityCounts) error {
	type metric struct {
		name     string
		val      float64
		unit     string
		category string
	}
	metrics := []metric{
		{"total_findings", float64(len(input.Findings)), "count", "Overall"},
		{"security_score", float64(score(counts.critical, counts.high, counts.medium, counts.low)), "score", "Overall"},
		{"critical_count", float64(counts.critical), "count", "Overall"},
		{"high_count", float64(counts.high), "count", "Overall"},
		{"medium_count", float64(counts.medium), "count", "Overall"},
		{"low_count", float64(counts.low), "count", "Overall"},
		{"input_errors", float64(input.InputErrorCount), "count", "Overall"},
	}

	perCategory := map[string]int{}
	var order []string
	for _, f := range input.Findings {
		if _, ok := perCategory[f.Category]; !ok {
			order = append(order, f.Category)
		}
		perCategory[f.Category]++
	}
	for _, c := range order {
		metrics = append(metrics, metric{"findings", float64(perCategory[c]), "count", c})
	}

	for _, m := range metrics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO metrics(scan_id, metric_name, metric_value, metric_unit, category)
			VALUES (?, ?, ?, ?, ?)
		`, scanID, m.name, m.val, m.unit, m.category)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *service) GetTrends(accountID string, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	query := `
		SELECT
			account_id,
			DATE(scan_timestamp) as day,
			MAX(total_findings),
			MAX(critical_count),
			MAX(high_count),
			MAX(medium_count),
			MAX(low_count),
			MAX(info_count)
		FROM scans
		WHERE scan_timestamp >= DATETIME('now', ?)
	`
	args := []any{fmt.Sprintf("-%d day", days)}
	if accountID != "" {
		query += " AND account_id=?"
		args = append(args, accountID)
	}
	query += " GROUP BY account_id, DATE(scan_timestamp) ORDER BY day ASC, account_id ASC"
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []TrendPoint{}
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.AccountID, &p.Date, &p.Total, &p.Critical, &p.High, &p.Medium, &p.Low, &p.Info); err != nil {
			return nil, err
		}
		p.Score = score(p.Critical, p.High, p.Medium, p.Low)
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *service) GetRecentScans(accountID string, limit int) ([]ScanSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT scan_id, scan_uuid, account_id, scan_timestamp, report_generated_at,
			total_findings, critical_count, high_count, medium_count, low_count, info_count,
			input_error_count, COALESCE(cli_version, '')
		FROM scans
	`
	args := []any{}
	if accountID != "" {
		query += " WHERE account_id=?"
		args = append(args, accountID)
	}
	query += " ORDER BY scan_timestamp DESC, scan_id DESC LIMIT ?"
	args = append(args, limit)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scans := []ScanSummary{}
	for rows.Next() {
		var ssum ScanSummary
		var reportAt sql.NullTime
		if err := rows.Scan(&ssum.ScanID, &ssum.ScanUUID, &ssum.AccountID, &ssum.ScanTimestamp, &reportAt,
			&ssum.TotalFindings, &ssum.CriticalCount, &ssum.HighCount, &ssum.MediumCount, &ssum.LowCount,
			&ssum.InfoCount, &ssum.InputErrorCount, &ssum.Version); err != nil {
			return nil, err
		}
		if reportAt.Valid {
			t := reportAt.Time
			ssum.ReportGeneratedAt = &t
		}
		scans = append(scans, ssum)
	}
	return scans, rows.Err()
}

func (s *service) GetScanComparison(scanID1, scanID2 int64) (*ScanComparison, error) {
	first, err := s.findingHashesByScan(scanID1)
	if err != nil {
		return nil, err
	}
	second, err := s.findingHashesByScan(scanID2)
	if err != nil {
		return nil, err
	}

	firstSet := map[string]bool{}
	secondSet := map[string]bool{}
	for _, h := range first {
		firstSet[h] = true
	}
	for _, h := range second {
		secondSet[h] = true
	}

	cmp := &ScanComparison{ScanID1: scanID1, ScanID2: scanID2}
	for _, h := range second {
		if !firstSet[h] {
			cmp.NewHashes = append(cmp.NewHashes, h)
		}
	}
	for _, h := range first {
		if secondSet[h] {
			cmp.Persistent++
		} else {
			cmp.ResolvedHashes = append(cmp.ResolvedHashes, h)
		}
	}
	cmp.NewFindings = len(cmp.NewHashes)
	cmp.Resolved = len(cmp.ResolvedHashes)
	return cmp, nil
}

func (s *service) findingHashesByScan(scanID int64) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT finding_hash FROM scan_findings
		WHERE scan_id=? AND status='OPEN' ORDER BY finding_hash
	`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *service) GetFindingLifecycle(findingHash string) ([]FindingLifecycleEvent, error) {
	rows, err := s.db.Query(`
		SELECT sf.scan_id, s.scan_timestamp, sf.status, sf.severity, sf.category, sf.subject
		FROM scan_findings sf
		JOIN scans s ON s.scan_id = sf.scan_id
		WHERE sf.finding_hash=?
		ORDER BY s.scan_timestamp ASC, sf.scan_id ASC
	`, findingHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []FindingLifecycleEvent{}
	for rows.Next() {
		var e FindingLifecycleEvent
		if err := rows.Scan(&e.ScanID, &e.ScanTimestamp, &e.Status, &e.Severity, &e.Category, &e.Subject); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *service) ListFindings(scanID int64) ([]FindingSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT finding_hash, category, severity, subject, COALESCE(detail_json, ''), status
		FROM scan_findings WHERE scan_id=? ORDER BY `+severityOrder+`, category, subject
	`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []FindingSnapshot{}
	for rows.Next() {
		var f FindingSnapshot
		var detail string
		if err := rows.Scan(&f.FindingHash, &f.Category, &f.Severity, &f.Subject, &detail, &f.Status); err != nil {
			return nil, err
		}
		if detail != "" {
			if err := json.Unmarshal([]byte(detail), &f.Detail); err != nil {
				return nil, fmt.Errorf("failed to decode finding detail: %w", err)
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetCategoryCounts reads the per-category finding counts recorded with a
// scan. Categories without findings are absent.
func (s *service) GetCategoryCounts(scanID int64) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT category, metric_value FROM metrics
		WHERE scan_id=? AND metric_name='findings'
	`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var category string
		var val float64
		if err := rows.Scan(&category, &val); err != nil {
			return nil, err
		}
		out[category] = int(val)
	}
	return out, rows.Err()
}

func (s *service) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

func (s *service) Reindex(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "REINDEX")
	return err
}

func (s *service) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, errors.New("days must be > 0")
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM scans WHERE scan_timestamp < DATETIME('now', ?)
	`, fmt.Sprintf("-%d day", days))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *service) Close() error {
	return s.db.Close()
}

func encodeDetail(detail map[string]string) (string, error) {
	if len(detail) == 0 {
		return "", nil
	}
	b, err := json.Marshal(detail)
	if err != nil {
		return "", fmt.Errorf("failed to encode finding detail: %w", err)
	}
	return string(b), nil
}
