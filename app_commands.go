package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/thirukguru/aws-posture/model"
	"github.com/thirukguru/aws-posture/service/orchestrator"
	"github.com/thirukguru/aws-posture/service/output"
	"github.com/thirukguru/aws-posture/service/storage"
	"github.com/thirukguru/aws-posture/shared/logger"
	"github.com/thirukguru/aws-posture/shared/trends"
)

func runStorageCommand(cmd string, args []string) error {
	switch cmd {
	case "db":
		return runDBCommand(args)
	case "history":
		return runHistoryCommand(args)
	case "dashboard":
		return runDashboardCommand(args)
	default:
		return fmt.Errorf("unsupported command: %s", cmd)
	}
}

func runDBCommand(args []string) error {
	fs := pflag.NewFlagSet("db", pflag.ContinueOnError)
	dbPath := fs.String("db-path", "", "SQLite database path")
	olderThan := fs.Int("older-than", 30, "Purge scans older than N days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: aws-posture db <vacuum|reindex|purge> [--db-path ...]")
	}

	store, err := storage.NewService(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sub := rest[0]
	switch sub {
	case "vacuum":
		return store.Vacuum(context.Background())
	case "reindex":
		return store.Reindex(context.Background())
	case "purge":
		count, err := store.PurgeOlderThan(context.Background(), *olderThan)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d scans\n", count)
		return nil
	default:
		return fmt.Errorf("unsupported db command: %s", sub)
	}
}

func runHistoryCommand(args []string) error {
	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	dbPath := fs.String("db-path", "", "SQLite database path")
	accountID := fs.String("account-id", "", "AWS account ID filter")
	limit := fs.Int("limit", 20, "Number of rows to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: aws-posture history <list|show|finding>")
	}

	store, err := storage.NewService(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sub := rest[0]
	switch sub {
	case "list":
		scans, err := store.GetRecentScans(*accountID, *limit)
		if err != nil {
			return err
		}
		for _, s := range scans {
			fmt.Printf("%d\t%s\t%s\t%s\t%d\t%d\n", s.ScanID, s.ScanUUID, s.ScanTimestamp.Format("2006-01-02 15:04:05"), s.AccountID, s.TotalFindings, s.InputErrorCount)
		}
		return nil
	case "show":
		if len(rest) < 2 {
			return fmt.Errorf("usage: aws-posture history show <scan-id>")
		}
		scanID, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil {
			return err
		}
		findings, err := store.ListFindings(scanID)
		if err != nil {
			return err
		}
		for _, f := range findings {
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n", f.Status, f.Severity, f.Category, f.Subject, f.FindingHash)
		}
		return nil
	case "finding":
		if len(rest) < 2 {
			return fmt.Errorf("usage: aws-posture history finding <hash>")
		}
		events, err := store.GetFindingLifecycle(rest[1])
		if err != nil {
			return err
		}
		for _, e := range events {
			fmt.Printf("scan=%d\t%s\t%s\t%s\t%s\t%s\n", e.ScanID, e.ScanTimestamp.Format("2006-01-02 15:04:05"), e.Status, e.Severity, e.Category, e.Subject)
		}
		return nil
	default:
		return fmt.Errorf("unsupported history command: %s", sub)
	}
}

type trendOptions struct {
	TrendDays  int
	Compare    bool
	ExportJSON string
	ExportCSV  string
	AccountID  string
}

func runTrendWorkflow(store storage.Service, flags trendOptions) error {
	points, err := store.GetTrends(flags.AccountID, flags.TrendDays)
	if err != nil {
		return err
	}
	trends.RenderTrendTable(points)

	if flags.Compare {
		scans, err := store.GetRecentScans(flags.AccountID, 2)
		if err == nil && len(scans) >= 2 {
			cmp, err := store.GetScanComparison(scans[1].ScanID, scans[0].ScanID)
			if err == nil {
				trends.RenderComparisonTable(cmp)
			}
		}
	}

	if strings.TrimSpace(flags.ExportJSON) != "" {
		b, err := json.MarshalIndent(points, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(flags.ExportJSON, b, 0o644); err != nil {
			return err
		}
	}
	if strings.TrimSpace(flags.ExportCSV) != "" {
		f, err := os.Create(flags.ExportCSV)
		if err != nil {
			return err
		}
		defer f.Close()
		w := csv.NewWriter(f)
		defer w.Flush()
		_ = w.Write([]string{"account_id", "date", "total", "critical", "high", "medium", "low", "info", "score"})
		for _, p := range points {
			_ = w.Write([]string{p.AccountID, p.Date, strconv.Itoa(p.Total), strconv.Itoa(p.Critical), strconv.Itoa(p.High), strconv.Itoa(p.Medium), strconv.Itoa(p.Low), strconv.Itoa(p.Info), strconv.Itoa(p.Score)})
		}
	}

	return nil
}

// runReportCommand downloads the credential report and saves the raw CSV.
func runReportCommand(args []string) error {
	fs := pflag.NewFlagSet("report", pflag.ContinueOnError)
	out := fs.String("out", "credentials_report.csv", "Path to write the credential report CSV")
	profile := fs.StringP("profile", "p", "", "AWS profile to use")
	region := fs.StringP("region", "r", "", "AWS region to use")
	fixturePath := fs.String("fixture", "", "Read the report from a YAML fixture instead of AWS")
	attempts := fs.Int("report-attempts", 0, "Maximum credential report polling attempts")
	logLevel := fs.String("log-level", "", "Log level for diagnostics on stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := logger.New(*logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	flags := model.Flags{Profile: *profile, Region: *region, Fixture: *fixturePath, ReportAttempts: *attempts}
	src, err := newSource(context.Background(), flags)
	if err != nil {
		return err
	}

	svc := orchestrator.NewService(src.provider, src.accounts, output.NewService("table"), nil, model.VersionInfo{}, log)
	generatedAt, err := svc.ExportReport(context.Background(), *out)
	if err != nil {
		return fmt.Errorf("credential report export failed: %w", err)
	}

	fmt.Printf("Credential report generated %s saved to %s\n", generatedAt.Format("2006-01-02 15:04:05 MST"), *out)
	return nil
}
