package flag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/thirukguru/aws-posture/model"
)

// NewService creates a new flag service.
func NewService() Service {
	return &service{}
}

// GetParsedFlags parses and returns the command-line flags.
func (s *service) GetParsedFlags() (model.Flags, error) {
	profile := pflag.StringP("profile", "p", "", "AWS profile to use")
	region := pflag.StringP("region", "r", "", "AWS region to use")
	version := pflag.BoolP("version", "v", false, "Show version information")
	output := pflag.StringP("output", "o", "table", "Output format (table or json)")
	checks := pflag.String("checks", strings.Join(model.AllChecks, ","), "Comma-separated checks to run (identity, hygiene, network)")
	configPath := pflag.String("config-path", "", "Path to an audit policy YAML file")
	rotationDays := pflag.Int("rotation-days", 0, "Credential rotation window in days (overrides policy)")
	criticalPorts := pflag.String("critical-ports", "", "Comma-separated critical ports (overrides policy)")
	adminPolicies := pflag.String("admin-policies", "", "Comma-separated admin policy names (overrides policy)")
	failOn := pflag.String("fail-on", "", "Exit non-zero when a finding reaches this severity (CRITICAL, HIGH, MEDIUM, LOW)")
	fixture := pflag.String("fixture", "", "Read account data from a YAML fixture instead of AWS")
	auditLog := pflag.String("audit-log", "", "Append findings to this audit log file")
	auditLogFormat := pflag.String("audit-log-format", "csv", "Audit log format (csv or jsonl)")
	bestEffort := pflag.Bool("best-effort", false, "Evaluate even when input records are malformed")
	logLevel := pflag.String("log-level", "", "Log level for diagnostics on stderr (debug, info, warn, error)")
	reportAttempts := pflag.Int("report-attempts", 0, "Maximum credential report polling attempts")
	accountID := pflag.String("account-id", "", "Account ID to use for history queries")
	store := pflag.Bool("store", false, "Persist audit results in local SQLite database")
	dbPath := pflag.String("db-path", "", "Custom SQLite database path (default ~/.aws-posture/history.db)")
	trends := pflag.Bool("trends", false, "Show historical trends from stored audits")
	trendDays := pflag.Int("trend-days", 30, "Number of days for trend analysis")
	compare := pflag.Bool("compare", false, "Compare two most recent audits")
	exportJSON := pflag.String("export-json", "", "Export trend output as JSON to file path")
	exportCSV := pflag.String("export-csv", "", "Export trend output as CSV to file path")

	pflag.Parse()

	parsedChecks := splitList(*checks)
	for _, c := range parsedChecks {
		if !knownChecks[c] {
			return model.Flags{}, fmt.Errorf("unknown check %q", c)
		}
	}

	var ports []int32
	for _, p := range splitList(*criticalPorts) {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil || n < 0 || n > 65535 {
			return model.Flags{}, fmt.Errorf("invalid critical port %q", p)
		}
		ports = append(ports, int32(n))
	}

	if !outputFormats[*output] {
		return model.Flags{}, fmt.Errorf("unsupported output format %q", *output)
	}
	if !auditLogFormats[*auditLogFormat] {
		return model.Flags{}, fmt.Errorf("unsupported audit log format %q", *auditLogFormat)
	}

	flags := model.Flags{
		Profile:        *profile,
		Region:         *region,
		Version:        *version,
		Output:         *output,
		Checks:         parsedChecks,
		ConfigPath:     *configPath,
		RotationDays:   *rotationDays,
		CriticalPorts:  ports,
		AdminPolicies:  splitList(*adminPolicies),
		FailOn:         strings.ToUpper(*failOn),
		Fixture:        *fixture,
		AuditLog:       *auditLog,
		AuditLogFormat: *auditLogFormat,
		BestEffort:     *bestEffort,
		LogLevel:       *logLevel,
		ReportAttempts: *reportAttempts,
		AccountID:      *accountID,
		Store:          *store,
		DBPath:         *dbPath,
		Trends:         *trends,
		TrendDays:      *trendDays,
		Compare:        *compare,
		ExportJSON:     *exportJSON,
		ExportCSV:      *exportCSV,
	}

	return flags, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
