package flag

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thirukguru/aws-posture/model"
)

func resetFlagState(t *testing.T, args []string) func() {
	t.Helper()
	oldCommandLine := pflag.CommandLine
	oldArgs := os.Args
	pflag.CommandLine = pflag.NewFlagSet("test", pflag.ContinueOnError)
	os.Args = append([]string{"aws-posture"}, args...)
	return func() {
		pflag.CommandLine = oldCommandLine
		os.Args = oldArgs
	}
}

func TestGetParsedFlagsAllOptions(t *testing.T) {
	cleanup := resetFlagState(t, []string{
		"--profile", "prod",
		"--region", "us-east-1",
		"--output", "json",
		"--checks", "identity, network",
		"--config-path", "/tmp/policy.yaml",
		"--rotation-days", "90",
		"--critical-ports", "22,5432",
		"--admin-policies", "AdministratorAccess, Breakglass",
		"--fail-on", "high",
		"--fixture", "account.yaml",
		"--audit-log", "audit.csv",
		"--audit-log-format", "jsonl",
		"--best-effort",
		"--log-level", "debug",
		"--report-attempts", "4",
		"--account-id", "123456789012",
		"--store",
		"--db-path", "/tmp/history.db",
		"--trends",
		"--trend-days", "15",
		"--compare",
		"--export-json", "out.json",
		"--export-csv", "out.csv",
	})
	defer cleanup()

	flags, err := NewService().GetParsedFlags()
	require.NoError(t, err)

	assert.Equal(t, "prod", flags.Profile)
	assert.Equal(t, "us-east-1", flags.Region)
	assert.Equal(t, "json", flags.Output)
	assert.Equal(t, []string{"identity", "network"}, flags.Checks)
	assert.True(t, flags.Enabled(model.CheckNetwork))
	assert.False(t, flags.Enabled(model.CheckHygiene))
	assert.Equal(t, 90, flags.RotationDays)
	assert.Equal(t, []int32{22, 5432}, flags.CriticalPorts)
	assert.Equal(t, []string{"AdministratorAccess", "Breakglass"}, flags.AdminPolicies)
	assert.Equal(t, "HIGH", flags.FailOn)
	assert.Equal(t, "account.yaml", flags.Fixture)
	assert.Equal(t, "jsonl", flags.AuditLogFormat)
	assert.True(t, flags.BestEffort)
	assert.Equal(t, 4, flags.ReportAttempts)
	assert.True(t, flags.Store)
	assert.Equal(t, 15, flags.TrendDays)
	assert.True(t, flags.Compare)
	assert.Equal(t, "out.csv", flags.ExportCSV)
}

func TestGetParsedFlagsDefaults(t *testing.T) {
	cleanup := resetFlagState(t, nil)
	defer cleanup()

	flags, err := NewService().GetParsedFlags()
	require.NoError(t, err)

	assert.Equal(t, "table", flags.Output)
	assert.Equal(t, model.AllChecks, flags.Checks)
	assert.Equal(t, "csv", flags.AuditLogFormat)
	assert.Equal(t, 30, flags.TrendDays)
	assert.Nil(t, flags.CriticalPorts)
	assert.False(t, flags.BestEffort)
}

func TestGetParsedFlagsRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown check", []string{"--checks", "s3"}},
		{"bad port", []string{"--critical-ports", "22,http"}},
		{"port out of range", []string{"--critical-ports", "70000"}},
		{"bad output", []string{"--output", "html"}},
		{"bad audit log format", []string{"--audit-log-format", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := resetFlagState(t, tt.args)
			defer cleanup()

			_, err := NewService().GetParsedFlags()
			assert.Error(t, err)
		})
	}
}
