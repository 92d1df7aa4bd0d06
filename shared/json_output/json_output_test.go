package jsonoutput

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thirukguru/aws-posture/model"
	"github.com/thirukguru/aws-posture/service/exposure"
	"github.com/thirukguru/aws-posture/service/finding"
	"github.com/thirukguru/aws-posture/service/snapshot"
)

func TestBuildAuditReport(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	input := model.RenderAuditInput{
		AccountID:         "123456789012",
		ScanID:            "scan-1",
		GeneratedAt:       now,
		ReportGeneratedAt: now.Add(-time.Hour),
		Findings: []finding.Finding{
			finding.New(finding.OpenCriticalPort, "sg-1", finding.KeyPort, "22"),
			finding.New(finding.NoMfa, "alice"),
			finding.New(finding.NoMfa, "bob"),
		},
		InputErrors: []string{"access key AKIA1: unknown owner"},
	}

	report := BuildAuditReport(input)

	assert.Equal(t, "2026-03-01T12:00:00Z", report.GeneratedAt)
	assert.Equal(t, "2026-03-01T11:00:00Z", report.ReportGeneratedAt)
	assert.True(t, report.HasFindings)
	assert.Equal(t, 3, report.Summary.TotalFindings)
	assert.Equal(t, 1, report.Summary.Critical)
	assert.Equal(t, 2, report.Summary.Medium)
	assert.Equal(t, 2, report.Summary.ByCategory["NoMfa"])
	assert.Equal(t, 0, report.Summary.ByCategory["PublicInstance"])
	require.Len(t, report.Findings, 3)
	assert.Equal(t, "sg-1", report.Findings[0].Subject)
	assert.Equal(t, finding.SeverityCritical, report.Findings[0].Severity)
	assert.Contains(t, report.Findings[0].Controls, "CIS 5.2")
	assert.Len(t, report.Findings[0].Hash, 64)
	assert.Equal(t, input.InputErrors, report.InputErrors)
}

func TestBuildAuditReportEmptyFindingsIsArray(t *testing.T) {
	report := BuildAuditReport(model.RenderAuditInput{AccountID: "1"})

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, report))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []interface{}{}, decoded["findings"])
	assert.Equal(t, false, decoded["has_findings"])
	assert.NotContains(t, decoded, "report_generated_at")
}

func TestBuildInventoryReport(t *testing.T) {
	created := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	input := model.RenderInventoryInput{
		AccountID: "123456789012",
		Identities: []snapshot.Identity{
			{Name: "alice", HasMFA: true, GroupNames: []string{"admins"}},
		},
		Groups:      []snapshot.Group{{Name: "admins", AttachedPolicyNames: []string{"AdministratorAccess"}}, {Name: "dev"}},
		AdminGroups: []string{"admins"},
		AccessKeys: []snapshot.AccessKey{
			{Owner: "alice", KeyID: "AKIA1", Status: snapshot.KeyActive, CreatedAt: created},
		},
		Instances: []exposure.Instance{{InstanceID: "i-1", State: "running"}},
	}

	report := BuildInventoryReport(input, created)

	require.Len(t, report.Identities, 1)
	assert.True(t, report.Identities[0].MFA)
	assert.True(t, report.Groups[0].Admin)
	assert.False(t, report.Groups[1].Admin)
	assert.Equal(t, "2025-01-02T00:00:00Z", report.AccessKeys[0].CreatedAt)
	assert.Empty(t, report.AccessKeys[0].LastUsedAt)
	assert.NotNil(t, report.SecurityGroupRules)
	assert.Len(t, report.Instances, 1)
}
