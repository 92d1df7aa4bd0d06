// Package jsonoutput renders audit and inventory results as JSON documents.
package jsonoutput

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/thirukguru/aws-posture/model"
	"github.com/thirukguru/aws-posture/service/exposure"
	"github.com/thirukguru/aws-posture/service/finding"
	"github.com/thirukguru/aws-posture/service/snapshot"
	"github.com/thirukguru/aws-posture/shared/compliance"
)

// OutputAuditJSON writes the audit report as JSON to stdout.
func OutputAuditJSON(input model.RenderAuditInput) error {
	return writeJSON(os.Stdout, BuildAuditReport(input))
}

// BuildAuditReport builds the audit JSON model. Findings keep the order they
// were produced in.
func BuildAuditReport(input model.RenderAuditInput) model.AuditReportJSON {
	counts := finding.CountBySeverity(input.Findings)

	byCategory := make(map[string]int, len(finding.Categories))
	for _, c := range finding.Categories {
		byCategory[string(c)] = 0
	}
	for c, n := range finding.Summary(input.Findings) {
		byCategory[string(c)] = n
	}

	findings := make([]model.FindingJSON, 0, len(input.Findings))
	for _, f := range input.Findings {
		findings = append(findings, model.FindingJSON{
			Category: string(f.Category),
			Severity: f.Severity(),
			Subject:  f.Subject,
			Detail:   f.Detail,
			Controls: compliance.IDs(f.Category),
			Hash:     f.Hash(),
		})
	}

	return model.AuditReportJSON{
		AccountID:         input.AccountID,
		ScanID:            input.ScanID,
		GeneratedAt:       formatTime(input.GeneratedAt),
		ReportGeneratedAt: formatTime(input.ReportGeneratedAt),
		HasFindings:       len(findings) > 0,
		Summary: model.AuditSummaryJSON{
			TotalFindings: len(findings),
			Critical:      counts[finding.SeverityCritical],
			High:          counts[finding.SeverityHigh],
			Medium:        counts[finding.SeverityMedium],
			Low:           counts[finding.SeverityLow],
			Info:          counts[finding.SeverityInfo],
			ByCategory:    byCategory,
		},
		Findings:    findings,
		InputErrors: input.InputErrors,
		Notes:       input.Notes,
	}
}

// OutputInventoryJSON writes the inventory as JSON to stdout.
func OutputInventoryJSON(input model.RenderInventoryInput) error {
	return writeJSON(os.Stdout, BuildInventoryReport(input, time.Now().UTC()))
}

// BuildInventoryReport builds the inventory JSON model.
func BuildInventoryReport(input model.RenderInventoryInput, generatedAt time.Time) model.InventoryReportJSON {
	admin := make(map[string]bool, len(input.AdminGroups))
	for _, g := range input.AdminGroups {
		admin[g] = true
	}

	out := model.InventoryReportJSON{
		AccountID:          input.AccountID,
		GeneratedAt:        formatTime(generatedAt),
		ReportGeneratedAt:  formatTime(input.ReportGeneratedAt),
		Identities:         make([]model.IdentityJSON, 0, len(input.Identities)),
		Groups:             make([]model.GroupJSON, 0, len(input.Groups)),
		AccessKeys:         make([]model.AccessKeyJSON, 0, len(input.AccessKeys)),
		SecurityGroupRules: input.SecurityGroupRules,
		Instances:          input.Instances,
	}

	for _, id := range input.Identities {
		out.Identities = append(out.Identities, model.IdentityJSON{
			Name:                id.Name,
			ARN:                 id.ARN,
			MFA:                 id.HasMFA,
			PasswordLastChanged: formatTimePtr(id.PasswordLastChanged),
			Policies:            id.AttachedPolicyNames,
			Groups:              id.GroupNames,
		})
	}

	for _, g := range input.Groups {
		out.Groups = append(out.Groups, model.GroupJSON{
			Name:     g.Name,
			Policies: g.AttachedPolicyNames,
			Admin:    admin[g.Name],
		})
	}

	for _, k := range input.AccessKeys {
		out.AccessKeys = append(out.AccessKeys, accessKeyJSON(k))
	}

	if out.SecurityGroupRules == nil {
		out.SecurityGroupRules = []exposure.SecurityGroupRule{}
	}
	if out.Instances == nil {
		out.Instances = []exposure.Instance{}
	}

	return out
}

func accessKeyJSON(k snapshot.AccessKey) model.AccessKeyJSON {
	return model.AccessKeyJSON{
		Owner:       k.Owner,
		AccessKeyID: k.KeyID,
		Status:      string(k.Status),
		CreatedAt:   formatTime(k.CreatedAt),
		LastUsedAt:  formatTimePtr(k.LastUsedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}
