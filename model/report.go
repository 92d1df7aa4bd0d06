// Package model holds the flags and report documents shared across services.
package model

import (
	"time"

	"github.com/thirukguru/aws-posture/service/exposure"
	"github.com/thirukguru/aws-posture/service/finding"
	"github.com/thirukguru/aws-posture/service/snapshot"
)

// RenderAuditInput is everything the audit renderers need.
type RenderAuditInput struct {
	AccountID         string
	Profile           string
	ScanID            string
	GeneratedAt       time.Time
	ReportGeneratedAt time.Time
	Findings          []finding.Finding
	InputErrors       []string
	Notes             []string
}

// AuditReportJSON is the JSON document emitted for an audit.
type AuditReportJSON struct {
	AccountID         string           `json:"account_id"`
	ScanID            string           `json:"scan_id,omitempty"`
	GeneratedAt       string           `json:"generated_at"`
	ReportGeneratedAt string           `json:"report_generated_at,omitempty"`
	HasFindings       bool             `json:"has_findings"`
	Summary           AuditSummaryJSON `json:"summary"`
	Findings          []FindingJSON    `json:"findings"`
	InputErrors       []string         `json:"input_errors,omitempty"`
	Notes             []string         `json:"notes,omitempty"`
}

// AuditSummaryJSON counts findings by severity and category.
type AuditSummaryJSON struct {
	TotalFindings int            `json:"total_findings"`
	Critical      int            `json:"critical"`
	High          int            `json:"high"`
	Medium        int            `json:"medium"`
	Low           int            `json:"low"`
	Info          int            `json:"info"`
	ByCategory    map[string]int `json:"by_category"`
}

// FindingJSON is one finding in the JSON report.
type FindingJSON struct {
	Category string            `json:"category"`
	Severity string            `json:"severity"`
	Subject  string            `json:"subject"`
	Detail   map[string]string `json:"detail,omitempty"`
	Controls []string          `json:"controls,omitempty"`
	Hash     string            `json:"hash"`
}

// RenderInventoryInput lists collected resources without evaluating them.
type RenderInventoryInput struct {
	AccountID          string
	ReportGeneratedAt  time.Time
	Identities         []snapshot.Identity
	AccessKeys         []snapshot.AccessKey
	AdminGroups        []string
	Groups             []snapshot.Group
	SecurityGroupRules []exposure.SecurityGroupRule
	Instances          []exposure.Instance
}

// InventoryReportJSON is the JSON document emitted by the inventory command.
type InventoryReportJSON struct {
	AccountID          string                       `json:"account_id"`
	GeneratedAt        string                       `json:"generated_at"`
	ReportGeneratedAt  string                       `json:"report_generated_at,omitempty"`
	Identities         []IdentityJSON               `json:"identities"`
	Groups             []GroupJSON                  `json:"groups"`
	AccessKeys         []AccessKeyJSON              `json:"access_keys"`
	SecurityGroupRules []exposure.SecurityGroupRule `json:"security_group_rules"`
	Instances          []exposure.Instance          `json:"instances"`
}

// IdentityJSON is one IAM user in the inventory.
type IdentityJSON struct {
	Name                string   `json:"name"`
	ARN                 string   `json:"arn,omitempty"`
	MFA                 bool     `json:"mfa"`
	PasswordLastChanged string   `json:"password_last_changed,omitempty"`
	Policies            []string `json:"policies,omitempty"`
	Groups              []string `json:"groups,omitempty"`
}

// GroupJSON is one IAM group in the inventory.
type GroupJSON struct {
	Name     string   `json:"name"`
	Policies []string `json:"policies,omitempty"`
	Admin    bool     `json:"admin"`
}

// AccessKeyJSON is one access key in the inventory.
type AccessKeyJSON struct {
	Owner       string `json:"owner"`
	AccessKeyID string `json:"access_key_id"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	LastUsedAt  string `json:"last_used_at,omitempty"`
}
