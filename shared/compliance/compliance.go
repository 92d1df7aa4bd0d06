// Package compliance maps finding categories to benchmark controls.
package compliance

import "github.com/thirukguru/aws-posture/service/finding"

// Control is a benchmark control a finding category violates.
type Control struct {
	ID        string
	Title     string
	Framework string // "CIS", "NIST", "PCI-DSS"
}

// CategoryControls maps each finding category to the CIS AWS Foundations
// Benchmark v1.5.0 controls and related NIST/PCI-DSS references.
var CategoryControls = map[finding.Category][]Control{
	finding.NoMfa: {
		{ID: "CIS 1.10", Title: "Ensure multi-factor authentication is enabled for all IAM users that have a console password", Framework: "CIS"},
		{ID: "NIST IA-2", Title: "Identification and Authentication", Framework: "NIST"},
		{ID: "PCI-DSS 8.3", Title: "Incorporate two-factor authentication", Framework: "PCI-DSS"},
	},
	finding.StalePassword: {
		{ID: "CIS 1.12", Title: "Ensure credentials unused for 45 days or greater are disabled", Framework: "CIS"},
		{ID: "PCI-DSS 8.2.4", Title: "Change user passwords at least once every 90 days", Framework: "PCI-DSS"},
	},
	finding.StaleAccessKey: {
		{ID: "CIS 1.14", Title: "Ensure access keys are rotated every 90 days or less", Framework: "CIS"},
		{ID: "NIST IA-5", Title: "Authenticator Management", Framework: "NIST"},
	},
	finding.UnusedAccessKey: {
		{ID: "CIS 1.12", Title: "Ensure credentials unused for 45 days or greater are disabled", Framework: "CIS"},
		{ID: "NIST AC-2", Title: "Account Management", Framework: "NIST"},
	},
	finding.AdminViaPolicy: {
		{ID: "CIS 1.15", Title: "Ensure IAM Users Receive Permissions Only Through Groups", Framework: "CIS"},
		{ID: "CIS 1.16", Title: "Ensure IAM policies that allow full *:* administrative privileges are not attached", Framework: "CIS"},
		{ID: "NIST AC-6", Title: "Least Privilege", Framework: "NIST"},
	},
	finding.AdminViaGroup: {
		{ID: "CIS 1.16", Title: "Ensure IAM policies that allow full *:* administrative privileges are not attached", Framework: "CIS"},
		{ID: "NIST AC-6", Title: "Least Privilege", Framework: "NIST"},
		{ID: "PCI-DSS 7.1.2", Title: "Restrict access to privileged user IDs", Framework: "PCI-DSS"},
	},
	finding.OpenCriticalPort: {
		{ID: "CIS 5.2", Title: "Ensure no security groups allow ingress from 0.0.0.0/0 to remote server administration ports", Framework: "CIS"},
		{ID: "CIS 5.3", Title: "Ensure no security groups allow ingress from ::/0 to remote server administration ports", Framework: "CIS"},
		{ID: "NIST AC-4", Title: "Information Flow Enforcement", Framework: "NIST"},
		{ID: "PCI-DSS 1.3.2", Title: "Limit inbound Internet traffic", Framework: "PCI-DSS"},
	},
	finding.PublicInstance: {
		{ID: "NIST SC-7", Title: "Boundary Protection", Framework: "NIST"},
		{ID: "PCI-DSS 1.3.7", Title: "Do not disclose private IP addresses", Framework: "PCI-DSS"},
	},
	finding.MissingKeyPair: {
		{ID: "NIST IA-5", Title: "Authenticator Management", Framework: "NIST"},
	},
}

// IDs returns the control IDs for a category, nil when it has none.
func IDs(c finding.Category) []string {
	controls, ok := CategoryControls[c]
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(controls))
	for _, ctl := range controls {
		ids = append(ids, ctl.ID)
	}
	return ids
}

// CISControls returns only the CIS control IDs for a category.
func CISControls(c finding.Category) []string {
	var ids []string
	for _, ctl := range CategoryControls[c] {
		if ctl.Framework == "CIS" {
			ids = append(ids, ctl.ID)
		}
	}
	return ids
}
