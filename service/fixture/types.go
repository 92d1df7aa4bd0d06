// Package fixture serves provider data from a YAML file, for offline audits
// and tests.
package fixture

import (
	"time"

	"github.com/thirukguru/aws-posture/service/exposure"
	"github.com/thirukguru/aws-posture/service/snapshot"
)

// File is the on-disk fixture layout.
type File struct {
	AccountID        string `yaml:"account_id"`
	CredentialReport struct {
		GeneratedAt time.Time                      `yaml:"generated_at"`
		Rows        []snapshot.CredentialReportRow `yaml:"rows"`
	} `yaml:"credential_report"`
	// Users defaults to the credential report rows when absent.
	Users              []snapshot.RawUser           `yaml:"users"`
	UserPolicies       map[string][]string          `yaml:"user_policies"`
	UserGroups         map[string][]string          `yaml:"user_groups"`
	Groups             []snapshot.RawGroup          `yaml:"groups"`
	AccessKeys         []snapshot.RawAccessKey      `yaml:"access_keys"`
	SecurityGroupRules []exposure.SecurityGroupRule `yaml:"security_group_rules"`
	Instances          []exposure.Instance          `yaml:"instances"`
	// FailKinds makes the named fetches fail, to rehearse collection errors.
	FailKinds []string `yaml:"fail_kinds"`
}

// Provider implements provider.Provider over a File.
type Provider struct {
	data File
	fail map[string]struct{}
}
