// Package snapshot turns raw identity data pulled from a provider into an
// immutable, validated view used by the evaluators.
package snapshot

import (
	"fmt"
	"time"
)

// KeyStatus is the state of an access key.
type KeyStatus string

// Access key states
const (
	KeyActive   KeyStatus = "Active"
	KeyInactive KeyStatus = "Inactive"
)

// CredentialReportRow is one line of the IAM credential report. Values are
// kept as the raw strings the report carries.
type CredentialReportRow struct {
	User                string `yaml:"user"`
	ARN                 string `yaml:"arn"`
	MFAActive           string `yaml:"mfa_active"`
	PasswordLastChanged string `yaml:"password_last_changed"`
}

// RawUser is an IAM user as listed live, independent of the credential
// report.
type RawUser struct {
	Name string `yaml:"name"`
	ARN  string `yaml:"arn"`
}

// RawGroup is a group and the managed policies attached to it.
type RawGroup struct {
	Name             string   `yaml:"name"`
	AttachedPolicies []string `yaml:"attached_policies"`
}

// RawAccessKey is access key metadata joined with its last-used lookup.
type RawAccessKey struct {
	UserName     string     `yaml:"user"`
	AccessKeyID  string     `yaml:"access_key_id"`
	Status       string     `yaml:"status"`
	CreateDate   time.Time  `yaml:"create_date"`
	LastUsedDate *time.Time `yaml:"last_used_date"`
}

// RawInput bundles everything the builder consumes.
type RawInput struct {
	CredentialReport []CredentialReportRow
	// Users are the identities that exist right now. The credential report
	// can be up to four hours old, so users missing from it still count.
	Users []RawUser
	// UserPolicies maps user name to attached policy names.
	UserPolicies map[string][]string
	// UserGroups maps user name to group names.
	UserGroups map[string][]string
	Groups     []RawGroup
	AccessKeys []RawAccessKey
}

// Identity is an IAM user as seen by the evaluators.
type Identity struct {
	Name                string
	ARN                 string
	HasMFA              bool
	PasswordLastChanged *time.Time
	AttachedPolicyNames []string
	GroupNames          []string
}

// Group is a named IAM group.
type Group struct {
	Name                string
	AttachedPolicyNames []string
}

// AccessKey is a long-lived credential owned by exactly one identity.
type AccessKey struct {
	Owner      string
	KeyID      string
	Status     KeyStatus
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// Snapshot is the validated identity view. It is never mutated after Build
// returns; accessors hand out copies.
type Snapshot struct {
	identities map[string]Identity
	groups     map[string]Group
	keys       []AccessKey
	notes      []Note
}

// MalformedInputError describes a record the builder could not accept as is.
type MalformedInputError struct {
	Record string
	Field  string
	Value  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input: record %q field %q value %q: %s", e.Record, e.Field, e.Value, e.Reason)
}

// Note records an unknown reference. Notes are informational and never
// stop evaluation.
type Note struct {
	Kind      string // "group", "user" or "report"
	Subject   string
	Reference string
}

func (n Note) String() string {
	if n.Kind == NoteMissingReportRow {
		return fmt.Sprintf("user %q has no credential report row yet, MFA treated as disabled", n.Subject)
	}
	return fmt.Sprintf("unknown %s %q referenced by %q", n.Kind, n.Reference, n.Subject)
}

// NoteMissingReportRow marks a live user the credential report predates.
const NoteMissingReportRow = "report"
