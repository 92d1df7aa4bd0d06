// Package provider defines the capabilities a data source must offer and
// collects a complete inventory from it.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/thirukguru/aws-posture/service/exposure"
	"github.com/thirukguru/aws-posture/service/snapshot"
)

// Kind names a resource collection.
type Kind string

// Resource kinds
const (
	KindCredentialReport   Kind = "credential_report"
	KindUsers              Kind = "users"
	KindUserPolicies       Kind = "user_policies"
	KindUserGroups         Kind = "user_groups"
	KindGroups             Kind = "groups"
	KindAccessKeys         Kind = "access_keys"
	KindSecurityGroupRules Kind = "security_group_rules"
	KindInstances          Kind = "instances"
)

// CredentialReport is a parsed credential report. GeneratedAt is the time
// the provider says the report was produced.
type CredentialReport struct {
	GeneratedAt time.Time
	Rows        []snapshot.CredentialReportRow
	Raw         []byte
}

// IdentityProvider fetches IAM identity data.
type IdentityProvider interface {
	FetchCredentialReport(ctx context.Context) (*CredentialReport, error)
	FetchUsers(ctx context.Context) ([]snapshot.RawUser, error)
	FetchUserPolicies(ctx context.Context) (map[string][]string, error)
	FetchUserGroups(ctx context.Context) (map[string][]string, error)
	FetchGroups(ctx context.Context) ([]snapshot.RawGroup, error)
	FetchAccessKeys(ctx context.Context) ([]snapshot.RawAccessKey, error)
}

// NetworkProvider fetches network exposure data.
type NetworkProvider interface {
	FetchSecurityGroupRules(ctx context.Context) ([]exposure.SecurityGroupRule, error)
	FetchInstances(ctx context.Context) ([]exposure.Instance, error)
}

// Provider is the full capability set.
type Provider interface {
	IdentityProvider
	NetworkProvider
}

// Scope selects which halves of the inventory to collect.
type Scope struct {
	Identity bool
	Network  bool
}

// Inventory is a complete collection. It is never handed out partially
// filled.
type Inventory struct {
	Report             *CredentialReport
	Users              []snapshot.RawUser
	UserPolicies       map[string][]string
	UserGroups         map[string][]string
	Groups             []snapshot.RawGroup
	AccessKeys         []snapshot.RawAccessKey
	SecurityGroupRules []exposure.SecurityGroupRule
	Instances          []exposure.Instance
	CollectedAt        time.Time
}

// ResourceFetchFailedError wraps the first failure met while collecting.
type ResourceFetchFailedError struct {
	Kind Kind
	Err  error
}

func (e *ResourceFetchFailedError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Kind, e.Err)
}

func (e *ResourceFetchFailedError) Unwrap() error {
	return e.Err
}
