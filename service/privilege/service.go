// Package privilege resolves which identities hold administrative access,
// either through a directly attached policy or through a group.
package privilege

import (
	"github.com/thirukguru/aws-posture/service/finding"
	"github.com/thirukguru/aws-posture/service/snapshot"
)

// DefaultAdminPolicyNames is used when no admin policy names are configured.
var DefaultAdminPolicyNames = []string{"AdministratorAccess"}

// Resolve emits AdminViaPolicy and AdminViaGroup findings. Identities are
// visited in name order; within an identity, direct attachments come first
// in discovery order, then groups in membership order. Group nesting does
// not exist in IAM, so resolution stops at the group's own policies.
// Memberships naming an unknown group grant nothing.
func Resolve(snap *snapshot.Snapshot, adminPolicyNames []string) []finding.Finding {
	if snap == nil {
		return nil
	}
	admin := adminSet(adminPolicyNames)

	var findings []finding.Finding
	for _, id := range snap.Identities() {
		for _, policy := range id.AttachedPolicyNames {
			if _, ok := admin[policy]; ok {
				findings = append(findings, finding.New(finding.AdminViaPolicy, id.Name,
					finding.KeyPolicy, policy))
			}
		}

		for _, groupName := range id.GroupNames {
			group, ok := snap.Group(groupName)
			if !ok {
				continue
			}
			if policy, ok := firstAdminPolicy(group, admin); ok {
				findings = append(findings, finding.New(finding.AdminViaGroup, id.Name,
					finding.KeyGroup, group.Name,
					finding.KeyPolicy, policy))
			}
		}
	}

	return findings
}

// AdminGroups returns the names of groups carrying an admin policy, in
// name order.
func AdminGroups(snap *snapshot.Snapshot, adminPolicyNames []string) []string {
	if snap == nil {
		return nil
	}
	admin := adminSet(adminPolicyNames)

	var out []string
	for _, g := range snap.Groups() {
		if _, ok := firstAdminPolicy(g, admin); ok {
			out = append(out, g.Name)
		}
	}
	return out
}

func firstAdminPolicy(g snapshot.Group, admin map[string]struct{}) (string, bool) {
	for _, p := range g.AttachedPolicyNames {
		if _, ok := admin[p]; ok {
			return p, true
		}
	}
	return "", false
}

func adminSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		names = DefaultAdminPolicyNames
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
