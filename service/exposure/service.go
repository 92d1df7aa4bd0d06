package exposure

import (
	"net/netip"
	"sort"
	"strconv"
	"strings"

	"github.com/thirukguru/aws-posture/service/finding"
)

const (
	minPort int32 = 0
	maxPort int32 = 65535
)

// Evaluate returns OpenCriticalPort findings for every (rule, unrestricted
// CIDR, critical port) triple, in rule then CIDR then ascending port order,
// followed by PublicInstance and MissingKeyPair findings per instance in
// input order. Instance state never suppresses a finding.
func Evaluate(rules []SecurityGroupRule, instances []Instance, criticalPorts []int32) []finding.Finding {
	ports := normalizePorts(criticalPorts)

	var findings []finding.Finding
	for _, rule := range rules {
		findings = append(findings, evaluateRule(rule, ports)...)
	}
	for _, inst := range instances {
		findings = append(findings, evaluateInstance(inst)...)
	}
	return findings
}

func evaluateRule(rule SecurityGroupRule, ports []int32) []finding.Finding {
	from, to, ok := portRange(rule)
	if !ok {
		return nil
	}

	var findings []finding.Finding
	for _, cidr := range rule.CIDRRanges {
		if !IsUnrestricted(cidr) {
			continue
		}
		for _, port := range ports {
			if from <= port && port <= to {
				kv := []string{
					finding.KeyGroupID, rule.GroupID,
					finding.KeyGroup, rule.GroupName,
					finding.KeyCIDR, cidr,
					finding.KeyPort, strconv.Itoa(int(port)),
					finding.KeyProtocol, protocolLabel(rule.Protocol),
				}
				if name, ok := ServiceNames[port]; ok {
					kv = append(kv, finding.KeyService, name)
				}
				findings = append(findings, finding.New(finding.OpenCriticalPort, rule.GroupID, kv...))
			}
		}
	}
	return findings
}

func evaluateInstance(inst Instance) []finding.Finding {
	var findings []finding.Finding
	if inst.PublicIP != "" {
		findings = append(findings, finding.New(finding.PublicInstance, inst.InstanceID,
			finding.KeyPublicIP, inst.PublicIP,
			finding.KeyState, inst.State))
	}
	if inst.KeyPairName == "" {
		findings = append(findings, finding.New(finding.MissingKeyPair, inst.InstanceID,
			finding.KeyState, inst.State))
	}
	return findings
}

// portRange resolves the closed interval a rule covers. ICMP rules carry
// type/code in the port fields and never match.
func portRange(rule SecurityGroupRule) (int32, int32, bool) {
	switch strings.ToLower(rule.Protocol) {
	case "icmp", "icmpv6", "1", "58":
		return 0, 0, false
	case "-1", "all":
		return minPort, maxPort, true
	}

	from, to := minPort, maxPort
	if rule.FromPort != nil && *rule.FromPort >= 0 {
		from = *rule.FromPort
	}
	if rule.ToPort != nil && *rule.ToPort >= 0 {
		to = *rule.ToPort
	}
	return from, to, from <= to
}

// IsUnrestricted reports whether cidr admits any address: 0.0.0.0/0, ::/0
// or an equivalent zero-length prefix.
func IsUnrestricted(cidr string) bool {
	cidr = strings.TrimSpace(cidr)
	if cidr == "0.0.0.0/0" || cidr == "::/0" {
		return true
	}
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return false
	}
	return prefix.Bits() == 0
}

func protocolLabel(p string) string {
	switch p {
	case "", "-1":
		return "all"
	}
	return p
}

func normalizePorts(ports []int32) []int32 {
	if len(ports) == 0 {
		ports = DefaultCriticalPorts
	}
	seen := make(map[int32]struct{}, len(ports))
	out := make([]int32, 0, len(ports))
	for _, p := range ports {
		if p < minPort || p > maxPort {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
