package finding

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Categories lists every category in report order.
var Categories = []Category{
	AdminViaPolicy,
	AdminViaGroup,
	NoMfa,
	StalePassword,
	StaleAccessKey,
	UnusedAccessKey,
	OpenCriticalPort,
	PublicInstance,
	MissingKeyPair,
}

var severities = map[Category]string{
	OpenCriticalPort: SeverityCritical,
	AdminViaPolicy:   SeverityHigh,
	AdminViaGroup:    SeverityHigh,
	NoMfa:            SeverityMedium,
	StalePassword:    SeverityMedium,
	StaleAccessKey:   SeverityMedium,
	PublicInstance:   SeverityMedium,
	UnusedAccessKey:  SeverityLow,
	MissingKeyPair:   SeverityLow,
}

// New builds a finding. kv is read as alternating key/value pairs; a
// trailing odd key is ignored.
func New(category Category, subject string, kv ...string) Finding {
	f := Finding{Category: category, Subject: subject}
	if len(kv) >= 2 {
		f.Detail = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			f.Detail[kv[i]] = kv[i+1]
		}
	}
	return f
}

// Severity returns the severity of a category, INFO when unknown.
func Severity(c Category) string {
	if s, ok := severities[c]; ok {
		return s
	}
	return SeverityInfo
}

// Severity returns the severity of the finding's category.
func (f Finding) Severity() string {
	return Severity(f.Category)
}

// Flatten renders the finding as a flat key/value map suitable for an
// audit log line. Detail keys that collide with category or subject are
// prefixed with "detail_".
func (f Finding) Flatten() map[string]string {
	out := make(map[string]string, len(f.Detail)+2)
	for k, v := range f.Detail {
		if k == KeyCategory || k == KeySubject {
			k = "detail_" + k
		}
		out[k] = v
	}
	out[KeyCategory] = string(f.Category)
	out[KeySubject] = f.Subject
	return out
}

// DetailKeys returns the detail keys in sorted order.
func (f Finding) DetailKeys() []string {
	keys := make([]string, 0, len(f.Detail))
	for k := range f.Detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Hash is a stable identity for the finding across scans. Detail values
// that change every run (ages) are excluded so an unchanged violation
// keeps its hash.
func (f Finding) Hash() string {
	parts := []string{string(f.Category), f.Subject}
	for _, k := range f.DetailKeys() {
		if k == KeyAgeDays {
			continue
		}
		parts = append(parts, k+"="+f.Detail[k])
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%q", parts)))
	return hex.EncodeToString(sum[:])
}

// Summary counts findings per category.
func Summary(findings []Finding) map[Category]int {
	out := make(map[Category]int, len(Categories))
	for _, f := range findings {
		out[f.Category]++
	}
	return out
}

// CountBySeverity counts findings per severity level.
func CountBySeverity(findings []Finding) map[string]int {
	out := map[string]int{}
	for _, f := range findings {
		out[f.Severity()]++
	}
	return out
}
