package snapshot

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Field names used in MalformedInputError.
const (
	FieldUser                = "user"
	FieldGroup               = "group"
	FieldMFAActive           = "mfa_active"
	FieldPasswordLastChanged = "password_last_changed"
	FieldAccessKeyID         = "access_key_id"
	FieldStatus              = "status"
	FieldCreateDate          = "create_date"
)

// Option configures Build.
type Option func(*builder)

// WithLogger routes builder diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(b *builder) {
		if l != nil {
			b.log = l
		}
	}
}

type builder struct {
	log  *zap.Logger
	errs []error
	snap *Snapshot
}

// Build validates raw and returns the snapshot together with every
// malformed record it met. Bad records are skipped or downgraded, so the
// snapshot is always usable; callers decide whether errors are fatal.
func Build(raw RawInput, opts ...Option) (*Snapshot, []error) {
	b := &builder{
		log: zap.NewNop(),
		snap: &Snapshot{
			identities: make(map[string]Identity, len(raw.CredentialReport)),
			groups:     make(map[string]Group, len(raw.Groups)),
		},
	}
	for _, opt := range opts {
		opt(b)
	}

	b.addGroups(raw.Groups)
	b.addIdentities(raw)
	b.addAccessKeys(raw.AccessKeys)
	b.checkReferences(raw)

	return b.snap, b.errs
}

func (b *builder) malformed(record, field, value, reason string) {
	b.log.Warn("malformed input record",
		zap.String("record", record),
		zap.String("field", field),
		zap.String("value", value),
		zap.String("reason", reason))
	b.errs = append(b.errs, &MalformedInputError{Record: record, Field: field, Value: value, Reason: reason})
}

func (b *builder) addGroups(groups []RawGroup) {
	for _, g := range groups {
		if g.Name == "" {
			b.malformed("group", FieldGroup, "", "empty group name")
			continue
		}
		if _, dup := b.snap.groups[g.Name]; dup {
			b.malformed(g.Name, FieldGroup, g.Name, "duplicate group name")
			continue
		}
		b.snap.groups[g.Name] = Group{Name: g.Name, AttachedPolicyNames: dedupe(g.AttachedPolicies)}
	}
}

func (b *builder) addIdentities(raw RawInput) {
	for _, row := range raw.CredentialReport {
		if row.User == "" {
			b.malformed("credential report", FieldUser, "", "empty user name")
			continue
		}
		if _, dup := b.snap.identities[row.User]; dup {
			b.malformed(row.User, FieldUser, row.User, "duplicate identity name")
			continue
		}

		id := Identity{
			Name:                row.User,
			ARN:                 row.ARN,
			HasMFA:              b.parseMFA(row.User, row.MFAActive),
			PasswordLastChanged: b.parseTimestamp(row.User, FieldPasswordLastChanged, row.PasswordLastChanged),
			AttachedPolicyNames: dedupe(raw.UserPolicies[row.User]),
			GroupNames:          dedupe(raw.UserGroups[row.User]),
		}
		b.snap.identities[id.Name] = id
	}

	for _, u := range raw.Users {
		if u.Name == "" {
			continue
		}
		if _, ok := b.snap.identities[u.Name]; ok {
			continue
		}
		b.snap.identities[u.Name] = Identity{
			Name:                u.Name,
			ARN:                 u.ARN,
			AttachedPolicyNames: dedupe(raw.UserPolicies[u.Name]),
			GroupNames:          dedupe(raw.UserGroups[u.Name]),
		}
		b.note(Note{Kind: NoteMissingReportRow, Subject: u.Name, Reference: "credential report"})
	}
}

func (b *builder) addAccessKeys(keys []RawAccessKey) {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		record := k.AccessKeyID
		if record == "" {
			record = k.UserName
		}
		if k.AccessKeyID == "" {
			b.malformed(record, FieldAccessKeyID, "", "empty access key id")
			continue
		}
		if _, dup := seen[k.AccessKeyID]; dup {
			b.malformed(record, FieldAccessKeyID, k.AccessKeyID, "duplicate access key id")
			continue
		}
		if _, ok := b.snap.identities[k.UserName]; !ok {
			b.malformed(record, FieldUser, k.UserName, "access key owner is not a known identity")
			continue
		}
		status, ok := parseStatus(k.Status)
		if !ok {
			b.malformed(record, FieldStatus, k.Status, "expected Active or Inactive")
			continue
		}
		if k.CreateDate.IsZero() {
			b.malformed(record, FieldCreateDate, "", "missing creation date")
			continue
		}
		seen[k.AccessKeyID] = struct{}{}

		key := AccessKey{
			Owner:     k.UserName,
			KeyID:     k.AccessKeyID,
			Status:    status,
			CreatedAt: k.CreateDate.UTC(),
		}
		if k.LastUsedDate != nil && !k.LastUsedDate.IsZero() {
			t := k.LastUsedDate.UTC()
			key.LastUsedAt = &t
		}
		b.snap.keys = append(b.snap.keys, key)
	}
}

func (b *builder) checkReferences(raw RawInput) {
	for _, id := range b.snap.Identities() {
		for _, g := range id.GroupNames {
			if _, ok := b.snap.groups[g]; !ok {
				b.note(Note{Kind: "group", Subject: id.Name, Reference: g})
			}
		}
	}

	for _, m := range []map[string][]string{raw.UserPolicies, raw.UserGroups} {
		for _, user := range sortedKeys(m) {
			if _, ok := b.snap.identities[user]; !ok {
				b.note(Note{Kind: "user", Subject: "lookup", Reference: user})
			}
		}
	}
}

func (b *builder) note(n Note) {
	b.log.Debug("unknown reference",
		zap.String("kind", n.Kind),
		zap.String("subject", n.Subject),
		zap.String("reference", n.Reference))
	b.snap.notes = append(b.snap.notes, n)
}

// parseMFA treats an absent flag as false.
func (b *builder) parseMFA(user, raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return true
	case "false", "":
		return false
	default:
		b.malformed(user, FieldMFAActive, raw, "expected true or false")
		return false
	}
}

func (b *builder) parseTimestamp(user, field, raw string) *time.Time {
	if isUnset(raw) {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		b.malformed(user, field, raw, "unparseable timestamp")
		return nil
	}
	t = t.UTC()
	return &t
}

// isUnset reports whether a credential report cell carries no value.
func isUnset(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "N/A", "not_supported", "no_information":
		return true
	}
	return false
}

func parseStatus(raw string) (KeyStatus, bool) {
	switch {
	case strings.EqualFold(raw, string(KeyActive)):
		return KeyActive, true
	case strings.EqualFold(raw, string(KeyInactive)):
		return KeyInactive, true
	}
	return "", false
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Identities returns every identity ordered by name.
func (s *Snapshot) Identities() []Identity {
	out := make([]Identity, 0, len(s.identities))
	for _, name := range sortedKeys(s.identities) {
		out = append(out, s.identities[name].clone())
	}
	return out
}

// Identity looks up one identity by exact name.
func (s *Snapshot) Identity(name string) (Identity, bool) {
	id, ok := s.identities[name]
	if !ok {
		return Identity{}, false
	}
	return id.clone(), true
}

// Groups returns every group ordered by name.
func (s *Snapshot) Groups() []Group {
	out := make([]Group, 0, len(s.groups))
	for _, name := range sortedKeys(s.groups) {
		out = append(out, s.groups[name].clone())
	}
	return out
}

// Group looks up one group by exact name.
func (s *Snapshot) Group(name string) (Group, bool) {
	g, ok := s.groups[name]
	if !ok {
		return Group{}, false
	}
	return g.clone(), true
}

// AccessKeys returns all accepted keys in input order.
func (s *Snapshot) AccessKeys() []AccessKey {
	out := make([]AccessKey, len(s.keys))
	for i, k := range s.keys {
		out[i] = k.clone()
	}
	return out
}

// KeysFor returns the keys owned by name in input order.
func (s *Snapshot) KeysFor(name string) []AccessKey {
	var out []AccessKey
	for _, k := range s.keys {
		if k.Owner == name {
			out = append(out, k.clone())
		}
	}
	return out
}

// Notes returns the unknown references seen while building.
func (s *Snapshot) Notes() []Note {
	return append([]Note(nil), s.notes...)
}

func (i Identity) clone() Identity {
	i.AttachedPolicyNames = append([]string(nil), i.AttachedPolicyNames...)
	i.GroupNames = append([]string(nil), i.GroupNames...)
	if i.PasswordLastChanged != nil {
		t := *i.PasswordLastChanged
		i.PasswordLastChanged = &t
	}
	return i
}

func (g Group) clone() Group {
	g.AttachedPolicyNames = append([]string(nil), g.AttachedPolicyNames...)
	return g
}

func (k AccessKey) clone() AccessKey {
	if k.LastUsedAt != nil {
		t := *k.LastUsedAt
		k.LastUsedAt = &t
	}
	return k
}
