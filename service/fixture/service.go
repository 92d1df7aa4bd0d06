package fixture

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thirukguru/aws-posture/service/exposure"
	"github.com/thirukguru/aws-posture/service/provider"
	"github.com/thirukguru/aws-posture/service/snapshot"
)

// Load reads a fixture file.
func Load(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes fixture YAML.
func Parse(data []byte) (*Provider, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return New(f), nil
}

// New wraps an in-memory fixture.
func New(f File) *Provider {
	p := &Provider{data: f, fail: make(map[string]struct{}, len(f.FailKinds))}
	for _, k := range f.FailKinds {
		p.fail[k] = struct{}{}
	}
	return p
}

func (p *Provider) check(ctx context.Context, kind provider.Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := p.fail[string(kind)]; ok {
		return fmt.Errorf("fixture configured to fail %s", kind)
	}
	return nil
}

func (p *Provider) FetchCredentialReport(ctx context.Context) (*provider.CredentialReport, error) {
	if err := p.check(ctx, provider.KindCredentialReport); err != nil {
		return nil, err
	}
	rows := append([]snapshot.CredentialReportRow(nil), p.data.CredentialReport.Rows...)
	raw, err := encodeReport(rows)
	if err != nil {
		return nil, err
	}
	return &provider.CredentialReport{
		GeneratedAt: p.data.CredentialReport.GeneratedAt.UTC(),
		Rows:        rows,
		Raw:         raw,
	}, nil
}

// encodeReport renders rows with the column names IAM uses, so an exported
// fixture report parses like a downloaded one.
func encodeReport(rows []snapshot.CredentialReportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"user", "arn", "mfa_active", "password_last_changed"})
	for _, r := range rows {
		_ = w.Write([]string{r.User, r.ARN, r.MFAActive, r.PasswordLastChanged})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode fixture credential report: %w", err)
	}
	return buf.Bytes(), nil
}

// ErrNoAccountID is returned when the fixture does not name an account.
var ErrNoAccountID = errors.New("fixture has no account_id")

// AccountID returns the account the fixture describes.
func (p *Provider) AccountID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.data.AccountID == "" {
		return "", ErrNoAccountID
	}
	return p.data.AccountID, nil
}

func (p *Provider) FetchUsers(ctx context.Context) ([]snapshot.RawUser, error) {
	if err := p.check(ctx, provider.KindUsers); err != nil {
		return nil, err
	}
	if p.data.Users != nil {
		return append([]snapshot.RawUser(nil), p.data.Users...), nil
	}
	users := make([]snapshot.RawUser, 0, len(p.data.CredentialReport.Rows))
	for _, row := range p.data.CredentialReport.Rows {
		users = append(users, snapshot.RawUser{Name: row.User, ARN: row.ARN})
	}
	return users, nil
}

func (p *Provider) FetchUserPolicies(ctx context.Context) (map[string][]string, error) {
	if err := p.check(ctx, provider.KindUserPolicies); err != nil {
		return nil, err
	}
	return copyLookup(p.data.UserPolicies), nil
}

func (p *Provider) FetchUserGroups(ctx context.Context) (map[string][]string, error) {
	if err := p.check(ctx, provider.KindUserGroups); err != nil {
		return nil, err
	}
	return copyLookup(p.data.UserGroups), nil
}

func (p *Provider) FetchGroups(ctx context.Context) ([]snapshot.RawGroup, error) {
	if err := p.check(ctx, provider.KindGroups); err != nil {
		return nil, err
	}
	out := make([]snapshot.RawGroup, len(p.data.Groups))
	for i, g := range p.data.Groups {
		out[i] = snapshot.RawGroup{Name: g.Name, AttachedPolicies: append([]string(nil), g.AttachedPolicies...)}
	}
	return out, nil
}

func (p *Provider) FetchAccessKeys(ctx context.Context) ([]snapshot.RawAccessKey, error) {
	if err := p.check(ctx, provider.KindAccessKeys); err != nil {
		return nil, err
	}
	return append([]snapshot.RawAccessKey(nil), p.data.AccessKeys...), nil
}

func (p *Provider) FetchSecurityGroupRules(ctx context.Context) ([]exposure.SecurityGroupRule, error) {
	if err := p.check(ctx, provider.KindSecurityGroupRules); err != nil {
		return nil, err
	}
	return append([]exposure.SecurityGroupRule(nil), p.data.SecurityGroupRules...), nil
}

func (p *Provider) FetchInstances(ctx context.Context) ([]exposure.Instance, error) {
	if err := p.check(ctx, provider.KindInstances); err != nil {
		return nil, err
	}
	return append([]exposure.Instance(nil), p.data.Instances...), nil
}

func copyLookup(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
