package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thirukguru/aws-posture/service/exposure"
	"github.com/thirukguru/aws-posture/service/snapshot"
)

type fakeProvider struct {
	failKind Kind
}

func (f *fakeProvider) hit(_ context.Context, k Kind) error {
	if k == f.failKind {
		return errors.New("AccessDenied")
	}
	return nil
}

func (f *fakeProvider) FetchCredentialReport(ctx context.Context) (*CredentialReport, error) {
	if err := f.hit(ctx, KindCredentialReport); err != nil {
		return nil, err
	}
	return &CredentialReport{
		GeneratedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Rows:        []snapshot.CredentialReportRow{{User: "alice"}},
	}, nil
}

func (f *fakeProvider) FetchUsers(ctx context.Context) ([]snapshot.RawUser, error) {
	return []snapshot.RawUser{{Name: "alice"}, {Name: "dave"}}, f.hit(ctx, KindUsers)
}

func (f *fakeProvider) FetchUserPolicies(ctx context.Context) (map[string][]string, error) {
	return map[string][]string{"alice": {"AdministratorAccess"}}, f.hit(ctx, KindUserPolicies)
}

func (f *fakeProvider) FetchUserGroups(ctx context.Context) (map[string][]string, error) {
	return map[string][]string{"alice": {"ops"}}, f.hit(ctx, KindUserGroups)
}

func (f *fakeProvider) FetchGroups(ctx context.Context) ([]snapshot.RawGroup, error) {
	return []snapshot.RawGroup{{Name: "ops"}}, f.hit(ctx, KindGroups)
}

func (f *fakeProvider) FetchAccessKeys(ctx context.Context) ([]snapshot.RawAccessKey, error) {
	return nil, f.hit(ctx, KindAccessKeys)
}

func (f *fakeProvider) FetchSecurityGroupRules(ctx context.Context) ([]exposure.SecurityGroupRule, error) {
	return []exposure.SecurityGroupRule{{GroupID: "sg-1"}}, f.hit(ctx, KindSecurityGroupRules)
}

func (f *fakeProvider) FetchInstances(ctx context.Context) ([]exposure.Instance, error) {
	return []exposure.Instance{{InstanceID: "i-1"}}, f.hit(ctx, KindInstances)
}

func TestCollectFullScope(t *testing.T) {
	inv, err := Collect(context.Background(), &fakeProvider{}, Scope{Identity: true, Network: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), inv.ReportGeneratedAt())
	assert.Len(t, inv.SecurityGroupRules, 1)
	assert.Len(t, inv.Instances, 1)
	assert.False(t, inv.CollectedAt.IsZero())

	raw := inv.RawInput()
	assert.Equal(t, "alice", raw.CredentialReport[0].User)
	assert.Equal(t, []string{"ops"}, raw.UserGroups["alice"])
	assert.Equal(t, []snapshot.RawUser{{Name: "alice"}, {Name: "dave"}}, raw.Users)
}

func TestCollectNetworkOnly(t *testing.T) {
	inv, err := Collect(context.Background(), &fakeProvider{failKind: KindCredentialReport}, Scope{Network: true}, nil)
	require.NoError(t, err)
	assert.Nil(t, inv.Report)
	assert.True(t, inv.ReportGeneratedAt().IsZero())
	assert.Empty(t, inv.RawInput().CredentialReport)
}

func TestCollectFailureIsNeverPartial(t *testing.T) {
	for _, kind := range []Kind{KindGroups, KindInstances} {
		t.Run(string(kind), func(t *testing.T) {
			inv, err := Collect(context.Background(), &fakeProvider{failKind: kind}, Scope{Identity: true, Network: true}, nil)
			require.Error(t, err)
			assert.Nil(t, inv)

			var fetchErr *ResourceFetchFailedError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, kind, fetchErr.Kind)
			assert.Contains(t, err.Error(), "AccessDenied")
		})
	}
}

func TestCompose(t *testing.T) {
	f := &fakeProvider{}
	p := Compose(f, f)
	rules, err := p.FetchSecurityGroupRules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sg-1", rules[0].GroupID)
}
