package fixture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thirukguru/aws-posture/service/iam"
	"github.com/thirukguru/aws-posture/service/provider"
)

func TestLoadFixture(t *testing.T) {
	p, err := Load("testdata/account.yaml")
	require.NoError(t, err)
	ctx := context.Background()

	report, err := p.FetchCredentialReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), report.GeneratedAt)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, "N/A", report.Rows[1].PasswordLastChanged)

	keys, err := p.FetchAccessKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Nil(t, keys[0].LastUsedDate)
	require.NotNil(t, keys[1].LastUsedDate)

	rules, err := p.FetchSecurityGroupRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, int32(20), *rules[0].FromPort)

	instances, err := p.FetchInstances(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ops", instances[1].KeyPairName)
}

func TestFixtureFailKinds(t *testing.T) {
	p, err := Parse([]byte("fail_kinds: [groups]\n"))
	require.NoError(t, err)

	inv, err := provider.Collect(context.Background(), p, provider.Scope{Identity: true, Network: true}, nil)
	assert.Nil(t, inv)
	var fetchErr *provider.ResourceFetchFailedError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, provider.KindGroups, fetchErr.Kind)
}

func TestFixtureReturnsCopies(t *testing.T) {
	p := New(File{UserPolicies: map[string][]string{"a": {"x"}}})
	first, _ := p.FetchUserPolicies(context.Background())
	first["a"][0] = "changed"

	second, _ := p.FetchUserPolicies(context.Background())
	assert.Equal(t, "x", second["a"][0])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	assert.Error(t, err)
}

func TestFixtureAccountID(t *testing.T) {
	p, err := Load("testdata/account.yaml")
	require.NoError(t, err)

	id, err := p.AccountID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "111111111111", id)

	_, err = New(File{}).AccountID(context.Background())
	assert.ErrorIs(t, err, ErrNoAccountID)
}

func TestFixtureReportRawRoundTrips(t *testing.T) {
	p, err := Load("testdata/account.yaml")
	require.NoError(t, err)

	report, err := p.FetchCredentialReport(context.Background())
	require.NoError(t, err)

	rows, err := iam.ParseCredentialReport(report.Raw)
	require.NoError(t, err)
	assert.Equal(t, report.Rows, rows)
}

func TestFixtureUsers(t *testing.T) {
	p, err := Load("testdata/account.yaml")
	require.NoError(t, err)

	users, err := p.FetchUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[1].Name)
	assert.Equal(t, "arn:aws:iam::111111111111:user/alice", users[1].ARN)

	p, err = Parse([]byte("users:\n  - name: dave\n    arn: arn:aws:iam::1:user/dave\n"))
	require.NoError(t, err)
	users, err = p.FetchUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dave", users[0].Name)
	assert.Equal(t, "arn:aws:iam::1:user/dave", users[0].ARN)
}
