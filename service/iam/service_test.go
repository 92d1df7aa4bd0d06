package iam

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thirukguru/aws-posture/service/snapshot"
)

const reportCSV = `user,arn,user_creation_time,password_enabled,password_last_used,password_last_changed,password_next_rotation,mfa_active
<root_account>,arn:aws:iam::111111111111:root,2020-01-01T00:00:00+00:00,not_supported,2024-01-01T00:00:00+00:00,not_supported,not_supported,true
alice,arn:aws:iam::111111111111:user/alice,2021-01-01T00:00:00+00:00,false,N/A,N/A,N/A,false
bob,arn:aws:iam::111111111111:user/bob,2021-01-01T00:00:00+00:00,true,2024-05-01T00:00:00+00:00,2024-02-01T10:00:00+00:00,N/A,true
`

type mockIAMClient struct {
	genStates   []types.ReportStateType
	genCalls    int
	genErr      error
	getErr      error
	users       []string
	userPol     map[string][]string
	userGroups  map[string][]string
	groups      map[string][]string
	keys        map[string][]types.AccessKeyMetadata
	lastUsed    map[string]time.Time
	generatedAt time.Time
}

func (m *mockIAMClient) GenerateCredentialReport(ctx context.Context, params *iam.GenerateCredentialReportInput, optFns ...func(*iam.Options)) (*iam.GenerateCredentialReportOutput, error) {
	if m.genErr != nil {
		return nil, m.genErr
	}
	state := types.ReportStateTypeComplete
	if m.genCalls < len(m.genStates) {
		state = m.genStates[m.genCalls]
	}
	m.genCalls++
	return &iam.GenerateCredentialReportOutput{State: state}, nil
}

func (m *mockIAMClient) GetCredentialReport(ctx context.Context, params *iam.GetCredentialReportInput, optFns ...func(*iam.Options)) (*iam.GetCredentialReportOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &iam.GetCredentialReportOutput{Content: []byte(reportCSV), GeneratedTime: aws.Time(m.generatedAt)}, nil
}

func (m *mockIAMClient) ListUsers(ctx context.Context, params *iam.ListUsersInput, optFns ...func(*iam.Options)) (*iam.ListUsersOutput, error) {
	out := &iam.ListUsersOutput{}
	for _, u := range m.users {
		out.Users = append(out.Users, types.User{UserName: aws.String(u), Arn: aws.String("arn:aws:iam::111111111111:user/" + u)})
	}
	return out, nil
}

func (m *mockIAMClient) ListGroups(ctx context.Context, params *iam.ListGroupsInput, optFns ...func(*iam.Options)) (*iam.ListGroupsOutput, error) {
	out := &iam.ListGroupsOutput{}
	for _, name := range []string{"admins", "devs"} {
		if _, ok := m.groups[name]; ok {
			out.Groups = append(out.Groups, types.Group{GroupName: aws.String(name)})
		}
	}
	return out, nil
}

func (m *mockIAMClient) ListAttachedUserPolicies(ctx context.Context, params *iam.ListAttachedUserPoliciesInput, optFns ...func(*iam.Options)) (*iam.ListAttachedUserPoliciesOutput, error) {
	out := &iam.ListAttachedUserPoliciesOutput{}
	for _, p := range m.userPol[aws.ToString(params.UserName)] {
		out.AttachedPolicies = append(out.AttachedPolicies, types.AttachedPolicy{PolicyName: aws.String(p)})
	}
	return out, nil
}

func (m *mockIAMClient) ListAttachedGroupPolicies(ctx context.Context, params *iam.ListAttachedGroupPoliciesInput, optFns ...func(*iam.Options)) (*iam.ListAttachedGroupPoliciesOutput, error) {
	out := &iam.ListAttachedGroupPoliciesOutput{}
	for _, p := range m.groups[aws.ToString(params.GroupName)] {
		out.AttachedPolicies = append(out.AttachedPolicies, types.AttachedPolicy{PolicyName: aws.String(p)})
	}
	return out, nil
}

func (m *mockIAMClient) ListGroupsForUser(ctx context.Context, params *iam.ListGroupsForUserInput, optFns ...func(*iam.Options)) (*iam.ListGroupsForUserOutput, error) {
	out := &iam.ListGroupsForUserOutput{}
	for _, g := range m.userGroups[aws.ToString(params.UserName)] {
		out.Groups = append(out.Groups, types.Group{GroupName: aws.String(g)})
	}
	return out, nil
}

func (m *mockIAMClient) ListAccessKeys(ctx context.Context, params *iam.ListAccessKeysInput, optFns ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error) {
	return &iam.ListAccessKeysOutput{AccessKeyMetadata: m.keys[aws.ToString(params.UserName)]}, nil
}

func (m *mockIAMClient) GetAccessKeyLastUsed(ctx context.Context, params *iam.GetAccessKeyLastUsedInput, optFns ...func(*iam.Options)) (*iam.GetAccessKeyLastUsedOutput, error) {
	out := &iam.GetAccessKeyLastUsedOutput{AccessKeyLastUsed: &types.AccessKeyLastUsed{}}
	if t, ok := m.lastUsed[aws.ToString(params.AccessKeyId)]; ok {
		out.AccessKeyLastUsed.LastUsedDate = aws.Time(t)
	}
	return out, nil
}

func newTestService(client *mockIAMClient, attempts int) (*service, *[]time.Duration) {
	svc := newService(client, ReportPolling{MaxAttempts: attempts, InitialBackoff: time.Second, MaxBackoff: 3 * time.Second})
	var waits []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return svc, &waits
}

func TestParseCredentialReport(t *testing.T) {
	rows, err := ParseCredentialReport([]byte(reportCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "<root_account>", rows[0].User)
	assert.Equal(t, "not_supported", rows[0].PasswordLastChanged)
	assert.Equal(t, "alice", rows[1].User)
	assert.Equal(t, "false", rows[1].MFAActive)
	assert.Equal(t, "2024-02-01T10:00:00+00:00", rows[2].PasswordLastChanged)
	assert.Equal(t, "arn:aws:iam::111111111111:user/bob", rows[2].ARN)
}

func TestParseCredentialReportEdgeCases(t *testing.T) {
	rows, err := ParseCredentialReport(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = ParseCredentialReport([]byte("arn,mfa_active\nx,true\n"))
	assert.Error(t, err)

	rows, err = ParseCredentialReport([]byte("mfa_active,user\ntrue,zoe\n"))
	require.NoError(t, err)
	assert.Equal(t, "zoe", rows[0].User)
	assert.Empty(t, rows[0].PasswordLastChanged)
}

func TestFetchCredentialReportPollsUntilComplete(t *testing.T) {
	generated := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	client := &mockIAMClient{
		genStates:   []types.ReportStateType{types.ReportStateTypeStarted, types.ReportStateTypeInprogress, types.ReportStateTypeInprogress},
		generatedAt: generated,
	}
	svc, waits := newTestService(client, 5)

	report, err := svc.FetchCredentialReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, generated, report.GeneratedAt)
	assert.Len(t, report.Rows, 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, *waits)
}

func TestFetchCredentialReportGivesUp(t *testing.T) {
	client := &mockIAMClient{
		genStates: []types.ReportStateType{types.ReportStateTypeStarted, types.ReportStateTypeStarted, types.ReportStateTypeStarted},
	}
	svc, waits := newTestService(client, 3)

	_, err := svc.FetchCredentialReport(context.Background())
	var failed *ReportGenerationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 3, failed.Attempts)
	assert.ErrorIs(t, err, ErrReportNotReadyYet)
	assert.Len(t, *waits, 2)
}

func TestFetchCredentialReportNotReadyExceptionRetries(t *testing.T) {
	client := &mockIAMClient{getErr: &types.CredentialReportNotReadyException{Message: aws.String("in progress")}}
	svc, _ := newTestService(client, 2)

	_, err := svc.FetchCredentialReport(context.Background())
	assert.ErrorIs(t, err, ErrReportNotReadyYet)
	assert.Equal(t, 2, client.genCalls)
}

func TestFetchCredentialReportFatalError(t *testing.T) {
	client := &mockIAMClient{genErr: &types.LimitExceededException{Message: aws.String("slow down")}}
	svc, waits := newTestService(client, 5)

	_, err := svc.FetchCredentialReport(context.Background())
	var failed *ReportGenerationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 1, failed.Attempts)
	assert.Equal(t, "LimitExceeded", failed.Code)
	assert.False(t, errors.Is(err, ErrReportNotReadyYet))
	assert.Empty(t, *waits)
}

func TestFetchCredentialReportHonoursContext(t *testing.T) {
	client := &mockIAMClient{genStates: []types.ReportStateType{types.ReportStateTypeStarted}}
	svc := newService(client, ReportPolling{MaxAttempts: 3, InitialBackoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.FetchCredentialReport(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchIdentityData(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	used := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	client := &mockIAMClient{
		users:      []string{"alice", "bob"},
		userPol:    map[string][]string{"alice": {"AdministratorAccess"}},
		userGroups: map[string][]string{"bob": {"admins", "devs"}},
		groups:     map[string][]string{"admins": {"AdministratorAccess"}, "devs": nil},
		keys: map[string][]types.AccessKeyMetadata{
			"alice": {{AccessKeyId: aws.String("AKIA1"), Status: types.StatusTypeActive, CreateDate: aws.Time(created)}},
			"bob":   {{AccessKeyId: aws.String("AKIA2"), Status: types.StatusTypeInactive, CreateDate: aws.Time(created)}},
		},
		lastUsed: map[string]time.Time{"AKIA1": used},
	}
	svc, _ := newTestService(client, 1)
	ctx := context.Background()

	users, err := svc.FetchUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []snapshot.RawUser{
		{Name: "alice", ARN: "arn:aws:iam::111111111111:user/alice"},
		{Name: "bob", ARN: "arn:aws:iam::111111111111:user/bob"},
	}, users)

	policies, err := svc.FetchUserPolicies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AdministratorAccess"}, policies["alice"])
	assert.Empty(t, policies["bob"])

	memberships, err := svc.FetchUserGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"admins", "devs"}, memberships["bob"])

	groups, err := svc.FetchGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "admins", groups[0].Name)
	assert.Equal(t, []string{"AdministratorAccess"}, groups[0].AttachedPolicies)

	keys, err := svc.FetchAccessKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "alice", keys[0].UserName)
	assert.Equal(t, "Active", keys[0].Status)
	require.NotNil(t, keys[0].LastUsedDate)
	assert.Equal(t, used, *keys[0].LastUsedDate)
	assert.Nil(t, keys[1].LastUsedDate)
	assert.Equal(t, "Inactive", keys[1].Status)
}
