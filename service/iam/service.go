package iam

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/smithy-go"

	"github.com/thirukguru/aws-posture/service/provider"
	"github.com/thirukguru/aws-posture/service/snapshot"
)

// NewService creates a new IAM service.
func NewService(cfg aws.Config, poll ReportPolling) Service {
	return newService(iam.NewFromConfig(cfg), poll)
}

func newService(client IAMClientAPI, poll ReportPolling) *service {
	if poll.MaxAttempts <= 0 {
		poll = DefaultReportPolling
	}
	return &service{client: client, poll: poll, sleep: sleepCtx}
}

// FetchCredentialReport asks IAM to generate a credential report and polls
// until it is available, backing off exponentially between attempts.
func (s *service) FetchCredentialReport(ctx context.Context) (*provider.CredentialReport, error) {
	backoff := s.poll.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= s.poll.MaxAttempts; attempt++ {
		report, err := s.tryFetchCredentialReport(ctx)
		if err == nil {
			return report, nil
		}
		if !errors.Is(err, ErrReportNotReadyYet) {
			return nil, &ReportGenerationFailedError{Attempts: attempt, Code: errorCode(err), Err: err}
		}
		lastErr = err

		if attempt == s.poll.MaxAttempts {
			break
		}
		if err := s.sleep(ctx, backoff); err != nil {
			return nil, &ReportGenerationFailedError{Attempts: attempt, Err: err}
		}
		backoff *= 2
		if s.poll.MaxBackoff > 0 && backoff > s.poll.MaxBackoff {
			backoff = s.poll.MaxBackoff
		}
	}

	return nil, &ReportGenerationFailedError{Attempts: s.poll.MaxAttempts, Err: lastErr}
}

// tryFetchCredentialReport makes one generate/get round trip. It returns
// ErrReportNotReadyYet while generation is still running.
func (s *service) tryFetchCredentialReport(ctx context.Context) (*provider.CredentialReport, error) {
	gen, err := s.client.GenerateCredentialReport(ctx, &iam.GenerateCredentialReportInput{})
	if err != nil {
		return nil, fmt.Errorf("generating credential report: %w", err)
	}
	if gen.State != types.ReportStateTypeComplete {
		return nil, fmt.Errorf("report state %s: %w", gen.State, ErrReportNotReadyYet)
	}

	out, err := s.client.GetCredentialReport(ctx, &iam.GetCredentialReportInput{})
	if err != nil {
		var notReady *types.CredentialReportNotReadyException
		var notPresent *types.CredentialReportNotPresentException
		var expired *types.CredentialReportExpiredException
		if errors.As(err, &notReady) || errors.As(err, &notPresent) || errors.As(err, &expired) {
			return nil, fmt.Errorf("%s: %w", errorCode(err), ErrReportNotReadyYet)
		}
		return nil, fmt.Errorf("getting credential report: %w", err)
	}

	rows, err := ParseCredentialReport(out.Content)
	if err != nil {
		return nil, err
	}

	report := &provider.CredentialReport{Rows: rows, Raw: out.Content}
	if out.GeneratedTime != nil {
		report.GeneratedAt = out.GeneratedTime.UTC()
	}
	return report, nil
}

// ParseCredentialReport reads the CSV credential report. Columns are located
// by header name, so column order and extra columns do not matter.
func ParseCredentialReport(content []byte) ([]snapshot.CredentialReportRow, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parsing credential report header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[col] = i
	}
	if _, ok := colIndex["user"]; !ok {
		return nil, errors.New("credential report has no user column")
	}

	var rows []snapshot.CredentialReportRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing credential report: %w", err)
		}
		rows = append(rows, snapshot.CredentialReportRow{
			User:                getCol(record, colIndex, "user"),
			ARN:                 getCol(record, colIndex, "arn"),
			MFAActive:           getCol(record, colIndex, "mfa_active"),
			PasswordLastChanged: getCol(record, colIndex, "password_last_changed"),
		})
	}

	return rows, nil
}

func getCol(row []string, colIndex map[string]int, name string) string {
	if idx, ok := colIndex[name]; ok && idx < len(row) {
		return row[idx]
	}
	return ""
}

// FetchUsers lists every IAM user live, so users created after the cached
// credential report are still audited.
func (s *service) FetchUsers(ctx context.Context) ([]snapshot.RawUser, error) {
	var users []snapshot.RawUser

	paginator := iam.NewListUsersPaginator(s.client, &iam.ListUsersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing users: %w", err)
		}
		for _, user := range page.Users {
			users = append(users, snapshot.RawUser{
				Name: aws.ToString(user.UserName),
				ARN:  aws.ToString(user.Arn),
			})
		}
	}

	return users, nil
}

func (s *service) listUserNames(ctx context.Context) ([]string, error) {
	var names []string

	paginator := iam.NewListUsersPaginator(s.client, &iam.ListUsersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing users: %w", err)
		}
		for _, user := range page.Users {
			names = append(names, aws.ToString(user.UserName))
		}
	}

	return names, nil
}

// FetchUserPolicies maps every user to its attached managed policy names.
func (s *service) FetchUserPolicies(ctx context.Context) (map[string][]string, error) {
	users, err := s.listUserNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(users))
	for _, user := range users {
		paginator := iam.NewListAttachedUserPoliciesPaginator(s.client, &iam.ListAttachedUserPoliciesInput{
			UserName: aws.String(user),
		})
		var policies []string
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("listing policies for user %s: %w", user, err)
			}
			for _, p := range page.AttachedPolicies {
				policies = append(policies, aws.ToString(p.PolicyName))
			}
		}
		out[user] = policies
	}

	return out, nil
}

// FetchUserGroups maps every user to the groups it belongs to.
func (s *service) FetchUserGroups(ctx context.Context) (map[string][]string, error) {
	users, err := s.listUserNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(users))
	for _, user := range users {
		paginator := iam.NewListGroupsForUserPaginator(s.client, &iam.ListGroupsForUserInput{
			UserName: aws.String(user),
		})
		var groups []string
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("listing groups for user %s: %w", user, err)
			}
			for _, g := range page.Groups {
				groups = append(groups, aws.ToString(g.GroupName))
			}
		}
		out[user] = groups
	}

	return out, nil
}

// FetchGroups lists every group with its attached managed policy names.
func (s *service) FetchGroups(ctx context.Context) ([]snapshot.RawGroup, error) {
	var groups []snapshot.RawGroup

	paginator := iam.NewListGroupsPaginator(s.client, &iam.ListGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing groups: %w", err)
		}
		for _, g := range page.Groups {
			name := aws.ToString(g.GroupName)
			policies, err := s.groupPolicies(ctx, name)
			if err != nil {
				return nil, err
			}
			groups = append(groups, snapshot.RawGroup{Name: name, AttachedPolicies: policies})
		}
	}

	return groups, nil
}

func (s *service) groupPolicies(ctx context.Context, group string) ([]string, error) {
	var policies []string

	paginator := iam.NewListAttachedGroupPoliciesPaginator(s.client, &iam.ListAttachedGroupPoliciesInput{
		GroupName: aws.String(group),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing policies for group %s: %w", group, err)
		}
		for _, p := range page.AttachedPolicies {
			policies = append(policies, aws.ToString(p.PolicyName))
		}
	}

	return policies, nil
}

// FetchAccessKeys lists every user's access keys joined with their last
// used date.
func (s *service) FetchAccessKeys(ctx context.Context) ([]snapshot.RawAccessKey, error) {
	users, err := s.listUserNames(ctx)
	if err != nil {
		return nil, err
	}

	var keys []snapshot.RawAccessKey
	for _, user := range users {
		paginator := iam.NewListAccessKeysPaginator(s.client, &iam.ListAccessKeysInput{
			UserName: aws.String(user),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("listing access keys for user %s: %w", user, err)
			}
			for _, key := range page.AccessKeyMetadata {
				raw := snapshot.RawAccessKey{
					UserName:    user,
					AccessKeyID: aws.ToString(key.AccessKeyId),
					Status:      string(key.Status),
				}
				if key.CreateDate != nil {
					raw.CreateDate = *key.CreateDate
				}

				lastUsed, err := s.client.GetAccessKeyLastUsed(ctx, &iam.GetAccessKeyLastUsedInput{
					AccessKeyId: key.AccessKeyId,
				})
				if err != nil {
					return nil, fmt.Errorf("getting last use of key %s: %w", raw.AccessKeyID, err)
				}
				if lastUsed.AccessKeyLastUsed != nil && lastUsed.AccessKeyLastUsed.LastUsedDate != nil {
					t := *lastUsed.AccessKeyLastUsed.LastUsedDate
					raw.LastUsedDate = &t
				}
				keys = append(keys, raw)
			}
		}
	}

	return keys, nil
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
