// Package iam collects identity data from AWS IAM: the credential report,
// managed policy attachments, group memberships and access keys.
package iam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/thirukguru/aws-posture/service/provider"
)

// IAMClientAPI is the subset of the IAM client used by the service. The
// embedded paginator interfaces let tests hand in fakes.
type IAMClientAPI interface {
	iam.ListUsersAPIClient
	iam.ListGroupsAPIClient
	iam.ListAttachedUserPoliciesAPIClient
	iam.ListAttachedGroupPoliciesAPIClient
	iam.ListGroupsForUserAPIClient
	iam.ListAccessKeysAPIClient
	GetAccessKeyLastUsed(ctx context.Context, params *iam.GetAccessKeyLastUsedInput, optFns ...func(*iam.Options)) (*iam.GetAccessKeyLastUsedOutput, error)
	GenerateCredentialReport(ctx context.Context, params *iam.GenerateCredentialReportInput, optFns ...func(*iam.Options)) (*iam.GenerateCredentialReportOutput, error)
	GetCredentialReport(ctx context.Context, params *iam.GetCredentialReportInput, optFns ...func(*iam.Options)) (*iam.GetCredentialReportOutput, error)
}

// ReportPolling bounds the credential report generate/poll loop.
type ReportPolling struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultReportPolling waits up to roughly two minutes.
var DefaultReportPolling = ReportPolling{
	MaxAttempts:    8,
	InitialBackoff: 2 * time.Second,
	MaxBackoff:     30 * time.Second,
}

// ErrReportNotReadyYet means AWS is still generating the credential report.
var ErrReportNotReadyYet = errors.New("credential report not ready yet")

// ReportGenerationFailedError is returned when the report could not be
// obtained: AWS rejected the request or the attempts ran out.
type ReportGenerationFailedError struct {
	Attempts int
	Code     string
	Err      error
}

func (e *ReportGenerationFailedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("credential report generation failed after %d attempt(s) (%s): %v", e.Attempts, e.Code, e.Err)
	}
	return fmt.Sprintf("credential report generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ReportGenerationFailedError) Unwrap() error {
	return e.Err
}

type service struct {
	client IAMClientAPI
	poll   ReportPolling
	sleep  func(ctx context.Context, d time.Duration) error
}

// Service is the live IAM identity provider.
type Service interface {
	provider.IdentityProvider
}
