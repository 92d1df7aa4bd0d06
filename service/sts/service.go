// Package awssts resolves the caller's account through AWS STS.
package awssts

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ErrNoAccount is returned when STS answers without an account id.
var ErrNoAccount = errors.New("caller identity has no account")

// NewService creates a new STS service.
func NewService(awsconfig aws.Config) Service {
	return &service{client: sts.NewFromConfig(awsconfig)}
}

func (s *service) GetCallerIdentity(ctx context.Context) (*sts.GetCallerIdentityOutput, error) {
	return s.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
}

// AccountID returns the account the loaded credentials belong to.
func (s *service) AccountID(ctx context.Context) (string, error) {
	out, err := s.GetCallerIdentity(ctx)
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	if out == nil || aws.ToString(out.Account) == "" {
		return "", ErrNoAccount
	}
	return aws.ToString(out.Account), nil
}
