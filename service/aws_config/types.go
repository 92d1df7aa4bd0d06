package awsconfig

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

const (
	maxRetryAttempts = 5
	maxRetryBackoff  = 30 * time.Second
	fallbackRegion   = "us-east-1"
)

// loadSharedConfigProfile is a variable to allow mocking in tests.
var loadSharedConfigProfile = config.LoadSharedConfigProfile

type service struct{}

// Service loads AWS configuration for the live collectors.
type Service interface {
	// GetAWSCfg resolves credentials for profile, prompting for an MFA
	// token when the profile assumes a role with mfa_serial.
	GetAWSCfg(ctx context.Context, region string, profile string) (aws.Config, error)
}
