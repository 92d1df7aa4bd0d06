// Package awsconfig provides a service for loading AWS configuration.
package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// NewService creates a new AWS configuration service.
func NewService() Service {
	return &service{}
}

func (s *service) GetAWSCfg(ctx context.Context, region, profile string) (aws.Config, error) {
	// Role profiles with mfa_serial are assumed by hand; LoadDefaultConfig
	// otherwise signs with the wrong source credentials.
	if profile != "" {
		sharedCfg, err := loadSharedConfigProfile(ctx, profile)
		if err == nil && sharedCfg.RoleARN != "" && sharedCfg.MFASerial != "" {
			return s.loadConfigWithManualMFA(ctx, region, profile, sharedCfg)
		}
	}

	opts := retryOptions()
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	opts = append(opts, config.WithAssumeRoleCredentialOptions(func(options *stscreds.AssumeRoleOptions) {
		options.TokenProvider = stscreds.StdinTokenProvider
	}))

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS config: %w", err)
	}

	// Resolve credentials now so any MFA prompt happens before the spinner starts.
	if err := retrieveCredentials(ctx, cfg); err != nil {
		return aws.Config{}, fmt.Errorf("failed to retrieve credentials: %w", err)
	}

	return cfg, nil
}

// retryOptions makes IAM and EC2 list calls back off adaptively when the
// account is throttled.
func retryOptions() []func(*config.LoadOptions) error {
	return []func(*config.LoadOptions) error{
		config.WithRetryMaxAttempts(maxRetryAttempts),
		config.WithRetryer(func() aws.Retryer {
			return retry.NewAdaptiveMode(func(o *retry.AdaptiveModeOptions) {
				o.StandardOptions = append(o.StandardOptions, func(so *retry.StandardOptions) {
					so.MaxBackoff = maxRetryBackoff
				})
			})
		}),
	}
}

func retrieveCredentials(ctx context.Context, cfg aws.Config) error {
	if cfg.Credentials == nil {
		return nil
	}
	_, err := cfg.Credentials.Retrieve(ctx)
	return err
}

func (s *service) loadConfigWithManualMFA(ctx context.Context, region, profile string, sharedCfg config.SharedConfig) (aws.Config, error) {
	if sharedCfg.RoleARN == "" || sharedCfg.MFASerial == "" {
		return aws.Config{}, fmt.Errorf("profile %s missing role_arn or mfa_serial", profile)
	}

	sourceProfile := sharedCfg.SourceProfileName
	if sourceProfile == "" {
		sourceProfile = "default"
	}

	targetRegion := region
	if targetRegion == "" {
		targetRegion = sharedCfg.Region
	}

	// AssumeRole needs a region to resolve the STS endpoint.
	stsRegion := targetRegion
	if stsRegion == "" {
		stsRegion = fallbackRegion
	}

	baseCfg, err := config.LoadDefaultConfig(ctx,
		config.WithSharedConfigProfile(sourceProfile),
		config.WithRegion(stsRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load source profile config: %w", err)
	}

	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(baseCfg), sharedCfg.RoleARN, func(o *stscreds.AssumeRoleOptions) {
		o.SerialNumber = aws.String(sharedCfg.MFASerial)
		o.TokenProvider = stscreds.StdinTokenProvider
	})

	finalOpts := retryOptions()
	finalOpts = append(finalOpts, config.WithCredentialsProvider(aws.NewCredentialsCache(provider)))
	if targetRegion != "" {
		finalOpts = append(finalOpts, config.WithRegion(targetRegion))
	}

	finalCfg, err := config.LoadDefaultConfig(ctx, finalOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load final config with mfa: %w", err)
	}

	if err := retrieveCredentials(ctx, finalCfg); err != nil {
		return aws.Config{}, fmt.Errorf("failed to retrieve credentials (MFA might have failed): %w", err)
	}

	return finalCfg, nil
}
