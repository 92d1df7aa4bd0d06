package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/thirukguru/aws-posture/model"
	awsconfig "github.com/thirukguru/aws-posture/service/aws_config"
	"github.com/thirukguru/aws-posture/service/ec2security"
	"github.com/thirukguru/aws-posture/service/fixture"
	"github.com/thirukguru/aws-posture/service/iam"
	"github.com/thirukguru/aws-posture/service/orchestrator"
	"github.com/thirukguru/aws-posture/service/output"
	"github.com/thirukguru/aws-posture/service/provider"
	"github.com/thirukguru/aws-posture/service/storage"
	awssts "github.com/thirukguru/aws-posture/service/sts"
	"github.com/thirukguru/aws-posture/shared/spinner"
)

const spinnerSuffix = "Auditing AWS identity and network posture..."

// source is where account data comes from: a fixture file or live AWS.
type source struct {
	provider provider.Provider
	accounts orchestrator.AccountResolver
}

func newSource(ctx context.Context, flags model.Flags) (source, error) {
	if flags.Fixture != "" {
		p, err := fixture.Load(flags.Fixture)
		if err != nil {
			return source{}, err
		}
		return source{provider: p, accounts: p}, nil
	}

	cfgService := awsconfig.NewService()
	awsCfg, err := cfgService.GetAWSCfg(ctx, flags.Region, flags.Profile)
	if err != nil {
		return source{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return source{
		provider: provider.Compose(
			iam.NewService(awsCfg, reportPolling(flags.ReportAttempts)),
			ec2security.NewService(awsCfg),
		),
		accounts: awssts.NewService(awsCfg),
	}, nil
}

// reportPolling applies --report-attempts to the default poll schedule.
func reportPolling(attempts int) iam.ReportPolling {
	poll := iam.DefaultReportPolling
	if attempts > 0 {
		poll.MaxAttempts = attempts
	}
	return poll
}

func runScan(mode runMode, flags model.Flags, versionInfo model.VersionInfo, storageService storage.Service, log *zap.Logger) error {
	ctx := context.Background()

	src, err := newSource(ctx, flags)
	if err != nil {
		return err
	}

	if flags.Output != "json" {
		spinner.StartSpinner(spinnerSuffix)
		defer spinner.StopSpinner()
	}

	log.Debug("starting scan", logFields(flags)...)

	orchestratorService := orchestrator.NewService(
		src.provider,
		src.accounts,
		output.NewService(flags.Output),
		storageService,
		versionInfo,
		log,
	)

	if mode == modeInventory {
		if err := orchestratorService.Inventory(ctx, flags); err != nil {
			return fmt.Errorf("inventory failed: %w", err)
		}
		return nil
	}

	if err := orchestratorService.Orchestrate(ctx, flags); err != nil {
		return fmt.Errorf("posture audit failed: %w", err)
	}
	return nil
}

func getAccountIDForFlags(flags model.Flags, log *zap.Logger) (string, error) {
	ctx := context.Background()
	src, err := newSource(ctx, flags)
	if err != nil {
		return "", err
	}
	id, err := src.accounts.AccountID(ctx)
	if err != nil {
		return "", err
	}
	log.Debug("resolved account for trends", zap.String("account_id", id))
	return id, nil
}
