// Package main is the entry point for the aws-posture application.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/thirukguru/aws-posture/model"
	"github.com/thirukguru/aws-posture/service/flag"
	"github.com/thirukguru/aws-posture/service/orchestrator"
	"github.com/thirukguru/aws-posture/service/output"
	"github.com/thirukguru/aws-posture/service/storage"
	"github.com/thirukguru/aws-posture/shared/banner"
	"github.com/thirukguru/aws-posture/shared/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type runMode int

const (
	modeAudit runMode = iota
	modeInventory
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	mode := modeAudit
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "db", "history", "dashboard":
			return runStorageCommand(os.Args[1], os.Args[2:])
		case "report":
			return runReportCommand(os.Args[2:])
		case "inventory":
			mode = modeInventory
			os.Args = append(os.Args[:1], os.Args[2:]...)
		}
	}

	flagService := flag.NewService()
	flags, err := flagService.GetParsedFlags()
	if err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	log, err := logger.New(flags.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	versionInfo := model.VersionInfo{Version: version, Commit: commit, Date: date}

	if flags.Version {
		outputService := output.NewService(flags.Output)
		orchestratorService := orchestrator.NewService(nil, nil, outputService, nil, versionInfo, log)
		return orchestratorService.Orchestrate(context.Background(), flags)
	}

	if flags.Output != "json" {
		banner.DrawBannerTitle()
	}

	var storageService storage.Service
	if flags.Store || flags.Trends || flags.Compare || flags.ExportJSON != "" || flags.ExportCSV != "" {
		storageService, err = storage.NewService(flags.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer storageService.Close()
	}

	if flags.Trends {
		accountID := flags.AccountID
		if accountID == "" {
			accountID, err = getAccountIDForFlags(flags, log)
			if err != nil {
				return fmt.Errorf("failed to get account ID for trends: %w", err)
			}
		}
		return runTrendWorkflow(storageService, trendOptions{
			TrendDays:  flags.TrendDays,
			Compare:    flags.Compare,
			ExportJSON: flags.ExportJSON,
			ExportCSV:  flags.ExportCSV,
			AccountID:  accountID,
		})
	}

	return runScan(mode, flags, versionInfo, storageService, log)
}

func logFields(flags model.Flags) []zap.Field {
	return []zap.Field{
		zap.String("profile", flags.Profile),
		zap.String("region", flags.Region),
		zap.Strings("checks", flags.Checks),
		zap.Bool("fixture", flags.Fixture != ""),
	}
}
