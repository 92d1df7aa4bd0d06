// Package orchestrator runs an audit end to end: collect, build the identity
// snapshot, evaluate, render, then record.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thirukguru/aws-posture/model"
	"github.com/thirukguru/aws-posture/service/auditlog"
	"github.com/thirukguru/aws-posture/service/exposure"
	"github.com/thirukguru/aws-posture/service/finding"
	"github.com/thirukguru/aws-posture/service/hygiene"
	"github.com/thirukguru/aws-posture/service/output"
	"github.com/thirukguru/aws-posture/service/policy"
	"github.com/thirukguru/aws-posture/service/privilege"
	"github.com/thirukguru/aws-posture/service/provider"
	"github.com/thirukguru/aws-posture/service/snapshot"
	"github.com/thirukguru/aws-posture/service/storage"
	"github.com/thirukguru/aws-posture/shared/logger"
)

const unknownAccount = "unknown"

// NewService creates a new orchestrator service. storageService may be nil
// when history is not requested.
func NewService(
	prov provider.Provider,
	accounts AccountResolver,
	outputService output.Service,
	storageService storage.Service,
	versionInfo model.VersionInfo,
	log *zap.Logger,
) Service {
	return &service{
		provider:       prov,
		accounts:       accounts,
		outputService:  outputService,
		storageService: storageService,
		versionInfo:    versionInfo,
		log:            logger.OrNop(log),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Orchestrate(ctx context.Context, flags model.Flags) error {
	if flags.Version {
		return s.versionWorkflow()
	}

	return s.auditWorkflow(ctx, flags)
}

func (s *service) versionWorkflow() error {
	s.outputService.StopSpinner()

	fmt.Println(s.versionInfo.String())

	return nil
}

// loadPolicy resolves the effective policy: embedded defaults, then the
// policy file, then command line overrides.
func loadPolicy(flags model.Flags) (*policy.Config, error) {
	cfg, err := policy.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	cfg.Apply(policy.Overrides{
		RotationWindowDays: flags.RotationDays,
		CriticalPorts:      flags.CriticalPorts,
		AdminPolicyNames:   flags.AdminPolicies,
		FailOnSeverity:     flags.FailOn,
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audit policy: %w", err)
	}

	return cfg, nil
}

func (s *service) auditWorkflow(ctx context.Context, flags model.Flags) error {
	startedAt := s.now()

	cfg, err := loadPolicy(flags)
	if err != nil {
		return err
	}

	scope := provider.Scope{
		Identity: flags.Enabled(model.CheckIdentity) || flags.Enabled(model.CheckHygiene),
		Network:  flags.Enabled(model.CheckNetwork),
	}

	accountID := s.resolveAccount(ctx, flags)

	inv, err := provider.Collect(ctx, s.provider, scope, s.log)
	if err != nil {
		s.outputService.StopSpinner()
		return fmt.Errorf("failed to collect account data: %w", err)
	}

	var (
		findings    []finding.Finding
		inputErrors []string
		notes       []string
	)

	if scope.Identity {
		snap, errs := snapshot.Build(inv.RawInput(), snapshot.WithLogger(s.log))
		if len(errs) > 0 {
			inputErrors = errorStrings(errs)
			if !flags.BestEffort {
				s.outputService.StopSpinner()
				for _, msg := range inputErrors {
					fmt.Fprintln(os.Stderr, msg)
				}
				return fmt.Errorf("refusing to evaluate %d malformed input record(s), rerun with --best-effort to evaluate the rest: %w",
					len(errs), errors.Join(errs...))
			}
			s.log.Warn("evaluating despite malformed input", zap.Int("errors", len(errs)))
		}

		for _, n := range snap.Notes() {
			notes = append(notes, n.String())
		}

		if flags.Enabled(model.CheckIdentity) {
			findings = append(findings, privilege.Resolve(snap, cfg.AdminPolicyNames)...)
		}
		if flags.Enabled(model.CheckHygiene) {
			findings = append(findings, hygiene.Evaluate(snap, startedAt, cfg.RotationWindow())...)
		}
	}

	if scope.Network {
		findings = append(findings, exposure.Evaluate(inv.SecurityGroupRules, inv.Instances, cfg.CriticalPorts)...)
	}

	scanID := uuid.NewString()
	s.log.Info("audit evaluated",
		zap.String("scan_id", scanID),
		zap.String("account_id", accountID),
		zap.Int("findings", len(findings)),
		zap.Int("input_errors", len(inputErrors)))

	s.outputService.StopSpinner()
	if err := s.outputService.RenderAudit(model.RenderAuditInput{
		AccountID:         accountID,
		Profile:           flags.Profile,
		ScanID:            scanID,
		GeneratedAt:       startedAt,
		ReportGeneratedAt: inv.ReportGeneratedAt(),
		Findings:          findings,
		InputErrors:       inputErrors,
		Notes:             notes,
	}); err != nil {
		return fmt.Errorf("failed to render audit: %w", err)
	}

	if err := s.appendAuditLog(ctx, flags, startedAt, scanID, findings); err != nil {
		return err
	}

	if err := s.persistScanIfEnabled(ctx, flags, cfg, scanID, accountID, startedAt, inv.ReportGeneratedAt(), len(inputErrors), findings); err != nil {
		return fmt.Errorf("failed to store audit: %w", err)
	}

	if cfg.ShouldFail(findings) {
		return fmt.Errorf("%w %s", ErrSeverityThreshold, strings.ToUpper(cfg.FailOnSeverity))
	}

	return nil
}

func (s *service) appendAuditLog(ctx context.Context, flags model.Flags, ts time.Time, scanID string, findings []finding.Finding) error {
	if flags.AuditLog == "" {
		return nil
	}

	sink, err := auditlog.Open(flags.AuditLog, auditlog.Format(flags.AuditLogFormat))
	if err != nil {
		return err
	}

	if err := sink.Append(ctx, auditlog.FromFindings(ts, scanID, findings)...); err != nil {
		_ = sink.Close()
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	return sink.Close()
}

// resolveAccount prefers --account-id, then the provider's own answer.
// Failure to resolve is not fatal; findings do not depend on it.
func (s *service) resolveAccount(ctx context.Context, flags model.Flags) string {
	if flags.AccountID != "" {
		return flags.AccountID
	}
	if s.accounts == nil {
		return unknownAccount
	}

	id, err := s.accounts.AccountID(ctx)
	if err != nil {
		s.log.Warn("could not resolve account id", zap.Error(err))
		return unknownAccount
	}
	return id
}

// Inventory lists collected resources without evaluating them. Malformed
// records are logged and skipped.
func (s *service) Inventory(ctx context.Context, flags model.Flags) error {
	cfg, err := loadPolicy(flags)
	if err != nil {
		return err
	}

	accountID := s.resolveAccount(ctx, flags)

	inv, err := provider.Collect(ctx, s.provider, provider.Scope{Identity: true, Network: true}, s.log)
	if err != nil {
		s.outputService.StopSpinner()
		return fmt.Errorf("failed to collect account data: %w", err)
	}

	snap, errs := snapshot.Build(inv.RawInput(), snapshot.WithLogger(s.log))
	for _, e := range errs {
		s.log.Warn("skipping malformed record", zap.Error(e))
	}

	s.outputService.StopSpinner()
	return s.outputService.RenderInventory(model.RenderInventoryInput{
		AccountID:          accountID,
		ReportGeneratedAt:  inv.ReportGeneratedAt(),
		Identities:         snap.Identities(),
		AccessKeys:         snap.AccessKeys(),
		AdminGroups:        privilege.AdminGroups(snap, cfg.AdminPolicyNames),
		Groups:             snap.Groups(),
		SecurityGroupRules: inv.SecurityGroupRules,
		Instances:          inv.Instances,
	})
}

// ExportReport writes the raw credential report CSV to path and returns the
// time the report was generated.
func (s *service) ExportReport(ctx context.Context, path string) (time.Time, error) {
	report, err := s.provider.FetchCredentialReport(ctx)
	s.outputService.StopSpinner()
	if err != nil {
		return time.Time{}, &provider.ResourceFetchFailedError{Kind: provider.KindCredentialReport, Err: err}
	}
	if report == nil || len(report.Raw) == 0 {
		return time.Time{}, errors.New("credential report is empty")
	}

	if err := os.WriteFile(path, report.Raw, 0o600); err != nil {
		return time.Time{}, fmt.Errorf("failed to write credential report %s: %w", path, err)
	}

	return report.GeneratedAt, nil
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
