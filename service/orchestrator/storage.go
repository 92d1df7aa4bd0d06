package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/thirukguru/aws-posture/model"
	"github.com/thirukguru/aws-posture/service/finding"
	"github.com/thirukguru/aws-posture/service/policy"
	"github.com/thirukguru/aws-posture/service/storage"
)

var checkCategories = map[string][]finding.Category{
	model.CheckIdentity: {finding.AdminViaPolicy, finding.AdminViaGroup},
	model.CheckHygiene:  {finding.NoMfa, finding.StalePassword, finding.StaleAccessKey, finding.UnusedAccessKey},
	model.CheckNetwork:  {finding.OpenCriticalPort, finding.PublicInstance, finding.MissingKeyPair},
}

// evaluatedCategories lists the categories the selected checks can
// produce, so history only resolves what this scan actually looked at.
func evaluatedCategories(flags model.Flags) []string {
	var out []string
	for _, check := range model.AllChecks {
		if !flags.Enabled(check) {
			continue
		}
		for _, c := range checkCategories[check] {
			out = append(out, string(c))
		}
	}
	return out
}

func (s *service) persistScanIfEnabled(
	ctx context.Context,
	flags model.Flags,
	cfg *policy.Config,
	scanID string,
	accountID string,
	startedAt time.Time,
	reportGeneratedAt time.Time,
	inputErrorCount int,
	findings []finding.Finding,
) error {
	if s.storageService == nil || !flags.Store {
		return nil
	}

	stored := make([]storage.Finding, 0, len(findings))
	for _, f := range findings {
		stored = append(stored, storage.Finding{
			Hash:     f.Hash(),
			Category: string(f.Category),
			Severity: f.Severity(),
			Subject:  f.Subject,
			Detail:   f.Detail,
		})
	}

	policyJSON, _ := json.Marshal(cfg)
	_, err := s.storageService.SaveScan(ctx, storage.SaveScanInput{
		ScanUUID:          scanID,
		AccountID:         accountID,
		StartedAt:         startedAt,
		ReportGeneratedAt: reportGeneratedAt,
		DurationSec:       int64(s.now().Sub(startedAt).Seconds()),
		Version:           s.versionInfo.Version,
		Profile:           flags.Profile,
		PolicyJSON:        string(policyJSON),
		InputErrorCount:   inputErrorCount,
		Categories:        evaluatedCategories(flags),
		Findings:          stored,
	})
	return err
}
