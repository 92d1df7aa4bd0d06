package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/thirukguru/aws-posture/model"
	"github.com/thirukguru/aws-posture/service/output"
	"github.com/thirukguru/aws-posture/service/provider"
	"github.com/thirukguru/aws-posture/service/storage"
)

// ErrSeverityThreshold is returned after a completed audit whose findings
// reach the policy's fail_on_severity.
var ErrSeverityThreshold = errors.New("findings at or above severity threshold")

// AccountResolver names the account a provider reads from.
type AccountResolver interface {
	AccountID(ctx context.Context) (string, error)
}

type service struct {
	provider       provider.Provider
	accounts       AccountResolver
	outputService  output.Service
	storageService storage.Service
	versionInfo    model.VersionInfo
	log            *zap.Logger
	now            func() time.Time
}

// Service is the interface for orchestrator service.
type Service interface {
	Orchestrate(ctx context.Context, flags model.Flags) error
	Inventory(ctx context.Context, flags model.Flags) error
	ExportReport(ctx context.Context, path string) (time.Time, error)
}
