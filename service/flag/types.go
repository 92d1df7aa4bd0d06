package flag

import "github.com/thirukguru/aws-posture/model"

type service struct{}

// Service is the interface for CLI flag service.
type Service interface {
	GetParsedFlags() (model.Flags, error)
}

var (
	outputFormats   = map[string]bool{"table": true, "json": true}
	auditLogFormats = map[string]bool{"csv": true, "jsonl": true}
	knownChecks     = map[string]bool{
		model.CheckIdentity: true,
		model.CheckHygiene:  true,
		model.CheckNetwork:  true,
	}
)
