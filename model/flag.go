package model

// Flags represents the command line flags.
type Flags struct {
	Profile        string
	Region         string
	Version        bool
	Output         string
	Checks         []string
	ConfigPath     string
	RotationDays   int
	CriticalPorts  []int32
	AdminPolicies  []string
	FailOn         string
	Fixture        string
	AuditLog       string
	AuditLogFormat string
	BestEffort     bool
	LogLevel       string
	ReportAttempts int
	AccountID      string
	Store          bool
	DBPath         string
	Trends         bool
	TrendDays      int
	Compare        bool
	ExportJSON     string
	ExportCSV      string
}

// Check names accepted by --checks.
const (
	CheckIdentity = "identity"
	CheckHygiene  = "hygiene"
	CheckNetwork  = "network"
)

// AllChecks is the default --checks value.
var AllChecks = []string{CheckIdentity, CheckHygiene, CheckNetwork}

// Enabled reports whether check was selected.
func (f Flags) Enabled(check string) bool {
	if len(f.Checks) == 0 {
		return true
	}
	for _, c := range f.Checks {
		if c == check {
			return true
		}
	}
	return false
}
