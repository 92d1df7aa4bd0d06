// Package policy loads the audit policy: rotation window, critical ports,
// admin policy names and the optional severity gate.
package policy

// Config is the audit policy.
type Config struct {
	RotationWindowDays int      `yaml:"rotation_window_days" json:"rotation_window_days"`
	CriticalPorts      []int32  `yaml:"critical_ports" json:"critical_ports"`
	AdminPolicyNames   []string `yaml:"admin_policy_names" json:"admin_policy_names"`
	FailOnSeverity     string   `yaml:"fail_on_severity" json:"fail_on_severity,omitempty"`
}

// Overrides carries command line values. Zero values leave the loaded
// policy untouched.
type Overrides struct {
	RotationWindowDays int
	CriticalPorts      []int32
	AdminPolicyNames   []string
	FailOnSeverity     string
}
