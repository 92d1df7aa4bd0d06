package policy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thirukguru/aws-posture/service/finding"
)

//go:embed default_policy.yaml
var defaultPolicyYAML []byte

var severityRank = map[string]int{
	finding.SeverityCritical: 5,
	finding.SeverityHigh:     4,
	finding.SeverityMedium:   3,
	finding.SeverityLow:      2,
	finding.SeverityInfo:     1,
}

// Default returns the embedded policy.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultPolicyYAML, &cfg); err != nil {
		panic("failed to parse embedded default policy: " + err.Error())
	}
	return &cfg
}

// Load returns the embedded policy overlaid with the file at path. Keys
// missing from the file keep their default value. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}

	return cfg, nil
}

// Apply overlays non-zero overrides onto c.
func (c *Config) Apply(o Overrides) {
	if o.RotationWindowDays != 0 {
		c.RotationWindowDays = o.RotationWindowDays
	}
	if len(o.CriticalPorts) > 0 {
		c.CriticalPorts = append([]int32(nil), o.CriticalPorts...)
	}
	if len(o.AdminPolicyNames) > 0 {
		c.AdminPolicyNames = append([]string(nil), o.AdminPolicyNames...)
	}
	if o.FailOnSeverity != "" {
		c.FailOnSeverity = o.FailOnSeverity
	}
}

// Validate checks the policy is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.RotationWindowDays <= 0 {
		errs = append(errs, fmt.Errorf("rotation_window_days must be positive, got %d", c.RotationWindowDays))
	}
	if len(c.CriticalPorts) == 0 {
		errs = append(errs, errors.New("critical_ports must not be empty"))
	}
	for _, p := range c.CriticalPorts {
		if p < 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("critical port %d out of range", p))
		}
	}
	if len(c.AdminPolicyNames) == 0 {
		errs = append(errs, errors.New("admin_policy_names must not be empty"))
	}
	for _, name := range c.AdminPolicyNames {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("admin_policy_names contains an empty name"))
			break
		}
	}
	if c.FailOnSeverity != "" {
		if _, ok := severityRank[strings.ToUpper(c.FailOnSeverity)]; !ok {
			errs = append(errs, fmt.Errorf("unknown fail_on_severity %q", c.FailOnSeverity))
		}
	}
	return errors.Join(errs...)
}

// RotationWindow converts the configured days to a duration.
func (c *Config) RotationWindow() time.Duration {
	return time.Duration(c.RotationWindowDays) * 24 * time.Hour
}

// ShouldFail reports whether any finding reaches the configured
// fail_on_severity threshold. It is false when no threshold is set.
func (c *Config) ShouldFail(findings []finding.Finding) bool {
	if c == nil || c.FailOnSeverity == "" {
		return false
	}
	threshold, ok := severityRank[strings.ToUpper(c.FailOnSeverity)]
	if !ok {
		return false
	}
	for _, f := range findings {
		if severityRank[f.Severity()] >= threshold {
			return true
		}
	}
	return false
}
