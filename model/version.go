package model

import "fmt"

// VersionInfo contains build-time metadata about the binary.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// String renders the version block printed by --version.
func (v VersionInfo) String() string {
	return fmt.Sprintf("aws-posture version %s\ncommit: %s\nbuilt at: %s", orDev(v.Version), orDev(v.Commit), orDev(v.Date))
}

func orDev(s string) string {
	if s == "" {
		return "dev"
	}
	return s
}
