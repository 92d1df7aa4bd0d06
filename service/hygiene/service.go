// Package hygiene classifies credential hygiene: MFA absence and password
// or access key age against a rotation window.
package hygiene

import (
	"strconv"
	"time"

	"github.com/thirukguru/aws-posture/service/finding"
	"github.com/thirukguru/aws-posture/service/snapshot"
)

// DefaultRotationWindow is the age past which a credential is stale.
const DefaultRotationWindow = 60 * 24 * time.Hour

// Evaluate checks every identity and access key in snap. now is supplied
// by the caller so results are reproducible. Ages are compared strictly:
// a credential exactly window old is not stale.
//
// Per identity the order is NoMfa, StalePassword, then its keys in input
// order (StaleAccessKey before UnusedAccessKey). Keys are evaluated
// whatever their status; the status is carried in the finding detail.
// A key that was never used only ever shows up as StaleAccessKey.
func Evaluate(snap *snapshot.Snapshot, now time.Time, window time.Duration) []finding.Finding {
	if snap == nil {
		return nil
	}
	if window <= 0 {
		window = DefaultRotationWindow
	}

	var findings []finding.Finding
	for _, id := range snap.Identities() {
		if !id.HasMFA {
			findings = append(findings, finding.New(finding.NoMfa, id.Name))
		}

		if id.PasswordLastChanged != nil && now.Sub(*id.PasswordLastChanged) > window {
			findings = append(findings, finding.New(finding.StalePassword, id.Name,
				finding.KeyChanged, id.PasswordLastChanged.Format(time.RFC3339),
				finding.KeyAgeDays, days(now.Sub(*id.PasswordLastChanged))))
		}

		for _, key := range snap.KeysFor(id.Name) {
			if age := now.Sub(key.CreatedAt); age > window {
				findings = append(findings, finding.New(finding.StaleAccessKey, id.Name,
					finding.KeyAccessID, key.KeyID,
					finding.KeyStatus, string(key.Status),
					finding.KeyCreated, key.CreatedAt.Format(time.RFC3339),
					finding.KeyAgeDays, days(age)))
			}
			if key.LastUsedAt == nil {
				continue
			}
			if idle := now.Sub(*key.LastUsedAt); idle > window {
				findings = append(findings, finding.New(finding.UnusedAccessKey, id.Name,
					finding.KeyAccessID, key.KeyID,
					finding.KeyStatus, string(key.Status),
					finding.KeyLastUsed, key.LastUsedAt.Format(time.RFC3339),
					finding.KeyAgeDays, days(idle)))
			}
		}
	}

	return findings
}

func days(d time.Duration) string {
	return strconv.Itoa(int(d.Hours() / 24))
}
