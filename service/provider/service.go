package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thirukguru/aws-posture/service/snapshot"
)

type composite struct {
	IdentityProvider
	NetworkProvider
}

// Compose joins separate identity and network sources into one Provider.
func Compose(identity IdentityProvider, network NetworkProvider) Provider {
	return composite{IdentityProvider: identity, NetworkProvider: network}
}

// Collect fetches every resource kind in scope concurrently. The first
// failure cancels the remaining fetches and is returned as a
// *ResourceFetchFailedError; no inventory is returned in that case.
func Collect(ctx context.Context, p Provider, scope Scope, log *zap.Logger) (*Inventory, error) {
	if log == nil {
		log = zap.NewNop()
	}

	inv := &Inventory{}
	g, groupCtx := errgroup.WithContext(ctx)

	fetch := func(kind Kind, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			start := time.Now()
			n, err := fn(groupCtx)
			if err != nil {
				log.Warn("fetch failed", zap.String("kind", string(kind)), zap.Error(err))
				return &ResourceFetchFailedError{Kind: kind, Err: err}
			}
			log.Info("fetched resources",
				zap.String("kind", string(kind)),
				zap.Int("count", n),
				zap.Duration("took", time.Since(start)))
			return nil
		})
	}

	if scope.Identity {
		fetch(KindCredentialReport, func(ctx context.Context) (int, error) {
			report, err := p.FetchCredentialReport(ctx)
			if err != nil {
				return 0, err
			}
			if report == nil {
				return 0, errors.New("provider returned no credential report")
			}
			inv.Report = report
			return len(report.Rows), nil
		})
		fetch(KindUsers, func(ctx context.Context) (int, error) {
			var err error
			inv.Users, err = p.FetchUsers(ctx)
			return len(inv.Users), err
		})
		fetch(KindUserPolicies, func(ctx context.Context) (int, error) {
			var err error
			inv.UserPolicies, err = p.FetchUserPolicies(ctx)
			return len(inv.UserPolicies), err
		})
		fetch(KindUserGroups, func(ctx context.Context) (int, error) {
			var err error
			inv.UserGroups, err = p.FetchUserGroups(ctx)
			return len(inv.UserGroups), err
		})
		fetch(KindGroups, func(ctx context.Context) (int, error) {
			var err error
			inv.Groups, err = p.FetchGroups(ctx)
			return len(inv.Groups), err
		})
		fetch(KindAccessKeys, func(ctx context.Context) (int, error) {
			var err error
			inv.AccessKeys, err = p.FetchAccessKeys(ctx)
			return len(inv.AccessKeys), err
		})
	}

	if scope.Network {
		fetch(KindSecurityGroupRules, func(ctx context.Context) (int, error) {
			var err error
			inv.SecurityGroupRules, err = p.FetchSecurityGroupRules(ctx)
			return len(inv.SecurityGroupRules), err
		})
		fetch(KindInstances, func(ctx context.Context) (int, error) {
			var err error
			inv.Instances, err = p.FetchInstances(ctx)
			return len(inv.Instances), err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	inv.CollectedAt = time.Now().UTC()
	return inv, nil
}

// RawInput adapts the identity half of the inventory for snapshot.Build.
func (inv *Inventory) RawInput() snapshot.RawInput {
	raw := snapshot.RawInput{
		Users:        inv.Users,
		UserPolicies: inv.UserPolicies,
		UserGroups:   inv.UserGroups,
		Groups:       inv.Groups,
		AccessKeys:   inv.AccessKeys,
	}
	if inv.Report != nil {
		raw.CredentialReport = inv.Report.Rows
	}
	return raw
}

// ReportGeneratedAt is the credential report timestamp, zero when identity
// data was not collected.
func (inv *Inventory) ReportGeneratedAt() time.Time {
	if inv.Report == nil {
		return time.Time{}
	}
	return inv.Report.GeneratedAt
}
