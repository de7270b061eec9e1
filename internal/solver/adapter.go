// Package solver wraps the external dependency resolver. The resolver's
// internal representation does not carry provenance, so every record crossing
// back out of it must be re-stamped here; without that, resolver-side
// metadata corrections degrade to indistinguishable placeholders and the
// merge engine cannot protect them.
package solver

import (
	"context"
	"fmt"

	"github.com/git-pkgs/pkgcache/internal/record"
)

// Solver is the external dependency resolver. Its output mirrors the
// channel's published repodata, corrections included.
type Solver interface {
	Solve(ctx context.Context, specs []string) ([]record.ResolvedEntry, error)
}

// Adapter converts resolver output into classified package records.
type Adapter struct {
	solver Solver
}

// NewAdapter wraps a resolver.
func NewAdapter(s Solver) *Adapter {
	return &Adapter{solver: s}
}

// Solve resolves the given match specs and returns one Authoritative record
// per resolved package.
func (a *Adapter) Solve(ctx context.Context, specs []string) ([]*record.Record, error) {
	entries, err := a.solver.Solve(ctx, specs)
	if err != nil {
		return nil, fmt.Errorf("resolving specs: %w", err)
	}

	recs := make([]*record.Record, 0, len(entries))
	for _, e := range entries {
		recs = append(recs, record.FromResolver(e))
	}
	return recs, nil
}
