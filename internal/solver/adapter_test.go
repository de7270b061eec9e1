package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/git-pkgs/pkgcache/internal/record"
)

type fakeSolver struct {
	entries []record.ResolvedEntry
	err     error
}

func (s *fakeSolver) Solve(ctx context.Context, specs []string) ([]record.ResolvedEntry, error) {
	return s.entries, s.err
}

func TestSolveStampsProvenance(t *testing.T) {
	adapter := NewAdapter(&fakeSolver{entries: []record.ResolvedEntry{
		{
			Name:    "numpy",
			Version: "1.26.0",
			Build:   "py312_0",
			Channel: "https://conda.anaconda.org/conda-forge",
			URL:     "https://conda.anaconda.org/conda-forge/linux-64/numpy-1.26.0-py312_0.conda",
			Depends: []string{"python >=3.12"},
		},
		{
			Name:    "tzdata",
			Version: "2024a",
			Build:   "h0c530f3_0",
			Channel: "https://conda.anaconda.org/conda-forge",
			URL:     "https://conda.anaconda.org/conda-forge/noarch/tzdata-2024a-h0c530f3_0.conda",
			Depends: []string{},
		},
	}})

	recs, err := adapter.Solve(context.Background(), []string{"numpy", "tzdata"})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	for _, rec := range recs {
		if rec.Provenance.Kind() != record.Authoritative {
			t.Errorf("%s: provenance = %v, want Authoritative", rec.Name, rec.Provenance.Kind())
		}
	}
	// Empty lists from the resolver survive as data, not absence.
	if recs[1].Depends == nil || len(recs[1].Depends) != 0 {
		t.Errorf("tzdata Depends = %v, want empty list", recs[1].Depends)
	}
}

func TestSolveError(t *testing.T) {
	boom := errors.New("unsatisfiable")
	adapter := NewAdapter(&fakeSolver{err: boom})

	if _, err := adapter.Solve(context.Background(), []string{"impossible"}); !errors.Is(err, boom) {
		t.Errorf("Solve = %v, want resolver error", err)
	}
}
