package store

import (
	"context"
	"fmt"
	"strings"
)

// knownRatio is the fraction of a package's declared contents that must
// already be linked to Samples for the package to be considered known
// (spec.md §3: "≥ 90% of its declared file count").
const knownRatio = 0.90

// IsPackageKnown implements discovery.KnownChecker: an archive is known
// when its basename matches an existing t_package row AND at least
// knownRatio of its declared file count is already linked to Samples whose
// path contains "/<stripped-basename>/".
func (d *DB) IsPackageKnown(ctx context.Context, basename string) (bool, error) {
	pkgs, err := d.SearchPackage(ctx, basename)
	if err != nil {
		return false, err
	}
	if len(pkgs) == 0 {
		return false, nil
	}

	stripped := strings.TrimSuffix(basename, ".7z")
	stripped = strings.TrimSuffix(stripped, ".7Z")

	for _, pkg := range pkgs {
		if pkg.DeclaredCount == 0 {
			continue
		}
		linked, err := d.PackageSampleCount(ctx, stripped)
		if err != nil {
			return false, fmt.Errorf("store: is package known: %w", err)
		}
		if float64(linked)/float64(pkg.DeclaredCount) >= knownRatio {
			return true, nil
		}
	}
	return false, nil
}
