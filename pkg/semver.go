package bumpkit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// BumpKind selects which component of a semantic version is incremented.
type BumpKind string

const (
	Major      BumpKind = "major"
	Minor      BumpKind = "minor"
	Patch      BumpKind = "patch"
	PreMajor   BumpKind = "premajor"
	PreMinor   BumpKind = "preminor"
	PrePatch   BumpKind = "prepatch"
	PreRelease BumpKind = "prerelease"
)

// BumpKinds lists every supported bump kind in documentation order.
var BumpKinds = []BumpKind{Major, Minor, Patch, PreMajor, PreMinor, PrePatch, PreRelease}

// ParseBumpKind validates a user supplied release type.
func ParseBumpKind(s string) (BumpKind, error) {
	k := BumpKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range BumpKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown release type %q (expected one of %v)", s, BumpKinds)
}

// parseSemVer strictly parses major.minor.patch[-pre][+build]. A leading "v"
// or "=" is tolerated the same way npm does.
func parseSemVer(version string) (*semver.Version, error) {
	trimmed := strings.TrimLeft(strings.TrimSpace(version), "=v")
	return semver.StrictNewVersion(trimmed)
}

// formatSemVer renders components without a "v" prefix and without build
// metadata.
func formatSemVer(major, minor, patch uint64, prerelease string) string {
	base := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if prerelease != "" {
		return base + "-" + prerelease
	}
	return base
}

// NextVersion returns the version that follows current for the given bump
// kind. The function is total: if current is not a valid semantic version or
// kind is unknown, current is returned unchanged. Callers that require a bump
// must check that the result differs from the input.
func NextVersion(current string, kind BumpKind) string {
	v, err := parseSemVer(current)
	if err != nil {
		return current
	}
	major, minor, patch := v.Major(), v.Minor(), v.Patch()
	prerelease := v.Prerelease()

	switch kind {
	case Major:
		if minor != 0 || patch != 0 || prerelease == "" {
			major++
		}
		minor, patch, prerelease = 0, 0, ""
	case Minor:
		if patch != 0 || prerelease == "" {
			minor++
		}
		patch, prerelease = 0, ""
	case Patch:
		if prerelease == "" {
			patch++
		}
		prerelease = ""
	case PreMajor:
		major++
		minor, patch, prerelease = 0, 0, "0"
	case PreMinor:
		minor++
		patch, prerelease = 0, "0"
	case PrePatch:
		patch++
		prerelease = "0"
	case PreRelease:
		if prerelease == "" {
			patch++
			prerelease = "0"
			break
		}
		prerelease = bumpPrerelease(prerelease)
	default:
		return current
	}
	return formatSemVer(major, minor, patch, prerelease)
}

// bumpPrerelease increments the right-most numeric identifier, or appends
// ".0" when none of the identifiers is numeric.
func bumpPrerelease(prerelease string) string {
	parts := strings.Split(prerelease, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		n, err := strconv.ParseUint(parts[i], 10, 64)
		if err != nil {
			continue
		}
		parts[i] = strconv.FormatUint(n+1, 10)
		return strings.Join(parts, ".")
	}
	return prerelease + ".0"
}

// CompareVersions orders two semantic versions: -1 when a < b, 0 when equal
// and 1 when a > b.
func CompareVersions(a, b string) (int, error) {
	va, err := parseSemVer(a)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", a, err)
	}
	vb, err := parseSemVer(b)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", b, err)
	}
	return va.Compare(vb), nil
}

// IsValidVersion reports whether v parses as a strict semantic version.
func IsValidVersion(v string) bool {
	_, err := parseSemVer(v)
	return err == nil
}
