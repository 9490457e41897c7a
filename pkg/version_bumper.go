package bumpkit

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// VersionPattern finds a version literal in a line. Group 1 is the text
// before the version, group 2 the version (an optional leading "v" is kept
// outside it), group 3 the text after.
type VersionPattern struct {
	Pattern *regexp.Regexp
	Name    string
}

const versionLiteral = `v?(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?)`

// MainVersionPatterns match declarations that are usually the primary
// version of a project rather than a dependency reference. They are anchored
// at the start of a line.
var MainVersionPatterns = []VersionPattern{
	{
		Pattern: regexp.MustCompile(`^(\s{0,2}"version"\s*:\s*")` + versionLiteral + `(")`),
		Name:    "root JSON version field",
	},
	{
		Pattern: regexp.MustCompile(`^(\s*version\s*=\s*")` + versionLiteral + `(")`),
		Name:    "root TOML version field",
	},
	{
		Pattern: regexp.MustCompile(`(?i)^(\s*(?:export\s+)?VERSION\s*[:=]\s*["']?)` + versionLiteral + `(["']?)`),
		Name:    "root VERSION assignment",
	},
	{
		Pattern: regexp.MustCompile(`^(\s*)` + versionLiteral + `(\s*)$`),
		Name:    "bare version line",
	},
}

// CommonVersionPatterns are tried when no main pattern matches.
var CommonVersionPatterns = []VersionPattern{
	{
		Pattern: regexp.MustCompile(`("version"\s*:\s*")` + versionLiteral + `(")`),
		Name:    "JSON version field",
	},
	{
		Pattern: regexp.MustCompile(`(?i)(version\s*[:=]\s*["']?)` + versionLiteral + `(["']?)`),
		Name:    "version assignment",
	},
	{
		Pattern: regexp.MustCompile(`(<version>)` + versionLiteral + `(</version>)`),
		Name:    "XML version tag",
	},
	{
		Pattern: regexp.MustCompile(`(@version\s+)` + versionLiteral + `()`),
		Name:    "doc comment version",
	},
	{
		Pattern: regexp.MustCompile(`(?i)(LABEL\s+(?:org\.opencontainers\.image\.)?version=")` + versionLiteral + `(")`),
		Name:    "Dockerfile label",
	},
}

// VersionMatch is one version literal found in a file.
type VersionMatch struct {
	Line    int // 1-based
	Start   int // byte offset of the version inside the line
	End     int
	Version string
	Pattern VersionPattern
}

// FindMainVersion returns the most likely primary version in content, or nil.
// Main patterns win over common ones; for TOML files a version under
// [package] or [project] is preferred.
func FindMainVersion(name, content string) *VersionMatch {
	lines := strings.Split(content, "\n")

	if strings.HasSuffix(name, ".toml") {
		section := ""
		for i, line := range lines {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
				section = strings.Trim(trimmed, "[]")
				continue
			}
			if section != "package" && section != "project" && section != "tool.poetry" {
				continue
			}
			if m := matchLine(lines[i], i, MainVersionPatterns[1]); m != nil {
				return m
			}
		}
	}

	for i, line := range lines {
		for _, vp := range MainVersionPatterns {
			if m := matchLine(line, i, vp); m != nil {
				return m
			}
		}
	}
	for i, line := range lines {
		for _, vp := range CommonVersionPatterns {
			if m := matchLine(line, i, vp); m != nil {
				return m
			}
		}
	}
	return nil
}

func matchLine(line string, index int, vp VersionPattern) *VersionMatch {
	loc := vp.Pattern.FindStringSubmatchIndex(line)
	if loc == nil || len(loc) < 6 || loc[4] < 0 {
		return nil
	}
	return &VersionMatch{
		Line:    index + 1,
		Start:   loc[4],
		End:     loc[5],
		Version: line[loc[4]:loc[5]],
		Pattern: vp,
	}
}

// ReplaceVersion swaps the matched version for newVersion. Every other byte,
// including a "v" prefix in front of the match, is left alone.
func ReplaceVersion(content string, m VersionMatch, newVersion string) (string, error) {
	lines := strings.Split(content, "\n")
	if m.Line < 1 || m.Line > len(lines) {
		return "", fmt.Errorf("line %d out of range", m.Line)
	}
	line := lines[m.Line-1]
	if m.Start < 0 || m.End > len(line) || m.Start > m.End {
		return "", fmt.Errorf("match %d:%d out of range on line %d", m.Start, m.End, m.Line)
	}
	lines[m.Line-1] = line[:m.Start] + newVersion + line[m.End:]
	return strings.Join(lines, "\n"), nil
}

// SyncVersionFiles writes newVersion into the main version of each path.
// Files that are missing or carry no recognisable version are skipped and
// reported in the returned error; the files that were written are returned
// either way.
func SyncVersionFiles(files FileAccess, paths []string, newVersion string) ([]string, error) {
	var updated []string
	var skipped *multierror.Error
	for _, p := range paths {
		content, err := files.Read(p)
		if err != nil {
			skipped = multierror.Append(skipped, err)
			continue
		}
		m := FindMainVersion(filepath.Base(p), content)
		if m == nil {
			skipped = multierror.Append(skipped, invalidManifest(p, "no version found"))
			continue
		}
		if m.Version == newVersion {
			log.Debugf("%s already at %s", p, newVersion)
			continue
		}
		out, err := ReplaceVersion(content, *m, newVersion)
		if err != nil {
			skipped = multierror.Append(skipped, invalidManifest(p, "%v", err))
			continue
		}
		if err := files.Write(p, out); err != nil {
			skipped = multierror.Append(skipped, err)
			continue
		}
		log.Infof("synced %s (%s, line %d) from %s to %s", p, m.Pattern.Name, m.Line, m.Version, newVersion)
		updated = append(updated, p)
	}
	return updated, skipped.ErrorOrNil()
}
