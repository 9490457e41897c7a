package bumpkit

import (
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
)

// Platform identifiers.
const (
	PlatformNode   = "node"
	PlatformPython = "python"
	PlatformRust   = "rust"
	PlatformGo     = "go"
	PlatformDocker = "docker"
	PlatformPHP    = "php"
	PlatformDeno   = "deno"
	PlatformCustom = "custom"
)

// semverChars matches a version literal including prerelease and build
// suffixes, so prerelease bumps read back through the same rule.
const semverChars = `\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?`

var (
	nodeManifest = ManifestDescriptor{Name: "package.json", Rule: JSONRule("version")}

	pyprojectManifest = ManifestDescriptor{
		Name:   "pyproject.toml",
		Rule:   tomlVersionRule("project", "tool.poetry"),
		Syntax: tomlSyntax,
	}
	setupPyManifest = ManifestDescriptor{
		Name: "setup.py",
		Rule: RegexRule(`version\s*=\s*['"]([^'"]+)['"]`, 1),
	}

	cargoManifest = ManifestDescriptor{
		Name:   "Cargo.toml",
		Rule:   tomlVersionRule("package", "workspace.package"),
		Syntax: tomlSyntax,
	}

	goModManifest = ManifestDescriptor{
		Name:   "go.mod",
		Rule:   RegexRule(`(?m)^module\s+[^\n]*?\bv(`+semverChars+`)`, 1),
		Syntax: goModSyntax,
	}

	dockerManifest = ManifestDescriptor{
		Name:   "Dockerfile",
		Rule:   RegexRule(`LABEL version="([^"]+)"`, 1),
		Syntax: dockerfileSyntax,
	}

	composerManifest    = ManifestDescriptor{Name: "composer.json", Rule: JSONRule("version")}
	versionFileManifest = ManifestDescriptor{Name: "VERSION", Rule: RegexRule(`\A\s*v?(\S+)`, 1)}
	// Anchored to an assignment or define() so unrelated quoted numbers in
	// the file are not picked up.
	versionPHPManifest = ManifestDescriptor{
		Name: "version.php",
		Rule: RegexRule(`(?i)\bversion['"]?\s*(?:=|,)\s*['"](`+semverChars+`)['"]`, 1),
	}
	configPHPManifest = ManifestDescriptor{
		Name: "config.php",
		Rule: RegexRule(`'version'\s*=>\s*'(`+semverChars+`)'`, 1),
	}

	denoManifest = ManifestDescriptor{Name: "deno.json", Rule: JSONRule("version")}
	jsrManifest  = ManifestDescriptor{Name: "jsr.json", Rule: JSONRule("version")}
)

// tomlVersionRule matches `version = "..."` among the top-level keys of a TOML
// file or inside one of sections. Lines opening another table end the search,
// so dependency tables such as [dependencies.serde] are never read.
func tomlVersionRule(sections ...string) ExtractionRule {
	quoted := make([]string, len(sections))
	for i, section := range sections {
		quoted[i] = regexp.QuoteMeta(section)
	}
	return RegexRule(`(?m)(?:\A|^[ \t]*\[(?:`+strings.Join(quoted, "|")+`)\][^\n]*\n)`+
		`(?:[ \t\r]*(?:[^\[\s][^\n]*)?\n)*?`+
		`[ \t]*version\s*=\s*"([^"]+)"`, 1)
}

// NewNodeUpdater handles package.json. Lock files are kept in step when they
// carry the root package version.
func NewNodeUpdater(files FileAccess) Updater {
	u := newManifestUpdater(PlatformNode, files, nodeManifest)
	for _, lock := range []string{"package-lock.json", "npm-shrinkwrap.json"} {
		u.siblings = append(u.siblings,
			ManifestDescriptor{Name: lock, Rule: JSONRule("version")},
			ManifestDescriptor{Name: lock, Rule: JSONRule("packages", "", "version")},
		)
	}
	return u
}

// NewPythonUpdater handles pyproject.toml, falling back to setup.py.
func NewPythonUpdater(files FileAccess) Updater {
	return newManifestUpdater(PlatformPython, files, pyprojectManifest, setupPyManifest)
}

// NewRustUpdater handles Cargo.toml.
func NewRustUpdater(files FileAccess) Updater {
	return newManifestUpdater(PlatformRust, files, cargoManifest)
}

// NewGoUpdater handles a version recorded on the module line of go.mod, for
// example `module example.com/app // v1.4.0`.
func NewGoUpdater(files FileAccess) Updater {
	u := newManifestUpdater(PlatformGo, files, goModManifest)
	u.afterBump = func(_, newVersion string) {
		warnGoModuleMajor(files, newVersion)
	}
	return u
}

// warnGoModuleMajor flags a v2+ release whose module path lacks the matching
// major suffix. Rewriting import paths is left to the maintainer.
func warnGoModuleMajor(files FileAccess, newVersion string) {
	content, err := files.Read(goModManifest.Name)
	if err != nil {
		return
	}
	f, err := parseGoMod(goModManifest.Name, content)
	if err != nil || f.Module == nil {
		return
	}
	maj := semver.Major("v" + newVersion)
	if maj == "v0" || maj == "v1" || maj == "" {
		return
	}
	_, pathMajor, ok := module.SplitPathVersion(f.Module.Mod.Path)
	if !ok {
		return
	}
	if module.CheckPathMajor("v"+newVersion, pathMajor) != nil {
		log.Warnf("go: module path %s does not end in /%s; importers will not see v%s until it does",
			f.Module.Mod.Path, maj, newVersion)
	}
}

// NewDockerUpdater handles a `LABEL version="..."` line in Dockerfile.
func NewDockerUpdater(files FileAccess) Updater {
	return newManifestUpdater(PlatformDocker, files, dockerManifest)
}

// NewPHPUpdater handles composer.json, VERSION, version.php and config.php,
// in that priority order.
func NewPHPUpdater(files FileAccess) Updater {
	return newManifestUpdater(PlatformPHP, files,
		composerManifest, versionFileManifest, versionPHPManifest, configPHPManifest)
}

// NewDenoUpdater handles deno.json and jsr.json. The version is read from the
// first one present and written to both when both exist.
func NewDenoUpdater(files FileAccess) Updater {
	u := newManifestUpdater(PlatformDeno, files, denoManifest, jsrManifest)
	u.syncAll = true
	return u
}
