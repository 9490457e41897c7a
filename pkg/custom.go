package bumpkit

import (
	"fmt"
	"regexp"
	"strings"
)

// BumpTarget pairs a file with the name of the variable holding its version.
type BumpTarget struct {
	Path     string `json:"path" mapstructure:"path"`
	Variable string `json:"variable" mapstructure:"variable"`
}

// Validate rejects targets with an empty path or variable.
func (t BumpTarget) Validate() error {
	if strings.TrimSpace(t.Path) == "" || strings.TrimSpace(t.Variable) == "" {
		return &VersionBumpError{Message: fmt.Sprintf("invalid bump target %+v: path and variable are required", t)}
	}
	return nil
}

// customRule matches `variable` followed by `=` or `:` and a double-quoted
// value. The variable may itself be quoted, which covers JSON keys, YAML
// mappings, shell/env assignments and most source constants:
//
//	"version": "1.2.3"
//	APP_VERSION = "1.2.3"
//	appVersion: "1.2.3"
func customRule(variable string) ExtractionRule {
	name := regexp.QuoteMeta(variable)
	return RegexRule(`(?m)(?:^|\W)["']?`+name+`["']?\s*[:=]\s*"([^"\n]+)"`, 1)
}

type customUpdater struct {
	*manifestUpdater
	target BumpTarget
}

// NewCustomUpdater builds an updater for one caller supplied target.
func NewCustomUpdater(files FileAccess, target BumpTarget) Updater {
	u := newManifestUpdater(PlatformCustom, files, ManifestDescriptor{
		Name: target.Path,
		Rule: customRule(target.Variable),
	})
	return &customUpdater{manifestUpdater: u, target: target}
}

// BumpVersion rewrites the target's variable. A missing file or a file
// without the variable fails before anything is written.
func (c *customUpdater) BumpVersion(kind BumpKind) (string, error) {
	if err := c.target.Validate(); err != nil {
		return "", err
	}
	if !c.CanHandle() {
		return "", &FileNotFoundError{Path: c.target.Path}
	}
	return c.manifestUpdater.BumpVersion(kind)
}
