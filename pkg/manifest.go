package bumpkit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// RuleKind tells which half of an ExtractionRule is populated.
type RuleKind string

const (
	RuleJSON  RuleKind = "json"
	RuleRegex RuleKind = "regex"
)

// ExtractionRule locates a version value inside a manifest. Exactly one of
// JSONPath or Pattern is set: use JSONRule or RegexRule to build one.
type ExtractionRule struct {
	JSONPath []string
	Pattern  *regexp.Regexp
	Group    int
}

// JSONRule addresses a string value by its key path from the document root.
func JSONRule(path ...string) ExtractionRule {
	return ExtractionRule{JSONPath: path}
}

// RegexRule addresses the capture group `group` of pattern. Writes replace
// only that group's bytes.
func RegexRule(pattern string, group int) ExtractionRule {
	return ExtractionRule{Pattern: regexp.MustCompile(pattern), Group: group}
}

// Kind reports whether this is a JSON or a regex rule.
func (r ExtractionRule) Kind() RuleKind {
	if r.Pattern != nil {
		return RuleRegex
	}
	return RuleJSON
}

// Validate enforces the one-kind-only invariant.
func (r ExtractionRule) Validate() error {
	switch {
	case r.Pattern != nil && len(r.JSONPath) > 0:
		return errors.New("extraction rule has both a JSON path and a pattern")
	case r.Pattern == nil && len(r.JSONPath) == 0:
		return errors.New("extraction rule has neither a JSON path nor a pattern")
	case r.Pattern != nil && (r.Group < 1 || r.Group > r.Pattern.NumSubexp()):
		return fmt.Errorf("capture group %d out of range for pattern %q", r.Group, r.Pattern)
	}
	return nil
}

func (r ExtractionRule) String() string {
	if r.Pattern != nil {
		return fmt.Sprintf("regex %s (group %d)", r.Pattern, r.Group)
	}
	return "json " + strings.Join(r.JSONPath, ".")
}

// SyntaxCheck parses a whole manifest and reports whether it is well formed.
// It runs before reading and on the content about to be written.
type SyntaxCheck func(path, content string) error

// ManifestDescriptor is one candidate manifest of an ecosystem.
type ManifestDescriptor struct {
	Name   string
	Rule   ExtractionRule
	Syntax SyntaxCheck
}

// ManifestAccessor reads and writes version values through a FileAccess.
type ManifestAccessor struct {
	files FileAccess
}

// NewManifestAccessor builds an accessor over files.
func NewManifestAccessor(files FileAccess) *ManifestAccessor {
	return &ManifestAccessor{files: files}
}

// Files returns the underlying FileAccess.
func (m *ManifestAccessor) Files() FileAccess {
	return m.files
}

// Detect returns the first name that exists. Order matters: the first match
// wins.
func (m *ManifestAccessor) Detect(names ...string) (string, bool) {
	for _, name := range names {
		if m.files.Exists(name) {
			return name, true
		}
	}
	return "", false
}

// GetVersion reads the version value addressed by rule.
func (m *ManifestAccessor) GetVersion(path string, rule ExtractionRule) (string, error) {
	return m.GetDescriptorVersion(path, ManifestDescriptor{Name: path, Rule: rule})
}

// SetVersion writes newVersion into the location addressed by rule.
//
// JSON manifests are decoded and re-serialised in full with two-space
// indentation. Key order is kept but whitespace and other formatting are
// normalised. Regex manifests are rewritten in place: only the bytes of the
// rule's capture group change.
func (m *ManifestAccessor) SetVersion(path, newVersion string, rule ExtractionRule) error {
	return m.SetDescriptorVersion(path, newVersion, ManifestDescriptor{Name: path, Rule: rule})
}

// GetDescriptorVersion reads path using the rule and syntax check of d.
func (m *ManifestAccessor) GetDescriptorVersion(path string, d ManifestDescriptor) (string, error) {
	if err := d.Rule.Validate(); err != nil {
		return "", invalidManifest(path, "%v", err)
	}
	content, err := m.files.Read(path)
	if err != nil {
		return "", err
	}
	if d.Syntax != nil {
		if err := d.Syntax(path, content); err != nil {
			return "", invalidManifest(path, "%v", err)
		}
	}
	if d.Rule.Kind() == RuleJSON {
		doc, err := parseJSONDocument(content)
		if err != nil {
			return "", invalidManifest(path, "parsing JSON: %v", err)
		}
		parent, err := walkJSONParent(doc, d.Rule.JSONPath)
		if err != nil {
			return "", invalidManifest(path, "%v", err)
		}
		leaf := d.Rule.JSONPath[len(d.Rule.JSONPath)-1]
		value, ok := parent.get(leaf)
		if !ok {
			return "", invalidManifest(path, "key %q not found", strings.Join(d.Rule.JSONPath, "."))
		}
		s, ok := value.(string)
		if !ok {
			return "", invalidManifest(path, "key %q is not a string", strings.Join(d.Rule.JSONPath, "."))
		}
		return s, nil
	}

	loc := d.Rule.Pattern.FindStringSubmatchIndex(content)
	if loc == nil || loc[2*d.Rule.Group] < 0 {
		return "", invalidManifest(path, "no match for %s", d.Rule.Pattern)
	}
	return content[loc[2*d.Rule.Group]:loc[2*d.Rule.Group+1]], nil
}

// SetDescriptorVersion writes newVersion into path using the rule and syntax
// check of d. Nothing is written when the rule does not match.
func (m *ManifestAccessor) SetDescriptorVersion(path, newVersion string, d ManifestDescriptor) error {
	if err := d.Rule.Validate(); err != nil {
		return invalidManifest(path, "%v", err)
	}
	content, err := m.files.Read(path)
	if err != nil {
		return err
	}

	var updated string
	if d.Rule.Kind() == RuleJSON {
		doc, err := parseJSONDocument(content)
		if err != nil {
			return invalidManifest(path, "parsing JSON: %v", err)
		}
		parent, err := walkJSONParent(doc, d.Rule.JSONPath)
		if err != nil {
			return invalidManifest(path, "%v", err)
		}
		leaf := d.Rule.JSONPath[len(d.Rule.JSONPath)-1]
		value, ok := parent.get(leaf)
		if !ok {
			return invalidManifest(path, "key %q not found", strings.Join(d.Rule.JSONPath, "."))
		}
		if _, ok := value.(string); !ok {
			return invalidManifest(path, "key %q is not a string", strings.Join(d.Rule.JSONPath, "."))
		}
		parent.set(leaf, newVersion)
		updated, err = encodeJSONDocument(doc)
		if err != nil {
			return invalidManifest(path, "encoding JSON: %v", err)
		}
		if strings.HasSuffix(content, "\n") {
			updated += "\n"
		}
	} else {
		loc := d.Rule.Pattern.FindStringSubmatchIndex(content)
		if loc == nil || loc[2*d.Rule.Group] < 0 {
			return invalidManifest(path, "no match for %s", d.Rule.Pattern)
		}
		start, end := loc[2*d.Rule.Group], loc[2*d.Rule.Group+1]
		updated = content[:start] + newVersion + content[end:]
	}

	if d.Syntax != nil {
		if err := d.Syntax(path, updated); err != nil {
			return invalidManifest(path, "rewritten content is not valid: %v", err)
		}
	}
	return m.files.Write(path, updated)
}

// walkJSONParent follows every key but the last and returns the object that
// should hold the leaf.
func walkJSONParent(doc any, path []string) (*jsonObject, error) {
	if len(path) == 0 {
		return nil, errors.New("empty JSON path")
	}
	current := doc
	for i, key := range path[:len(path)-1] {
		obj, ok := current.(*jsonObject)
		if !ok {
			return nil, fmt.Errorf("%q is not an object", strings.Join(path[:i], "."))
		}
		next, ok := obj.get(key)
		if !ok {
			return nil, fmt.Errorf("key %q not found", strings.Join(path[:i+1], "."))
		}
		current = next
	}
	obj, ok := current.(*jsonObject)
	if !ok {
		return nil, fmt.Errorf("parent of %q is not an object", strings.Join(path, "."))
	}
	return obj, nil
}
