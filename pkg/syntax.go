package bumpkit

import (
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/moby/buildkit/frontend/dockerfile/parser"
	"golang.org/x/mod/modfile"
)

func tomlSyntax(_ string, content string) error {
	var doc map[string]any
	_, err := toml.Decode(content, &doc)
	return err
}

// goModVersionArg matches a module directive carrying the release version as
// a second argument, e.g. `module github.com/user/repo v1.2.3`. modfile only
// accepts the path there.
var goModVersionArg = regexp.MustCompile(`(?m)^([ \t]*module[ \t]+\S+)[ \t]+v` + semverChars + `[ \t]*$`)

func parseGoMod(path, content string) (*modfile.File, error) {
	content = goModVersionArg.ReplaceAllString(content, "$1")
	return modfile.ParseLax(path, []byte(content), nil)
}

func goModSyntax(path, content string) error {
	_, err := parseGoMod(path, content)
	return err
}

func dockerfileSyntax(_ string, content string) error {
	_, err := parser.Parse(strings.NewReader(content))
	return err
}
