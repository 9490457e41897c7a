// Package main implements the bumpkit CLI.
//
// bumpkit cuts a release of a project in any of the supported ecosystems. It
// detects the platform from the manifest in the working directory (or takes it
// from --platform), bumps the version there, rewrites the same version in any
// --sync-files, prepends a changelog section built from the commit subjects
// since the last tag, and then commits, tags, pushes and opens a pull request
// as configured.
//
// Command Usage:
//
//	bumpkit [flags] [release-type]
//	bumpkit detect
//	bumpkit current
//
// The release type is one of major, minor, patch (the default), premajor,
// preminor, prepatch or prerelease.
//
// Flags:
//
//	--platform:          node, python, rust, go, docker, php, deno or custom.
//	--bump-targets:      JSON list of {"path", "variable"} pairs for the custom platform.
//	--sync-files:        Comma separated files whose first version string follows the new version.
//	--changelog:         Prepend a section to CHANGELOG.md (default true).
//	--commit:            Commit the changed files (default true).
//	--tag:               Tag the commit as v<version>.
//	--push:              Push the commit and tag.
//	--create-pr:         Commit on a release branch, push it and open a pull request.
//	--working-directory: Directory holding the manifest (default ".").
//	--dry-run:           Report the next version without changing anything.
//	--debug:             Enable debug logging.
//	--version:           Print the CLI version.
//
// Every flag can also be supplied as an INPUT_<KEY> environment variable, for
// example INPUT_RELEASE_TYPE=minor or INPUT_GIT_TAG=true, so the binary runs
// unchanged as a GitHub Action. GITHUB_TOKEN and GITHUB_REPOSITORY are read
// for pushes and pull requests, and results are appended to $GITHUB_OUTPUT.
//
// Examples:
//
//	# Bump the patch version (e.g. 1.2.3 → 1.2.4)
//	bumpkit
//
//	# Bump the minor version and tag the release commit
//	bumpkit --tag minor
//
//	# Start a prerelease (e.g. 1.2.3 → 1.2.4-0), then bump it (1.2.4-0 → 1.2.4-1)
//	bumpkit prerelease
//
//	# Keep README.md and a Helm chart on the new version
//	bumpkit --sync-files README.md,chart/Chart.yaml patch
//
//	# Bump a version kept in an env file
//	bumpkit --platform custom --bump-targets '[{"path":"build.env","variable":"APP_VERSION"}]' patch
//
// For the library API see the documentation of the "pkg" package.
package main
