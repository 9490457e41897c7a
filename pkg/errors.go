package bumpkit

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// PlatformDetectionError is returned when no ecosystem could be recognised in
// the working tree, or when an explicitly requested platform is unknown.
type PlatformDetectionError struct {
	Platform string // requested platform, empty when auto-detecting
	Message  string
}

func (e *PlatformDetectionError) Error() string {
	return e.Message
}

// VersionBumpError is returned when a bump cannot be carried out: no updater
// for the platform, an invalid custom target list, or an updater used before
// detection.
type VersionBumpError struct {
	Message string
}

func (e *VersionBumpError) Error() string {
	return e.Message
}

// FileNotFoundError is returned by FileAccess.Read when the path is absent.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// InvalidManifestError is returned when a manifest does not parse or the
// expected version field is missing.
type InvalidManifestError struct {
	Path   string
	Reason string
}

func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("invalid manifest %s: %s", e.Path, e.Reason)
}

// ChangelogError wraps failures while reading or writing the changelog.
type ChangelogError struct {
	Path string
	Err  error
}

func (e *ChangelogError) Error() string {
	return fmt.Sprintf("changelog %s: %v", e.Path, e.Err)
}

func (e *ChangelogError) Unwrap() error {
	return e.Err
}

// ConfigError collects every problem found while loading the configuration.
type ConfigError struct {
	Errs *multierror.Error
}

func (e *ConfigError) Error() string {
	return e.Errs.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Errs.ErrorOrNil()
}

func invalidManifest(path, format string, args ...any) *InvalidManifestError {
	return &InvalidManifestError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
