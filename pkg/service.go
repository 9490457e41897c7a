package bumpkit

import (
	"fmt"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"
)

// UpdaterService selects a platform and delegates version bumps to it.
type UpdaterService struct {
	registry *Registry
	files    FileAccess
	updated  []string
}

// NewUpdaterService builds a service over registry. files backs the custom
// targets, which are not part of the registry.
func NewUpdaterService(registry *Registry, files FileAccess) *UpdaterService {
	return &UpdaterService{registry: registry, files: files}
}

// ResolvePlatform validates an explicit platform, or probes the registered
// updaters in order and returns the first that recognises the working tree.
func (s *UpdaterService) ResolvePlatform(explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		if explicit == PlatformCustom {
			return PlatformCustom, nil
		}
		u, ok := s.registry.Get(explicit)
		if !ok {
			return "", &PlatformDetectionError{
				Platform: explicit,
				Message:  fmt.Sprintf("specified platform %q is not supported (known: %s)", explicit, strings.Join(s.registry.Platforms(), ", ")),
			}
		}
		// Explicit selection still needs the manifest cached for the bump.
		u.CanHandle()
		return u.Platform(), nil
	}

	for _, u := range s.registry.All() {
		if u.CanHandle() {
			log.Debugf("detected platform %s", u.Platform())
			return u.Platform(), nil
		}
	}
	return "", &PlatformDetectionError{
		Message: "could not detect platform; set target_platform if auto-detection fails",
	}
}

// UpdateVersion bumps the version of platform and returns the new version.
func (s *UpdaterService) UpdateVersion(platform string, kind BumpKind, targets []BumpTarget) (string, error) {
	s.updated = nil
	if platform == PlatformCustom {
		return s.UpdateCustomVersions(kind, targets)
	}
	u, ok := s.registry.Get(platform)
	if !ok {
		return "", &VersionBumpError{Message: fmt.Sprintf("no updater found for platform: %s", platform)}
	}
	if !u.CanHandle() {
		return "", &VersionBumpError{Message: fmt.Sprintf("%s: no manifest found in the working tree", platform)}
	}
	next, err := u.BumpVersion(kind)
	if err != nil {
		return "", err
	}
	s.collect(u)
	return next, nil
}

// UpdateCustomVersions bumps each target in turn and returns the version
// produced by the last one. Targets are independent; they do not have to
// agree on the resulting version.
func (s *UpdaterService) UpdateCustomVersions(kind BumpKind, targets []BumpTarget) (string, error) {
	if len(targets) == 0 {
		return "", &VersionBumpError{Message: "no bump_targets provided for custom platform"}
	}
	for _, t := range targets {
		if err := t.Validate(); err != nil {
			return "", err
		}
	}
	var last string
	for _, t := range targets {
		u := NewCustomUpdater(s.files, t)
		next, err := u.BumpVersion(kind)
		if err != nil {
			return "", err
		}
		s.collect(u)
		last = next
	}
	return last, nil
}

// CurrentVersion reads the current version without writing anything. For the
// custom platform the first target is read.
func (s *UpdaterService) CurrentVersion(platform string, targets []BumpTarget) (string, error) {
	var u Updater
	if platform == PlatformCustom {
		if len(targets) == 0 {
			return "", &VersionBumpError{Message: "no bump_targets provided for custom platform"}
		}
		if err := targets[0].Validate(); err != nil {
			return "", err
		}
		u = NewCustomUpdater(s.files, targets[0])
	} else {
		var ok bool
		if u, ok = s.registry.Get(platform); !ok {
			return "", &VersionBumpError{Message: fmt.Sprintf("no updater found for platform: %s", platform)}
		}
	}
	if !u.CanHandle() {
		return "", &VersionBumpError{Message: fmt.Sprintf("%s: no manifest found in the working tree", platform)}
	}
	return u.CurrentVersion()
}

// ManifestPath names the manifest a platform reads its version from: the
// detected manifest, or the first target for the custom platform. It returns
// "" when nothing has been detected.
func (s *UpdaterService) ManifestPath(platform string, targets []BumpTarget) string {
	if platform == PlatformCustom {
		if len(targets) == 0 {
			return ""
		}
		return targets[0].Path
	}
	u, ok := s.registry.Get(platform)
	if !ok {
		return ""
	}
	d, ok := u.(interface{ DetectedManifest() (string, bool) })
	if !ok {
		return ""
	}
	name, _ := d.DetectedManifest()
	return name
}

// UpdatedFiles lists the files written by the last UpdateVersion call.
func (s *UpdaterService) UpdatedFiles() []string {
	return append([]string(nil), s.updated...)
}

func (s *UpdaterService) collect(u Updater) {
	fr, ok := u.(FileReporter)
	if !ok {
		return
	}
	for _, f := range fr.UpdatedFiles() {
		if !slices.Contains(s.updated, f) {
			s.updated = append(s.updated, f)
		}
	}
}
