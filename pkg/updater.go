package bumpkit

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Updater is implemented once per ecosystem.
type Updater interface {
	// Platform is the stable identifier used as the registry key.
	Platform() string
	// CanHandle detects whether the working tree belongs to this ecosystem
	// and caches the detected manifest for later calls.
	CanHandle() bool
	// CurrentVersion reads the version from the detected manifest.
	CurrentVersion() (string, error)
	// BumpVersion computes the next version, persists it and returns it.
	BumpVersion(kind BumpKind) (string, error)
}

// FileReporter is implemented by updaters that can tell which files their
// last bump wrote.
type FileReporter interface {
	UpdatedFiles() []string
}

// manifestUpdater is the shared implementation behind every built-in
// ecosystem. Candidates are probed in order; the first one present becomes
// the detected manifest.
type manifestUpdater struct {
	platform   string
	candidates []ManifestDescriptor
	// syncAll writes the new version to every present candidate, not just
	// the detected one.
	syncAll bool
	// siblings are optional files kept in step with the detected manifest.
	// A sibling location that does not exist is skipped.
	siblings []ManifestDescriptor
	// afterBump runs once the manifests have been written.
	afterBump func(oldVersion, newVersion string)

	manifests *ManifestAccessor
	detected  *ManifestDescriptor
	updated   []string
}

func newManifestUpdater(platform string, files FileAccess, candidates ...ManifestDescriptor) *manifestUpdater {
	return &manifestUpdater{
		platform:   platform,
		candidates: candidates,
		manifests:  NewManifestAccessor(files),
	}
}

func (u *manifestUpdater) Platform() string {
	return u.platform
}

func (u *manifestUpdater) CanHandle() bool {
	if u.detected != nil {
		return true
	}
	names := make([]string, len(u.candidates))
	for i, c := range u.candidates {
		names[i] = c.Name
	}
	name, ok := u.manifests.Detect(names...)
	if !ok {
		return false
	}
	for i := range u.candidates {
		if u.candidates[i].Name == name {
			d := u.candidates[i]
			u.detected = &d
			break
		}
	}
	log.Debugf("%s: detected manifest %s", u.platform, name)
	return true
}

// DetectedManifest returns the cached manifest path, if detection ran and
// succeeded.
func (u *manifestUpdater) DetectedManifest() (string, bool) {
	if u.detected == nil {
		return "", false
	}
	return u.detected.Name, true
}

func (u *manifestUpdater) CurrentVersion() (string, error) {
	if u.detected == nil {
		return "", &VersionBumpError{Message: fmt.Sprintf("%s: no manifest detected; run detection first", u.platform)}
	}
	return u.manifests.GetDescriptorVersion(u.detected.Name, *u.detected)
}

func (u *manifestUpdater) BumpVersion(kind BumpKind) (string, error) {
	current, err := u.CurrentVersion()
	if err != nil {
		return "", err
	}
	next := NextVersion(current, kind)
	if next == current {
		return "", invalidManifest(u.detected.Name, "version %q is not a valid semantic version", current)
	}

	u.updated = nil
	targets := []ManifestDescriptor{*u.detected}
	if u.syncAll {
		targets = targets[:0]
		for _, c := range u.candidates {
			if u.manifests.Files().Exists(c.Name) {
				targets = append(targets, c)
			}
		}
	}
	for _, t := range targets {
		if err := u.manifests.SetDescriptorVersion(t.Name, next, t); err != nil {
			return "", err
		}
		u.updated = append(u.updated, t.Name)
	}
	for _, s := range u.siblings {
		if !u.manifests.Files().Exists(s.Name) {
			continue
		}
		if _, err := u.manifests.GetDescriptorVersion(s.Name, s); err != nil {
			log.Debugf("%s: skipping %s (%s): %v", u.platform, s.Name, s.Rule, err)
			continue
		}
		if err := u.manifests.SetDescriptorVersion(s.Name, next, s); err != nil {
			return "", err
		}
		if len(u.updated) == 0 || u.updated[len(u.updated)-1] != s.Name {
			u.updated = append(u.updated, s.Name)
		}
	}
	if u.afterBump != nil {
		u.afterBump(current, next)
	}

	log.Infof("%s: bumped %s from %s to %s", u.platform, u.detected.Name, current, next)
	return next, nil
}

func (u *manifestUpdater) UpdatedFiles() []string {
	return append([]string(nil), u.updated...)
}
