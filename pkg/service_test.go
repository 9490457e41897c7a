package bumpkit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpdater records calls so detection order and delegation can be checked.
type fakeUpdater struct {
	platform  string
	handles   bool
	version   string
	bumpErr   error
	probes    *[]string
	bumpedTo  string
	bumpCalls int
}

func (f *fakeUpdater) Platform() string { return f.platform }

func (f *fakeUpdater) CanHandle() bool {
	if f.probes != nil {
		*f.probes = append(*f.probes, f.platform)
	}
	return f.handles
}

func (f *fakeUpdater) CurrentVersion() (string, error) { return f.version, nil }

func (f *fakeUpdater) BumpVersion(kind BumpKind) (string, error) {
	f.bumpCalls++
	if f.bumpErr != nil {
		return "", f.bumpErr
	}
	f.bumpedTo = NextVersion(f.version, kind)
	return f.bumpedTo, nil
}

func (f *fakeUpdater) UpdatedFiles() []string { return []string{f.platform + ".manifest"} }

func TestRegistry(t *testing.T) {
	a := &fakeUpdater{platform: "a"}
	b := &fakeUpdater{platform: "b"}
	r := NewRegistry(a, b)
	assert.Equal(t, []string{"a", "b"}, r.Platforms())

	replacement := &fakeUpdater{platform: "a", version: "9.9.9"}
	r.Register(replacement)
	assert.Equal(t, []string{"a", "b"}, r.Platforms(), "replacing keeps the slot")
	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Same(t, replacement, got)

	_, ok = r.Get("zzz")
	assert.False(t, ok)

	assert.Equal(t, []string{PlatformNode, PlatformPython, PlatformRust, PlatformGo, PlatformDocker, PlatformPHP, PlatformDeno},
		DefaultRegistry(newMemFiles(t, nil)).Platforms())
}

func TestResolvePlatformProbesInOrder(t *testing.T) {
	var probes []string
	r := NewRegistry(
		&fakeUpdater{platform: "first", probes: &probes},
		&fakeUpdater{platform: "second", handles: true, probes: &probes},
		&fakeUpdater{platform: "third", handles: true, probes: &probes},
	)
	s := NewUpdaterService(r, newMemFiles(t, nil))

	platform, err := s.ResolvePlatform("")
	require.NoError(t, err)
	assert.Equal(t, "second", platform)
	assert.Equal(t, []string{"first", "second"}, probes, "probing stops at the first match")
}

func TestResolvePlatformErrors(t *testing.T) {
	files := newMemFiles(t, map[string]string{"README.md": "nothing"})
	s := NewUpdaterService(DefaultRegistry(files), files)

	_, err := s.ResolvePlatform("")
	var detectErr *PlatformDetectionError
	require.True(t, errors.As(err, &detectErr))
	assert.Empty(t, detectErr.Platform)

	_, err = s.ResolvePlatform("cobol")
	require.True(t, errors.As(err, &detectErr))
	assert.Equal(t, "cobol", detectErr.Platform)
	assert.Contains(t, err.Error(), "cobol")

	platform, err := s.ResolvePlatform(PlatformCustom)
	require.NoError(t, err)
	assert.Equal(t, PlatformCustom, platform)
}

func TestResolvePlatformDetectsRealManifests(t *testing.T) {
	files := newMemFiles(t, map[string]string{
		"Cargo.toml": "[package]\nversion = \"0.1.0\"\n",
		"Dockerfile": "FROM scratch\nLABEL version=\"0.1.0\"\n",
	})
	s := NewUpdaterService(DefaultRegistry(files), files)

	platform, err := s.ResolvePlatform("")
	require.NoError(t, err)
	assert.Equal(t, PlatformRust, platform, "rust is registered before docker")

	platform, err = s.ResolvePlatform(PlatformDocker)
	require.NoError(t, err)
	assert.Equal(t, PlatformDocker, platform)

	next, err := s.UpdateVersion(PlatformDocker, Patch, nil)
	require.NoError(t, err)
	assert.Equal(t, "0.1.1", next)
	assert.Equal(t, []string{"Dockerfile"}, s.UpdatedFiles())
}

func TestManifestPath(t *testing.T) {
	files := newMemFiles(t, map[string]string{"composer.json": `{"version": "1.0.0"}`})
	s := NewUpdaterService(DefaultRegistry(files), files)

	assert.Empty(t, s.ManifestPath(PlatformPHP, nil), "nothing detected yet")
	platform, err := s.ResolvePlatform("")
	require.NoError(t, err)
	assert.Equal(t, "composer.json", s.ManifestPath(platform, nil))

	assert.Equal(t, "VERSION.txt", s.ManifestPath(PlatformCustom, []BumpTarget{{Path: "VERSION.txt", Variable: "V"}}))
	assert.Empty(t, s.ManifestPath(PlatformCustom, nil))
	assert.Empty(t, s.ManifestPath("cobol", nil))
}

func TestUpdateVersion(t *testing.T) {
	node := &fakeUpdater{platform: "node", handles: true, version: "1.2.3"}
	idle := &fakeUpdater{platform: "idle", version: "1.0.0"}
	s := NewUpdaterService(NewRegistry(node, idle), newMemFiles(t, nil))

	next, err := s.UpdateVersion("node", Minor, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", next)
	assert.Equal(t, 1, node.bumpCalls)
	assert.Equal(t, []string{"node.manifest"}, s.UpdatedFiles())

	_, err = s.UpdateVersion("python", Patch, nil)
	var bumpErr *VersionBumpError
	require.True(t, errors.As(err, &bumpErr))
	assert.Equal(t, "no updater found for platform: python", bumpErr.Message)

	_, err = s.UpdateVersion("idle", Patch, nil)
	require.True(t, errors.As(err, &bumpErr))
	assert.Equal(t, 0, idle.bumpCalls)

	node.bumpErr = &InvalidManifestError{Path: "package.json", Reason: "broken"}
	_, err = s.UpdateVersion("node", Patch, nil)
	var invalid *InvalidManifestError
	require.True(t, errors.As(err, &invalid), "updater errors propagate unchanged")
}

func TestUpdateCustomVersions(t *testing.T) {
	files := newMemFiles(t, map[string]string{
		"a.env": "APP_VERSION=\"1.0.0\"\n",
		"b.js":  "export const version = \"3.4.5\";\n",
	})
	s := NewUpdaterService(DefaultRegistry(files), files)

	_, err := s.UpdateVersion(PlatformCustom, Patch, nil)
	var bumpErr *VersionBumpError
	require.True(t, errors.As(err, &bumpErr))
	assert.Equal(t, "no bump_targets provided for custom platform", bumpErr.Message)

	_, err = s.UpdateVersion(PlatformCustom, Patch, []BumpTarget{
		{Path: "a.env", Variable: "APP_VERSION"},
		{Path: "b.js"},
	})
	require.True(t, errors.As(err, &bumpErr))
	content, err := files.Read("a.env")
	require.NoError(t, err)
	assert.Equal(t, "APP_VERSION=\"1.0.0\"\n", content, "targets are validated before any write")

	next, err := s.UpdateVersion(PlatformCustom, Patch, []BumpTarget{
		{Path: "a.env", Variable: "APP_VERSION"},
		{Path: "b.js", Variable: "version"},
	})
	require.NoError(t, err)
	assert.Equal(t, "3.4.6", next, "the last target's version is returned")
	assert.Equal(t, []string{"a.env", "b.js"}, s.UpdatedFiles())

	content, err = files.Read("a.env")
	require.NoError(t, err)
	assert.Equal(t, "APP_VERSION=\"1.0.1\"\n", content)

	current, err := s.CurrentVersion(PlatformCustom, []BumpTarget{{Path: "b.js", Variable: "version"}})
	require.NoError(t, err)
	assert.Equal(t, "3.4.6", current)
}
