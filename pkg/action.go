package bumpkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// State is where a run currently stands. States only move forward; a failure
// at any step ends the run in StateFailed.
type State string

const (
	StateUninitialized    State = "uninitialized"
	StatePlatformResolved State = "platform_resolved"
	StateVersionBumped    State = "version_bumped"
	StateFilesSynced      State = "files_synced"
	StateChangelogUpdated State = "changelog_updated"
	StateCommitted        State = "committed"
	StateTagged           State = "tagged"
	StatePushed           State = "pushed"
	StatePullRequested    State = "pull_requested"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Step names the unit of work that failed.
type Step string

const (
	StepResolvePlatform Step = "resolve_platform"
	StepBumpVersion     Step = "bump_version"
	StepSyncFiles       Step = "sync_files"
	StepChangelog       Step = "changelog"
	StepBranch          Step = "branch"
	StepCommit          Step = "commit"
	StepTag             Step = "tag"
	StepPush            Step = "push"
	StepPullRequest     Step = "pull_request"
)

// StepError records which step of a run failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Result describes what a run did, or for a dry run what it would do.
type Result struct {
	State          State
	FailedStep     Step
	Platform       string
	BumpKind       BumpKind
	OldVersion     string
	NewVersion     string
	UpdatedFiles   []string
	Committed      bool
	Branch         string
	Tag            string
	PullRequestURL string
}

// Outputs are the values published as action outputs.
func (r *Result) Outputs() map[string]string {
	return map[string]string{
		"platform":         r.Platform,
		"old_version":      r.OldVersion,
		"new_version":      r.NewVersion,
		"tag":              r.Tag,
		"branch":           r.Branch,
		"pull_request_url": r.PullRequestURL,
		"updated_files":    strings.Join(r.UpdatedFiles, ","),
	}
}

// PullRequestCreator opens a pull request and returns its URL.
type PullRequestCreator interface {
	Create(ctx context.Context, req PullRequestRequest) (string, error)
}

// Dependencies overrides the collaborators of a run. Zero values select the
// real implementations rooted at the configured working directory.
type Dependencies struct {
	Files        FileAccess
	Registry     *Registry
	PullRequests PullRequestCreator
	Now          func() time.Time
}

var repoLocks sync.Map

// lockRepository serialises runs against the same checkout.
func lockRepository(dir string) func() {
	key := dir
	if abs, err := filepath.Abs(dir); err == nil {
		key = abs
	}
	mu, _ := repoLocks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (d Dependencies) withDefaults(cfg *Config) Dependencies {
	if d.Files == nil {
		d.Files = NewOSFileAccess(cfg.WorkingDirectory)
	}
	if d.Registry == nil {
		d.Registry = DefaultRegistry(d.Files)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type run struct {
	ctx  context.Context
	cfg  *Config
	deps Dependencies
	svc  *UpdaterService
	repo *Repository
	res  *Result
	// changelog section for the pull request body
	notes string
}

func (r *run) fail(step Step, err error) (*Result, error) {
	r.res.State = StateFailed
	r.res.FailedStep = step
	log.Errorf("%s failed: %v", step, err)
	return r.res, &StepError{Step: step, Err: err}
}

func (r *run) repository() (*Repository, error) {
	if r.repo != nil {
		return r.repo, nil
	}
	repo, err := OpenRepository(r.cfg.WorkingDirectory)
	if err != nil {
		return nil, err
	}
	r.repo = repo
	return repo, nil
}

func (r *run) addUpdated(paths ...string) {
	for _, p := range paths {
		if !containsPath(r.res.UpdatedFiles, p) {
			r.res.UpdatedFiles = append(r.res.UpdatedFiles, p)
		}
	}
}

func containsPath(paths []string, p string) bool {
	for _, existing := range paths {
		if filepath.Clean(existing) == filepath.Clean(p) {
			return true
		}
	}
	return false
}

// Run executes the release workflow: resolve the platform, bump the version,
// sync extra files, update the changelog, then commit, branch, tag, push and
// open a pull request as configured. Runs against the same working directory
// are serialised. On failure the returned Result still reports how far the run
// got.
func Run(ctx context.Context, cfg *Config, deps Dependencies) (*Result, error) {
	if cfg.DryRun {
		return DryRun(cfg, deps)
	}
	unlock := lockRepository(cfg.WorkingDirectory)
	defer unlock()

	deps = deps.withDefaults(cfg)
	r := &run{
		ctx:  ctx,
		cfg:  cfg,
		deps: deps,
		svc:  NewUpdaterService(deps.Registry, deps.Files),
		res:  &Result{State: StateUninitialized, BumpKind: cfg.ReleaseType},
	}

	steps := []struct {
		step Step
		fn   func() error
	}{
		{StepResolvePlatform, r.resolvePlatform},
		{StepBumpVersion, r.bumpVersion},
		{StepSyncFiles, r.syncFiles},
		{StepChangelog, r.updateChangelog},
		{StepBranch, r.createBranch},
		{StepCommit, r.commit},
		{StepTag, r.tag},
		{StepPush, r.push},
		{StepPullRequest, r.pullRequest},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return r.fail(s.step, err)
		}
		if err := s.fn(); err != nil {
			return r.fail(s.step, err)
		}
	}
	r.res.State = StateDone
	return r.res, nil
}

func (r *run) resolvePlatform() error {
	platform, err := r.svc.ResolvePlatform(r.cfg.TargetPlatform)
	if err != nil {
		return err
	}
	log.Infof("Detected platform: %s", platform)
	r.res.Platform = platform
	r.res.State = StatePlatformResolved
	return nil
}

func (r *run) bumpVersion() error {
	old, err := r.svc.CurrentVersion(r.res.Platform, r.cfg.BumpTargets)
	if err != nil {
		return err
	}
	next, err := r.svc.UpdateVersion(r.res.Platform, r.cfg.ReleaseType, r.cfg.BumpTargets)
	if err != nil {
		return err
	}
	log.Infof("Bumped %s version %s -> %s", r.res.Platform, old, next)
	r.res.OldVersion = old
	r.res.NewVersion = next
	r.addUpdated(r.svc.UpdatedFiles()...)
	r.res.State = StateVersionBumped
	return nil
}

func (r *run) syncFiles() error {
	if len(r.cfg.SyncFiles) == 0 {
		return nil
	}
	synced, err := SyncVersionFiles(r.deps.Files, r.cfg.SyncFiles, r.res.NewVersion)
	if err != nil {
		log.Warnf("some sync files were skipped: %v", err)
	}
	r.addUpdated(synced...)
	r.res.State = StateFilesSynced
	return nil
}

func (r *run) updateChangelog() error {
	if !r.cfg.Changelog {
		return nil
	}
	repo, err := r.repository()
	if err != nil {
		return err
	}
	latest, err := repo.LatestTag()
	if err != nil {
		return err
	}
	commits, err := repo.CommitsSince(latest)
	if err != nil {
		return err
	}
	section := GenerateChangelog(commits, r.res.NewVersion, r.deps.Now())
	changelog := NewChangelogService(r.deps.Files, r.cfg.ChangelogPath)
	changed, err := changelog.Update(section)
	if err != nil {
		return err
	}
	if changed {
		r.addUpdated(changelog.Path())
	}
	r.notes = section
	r.res.State = StateChangelogUpdated
	return nil
}

func (r *run) createBranch() error {
	if !r.cfg.Commit || !r.cfg.CreatePR {
		return nil
	}
	repo, err := r.repository()
	if err != nil {
		return err
	}
	branch := r.cfg.BranchFor(r.res.NewVersion)
	if err := repo.CreateBranch(branch); err != nil {
		return err
	}
	log.Infof("Created branch: %s", branch)
	r.res.Branch = branch
	return nil
}

func (r *run) commit() error {
	if !r.cfg.Commit {
		return nil
	}
	repo, err := r.repository()
	if err != nil {
		return err
	}
	if err := repo.ConfigureUser(r.cfg.GitUserName, r.cfg.GitUserEmail); err != nil {
		return err
	}
	if err := repo.CheckUncommitted(r.res.UpdatedFiles); err != nil {
		log.Warnf("%v; only release files will be committed", err)
	}
	committed, err := repo.CommitChanges(r.cfg.CommitMessageFor(r.res.NewVersion), r.res.UpdatedFiles)
	if err != nil {
		return err
	}
	r.res.Committed = committed
	r.res.State = StateCommitted
	return nil
}

func (r *run) tag() error {
	if !r.cfg.Commit || !r.cfg.GitTag {
		return nil
	}
	repo, err := r.repository()
	if err != nil {
		return err
	}
	tag := "v" + r.res.NewVersion
	if err := repo.CreateTag(tag, r.cfg.CommitMessageFor(r.res.NewVersion)); err != nil {
		return err
	}
	log.Infof("Created tag: %s", tag)
	r.res.Tag = tag
	r.res.State = StateTagged
	return nil
}

func (r *run) push() error {
	if !r.cfg.Commit || !(r.cfg.Push || r.cfg.CreatePR) {
		return nil
	}
	repo, err := r.repository()
	if err != nil {
		return err
	}
	branch := r.res.Branch
	if branch == "" {
		if branch, err = repo.CurrentBranch(); err != nil {
			return err
		}
	}
	refs := []string{branch}
	if r.res.Tag != "" {
		refs = append(refs, r.res.Tag)
	}
	if err := repo.Push(r.ctx, r.cfg.Remote, refs, r.cfg.GitHubToken); err != nil {
		return err
	}
	log.Infof("Pushed %s to %s", strings.Join(refs, ", "), r.cfg.Remote)
	r.res.State = StatePushed
	return nil
}

func (r *run) pullRequest() error {
	if !r.cfg.Commit || !r.cfg.CreatePR {
		return nil
	}
	creator := r.deps.PullRequests
	if creator == nil {
		client, err := NewPullRequestClient(r.cfg.GitHubToken, r.cfg.GitHubAPIURL)
		if err != nil {
			return err
		}
		creator = client
	}
	body := r.notes
	if body == "" {
		body = fmt.Sprintf("Release v%s", r.res.NewVersion)
	}
	url, err := creator.Create(r.ctx, PullRequestRequest{
		Repository: r.cfg.GitHubRepository,
		Head:       r.res.Branch,
		Base:       r.cfg.BaseBranch,
		Title:      r.cfg.CommitMessageFor(r.res.NewVersion),
		Body:       body,
	})
	if err != nil {
		return err
	}
	log.Infof("PR created: %s", url)
	r.res.PullRequestURL = url
	r.res.State = StatePullRequested
	return nil
}

// DryRun resolves the platform and computes the next version without writing
// anything.
func DryRun(cfg *Config, deps Dependencies) (*Result, error) {
	deps = deps.withDefaults(cfg)
	svc := NewUpdaterService(deps.Registry, deps.Files)
	res := &Result{State: StateUninitialized, BumpKind: cfg.ReleaseType}

	platform, err := svc.ResolvePlatform(cfg.TargetPlatform)
	if err != nil {
		res.State, res.FailedStep = StateFailed, StepResolvePlatform
		return res, &StepError{Step: StepResolvePlatform, Err: err}
	}
	res.Platform = platform
	res.State = StatePlatformResolved

	current, err := svc.CurrentVersion(platform, cfg.BumpTargets)
	if err != nil {
		res.State, res.FailedStep = StateFailed, StepBumpVersion
		return res, &StepError{Step: StepBumpVersion, Err: err}
	}
	next := NextVersion(current, cfg.ReleaseType)
	if next == current {
		res.State, res.FailedStep = StateFailed, StepBumpVersion
		return res, &StepError{Step: StepBumpVersion, Err: invalidManifest(svc.ManifestPath(platform, cfg.BumpTargets), "version %q is not a valid semantic version", current)}
	}
	res.OldVersion = current
	res.NewVersion = next
	if cfg.Commit && cfg.GitTag {
		res.Tag = "v" + next
	}
	if cfg.Commit && cfg.CreatePR {
		res.Branch = cfg.BranchFor(next)
	}
	log.Infof("[dry run] %s version %s -> %s", platform, current, next)
	res.State = StateDone
	return res, nil
}

// WriteActionOutputs appends outputs to the file named by path (normally
// $GITHUB_OUTPUT). Multi-line values use the heredoc form.
func WriteActionOutputs(fs afero.Fs, path string, outputs map[string]string) error {
	if path == "" {
		return nil
	}
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening outputs file: %w", err)
	}
	defer f.Close()

	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := outputs[k]
		if strings.Contains(v, "\n") {
			delim := "BUMPKIT_EOF"
			for strings.Contains(v, delim) {
				delim += "_"
			}
			fmt.Fprintf(&b, "%s<<%s\n%s\n%s\n", k, delim, v, delim)
			continue
		}
		fmt.Fprintf(&b, "%s=%s\n", k, v)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("writing outputs file: %w", err)
	}
	return nil
}
