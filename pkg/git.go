package bumpkit

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Default commit identity, matching what GitHub uses for Actions bots.
const (
	DefaultGitUserName  = "github-actions[bot]"
	DefaultGitUserEmail = "github-actions[bot]@users.noreply.github.com"
)

// Repository wraps a go-git repository opened on a working directory. Paths
// passed to its methods are relative to that working directory, which may be
// a subdirectory of the worktree root.
type Repository struct {
	repo    *git.Repository
	root    string
	workDir string
	name    string
	email   string
}

// OpenRepository opens the repository containing dir.
func OpenRepository(dir string) (*Repository, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", dir)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening git repository at %s", abs)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "getting worktree")
	}
	return &Repository{
		repo:    repo,
		root:    resolvePath(wt.Filesystem.Root()),
		workDir: resolvePath(abs),
	}, nil
}

func resolvePath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return p
}

// rel converts a working-directory relative path into a worktree path.
func (r *Repository) rel(path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(r.workDir, path)
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return "", errors.Wrapf(err, "relative path for %s", path)
	}
	return filepath.ToSlash(rel), nil
}

// ConfigureUser records the commit identity in the repository config and uses
// it for commits and annotated tags made through r.
func (r *Repository) ConfigureUser(name, email string) error {
	cfg, err := r.repo.Config()
	if err != nil {
		return errors.Wrap(err, "reading git config")
	}
	cfg.User.Name = name
	cfg.User.Email = email
	if err := r.repo.SetConfig(cfg); err != nil {
		return errors.Wrap(err, "writing git config")
	}
	r.name, r.email = name, email
	return nil
}

func (r *Repository) signature() *object.Signature {
	name, email := r.name, r.email
	if name == "" || email == "" {
		if cfg, err := r.repo.Config(); err == nil {
			if name == "" {
				name = cfg.User.Name
			}
			if email == "" {
				email = cfg.User.Email
			}
		}
	}
	if name == "" {
		name = DefaultGitUserName
	}
	if email == "" {
		email = DefaultGitUserEmail
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}
}

// CommitChanges stages files (every change when files is empty) and commits
// them. It returns false without committing when nothing is staged.
func (r *Repository) CommitChanges(message string, files []string) (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, errors.Wrap(err, "getting worktree")
	}
	if len(files) == 0 {
		if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
			return false, errors.Wrap(err, "staging changes")
		}
	}
	for _, f := range files {
		rel, err := r.rel(f)
		if err != nil {
			return false, err
		}
		if _, err := wt.Add(rel); err != nil {
			return false, errors.Wrapf(err, "staging %s", rel)
		}
	}

	status, err := wt.Status()
	if err != nil {
		return false, errors.Wrap(err, "reading status")
	}
	staged := false
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			staged = true
			break
		}
	}
	if !staged {
		log.Info("no changes to commit")
		return false, nil
	}

	hash, err := wt.Commit(message, &git.CommitOptions{Author: r.signature()})
	if err != nil {
		return false, errors.Wrap(err, "committing")
	}
	log.Infof("committed %s: %s", hash.String()[:7], message)
	return true, nil
}

// CurrentBranch returns the short name of the checked out branch.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "reading HEAD")
	}
	if !head.Name().IsBranch() {
		return "", errors.New("HEAD is detached")
	}
	return head.Name().Short(), nil
}

// CreateBranch checks out name, creating it at HEAD if it does not exist.
// When the branch points at HEAD only the HEAD reference moves, so
// uncommitted changes are carried over untouched.
func (r *Repository) CreateBranch(name string) error {
	head, err := r.repo.Head()
	if err != nil {
		return errors.Wrap(err, "reading HEAD")
	}
	ref := plumbing.NewBranchReferenceName(name)
	existing, err := r.repo.Reference(ref, true)
	switch {
	case err != nil:
		if err := r.repo.Storer.SetReference(plumbing.NewHashReference(ref, head.Hash())); err != nil {
			return errors.Wrapf(err, "creating branch %s", name)
		}
	case existing.Hash() != head.Hash():
		wt, err := r.repo.Worktree()
		if err != nil {
			return errors.Wrap(err, "getting worktree")
		}
		if err := wt.Checkout(&git.CheckoutOptions{Branch: ref}); err != nil {
			return errors.Wrapf(err, "checking out branch %s", name)
		}
		return nil
	}
	if err := r.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, ref)); err != nil {
		return errors.Wrapf(err, "switching to branch %s", name)
	}
	return nil
}

// CreateTag tags HEAD. A non-empty message makes an annotated tag.
func (r *Repository) CreateTag(name, message string) error {
	if _, err := r.repo.Tag(name); err == nil {
		return fmt.Errorf("tag %s already exists", name)
	}
	head, err := r.repo.Head()
	if err != nil {
		return errors.Wrap(err, "reading HEAD")
	}
	var opts *git.CreateTagOptions
	if message != "" {
		opts = &git.CreateTagOptions{Tagger: r.signature(), Message: message}
	}
	if _, err := r.repo.CreateTag(name, head.Hash(), opts); err != nil {
		return errors.Wrapf(err, "creating tag %s", name)
	}
	return nil
}

// tagsByCommit maps each tagged commit to its tag names. Annotated tags are
// peeled to the commit they point at.
func (r *Repository) tagsByCommit() (map[plumbing.Hash][]string, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "listing tags")
	}
	tags := map[plumbing.Hash][]string{}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		hash := ref.Hash()
		if tag, err := r.repo.TagObject(hash); err == nil {
			commit, err := tag.Commit()
			if err != nil {
				return nil
			}
			hash = commit.Hash
		}
		tags[hash] = append(tags[hash], ref.Name().Short())
		return nil
	})
	return tags, err
}

// LatestTag returns the nearest tag reachable from HEAD, like
// `git describe --tags --abbrev=0`. It returns "" when there are no tags.
func (r *Repository) LatestTag() (string, error) {
	tags, err := r.tagsByCommit()
	if err != nil {
		return "", err
	}
	if len(tags) == 0 {
		return "", nil
	}
	head, err := r.repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "reading HEAD")
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return "", errors.Wrap(err, "reading log")
	}
	var found string
	err = iter.ForEach(func(c *object.Commit) error {
		names, ok := tags[c.Hash]
		if !ok {
			return nil
		}
		sort.Strings(names)
		found = names[len(names)-1]
		return storer.ErrStop
	})
	if err != nil {
		return "", errors.Wrap(err, "walking log")
	}
	return found, nil
}

// CommitsSince returns the subjects of commits reachable from HEAD but not
// from tag, newest first. An empty tag returns the whole history.
func (r *Repository) CommitsSince(tag string) ([]string, error) {
	stop := plumbing.ZeroHash
	if tag != "" {
		ref, err := r.repo.Tag(tag)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving tag %s", tag)
		}
		stop = ref.Hash()
		if obj, err := r.repo.TagObject(stop); err == nil {
			commit, err := obj.Commit()
			if err != nil {
				return nil, errors.Wrapf(err, "peeling tag %s", tag)
			}
			stop = commit.Hash
		}
	}
	head, err := r.repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, "reading HEAD")
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, errors.Wrap(err, "reading log")
	}
	var subjects []string
	err = iter.ForEach(func(c *object.Commit) error {
		if c.Hash == stop {
			return storer.ErrStop
		}
		subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
		subjects = append(subjects, subject)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walking log")
	}
	return subjects, nil
}

// Push sends refs (branch or tag names, full or short) to remote. A token
// authenticates over HTTPS.
func (r *Repository) Push(ctx context.Context, remote string, refs []string, token string) error {
	specs := make([]config.RefSpec, 0, len(refs))
	for _, ref := range refs {
		full := ref
		if !strings.HasPrefix(full, "refs/") {
			if _, err := r.repo.Tag(ref); err == nil {
				full = plumbing.NewTagReferenceName(ref).String()
			} else {
				full = plumbing.NewBranchReferenceName(ref).String()
			}
		}
		specs = append(specs, config.RefSpec(full+":"+full))
	}
	opts := &git.PushOptions{RemoteName: remote, RefSpecs: specs}
	if token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}
	if err := r.repo.PushContext(ctx, opts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.Wrapf(err, "pushing to %s", remote)
	}
	return nil
}

// CheckUncommitted fails when files other than allowed have uncommitted
// changes, so a release commit never sweeps up unrelated work.
func (r *Repository) CheckUncommitted(allowed []string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "getting worktree")
	}
	status, err := wt.Status()
	if err != nil {
		return errors.Wrap(err, "reading status")
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		rel, err := r.rel(f)
		if err != nil {
			return err
		}
		allowedSet[rel] = struct{}{}
	}
	var dirty []string
	for path, s := range status {
		if s.Worktree == git.Unmodified && s.Staging == git.Unmodified {
			continue
		}
		if _, ok := allowedSet[path]; !ok {
			dirty = append(dirty, path)
		}
	}
	if len(dirty) > 0 {
		sort.Strings(dirty)
		return fmt.Errorf("working directory is dirty; uncommitted files not included in commit: %v", dirty)
	}
	return nil
}

// IsClean reports whether the worktree has no uncommitted changes.
func (r *Repository) IsClean() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, errors.Wrap(err, "getting worktree")
	}
	status, err := wt.Status()
	if err != nil {
		return false, errors.Wrap(err, "reading status")
	}
	return status.IsClean(), nil
}
