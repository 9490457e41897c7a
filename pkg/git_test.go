package bumpkit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initGitRepo creates a repository on branch main with one commit per
// message, each touching history.txt.
func initGitRepo(t *testing.T, messages ...string) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	require.NoError(t, err)
	for _, msg := range messages {
		gitCommitFile(t, dir, repo, "history.txt", msg+"\n", msg)
	}
	return dir, repo
}

func gitCommitFile(t *testing.T, dir string, repo *git.Repository, name, content, msg string) plumbing.Hash {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}

func TestRepositoryCommitChanges(t *testing.T) {
	dir, repo := initGitRepo(t, "chore: init")
	r, err := OpenRepository(dir)
	require.NoError(t, err)
	require.NoError(t, r.ConfigureUser("Release Bot", "bot@example.com"))

	committed, err := r.CommitChanges("chore: nothing", nil)
	require.NoError(t, err)
	assert.False(t, committed, "clean tree is not committed")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"version":"1.0.1"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("wip"), 0o644))

	clean, err := r.IsClean()
	require.NoError(t, err)
	assert.False(t, clean)

	committed, err = r.CommitChanges("chore: bump version to 1.0.1", []string{"package.json"})
	require.NoError(t, err)
	assert.True(t, committed)

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "chore: bump version to 1.0.1", commit.Message)
	assert.Equal(t, "Release Bot", commit.Author.Name)
	assert.Equal(t, "bot@example.com", commit.Author.Email)

	_, err = commit.File("package.json")
	assert.NoError(t, err)
	_, err = commit.File("scratch.txt")
	assert.Error(t, err, "only the listed files are committed")

	cfg, err := repo.Config()
	require.NoError(t, err)
	assert.Equal(t, "Release Bot", cfg.User.Name)
}

func TestRepositorySubdirectory(t *testing.T) {
	dir, repo := initGitRepo(t, "chore: init")
	sub := filepath.Join(dir, "packages", "app")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "Cargo.toml"), []byte("[package]\nversion = \"0.1.0\"\n"), 0o644))

	r, err := OpenRepository(sub)
	require.NoError(t, err)
	committed, err := r.CommitChanges("chore: add crate", []string{"Cargo.toml"})
	require.NoError(t, err)
	require.True(t, committed)

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	_, err = commit.File("packages/app/Cargo.toml")
	assert.NoError(t, err)
}

func TestRepositoryTagsAndHistory(t *testing.T) {
	dir, repo := initGitRepo(t, "chore: init", "feat: first feature")
	r, err := OpenRepository(dir)
	require.NoError(t, err)

	latest, err := r.LatestTag()
	require.NoError(t, err)
	assert.Empty(t, latest)

	all, err := r.CommitsSince("")
	require.NoError(t, err)
	assert.Equal(t, []string{"feat: first feature", "chore: init"}, all)

	require.NoError(t, r.CreateTag("v1.0.0", "release v1.0.0"))
	assert.Error(t, r.CreateTag("v1.0.0", ""), "existing tag")

	gitCommitFile(t, dir, repo, "history.txt", "fix\n", "fix: a bug\n\nlonger body")
	gitCommitFile(t, dir, repo, "history.txt", "feat\n", "feat: second feature")

	latest, err = r.LatestTag()
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", latest)

	since, err := r.CommitsSince(latest)
	require.NoError(t, err)
	assert.Equal(t, []string{"feat: second feature", "fix: a bug"}, since)

	require.NoError(t, r.CreateTag("v1.1.0", ""))
	latest, err = r.LatestTag()
	require.NoError(t, err)
	assert.Equal(t, "v1.1.0", latest, "lightweight tags count too")

	since, err = r.CommitsSince(latest)
	require.NoError(t, err)
	assert.Empty(t, since)

	_, err = r.CommitsSince("v9.9.9")
	assert.Error(t, err)
}

func TestRepositoryBranches(t *testing.T) {
	dir, _ := initGitRepo(t, "chore: init")
	r, err := OpenRepository(dir)
	require.NoError(t, err)

	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "VERSION"), []byte("1.0.1\n"), 0o644))
	require.NoError(t, r.CreateBranch("release/v1.0.1"))
	branch, err = r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "release/v1.0.1", branch)

	data, err := os.ReadFile(filepath.Join(dir, "VERSION"))
	require.NoError(t, err)
	assert.Equal(t, "1.0.1\n", string(data), "working tree changes survive the checkout")

	require.NoError(t, r.CreateBranch("main"), "checking out an existing branch")
	branch, err = r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestRepositoryCheckUncommitted(t *testing.T) {
	dir, _ := initGitRepo(t, "chore: init")
	r, err := OpenRepository(dir)
	require.NoError(t, err)
	require.NoError(t, r.CheckUncommitted(nil))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o644))
	require.NoError(t, r.CheckUncommitted([]string{"package.json"}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.txt"), []byte("edited\n"), 0o644))
	err = r.CheckUncommitted([]string{"package.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history.txt")
}

func TestRepositoryPushUnknownRemote(t *testing.T) {
	dir, _ := initGitRepo(t, "chore: init")
	r, err := OpenRepository(dir)
	require.NoError(t, err)

	err = r.Push(context.Background(), "origin", []string{"main"}, "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pushing to origin")
}

func TestOpenRepositoryOutsideGit(t *testing.T) {
	_, err := OpenRepository(t.TempDir())
	assert.Error(t, err)
}
