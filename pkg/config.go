package bumpkit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// Configuration keys. As GitHub Action inputs they arrive as INPUT_<KEY>.
const (
	KeyReleaseType      = "release_type"
	KeyTargetPlatform   = "target_platform"
	KeyBumpTargets      = "bump_targets"
	KeySyncFiles        = "sync_files"
	KeyChangelog        = "changelog"
	KeyChangelogPath    = "changelog_path"
	KeyCommit           = "commit"
	KeyGitTag           = "git_tag"
	KeyPush             = "push"
	KeyCreatePR         = "create_pr"
	KeyBranchPrefix     = "branch_prefix"
	KeyBaseBranch       = "base_branch"
	KeyCommitMessage    = "commit_message"
	KeyGitUserName      = "git_user_name"
	KeyGitUserEmail     = "git_user_email"
	KeyRemote           = "remote"
	KeyGitHubToken      = "github_token"
	KeyGitHubRepository = "github_repository"
	KeyGitHubAPIURL     = "github_api_url"
	KeyWorkingDirectory = "working_directory"
	KeyDryRun           = "dry_run"
)

// Config is the resolved input of one run.
type Config struct {
	ReleaseType      BumpKind
	TargetPlatform   string
	BumpTargets      []BumpTarget
	SyncFiles        []string
	Changelog        bool
	ChangelogPath    string
	Commit           bool
	GitTag           bool
	Push             bool
	CreatePR         bool
	BranchPrefix     string
	BaseBranch       string
	CommitMessage    string
	GitUserName      string
	GitUserEmail     string
	Remote           string
	GitHubToken      string
	GitHubRepository string
	GitHubAPIURL     string
	WorkingDirectory string
	DryRun           bool
}

// NewViper returns a viper instance reading GitHub Action inputs from the
// environment, with defaults for every key.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("INPUT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	// Fall back to the variables the Actions runner always sets.
	_ = v.BindEnv(KeyGitHubToken, "INPUT_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv(KeyGitHubRepository, "INPUT_GITHUB_REPOSITORY", "GITHUB_REPOSITORY")
	_ = v.BindEnv(KeyGitHubAPIURL, "INPUT_GITHUB_API_URL", "GITHUB_API_URL")
	return v
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyReleaseType, string(Patch))
	v.SetDefault(KeyTargetPlatform, "")
	v.SetDefault(KeyBumpTargets, "")
	v.SetDefault(KeySyncFiles, "")
	v.SetDefault(KeyChangelog, true)
	v.SetDefault(KeyChangelogPath, DefaultChangelogPath)
	v.SetDefault(KeyCommit, true)
	v.SetDefault(KeyGitTag, false)
	v.SetDefault(KeyPush, false)
	v.SetDefault(KeyCreatePR, false)
	v.SetDefault(KeyBranchPrefix, "release/v")
	v.SetDefault(KeyBaseBranch, "main")
	v.SetDefault(KeyCommitMessage, "chore: bump version to {version}")
	v.SetDefault(KeyGitUserName, DefaultGitUserName)
	v.SetDefault(KeyGitUserEmail, DefaultGitUserEmail)
	v.SetDefault(KeyRemote, "origin")
	v.SetDefault(KeyWorkingDirectory, ".")
	v.SetDefault(KeyDryRun, false)
}

// LoadConfig reads and validates every key. All problems are reported
// together in a *ConfigError.
func LoadConfig(v *viper.Viper) (*Config, error) {
	var errs *multierror.Error
	boolean := func(key string) bool {
		raw := strings.TrimSpace(v.GetString(key))
		if raw == "" {
			return false
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %q is not a boolean", key, raw))
		}
		return b
	}
	str := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}

	cfg := &Config{
		TargetPlatform:   strings.ToLower(str(KeyTargetPlatform)),
		SyncFiles:        splitList(v.GetString(KeySyncFiles)),
		Changelog:        boolean(KeyChangelog),
		ChangelogPath:    str(KeyChangelogPath),
		Commit:           boolean(KeyCommit),
		GitTag:           boolean(KeyGitTag),
		Push:             boolean(KeyPush),
		CreatePR:         boolean(KeyCreatePR),
		BranchPrefix:     str(KeyBranchPrefix),
		BaseBranch:       str(KeyBaseBranch),
		CommitMessage:    str(KeyCommitMessage),
		GitUserName:      str(KeyGitUserName),
		GitUserEmail:     str(KeyGitUserEmail),
		Remote:           str(KeyRemote),
		GitHubToken:      str(KeyGitHubToken),
		GitHubRepository: str(KeyGitHubRepository),
		GitHubAPIURL:     str(KeyGitHubAPIURL),
		WorkingDirectory: str(KeyWorkingDirectory),
		DryRun:           boolean(KeyDryRun),
	}

	kind, err := ParseBumpKind(str(KeyReleaseType))
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	cfg.ReleaseType = kind

	targets, err := ParseBumpTargets(v.GetString(KeyBumpTargets))
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	cfg.BumpTargets = targets

	if cfg.TargetPlatform == PlatformCustom && len(cfg.BumpTargets) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("%s: required when %s is %q", KeyBumpTargets, KeyTargetPlatform, PlatformCustom))
	}
	for _, t := range cfg.BumpTargets {
		if err := t.Validate(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if cfg.WorkingDirectory == "" {
		cfg.WorkingDirectory = "."
	}
	if cfg.ChangelogPath == "" {
		cfg.ChangelogPath = DefaultChangelogPath
	}
	if cfg.CommitMessage == "" {
		errs = multierror.Append(errs, fmt.Errorf("%s: must not be empty", KeyCommitMessage))
	}
	if (cfg.GitTag || cfg.CreatePR) && !cfg.Commit {
		errs = multierror.Append(errs, fmt.Errorf("%s and %s require %s", KeyGitTag, KeyCreatePR, KeyCommit))
	}
	if cfg.CreatePR {
		if cfg.GitHubToken == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s: required to create a pull request", KeyGitHubToken))
		}
		if owner, name, ok := strings.Cut(cfg.GitHubRepository, "/"); !ok || owner == "" || name == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s: %q is not owner/name", KeyGitHubRepository, cfg.GitHubRepository))
		}
		if cfg.BaseBranch == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s: must not be empty", KeyBaseBranch))
		}
	}

	if errs.ErrorOrNil() != nil {
		return nil, &ConfigError{Errs: errs}
	}
	return cfg, nil
}

// ParseBumpTargets decodes the JSON array form of bump_targets. An empty
// string yields no targets.
func ParseBumpTargets(raw string) ([]BumpTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var targets []BumpTarget
	if err := json.Unmarshal([]byte(raw), &targets); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON: %w", KeyBumpTargets, err)
	}
	return targets, nil
}

// CommitMessageFor expands {version} in the configured commit message.
func (c *Config) CommitMessageFor(version string) string {
	return strings.ReplaceAll(c.CommitMessage, "{version}", version)
}

// BranchFor is the release branch name for version.
func (c *Config) BranchFor(version string) string {
	return c.BranchPrefix + version
}

func splitList(raw string) []string {
	var out []string
	for _, field := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' }) {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	return out
}
